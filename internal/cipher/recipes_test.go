package cipher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func encryptRecipe(name string) *Recipe {
	return &Recipe{
		Name:        name,
		Description: "Encrypt normalized lines and hex encode",
		Tags:        []string{"xor", "transport"},
		Pipeline: Pipeline{
			Operations: []OperationConfig{
				{Name: "xor_encrypt", Parameters: map[string]any{"key": "abcd"}},
				{Name: "hex_encode"},
			},
			Reversible: true,
		},
	}
}

func TestRecipeManagerSaveAndGet(t *testing.T) {
	rm := NewRecipeManager("")

	recipe := encryptRecipe("test-recipe")
	if err := rm.SaveRecipe(recipe); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}

	retrieved, exists := rm.GetRecipe("test-recipe")
	if !exists {
		t.Fatal("recipe should exist")
	}
	if retrieved.Description != recipe.Description {
		t.Errorf("expected description %q, got %q", recipe.Description, retrieved.Description)
	}
	if retrieved.CreatedAt == "" || retrieved.UpdatedAt == "" {
		t.Error("timestamps should be set")
	}
}

func TestRecipeManagerValidation(t *testing.T) {
	rm := NewRecipeManager("")
	tests := []struct {
		name   string
		recipe *Recipe
	}{
		{"nil recipe", nil},
		{"empty name", &Recipe{Pipeline: Pipeline{Operations: []OperationConfig{{Name: "hex_encode"}}}}},
		{"no operations", &Recipe{Name: "empty"}},
		{"unknown operation", &Recipe{Name: "bad", Pipeline: Pipeline{Operations: []OperationConfig{{Name: "jwt_sign"}}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := rm.SaveRecipe(tt.recipe); err == nil {
				t.Fatal("expected SaveRecipe to fail")
			}
		})
	}
	if len(rm.ListRecipes()) != 0 {
		t.Fatal("invalid recipes must not be stored")
	}
}

func TestRecipeManagerListSorted(t *testing.T) {
	rm := NewRecipeManager("")
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := rm.SaveRecipe(encryptRecipe(name)); err != nil {
			t.Fatalf("SaveRecipe failed: %v", err)
		}
	}

	list := rm.ListRecipes()
	if len(list) != 3 || list[0].Name != "alpha" || list[2].Name != "zeta" {
		t.Fatalf("expected sorted recipes, got %v", list)
	}
}

func TestRecipeManagerDelete(t *testing.T) {
	tempDir := t.TempDir()
	rm := NewRecipeManager(tempDir)

	if err := rm.SaveRecipe(encryptRecipe("to delete")); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}
	path := filepath.Join(tempDir, "to_delete.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected recipe file: %v", err)
	}

	if err := rm.DeleteRecipe("to delete"); err != nil {
		t.Fatalf("DeleteRecipe failed: %v", err)
	}
	if _, exists := rm.GetRecipe("to delete"); exists {
		t.Error("recipe should not exist after deletion")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected recipe file to be removed, got %v", err)
	}
	if err := rm.DeleteRecipe("to delete"); !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("expected ErrRecipeNotFound, got %v", err)
	}
}

func TestRecipeManagerPersistence(t *testing.T) {
	tempDir := t.TempDir()

	rm := NewRecipeManager(tempDir)
	if err := rm.SaveRecipe(encryptRecipe("persistent-recipe")); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}

	rm2 := NewRecipeManager(tempDir)
	if err := rm2.LoadRecipes(); err != nil {
		t.Fatalf("LoadRecipes failed: %v", err)
	}

	retrieved, exists := rm2.GetRecipe("persistent-recipe")
	if !exists {
		t.Fatal("recipe should exist after loading from disk")
	}
	if len(retrieved.Pipeline.Operations) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(retrieved.Pipeline.Operations))
	}

	out, err := retrieved.Pipeline.Execute(context.Background(), []byte("test\nmean\n"))
	if err != nil {
		t.Fatalf("loaded pipeline failed: %v", err)
	}
	if string(out) != "150710100c07020a" {
		t.Errorf("unexpected ciphertext %q", out)
	}
}

func TestLoadRecipesMissingDirectory(t *testing.T) {
	rm := NewRecipeManager(filepath.Join(t.TempDir(), "absent"))
	if err := rm.LoadRecipes(); err != nil {
		t.Fatalf("expected missing directory to be ignored, got %v", err)
	}
}

func TestRecipeYAMLExportImport(t *testing.T) {
	rm := NewRecipeManager("")
	if err := rm.SaveRecipe(encryptRecipe("shared")); err != nil {
		t.Fatalf("SaveRecipe failed: %v", err)
	}

	data, err := rm.ExportYAML("shared")
	if err != nil {
		t.Fatalf("ExportYAML failed: %v", err)
	}
	if !strings.Contains(string(data), "name: xor_encrypt") {
		t.Fatalf("expected YAML pipeline, got:\n%s", data)
	}

	other := NewRecipeManager(t.TempDir())
	imported, err := other.ImportYAML(data)
	if err != nil {
		t.Fatalf("ImportYAML failed: %v", err)
	}
	if imported.Name != "shared" || !imported.Pipeline.Reversible {
		t.Fatalf("unexpected imported recipe %+v", imported)
	}
	out, err := imported.Pipeline.Execute(context.Background(), []byte("test\n"))
	if err != nil {
		t.Fatalf("imported pipeline failed: %v", err)
	}
	if string(out) != "15071010" {
		t.Errorf("unexpected output %q", out)
	}

	if _, err := rm.ExportYAML("missing"); !errors.Is(err, ErrRecipeNotFound) {
		t.Errorf("expected ErrRecipeNotFound, got %v", err)
	}
	if _, err := other.ImportYAML([]byte("name: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestRecipeManagerSearch(t *testing.T) {
	rm := NewRecipeManager("")
	recipes := []*Recipe{
		{
			Name:        "hex-transport",
			Description: "Hex encode ciphertext",
			Tags:        []string{"transport"},
			Pipeline:    Pipeline{Operations: []OperationConfig{{Name: "hex_encode"}}},
		},
		{
			Name:        "recover-four",
			Description: "Recover a four byte key",
			Tags:        []string{"analysis"},
			Pipeline:    Pipeline{Operations: []OperationConfig{{Name: "xor_recover", Parameters: map[string]any{"key_length": 4}}}},
		},
		{
			Name:        "b64-transport",
			Description: "Base64 encode ciphertext",
			Tags:        []string{"transport"},
			Pipeline:    Pipeline{Operations: []OperationConfig{{Name: "base64_encode"}}},
		},
	}
	for _, recipe := range recipes {
		if err := rm.SaveRecipe(recipe); err != nil {
			t.Fatalf("SaveRecipe failed: %v", err)
		}
	}

	if results := rm.SearchRecipes("TRANSPORT"); len(results) != 2 {
		t.Errorf("expected 2 transport recipes, got %d", len(results))
	}
	if results := rm.SearchRecipes("four"); len(results) != 1 {
		t.Errorf("expected 1 recipe by name, got %d", len(results))
	}
	if results := rm.SearchRecipes("Base64"); len(results) != 1 {
		t.Errorf("expected 1 recipe by description, got %d", len(results))
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"my recipe":     "my_recipe",
		"../etc/passwd": "etcpasswd",
		"***":           "recipe",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
