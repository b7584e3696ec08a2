package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/RowanDark/xorgen/internal/cipher"
)

func runRecipe(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "recipe subcommand required")
		return 2
	}
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	rm := cipher.NewRecipeManager(cfg.RecipesPath())
	if err := rm.LoadRecipes(); err != nil {
		fmt.Fprintf(os.Stderr, "load recipes: %v\n", err)
		return 1
	}

	switch args[0] {
	case "list":
		return runRecipeList(rm, args[1:])
	case "save":
		return runRecipeSave(rm, args[1:])
	case "show":
		return runRecipeShow(rm, args[1:])
	case "delete":
		return runRecipeDelete(rm, args[1:])
	case "export":
		return runRecipeExport(rm, args[1:])
	case "import":
		return runRecipeImport(rm, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown recipe subcommand: %s\n", args[0])
		return 2
	}
}

func runRecipeList(rm *cipher.RecipeManager, args []string) int {
	fs := flag.NewFlagSet("recipe list", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	query := fs.String("search", "", "only list recipes matching this text")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	recipes := rm.ListRecipes()
	if *query != "" {
		recipes = rm.SearchRecipes(*query)
	}
	for _, recipe := range recipes {
		fmt.Printf("%s\t%d ops\t%s\n", recipe.Name, len(recipe.Pipeline.Operations), recipe.Description)
	}
	return 0
}

func runRecipeSave(rm *cipher.RecipeManager, args []string) int {
	fs := flag.NewFlagSet("recipe save", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	name := fs.String("name", "", "recipe name")
	description := fs.String("description", "", "recipe description")
	tags := fs.String("tags", "", "comma separated tags")
	ops := fs.String("ops", "", "comma separated operation names")
	reversible := fs.Bool("reversible", false, "allow the recipe to be run in reverse")
	var params stringList
	fs.Var(&params, "param", "operation parameter as key=value (repeatable)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	pipeline, err := buildPipeline(*ops, params, *reversible)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	recipe := &cipher.Recipe{
		Name:        *name,
		Description: *description,
		Tags:        splitList(*tags),
		Pipeline:    *pipeline,
	}
	if err := rm.SaveRecipe(recipe); err != nil {
		fmt.Fprintf(os.Stderr, "save recipe: %v\n", err)
		return 1
	}
	fmt.Printf("saved recipe %s\n", recipe.Name)
	return 0
}

func recipeNameArg(cmd string, args []string) (string, bool) {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintf(os.Stderr, "recipe %s requires exactly one recipe name\n", cmd)
		return "", false
	}
	return args[0], true
}

func runRecipeShow(rm *cipher.RecipeManager, args []string) int {
	name, ok := recipeNameArg("show", args)
	if !ok {
		return 2
	}
	recipe, exists := rm.GetRecipe(name)
	if !exists {
		fmt.Fprintf(os.Stderr, "recipe %q not found\n", name)
		return 1
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(recipe); err != nil {
		fmt.Fprintf(os.Stderr, "encode recipe: %v\n", err)
		return 1
	}
	return 0
}

func runRecipeDelete(rm *cipher.RecipeManager, args []string) int {
	name, ok := recipeNameArg("delete", args)
	if !ok {
		return 2
	}
	if err := rm.DeleteRecipe(name); err != nil {
		fmt.Fprintf(os.Stderr, "delete recipe: %v\n", err)
		return 1
	}
	return 0
}

func runRecipeExport(rm *cipher.RecipeManager, args []string) int {
	fs := flag.NewFlagSet("recipe export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	out := fs.String("out", stdioPath, "YAML output file ('-' for stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	name, ok := recipeNameArg("export", fs.Args())
	if !ok {
		return 2
	}
	data, err := rm.ExportYAML(name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "export recipe: %v\n", err)
		return 1
	}
	if err := writeOutput(*out, data, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

func runRecipeImport(rm *cipher.RecipeManager, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "recipe import requires exactly one YAML file ('-' for stdin)")
		return 2
	}
	data, err := readInput(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read recipe: %v\n", err)
		return 1
	}
	recipe, err := rm.ImportYAML(data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "import recipe: %v\n", err)
		return 1
	}
	fmt.Printf("imported recipe %s\n", recipe.Name)
	return 0
}
