package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/RowanDark/xorgen/internal/cipher"
)

// CipherOperationRequest represents a request to execute a cipher operation.
// Input is decoded with InputEncoding (raw by default) and the output is
// rendered with OutputEncoding (raw by default).
type CipherOperationRequest struct {
	Operation      string         `json:"operation"`
	Input          string         `json:"input"`
	InputEncoding  string         `json:"input_encoding,omitempty"`
	OutputEncoding string         `json:"output_encoding,omitempty"`
	Params         map[string]any `json:"params,omitempty"`
}

// CipherOperationResponse represents the result of a cipher operation
type CipherOperationResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// CipherPipelineRequest represents a request to execute a pipeline of operations
type CipherPipelineRequest struct {
	Input          string                   `json:"input"`
	InputEncoding  string                   `json:"input_encoding,omitempty"`
	OutputEncoding string                   `json:"output_encoding,omitempty"`
	Operations     []cipher.OperationConfig `json:"operations"`
	Reverse        bool                     `json:"reverse,omitempty"`
}

// CipherPipelineResponse represents the result of a pipeline execution
type CipherPipelineResponse struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// CipherDetectRequest represents a request to detect the transport encoding
type CipherDetectRequest struct {
	Input string `json:"input"`
}

// CipherDetectResponse represents the detection result
type CipherDetectResponse struct {
	Detections []cipher.DetectionResult `json:"detections"`
}

// RecipeSaveRequest represents a request to save a recipe
type RecipeSaveRequest struct {
	Name        string                   `json:"name"`
	Description string                   `json:"description"`
	Tags        []string                 `json:"tags,omitempty"`
	Operations  []cipher.OperationConfig `json:"operations"`
	Reversible  bool                     `json:"reversible,omitempty"`
}

// RecipeListResponse represents the list of recipes
type RecipeListResponse struct {
	Recipes []cipher.Recipe `json:"recipes"`
}

// RecipeExportResponse represents an exported recipe
type RecipeExportResponse struct {
	Recipe cipher.Recipe `json:"recipe"`
}

// OperationInfo describes a registered operation.
type OperationInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Reversible  bool   `json:"reversible"`
}

// encodeOutput renders operation output for a JSON response.
func encodeOutput(r *http.Request, out []byte, encoding string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", cipher.EncodingRaw:
		return string(out), nil
	case cipher.EncodingHex:
		enc, err := cipher.Run(r.Context(), "hex_encode", out, nil)
		return string(enc), err
	case cipher.EncodingBase64:
		enc, err := cipher.Run(r.Context(), "base64_encode", out, nil)
		return string(enc), err
	default:
		return "", fmt.Errorf("unsupported output encoding %q", encoding)
	}
}

// handleCipherExecute handles execution of a single cipher operation
func (s *Server) handleCipherExecute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CipherOperationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Operation == "" {
		http.Error(w, "operation field is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	input, _, err := cipher.DecodeCiphertext(ctx, []byte(req.Input), req.InputEncoding)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, CipherOperationResponse{Error: err.Error()})
		return
	}
	result, err := cipher.Run(ctx, req.Operation, input, req.Params)
	if err != nil {
		if writeContextError(ctx, w) {
			return
		}
		status := http.StatusUnprocessableEntity
		if errors.Is(err, cipher.ErrUnknownOperation) {
			status = http.StatusBadRequest
		}
		s.writeJSON(w, status, CipherOperationResponse{Error: err.Error()})
		return
	}

	output, err := encodeOutput(r, result, req.OutputEncoding)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, CipherOperationResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, CipherOperationResponse{Output: output})
}

// handleCipherPipeline handles execution of a pipeline of operations
func (s *Server) handleCipherPipeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CipherPipelineRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.Operations) == 0 {
		http.Error(w, "operations field is required and must not be empty", http.StatusBadRequest)
		return
	}

	pipeline := &cipher.Pipeline{Operations: req.Operations, Reversible: req.Reverse}
	if req.Reverse {
		reversed, err := pipeline.Reverse()
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, CipherPipelineResponse{Error: err.Error()})
			return
		}
		pipeline = reversed
	}

	ctx := r.Context()
	input, _, err := cipher.DecodeCiphertext(ctx, []byte(req.Input), req.InputEncoding)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, CipherPipelineResponse{Error: err.Error()})
		return
	}
	result, err := pipeline.Execute(ctx, input)
	if err != nil {
		if writeContextError(ctx, w) {
			return
		}
		s.writeJSON(w, http.StatusUnprocessableEntity, CipherPipelineResponse{Error: err.Error()})
		return
	}

	output, err := encodeOutput(r, result, req.OutputEncoding)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, CipherPipelineResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, CipherPipelineResponse{Output: output})
}

// handleCipherDetect reports the likely transport encodings of ciphertext
func (s *Server) handleCipherDetect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CipherDetectRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Input == "" {
		http.Error(w, "input field is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	detections, err := cipher.NewSmartDetector().Detect(ctx, []byte(req.Input))
	if err != nil {
		if writeContextError(ctx, w) {
			return
		}
		s.writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":      err.Error(),
			"detections": []cipher.DetectionResult{},
		})
		return
	}
	s.writeJSON(w, http.StatusOK, CipherDetectResponse{Detections: detections})
}

// handleCipherListOperations handles listing all available operations
func (s *Server) handleCipherListOperations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	operations := cipher.ListOperations()
	if raw := r.URL.Query().Get("type"); raw != "" {
		opType, err := cipher.ParseOperationType(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		operations = cipher.ListOperationsByType(opType)
	}
	opList := make([]OperationInfo, 0, len(operations))
	for _, op := range operations {
		_, reversible := op.Reverse()
		opList = append(opList, OperationInfo{
			Name:        op.Name(),
			Type:        string(op.Type()),
			Description: op.Description(),
			Reversible:  reversible,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"operations": opList})
}

// handleRecipeSave handles saving a new recipe
func (s *Server) handleRecipeSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req RecipeSaveRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	recipe := &cipher.Recipe{
		Name:        req.Name,
		Description: req.Description,
		Tags:        req.Tags,
		Pipeline: cipher.Pipeline{
			Operations: req.Operations,
			Reversible: req.Reversible,
		},
	}
	if err := s.recipeManager.SaveRecipe(recipe); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// handleRecipeList handles listing all recipes
func (s *Server) handleRecipeList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	recipes := s.recipeManager.ListRecipes()
	recipeList := make([]cipher.Recipe, len(recipes))
	for i, recipe := range recipes {
		recipeList[i] = *recipe
	}
	s.writeJSON(w, http.StatusOK, RecipeListResponse{Recipes: recipeList})
}

// handleRecipeLoad handles loading a specific recipe
func (s *Server) handleRecipeLoad(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "recipe name required", http.StatusBadRequest)
		return
	}
	recipe, exists := s.recipeManager.GetRecipe(name)
	if !exists {
		http.Error(w, "recipe not found", http.StatusNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, RecipeExportResponse{Recipe: *recipe})
}

// handleRecipeDelete handles deleting a recipe
func (s *Server) handleRecipeDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		http.Error(w, "recipe name required", http.StatusBadRequest)
		return
	}
	if err := s.recipeManager.DeleteRecipe(name); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, cipher.ErrRecipeNotFound) {
			status = http.StatusNotFound
		}
		s.writeError(w, status, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
