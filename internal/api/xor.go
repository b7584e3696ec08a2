package api

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/RowanDark/xorgen/internal/block"
	"github.com/RowanDark/xorgen/internal/cipher"
	"github.com/RowanDark/xorgen/internal/history"
	"github.com/RowanDark/xorgen/internal/logging"
	"github.com/RowanDark/xorgen/internal/normalize"
	"github.com/RowanDark/xorgen/internal/observability/metrics"
	"github.com/RowanDark/xorgen/internal/recovery"
)

// NormalizeRequest asks for text to be filtered and wrapped into lines.
type NormalizeRequest struct {
	Text  string `json:"text"`
	Width int    `json:"width"`
}

// LinesResponse carries fixed-width plaintext lines.
type LinesResponse struct {
	Lines []string `json:"lines"`
}

// EncryptRequest encrypts normalized lines with a repeating key.
type EncryptRequest struct {
	Key   string   `json:"key"`
	Lines []string `json:"lines"`
}

// EncryptResponse carries the ciphertext hex encoded.
type EncryptResponse struct {
	CiphertextHex string `json:"ciphertext_hex"`
	Length        int    `json:"length"`
}

// DecryptRequest decrypts ciphertext with a known key. Encoding defaults to hex.
type DecryptRequest struct {
	Key        string `json:"key"`
	Ciphertext string `json:"ciphertext"`
	Encoding   string `json:"encoding,omitempty"`
}

// RecoverRequest recovers the key and plaintext of ciphertext given only the
// key length. Encoding defaults to hex.
type RecoverRequest struct {
	Ciphertext  string `json:"ciphertext"`
	Encoding    string `json:"encoding,omitempty"`
	KeyLength   int    `json:"key_length"`
	Placeholder string `json:"placeholder,omitempty"`
	Save        bool   `json:"save,omitempty"`
}

// RecoverResponse reports the recovered key, per-column diagnostics and the
// recovered plaintext. Key and Plaintext are rendered as JSON strings, which
// replaces bytes that are not valid UTF-8; KeyHex and PlaintextHex carry the
// exact bytes.
type RecoverResponse struct {
	Key          string                 `json:"key"`
	KeyHex       string                 `json:"key_hex"`
	KeyKnown     []bool                 `json:"key_known"`
	KeyLength    int                    `json:"key_length"`
	Resolved     int                    `json:"resolved"`
	Unresolved   int                    `json:"unresolved"`
	Columns      []recovery.Column      `json:"columns"`
	Plaintext    string                 `json:"plaintext"`
	PlaintextHex string                 `json:"plaintext_hex"`
	Lines        []string               `json:"lines"`
	Detection    cipher.DetectionResult `json:"detection"`
	ID           string                 `json:"id,omitempty"`
}

func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req NormalizeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	lines, err := normalize.Lines(req.Text, req.Width)
	metrics.RecordOperation("normalize", err)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	_ = s.logger.Emit(logging.AuditEvent{
		EventType: logging.EventNormalize,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"width": req.Width, "lines": len(lines)},
	})
	s.writeJSON(w, http.StatusOK, LinesResponse{Lines: lines})
}

func (s *Server) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req EncryptRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	ciphertext, err := block.Encrypt([]byte(req.Key), req.Lines)
	metrics.RecordOperation("xor_encrypt", err)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	_ = s.logger.Emit(logging.AuditEvent{
		EventType: logging.EventEncrypt,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"key_length": len(req.Key), "lines": len(req.Lines)},
	})
	s.writeJSON(w, http.StatusOK, EncryptResponse{
		CiphertextHex: hex.EncodeToString(ciphertext),
		Length:        len(ciphertext),
	})
}

func (s *Server) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req DecryptRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	ciphertext, _, err := s.decodeCiphertext(r, req.Ciphertext, req.Encoding)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	lines, err := block.Decrypt([]byte(req.Key), ciphertext)
	metrics.RecordOperation("xor_decrypt", err)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	_ = s.logger.Emit(logging.AuditEvent{
		EventType: logging.EventDecrypt,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"key_length": len(req.Key), "ciphertext_length": len(ciphertext)},
	})
	s.writeJSON(w, http.StatusOK, LinesResponse{Lines: lines})
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req RecoverRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.KeyLength < 1 {
		s.writeError(w, http.StatusBadRequest, recovery.ErrInvalidKeyLength)
		return
	}
	placeholder := s.placeholder
	if req.Placeholder != "" {
		if len(req.Placeholder) != 1 {
			s.writeError(w, http.StatusBadRequest, errors.New("placeholder must be a single byte"))
			return
		}
		placeholder = req.Placeholder[0]
	}
	if req.Save && s.history == nil {
		s.writeError(w, http.StatusBadRequest, errors.New("history store is not configured"))
		return
	}
	ciphertext, detection, err := s.decodeCiphertext(r, req.Ciphertext, req.Encoding)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	ctx := r.Context()
	engine := recovery.New(
		recovery.WithPlaceholder(placeholder),
		recovery.WithWorkers(s.workers),
		recovery.WithLogger(s.logger.WithComponent("recovery")),
	)
	res, err := engine.Recover(ctx, ciphertext, req.KeyLength)
	metrics.RecordOperation("xor_recover", err)
	if err != nil {
		if writeContextError(ctx, w) {
			return
		}
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp := RecoverResponse{
		Key:          res.KeyString(),
		KeyHex:       hex.EncodeToString([]byte(res.KeyString())),
		KeyKnown:     make([]bool, len(res.Key)),
		KeyLength:    res.KeyLength,
		Resolved:     res.Resolved(),
		Unresolved:   res.Unresolved(),
		Columns:      res.Columns,
		Plaintext:    res.Text(),
		PlaintextHex: hex.EncodeToString(res.Plaintext),
		Lines:        res.Lines,
		Detection:    detection,
	}
	for i, kb := range res.Key {
		resp.KeyKnown[i] = kb.Known
	}
	if req.Save {
		rec, err := s.history.Save(ctx, history.NewRecord(res, "api"))
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		resp.ID = rec.ID
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decodeCiphertext(r *http.Request, input, encoding string) ([]byte, cipher.DetectionResult, error) {
	if encoding == "" {
		encoding = cipher.EncodingHex
	}
	out, det, err := cipher.DecodeCiphertext(r.Context(), []byte(input), encoding)
	if err != nil {
		return nil, det, fmt.Errorf("decode ciphertext: %w", err)
	}
	return out, det, nil
}
