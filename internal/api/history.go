package api

import (
	"errors"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/RowanDark/xorgen/internal/history"
)

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := history.DefaultListLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}
	var (
		records []history.Record
		err     error
	)
	if query := strings.TrimSpace(r.URL.Query().Get("q")); query != "" {
		records, err = s.history.Search(r.Context(), query, limit)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, history.ErrInvalidQuery) {
				status = http.StatusBadRequest
			}
			s.writeError(w, status, err)
			return
		}
	} else {
		records, err = s.history.List(r.Context(), limit)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": records})
}

func (s *Server) handleHistoryByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(path.Clean(r.URL.Path), "/api/v1/history")
	id = strings.TrimPrefix(id, "/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, err := s.history.Get(r.Context(), id)
		if err != nil {
			s.writeHistoryError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, rec)
	case http.MethodDelete:
		if err := s.history.Delete(r.Context(), id); err != nil {
			s.writeHistoryError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) writeHistoryError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeError(w, http.StatusInternalServerError, err)
}
