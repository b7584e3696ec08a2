package api

import (
	"net/http"
	"testing"

	"github.com/RowanDark/xorgen/internal/history"
)

func TestHistoryEndpoints(t *testing.T) {
	ts := setupTestServer(t)

	var ids []string
	for i := 0; i < 3; i++ {
		rec := ts.do(t, http.MethodPost, "/api/v1/xor/recover", RecoverRequest{Ciphertext: scenarioHex, KeyLength: 4, Save: true})
		if rec.Code != http.StatusOK {
			t.Fatalf("recover failed: %d %s", rec.Code, rec.Body.String())
		}
		ids = append(ids, decodeBody[RecoverResponse](t, rec).ID)
	}

	rec := ts.do(t, http.MethodGet, "/api/v1/history?limit=2", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list failed: %d", rec.Code)
	}
	list := decodeBody[struct {
		Runs []history.Record `json:"runs"`
	}](t, rec)
	if len(list.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(list.Runs))
	}
	if list.Runs[0].ID != ids[2] {
		t.Fatalf("expected newest run first, got %s want %s", list.Runs[0].ID, ids[2])
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/history?q=source:api+keylen:4&limit=1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search failed: %d %s", rec.Code, rec.Body.String())
	}
	found := decodeBody[struct {
		Runs []history.Record `json:"runs"`
	}](t, rec)
	if len(found.Runs) != 1 || found.Runs[0].Source != "api" {
		t.Fatalf("unexpected search results %+v", found.Runs)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/history?q=bogus", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad query, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodGet, "/api/v1/history?limit=zero", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodDelete, "/api/v1/history/"+ids[0], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = ts.do(t, http.MethodGet, "/api/v1/history/"+ids[0], nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodDelete, "/api/v1/history/"+ids[0], nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", rec.Code)
	}
	rec = ts.do(t, http.MethodPut, "/api/v1/history/"+ids[1], nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
