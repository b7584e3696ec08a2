package history

import (
	"context"
	"errors"
	"testing"

	"github.com/RowanDark/xorgen/internal/logging"
	"github.com/RowanDark/xorgen/internal/recovery"
)

func TestSearch(t *testing.T) {
	store := openTestStore(t, logging.Discard())
	ctx := context.Background()

	full, err := store.Save(ctx, sampleRecord(t))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	res, err := recovery.Recover([]byte{21, 7, 16, 16, 12, 7, 2, 10, 65, 66}, 4)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	partial, err := store.Save(ctx, NewRecord(res, "api"))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{partial.ID, full.ID}},
		{"source:cli", []string{full.ID}},
		{"source:API", []string{partial.ID}},
		{"complete:false", []string{partial.ID}},
		{"key:ab keylen:4", []string{partial.ID, full.ID}},
		{"text:MEAN", []string{full.ID}},
		{"keylen:5", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := store.Search(ctx, tt.query, 0)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d results, got %d", len(tt.want), len(got))
			}
			for i, rec := range got {
				if rec.ID != tt.want[i] {
					t.Fatalf("result %d: expected %s, got %s", i, tt.want[i], rec.ID)
				}
			}
		})
	}

	if got, err := store.Search(ctx, "", 1); err != nil || len(got) != 1 {
		t.Fatalf("expected limit to apply, got %d results (%v)", len(got), err)
	}
}

func TestSearchInvalidQuery(t *testing.T) {
	store := openTestStore(t, logging.Discard())
	for _, query := range []string{"mean", "host:example.com", "keylen:four", "complete:maybe", "source:"} {
		if _, err := store.Search(context.Background(), query, 0); !errors.Is(err, ErrInvalidQuery) {
			t.Errorf("expected %q to be rejected", query)
		}
	}
}
