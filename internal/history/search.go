package history

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidQuery is returned by Search for a malformed query.
var ErrInvalidQuery = errors.New("invalid history query")

type predicate func(*Record) bool

// Search returns up to limit runs matching rawQuery, newest first.
//
// The query language accepts whitespace-separated terms in the form key:value.
// Supported keys are source, key (substring of the recovered key), text
// (case-insensitive plaintext substring), keylen and complete (true when no
// key byte was left unknown). An empty query matches every run.
func (s *Store) Search(ctx context.Context, rawQuery string, limit int) ([]Record, error) {
	predicates, err := parseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, created_at, source, key_length, ciphertext_length,
               resolved, unresolved, recovered_key, plaintext, columns
        FROM runs ORDER BY id DESC
    `)
	if err != nil {
		return nil, fmt.Errorf("search runs: %w", err)
	}
	defer rows.Close()

	results := []Record{}
	for rows.Next() && len(results) < limit {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if matchAll(&rec, predicates) {
			results = append(results, rec)
		}
	}
	return results, rows.Err()
}

func matchAll(rec *Record, predicates []predicate) bool {
	for _, p := range predicates {
		if !p(rec) {
			return false
		}
	}
	return true
}

func parseQuery(input string) ([]predicate, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return nil, nil
	}
	tokens := strings.Fields(trimmed)
	predicates := make([]predicate, 0, len(tokens))
	for _, token := range tokens {
		key, value, ok := strings.Cut(token, ":")
		if !ok {
			return nil, fmt.Errorf("invalid query token %q (expected key:value)", token)
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if value == "" {
			return nil, fmt.Errorf("query term %q missing value", key)
		}
		switch key {
		case "source":
			source := strings.ToLower(value)
			predicates = append(predicates, func(rec *Record) bool {
				return strings.ToLower(rec.Source) == source
			})
		case "key":
			predicates = append(predicates, func(rec *Record) bool {
				return strings.Contains(rec.Key, value)
			})
		case "text":
			text := strings.ToLower(value)
			predicates = append(predicates, func(rec *Record) bool {
				return strings.Contains(strings.ToLower(rec.Plaintext), text)
			})
		case "keylen":
			n, err := strconv.Atoi(value)
			if err != nil {
				return nil, fmt.Errorf("invalid keylen %q", value)
			}
			predicates = append(predicates, func(rec *Record) bool {
				return rec.KeyLength == n
			})
		case "complete":
			want, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("invalid complete %q", value)
			}
			predicates = append(predicates, func(rec *Record) bool {
				return (rec.Unresolved == 0) == want
			})
		default:
			return nil, fmt.Errorf("unsupported query field %q", key)
		}
	}
	return predicates, nil
}
