package recovery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/RowanDark/xorgen/internal/block"
	"github.com/RowanDark/xorgen/internal/logging"
	"github.com/RowanDark/xorgen/internal/normalize"
)

const sampleText = `It was the best of times, it was the worst of times,
it was the age of wisdom, it was the age of foolishness,
it was the epoch of belief, it was the epoch of incredulity,
it was the season of Light, it was the season of Darkness.`

func encrypt(t *testing.T, key string, lines []string) []byte {
	t.Helper()
	ct, err := block.Encrypt([]byte(key), lines)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	return ct
}

func TestRecoverKnownScenario(t *testing.T) {
	ct := encrypt(t, "abcd", []string{"test", "mean", "    "})

	res, err := Recover(ct, 4)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if res.Columns[0].Class != ClassMixed {
		t.Fatalf("column 0: expected mixed, got %s", res.Columns[0].Class)
	}
	if res.Key[0] != Known('a') {
		t.Fatalf("column 0: expected key 'a', got %+v", res.Key[0])
	}
	if got := res.KeyString(); got != "abcd" {
		t.Errorf("expected key %q, got %q", "abcd", got)
	}
	if got := res.Text(); got != "test\nmean\n    " {
		t.Errorf("unexpected plaintext %q", got)
	}
	if res.Resolved() != 4 || res.Unresolved() != 0 {
		t.Errorf("expected 4 resolved columns, got %d/%d", res.Resolved(), res.Unresolved())
	}
	if len(res.Plaintext) != len(ct) {
		t.Errorf("plaintext length %d, want %d", len(res.Plaintext), len(ct))
	}
}

func TestRecoverColumnRules(t *testing.T) {
	tests := []struct {
		name       string
		ciphertext []byte
		keyLen     int
		class      Class
		key        KeyByte
		text       string
	}{
		{"mixed with letter band byte", []byte{21, 12, 65}, 1, ClassMixed, Known('a'), "t\nm\n "},
		{"mixed without letter band byte", []byte{5, 40, 63}, 1, ClassMixed, Unknown, "_\n_\n_"},
		{"uniform identical rows", []byte{65, 65, 65}, 1, ClassUniform, Unknown, "_\n_\n_"},
		{"uniform differing rows", []byte{'A', 'F'}, 1, ClassUniform, Known(32), "a\nf"},
		{"zero bytes are not mixed", []byte{0, 0}, 1, ClassUniform, Unknown, "_\n_"},
		{"single row", []byte{65}, 1, ClassUniform, Unknown, "_"},
		{"first letter band row wins", []byte{1, 70, 65}, 1, ClassMixed, Known(70 ^ 32), "g\n \n'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Recover(tt.ciphertext, tt.keyLen)
			if err != nil {
				t.Fatalf("recover failed: %v", err)
			}
			col := res.Columns[0]
			if col.Class != tt.class {
				t.Errorf("class: expected %s, got %s", tt.class, col.Class)
			}
			if col.Key != tt.key {
				t.Errorf("key: expected %+v, got %+v", tt.key, col.Key)
			}
			if col.Rows != len(tt.ciphertext) {
				t.Errorf("rows: expected %d, got %d", len(tt.ciphertext), col.Rows)
			}
			if col.Reasoning == "" {
				t.Error("expected reasoning to be set")
			}
			if got := res.Text(); got != tt.text {
				t.Errorf("text: expected %q, got %q", tt.text, got)
			}
		})
	}
}

func TestRecoverUniformPlaintextIsUnknown(t *testing.T) {
	ct := encrypt(t, "abcd", []string{"    ", "    ", "    "})

	res, err := Recover(ct, 4)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	for i, kb := range res.Key {
		if kb.Known {
			t.Errorf("column %d: expected unknown key byte, got %+v", i, kb)
		}
	}
	if got := res.Text(); got != "____\n____\n____" {
		t.Errorf("unexpected plaintext %q", got)
	}
	if got := res.KeyString(); got != "____" {
		t.Errorf("unexpected key %q", got)
	}
}

func TestRecoverPartialTrailingBlock(t *testing.T) {
	ct := encrypt(t, "abcd", []string{"test", "mean", "    "})

	res, err := Recover(ct[:10], 4)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	wantRows := []int{3, 3, 2, 2}
	for i, col := range res.Columns {
		if col.Rows != wantRows[i] {
			t.Errorf("column %d: expected %d rows, got %d", i, wantRows[i], col.Rows)
		}
	}
	if got := res.KeyString(); got != "ab__" {
		t.Errorf("expected key %q, got %q", "ab__", got)
	}
	want := []string{"te__", "me__", "  "}
	if !reflect.DeepEqual(res.Lines, want) {
		t.Errorf("expected lines %q, got %q", want, res.Lines)
	}
}

func TestRecoverNormalizedText(t *testing.T) {
	key := "secretkey"
	lines, err := normalize.Lines(sampleText, len(key))
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	ct := encrypt(t, key, lines)

	res, err := Recover(ct, len(key))
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	for i := range key {
		hasSpace, hasOtherLetter := false, false
		for _, line := range lines {
			switch c := line[i]; {
			case c == ' ':
				hasSpace = true
			case c != key[i]:
				hasOtherLetter = true
			}
		}
		if !hasSpace || !hasOtherLetter {
			continue
		}
		if res.Key[i] != Known(key[i]) {
			t.Errorf("column %d: expected %q, got %+v", i, key[i], res.Key[i])
		}
	}
	if got, ok := res.Key.Bytes(); !ok || string(got) != key {
		t.Fatalf("expected full key %q, got %q (complete=%v)", key, got, ok)
	}
	if got := res.Text(); got != strings.Join(lines, "\n") {
		t.Errorf("plaintext mismatch:\n got %q\nwant %q", got, strings.Join(lines, "\n"))
	}
}

func TestRecoverIsDeterministic(t *testing.T) {
	lines, err := normalize.Lines(sampleText, 7)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	ct := encrypt(t, "qwertyu", lines)

	first, err := Recover(ct, 7)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	second, err := Recover(ct, 7)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if !bytes.Equal(first.Plaintext, second.Plaintext) {
		t.Fatal("expected byte-identical plaintext across runs")
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("expected identical results across runs")
	}
}

func TestRecoverParallelMatchesSequential(t *testing.T) {
	lines, err := normalize.Lines(sampleText, 11)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	ct := encrypt(t, "hiddenwords", lines)

	seq, err := New().Recover(context.Background(), ct, 11)
	if err != nil {
		t.Fatalf("sequential recover failed: %v", err)
	}
	par, err := New(WithWorkers(4)).Recover(context.Background(), ct, 11)
	if err != nil {
		t.Fatalf("parallel recover failed: %v", err)
	}
	if !reflect.DeepEqual(seq, par) {
		t.Fatalf("parallel result differs from sequential result")
	}
}

func TestRecoverInvalidKeyLength(t *testing.T) {
	for _, n := range []int{0, -3} {
		if _, err := Recover([]byte("abc"), n); !errors.Is(err, ErrInvalidKeyLength) {
			t.Errorf("key length %d: expected ErrInvalidKeyLength, got %v", n, err)
		}
	}
}

func TestRecoverEmptyCiphertext(t *testing.T) {
	res, err := Recover(nil, 3)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if len(res.Key) != 3 || res.Resolved() != 0 {
		t.Fatalf("expected three unknown key bytes, got %+v", res.Key)
	}
	if res.Text() != "" || len(res.Lines) != 0 {
		t.Fatalf("expected empty plaintext, got %q", res.Text())
	}
}

func TestRecoverHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, workers := range []int{1, 3} {
		_, err := New(WithWorkers(workers)).Recover(ctx, []byte("abcdef"), 3)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("workers=%d: expected context.Canceled, got %v", workers, err)
		}
	}
}

func TestRecoverCustomPlaceholder(t *testing.T) {
	res, err := New(WithPlaceholder('?')).Recover(context.Background(), []byte{65, 65}, 1)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	if res.Text() != "?\n?" || res.KeyString() != "?" {
		t.Fatalf("unexpected output %q key %q", res.Text(), res.KeyString())
	}
}

func TestRecoverEmitsAuditEvents(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := logging.NewAuditLogger("recovery", logging.WithoutStdout(), logging.WithWriter(buf))
	if err != nil {
		t.Fatalf("NewAuditLogger: %v", err)
	}
	ct := encrypt(t, "abcd", []string{"test", "mean", "    "})

	if _, err := New(WithLogger(logger)).Recover(context.Background(), ct[:10], 4); err != nil {
		t.Fatalf("recover failed: %v", err)
	}

	var types []logging.EventType
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var ev logging.AuditEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			t.Fatalf("decode event: %v", err)
		}
		types = append(types, ev.EventType)
	}
	want := []logging.EventType{logging.EventColumnUnresolved, logging.EventColumnUnresolved, logging.EventRecover}
	if !reflect.DeepEqual(types, want) {
		t.Fatalf("expected events %v, got %v", want, types)
	}
}

func TestResultJSON(t *testing.T) {
	res, err := Recover([]byte{21, 12, 65}, 1)
	if err != nil {
		t.Fatalf("recover failed: %v", err)
	}
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"class":"mixed"`) {
		t.Fatalf("expected class to marshal as text, got %s", data)
	}
}
