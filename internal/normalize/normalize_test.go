package normalize

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases letters", "Hello World", "hello world"},
		{"folds line breaks", "one\ntwo\r\nthree", "one two three"},
		{"folds crlf and lone cr", "one\r\ntwo\rthree", "one two three"},
		{"keeps blank lines", "one\r\n\r\ntwo", "one  two"},
		{"drops punctuation and digits", "It's 42, ok!", "its  ok"},
		{"drops tabs", "a\tb", "ab"},
		{"drops non ascii", "café naïve", "caf nave"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Filter(tt.input); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestLines(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected []string
	}{
		{"exact multiple", "testmean", 4, []string{"test", "mean"}},
		{"pads final line", "Hello, World!", 4, []string{"hell", "o wo", "rld "}},
		{"single short line", "ab", 5, []string{"ab   "}},
		{"line breaks become spaces", "ab\ncd", 5, []string{"ab cd"}},
		{"crlf keeps chunk boundaries", "Test\r\nmean!", 4, []string{"test", " mea", "n   "}},
		{"empty input", "", 3, []string{}},
		{"only dropped characters", "123!?", 3, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines, err := Lines(tt.input, tt.width)
			if err != nil {
				t.Fatalf("Lines failed: %v", err)
			}
			if !reflect.DeepEqual(lines, tt.expected) {
				t.Errorf("expected %q, got %q", tt.expected, lines)
			}
		})
	}
}

func TestLinesInvalidWidth(t *testing.T) {
	for _, width := range []int{0, -3} {
		if _, err := Lines("abc", width); !errors.Is(err, ErrInvalidWidth) {
			t.Errorf("width %d: expected ErrInvalidWidth, got %v", width, err)
		}
	}
}

func TestLinesAlphabetInvariant(t *testing.T) {
	input := "The Quick Brown Fox\nJumps over the LAZY dog; 1234 æøå \t~!"
	for width := 1; width <= 17; width++ {
		lines, err := Lines(input, width)
		if err != nil {
			t.Fatalf("width %d: %v", width, err)
		}
		for i, line := range lines {
			if len(line) != width {
				t.Fatalf("width %d: line %d has length %d", width, i, len(line))
			}
			if !Valid(line) {
				t.Fatalf("width %d: line %d contains bytes outside the alphabet: %q", width, i, line)
			}
		}
	}
}

func TestTextAndParseLinesRoundTrip(t *testing.T) {
	rendered, err := Text("abcdefg", 3)
	if err != nil {
		t.Fatalf("Text failed: %v", err)
	}
	if rendered != "abc\ndef\ng  \n" {
		t.Fatalf("unexpected rendering %q", rendered)
	}

	lines := ParseLines(rendered)
	if !reflect.DeepEqual(lines, []string{"abc", "def", "g  "}) {
		t.Fatalf("unexpected lines %q", lines)
	}

	crlf := strings.ReplaceAll(rendered, "\n", "\r\n")
	if got := ParseLines(crlf); !reflect.DeepEqual(got, lines) {
		t.Fatalf("CRLF parse mismatch: %q", got)
	}
}

func TestParseLinesEmpty(t *testing.T) {
	if lines := ParseLines(""); len(lines) != 0 {
		t.Fatalf("expected no lines, got %q", lines)
	}
}
