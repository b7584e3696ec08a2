// Package normalize reduces free text to the restricted alphabet used by the
// XOR tooling and wraps it into fixed-width lines.
//
// The alphabet is the space character plus lowercase ASCII letters. Every
// line produced by this package has exactly the requested width; the last
// line is right-padded with spaces.
package normalize

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidWidth is returned when the requested line width is not positive.
var ErrInvalidWidth = errors.New("line width must be positive")

// Filter folds line breaks into spaces, drops every byte that is not an ASCII
// letter or a space and lowercases the letters that remain. A "\r\n" pair
// is a single line break.
func Filter(text string) string {
	var sb strings.Builder
	sb.Grow(len(text))
	for i := 0; i < len(text); i++ {
		ch := text[i]
		switch {
		case ch == '\r':
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			sb.WriteByte(' ')
		case ch == '\n':
			sb.WriteByte(' ')
		case ch == ' ':
			sb.WriteByte(ch)
		case ch >= 'a' && ch <= 'z':
			sb.WriteByte(ch)
		case ch >= 'A' && ch <= 'Z':
			sb.WriteByte(ch + ('a' - 'A'))
		}
	}
	return sb.String()
}

// Lines filters text and splits it into consecutive chunks of width bytes.
// Empty input yields an empty slice.
func Lines(text string, width int) ([]string, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}
	filtered := Filter(text)
	lines := make([]string, 0, (len(filtered)+width-1)/width)
	for start := 0; start < len(filtered); start += width {
		end := start + width
		if end > len(filtered) {
			chunk := filtered[start:]
			lines = append(lines, chunk+strings.Repeat(" ", width-len(chunk)))
			break
		}
		lines = append(lines, filtered[start:end])
	}
	return lines, nil
}

// Text renders normalized lines the way they are stored on disk: every line
// followed by a newline.
func Text(text string, width int) (string, error) {
	lines, err := Lines(text, width)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	sb.Grow(len(lines) * (width + 1))
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}

// ParseLines splits a rendered plaintext file back into its lines. Both LF and
// CRLF endings are accepted and a trailing newline does not produce an extra
// empty line.
func ParseLines(data string) []string {
	if data == "" {
		return nil
	}
	data = strings.TrimSuffix(data, "\n")
	data = strings.TrimSuffix(data, "\r")
	parts := strings.Split(data, "\n")
	for i, part := range parts {
		parts[i] = strings.TrimSuffix(part, "\r")
	}
	return parts
}

// Valid reports whether every byte of line belongs to the restricted alphabet.
func Valid(line string) bool {
	for i := 0; i < len(line); i++ {
		ch := line[i]
		if ch != ' ' && (ch < 'a' || ch > 'z') {
			return false
		}
	}
	return true
}
