// Package block implements the fixed-width repeating-key XOR cipher.
//
// Each plaintext line is exactly as wide as the key and is XORed column by
// column against it. Ciphertext is the concatenation of the encrypted lines
// without separators, so block boundaries are only recoverable from the key
// length.
package block

import (
	"crypto/rand"
	"errors"
	"fmt"
)

var (
	// ErrEmptyKey is returned when a zero-length key is supplied.
	ErrEmptyKey = errors.New("key cannot be empty")
	// ErrLineWidth is returned when a plaintext line does not match the key length.
	ErrLineWidth = errors.New("line width does not match key length")
)

// LineError reports the plaintext line that violated the width contract.
type LineError struct {
	Line  int
	Width int
	Want  int
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d has width %d, expected %d", e.Line, e.Width, e.Want)
}

func (e *LineError) Unwrap() error {
	return ErrLineWidth
}

// ValidateKey checks that key can be used for encryption.
func ValidateKey(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}
	return nil
}

// Encrypt XORs every line against key and concatenates the results. Every
// line must be exactly len(key) bytes wide; lines are never re-padded here.
func Encrypt(key []byte, lines []string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	width := len(key)
	for i, line := range lines {
		if len(line) != width {
			return nil, &LineError{Line: i, Width: len(line), Want: width}
		}
	}

	out := make([]byte, 0, width*len(lines))
	for _, line := range lines {
		for col := 0; col < width; col++ {
			out = append(out, line[col]^key[col])
		}
	}
	return out, nil
}

// Decrypt reverses Encrypt. A trailing short block is decrypted for the
// columns it covers.
func Decrypt(key []byte, ciphertext []byte) ([]string, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	plain := XOR(key, ciphertext)
	width := len(key)
	lines := make([]string, 0, (len(plain)+width-1)/width)
	for start := 0; start < len(plain); start += width {
		end := start + width
		if end > len(plain) {
			end = len(plain)
		}
		lines = append(lines, string(plain[start:end]))
	}
	return lines, nil
}

// XOR applies key cyclically to data and returns a new slice.
func XOR(key, data []byte) []byte {
	out := make([]byte, len(data))
	if len(key) == 0 {
		copy(out, data)
		return out
	}
	for i, b := range data {
		out[i] = b ^ key[i%len(key)]
	}
	return out
}

// GenerateKey returns a random key of lowercase ASCII letters.
func GenerateKey(length int) ([]byte, error) {
	if length <= 0 {
		return nil, fmt.Errorf("key length must be positive, got %d", length)
	}
	const pool = "abcdefghijklmnopqrstuvwxyz"
	key := make([]byte, length)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	for i := range key {
		key[i] = pool[int(key[i])%len(pool)]
	}
	return key, nil
}
