package recovery

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidKeyLength is returned when the key length is not positive.
var ErrInvalidKeyLength = errors.New("key length must be positive")

// DefaultPlaceholder fills plaintext positions whose key byte is unknown.
const DefaultPlaceholder byte = '_'

const (
	spaceCode  byte = 32
	letterBand byte = 64
)

// Class is the structural classification of a key column.
type Class int

const (
	ClassUniform Class = iota
	ClassMixed
)

func (c Class) String() string {
	switch c {
	case ClassMixed:
		return "mixed"
	case ClassUniform:
		return "uniform"
	default:
		return fmt.Sprintf("class(%d)", int(c))
	}
}

func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Class) UnmarshalText(text []byte) error {
	switch string(text) {
	case "mixed":
		*c = ClassMixed
	case "uniform":
		*c = ClassUniform
	default:
		return fmt.Errorf("unknown column class %q", text)
	}
	return nil
}

// KeyByte is one recovered key position. Value is meaningful only when
// Known is true.
type KeyByte struct {
	Value byte `json:"value"`
	Known bool `json:"known"`
}

// Known returns a resolved key byte.
func Known(v byte) KeyByte {
	return KeyByte{Value: v, Known: true}
}

// Unknown is the unresolved key byte.
var Unknown = KeyByte{}

// Key is a recovered key, one entry per column.
type Key []KeyByte

// Render returns the key with unknown positions replaced by placeholder.
func (k Key) Render(placeholder byte) string {
	out := make([]byte, len(k))
	for i, kb := range k {
		if kb.Known {
			out[i] = kb.Value
		} else {
			out[i] = placeholder
		}
	}
	return string(out)
}

// Bytes returns the key as raw bytes when every position is known.
func (k Key) Bytes() ([]byte, bool) {
	out := make([]byte, len(k))
	for i, kb := range k {
		if !kb.Known {
			return nil, false
		}
		out[i] = kb.Value
	}
	return out, true
}

// Column holds the diagnostics for one analysed key position.
type Column struct {
	Index     int     `json:"index"`
	Class     Class   `json:"class"`
	Rows      int     `json:"rows"`
	Key       KeyByte `json:"key"`
	Reasoning string  `json:"reasoning"`
}

// Result is the immutable output of a recovery run.
type Result struct {
	KeyLength   int      `json:"key_length"`
	Key         Key      `json:"key"`
	Columns     []Column `json:"columns"`
	Plaintext   []byte   `json:"-"`
	Lines       []string `json:"lines"`
	Placeholder byte     `json:"placeholder"`
}

// Resolved returns the number of columns with a known key byte.
func (r *Result) Resolved() int {
	n := 0
	for _, kb := range r.Key {
		if kb.Known {
			n++
		}
	}
	return n
}

// Unresolved returns the number of columns whose key byte is unknown.
func (r *Result) Unresolved() int {
	return len(r.Key) - r.Resolved()
}

// KeyString renders the key with the run's placeholder.
func (r *Result) KeyString() string {
	return r.Key.Render(r.Placeholder)
}

// Text joins the plaintext lines with "\n", without a trailing newline.
func (r *Result) Text() string {
	return strings.Join(r.Lines, "\n")
}
