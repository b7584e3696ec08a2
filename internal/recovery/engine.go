package recovery

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/RowanDark/xorgen/internal/logging"
	"github.com/RowanDark/xorgen/internal/observability/metrics"
)

// Engine runs key recovery. The zero value is not usable; construct with New.
type Engine struct {
	placeholder byte
	workers     int
	logger      *logging.AuditLogger
}

// Option configures an Engine.
type Option func(*Engine)

// WithPlaceholder sets the byte emitted for positions with an unknown key byte.
func WithPlaceholder(b byte) Option {
	return func(e *Engine) {
		e.placeholder = b
	}
}

// WithWorkers sets how many columns are analysed concurrently. Values below
// one analyse columns sequentially.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n < 1 {
			n = 1
		}
		e.workers = n
	}
}

// WithLogger routes recovery audit events to logger.
func WithLogger(logger *logging.AuditLogger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func New(opts ...Option) *Engine {
	e := &Engine{placeholder: DefaultPlaceholder, workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Recover is a convenience wrapper around a default Engine.
func Recover(ciphertext []byte, keyLen int) (*Result, error) {
	return New().Recover(context.Background(), ciphertext, keyLen)
}

// Recover reconstructs the key and plaintext of ciphertext for a key of
// keyLen bytes. Ambiguous columns are not errors; the only failures are an
// invalid key length and cancellation of ctx.
func (e *Engine) Recover(ctx context.Context, ciphertext []byte, keyLen int) (*Result, error) {
	if keyLen <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeyLength, keyLen)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()

	columns := make([]Column, keyLen)
	if err := e.analyse(ctx, ciphertext, columns); err != nil {
		return nil, err
	}

	key := make(Key, keyLen)
	for i, col := range columns {
		key[i] = col.Key
	}

	plain := make([]byte, len(ciphertext))
	for i, b := range ciphertext {
		kb := key[i%keyLen]
		if kb.Known {
			plain[i] = b ^ kb.Value
		} else {
			plain[i] = e.placeholder
		}
	}

	lines := make([]string, 0, (len(plain)+keyLen-1)/keyLen)
	for off := 0; off < len(plain); off += keyLen {
		end := min(off+keyLen, len(plain))
		lines = append(lines, string(plain[off:end]))
	}

	result := &Result{
		KeyLength:   keyLen,
		Key:         key,
		Columns:     columns,
		Plaintext:   plain,
		Lines:       lines,
		Placeholder: e.placeholder,
	}
	metrics.ObserveRecoveryDuration(time.Since(start))
	e.audit(result, len(ciphertext))
	return result, nil
}

func (e *Engine) analyse(ctx context.Context, ciphertext []byte, columns []Column) error {
	keyLen := len(columns)
	if e.workers <= 1 {
		for i := range columns {
			if err := ctx.Err(); err != nil {
				return err
			}
			columns[i] = analyseColumn(ciphertext, keyLen, i)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range columns {
		i := i // per-iteration copy; go directive is below 1.22
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			columns[i] = analyseColumn(ciphertext, keyLen, i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	// errgroup only reports errors from its goroutines; a cancellation that
	// lands after the last column started is still a cancelled run.
	return ctx.Err()
}

// analyseColumn classifies column idx and infers its key byte. Rows are
// visited in block order: both inference rules are first-match.
func analyseColumn(ciphertext []byte, keyLen, idx int) Column {
	col := Column{Index: idx, Class: ClassUniform}
	rows := make([]byte, 0, len(ciphertext)/keyLen+1)
	for off := idx; off < len(ciphertext); off += keyLen {
		b := ciphertext[off]
		rows = append(rows, b)
		if b > 0 && b < spaceCode {
			col.Class = ClassMixed
		}
	}
	col.Rows = len(rows)

	switch col.Class {
	case ClassMixed:
		for r, b := range rows {
			if b >= letterBand {
				col.Key = Known(b ^ spaceCode)
				col.Reasoning = fmt.Sprintf("mixed column: row %d byte 0x%02x is a space under key 0x%02x", r, b, col.Key.Value)
				break
			}
		}
		if !col.Key.Known {
			col.Reasoning = fmt.Sprintf("mixed column: none of %d rows reaches 0x%02x", len(rows), letterBand)
		}
	default:
		for r := 1; r < len(rows); r++ {
			if rows[r] != rows[r-1] {
				col.Key = Known(spaceCode)
				col.Reasoning = fmt.Sprintf("uniform column: rows %d and %d differ, assuming key 0x%02x", r-1, r, spaceCode)
				break
			}
		}
		if !col.Key.Known {
			col.Reasoning = fmt.Sprintf("uniform column: all %d rows identical", len(rows))
		}
	}
	return col
}

func (e *Engine) audit(result *Result, cipherLen int) {
	for _, col := range result.Columns {
		metrics.RecordRecoveryColumn(col.Class.String(), col.Key.Known)
	}
	if e.logger == nil {
		return
	}
	for _, col := range result.Columns {
		if col.Key.Known {
			continue
		}
		_ = e.logger.Emit(logging.AuditEvent{
			EventType: logging.EventColumnUnresolved,
			Decision:  logging.DecisionInfo,
			Metadata: map[string]any{
				"column": col.Index,
				"class":  col.Class.String(),
				"rows":   col.Rows,
			},
			Reason: col.Reasoning,
		})
	}
	_ = e.logger.Emit(logging.AuditEvent{
		EventType: logging.EventRecover,
		Decision:  logging.DecisionInfo,
		Metadata: map[string]any{
			"key_length":        result.KeyLength,
			"ciphertext_length": cipherLen,
			"resolved":          result.Resolved(),
			"unresolved":        result.Unresolved(),
		},
	})
}
