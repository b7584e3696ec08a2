package cipher

import (
	"context"
	"fmt"
	"strings"

	"github.com/RowanDark/xorgen/internal/observability/metrics"
)

// OperationType defines the category of transformation operation
type OperationType string

const (
	OperationTypeEncode    OperationType = "encode"
	OperationTypeDecode    OperationType = "decode"
	OperationTypeTransform OperationType = "transform"
	OperationTypeEncrypt   OperationType = "encrypt"
	OperationTypeDecrypt   OperationType = "decrypt"
	OperationTypeAnalyse   OperationType = "analyse"
)

var operationTypes = []OperationType{
	OperationTypeEncode,
	OperationTypeDecode,
	OperationTypeTransform,
	OperationTypeEncrypt,
	OperationTypeDecrypt,
	OperationTypeAnalyse,
}

// ParseOperationType maps a category name to its OperationType.
func ParseOperationType(name string) (OperationType, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range operationTypes {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown operation type %q", name)
}

// Operation represents a single transformation operation that can be applied to data
type Operation interface {
	// Name returns the unique identifier for this operation
	Name() string

	// Type returns the category of this operation
	Type() OperationType

	// Description returns a human-readable description
	Description() string

	// Execute applies the operation to the input data
	Execute(ctx context.Context, input []byte, params map[string]any) ([]byte, error)

	// Reverse returns the inverse operation if available
	Reverse() (Operation, bool)
}

// OperationConfig represents configuration for an operation in a pipeline
type OperationConfig struct {
	Name       string         `json:"name" yaml:"name"`
	Parameters map[string]any `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

// Pipeline represents a chain of operations that can be applied sequentially
type Pipeline struct {
	Operations []OperationConfig `json:"operations" yaml:"operations"`
	Reversible bool              `json:"reversible" yaml:"reversible"`
}

// Run looks up a single operation by name, executes it and records the outcome.
func Run(ctx context.Context, name string, input []byte, params map[string]any) ([]byte, error) {
	op, exists := GetOperation(name)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOperation, name)
	}
	out, err := op.Execute(ctx, input, params)
	metrics.RecordOperation(name, err)
	return out, err
}

// Execute runs the pipeline on the input data
func (p *Pipeline) Execute(ctx context.Context, input []byte) ([]byte, error) {
	result := input
	var err error

	for i, opConfig := range p.Operations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, exists := GetOperation(opConfig.Name); !exists {
			return nil, fmt.Errorf("unknown operation at step %d: %s", i, opConfig.Name)
		}

		result, err = Run(ctx, opConfig.Name, result, opConfig.Parameters)
		if err != nil {
			return nil, fmt.Errorf("operation %s failed at step %d: %w", opConfig.Name, i, err)
		}
	}

	return result, nil
}

// Reverse creates a reversed pipeline if all operations are reversible.
// Parameters travel with each step, so xor_encrypt{key} becomes
// xor_decrypt{key}.
func (p *Pipeline) Reverse() (*Pipeline, error) {
	if !p.Reversible {
		return nil, fmt.Errorf("pipeline is not reversible")
	}

	reversed := &Pipeline{
		Operations: make([]OperationConfig, len(p.Operations)),
		Reversible: true,
	}

	for i, opConfig := range p.Operations {
		op, exists := GetOperation(opConfig.Name)
		if !exists {
			return nil, fmt.Errorf("unknown operation: %s", opConfig.Name)
		}

		reverseOp, ok := op.Reverse()
		if !ok {
			return nil, fmt.Errorf("operation %s is not reversible", opConfig.Name)
		}

		reversed.Operations[len(p.Operations)-1-i] = OperationConfig{
			Name:       reverseOp.Name(),
			Parameters: opConfig.Parameters,
		}
	}

	return reversed, nil
}

// Recipe represents a named, reusable transformation pipeline
type Recipe struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Pipeline    Pipeline `json:"pipeline" yaml:"pipeline"`
	CreatedAt   string   `json:"created_at" yaml:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at" yaml:"updated_at,omitempty"`
}

// DetectionResult represents the result of automatic encoding detection
type DetectionResult struct {
	Encoding   string  `json:"encoding"`
	Confidence float64 `json:"confidence"` // 0.0 to 1.0
	Reasoning  string  `json:"reasoning"`
	Operation  string  `json:"operation,omitempty"` // operation that decodes it; empty for raw
}

// Detector identifies the encoding or format of input data
type Detector interface {
	// Detect attempts to identify the encoding of the input
	Detect(ctx context.Context, input []byte) ([]DetectionResult, error)

	// SupportedEncodings returns a list of encodings this detector can identify
	SupportedEncodings() []string
}

// BaseOperation provides common functionality for operations
type BaseOperation struct {
	NameValue        string
	TypeValue        OperationType
	DescriptionValue string
	ReverseOp        Operation
}

func (b *BaseOperation) Name() string {
	return b.NameValue
}

func (b *BaseOperation) Type() OperationType {
	return b.TypeValue
}

func (b *BaseOperation) Description() string {
	return b.DescriptionValue
}

func (b *BaseOperation) Reverse() (Operation, bool) {
	if b.ReverseOp == nil {
		return nil, false
	}
	return b.ReverseOp, true
}
