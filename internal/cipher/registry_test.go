package cipher

import (
	"context"
	"errors"
	"sort"
	"testing"
)

// mockOperation is a test implementation of Operation
type mockOperation struct {
	BaseOperation
}

func (m *mockOperation) Execute(ctx context.Context, input []byte, params map[string]any) ([]byte, error) {
	return input, nil
}

func registerMock(t *testing.T, name string, opType OperationType) *mockOperation {
	t.Helper()
	op := &mockOperation{
		BaseOperation: BaseOperation{
			NameValue:        name,
			TypeValue:        opType,
			DescriptionValue: "Mock operation for testing",
		},
	}
	if err := RegisterOperation(op); err != nil {
		t.Fatalf("failed to register operation: %v", err)
	}
	t.Cleanup(func() { UnregisterOperation(name) })
	return op
}

func TestRegisterOperation(t *testing.T) {
	op := registerMock(t, "mock", OperationTypeEncode)

	err := RegisterOperation(op)
	if !errors.Is(err, ErrDuplicateOperation) {
		t.Fatalf("expected ErrDuplicateOperation, got %v", err)
	}
	if err := RegisterOperation(nil); err == nil {
		t.Fatal("expected error when registering nil operation")
	}
	if err := RegisterOperation(&mockOperation{}); err == nil {
		t.Fatal("expected error when registering unnamed operation")
	}
}

func TestGetOperation(t *testing.T) {
	registerMock(t, "test-op", OperationTypeEncode)

	retrieved, exists := GetOperation("test-op")
	if !exists {
		t.Fatal("operation should exist")
	}
	if retrieved.Name() != "test-op" {
		t.Errorf("expected name 'test-op', got '%s'", retrieved.Name())
	}

	if _, exists := GetOperation("non-existent"); exists {
		t.Fatal("non-existent operation should not exist")
	}
}

func TestBuiltinOperationsRegistered(t *testing.T) {
	want := []string{
		"base64_decode", "base64_encode", "hex_decode", "hex_encode",
		"normalize", "xor_decrypt", "xor_encrypt", "xor_recover", "xor_recover_key",
	}

	list := ListOperations()
	names := make([]string, 0, len(list))
	for _, op := range list {
		names = append(names, op.Name())
	}
	if !sort.StringsAreSorted(names) {
		t.Errorf("operations should be sorted by name, got %v", names)
	}
	for _, name := range want {
		if _, ok := GetOperation(name); !ok {
			t.Errorf("expected builtin operation %q", name)
		}
	}
}

func TestListOperationsByType(t *testing.T) {
	encoders := ListOperationsByType(OperationTypeEncode)
	if len(encoders) != 2 {
		t.Errorf("expected 2 encoders, got %d", len(encoders))
	}

	analysers := ListOperationsByType(OperationTypeAnalyse)
	if len(analysers) != 2 || analysers[0].Name() != "xor_recover" {
		t.Errorf("unexpected analysers %v", analysers)
	}
}

func TestParseOperationType(t *testing.T) {
	tests := []struct {
		input    string
		expected OperationType
		wantErr  bool
	}{
		{"analyse", OperationTypeAnalyse, false},
		{" Encode ", OperationTypeEncode, false},
		{"encrypt", OperationTypeEncrypt, false},
		{"compress", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOperationType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRunUnknownOperation(t *testing.T) {
	_, err := Run(context.Background(), "rot13", []byte("x"), nil)
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}
