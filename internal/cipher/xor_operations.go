package cipher

import (
	"context"
	"fmt"
	"strings"

	"github.com/RowanDark/xorgen/internal/block"
	"github.com/RowanDark/xorgen/internal/normalize"
	"github.com/RowanDark/xorgen/internal/recovery"
)

// NormalizeOp filters text to lowercase letters and spaces and wraps it into
// fixed-width lines, each terminated by "\n".
type NormalizeOp struct {
	BaseOperation
}

func (op *NormalizeOp) Execute(ctx context.Context, input []byte, params map[string]any) ([]byte, error) {
	width, err := widthParam(params)
	if err != nil {
		return nil, err
	}
	text, err := normalize.Text(string(input), width)
	if err != nil {
		return nil, err
	}
	return []byte(text), nil
}

// widthParam accepts either an explicit width or a key whose length is the width.
func widthParam(params map[string]any) (int, error) {
	width, ok, err := intParam(params, "width")
	if err != nil {
		return 0, err
	}
	if ok {
		return width, nil
	}
	key, ok, err := stringParam(params, "key")
	if err != nil {
		return 0, err
	}
	if ok {
		return len(key), nil
	}
	return 0, fmt.Errorf("missing required parameter %q", "width")
}

// XOREncryptOp encrypts newline-separated fixed-width lines with a repeating key.
type XOREncryptOp struct {
	BaseOperation
}

func (op *XOREncryptOp) Execute(ctx context.Context, input []byte, params map[string]any) ([]byte, error) {
	key, err := requireString(params, "key")
	if err != nil {
		return nil, err
	}
	return block.Encrypt([]byte(key), normalize.ParseLines(string(input)))
}

// XORDecryptOp decrypts ciphertext back into newline-terminated lines.
type XORDecryptOp struct {
	BaseOperation
}

func (op *XORDecryptOp) Execute(ctx context.Context, input []byte, params map[string]any) ([]byte, error) {
	key, err := requireString(params, "key")
	if err != nil {
		return nil, err
	}
	lines, err := block.Decrypt([]byte(key), input)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// XORRecoverOp recovers plaintext from ciphertext given only the key length.
type XORRecoverOp struct {
	BaseOperation
}

func (op *XORRecoverOp) Execute(ctx context.Context, input []byte, params map[string]any) ([]byte, error) {
	engine, keyLen, err := recoveryFromParams(params)
	if err != nil {
		return nil, err
	}
	res, err := engine.Recover(ctx, input, keyLen)
	if err != nil {
		return nil, err
	}
	return []byte(res.Text()), nil
}

// XORRecoverKeyOp is XORRecoverOp returning the recovered key instead of the
// plaintext.
type XORRecoverKeyOp struct {
	BaseOperation
}

func (op *XORRecoverKeyOp) Execute(ctx context.Context, input []byte, params map[string]any) ([]byte, error) {
	engine, keyLen, err := recoveryFromParams(params)
	if err != nil {
		return nil, err
	}
	res, err := engine.Recover(ctx, input, keyLen)
	if err != nil {
		return nil, err
	}
	return []byte(res.KeyString()), nil
}

func recoveryFromParams(params map[string]any) (*recovery.Engine, int, error) {
	keyLen, ok, err := intParam(params, "key_length")
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		return nil, 0, fmt.Errorf("missing required parameter %q", "key_length")
	}
	opts := []recovery.Option{}
	placeholder, ok, err := stringParam(params, "placeholder")
	if err != nil {
		return nil, 0, err
	}
	if ok {
		if len(placeholder) != 1 {
			return nil, 0, fmt.Errorf("parameter %q must be a single byte, got %q", "placeholder", placeholder)
		}
		opts = append(opts, recovery.WithPlaceholder(placeholder[0]))
	}
	workers, ok, err := intParam(params, "workers")
	if err != nil {
		return nil, 0, err
	}
	if ok {
		opts = append(opts, recovery.WithWorkers(workers))
	}
	return recovery.New(opts...), keyLen, nil
}

func init() {
	encrypt := &XOREncryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_encrypt",
			TypeValue:        OperationTypeEncrypt,
			DescriptionValue: "Encrypt fixed-width lines with a repeating XOR key (param: key)",
		},
	}
	decrypt := &XORDecryptOp{
		BaseOperation: BaseOperation{
			NameValue:        "xor_decrypt",
			TypeValue:        OperationTypeDecrypt,
			DescriptionValue: "Decrypt repeating-key XOR ciphertext into lines (param: key)",
		},
	}
	encrypt.ReverseOp = decrypt
	decrypt.ReverseOp = encrypt

	mustRegister(
		&NormalizeOp{
			BaseOperation: BaseOperation{
				NameValue:        "normalize",
				TypeValue:        OperationTypeTransform,
				DescriptionValue: "Reduce text to lowercase letters and spaces in fixed-width lines (param: width or key)",
			},
		},
		encrypt,
		decrypt,
		&XORRecoverOp{
			BaseOperation: BaseOperation{
				NameValue:        "xor_recover",
				TypeValue:        OperationTypeAnalyse,
				DescriptionValue: "Recover plaintext from ciphertext given the key length (params: key_length, placeholder, workers)",
			},
		},
		&XORRecoverKeyOp{
			BaseOperation: BaseOperation{
				NameValue:        "xor_recover_key",
				TypeValue:        OperationTypeAnalyse,
				DescriptionValue: "Recover the key from ciphertext given the key length (params: key_length, placeholder, workers)",
			},
		},
	)
}
