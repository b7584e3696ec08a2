package cipher

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// Base64EncodeOp encodes data as standard Base64
type Base64EncodeOp struct {
	BaseOperation
}

func (op *Base64EncodeOp) Execute(ctx context.Context, input []byte, params map[string]any) ([]byte, error) {
	return []byte(base64.StdEncoding.EncodeToString(input)), nil
}

// Base64DecodeOp decodes standard Base64 data, with or without padding
type Base64DecodeOp struct {
	BaseOperation
}

func (op *Base64DecodeOp) Execute(ctx context.Context, input []byte, params map[string]any) ([]byte, error) {
	text := strings.TrimSpace(string(input))
	decoded, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(text)
		if err != nil {
			return nil, fmt.Errorf("base64 decode failed: %w", err)
		}
	}
	return decoded, nil
}

// HexEncodeOp encodes bytes as hexadecimal string
type HexEncodeOp struct {
	BaseOperation
}

func (op *HexEncodeOp) Execute(ctx context.Context, input []byte, params map[string]any) ([]byte, error) {
	return []byte(hex.EncodeToString(input)), nil
}

// HexDecodeOp decodes hexadecimal string to bytes. A 0x prefix and space,
// colon or dash separators are tolerated.
type HexDecodeOp struct {
	BaseOperation
}

func (op *HexDecodeOp) Execute(ctx context.Context, input []byte, params map[string]any) ([]byte, error) {
	decoded, err := hex.DecodeString(cleanHex(input))
	if err != nil {
		return nil, fmt.Errorf("hex decode failed: %w", err)
	}
	return decoded, nil
}

func cleanHex(input []byte) string {
	s := strings.TrimSpace(string(input))
	s = strings.TrimPrefix(s, "0x")
	s = strings.TrimPrefix(s, "\\x")
	var b bytes.Buffer
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case ' ', ':', '-', '\n', '\r', '\t':
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func init() {
	base64Encode := &Base64EncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode data as standard Base64",
		},
	}
	base64Decode := &Base64DecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "base64_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode standard Base64 data",
		},
	}
	base64Encode.ReverseOp = base64Decode
	base64Decode.ReverseOp = base64Encode

	hexEncode := &HexEncodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_encode",
			TypeValue:        OperationTypeEncode,
			DescriptionValue: "Encode bytes as hexadecimal string",
		},
	}
	hexDecode := &HexDecodeOp{
		BaseOperation: BaseOperation{
			NameValue:        "hex_decode",
			TypeValue:        OperationTypeDecode,
			DescriptionValue: "Decode hexadecimal string to bytes",
		},
	}
	hexEncode.ReverseOp = hexDecode
	hexDecode.ReverseOp = hexEncode

	mustRegister(base64Encode, base64Decode, hexEncode, hexDecode)
}
