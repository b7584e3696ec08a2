package cipher

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Transport encodings recognised for ciphertext.
const (
	EncodingRaw    = "raw"
	EncodingHex    = "hex"
	EncodingBase64 = "base64"
	EncodingAuto   = "auto"
)

var (
	hexPattern    = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	digitPattern  = regexp.MustCompile(`^[0-9]+$`)
	base64Pattern = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)
)

// SmartDetector identifies how ciphertext was transported: raw bytes, or
// text-encoded as hex or Base64.
type SmartDetector struct{}

// NewSmartDetector creates a new smart detector
func NewSmartDetector() *SmartDetector {
	return &SmartDetector{}
}

// Detect returns candidate encodings, most confident first. Raw is always a
// candidate because any byte string is valid raw ciphertext.
func (d *SmartDetector) Detect(ctx context.Context, input []byte) ([]DetectionResult, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("empty input")
	}

	results := []DetectionResult{}
	results = append(results, d.detectHex(input)...)
	results = append(results, d.detectBase64(input)...)
	results = append(results, d.detectRaw(input))

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	return results, nil
}

// SupportedEncodings returns a list of encodings this detector can identify
func (d *SmartDetector) SupportedEncodings() []string {
	return []string{EncodingHex, EncodingBase64, EncodingRaw}
}

func (d *SmartDetector) detectHex(input []byte) []DetectionResult {
	trimmed := strings.TrimSpace(string(input))
	cleaned := cleanHex(input)
	if cleaned == "" || len(cleaned)%2 != 0 || !hexPattern.MatchString(cleaned) {
		return nil
	}

	confidence := 0.85
	reasoning := "Even-length hexadecimal digits"
	if strings.HasPrefix(trimmed, "0x") {
		confidence = 0.95
		reasoning = "Hexadecimal digits with 0x prefix"
	}
	// All-digit strings are as likely to be decimal text
	if digitPattern.MatchString(cleaned) {
		confidence *= 0.6
	}
	return []DetectionResult{{
		Encoding:   EncodingHex,
		Confidence: confidence,
		Reasoning:  reasoning,
		Operation:  "hex_decode",
	}}
}

func (d *SmartDetector) detectBase64(input []byte) []DetectionResult {
	text := strings.TrimSpace(string(input))
	if !base64Pattern.MatchString(text) {
		return nil
	}
	if _, err := base64.StdEncoding.DecodeString(text); err == nil {
		return []DetectionResult{{
			Encoding:   EncodingBase64,
			Confidence: 0.8,
			Reasoning:  "Matches Base64 alphabet and decodes with padding",
			Operation:  "base64_decode",
		}}
	}
	if _, err := base64.RawStdEncoding.DecodeString(text); err == nil {
		return []DetectionResult{{
			Encoding:   EncodingBase64,
			Confidence: 0.6,
			Reasoning:  "Matches Base64 alphabet without padding",
			Operation:  "base64_decode",
		}}
	}
	return nil
}

// detectRaw scores how likely input is raw XOR output. Control bytes and
// bytes outside printable ASCII never appear in hex or Base64 text.
func (d *SmartDetector) detectRaw(input []byte) DetectionResult {
	nonText := 0
	for _, b := range input {
		if b == '\n' || b == '\r' || b == '\t' {
			continue
		}
		if b < 0x20 || b > 0x7e {
			nonText++
		}
	}
	if nonText > 0 {
		return DetectionResult{
			Encoding:   EncodingRaw,
			Confidence: 0.99,
			Reasoning:  fmt.Sprintf("%d non-printable bytes", nonText),
		}
	}
	return DetectionResult{
		Encoding:   EncodingRaw,
		Confidence: 0.3,
		Reasoning:  fmt.Sprintf("Printable text with entropy %.2f bits/byte", calculateEntropy(input)),
	}
}

// calculateEntropy calculates Shannon entropy of the input
func calculateEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	var freq [256]int
	for _, b := range data {
		freq[b]++
	}
	entropy := 0.0
	n := float64(len(data))
	for _, count := range freq {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// DecodeCiphertext converts transported ciphertext to raw bytes. encoding
// is one of raw, hex, base64 or auto; empty means raw. With auto the most
// confident detection that decodes successfully wins.
func DecodeCiphertext(ctx context.Context, input []byte, encoding string) ([]byte, DetectionResult, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", EncodingRaw:
		return input, DetectionResult{Encoding: EncodingRaw, Confidence: 1, Reasoning: "requested"}, nil
	case EncodingHex:
		out, err := Run(ctx, "hex_decode", input, nil)
		return out, DetectionResult{Encoding: EncodingHex, Confidence: 1, Reasoning: "requested", Operation: "hex_decode"}, err
	case EncodingBase64:
		out, err := Run(ctx, "base64_decode", input, nil)
		return out, DetectionResult{Encoding: EncodingBase64, Confidence: 1, Reasoning: "requested", Operation: "base64_decode"}, err
	case EncodingAuto:
	default:
		return nil, DetectionResult{}, fmt.Errorf("unsupported encoding %q", encoding)
	}

	if len(input) == 0 {
		return input, DetectionResult{Encoding: EncodingRaw, Confidence: 1, Reasoning: "empty input"}, nil
	}
	detections, err := NewSmartDetector().Detect(ctx, input)
	if err != nil {
		return nil, DetectionResult{}, err
	}
	for _, det := range detections {
		if det.Operation == "" {
			return input, det, nil
		}
		out, err := Run(ctx, det.Operation, input, nil)
		if err == nil {
			return out, det, nil
		}
	}
	return input, DetectionResult{Encoding: EncodingRaw, Confidence: 0}, nil
}
