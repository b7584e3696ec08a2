package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/RowanDark/xorgen/internal/block"
	"github.com/RowanDark/xorgen/internal/cipher"
	"github.com/RowanDark/xorgen/internal/config"
	"github.com/RowanDark/xorgen/internal/history"
	"github.com/RowanDark/xorgen/internal/logging"
	"github.com/RowanDark/xorgen/internal/normalize"
	"github.com/RowanDark/xorgen/internal/recovery"
)

func runNormalize(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	in := fs.String("in", cfg.Files.Original, "source text file ('-' for stdin)")
	out := fs.String("out", cfg.Files.Plain, "normalized output file ('-' for stdout)")
	width := fs.Int("width", 0, "line width; defaults to the key file length")
	keyFile := fs.String("key-file", cfg.Files.Key, "key file whose length sets the line width")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "normalize takes no arguments")
		return 2
	}

	if *width <= 0 {
		key, err := readKeyFile(*keyFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "line width required: pass -width or a readable -key-file (%v)\n", err)
			return 2
		}
		*width = len(key)
	}

	src, err := readInput(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		return 1
	}
	text, err := normalize.Text(string(src), *width)
	if err != nil {
		fmt.Fprintf(os.Stderr, "normalize: %v\n", err)
		return 2
	}
	if err := writeOutput(*out, []byte(text), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	emitAudit(cfg, logging.AuditEvent{
		EventType: logging.EventNormalize,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"width": *width, "input_bytes": len(src), "output_bytes": len(text)},
	})
	return 0
}

func runEncrypt(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	fs := flag.NewFlagSet("encrypt", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	in := fs.String("in", cfg.Files.Plain, "normalized plaintext file ('-' for stdin)")
	out := fs.String("out", cfg.Files.Cipher, "ciphertext output file ('-' for stdout)")
	keyFlag := fs.String("key", "", "encryption key")
	keyFile := fs.String("key-file", cfg.Files.Key, "file holding the encryption key")
	encoding := fs.String("encoding", cipher.EncodingRaw, "ciphertext output encoding: raw, hex or base64")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "encrypt takes no arguments")
		return 2
	}

	key, err := resolveKey(*keyFlag, *keyFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	src, err := readInput(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		return 1
	}
	ciphertext, err := block.Encrypt(key, normalize.ParseLines(string(src)))
	if err != nil {
		fmt.Fprintf(os.Stderr, "encrypt: %v\n", err)
		return 1
	}
	encoded, err := encodeCiphertext(ciphertext, *encoding)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := writeOutput(*out, encoded, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	emitAudit(cfg, logging.AuditEvent{
		EventType: logging.EventEncrypt,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"key_length": len(key), "ciphertext_length": len(ciphertext)},
	})
	return 0
}

func runDecrypt(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	fs := flag.NewFlagSet("decrypt", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	in := fs.String("in", cfg.Files.Cipher, "ciphertext file ('-' for stdin)")
	out := fs.String("out", stdioPath, "plaintext output file ('-' for stdout)")
	keyFlag := fs.String("key", "", "decryption key")
	keyFile := fs.String("key-file", cfg.Files.Key, "file holding the decryption key")
	encoding := fs.String("encoding", cipher.EncodingRaw, "ciphertext encoding: raw, hex, base64 or auto")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "decrypt takes no arguments")
		return 2
	}

	key, err := resolveKey(*keyFlag, *keyFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	ciphertext, ok := readCiphertext(*in, *encoding)
	if !ok {
		return 1
	}
	lines, err := block.Decrypt(key, ciphertext)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decrypt: %v\n", err)
		return 1
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := writeOutput(*out, []byte(b.String()), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	emitAudit(cfg, logging.AuditEvent{
		EventType: logging.EventDecrypt,
		Decision:  logging.DecisionInfo,
		Metadata:  map[string]any{"key_length": len(key), "ciphertext_length": len(ciphertext)},
	})
	return 0
}

// recoverReport is the -json output of the recover command.
type recoverReport struct {
	Key          string            `json:"key"`
	KeyHex       string            `json:"key_hex"`
	KeyKnown     []bool            `json:"key_known"`
	KeyLength    int               `json:"key_length"`
	Resolved     int               `json:"resolved"`
	Unresolved   int               `json:"unresolved"`
	Columns      []recovery.Column `json:"columns"`
	Plaintext    string            `json:"plaintext"`
	PlaintextHex string            `json:"plaintext_hex"`
	ID           string            `json:"id,omitempty"`
}

func runRecover(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	fs := flag.NewFlagSet("recover", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	in := fs.String("in", cfg.Files.Cipher, "ciphertext file ('-' for stdin)")
	out := fs.String("out", cfg.Files.Decrypted, "recovered plaintext file ('-' for stdout)")
	keyLength := fs.Int("key-length", 0, "key length; defaults to the key file length")
	keyFile := fs.String("key-file", cfg.Files.Key, "key file whose length sets the key length")
	placeholder := fs.String("placeholder", cfg.Placeholder, "byte written for unrecoverable positions")
	workers := fs.Int("workers", cfg.Workers, "columns analysed concurrently")
	encoding := fs.String("encoding", cipher.EncodingRaw, "ciphertext encoding: raw, hex, base64 or auto")
	save := fs.Bool("save", false, "store the run in the history database")
	asJSON := fs.Bool("json", false, "print the recovery report as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() > 0 {
		fmt.Fprintln(os.Stderr, "recover takes no arguments")
		return 2
	}
	if len(*placeholder) != 1 {
		fmt.Fprintf(os.Stderr, "placeholder must be a single byte, got %q\n", *placeholder)
		return 2
	}
	if *keyLength <= 0 {
		key, err := readKeyFile(*keyFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "key length required: pass -key-length or a readable -key-file (%v)\n", err)
			return 2
		}
		*keyLength = len(key)
	}

	ciphertext, ok := readCiphertext(*in, *encoding)
	if !ok {
		return 1
	}

	logger, err := openAuditLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open audit log: %v\n", err)
		return 1
	}
	defer logger.Close()

	engine := recovery.New(
		recovery.WithPlaceholder((*placeholder)[0]),
		recovery.WithWorkers(*workers),
		recovery.WithLogger(logger.WithComponent("recovery")),
	)
	ctx := context.Background()
	res, err := engine.Recover(ctx, ciphertext, *keyLength)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recover: %v\n", err)
		if errors.Is(err, recovery.ErrInvalidKeyLength) {
			return 2
		}
		return 1
	}
	if err := writeOutput(*out, []byte(res.Text()), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}

	report := recoverReport{
		Key:          res.KeyString(),
		KeyHex:       hex.EncodeToString([]byte(res.KeyString())),
		KeyKnown:     make([]bool, len(res.Key)),
		KeyLength:    res.KeyLength,
		Resolved:     res.Resolved(),
		Unresolved:   res.Unresolved(),
		Columns:      res.Columns,
		Plaintext:    res.Text(),
		PlaintextHex: hex.EncodeToString(res.Plaintext),
	}
	for i, kb := range res.Key {
		report.KeyKnown[i] = kb.Known
	}

	if *save {
		store, err := history.Open(cfg.HistoryPath(), logger.WithComponent("history"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "open history: %v\n", err)
			return 1
		}
		defer store.Close()
		rec, err := store.Save(ctx, history.NewRecord(res, "cli"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "save history: %v\n", err)
			return 1
		}
		report.ID = rec.ID
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "encode report: %v\n", err)
			return 1
		}
		return 0
	}
	fmt.Printf("key: %s (%d/%d bytes recovered)\n", report.Key, report.Resolved, report.KeyLength)
	if report.ID != "" {
		fmt.Printf("saved run %s\n", report.ID)
	}
	return 0
}

func runKeygen(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	fs := flag.NewFlagSet("keygen", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	length := fs.Int("length", 0, "key length in bytes")
	out := fs.String("out", cfg.Files.Key, "key output file ('-' for stdout)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *length <= 0 {
		fmt.Fprintln(os.Stderr, "-length must be positive")
		return 2
	}
	key, err := block.GenerateKey(*length)
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate key: %v\n", err)
		return 1
	}
	if *out == stdioPath {
		key = append(key, '\n')
	}
	if err := writeOutput(*out, key, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "write key: %v\n", err)
		return 1
	}
	return 0
}

func readCiphertext(path, encoding string) ([]byte, bool) {
	data, err := readInput(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		return nil, false
	}
	decoded, _, err := cipher.DecodeCiphertext(context.Background(), data, encoding)
	if err != nil {
		fmt.Fprintf(os.Stderr, "decode ciphertext: %v\n", err)
		return nil, false
	}
	return decoded, true
}

func encodeCiphertext(data []byte, encoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", cipher.EncodingRaw:
		return data, nil
	case cipher.EncodingHex:
		return cipher.Run(context.Background(), "hex_encode", data, nil)
	case cipher.EncodingBase64:
		return cipher.Run(context.Background(), "base64_encode", data, nil)
	default:
		return nil, fmt.Errorf("unsupported output encoding %q", encoding)
	}
}

func emitAudit(cfg config.Config, event logging.AuditEvent) {
	logger, err := openAuditLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open audit log: %v\n", err)
		return
	}
	defer logger.Close()
	_ = logger.Emit(event)
}
