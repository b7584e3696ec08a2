package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/RowanDark/xorgen/internal/config"
	"github.com/RowanDark/xorgen/internal/fsutil"
	"github.com/RowanDark/xorgen/internal/logging"
)

// stdioPath selects stdin or stdout instead of a file.
const stdioPath = "-"

var (
	errNoKey = errors.New("no key given: pass -key, create the key file or run from a terminal")

	stdinIsTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
	readPassword    = func() ([]byte, error) { return term.ReadPassword(int(os.Stdin.Fd())) }
)

// loadConfig resolves configuration and reports failures on stderr.
func loadConfig() (config.Config, bool) {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return config.Config{}, false
	}
	return cfg, true
}

// openAuditLogger writes CLI audit events to the configured audit log, or
// nowhere when none is set.
func openAuditLogger(cfg config.Config) (*logging.AuditLogger, error) {
	if strings.TrimSpace(cfg.AuditLog) == "" {
		return logging.Discard(), nil
	}
	return logging.NewAuditLogger("xorgenctl", logging.WithoutStdout(), logging.WithFile(cfg.AuditLog))
}

func readInput(path string) ([]byte, error) {
	if path == stdioPath {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// writeOutput replaces path atomically, or writes to stdout for "-".
func writeOutput(path string, data []byte, perm os.FileMode) error {
	if path == stdioPath {
		_, err := os.Stdout.Write(data)
		return err
	}
	return fsutil.WriteFile(path, data, perm)
}

// readKeyFile returns the key stored at path without its trailing line break.
func readKeyFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(string(data), "\r\n")), nil
}

// resolveKey picks the key from the -key flag, then the key file, then an
// interactive prompt when stdin is a terminal.
func resolveKey(flagKey, keyFile string) ([]byte, error) {
	if flagKey != "" {
		return []byte(flagKey), nil
	}
	key, err := readKeyFile(keyFile)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	if !stdinIsTerminal() {
		return nil, errNoKey
	}
	fmt.Fprint(os.Stderr, "key: ")
	key, err = readPassword()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}
	return []byte(strings.TrimRight(string(key), "\r\n")), nil
}

// stringList collects repeated string flags.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
