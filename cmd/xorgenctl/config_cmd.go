package main

import (
	"fmt"
	"io"
	"os"

	"github.com/RowanDark/xorgen/internal/config"
)

func runConfig(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "config subcommand required")
		return 2
	}

	switch args[0] {
	case "print":
		return runConfigPrint()
	default:
		fmt.Fprintf(os.Stderr, "unknown config subcommand: %s\n", args[0])
		return 2
	}
}

func runConfigPrint() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	printResolvedConfig(os.Stdout, cfg.Masked())
	return 0
}

func printResolvedConfig(out io.Writer, cfg config.Config) {
	fmt.Fprintf(out, "api_addr: %s\n", cfg.APIAddr)
	fmt.Fprintf(out, "auth_token: %s\n", cfg.AuthToken)
	fmt.Fprintf(out, "jwt_secret: %s\n", cfg.JWTSecret)
	fmt.Fprintf(out, "data_dir: %s\n", cfg.DataDir)
	fmt.Fprintf(out, "placeholder: %q\n", cfg.Placeholder)
	fmt.Fprintf(out, "workers: %d\n", cfg.Workers)
	fmt.Fprintf(out, "audit_log: %s\n", cfg.AuditLog)
	fmt.Fprintf(out, "recipes_dir: %s\n", cfg.RecipesPath())
	fmt.Fprintf(out, "history_db: %s\n", cfg.HistoryPath())
	fmt.Fprintln(out, "files:")
	fmt.Fprintf(out, "  original: %s\n", cfg.Files.Original)
	fmt.Fprintf(out, "  plain: %s\n", cfg.Files.Plain)
	fmt.Fprintf(out, "  cipher: %s\n", cfg.Files.Cipher)
	fmt.Fprintf(out, "  key: %s\n", cfg.Files.Key)
	fmt.Fprintf(out, "  decrypted: %s\n", cfg.Files.Decrypted)
}
