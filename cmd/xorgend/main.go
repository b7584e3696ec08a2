package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/RowanDark/xorgen/internal/api"
	"github.com/RowanDark/xorgen/internal/cipher"
	"github.com/RowanDark/xorgen/internal/config"
	"github.com/RowanDark/xorgen/internal/history"
	"github.com/RowanDark/xorgen/internal/logging"
)

var version = "dev"

type settings struct {
	cfg       config.Config
	jwtIssuer string
	tokenTTL  time.Duration
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.APIAddr, "address for the API server to listen on")
	token := flag.String("token", cfg.AuthToken, "static token required to mint API tokens")
	jwtSecret := flag.String("jwt-secret", cfg.JWTSecret, "HMAC secret used to sign API tokens")
	jwtIssuer := flag.String("jwt-issuer", "xorgend", "issuer claim for API tokens")
	tokenTTL := flag.Duration("jwt-ttl", time.Hour, "default lifetime for issued API tokens")
	auditLog := flag.String("audit-log", cfg.AuditLog, "file receiving JSON audit events (stdout when empty)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	cfg.APIAddr = strings.TrimSpace(*addr)
	cfg.AuthToken = strings.TrimSpace(*token)
	cfg.JWTSecret = strings.TrimSpace(*jwtSecret)
	cfg.AuditLog = strings.TrimSpace(*auditLog)
	if cfg.AuthToken == "" {
		fmt.Fprintln(os.Stderr, "--token or XORGEN_AUTH_TOKEN must be provided")
		os.Exit(2)
	}
	if cfg.JWTSecret == "" {
		fmt.Fprintln(os.Stderr, "--jwt-secret or XORGEN_JWT_SECRET must be provided")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := settings{cfg: cfg, jwtIssuer: strings.TrimSpace(*jwtIssuer), tokenTTL: *tokenTTL}
	if err := run(ctx, s); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, s settings) error {
	ln, err := net.Listen("tcp", s.cfg.APIAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.APIAddr, err)
	}
	return serve(ctx, ln, s)
}

func serve(ctx context.Context, ln net.Listener, s settings) error {
	opts := []logging.Option{}
	if s.cfg.AuditLog != "" {
		opts = append(opts, logging.WithoutStdout(), logging.WithFile(s.cfg.AuditLog))
	}
	logger, err := logging.NewAuditLogger("xorgend", opts...)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("open audit log: %w", err)
	}
	defer logger.Close()

	placeholder, err := s.cfg.PlaceholderByte()
	if err != nil {
		_ = ln.Close()
		return err
	}

	store, err := history.Open(s.cfg.HistoryPath(), logger.WithComponent("history"))
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()

	recipes := cipher.NewRecipeManager(s.cfg.RecipesPath())
	if err := recipes.LoadRecipes(); err != nil {
		_ = ln.Close()
		return fmt.Errorf("load recipes: %w", err)
	}

	srv, err := api.NewServer(api.Config{
		Addr:            ln.Addr().String(),
		StaticToken:     s.cfg.AuthToken,
		JWTSecret:       []byte(s.cfg.JWTSecret),
		JWTIssuer:       s.jwtIssuer,
		DefaultTokenTTL: s.tokenTTL,
		Placeholder:     placeholder,
		Workers:         s.cfg.Workers,
		History:         store,
		Recipes:         recipes,
		Logger:          logger.WithComponent("api"),
	})
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("configure api: %w", err)
	}

	log.Printf("xorgend %s listening on %s", version, ln.Addr())
	err = srv.Serve(ctx, ln)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Printf("xorgend shut down")
	return nil
}
