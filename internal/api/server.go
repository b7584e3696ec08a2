package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/RowanDark/xorgen/internal/cipher"
	"github.com/RowanDark/xorgen/internal/history"
	"github.com/RowanDark/xorgen/internal/logging"
	"github.com/RowanDark/xorgen/internal/observability/metrics"
	"github.com/RowanDark/xorgen/internal/recovery"
)

const (
	maxBodyBytes    = 8 << 20
	shutdownTimeout = 5 * time.Second
)

// Config configures the REST API server.
type Config struct {
	Addr            string
	StaticToken     string
	JWTSecret       []byte
	JWTIssuer       string
	DefaultTokenTTL time.Duration
	Placeholder     byte
	Workers         int
	History         *history.Store
	Recipes         *cipher.RecipeManager
	Logger          *logging.AuditLogger
}

// Server exposes the normalizer, block cipher and key recovery over HTTP/JSON.
type Server struct {
	cfg           Config
	httpServer    *http.Server
	authenticator *Authenticator
	staticToken   string
	logger        *logging.AuditLogger
	history       *history.Store
	recipeManager *cipher.RecipeManager
	placeholder   byte
	workers       int
}

// NewServer constructs a REST API server using the provided configuration.
func NewServer(cfg Config) (*Server, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("api address must be provided")
	}
	staticToken := strings.TrimSpace(cfg.StaticToken)
	if staticToken == "" {
		return nil, errors.New("static management token is required")
	}
	issuer := cfg.JWTIssuer
	if strings.TrimSpace(issuer) == "" {
		issuer = "xorgend"
	}
	auth, err := NewAuthenticator(cfg.JWTSecret, issuer, cfg.DefaultTokenTTL)
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	placeholder := cfg.Placeholder
	if placeholder == 0 {
		placeholder = recovery.DefaultPlaceholder
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Server{
		cfg:           cfg,
		authenticator: auth,
		staticToken:   staticToken,
		logger:        logger,
		history:       cfg.History,
		recipeManager: cfg.Recipes,
		placeholder:   placeholder,
		workers:       workers,
	}, nil
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, h))
	}
	protected := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, s.requireJWT(h)))
	}

	route("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	route("/metrics", metrics.Handler().ServeHTTP)
	route("/api/v1/tokens", s.handleTokenIssue)

	protected("/api/v1/xor/normalize", s.handleNormalize)
	protected("/api/v1/xor/encrypt", s.handleEncrypt)
	protected("/api/v1/xor/decrypt", s.handleDecrypt)
	protected("/api/v1/xor/recover", s.handleRecover)

	protected("/api/v1/cipher/execute", s.handleCipherExecute)
	protected("/api/v1/cipher/pipeline", s.handleCipherPipeline)
	protected("/api/v1/cipher/detect", s.handleCipherDetect)
	protected("/api/v1/cipher/operations", s.handleCipherListOperations)
	if s.recipeManager != nil {
		protected("/api/v1/cipher/recipes/save", s.handleRecipeSave)
		protected("/api/v1/cipher/recipes/list", s.handleRecipeList)
		protected("/api/v1/cipher/recipes/load", s.handleRecipeLoad)
		protected("/api/v1/cipher/recipes/delete", s.handleRecipeDelete)
	}
	if s.history != nil {
		protected("/api/v1/history", s.handleHistoryList)
		protected("/api/v1/history/", s.handleHistoryByID)
	}
	return mux
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts HTTP/1.1 and cleartext HTTP/2 connections on ln and blocks
// until ctx is cancelled or a fatal error occurs.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleTokenIssue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if token := strings.TrimSpace(r.Header.Get("X-Xorgen-Token")); token != s.staticToken {
		s.deny(r, "invalid static token")
		http.Error(w, "unauthorised", http.StatusUnauthorized)
		return
	}
	var req struct {
		Subject    string  `json:"subject"`
		Audience   string  `json:"audience"`
		TTLSeconds float64 `json:"ttl_seconds"`
	}
	if !s.decodeJSON(w, r, &req) {
		return
	}
	ttl := time.Duration(req.TTLSeconds * float64(time.Second))
	token, expires, err := s.authenticator.Mint(req.Subject, req.Audience, ttl)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"token":      token,
		"expires_at": expires.UTC().Format(time.RFC3339),
	})
}

func (s *Server) requireJWT(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			s.deny(r, "missing bearer token")
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		if _, err := s.authenticator.Validate(authHeader[7:]); err != nil {
			s.deny(r, err.Error())
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) deny(r *http.Request, reason string) {
	_ = s.logger.Emit(logging.AuditEvent{
		EventType: logging.EventAPIDenied,
		Decision:  logging.DecisionDeny,
		Reason:    reason,
		Metadata:  map[string]any{"path": r.URL.Path, "method": r.Method, "remote": r.RemoteAddr},
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// instrument records request metrics for route and audits API calls.
func (s *Server) instrument(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		done := metrics.TrackInflight()
		defer done()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)
		metrics.RecordHTTPRequest(route, rec.status)

		if strings.HasPrefix(route, "/api/") && rec.status != http.StatusUnauthorized {
			_ = s.logger.Emit(logging.AuditEvent{
				EventType: logging.EventAPIRequest,
				Decision:  logging.DecisionAllow,
				Metadata: map[string]any{
					"route":       route,
					"method":      r.Method,
					"status":      rec.status,
					"duration_ms": time.Since(start).Milliseconds(),
				},
			})
		}
	})
}

func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		_ = s.logger.Emit(logging.AuditEvent{EventType: logging.EventAPIRequest, Decision: logging.DecisionDeny, Reason: err.Error()})
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeContextError reports a cancelled or timed out request. It returns
// false when ctx is still live.
func writeContextError(ctx context.Context, w http.ResponseWriter) bool {
	switch ctx.Err() {
	case nil:
		return false
	case context.Canceled:
		http.Error(w, "request canceled", http.StatusRequestTimeout)
	default:
		http.Error(w, "request timeout", http.StatusGatewayTimeout)
	}
	return true
}
