package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/http2"

	"github.com/RowanDark/xorgen/internal/config"
)

func testSettings(t *testing.T) settings {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.AuditLog = filepath.Join(dir, "audit.log")
	cfg.AuthToken = "test-token"
	cfg.JWTSecret = "test-secret"
	return settings{cfg: cfg, jwtIssuer: "xorgend-test", tokenTTL: time.Minute}
}

func TestServeBootsAndShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, lis, testSettings(t))
	}()

	base := "http://" + lis.Addr().String()
	client := &http.Client{Timeout: 2 * time.Second}
	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err = client.Get(base + "/healthz")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodPost, base+"/api/v1/tokens", strings.NewReader(`{"subject":"ops"}`))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("X-Xorgen-Token", "test-token")
	resp, err = client.Do(req)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	var issued struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&issued); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	_ = resp.Body.Close()
	if issued.Token == "" {
		t.Fatal("expected a token")
	}

	// Cleartext HTTP/2 with prior knowledge.
	h2 := &http.Client{
		Timeout: 2 * time.Second,
		Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
	body := `{"ciphertext":"150710100c07020a41424344","key_length":4}`
	req, err = http.NewRequest(http.MethodPost, base+"/api/v1/xor/recover", strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	resp, err = h2.Do(req)
	if err != nil {
		t.Fatalf("h2c recover: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.ProtoMajor != 2 {
		t.Fatalf("expected HTTP/2 response, got %s", resp.Proto)
	}
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), `"key":"abcd"`) {
		t.Fatalf("unexpected recover response %d: %s", resp.StatusCode, data)
	}

	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(7 * time.Second):
		t.Fatal("server did not shut down after context cancellation")
	}
}

func TestServeRejectsBadPlaceholder(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	s := testSettings(t)
	s.cfg.Placeholder = "??"
	if err := serve(context.Background(), lis, s); err == nil {
		t.Fatal("expected invalid placeholder to fail")
	}
}
