package http

import (
	"bytes"
	"context"
	"encoding/json"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tableside/community-server/internal/auth"
	"github.com/tableside/community-server/internal/config"
	"github.com/tableside/community-server/internal/core"
	"github.com/tableside/community-server/internal/log"
	"github.com/tableside/community-server/internal/store"
	"github.com/tableside/community-server/internal/store/sqlite"
)

func testLogger() *zerolog.Logger {
	return log.Discard()
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Addr = ":0"
	cfg.JWTSecret = "test-secret"
	cfg.TypingIdle = 100 * time.Millisecond
	return &cfg
}

// startTestServer wires a full server on an in-memory store.
func startTestServer(t *testing.T) (*httptest.Server, store.Store, *auth.Service) {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("create test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := testConfig()
	authService := auth.NewService(st, &auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	})

	hub := core.NewHub(testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	server := NewServer(hub, authService, st, cfg, testLogger())
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return ts, st, authService
}

func postJSON(t *testing.T, ts *httptest.Server, path string, body any) *stdhttp.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := ts.Client().Post(ts.URL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *stdhttp.Response, into any) {
	t.Helper()

	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

// registerUser creates an account over the API and returns its token.
func registerUser(t *testing.T, ts *httptest.Server, username, displayName string) string {
	t.Helper()

	resp := postJSON(t, ts, "/api/register", RegisterRequest{
		Username:    username,
		DisplayName: displayName,
		Password:    "secret123",
	})
	if resp.StatusCode != stdhttp.StatusCreated {
		t.Fatalf("register %s: unexpected status %d", username, resp.StatusCode)
	}

	var authResp AuthResponse
	decodeJSON(t, resp, &authResp)
	if authResp.Token == "" {
		t.Fatalf("register %s: empty token", username)
	}
	return authResp.Token
}
