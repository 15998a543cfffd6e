package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/keymint/keymint/internal/auth"
	"github.com/keymint/keymint/internal/keys"
	"github.com/keymint/keymint/internal/metrics"
	"github.com/keymint/keymint/internal/ratelimit"
	"github.com/keymint/keymint/internal/sealer"
	"github.com/keymint/keymint/internal/service"
)

func jsonBody(t *testing.T, v any) io.Reader {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal body: %v", err)
	}
	return bytes.NewReader(data)
}

func readerOf(s string) io.Reader {
	return strings.NewReader(s)
}

// newTestRouter wires the full HTTP stack over in-memory fakes.
func newTestRouter(t *testing.T, limit int, window time.Duration) http.Handler {
	t.Helper()

	logger := discardLogger()
	recorder := metrics.NewInMemory()

	s, err := sealer.New([]byte("router-test-secret"))
	if err != nil {
		t.Fatalf("sealer.New failed: %v", err)
	}
	manager := keys.NewManager(&fakeKeyStore{}, s, keys.DefaultKeyTTL, logger, recorder)
	if err := manager.EnsureValidKey(context.Background(), time.Now()); err != nil {
		t.Fatalf("EnsureValidKey failed: %v", err)
	}

	credentials, err := service.NewCredentials(newFakeUserStore(), auth.NewHasher(), logger, recorder)
	if err != nil {
		t.Fatalf("NewCredentials failed: %v", err)
	}
	tokens := service.NewTokenIssuer(manager, "keymint", 15*time.Minute)

	return NewRouter(RouterConfig{
		Logger:  logger,
		Base:    New(),
		Health:  NewHealthHandler(nil),
		JWKS:    NewJWKSHandler(manager, logger, recorder),
		Auth:    NewAuthHandler(credentials, tokens, logger),
		Limiter: ratelimit.New(limit, window),
		Window:  window,
		Metrics: recorder,
	})
}

func doJSON(t *testing.T, router http.Handler, method, path string, body io.Reader, remoteAddr string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if remoteAddr != "" {
		req.RemoteAddr = remoteAddr
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	parsed := make(map[string]json.RawMessage)
	_ = json.Unmarshal(rec.Body.Bytes(), &parsed)
	return rec, parsed
}

func TestRouter_RegisterAuthJWKSFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, ratelimit.DefaultLimit, ratelimit.DefaultWindow)

	rec, body := doJSON(t, router, http.MethodPost, "/register",
		jsonBody(t, map[string]string{"username": "carol", "email": "carol@example.com"}), "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var password string
	if err := json.Unmarshal(body["password"], &password); err != nil || password == "" {
		t.Fatalf("register: expected a password, got %s", rec.Body.String())
	}

	rec, body = doJSON(t, router, http.MethodPost, "/auth",
		jsonBody(t, map[string]string{"username": "carol", "password": password}), "192.0.2.1:5000")
	if rec.Code != http.StatusOK {
		t.Fatalf("auth: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var message, token string
	_ = json.Unmarshal(body["message"], &message)
	_ = json.Unmarshal(body["token"], &token)
	if message != "authenticated" {
		t.Errorf("auth: expected authenticated message, got %q", message)
	}
	if token == "" {
		t.Error("auth: expected a token")
	}

	rec, body = doJSON(t, router, http.MethodGet, "/.well-known/jwks.json", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("jwks: expected 200, got %d", rec.Code)
	}
	var keySet struct {
		Keys []struct {
			Kty string `json:"kty"`
			Alg string `json:"alg"`
			Kid string `json:"kid"`
			N   string `json:"n"`
			E   string `json:"e"`
		} `json:"keys"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &keySet); err != nil {
		t.Fatalf("jwks: failed to decode: %v", err)
	}
	if len(keySet.Keys) == 0 {
		t.Fatal("jwks: expected at least one key")
	}
	for _, k := range keySet.Keys {
		if k.Kty != "RSA" || k.Alg != "RS256" {
			t.Errorf("jwks: unexpected key parameters: kty=%q alg=%q", k.Kty, k.Alg)
		}
		if k.Kid == "" || k.N == "" || k.E == "" {
			t.Errorf("jwks: incomplete key entry: %+v", k)
		}
	}
}

func TestRouter_AuthRateLimited(t *testing.T) {
	t.Parallel()

	const limit = 3
	router := newTestRouter(t, limit, time.Hour)

	body := map[string]string{"username": "nobody", "password": "pw"}
	for i := 0; i < limit; i++ {
		rec, _ := doJSON(t, router, http.MethodPost, "/auth", jsonBody(t, body), "203.0.113.9:4000")
		if rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d: unexpectedly rate limited", i+1)
		}
	}

	rec, parsed := doJSON(t, router, http.MethodPost, "/auth", jsonBody(t, body), "203.0.113.9:4000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after %d requests, got %d", limit, rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected a Retry-After header")
	}
	var errMsg string
	_ = json.Unmarshal(parsed["error"], &errMsg)
	if errMsg != "too many requests" {
		t.Errorf("unexpected error body: %q", errMsg)
	}

	// A different client IP gets a fresh window.
	rec, _ = doJSON(t, router, http.MethodPost, "/auth", jsonBody(t, body), "198.51.100.7:4000")
	if rec.Code == http.StatusTooManyRequests {
		t.Error("distinct client should not share the window")
	}
}

func TestRouter_RateLimitOnlyGatesAuth(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, 1, time.Hour)

	body := map[string]string{"username": "nobody", "password": "pw"}
	doJSON(t, router, http.MethodPost, "/auth", jsonBody(t, body), "203.0.113.1:1000")
	rec, _ := doJSON(t, router, http.MethodPost, "/auth", jsonBody(t, body), "203.0.113.1:1000")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}

	for _, path := range []string{"/ping", "/.well-known/jwks.json", "/healthz"} {
		rec, _ := doJSON(t, router, http.MethodGet, path, nil, "203.0.113.1:1000")
		if rec.Code == http.StatusTooManyRequests {
			t.Errorf("%s must not be rate limited", path)
		}
	}
}

func TestRouter_UnknownRoute(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t, ratelimit.DefaultLimit, ratelimit.DefaultWindow)

	rec, parsed := doJSON(t, router, http.MethodGet, "/nope", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	var errMsg string
	_ = json.Unmarshal(parsed["error"], &errMsg)
	if errMsg != "resource not found" {
		t.Errorf("unexpected 404 body: %q", errMsg)
	}

	rec, _ = doJSON(t, router, http.MethodDelete, "/ping", nil, "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}
