package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testServer() *server {
	return &server{
		cfg: Config{
			Addr: "localhost:8000",
			CORS: CORSConfig{TrustedOrigins: []string{"https://console.example.com"}},
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestCorsPreflight(t *testing.T) {
	s := testServer()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("preflight reached the handler")
	})

	r := httptest.NewRequest(http.MethodOptions, "/api/messages/search", nil)
	r.Header.Set("Origin", "https://console.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()

	s.corsMiddleware(next).ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://console.example.com" {
		t.Fatalf("Allow-Origin = %q, want the trusted origin", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got != "OPTIONS, GET, POST" {
		t.Fatalf("Allow-Methods = %q, want OPTIONS, GET, POST", got)
	}
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestCorsUntrustedOrigin(t *testing.T) {
	s := testServer()
	reached := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	})

	r := httptest.NewRequest(http.MethodGet, "/api/healthcheck", nil)
	r.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()

	s.corsMiddleware(next).ServeHTTP(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("Allow-Origin = %q, want none for an untrusted origin", got)
	}
	if !reached {
		t.Fatalf("request never reached the handler")
	}
}
