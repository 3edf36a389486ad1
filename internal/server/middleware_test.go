package server

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"coagen/internal/auth"
	"coagen/internal/testutil"

	"go.uber.org/zap"
)

func TestGzipMiddleware(t *testing.T) {
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("Hello World"))
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Error("Expected Content-Encoding: gzip")
	}

	gr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("Failed to create gzip reader: %v", err)
	}
	defer gr.Close()

	body, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("Failed to read gzip body: %v", err)
	}
	if string(body) != "Hello World" {
		t.Errorf("Expected 'Hello World', got '%s'", string(body))
	}
}

func TestGzipMiddleware_ErrorResponse(t *testing.T) {
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Error("Expected Content-Encoding: gzip even for error responses")
	}
}

func TestGzipMiddleware_ServeContentLength(t *testing.T) {
	payload := bytes.Repeat([]byte("certificate "), 200)
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "coa.txt", time.Time{}, bytes.NewReader(payload))
	}))

	srv := httptest.NewServer(handler)
	defer srv.Close()

	req, _ := http.NewRequest("GET", srv.URL, nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}
	defer resp.Body.Close()

	if resp.Header.Get("Content-Length") != "" {
		t.Errorf("Content-Length %q should be dropped for gzip bodies", resp.Header.Get("Content-Length"))
	}
	gr, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	body, err := io.ReadAll(gr)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(body, payload) {
		t.Errorf("body length %d, want %d", len(body), len(payload))
	}
}

func TestGzipMiddleware_NotModified(t *testing.T) {
	modified := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "coa.docx", modified, bytes.NewReader([]byte("certificate")))
	}))

	req := httptest.NewRequest("GET", "/api/v1/files/coa.docx", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("If-Modified-Since", modified.Add(time.Hour).Format(http.TimeFormat))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Code != http.StatusNotModified {
		t.Fatalf("Expected status 304, got %d", w.Code)
	}
	if ce := w.Header().Get("Content-Encoding"); ce != "" {
		t.Errorf("304 carries Content-Encoding %q", ce)
	}
	if w.Body.Len() != 0 {
		t.Errorf("304 has a %d byte body", w.Body.Len())
	}
}

func TestGzipMiddleware_SkipsUpgrade(t *testing.T) {
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("raw"))
	}))
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("Upgrade", "websocket")
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") != "" {
		t.Error("upgrade requests must not be compressed")
	}
	if w.Body.String() != "raw" {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestGzipMiddleware_NoGzipAccept(t *testing.T) {
	handler := GzipMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Hello World"))
	}))

	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	if w.Header().Get("Content-Encoding") == "gzip" {
		t.Error("Expected no Content-Encoding: gzip")
	}
	if w.Body.String() != "Hello World" {
		t.Errorf("Expected 'Hello World', got '%s'", w.Body.String())
	}
}

const testAPIKey = "Lab-Key-2024-abcdef"

func testKeyring(t *testing.T) *auth.Keyring {
	t.Helper()
	hash, err := auth.HashKey(testAPIKey)
	if err != nil {
		t.Fatalf("HashKey: %v", err)
	}
	return auth.NewKeyring([]auth.Key{{Name: "lab", Hash: hash}})
}

func TestRequireAPIKey(t *testing.T) {
	var actor string
	handler := RequireAPIKey(testKeyring(t))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor = auth.Actor(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		path   string
		key    string
		header string
		want   int
		actor  string
	}{
		{"health is public", "/health", "", "", http.StatusOK, auth.Anonymous},
		{"missing key", "/api/v1/templates", "", "", http.StatusUnauthorized, ""},
		{"wrong key", "/api/v1/templates", "Wrong-Key-2024-abcdef", "", http.StatusUnauthorized, ""},
		{"bearer key", "/api/v1/templates", testAPIKey, "", http.StatusOK, "lab"},
		{"header key", "/api/v1/templates", "", testAPIKey, http.StatusOK, "lab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor = ""
			req := testutil.KeyRequest("GET", tt.path, nil, tt.key)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			testutil.AssertStatus(t, w, tt.want)
			if actor != tt.actor {
				t.Errorf("actor = %q, want %q", actor, tt.actor)
			}
		})
	}
}

func TestRequireAPIKey_EmptyKeyring(t *testing.T) {
	handler := RequireAPIKey(auth.NewKeyring(nil))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/history", nil))
	testutil.AssertStatus(t, w, http.StatusNoContent)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter()
	handler := RateLimitMiddleware(rl, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest("GET", "/api/v1/templates", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		if i == 0 && w.Header().Get("X-RateLimit-Remaining") != "1" {
			t.Errorf("X-RateLimit-Remaining = %q", w.Header().Get("X-RateLimit-Remaining"))
		}
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v", codes)
	}

	// Other clients and non-API paths are unaffected.
	req := httptest.NewRequest("GET", "/api/v1/templates", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	req = httptest.NewRequest("GET", "/health", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	rl.Reset()
	req = httptest.NewRequest("GET", "/api/v1/templates", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestLoggingMiddleware_Preflight(t *testing.T) {
	called := false
	handler := LoggingMiddleware(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("OPTIONS", "/api/v1/coas", nil))

	testutil.AssertStatus(t, w, http.StatusOK)
	if called {
		t.Error("preflight should not reach the handler")
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("missing CORS header")
	}
}
