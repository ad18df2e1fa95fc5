package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAPIKey(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "s3cret"
	router := newTestRouter(cfg, &fakeTranslator{})

	tests := []struct {
		name   string
		key    string
		status int
	}{
		{"missing key", "", http.StatusUnauthorized},
		{"wrong key", "nope", http.StatusUnauthorized},
		{"right key", "s3cret", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := multipartRequest(t, "a.jpg", testJPEG(t), nil)
			if tt.key != "" {
				req.Header.Set(apiKeyHeader, tt.key)
			}
			if w := serve(router, req); w.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, w.Code)
			}
		})
	}
}

func TestAPIKey_HealthIsPublic(t *testing.T) {
	cfg := testConfig()
	cfg.APIKey = "s3cret"
	router := newTestRouter(cfg, &fakeTranslator{})

	if w := serve(router, httptest.NewRequest(http.MethodGet, "/health", nil)); w.Code != http.StatusOK {
		t.Errorf("Expected /health without key to succeed, got %d", w.Code)
	}
}

func TestRequestID(t *testing.T) {
	router := newTestRouter(testConfig(), &fakeTranslator{})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/health", nil))
	if id := w.Header().Get(requestIDHeader); len(id) != 36 {
		t.Errorf("Expected generated UUID request id, got %q", id)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = serve(router, req)
	if id := w.Header().Get(requestIDHeader); id != "abc-123" {
		t.Errorf("Expected caller's request id to be echoed, got %q", id)
	}
}

func TestCors(t *testing.T) {
	router := newTestRouter(testConfig(), &fakeTranslator{})

	req := httptest.NewRequest(http.MethodOptions, "/translate", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "X-API-Key")

	w := serve(router, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Expected wildcard allow origin, got %q", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestParseFlag(t *testing.T) {
	tests := []struct {
		in     string
		want   bool
		wantOK bool
	}{
		{"true", true, true},
		{"1", true, true},
		{"YES", true, true},
		{"on", true, true},
		{"false", false, true},
		{"0", false, true},
		{"off", false, true},
		{"", false, true},
		{"maybe", false, false},
	}
	for _, tt := range tests {
		got, ok := parseFlag(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseFlag(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}
