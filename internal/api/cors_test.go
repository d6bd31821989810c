package api

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
)

func TestParseCORSOrigins(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"*"}},
		{" , ", []string{"*"}},
		{"http://a.local/", []string{"http://a.local"}},
		{"http://a.local, http://b.local", []string{"http://a.local", "http://b.local"}},
	}
	for _, tt := range tests {
		if got := ParseCORSOrigins(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("ParseCORSOrigins(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	config := DefaultCORSConfig()
	config.AllowOrigins = []string{"http://dash.local"}

	mux := http.NewServeMux()
	AddCORSHandler(mux, config)

	tests := []struct {
		origin     string
		wantOrigin string
	}{
		{"http://dash.local", "http://dash.local"},
		{"http://evil.local", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodOptions, "/api/status", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("origin %q: status = %d", tt.origin, rec.Code)
		}
		if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
			t.Errorf("origin %q: allow-origin = %q, want %q", tt.origin, got, tt.wantOrigin)
		}
		if tt.wantOrigin != "" && rec.Header().Get("Vary") != "Origin" {
			t.Errorf("origin %q: missing Vary header", tt.origin)
		}
	}
}

func TestCORSWildcard(t *testing.T) {
	mux := http.NewServeMux()
	AddCORSHandler(mux, DefaultCORSConfig())

	req := httptest.NewRequest(http.MethodOptions, "/anything", nil)
	req.Header.Set("Origin", "http://whatever.local")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q, want *", got)
	}
	if rec.Header().Get("Vary") != "" {
		t.Error("wildcard responses should not vary on origin")
	}
}
