/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSecurityHeaders(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	h := securityHeadersMiddleware(ok)

	baseline := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Referrer-Policy":         "strict-origin-when-cross-origin",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
	}

	tests := []struct {
		name     string
		path     string
		proto    string
		wantHSTS bool
	}{
		{"plain http booking list", "/api/v1/advertising", "", false},
		{"forwarded https show status", "/api/v1/shows/current", "https", true},
		{"forwarded http health", "/healthz", "http", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.proto != "" {
				req.Header.Set("X-Forwarded-Proto", tt.proto)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			for name, want := range baseline {
				if got := rr.Header().Get(name); got != want {
					t.Errorf("%s = %q, want %q", name, got, want)
				}
			}
			hsts := rr.Header().Get("Strict-Transport-Security")
			if tt.wantHSTS && hsts != "max-age=31536000; includeSubDomains" {
				t.Errorf("expected HSTS, got %q", hsts)
			}
			if !tt.wantHSTS && hsts != "" {
				t.Errorf("unexpected HSTS %q", hsts)
			}
		})
	}
}
