package requrl_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/certhub/session-gateway/internal/requrl"
)

func TestExternal(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		tls     bool
		path    string
		want    string
	}{
		{
			name: "plain request",
			path: "/auth/accept",
			want: "http://example.test/auth/accept",
		},
		{
			name: "tls request",
			tls:  true,
			path: "/auth/accept",
			want: "https://example.test/auth/accept",
		},
		{
			name: "forwarded headers win",
			headers: map[string]string{
				"X-Forwarded-Proto":  "https",
				"X-Forwarded-Host":   "public.example.com",
				"X-Forwarded-Prefix": "/api",
			},
			path: "/auth/accept",
			want: "https://public.example.com/api/auth/accept",
		},
		{
			name: "prefix only",
			headers: map[string]string{
				"X-Forwarded-Prefix": "/api",
			},
			path: "/login",
			want: "http://example.test/api/login",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://example.test/", nil)
			if tt.tls {
				req.TLS = &tls.ConnectionState{}
			}
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, requrl.External(req, tt.path))
		})
	}
}

func TestOriginal(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://example.test/users?page=2", nil)

	assert.Equal(t, "http://example.test/users?page=2", requrl.Original(req))
}
