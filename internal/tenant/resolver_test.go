package tenant_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/certhub/session-gateway/internal/tenant"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		cookie   string
		fallback string
		want     string
	}{
		{name: "header wins", header: "alpha", cookie: "beta", fallback: "common", want: "alpha"},
		{name: "cookie when no header", cookie: "beta", fallback: "common", want: "beta"},
		{name: "fallback when neither", fallback: "common", want: "common"},
		{name: "common header is not a pin", header: "common", cookie: "beta", fallback: "common", want: "beta"},
		{name: "common cookie is not a pin", cookie: "common", fallback: "contoso", want: "contoso"},
		{name: "both common falls through", header: "common", cookie: "common", fallback: "contoso", want: "contoso"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tenant.Resolve(tt.header, tt.cookie, tt.fallback))
		})
	}
}

func TestFromRequest(t *testing.T) {
	t.Run("reads header and cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(tenant.Header, "alpha")
		req.AddCookie(&http.Cookie{Name: tenant.CookieName, Value: "beta"})

		assert.Equal(t, "alpha", tenant.FromRequest(req, "common"))
	})

	t.Run("cookie only", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: tenant.CookieName, Value: "beta"})

		assert.Equal(t, "beta", tenant.FromRequest(req, "common"))
	})

	t.Run("fallback", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)

		assert.Equal(t, "common", tenant.FromRequest(req, "common"))
	})
}
