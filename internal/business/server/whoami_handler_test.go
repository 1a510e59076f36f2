package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certhub/session-gateway/internal/identity"
	"github.com/certhub/session-gateway/internal/tokencache"
)

func TestWhoamiHandler(t *testing.T) {
	expiry := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	id := identity.New("alice@example.com", map[string]tokencache.TokenRecord{
		"https://api.example.com": {
			AccessToken: "at-1",
			TenantID:    "tenant-a",
			ExpiresOn:   expiry,
			GivenName:   "Alice",
			FamilyName:  "Smith",
		},
	})

	req := httptest.NewRequest(http.MethodGet, "http://gateway.test/whoami", nil)
	req = req.WithContext(identity.NewContext(req.Context(), id))
	rec := httptest.NewRecorder()
	whoamiHandler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	raw := rec.Body.String()

	var body whoamiResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	assert.Equal(t, "alice@example.com", body.UserID)
	assert.Equal(t, "Alice", body.GivenName)
	assert.Equal(t, "Smith", body.FamilyName)
	require.Contains(t, body.Resources, "https://api.example.com")
	assert.Equal(t, "tenant-a", body.Resources["https://api.example.com"].TenantID)
	assert.Equal(t, expiry, body.Resources["https://api.example.com"].ExpiresOn)

	// the access token never appears in the response
	assert.NotContains(t, raw, "at-1")
}

func TestWhoamiHandlerWithoutIdentity(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://gateway.test/whoami", nil)
	rec := httptest.NewRecorder()
	whoamiHandler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
