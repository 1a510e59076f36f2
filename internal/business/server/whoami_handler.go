package server

import (
	"encoding/json"
	"net/http"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/certhub/session-gateway/internal/identity"
)

type whoamiToken struct {
	TenantID  string    `json:"tenantId"`
	ExpiresOn time.Time `json:"expiresOn"`
}

type whoamiResponse struct {
	UserID     string                 `json:"userId"`
	GivenName  string                 `json:"givenName,omitempty"`
	FamilyName string                 `json:"familyName,omitempty"`
	Resources  map[string]whoamiToken `json:"resources"`
}

// whoamiHandler reports the authenticated identity. Token metadata only,
// the tokens themselves never leave the server.
func whoamiHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identity.FromContext(r.Context())
		if !ok {
			// the guard in front of this handler attaches the identity
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		response := whoamiResponse{
			UserID:    id.UserID(),
			Resources: map[string]whoamiToken{},
		}

		for _, resourceID := range id.Resources() {
			token, _ := id.Token(resourceID)
			response.Resources[resourceID] = whoamiToken{
				TenantID:  token.TenantID,
				ExpiresOn: token.ExpiresOn,
			}

			if response.GivenName == "" {
				response.GivenName = token.GivenName
				response.FamilyName = token.FamilyName
			}
		}

		w.Header().Set("Content-Type", "application/json")

		if err := json.NewEncoder(w).Encode(response); err != nil {
			slogctx.Error(r.Context(), "Failed to write whoami response", "error", err)
		}
	})
}
