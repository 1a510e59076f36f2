package sessionstore

import (
	"context"
	"errors"
	"net/http"

	slogctx "github.com/veqryn/slog-context"

	"github.com/certhub/session-gateway/internal/config"
	"github.com/certhub/session-gateway/internal/serviceerr"
)

// Using an unexported type prevents key collisions from other packages.
type contextKey string

const containerKey contextKey = "sessionContainer"

// FromContext retrieves the session container placed by Middleware.
func FromContext(ctx context.Context) (*Container, error) {
	c, ok := ctx.Value(containerKey).(*Container)
	if !ok {
		return nil, errors.New("session container not found in context")
	}

	return c, nil
}

// Middleware resolves the session id cookie (minting a fresh id when the
// cookie is absent), loads the container into the request context, and
// saves it back after the handler when it was mutated.
func Middleware(repo Repository, cookie config.CookieTemplate, newID func() string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var sessionID string
			if c, err := r.Cookie(cookie.Name); err == nil && c.Value != "" {
				sessionID = c.Value
			} else {
				sessionID = newID()
				http.SetCookie(w, cookie.ToCookie(sessionID))
			}

			container, err := repo.Load(ctx, sessionID)
			if err != nil {
				slogctx.Error(ctx, "Failed to load session container", "error", err)

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(serviceerr.ErrSessionStore.HTTPStatus())
				_, _ = w.Write([]byte(`{"error": "` + string(serviceerr.CodeSessionStore) + `"}`))

				return
			}

			ctx = context.WithValue(ctx, containerKey, container)
			next.ServeHTTP(w, r.WithContext(ctx))

			if !container.Dirty() {
				return
			}

			// a dropped client connection must not abort the save
			if err := repo.Save(context.WithoutCancel(ctx), container); err != nil {
				slogctx.Error(ctx, "Failed to save session container", "error", err, "session_id", sessionID)
			}
		})
	}
}
