package authflow

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	slogctx "github.com/veqryn/slog-context"

	"github.com/certhub/session-gateway/internal/requrl"
	"github.com/certhub/session-gateway/internal/serviceerr"
	"github.com/certhub/session-gateway/internal/sessionstore"
	"github.com/certhub/session-gateway/internal/tenant"
)

// Accept handles the provider's redirect back after the authorization
// prompt. The challenge cookies are consumed whatever the outcome.
func (f *Flow) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := sessionstore.FromContext(ctx)
	if err != nil {
		writeError(ctx, w, serviceerr.ErrSessionStore)
		return
	}

	state := f.currentNonce(r)
	resourceID := f.cookieValue(r, f.cfg.Cookies.Resource.Name)
	redirectTarget := f.cookieValue(r, f.cfg.Cookies.Redirect.Name)

	http.SetCookie(w, f.cfg.Cookies.Nonce.ToExpiredCookie())
	http.SetCookie(w, f.cfg.Cookies.Resource.ToExpiredCookie())
	http.SetCookie(w, f.cfg.Cookies.Redirect.ToExpiredCookie())

	query := r.URL.Query()

	if providerCode := query.Get("error"); providerCode != "" {
		// the full callback query stays in the logs only
		slogctx.Warn(ctx, "Identity provider reported an error",
			"error", providerCode, "query", r.URL.RawQuery)
		writeError(ctx, w, serviceerr.IdentityProvider(providerCode))
		return
	}

	code := query.Get("code")
	if code == "" {
		writeError(ctx, w, serviceerr.ErrMissingCode)
		return
	}

	if state == "" || query.Get("state") != state {
		writeError(ctx, w, serviceerr.ErrStateMismatch)
		return
	}

	if resourceID == "" {
		writeError(ctx, w, serviceerr.ErrMissingResource)
		return
	}

	tenantID := tenant.FromRequest(r, f.cfg.TenantID)

	// the authorization code is single use; a dropped client connection
	// must not abort the exchange after the provider consumed it
	record, err := f.idp.AcquireByCode(context.WithoutCancel(ctx), tenantID, resourceID, code, requrl.External(r, f.path("accept")))
	if err != nil {
		slogctx.Warn(ctx, "Authorization code exchange failed",
			"tenant", tenantID, "resource", resourceID, "error", err)
		writeError(ctx, w, serviceerr.ErrTokenExchange)
		return
	}

	// the token's tenant claim keys the cache, a "common" login resolves to
	// the user's home tenant here
	if err := f.cache.Put(ctx, w, sess, record.TenantID, resourceID, record); err != nil {
		slogctx.Error(ctx, "Failed to cache exchanged token",
			"tenant", record.TenantID, "resource", resourceID, "error", err)
		writeError(ctx, w, serviceerr.ErrUnknown)
		return
	}

	if record.TenantID != tenant.Common {
		http.SetCookie(w, f.cfg.Cookies.Tenant.ToCookie(record.TenantID))
	}

	if redirectTarget == "" {
		redirectTarget = f.cfg.LandingPath
	}

	http.Redirect(w, r, redirectTarget, http.StatusFound)
}

// Login drives the full flow for the configured resource set. An already
// authenticated browser is sent to the optional local redirect target.
func (f *Flow) Login() http.Handler {
	return f.Guard(ModeRedirect, f.cfg.Resources...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if target := r.URL.Query().Get("redirect"); isLocalPath(target) {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}

		writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "authenticated"})
	}))
}

// Logout drops every cached token of the session. Logging out twice is fine.
func (f *Flow) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sess, err := sessionstore.FromContext(ctx)
	if err != nil {
		writeError(ctx, w, serviceerr.ErrSessionStore)
		return
	}

	removed := f.cache.RemoveNamespace(w, sess)
	http.SetCookie(w, f.cfg.Cookies.Tenant.ToExpiredCookie())

	slogctx.Info(ctx, "Session logged out", "removedTokens", removed)
	writeJSON(ctx, w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (f *Flow) cookieValue(r *http.Request, name string) string {
	cookie, err := r.Cookie(name)
	if err != nil {
		return ""
	}

	return cookie.Value
}

// isLocalPath accepts only same-site redirect targets.
func isLocalPath(target string) bool {
	return strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//")
}

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func writeError(ctx context.Context, w http.ResponseWriter, serr *serviceerr.Error) {
	writeJSON(ctx, w, serr.HTTPStatus(), errorBody{
		Error:       string(serr.Err),
		Description: serr.Description,
	})
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slogctx.Error(ctx, "Failed to write response body", "error", err)
	}
}
