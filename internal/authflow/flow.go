// Package authflow implements the authorization-code flow against the
// identity provider: guarding requests behind cached tokens, challenging
// unauthenticated browsers, accepting the provider callback, and logout.
package authflow

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	slogctx "github.com/veqryn/slog-context"

	"github.com/certhub/session-gateway/internal/config"
	"github.com/certhub/session-gateway/internal/identity"
	"github.com/certhub/session-gateway/internal/idp"
	"github.com/certhub/session-gateway/internal/nonce"
	"github.com/certhub/session-gateway/internal/requrl"
	"github.com/certhub/session-gateway/internal/serviceerr"
	"github.com/certhub/session-gateway/internal/sessionstore"
	"github.com/certhub/session-gateway/internal/tenant"
	"github.com/certhub/session-gateway/internal/tokencache"
)

// Mode selects how the guard challenges an unauthenticated request.
type Mode int

const (
	// ModeRedirect sends the browser straight to the provider's
	// authorization endpoint.
	ModeRedirect Mode = iota
	// ModeJSON responds 401 with the login URL, for callers that cannot
	// follow a cross-origin redirect.
	ModeJSON
)

type Flow struct {
	cfg      config.Gateway
	clientID string
	cache    *tokencache.Cache
	idp      idp.Exchanger
	nonces   nonce.Source
}

func New(cfg config.Gateway, clientID string, cache *tokencache.Cache, exchanger idp.Exchanger) *Flow {
	return &Flow{
		cfg:      cfg,
		clientID: clientID,
		cache:    cache,
		idp:      exchanger,
	}
}

// Guard wraps a handler so it only runs with a valid token for every listed
// resource attached to the request context. Expired records are refreshed in
// place; a missing record triggers the challenge and ends the request.
func (f *Flow) Guard(mode Mode, resources ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			sess, err := sessionstore.FromContext(ctx)
			if err != nil {
				writeError(ctx, w, serviceerr.ErrSessionStore)
				return
			}

			tenantID := tenant.FromRequest(r, f.cfg.TenantID)
			f.pinTenant(w, r, tenantID)

			tokens := make(map[string]tokencache.TokenRecord, len(resources))
			var userID string

			for _, resourceID := range resources {
				record, found := f.cache.Get(ctx, r, sess, tenantID, resourceID)
				if !found {
					f.challenge(w, r, mode, tenantID, resourceID, userID)
					return
				}

				if record.Expired(time.Now()) {
					record, err = f.refresh(w, r, sess, tenantID, resourceID, record)
					if err != nil {
						slogctx.Warn(ctx, "Token refresh failed",
							"tenant", tenantID, "resource", resourceID, "error", err)
						writeError(ctx, w, serviceerr.ErrRefresh)
						return
					}
				}

				tokens[resourceID] = record
				if userID == "" {
					userID = record.UserID
				}
			}

			next.ServeHTTP(w, r.WithContext(identity.NewContext(ctx, identity.New(userID, tokens))))
		})
	}
}

func (f *Flow) refresh(w http.ResponseWriter, r *http.Request, sess *sessionstore.Container, tenantID, resourceID string, current tokencache.TokenRecord) (tokencache.TokenRecord, error) {
	// a dropped client connection must not abort an in-flight refresh; the
	// new record still lands in the cache for the next request
	ctx := context.WithoutCancel(r.Context())

	refreshed, err := f.idp.AcquireByRefresh(ctx, tenantID, current)
	if err != nil {
		return tokencache.TokenRecord{}, err
	}

	// refresh responses omit the id token, keep the identity claims
	if refreshed.UserID == "" {
		refreshed.UserID = current.UserID
		refreshed.GivenName = current.GivenName
		refreshed.FamilyName = current.FamilyName
		refreshed.ObjectID = current.ObjectID
	}

	if err := f.cache.Put(ctx, w, sess, tenantID, resourceID, refreshed); err != nil {
		// the token itself is good, the request proceeds uncached
		slogctx.Warn(ctx, "Failed to cache refreshed token",
			"tenant", tenantID, "resource", resourceID, "error", err)
	}

	return refreshed, nil
}

// pinTenant updates the tenant cookie when the resolved tenant diverges
// from it, so later requests without the x-tenant header resolve the same.
func (f *Flow) pinTenant(w http.ResponseWriter, r *http.Request, tenantID string) {
	if tenantID == tenant.Common {
		return
	}

	if cookie, err := r.Cookie(f.cfg.Cookies.Tenant.Name); err == nil && cookie.Value == tenantID {
		return
	}

	http.SetCookie(w, f.cfg.Cookies.Tenant.ToCookie(tenantID))
}

// challenge records the flow state in cookies and points the browser at the
// provider's authorization endpoint.
func (f *Flow) challenge(w http.ResponseWriter, r *http.Request, mode Mode, tenantID, resourceID, userID string) {
	state := f.currentNonce(r)
	if state == "" {
		state = f.nonces.Nonce()
		http.SetCookie(w, f.cfg.Cookies.Nonce.ToCookie(state))
	}

	http.SetCookie(w, f.cfg.Cookies.Resource.ToCookie(resourceID))
	http.SetCookie(w, f.cfg.Cookies.Redirect.ToCookie(requrl.Original(r)))

	if mode == ModeJSON {
		writeJSON(r.Context(), w, http.StatusUnauthorized, map[string]string{
			"login": requrl.External(r, f.path("login")),
		})
		return
	}

	http.Redirect(w, r, f.authorizeURL(r, tenantID, resourceID, state, userID), http.StatusFound)
}

// currentNonce returns the nonce of an in-flight challenge, so parallel
// challenges from one browser agree on the state value.
func (f *Flow) currentNonce(r *http.Request) string {
	cookie, err := r.Cookie(f.cfg.Cookies.Nonce.Name)
	if err != nil {
		return ""
	}

	return cookie.Value
}

func (f *Flow) authorizeURL(r *http.Request, tenantID, resourceID, state, userID string) string {
	query := url.Values{}
	query.Set("response_type", "code")
	query.Set("response_mode", "query")
	query.Set("client_id", f.clientID)
	query.Set("redirect_uri", requrl.External(r, f.path("accept")))
	query.Set("resource", resourceID)
	query.Set("state", state)
	if userID != "" {
		query.Set("login_hint", userID)
	}

	return strings.TrimSuffix(f.cfg.Authority, "/") + "/" + tenantID + "/oauth2/authorize?" + query.Encode()
}

func (f *Flow) path(endpoint string) string {
	return strings.TrimSuffix(f.cfg.BasePath, "/") + "/" + endpoint
}
