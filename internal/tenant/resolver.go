// Package tenant resolves the active identity-provider tenant for a request.
package tenant

import "net/http"

// Common is the sentinel tenant meaning "no specific tenant pinned".
const Common = "common"

const (
	// Header carries an explicit tenant override for non-browser callers.
	Header = "x-tenant"
	// CookieName pins the tenant for subsequent browser requests.
	CookieName = "tenant"
)

// Resolve picks the tenant with header > cookie > fallback precedence. The
// sentinel "common" never wins over a later candidate.
func Resolve(header, cookie, fallback string) string {
	if header != "" && header != Common {
		return header
	}

	if cookie != "" && cookie != Common {
		return cookie
	}

	return fallback
}

// FromRequest resolves the tenant from the x-tenant header and the tenant
// cookie. Updating the cookie when the resolution differs is the caller's
// responsibility.
func FromRequest(r *http.Request, fallback string) string {
	var cookie string
	if c, err := r.Cookie(CookieName); err == nil {
		cookie = c.Value
	}

	return Resolve(r.Header.Get(Header), cookie, fallback)
}
