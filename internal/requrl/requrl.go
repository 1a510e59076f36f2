// Package requrl reconstructs externally visible URLs for a request,
// honoring the forwarding headers a fronting proxy sets.
package requrl

import "net/http"

// External returns the absolute URL a client should use to reach path on
// this service. X-Forwarded-Proto, X-Forwarded-Host, and X-Forwarded-Prefix
// take precedence over what the local listener sees.
func External(r *http.Request, path string) string {
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}

	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}

	prefix := r.Header.Get("X-Forwarded-Prefix")

	return proto + "://" + host + prefix + path
}

// Original returns the absolute URL of the request itself, used as the
// post-login redirect target.
func Original(r *http.Request) string {
	return External(r, r.URL.RequestURI())
}
