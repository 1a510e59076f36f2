// Package serviceerr defines the closed set of errors this service reports
// to clients, together with their HTTP status mapping.
package serviceerr

import "net/http"

type Code string

const (
	// CodeInvalidRequest covers missing or malformed client input, such as
	// an absent authorization code on the callback.
	CodeInvalidRequest Code = "invalid_request"
	// CodeStateMismatch is the CSRF rejection: the state query parameter
	// does not match the nonce cookie.
	CodeStateMismatch Code = "state_mismatch"
	// CodeIdentityProvider reports an error the identity provider returned
	// on the callback. Only the provider's error code is echoed.
	CodeIdentityProvider Code = "identity_provider_error"
	CodeTokenExchange    Code = "token_exchange_failure"
	CodeRefresh          Code = "refresh_failure"
	CodeSessionStore     Code = "session_unavailable"
	CodeUnknown          Code = "unknown"
)

type Error struct {
	Err         Code
	Description string
}

var (
	ErrMissingCode     = &Error{Err: CodeInvalidRequest, Description: "missing authorization code"}
	ErrMissingResource = &Error{Err: CodeInvalidRequest, Description: "missing resource cookie"}
	ErrStateMismatch   = &Error{Err: CodeStateMismatch, Description: "state does not match nonce"}
	ErrTokenExchange   = &Error{Err: CodeTokenExchange, Description: "exchanging the authorization code failed"}
	ErrRefresh         = &Error{Err: CodeRefresh, Description: "refreshing the access token failed"}
	ErrSessionStore    = &Error{Err: CodeSessionStore, Description: "session store unavailable"}
	ErrUnknown         = &Error{Err: CodeUnknown, Description: "unknown error"}
)

// IdentityProvider classifies an error code the provider passed back on the
// callback. The remaining callback query parameters are deliberately not
// carried into the response.
func IdentityProvider(providerCode string) *Error {
	return &Error{Err: CodeIdentityProvider, Description: providerCode}
}

func (e *Error) Error() string {
	if e.Description == "" {
		return string(e.Err)
	}

	return string(e.Err) + ": " + e.Description
}

func (e *Error) HTTPStatus() int {
	switch e.Err {
	case CodeInvalidRequest:
		return http.StatusBadRequest
	case CodeStateMismatch:
		return http.StatusForbidden
	case CodeIdentityProvider, CodeTokenExchange, CodeRefresh:
		return http.StatusBadGateway
	case CodeSessionStore:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
