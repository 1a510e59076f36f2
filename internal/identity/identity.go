// Package identity carries the authenticated caller through the request
// context. The value is built once by the guard and immutable afterwards.
package identity

import (
	"context"
	"maps"
	"slices"

	"github.com/certhub/session-gateway/internal/tokencache"
)

type contextKey string

const identityKey contextKey = "identity"

type Identity struct {
	userID string
	tokens map[string]tokencache.TokenRecord
}

// New builds an identity from the records the guard attached, keyed by
// resource id.
func New(userID string, tokens map[string]tokencache.TokenRecord) Identity {
	return Identity{
		userID: userID,
		tokens: maps.Clone(tokens),
	}
}

func (id Identity) UserID() string {
	return id.userID
}

// Token reports the record attached for a resource.
func (id Identity) Token(resourceID string) (tokencache.TokenRecord, bool) {
	rec, ok := id.tokens[resourceID]
	return rec, ok
}

// Resources lists the resource ids the identity holds tokens for, sorted.
func (id Identity) Resources() []string {
	return slices.Sorted(maps.Keys(id.tokens))
}

func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}
