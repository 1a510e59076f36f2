package sessionstore

import "context"

// Repository persists session containers. Load returns a fresh empty
// container when nothing is stored under the id: an unknown session is the
// normal initial state, not a fault.
type Repository interface {
	Load(ctx context.Context, sessionID string) (*Container, error)
	Save(ctx context.Context, container *Container) error
	Delete(ctx context.Context, sessionID string) error
}
