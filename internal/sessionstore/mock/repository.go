package sessionmock

import (
	"context"
	"maps"

	"github.com/certhub/session-gateway/internal/sessionstore"
)

type RepositoryOption func(*Repository)

// Repository is an in-memory sessionstore.Repository for tests.
type Repository struct {
	containers map[string]map[string]string

	loadErr, saveErr, deleteErr error
}

func WithContainer(id string, entries map[string]string) RepositoryOption {
	return func(r *Repository) {
		r.containers[id] = maps.Clone(entries)
	}
}

func WithLoadError(err error) RepositoryOption {
	return func(r *Repository) { r.loadErr = err }
}

func WithSaveError(err error) RepositoryOption {
	return func(r *Repository) { r.saveErr = err }
}

func WithDeleteError(err error) RepositoryOption {
	return func(r *Repository) { r.deleteErr = err }
}

var _ = sessionstore.Repository(&Repository{})

func NewInMemRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		containers: make(map[string]map[string]string),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

func (r *Repository) Load(_ context.Context, sessionID string) (*sessionstore.Container, error) {
	if r.loadErr != nil {
		return nil, r.loadErr
	}

	if entries, ok := r.containers[sessionID]; ok {
		return sessionstore.NewLoadedContainer(sessionID, entries), nil
	}

	return sessionstore.NewContainer(sessionID), nil
}

func (r *Repository) Save(_ context.Context, container *sessionstore.Container) error {
	if r.saveErr != nil {
		return r.saveErr
	}

	entries := make(map[string]string)
	for _, k := range container.Keys() {
		v, _ := container.Get(k)
		entries[k] = v
	}

	r.containers[container.ID()] = entries

	return nil
}

func (r *Repository) Delete(_ context.Context, sessionID string) error {
	if r.deleteErr != nil {
		return r.deleteErr
	}

	delete(r.containers, sessionID)

	return nil
}

// Entries exposes the stored payload of a session for assertions.
func (r *Repository) Entries(sessionID string) map[string]string {
	return maps.Clone(r.containers[sessionID])
}
