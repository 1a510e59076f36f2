package sessionvalkey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/certhub/session-gateway/internal/sessionstore"
)

const objectType = "container"

var (
	ErrGetContainer   = errors.New("getting session container from store")
	ErrStoreContainer = errors.New("setting session container into storage")
)

// Repository persists session containers in Valkey under
// <prefix>:container:<sessionID> with the configured TTL.
type Repository struct {
	valkey valkey.Client
	prefix string
	ttl    time.Duration
}

var _ = sessionstore.Repository(&Repository{})

func NewRepository(valkeyClient valkey.Client, prefix string, ttl time.Duration) *Repository {
	return &Repository{
		valkey: valkeyClient,
		prefix: strings.TrimSuffix(prefix, ":"),
		ttl:    ttl,
	}
}

// containerData is the wire form of a session container.
type containerData struct {
	Entries map[string]string `json:"entries"`
}

func (r *Repository) Load(ctx context.Context, sessionID string) (*sessionstore.Container, error) {
	bytes, err := r.valkey.Do(ctx, r.valkey.B().Get().Key(r.key(sessionID)).Build()).AsBytes()
	if err != nil {
		valkeyErr, ok := valkey.IsValkeyErr(err)
		if ok && valkeyErr.IsNil() {
			// no stored container is the normal first-visit state
			return sessionstore.NewContainer(sessionID), nil
		}

		return nil, errors.Join(ErrGetContainer, err)
	}

	var data containerData
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	return sessionstore.NewLoadedContainer(sessionID, data.Entries), nil
}

func (r *Repository) Save(ctx context.Context, container *sessionstore.Container) error {
	data := containerData{Entries: make(map[string]string)}
	for _, k := range container.Keys() {
		v, _ := container.Get(k)
		data.Entries[k] = v
	}

	bytes, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling json: %w", err)
	}

	cmd := r.valkey.B().Set().
		Key(r.key(container.ID())).
		Value(valkey.BinaryString(bytes)).
		Px(r.ttl).
		Build()
	if err := r.valkey.Do(ctx, cmd).Error(); err != nil {
		return errors.Join(ErrStoreContainer, err)
	}

	return nil
}

func (r *Repository) Delete(ctx context.Context, sessionID string) error {
	if err := r.valkey.Do(ctx, r.valkey.B().Del().Key(r.key(sessionID)).Build()).Error(); err != nil {
		return fmt.Errorf("executing del command: %w", err)
	}

	return nil
}

func (r *Repository) key(sessionID string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, objectType, sessionID)
}
