package idp

import (
	"context"
	"fmt"
	"time"

	"github.com/openkcm/common-sdk/pkg/commoncfg"
	gocache "github.com/patrickmn/go-cache"
)

// SecretProvider yields the client secret used to authenticate against the
// identity provider's token endpoint.
type SecretProvider interface {
	ClientSecret(ctx context.Context) (string, error)
}

// SourceRefSecrets reads the client secret from its configured source on
// every call, so secret rotation takes effect without a restart.
type SourceRefSecrets struct {
	ref commoncfg.SourceRef
}

var _ SecretProvider = (*SourceRefSecrets)(nil)

func NewSourceRefSecrets(ref commoncfg.SourceRef) *SourceRefSecrets {
	return &SourceRefSecrets{ref: ref}
}

func (p *SourceRefSecrets) ClientSecret(_ context.Context) (string, error) {
	value, err := commoncfg.LoadValueFromSourceRef(p.ref)
	if err != nil {
		return "", fmt.Errorf("loading client secret from source: %w", err)
	}

	return string(value), nil
}

const cachedSecretKey = "clientSecret"

// CachedSecrets memoizes another provider for a bounded time.
type CachedSecrets struct {
	next  SecretProvider
	cache *gocache.Cache
}

var _ SecretProvider = (*CachedSecrets)(nil)

func NewCachedSecrets(next SecretProvider, ttl time.Duration) *CachedSecrets {
	return &CachedSecrets{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (p *CachedSecrets) ClientSecret(ctx context.Context) (string, error) {
	if value, found := p.cache.Get(cachedSecretKey); found {
		return value.(string), nil
	}

	secret, err := p.next.ClientSecret(ctx)
	if err != nil {
		return "", err
	}

	p.cache.Set(cachedSecretKey, secret, gocache.DefaultExpiration)

	return secret, nil
}
