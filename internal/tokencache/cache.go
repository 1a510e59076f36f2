package tokencache

import (
	"context"
	"net/http"
	"strings"

	"github.com/certhub/session-gateway/internal/cryptostore"
	"github.com/certhub/session-gateway/internal/sessionstore"
)

// Namespace prefixes every cache key, so logout can remove all token
// entries without touching unrelated session payloads.
const Namespace = "azuread"

// Key builds the cache key for a (tenant, resource) pair. One record per
// pair per session.
func Key(tenantID, resourceID string) string {
	return Namespace + ":" + tenantID + ":" + resourceID
}

type Cache struct {
	crypto *cryptostore.Store
}

func New(crypto *cryptostore.Store) *Cache {
	return &Cache{crypto: crypto}
}

// Get reports the cached record for (tenant, resource), if the session
// holds a decryptable one.
func (c *Cache) Get(ctx context.Context, r *http.Request, sess *sessionstore.Container, tenantID, resourceID string) (TokenRecord, bool) {
	var record TokenRecord
	if !c.crypto.Get(ctx, r, sess, Key(tenantID, resourceID), &record) {
		return TokenRecord{}, false
	}

	return record, true
}

// Put replaces the cached record for (tenant, resource).
func (c *Cache) Put(ctx context.Context, w http.ResponseWriter, sess *sessionstore.Container, tenantID, resourceID string, record TokenRecord) error {
	return c.crypto.Put(ctx, w, sess, Key(tenantID, resourceID), record)
}

// RemoveNamespace deletes every token entry of the session, ciphertexts
// and key cookies both, and returns how many entries were removed.
func (c *Cache) RemoveNamespace(w http.ResponseWriter, sess *sessionstore.Container) int {
	removed := 0
	for _, key := range c.crypto.Keys(sess) {
		if !strings.HasPrefix(key, Namespace+":") {
			continue
		}

		c.crypto.Remove(w, sess, key)
		removed++
	}

	return removed
}
