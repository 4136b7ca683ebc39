package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/heartmarshall/promptly/internal/domain"
)

// CacheKey is the local storage key of the cached identity.
const CacheKey = "promptly_user"

type keyValueStore interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// IdentityCache keeps a denormalized copy of the signed-in identity for fast
// rehydration at startup. It is never the source of truth.
type IdentityCache struct {
	store keyValueStore
}

// NewIdentityCache creates an IdentityCache over store.
func NewIdentityCache(store keyValueStore) *IdentityCache {
	return &IdentityCache{store: store}
}

// Load returns the cached identity, or nil when nothing usable is stored.
func (c *IdentityCache) Load() (*domain.Identity, error) {
	raw, err := c.store.Get(CacheKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cached identity: %w", err)
	}

	var cached domain.CachedIdentity
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, nil
	}
	ident, ok := cached.Identity()
	if !ok {
		return nil, nil
	}
	return &ident, nil
}

// Save writes ident with lastSignIn stamped to at.
func (c *IdentityCache) Save(ident domain.Identity, at time.Time) error {
	cached := ident.ToCached()
	cached.LastSignIn = at.UTC()
	raw, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("encode cached identity: %w", err)
	}
	if err := c.store.Set(CacheKey, string(raw)); err != nil {
		return fmt.Errorf("save cached identity: %w", err)
	}
	return nil
}

// Clear removes the cached identity.
func (c *IdentityCache) Clear() error {
	if err := c.store.Delete(CacheKey); err != nil {
		return fmt.Errorf("clear cached identity: %w", err)
	}
	return nil
}
