package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-credentials/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const credentialCacheKeyPrefix = "go-credentials::credential::v1"

// CachedCredentialStore is a read-through cache over a credential store.
// Writes go to the base first and then drop the cached entry, so a stale
// token is never served after a refresh lands.
type CachedCredentialStore struct {
	base  core.CredentialStore
	cache repositorycache.CacheService
}

func NewCachedCredentialStore(
	base core.CredentialStore,
	cacheService repositorycache.CacheService,
) (*CachedCredentialStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base credential store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: credential cache service is required")
	}
	return &CachedCredentialStore{base: base, cache: cacheService}, nil
}

// CredentialCacheKey returns the deterministic cache key contract for
// credential reads: go-credentials::credential::v1::<user_id>::<provider_id>
// with each segment URL-path escaped.
func CredentialCacheKey(userID, providerID string) (string, error) {
	userID = strings.TrimSpace(userID)
	providerID = strings.TrimSpace(providerID)
	if userID == "" {
		return "", fmt.Errorf("sqlstore: user id is required")
	}
	if providerID == "" {
		return "", fmt.Errorf("sqlstore: provider id is required")
	}
	return strings.Join([]string{
		credentialCacheKeyPrefix,
		url.PathEscape(userID),
		url.PathEscape(providerID),
	}, "::"), nil
}

func (s *CachedCredentialStore) Save(ctx context.Context, record core.CredentialRecord) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	if err := s.base.Save(ctx, record); err != nil {
		return err
	}
	cacheKey, err := CredentialCacheKey(record.UserID, record.ProviderID)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func (s *CachedCredentialStore) Get(ctx context.Context, userID, providerID string) (core.CredentialRecord, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.CredentialRecord{}, fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	cacheKey, err := CredentialCacheKey(userID, providerID)
	if err != nil {
		return core.CredentialRecord{}, err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (core.CredentialRecord, error) {
		return s.base.Get(ctx, userID, providerID)
	})
}

// List is uncached: it backs enumeration surfaces where staleness is more
// visible than the read is hot.
func (s *CachedCredentialStore) List(ctx context.Context, userID string) ([]string, error) {
	if s == nil || s.base == nil {
		return nil, fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	return s.base.List(ctx, userID)
}

func (s *CachedCredentialStore) Delete(ctx context.Context, userID, providerID string) (bool, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return false, fmt.Errorf("sqlstore: cached credential store is not configured")
	}
	removed, err := s.base.Delete(ctx, userID, providerID)
	if err != nil {
		return false, err
	}
	cacheKey, keyErr := CredentialCacheKey(userID, providerID)
	if keyErr != nil {
		return removed, keyErr
	}
	if cacheErr := s.cache.Delete(ctx, cacheKey); cacheErr != nil {
		return removed, cacheErr
	}
	return removed, nil
}

func (s *CachedCredentialStore) Has(ctx context.Context, userID, providerID string) (bool, error) {
	_, err := s.Get(ctx, userID, providerID)
	if err != nil {
		if core.IsNoCredential(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
