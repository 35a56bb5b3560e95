package sqlstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-credentials/core"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type stubCredentialStore struct {
	mu       sync.Mutex
	records  map[string]core.CredentialRecord
	getCalls int
}

func newStubCredentialStore() *stubCredentialStore {
	return &stubCredentialStore{records: map[string]core.CredentialRecord{}}
}

func (s *stubCredentialStore) key(userID, providerID string) string {
	return userID + "::" + providerID
}

func (s *stubCredentialStore) Save(_ context.Context, record core.CredentialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[s.key(record.UserID, record.ProviderID)] = record
	return nil
}

func (s *stubCredentialStore) Get(_ context.Context, userID, providerID string) (core.CredentialRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	record, ok := s.records[s.key(userID, providerID)]
	if !ok {
		return core.CredentialRecord{}, core.NewNoCredentialError(userID, providerID)
	}
	return record, nil
}

func (s *stubCredentialStore) List(_ context.Context, _ string) ([]string, error) {
	return []string{}, nil
}

func (s *stubCredentialStore) Delete(_ context.Context, userID, providerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.key(userID, providerID)
	if _, ok := s.records[key]; !ok {
		return false, nil
	}
	delete(s.records, key)
	return true, nil
}

func (s *stubCredentialStore) Has(ctx context.Context, userID, providerID string) (bool, error) {
	_, err := s.Get(ctx, userID, providerID)
	if err != nil {
		if core.IsNoCredential(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func newTestCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestCachedCredentialStore_Get_MissFetchThenHit(t *testing.T) {
	base := newStubCredentialStore()
	if err := base.Save(context.Background(), core.CredentialRecord{
		UserID: "u1", ProviderID: "github", AccessToken: "at-1",
	}); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	store, err := NewCachedCredentialStore(base, newTestCacheService(t))
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	if _, err := store.Get(context.Background(), "u1", "github"); err != nil {
		t.Fatalf("first get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected first get to fetch base store once, got %d", base.getCalls)
	}

	if _, err := store.Get(context.Background(), "u1", "github"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected second get to be cache hit, base get calls=%d", base.getCalls)
	}
}

func TestCachedCredentialStore_Save_InvalidatesCachedKey(t *testing.T) {
	base := newStubCredentialStore()
	if err := base.Save(context.Background(), core.CredentialRecord{
		UserID: "u1", ProviderID: "github", AccessToken: "at-1",
	}); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	store, err := NewCachedCredentialStore(base, newTestCacheService(t))
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	if _, err := store.Get(context.Background(), "u1", "github"); err != nil {
		t.Fatalf("warm get: %v", err)
	}

	if err := store.Save(context.Background(), core.CredentialRecord{
		UserID: "u1", ProviderID: "github", AccessToken: "at-2",
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	record, err := store.Get(context.Background(), "u1", "github")
	if err != nil {
		t.Fatalf("get after save: %v", err)
	}
	if record.AccessToken != "at-2" {
		t.Fatalf("expected refreshed token after invalidation, got %q", record.AccessToken)
	}
}

func TestCachedCredentialStore_Delete_InvalidatesCachedKey(t *testing.T) {
	base := newStubCredentialStore()
	if err := base.Save(context.Background(), core.CredentialRecord{
		UserID: "u1", ProviderID: "github", AccessToken: "at-1",
	}); err != nil {
		t.Fatalf("seed save: %v", err)
	}

	store, err := NewCachedCredentialStore(base, newTestCacheService(t))
	if err != nil {
		t.Fatalf("new cached store: %v", err)
	}

	if _, err := store.Get(context.Background(), "u1", "github"); err != nil {
		t.Fatalf("warm get: %v", err)
	}

	removed, err := store.Delete(context.Background(), "u1", "github")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !removed {
		t.Fatal("expected delete to report removal")
	}

	if _, err := store.Get(context.Background(), "u1", "github"); !core.IsNoCredential(err) {
		t.Fatalf("expected no-credential after delete, got %v", err)
	}
}

func TestCredentialCacheKeyEscapesSegments(t *testing.T) {
	key, err := CredentialCacheKey("user/one", "github")
	if err != nil {
		t.Fatalf("cache key: %v", err)
	}
	expected := credentialCacheKeyPrefix + "::user%2Fone::github"
	if key != expected {
		t.Fatalf("unexpected cache key %q, want %q", key, expected)
	}
}
