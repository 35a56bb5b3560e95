package vault

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-credentials/core"
)

type fakeSecret struct {
	data    map[string]any
	version int
}

type fakeKV struct {
	mu      sync.Mutex
	secrets map[string]*fakeSecret
}

func newFakeKV() *fakeKV {
	return &fakeKV{secrets: map[string]*fakeSecret{}}
}

func (f *fakeKV) Get(_ context.Context, path string) (map[string]any, int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	secret, ok := f.secrets[path]
	if !ok {
		return nil, 0, false, nil
	}
	data := make(map[string]any, len(secret.data))
	for key, value := range secret.data {
		data[key] = value
	}
	return data, secret.version, true, nil
}

func (f *fakeKV) Put(_ context.Context, path string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	secret, ok := f.secrets[path]
	if !ok {
		secret = &fakeSecret{}
		f.secrets[path] = secret
	}
	secret.data = data
	secret.version++
	return nil
}

func (f *fakeKV) PutCAS(_ context.Context, path string, expectedVersion int, data map[string]any) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	secret, ok := f.secrets[path]
	current := 0
	if ok {
		current = secret.version
	}
	if current != expectedVersion {
		return 0, ErrCASMismatch
	}
	if !ok {
		secret = &fakeSecret{}
		f.secrets[path] = secret
	}
	secret.data = data
	secret.version = current + 1
	return secret.version, nil
}

func (f *fakeKV) List(_ context.Context, path string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := path + "/"
	keys := []string{}
	for stored := range f.secrets {
		if strings.HasPrefix(stored, prefix) {
			keys = append(keys, strings.TrimPrefix(stored, prefix))
		}
	}
	return keys, nil
}

func (f *fakeKV) Delete(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.secrets, path)
	return nil
}

func TestCredentialStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewCredentialStore(newFakeKV())
	if err != nil {
		t.Fatalf("store build failed: %v", err)
	}

	saved := core.CredentialRecord{
		UserID:       "u1",
		ProviderID:   "github",
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresAt:    time.Now().UTC().Add(time.Hour).Truncate(time.Second),
		Scope:        "repo user",
		UpdatedAt:    time.Now().UTC().Truncate(time.Second),
	}
	if err := store.Save(ctx, saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Get(ctx, "u1", "github")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.AccessToken != saved.AccessToken || got.RefreshToken != saved.RefreshToken {
		t.Fatalf("token mismatch: %+v", got)
	}
	if !got.ExpiresAt.Equal(saved.ExpiresAt) {
		t.Fatalf("expires_at mismatch: got %v want %v", got.ExpiresAt, saved.ExpiresAt)
	}
	if got.Scope != saved.Scope {
		t.Fatalf("scope mismatch: %q", got.Scope)
	}

	providers, err := store.List(ctx, "u1")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(providers) != 1 || providers[0] != "github" {
		t.Fatalf("unexpected provider list %v", providers)
	}
}

func TestCredentialStoreGetMissing(t *testing.T) {
	store, _ := NewCredentialStore(newFakeKV())
	_, err := store.Get(context.Background(), "u1", "github")
	if !core.IsNoCredential(err) {
		t.Fatalf("expected no-credential error, got %v", err)
	}
}

func TestCredentialStoreDeleteSemantics(t *testing.T) {
	ctx := context.Background()
	store, _ := NewCredentialStore(newFakeKV())

	removed, err := store.Delete(ctx, "u1", "github")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if removed {
		t.Fatal("delete on a never-connected pair must return false")
	}

	record := core.CredentialRecord{UserID: "u1", ProviderID: "github", AccessToken: "at-1"}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	removed, err = store.Delete(ctx, "u1", "github")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !removed {
		t.Fatal("delete on a connected pair must return true")
	}
	if _, err := store.Get(ctx, "u1", "github"); !core.IsNoCredential(err) {
		t.Fatalf("expected no-credential after delete, got %v", err)
	}
}

func TestStateStoreConsumeOnce(t *testing.T) {
	ctx := context.Background()
	store, err := NewStateStore(newFakeKV(), 10*time.Minute)
	if err != nil {
		t.Fatalf("store build failed: %v", err)
	}

	record := core.StateRecord{State: "state-1", UserID: "u1", ProviderID: "github"}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Consume(ctx, "state-1")
	if err != nil {
		t.Fatalf("first consume failed: %v", err)
	}
	if got.UserID != "u1" || got.ProviderID != "github" {
		t.Fatalf("unexpected record %+v", got)
	}

	if _, err := store.Consume(ctx, "state-1"); !core.IsInvalidState(err) {
		t.Fatalf("second consume must fail with invalid state, got %v", err)
	}
}

func TestStateStoreConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	store, _ := NewStateStore(newFakeKV(), 10*time.Minute)
	if err := store.Save(ctx, core.StateRecord{State: "state-2", UserID: "u1", ProviderID: "github"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = store.Consume(ctx, "state-2")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else if !core.IsInvalidState(err) {
			t.Fatalf("unexpected error kind: %v", err)
		}
	}
	if successes != 1 {
		t.Fatalf("expected exactly one successful consume, got %d", successes)
	}
}

func TestStateStoreExpiredConsume(t *testing.T) {
	ctx := context.Background()
	current := time.Now().UTC()
	store, _ := NewStateStore(newFakeKV(), time.Minute, WithStateClock(func() time.Time { return current }))

	if err := store.Save(ctx, core.StateRecord{State: "state-3", UserID: "u1", ProviderID: "github"}); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := store.Consume(ctx, "state-3"); !core.IsInvalidState(err) {
		t.Fatalf("expected invalid state for expired entry, got %v", err)
	}
}

func TestRefreshLockerAcquireAndRelease(t *testing.T) {
	ctx := context.Background()
	locker, err := NewRefreshLocker(newFakeKV())
	if err != nil {
		t.Fatalf("locker build failed: %v", err)
	}

	handle, err := locker.Acquire(ctx, "u1::github", 30*time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if _, err := locker.Acquire(ctx, "u1::github", 30*time.Second); err == nil {
		t.Fatal("second acquire should fail while lock is held")
	}
	if err := handle.Unlock(ctx); err != nil {
		t.Fatalf("unlock failed: %v", err)
	}
	if _, err := locker.Acquire(ctx, "u1::github", 30*time.Second); err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
}

func TestRefreshLockerStealsExpiredLock(t *testing.T) {
	ctx := context.Background()
	current := time.Now().UTC()
	locker, _ := NewRefreshLocker(newFakeKV(), WithLockClock(func() time.Time { return current }))

	stale, err := locker.Acquire(ctx, "u1::github", time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	current = current.Add(time.Minute)
	if _, err := locker.Acquire(ctx, "u1::github", 30*time.Second); err != nil {
		t.Fatalf("expired lock should be stealable: %v", err)
	}

	// The stale handle no longer owns the record; unlock must be a no-op.
	if err := stale.Unlock(ctx); err != nil {
		t.Fatalf("stale unlock failed: %v", err)
	}
	if _, err := locker.Acquire(ctx, "u1::github", 30*time.Second); err == nil {
		t.Fatal("stolen lock must still be held after stale unlock")
	}
}
