package core

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryCredentialStore is a process-local CredentialStore used by tests and
// embedded deployments. Saves replace the whole record under one lock, so a
// reader never observes a half-written record.
type MemoryCredentialStore struct {
	mu      sync.RWMutex
	records map[string]map[string]CredentialRecord
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{records: map[string]map[string]CredentialRecord{}}
}

func (s *MemoryCredentialStore) Save(_ context.Context, record CredentialRecord) error {
	if s == nil {
		return fmt.Errorf("core: credential store is not configured")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	userID := strings.TrimSpace(record.UserID)
	providerID := strings.TrimSpace(record.ProviderID)

	s.mu.Lock()
	defer s.mu.Unlock()
	byProvider, ok := s.records[userID]
	if !ok {
		byProvider = map[string]CredentialRecord{}
		s.records[userID] = byProvider
	}
	byProvider[providerID] = record
	return nil
}

func (s *MemoryCredentialStore) Get(_ context.Context, userID, providerID string) (CredentialRecord, error) {
	if s == nil {
		return CredentialRecord{}, fmt.Errorf("core: credential store is not configured")
	}
	userID = strings.TrimSpace(userID)
	providerID = strings.TrimSpace(providerID)

	s.mu.RLock()
	record, ok := s.records[userID][providerID]
	s.mu.RUnlock()

	if !ok {
		return CredentialRecord{}, NewNoCredentialError(userID, providerID)
	}
	return record, nil
}

func (s *MemoryCredentialStore) List(_ context.Context, userID string) ([]string, error) {
	if s == nil {
		return nil, fmt.Errorf("core: credential store is not configured")
	}

	s.mu.RLock()
	byProvider := s.records[strings.TrimSpace(userID)]
	ids := make([]string, 0, len(byProvider))
	for providerID := range byProvider {
		ids = append(ids, providerID)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids, nil
}

func (s *MemoryCredentialStore) Delete(_ context.Context, userID, providerID string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("core: credential store is not configured")
	}
	userID = strings.TrimSpace(userID)
	providerID = strings.TrimSpace(providerID)

	s.mu.Lock()
	defer s.mu.Unlock()
	byProvider, ok := s.records[userID]
	if !ok {
		return false, nil
	}
	if _, exists := byProvider[providerID]; !exists {
		return false, nil
	}
	delete(byProvider, providerID)
	if len(byProvider) == 0 {
		delete(s.records, userID)
	}
	return true, nil
}

func (s *MemoryCredentialStore) Has(ctx context.Context, userID, providerID string) (bool, error) {
	_, err := s.Get(ctx, userID, providerID)
	if err != nil {
		if IsNoCredential(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MemoryRefreshLocker serializes refreshes per key within one process.
type MemoryRefreshLocker struct {
	mu    sync.Mutex
	locks map[string]time.Time
	nowFn func() time.Time
}

func NewMemoryRefreshLocker() *MemoryRefreshLocker {
	return &MemoryRefreshLocker{
		locks: map[string]time.Time{},
		nowFn: func() time.Time { return time.Now().UTC() },
	}
}

func (l *MemoryRefreshLocker) Acquire(_ context.Context, key string, ttl time.Duration) (LockHandle, error) {
	if l == nil {
		return nil, fmt.Errorf("core: refresh locker is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("core: lock key is required")
	}
	if ttl <= 0 {
		ttl = defaultRefreshLockTTL
	}

	now := l.nowFn()
	l.mu.Lock()
	defer l.mu.Unlock()

	if until, ok := l.locks[key]; ok && now.Before(until) {
		return nil, fmt.Errorf("core: refresh lock already held for %q", key)
	}
	l.locks[key] = now.Add(ttl)
	return &memoryLockHandle{locker: l, key: key}, nil
}

type memoryLockHandle struct {
	locker *MemoryRefreshLocker
	key    string
	once   sync.Once
}

func (h *memoryLockHandle) Unlock(_ context.Context) error {
	if h == nil || h.locker == nil {
		return nil
	}
	h.once.Do(func() {
		h.locker.mu.Lock()
		delete(h.locker.locks, h.key)
		h.locker.mu.Unlock()
	})
	return nil
}

var (
	_ CredentialStore = (*MemoryCredentialStore)(nil)
	_ RefreshLocker   = (*MemoryRefreshLocker)(nil)
)
