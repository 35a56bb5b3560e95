package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"
)

const defaultStateStoreMaxEntries = 4096

// MemoryStateStore keeps CSRF state entries in process memory. Entries expire
// after the configured TTL; expired entries are pruned lazily on save and
// rejected on consume. Suitable for single-instance deployments; multi
// instance deployments should use the secret-backed store instead.
type MemoryStateStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]StateRecord
	nowFn      func() time.Time
}

func NewMemoryStateStore(ttl time.Duration) *MemoryStateStore {
	return NewMemoryStateStoreWithLimits(ttl, defaultStateStoreMaxEntries)
}

func NewMemoryStateStoreWithLimits(ttl time.Duration, maxEntries int) *MemoryStateStore {
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultStateStoreMaxEntries
	}
	return &MemoryStateStore{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    map[string]StateRecord{},
		nowFn:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStateStore) Save(_ context.Context, record StateRecord) error {
	if s == nil {
		return fmt.Errorf("core: state store is not configured")
	}
	state := strings.TrimSpace(record.State)
	if state == "" {
		return fmt.Errorf("core: oauth state is required")
	}

	now := s.nowFn()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(now)
	for len(s.entries) >= s.maxEntries {
		s.evictOldestLocked()
	}
	s.entries[state] = record
	return nil
}

// Consume removes the entry as part of the lookup so that concurrent calls
// with the same state resolve to at most one success.
func (s *MemoryStateStore) Consume(_ context.Context, state string) (StateRecord, error) {
	if s == nil {
		return StateRecord{}, fmt.Errorf("core: state store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return StateRecord{}, NewInvalidStateError("state is required")
	}

	s.mu.Lock()
	record, ok := s.entries[state]
	if ok {
		delete(s.entries, state)
	}
	s.mu.Unlock()

	if !ok {
		return StateRecord{}, NewInvalidStateError("not found or already redeemed")
	}
	if record.Expired(s.nowFn()) {
		return StateRecord{}, NewInvalidStateError("expired")
	}
	return record, nil
}

func (s *MemoryStateStore) pruneLocked(now time.Time) {
	for state, record := range s.entries {
		if record.Expired(now) {
			delete(s.entries, state)
		}
	}
}

func (s *MemoryStateStore) evictOldestLocked() {
	oldestState := ""
	var oldestAt time.Time
	for state, record := range s.entries {
		if oldestState == "" || record.CreatedAt.Before(oldestAt) {
			oldestState = state
			oldestAt = record.CreatedAt
		}
	}
	if oldestState != "" {
		delete(s.entries, oldestState)
	}
}

// GenerateState returns a 256-bit random state token, URL-safe encoded.
func GenerateState() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate oauth state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

var _ StateStore = (*MemoryStateStore)(nil)
