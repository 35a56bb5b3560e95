package vault

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-credentials/core"
)

const defaultStateBasePath = "oauth/flow_states"

// StateStore keeps one-time CSRF state entries in the shared KV v2 mount so
// every instance behind a load balancer sees the same flow sessions.
// Redemption is a compare-and-set tombstone write at the version observed on
// read: of any number of concurrent redeemers exactly one CAS succeeds, the
// rest lose with InvalidState.
type StateStore struct {
	kv       KVClient
	basePath string
	ttl      time.Duration
	nowFn    func() time.Time
}

type StateStoreOption func(*StateStore)

func WithStateBasePath(basePath string) StateStoreOption {
	return func(s *StateStore) {
		s.basePath = strings.Trim(strings.TrimSpace(basePath), "/")
	}
}

func WithStateClock(now func() time.Time) StateStoreOption {
	return func(s *StateStore) {
		s.nowFn = now
	}
}

func NewStateStore(kv KVClient, ttl time.Duration, options ...StateStoreOption) (*StateStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("vault: kv client is required")
	}
	if ttl <= 0 {
		ttl = core.DefaultStateTTL
	}
	store := &StateStore{
		kv:       kv,
		basePath: defaultStateBasePath,
		ttl:      ttl,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(store)
	}
	if store.basePath == "" {
		store.basePath = defaultStateBasePath
	}
	if store.nowFn == nil {
		store.nowFn = func() time.Time { return time.Now().UTC() }
	}
	return store, nil
}

func (s *StateStore) statePath(state string) string {
	return s.basePath + "/" + strings.TrimSpace(state)
}

func (s *StateStore) Save(ctx context.Context, record core.StateRecord) error {
	if s == nil || s.kv == nil {
		return fmt.Errorf("vault: state store is not configured")
	}
	state := strings.TrimSpace(record.State)
	if state == "" {
		return fmt.Errorf("vault: oauth state is required")
	}

	now := s.nowFn()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = record.CreatedAt.Add(s.ttl)
	}

	// cas=0 creates the secret only if absent. States carry 256 bits of
	// entropy, so a collision here means a duplicate save, not bad luck.
	if _, err := s.kv.PutCAS(ctx, s.statePath(state), 0, map[string]any{
		"user_id":     strings.TrimSpace(record.UserID),
		"provider_id": strings.TrimSpace(record.ProviderID),
		"created_at":  record.CreatedAt.UTC().Format(time.RFC3339),
		"expires_at":  record.ExpiresAt.UTC().Format(time.RFC3339),
	}); err != nil {
		if errors.Is(err, ErrCASMismatch) {
			return fmt.Errorf("vault: oauth state already exists")
		}
		return core.NewStoreUnavailableError("state save", err)
	}
	return nil
}

func (s *StateStore) Consume(ctx context.Context, state string) (core.StateRecord, error) {
	if s == nil || s.kv == nil {
		return core.StateRecord{}, fmt.Errorf("vault: state store is not configured")
	}
	state = strings.TrimSpace(state)
	if state == "" {
		return core.StateRecord{}, core.NewInvalidStateError("state is required")
	}

	path := s.statePath(state)
	data, version, found, err := s.kv.Get(ctx, path)
	if err != nil {
		return core.StateRecord{}, core.NewStoreUnavailableError("state consume", err)
	}
	if !found || readString(data, "redeemed") != "" {
		return core.StateRecord{}, core.NewInvalidStateError("not found or already redeemed")
	}

	// Tombstone at the observed version. Losing the CAS means a concurrent
	// consume won the race.
	if _, err := s.kv.PutCAS(ctx, path, version, map[string]any{
		"redeemed":    "true",
		"redeemed_at": s.nowFn().UTC().Format(time.RFC3339),
	}); err != nil {
		if errors.Is(err, ErrCASMismatch) {
			return core.StateRecord{}, core.NewInvalidStateError("not found or already redeemed")
		}
		return core.StateRecord{}, core.NewStoreUnavailableError("state consume", err)
	}

	// Cleanup is best effort; the tombstone already blocks re-use.
	_ = s.kv.Delete(ctx, path)

	record := core.StateRecord{
		State:      state,
		UserID:     readString(data, "user_id"),
		ProviderID: readString(data, "provider_id"),
		CreatedAt:  readTime(data, "created_at"),
		ExpiresAt:  readTime(data, "expires_at"),
	}
	if record.Expired(s.nowFn()) {
		return core.StateRecord{}, core.NewInvalidStateError("expired")
	}
	return record, nil
}

var _ core.StateStore = (*StateStore)(nil)
