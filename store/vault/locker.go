package vault

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-credentials/core"
	"github.com/google/uuid"
)

const defaultLockBasePath = "oauth/refresh_locks"

// RefreshLocker coordinates token refreshes across instances through
// short-lived lock records in the KV v2 mount. Acquisition is a cas=0 create;
// an expired lock is stolen with a CAS at its current version, so two
// stealers cannot both win.
type RefreshLocker struct {
	kv       KVClient
	basePath string
	nowFn    func() time.Time
}

type RefreshLockerOption func(*RefreshLocker)

func WithLockBasePath(basePath string) RefreshLockerOption {
	return func(l *RefreshLocker) {
		l.basePath = strings.Trim(strings.TrimSpace(basePath), "/")
	}
}

func WithLockClock(now func() time.Time) RefreshLockerOption {
	return func(l *RefreshLocker) {
		l.nowFn = now
	}
}

func NewRefreshLocker(kv KVClient, options ...RefreshLockerOption) (*RefreshLocker, error) {
	if kv == nil {
		return nil, fmt.Errorf("vault: kv client is required")
	}
	locker := &RefreshLocker{
		kv:       kv,
		basePath: defaultLockBasePath,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(locker)
	}
	if locker.basePath == "" {
		locker.basePath = defaultLockBasePath
	}
	if locker.nowFn == nil {
		locker.nowFn = func() time.Time { return time.Now().UTC() }
	}
	return locker, nil
}

func (l *RefreshLocker) lockPath(key string) string {
	return l.basePath + "/" + url.PathEscape(strings.TrimSpace(key))
}

func (l *RefreshLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (core.LockHandle, error) {
	if l == nil || l.kv == nil {
		return nil, fmt.Errorf("vault: refresh locker is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("vault: lock key is required")
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}

	now := l.nowFn()
	owner := uuid.NewString()
	path := l.lockPath(key)
	data := map[string]any{
		"owner":      owner,
		"expires_at": now.Add(ttl).UTC().Format(time.RFC3339),
	}

	current, version, found, err := l.kv.Get(ctx, path)
	if err != nil {
		return nil, core.NewStoreUnavailableError("lock acquire", err)
	}
	expectedVersion := 0
	if found {
		if expiresAt := readTime(current, "expires_at"); !expiresAt.IsZero() && now.Before(expiresAt) {
			return nil, fmt.Errorf("vault: refresh lock already held for %q", key)
		}
		expectedVersion = version
	}

	if _, err := l.kv.PutCAS(ctx, path, expectedVersion, data); err != nil {
		if errors.Is(err, ErrCASMismatch) {
			return nil, fmt.Errorf("vault: refresh lock already held for %q", key)
		}
		return nil, core.NewStoreUnavailableError("lock acquire", err)
	}
	return &lockHandle{locker: l, path: path, owner: owner}, nil
}

type lockHandle struct {
	locker *RefreshLocker
	path   string
	owner  string
}

// Unlock releases the lock if this handle still owns it. A lock stolen after
// expiry is left alone.
func (h *lockHandle) Unlock(ctx context.Context) error {
	if h == nil || h.locker == nil || h.locker.kv == nil {
		return nil
	}
	data, _, found, err := h.locker.kv.Get(ctx, h.path)
	if err != nil {
		return core.NewStoreUnavailableError("lock release", err)
	}
	if !found || readString(data, "owner") != h.owner {
		return nil
	}
	if err := h.locker.kv.Delete(ctx, h.path); err != nil {
		return core.NewStoreUnavailableError("lock release", err)
	}
	return nil
}

var _ core.RefreshLocker = (*RefreshLocker)(nil)
