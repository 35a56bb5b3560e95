package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

// CredentialStore persists one CredentialRecord per (user, provider) key.
// Saves are full replacements and must be atomic from the caller's view;
// operations on different keys must be safely concurrent.
type CredentialStore interface {
	Save(ctx context.Context, record CredentialRecord) error
	Get(ctx context.Context, userID, providerID string) (CredentialRecord, error)
	List(ctx context.Context, userID string) ([]string, error)
	Delete(ctx context.Context, userID, providerID string) (bool, error)
	Has(ctx context.Context, userID, providerID string) (bool, error)
}

// StateStore holds one-time CSRF state entries. Consume must redeem
// atomically: of any number of concurrent calls with the same state, exactly
// one receives the record and the rest fail.
type StateStore interface {
	Save(ctx context.Context, record StateRecord) error
	Consume(ctx context.Context, state string) (StateRecord, error)
}

// TokenClient talks to a provider's token endpoint. Exchange performs the
// authorization-code grant, Refresh the refresh-token grant. Failed calls
// return a *TokenEndpointError when the endpoint answered at all.
type TokenClient interface {
	Exchange(ctx context.Context, descriptor ProviderDescriptor, code, redirectURI string) (TokenPayload, error)
	Refresh(ctx context.Context, descriptor ProviderDescriptor, refreshToken string) (TokenPayload, error)
}

// Registry resolves provider ids against the static catalog.
type Registry interface {
	Resolve(providerID string) (ProviderDescriptor, error)
	ListSupported() []string
}

// SessionVerifier maps an inbound session credential to a stable opaque user
// id. Implemented outside the core; consumed by BeginForSession.
type SessionVerifier interface {
	Verify(ctx context.Context, sessionCredential string) (string, error)
}

type LockHandle interface {
	Unlock(ctx context.Context) error
}

// RefreshLocker serializes refreshes for one (user, provider) key across
// instances. The in-process single-flight group already collapses local
// callers; the locker guards rotating refresh tokens between processes.
type RefreshLocker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (LockHandle, error)
}

type BackoffScheduler interface {
	NextDelay(attempt int) time.Duration
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
