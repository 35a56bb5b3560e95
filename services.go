package credentials

import "github.com/goliatone/go-credentials/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type ProviderDescriptor = core.ProviderDescriptor
type CredentialRecord = core.CredentialRecord
type StateRecord = core.StateRecord
type TokenPayload = core.TokenPayload
type BeginResult = core.BeginResult

type CredentialStore = core.CredentialStore
type StateStore = core.StateStore
type TokenClient = core.TokenClient
type Registry = core.Registry
type SessionVerifier = core.SessionVerifier
type RefreshLocker = core.RefreshLocker
type BackoffScheduler = core.BackoffScheduler
type MetricsRecorder = core.MetricsRecorder

var (
	WithLogger           = core.WithLogger
	WithLoggerProvider   = core.WithLoggerProvider
	WithMetricsRecorder  = core.WithMetricsRecorder
	WithErrorFactory     = core.WithErrorFactory
	WithErrorMapper      = core.WithErrorMapper
	WithConfigProvider   = core.WithConfigProvider
	WithOptionsResolver  = core.WithOptionsResolver
	WithRegistry         = core.WithRegistry
	WithStateStore       = core.WithStateStore
	WithCredentialStore  = core.WithCredentialStore
	WithTokenClient      = core.WithTokenClient
	WithSessionVerifier  = core.WithSessionVerifier
	WithRefreshLocker    = core.WithRefreshLocker
	WithBackoffScheduler = core.WithBackoffScheduler
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
