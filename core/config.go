package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultStateTTL        = 10 * time.Minute
	DefaultRefreshBuffer   = 5 * time.Minute
	DefaultRequestTimeout  = 10 * time.Second
	DefaultRefreshAttempts = 3
)

type Config struct {
	ServiceName     string        `koanf:"service_name" mapstructure:"service_name"`
	CallbackBaseURL string        `koanf:"callback_base_url" mapstructure:"callback_base_url"`
	StateTTL        time.Duration `koanf:"state_ttl" mapstructure:"state_ttl"`
	RefreshBuffer   time.Duration `koanf:"refresh_buffer" mapstructure:"refresh_buffer"`
	RequestTimeout  time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	RefreshAttempts int           `koanf:"refresh_attempts" mapstructure:"refresh_attempts"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:     "credentials",
		StateTTL:        DefaultStateTTL,
		RefreshBuffer:   DefaultRefreshBuffer,
		RequestTimeout:  DefaultRequestTimeout,
		RefreshAttempts: DefaultRefreshAttempts,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.StateTTL <= 0 {
		return fmt.Errorf("core: state_ttl must be greater than zero")
	}
	if c.RefreshBuffer < 0 {
		return fmt.Errorf("core: refresh_buffer must not be negative")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("core: request_timeout must be greater than zero")
	}
	if c.RefreshAttempts < 1 {
		return fmt.Errorf("core: refresh_attempts must be at least 1")
	}
	if trimmed := strings.TrimSpace(c.CallbackBaseURL); trimmed != "" {
		parsed, err := url.Parse(trimmed)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("core: callback_base_url must be an absolute URL")
		}
	}
	return nil
}

// CallbackURL composes the provider-scoped redirect URI registered with the
// provider. Empty when no callback base is configured.
func (c Config) CallbackURL(providerID string) string {
	base := strings.TrimRight(strings.TrimSpace(c.CallbackBaseURL), "/")
	if base == "" {
		return ""
	}
	return base + "/oauth/callback/" + strings.TrimSpace(providerID)
}
