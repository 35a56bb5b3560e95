package core

import (
	"context"
	"testing"
	"time"
)

func TestCfgxConfigProviderAppliesDefaults(t *testing.T) {
	provider := NewCfgxConfigProvider(nil)
	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.ServiceName != "credentials" {
		t.Fatalf("unexpected service name %q", cfg.ServiceName)
	}
	if cfg.StateTTL != DefaultStateTTL {
		t.Fatalf("unexpected state ttl %v", cfg.StateTTL)
	}
}

func TestCfgxConfigProviderOverlaysLoadedValues(t *testing.T) {
	provider := NewCfgxConfigProvider(staticRawConfigLoader{Values: map[string]any{
		"callback_base_url": "https://loaded.example.com",
		"refresh_attempts":  5,
	}})
	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.CallbackBaseURL != "https://loaded.example.com" {
		t.Fatalf("unexpected callback base %q", cfg.CallbackBaseURL)
	}
	if cfg.RefreshAttempts != 5 {
		t.Fatalf("unexpected refresh attempts %d", cfg.RefreshAttempts)
	}
	// Untouched fields keep their defaults.
	if cfg.RequestTimeout != DefaultRequestTimeout {
		t.Fatalf("unexpected request timeout %v", cfg.RequestTimeout)
	}
}

func TestGoOptionsResolverPrecedence(t *testing.T) {
	defaults := DefaultConfig()
	loaded := Config{
		CallbackBaseURL: "https://loaded.example.com",
		StateTTL:        20 * time.Minute,
	}
	runtime := Config{
		CallbackBaseURL: "https://runtime.example.com",
	}

	resolved, err := GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	// Runtime wins over loaded config.
	if resolved.CallbackBaseURL != "https://runtime.example.com" {
		t.Fatalf("unexpected callback base %q", resolved.CallbackBaseURL)
	}
	// Loaded config wins over defaults.
	if resolved.StateTTL != 20*time.Minute {
		t.Fatalf("unexpected state ttl %v", resolved.StateTTL)
	}
	// Defaults fill everything else.
	if resolved.ServiceName != "credentials" {
		t.Fatalf("unexpected service name %q", resolved.ServiceName)
	}
	if resolved.RefreshAttempts != DefaultRefreshAttempts {
		t.Fatalf("unexpected refresh attempts %d", resolved.RefreshAttempts)
	}
}

func TestGoOptionsResolverRejectsInvalidMerge(t *testing.T) {
	defaults := DefaultConfig()
	runtime := Config{CallbackBaseURL: "not-a-url"}
	if _, err := (GoOptionsResolver{}).Resolve(defaults, defaults, runtime); err == nil {
		t.Fatal("expected validation error for relative callback url")
	}
}

func TestNewServiceAppliesRuntimeConfig(t *testing.T) {
	svc, err := NewService(Config{
		CallbackBaseURL: "https://runtime.example.com",
		RefreshAttempts: 2,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	cfg := svc.Config()
	if cfg.CallbackBaseURL != "https://runtime.example.com" {
		t.Fatalf("unexpected callback base %q", cfg.CallbackBaseURL)
	}
	if cfg.RefreshAttempts != 2 {
		t.Fatalf("unexpected refresh attempts %d", cfg.RefreshAttempts)
	}
	if cfg.StateTTL != DefaultStateTTL {
		t.Fatalf("unexpected state ttl %v", cfg.StateTTL)
	}
}

func TestNewServiceWiresDefaultDependencies(t *testing.T) {
	svc, err := NewService(Config{})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	deps := svc.Dependencies()
	if deps.Registry == nil || deps.StateStore == nil || deps.CredentialStore == nil {
		t.Fatalf("default stores not wired: %+v", deps)
	}
	if deps.RefreshLocker == nil || deps.BackoffScheduler == nil {
		t.Fatalf("refresh plumbing not wired: %+v", deps)
	}
	if deps.Logger == nil || deps.MetricsRecorder == nil {
		t.Fatalf("observability not wired: %+v", deps)
	}
}
