package core

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"absolute callback", func(c *Config) { c.CallbackBaseURL = "https://app.example.com" }, false},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, true},
		{"zero state ttl", func(c *Config) { c.StateTTL = 0 }, true},
		{"negative refresh buffer", func(c *Config) { c.RefreshBuffer = -time.Second }, true},
		{"zero request timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
		{"zero refresh attempts", func(c *Config) { c.RefreshAttempts = 0 }, true},
		{"relative callback url", func(c *Config) { c.CallbackBaseURL = "/oauth" }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestConfigCallbackURL(t *testing.T) {
	cfg := Config{CallbackBaseURL: "https://app.example.com/"}
	if got := cfg.CallbackURL("github"); got != "https://app.example.com/oauth/callback/github" {
		t.Fatalf("unexpected callback url %q", got)
	}

	cfg.CallbackBaseURL = ""
	if got := cfg.CallbackURL("github"); got != "" {
		t.Fatalf("expected empty callback url, got %q", got)
	}
}
