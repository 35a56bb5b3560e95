package core

import (
	"fmt"
	"strings"
	"time"
)

// ProviderDescriptor is the static shape of a third-party OAuth provider plus
// the client credentials injected at construction time. A descriptor without
// both client id and client secret is known but not usable.
type ProviderDescriptor struct {
	ID           string
	Name         string
	AuthURL      string
	TokenURL     string
	Scope        string
	ResponseType string
	ClientID     string
	ClientSecret string
}

func (d ProviderDescriptor) Configured() bool {
	return strings.TrimSpace(d.ClientID) != "" && strings.TrimSpace(d.ClientSecret) != ""
}

func (d ProviderDescriptor) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("core: provider id is required")
	}
	if strings.TrimSpace(d.AuthURL) == "" {
		return fmt.Errorf("core: auth url is required for provider %q", d.ID)
	}
	if strings.TrimSpace(d.TokenURL) == "" {
		return fmt.Errorf("core: token url is required for provider %q", d.ID)
	}
	return nil
}

// CredentialRecord is the stored token set for one (user, provider) pair.
// The credential store owns it exclusively; saves replace the whole record.
type CredentialRecord struct {
	UserID       string
	ProviderID   string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Scope        string
	UpdatedAt    time.Time
}

func (r CredentialRecord) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("core: user id is required")
	}
	if strings.TrimSpace(r.ProviderID) == "" {
		return fmt.Errorf("core: provider id is required")
	}
	if strings.TrimSpace(r.AccessToken) == "" {
		return fmt.Errorf("core: access token is required")
	}
	return nil
}

// StateRecord binds a one-time CSRF state token to the (user, provider) pair
// that redeeming it will connect.
type StateRecord struct {
	State      string
	UserID     string
	ProviderID string
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

func (r StateRecord) Expired(now time.Time) bool {
	if r.ExpiresAt.IsZero() {
		return false
	}
	return now.UTC().After(r.ExpiresAt.UTC())
}

// ConnectionStatus labels the lifecycle stage of a (user, provider) pair.
type ConnectionStatus string

const (
	ConnectionStatusUnconnected  ConnectionStatus = "unconnected"
	ConnectionStatusPending      ConnectionStatus = "pending"
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusRefreshing   ConnectionStatus = "refreshing"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
)

// TokenPayload is a parsed token endpoint response.
type TokenPayload struct {
	AccessToken  string
	TokenType    string
	RefreshToken string
	Scope        string
	ExpiresIn    int64
}

// TokenEndpointError carries the upstream status and detail of a failed token
// endpoint call so callers can distinguish transient failures from terminal
// ones.
type TokenEndpointError struct {
	Operation   string
	StatusCode  int
	ErrorCode   string
	Description string
}

func (e *TokenEndpointError) Error() string {
	if e == nil {
		return "core: token endpoint error"
	}
	detail := strings.TrimSpace(e.Description)
	if detail == "" {
		detail = strings.TrimSpace(e.ErrorCode)
	}
	if detail == "" {
		detail = "unknown error"
	}
	op := strings.TrimSpace(e.Operation)
	if op == "" {
		op = "token request"
	}
	return fmt.Sprintf("core: %s failed (%d): %s", op, e.StatusCode, detail)
}

// Transient reports whether the failure is worth retrying. Only server-side
// errors qualify; 4xx responses indicate a terminal grant problem.
func (e *TokenEndpointError) Transient() bool {
	if e == nil {
		return false
	}
	return e.StatusCode >= 500
}

// BeginResult is the outcome of starting an authorization flow.
type BeginResult struct {
	ProviderID string
	URL        string
	State      string
}

func credentialKey(userID, providerID string) string {
	return strings.TrimSpace(userID) + "::" + strings.TrimSpace(providerID)
}
