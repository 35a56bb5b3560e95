package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-credentials/core"
)

const (
	defaultWhoamiPath     = "/sessions/whoami"
	defaultRequestTimeout = 10 * time.Second
	maxSessionBodyBytes   = 1 << 20 // 1 MiB
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// KratosVerifier resolves a session token to a stable user id through an
// Ory Kratos compatible whoami endpoint. The identity id is treated as an
// opaque string; no identity semantics live here.
type KratosVerifier struct {
	baseURL    string
	httpClient HTTPDoer
	timeout    time.Duration
}

type VerifierOption func(*KratosVerifier)

func WithHTTPClient(client HTTPDoer) VerifierOption {
	return func(v *KratosVerifier) {
		v.httpClient = client
	}
}

func WithRequestTimeout(timeout time.Duration) VerifierOption {
	return func(v *KratosVerifier) {
		v.timeout = timeout
	}
}

func NewKratosVerifier(baseURL string, options ...VerifierOption) (*KratosVerifier, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("identity: base url is required")
	}
	verifier := &KratosVerifier{
		baseURL: baseURL,
		timeout: defaultRequestTimeout,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(verifier)
	}
	if verifier.httpClient == nil {
		verifier.httpClient = &http.Client{Timeout: verifier.timeout}
	}
	return verifier, nil
}

type whoamiResponse struct {
	Active   bool `json:"active"`
	Identity struct {
		ID string `json:"id"`
	} `json:"identity"`
}

func (v *KratosVerifier) Verify(ctx context.Context, sessionCredential string) (string, error) {
	if v == nil || v.httpClient == nil {
		return "", fmt.Errorf("identity: verifier is not configured")
	}
	sessionCredential = strings.TrimSpace(sessionCredential)
	if sessionCredential == "" {
		return "", core.NewSessionInvalidError("session token is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	requestCtx := ctx
	cancel := func() {}
	if v.timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, v.timeout)
	}
	defer cancel()

	request, err := http.NewRequestWithContext(requestCtx, http.MethodGet, v.baseURL+defaultWhoamiPath, nil)
	if err != nil {
		return "", err
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("X-Session-Token", sessionCredential)

	response, err := v.httpClient.Do(request)
	if err != nil {
		return "", fmt.Errorf("identity: whoami request failed: %w", err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxSessionBodyBytes+1))
	if readErr != nil {
		return "", fmt.Errorf("identity: read whoami response: %w", readErr)
	}
	if int64(len(body)) > maxSessionBodyBytes {
		return "", fmt.Errorf("identity: whoami response exceeds %d bytes", maxSessionBodyBytes)
	}

	if response.StatusCode == http.StatusUnauthorized || response.StatusCode == http.StatusForbidden {
		return "", core.NewSessionInvalidError(fmt.Sprintf("whoami rejected session (%d)", response.StatusCode))
	}
	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("identity: whoami returned status %d", response.StatusCode)
	}

	var decoded whoamiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("identity: decode whoami response: %w", err)
	}
	if !decoded.Active {
		return "", core.NewSessionInvalidError("session is not active")
	}
	userID := strings.TrimSpace(decoded.Identity.ID)
	if userID == "" {
		return "", core.NewSessionInvalidError("session has no identity")
	}
	return userID, nil
}

var _ core.SessionVerifier = (*KratosVerifier)(nil)
