package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-credentials/core"
)

const (
	defaultTokenRequestTimeout = 10 * time.Second
	maxTokenResponseBodyBytes  = 1 << 20 // 1 MiB
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPTokenClient implements the token endpoint protocol shared by the
// catalog providers: a form-encoded POST carrying the client credentials in
// the body, answered with either JSON or a form-encoded body.
type HTTPTokenClient struct {
	httpClient HTTPDoer
	timeout    time.Duration
}

type TokenClientOption func(*HTTPTokenClient)

func WithHTTPClient(client HTTPDoer) TokenClientOption {
	return func(c *HTTPTokenClient) {
		c.httpClient = client
	}
}

func WithRequestTimeout(timeout time.Duration) TokenClientOption {
	return func(c *HTTPTokenClient) {
		c.timeout = timeout
	}
}

func NewHTTPTokenClient(options ...TokenClientOption) *HTTPTokenClient {
	client := &HTTPTokenClient{timeout: defaultTokenRequestTimeout}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: client.timeout}
	}
	return client
}

func (c *HTTPTokenClient) Exchange(ctx context.Context, descriptor core.ProviderDescriptor, code, redirectURI string) (core.TokenPayload, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return core.TokenPayload{}, fmt.Errorf("providers: authorization code is required")
	}

	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	if redirectURI = strings.TrimSpace(redirectURI); redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	return c.fetchToken(ctx, "code exchange", descriptor, form)
}

func (c *HTTPTokenClient) Refresh(ctx context.Context, descriptor core.ProviderDescriptor, refreshToken string) (core.TokenPayload, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return core.TokenPayload{}, fmt.Errorf("providers: refresh token is required")
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.fetchToken(ctx, "token refresh", descriptor, form)
}

func (c *HTTPTokenClient) fetchToken(ctx context.Context, operation string, descriptor core.ProviderDescriptor, form url.Values) (core.TokenPayload, error) {
	if c == nil || c.httpClient == nil {
		return core.TokenPayload{}, fmt.Errorf("providers: token client is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(descriptor.TokenURL) == "" {
		return core.TokenPayload{}, fmt.Errorf("providers: token url is required for provider %q", descriptor.ID)
	}

	form.Set("client_id", descriptor.ClientID)
	form.Set("client_secret", descriptor.ClientSecret)

	requestCtx := ctx
	cancel := func() {}
	if c.timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, c.timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		descriptor.TokenURL,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return core.TokenPayload{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.TokenPayload{}, fmt.Errorf("providers: %s request failed: %w", operation, err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxTokenResponseBodyBytes+1))
	if readErr != nil {
		return core.TokenPayload{}, fmt.Errorf("providers: read token response: %w", readErr)
	}
	if int64(len(body)) > maxTokenResponseBodyBytes {
		return core.TokenPayload{}, fmt.Errorf("providers: token response exceeds %d bytes", maxTokenResponseBodyBytes)
	}

	payload, errorCode, errorDescription, parseErr := parseTokenResponse(body, response.Header.Get("Content-Type"))
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return core.TokenPayload{}, &core.TokenEndpointError{
			Operation:   operation,
			StatusCode:  response.StatusCode,
			ErrorCode:   errorCode,
			Description: errorDescription,
		}
	}
	if parseErr != nil {
		return core.TokenPayload{}, fmt.Errorf("providers: decode token response: %w", parseErr)
	}
	if errorCode != "" {
		return core.TokenPayload{}, &core.TokenEndpointError{
			Operation:   operation,
			StatusCode:  response.StatusCode,
			ErrorCode:   errorCode,
			Description: errorDescription,
		}
	}
	if strings.TrimSpace(payload.AccessToken) == "" {
		return core.TokenPayload{}, fmt.Errorf("providers: token response missing access token")
	}
	return payload, nil
}

func parseTokenResponse(body []byte, contentType string) (core.TokenPayload, string, string, error) {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.Contains(contentType, "json"):
		return parseTokenResponseJSON(body)
	case strings.Contains(contentType, "x-www-form-urlencoded"), strings.Contains(contentType, "text/plain"):
		return parseTokenResponseForm(body)
	}
	if payload, errorCode, errorDescription, err := parseTokenResponseJSON(body); err == nil {
		return payload, errorCode, errorDescription, nil
	}
	return parseTokenResponseForm(body)
}

func parseTokenResponseJSON(body []byte) (core.TokenPayload, string, string, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return core.TokenPayload{}, "", "", fmt.Errorf("empty payload")
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return core.TokenPayload{}, "", "", err
	}
	payload := core.TokenPayload{
		AccessToken:  readAnyString(decoded["access_token"]),
		TokenType:    readAnyString(decoded["token_type"]),
		RefreshToken: readAnyString(decoded["refresh_token"]),
		Scope:        readAnyString(decoded["scope"]),
		ExpiresIn:    readAnyInt64(decoded["expires_in"]),
	}
	return payload, readAnyString(decoded["error"]), readAnyString(decoded["error_description"]), nil
}

func parseTokenResponseForm(body []byte) (core.TokenPayload, string, string, error) {
	if len(strings.TrimSpace(string(body))) == 0 {
		return core.TokenPayload{}, "", "", fmt.Errorf("empty payload")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return core.TokenPayload{}, "", "", err
	}
	expiresIn, _ := strconv.ParseInt(strings.TrimSpace(values.Get("expires_in")), 10, 64)
	payload := core.TokenPayload{
		AccessToken:  strings.TrimSpace(values.Get("access_token")),
		TokenType:    strings.TrimSpace(values.Get("token_type")),
		RefreshToken: strings.TrimSpace(values.Get("refresh_token")),
		Scope:        strings.TrimSpace(values.Get("scope")),
		ExpiresIn:    expiresIn,
	}
	return payload, strings.TrimSpace(values.Get("error")), strings.TrimSpace(values.Get("error_description")), nil
}

func readAnyString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return strings.TrimSpace(typed.String())
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readAnyInt64(value any) int64 {
	switch typed := value.(type) {
	case int:
		return int64(typed)
	case int64:
		return typed
	case float64:
		return int64(typed)
	case json.Number:
		if parsed, err := typed.Int64(); err == nil {
			return parsed
		}
		if floatParsed, err := typed.Float64(); err == nil {
			return int64(floatParsed)
		}
	case string:
		if parsed, err := strconv.ParseInt(strings.TrimSpace(typed), 10, 64); err == nil {
			return parsed
		}
	}
	return 0
}

var _ core.TokenClient = (*HTTPTokenClient)(nil)
