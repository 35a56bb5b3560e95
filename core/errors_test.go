package core

import (
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestErrorPredicates(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		predicate func(error) bool
	}{
		{"unknown provider", NewUnknownProviderError("slack"), IsUnknownProvider},
		{"not configured", NewNotConfiguredError("notion"), IsNotConfigured},
		{"invalid state", NewInvalidStateError("expired"), IsInvalidState},
		{"provider mismatch", NewProviderMismatchError("github", "gmail"), IsProviderMismatch},
		{"exchange failed", NewExchangeFailedError("github", fmt.Errorf("boom")), IsExchangeFailed},
		{"no credential", NewNoCredentialError("u1", "github"), IsNoCredential},
		{"no refresh token", NewNoRefreshTokenError("u1", "github"), IsNoRefreshToken},
		{"refresh failed", NewRefreshFailedError("github", fmt.Errorf("boom")), IsRefreshFailed},
		{"store unavailable", NewStoreUnavailableError("save", fmt.Errorf("boom")), IsStoreUnavailable},
		{"session invalid", NewSessionInvalidError("expired"), IsSessionInvalid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if !tc.predicate(tc.err) {
				t.Fatalf("predicate rejected its own error: %v", tc.err)
			}
			if tc.predicate(fmt.Errorf("unrelated")) {
				t.Fatal("predicate matched an unrelated error")
			}
			if tc.predicate(nil) {
				t.Fatal("predicate matched nil")
			}
		})
	}
}

func TestErrorPredicatesSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", NewNoCredentialError("u1", "github"))
	if !IsNoCredential(wrapped) {
		t.Fatalf("predicate should unwrap, got false for %v", wrapped)
	}
}

func TestErrorHTTPCodes(t *testing.T) {
	cases := []struct {
		err  *goerrors.Error
		want int
	}{
		{NewUnknownProviderError("slack"), http.StatusNotFound},
		{NewNotConfiguredError("notion"), http.StatusNotImplemented},
		{NewInvalidStateError(""), http.StatusBadRequest},
		{NewProviderMismatchError("a", "b"), http.StatusBadRequest},
		{NewExchangeFailedError("github", fmt.Errorf("boom")), http.StatusBadGateway},
		{NewNoCredentialError("u1", "github"), http.StatusNotFound},
		{NewNoRefreshTokenError("u1", "github"), http.StatusConflict},
		{NewRefreshFailedError("github", fmt.Errorf("boom")), http.StatusBadGateway},
		{NewStoreUnavailableError("save", fmt.Errorf("boom")), http.StatusServiceUnavailable},
		{NewSessionInvalidError(""), http.StatusUnauthorized},
	}
	for _, tc := range cases {
		if tc.err.Code != tc.want {
			t.Fatalf("%s: code %d, want %d", tc.err.TextCode, tc.err.Code, tc.want)
		}
	}
}

func TestServiceErrorMapperWrapsPlainErrors(t *testing.T) {
	mapped := serviceErrorMapper(fmt.Errorf("core: user id is required"))
	if mapped == nil {
		t.Fatal("expected mapped error")
	}
	if mapped.TextCode != ErrorBadInput {
		t.Fatalf("unexpected text code %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusBadRequest {
		t.Fatalf("unexpected http code %d", mapped.Code)
	}
}

func TestServiceErrorMapperPreservesRichErrors(t *testing.T) {
	original := NewNoCredentialError("u1", "github")
	mapped := serviceErrorMapper(original)
	if mapped.TextCode != ErrorNoCredential {
		t.Fatalf("text code changed to %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusNotFound {
		t.Fatalf("http code changed to %d", mapped.Code)
	}
}

func TestTokenEndpointErrorTransient(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{400, false},
		{401, false},
		{429, false},
		{500, true},
		{502, true},
		{503, true},
	}
	for _, tc := range cases {
		err := &TokenEndpointError{Operation: "token refresh", StatusCode: tc.status}
		if got := err.Transient(); got != tc.want {
			t.Fatalf("status %d: transient %v, want %v", tc.status, got, tc.want)
		}
	}
	var nilErr *TokenEndpointError
	if nilErr.Transient() {
		t.Fatal("nil error must not be transient")
	}
}

func TestTokenEndpointErrorMessage(t *testing.T) {
	err := &TokenEndpointError{
		Operation:   "token refresh",
		StatusCode:  400,
		ErrorCode:   "invalid_grant",
		Description: "refresh token revoked",
	}
	const want = "core: token refresh failed (400): refresh token revoked"
	if err.Error() != want {
		t.Fatalf("unexpected message %q", err.Error())
	}
}
