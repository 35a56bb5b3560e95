package core

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ErrorUnknownProvider  = "CREDENTIALS_UNKNOWN_PROVIDER"
	ErrorNotConfigured    = "CREDENTIALS_PROVIDER_NOT_CONFIGURED"
	ErrorInvalidState     = "CREDENTIALS_STATE_INVALID"
	ErrorProviderMismatch = "CREDENTIALS_PROVIDER_MISMATCH"
	ErrorExchangeFailed   = "CREDENTIALS_EXCHANGE_FAILED"
	ErrorNoCredential     = "CREDENTIALS_NOT_FOUND"
	ErrorNoRefreshToken   = "CREDENTIALS_NO_REFRESH_TOKEN"
	ErrorRefreshFailed    = "CREDENTIALS_REFRESH_FAILED"
	ErrorStoreUnavailable = "CREDENTIALS_STORE_UNAVAILABLE"
	ErrorSessionInvalid   = "CREDENTIALS_SESSION_INVALID"
	ErrorBadInput         = "CREDENTIALS_BAD_INPUT"
	ErrorInternal         = "CREDENTIALS_INTERNAL_ERROR"
)

func NewUnknownProviderError(providerID string) *goerrors.Error {
	return goerrors.New(
		fmt.Sprintf("provider %q is not in the catalog", providerID),
		goerrors.CategoryNotFound,
	).
		WithTextCode(ErrorUnknownProvider).
		WithCode(http.StatusNotFound).
		WithMetadata(map[string]any{"provider_id": providerID})
}

func NewNotConfiguredError(providerID string) *goerrors.Error {
	return goerrors.New(
		fmt.Sprintf("provider %q has no client credentials configured", providerID),
		goerrors.CategoryOperation,
	).
		WithTextCode(ErrorNotConfigured).
		WithCode(http.StatusNotImplemented).
		WithMetadata(map[string]any{"provider_id": providerID})
}

func NewInvalidStateError(reason string) *goerrors.Error {
	message := "oauth state is invalid"
	if strings.TrimSpace(reason) != "" {
		message = "oauth state is invalid: " + strings.TrimSpace(reason)
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(ErrorInvalidState).
		WithCode(http.StatusBadRequest)
}

func NewProviderMismatchError(bound, requested string) *goerrors.Error {
	return goerrors.New(
		fmt.Sprintf("oauth state is bound to provider %q, callback named %q", bound, requested),
		goerrors.CategoryAuth,
	).
		WithTextCode(ErrorProviderMismatch).
		WithCode(http.StatusBadRequest).
		WithMetadata(map[string]any{"bound_provider_id": bound, "provider_id": requested})
}

func NewExchangeFailedError(providerID string, cause error) *goerrors.Error {
	return goerrors.Wrap(cause, goerrors.CategoryOperation, "authorization code exchange failed").
		WithTextCode(ErrorExchangeFailed).
		WithCode(http.StatusBadGateway).
		WithMetadata(map[string]any{"provider_id": providerID})
}

func NewNoCredentialError(userID, providerID string) *goerrors.Error {
	return goerrors.New(
		fmt.Sprintf("no credential stored for user %q provider %q", userID, providerID),
		goerrors.CategoryNotFound,
	).
		WithTextCode(ErrorNoCredential).
		WithCode(http.StatusNotFound).
		WithMetadata(map[string]any{"user_id": userID, "provider_id": providerID})
}

func NewNoRefreshTokenError(userID, providerID string) *goerrors.Error {
	return goerrors.New(
		fmt.Sprintf("credential for user %q provider %q has no refresh token", userID, providerID),
		goerrors.CategoryOperation,
	).
		WithTextCode(ErrorNoRefreshToken).
		WithCode(http.StatusConflict).
		WithMetadata(map[string]any{"user_id": userID, "provider_id": providerID})
}

func NewRefreshFailedError(providerID string, cause error) *goerrors.Error {
	return goerrors.Wrap(cause, goerrors.CategoryOperation, "token refresh failed").
		WithTextCode(ErrorRefreshFailed).
		WithCode(http.StatusBadGateway).
		WithMetadata(map[string]any{"provider_id": providerID})
}

func NewStoreUnavailableError(operation string, cause error) *goerrors.Error {
	return goerrors.Wrap(cause, goerrors.CategoryInternal, "credential store unavailable during "+operation).
		WithTextCode(ErrorStoreUnavailable).
		WithCode(http.StatusServiceUnavailable)
}

func NewSessionInvalidError(reason string) *goerrors.Error {
	message := "session is invalid"
	if strings.TrimSpace(reason) != "" {
		message = "session is invalid: " + strings.TrimSpace(reason)
	}
	return goerrors.New(message, goerrors.CategoryAuth).
		WithTextCode(ErrorSessionInvalid).
		WithCode(http.StatusUnauthorized)
}

func IsUnknownProvider(err error) bool  { return hasTextCode(err, ErrorUnknownProvider) }
func IsNotConfigured(err error) bool    { return hasTextCode(err, ErrorNotConfigured) }
func IsInvalidState(err error) bool     { return hasTextCode(err, ErrorInvalidState) }
func IsProviderMismatch(err error) bool { return hasTextCode(err, ErrorProviderMismatch) }
func IsExchangeFailed(err error) bool   { return hasTextCode(err, ErrorExchangeFailed) }
func IsNoCredential(err error) bool     { return hasTextCode(err, ErrorNoCredential) }
func IsNoRefreshToken(err error) bool   { return hasTextCode(err, ErrorNoRefreshToken) }
func IsRefreshFailed(err error) bool    { return hasTextCode(err, ErrorRefreshFailed) }
func IsStoreUnavailable(err error) bool { return hasTextCode(err, ErrorStoreUnavailable) }
func IsSessionInvalid(err error) bool   { return hasTextCode(err, ErrorSessionInvalid) }

func hasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(richErr.TextCode), code)
}

func serviceErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "oauth state"):
		return ensureServiceErrorEnvelope(NewInvalidStateError(err.Error()))
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "mismatch"):
		return newServiceError(err.Error(), goerrors.CategoryBadInput, ErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func newServiceError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureServiceErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ErrorBadInput
	case goerrors.CategoryNotFound:
		return ErrorNoCredential
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ErrorSessionInvalid
	case goerrors.CategoryOperation:
		return ErrorRefreshFailed
	default:
		return ErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryRateLimit:
		return http.StatusTooManyRequests
	case goerrors.CategoryOperation:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
