package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

const (
	defaultTokenLifetimeSeconds  = 3600
	defaultRefreshInitialBackoff = 500 * time.Millisecond
	defaultRefreshMaxBackoff     = 10 * time.Second
	defaultRefreshLockTTL        = 30 * time.Second
)

type ExponentialBackoffScheduler struct {
	Initial time.Duration
	Max     time.Duration
}

func (s ExponentialBackoffScheduler) NextDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	initial := s.Initial
	if initial <= 0 {
		initial = defaultRefreshInitialBackoff
	}
	max := s.Max
	if max <= 0 {
		max = defaultRefreshMaxBackoff
	}

	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

// GetValidToken returns an access token guaranteed to live for at least the
// configured refresh buffer. Tokens inside the buffer trigger a refresh;
// tokens outside it are returned without any network call. Records without an
// expiry never refresh proactively.
func (s *Service) GetValidToken(ctx context.Context, userID, providerID string) (token string, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"user_id":     userID,
		"provider_id": providerID,
	}
	refreshed := false
	defer func() {
		fields["refreshed"] = refreshed
		s.observeOperation(ctx, startedAt, "get_valid_token", err, fields)
	}()

	record, err := s.credentialStore.Get(ctx, userID, providerID)
	if err != nil {
		err = s.mapError(err)
		return "", err
	}
	if s.recordFresh(record) {
		return record.AccessToken, nil
	}

	refreshed = true
	updated, err := s.refreshRecord(ctx, userID, providerID, record.AccessToken)
	if err != nil {
		return "", err
	}
	return updated.AccessToken, nil
}

// Refresh forces a refresh-token grant for the stored record and persists the
// merged result. Concurrent calls for the same (user, provider) key collapse
// into one outbound request; every waiter receives the same outcome.
func (s *Service) Refresh(ctx context.Context, userID, providerID string) (record CredentialRecord, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"user_id":     userID,
		"provider_id": providerID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "refresh", err, fields)
	}()

	record, err = s.refreshRecord(ctx, userID, providerID, "")
	return record, err
}

// refreshRecord is the single-flight entry point. staleToken, when non-empty,
// lets the flight skip the network if another instance already rotated the
// token while this caller was waiting on the lock.
func (s *Service) refreshRecord(ctx context.Context, userID, providerID, staleToken string) (CredentialRecord, error) {
	if s == nil {
		return CredentialRecord{}, fmt.Errorf("core: service is nil")
	}
	userID = strings.TrimSpace(userID)
	providerID = strings.TrimSpace(strings.ToLower(providerID))
	if userID == "" {
		return CredentialRecord{}, s.mapError(fmt.Errorf("core: user id is required"))
	}

	key := credentialKey(userID, providerID)
	value, err, _ := s.refreshGroup.Do(key, func() (any, error) {
		return s.doRefresh(ctx, userID, providerID, staleToken)
	})
	if err != nil {
		return CredentialRecord{}, err
	}
	record, ok := value.(CredentialRecord)
	if !ok {
		return CredentialRecord{}, s.mapError(fmt.Errorf("core: unexpected refresh result type %T", value))
	}
	return record, nil
}

func (s *Service) doRefresh(ctx context.Context, userID, providerID, staleToken string) (CredentialRecord, error) {
	unlock := func() {}
	if s.refreshLocker != nil {
		handle, lockErr := s.refreshLocker.Acquire(ctx, credentialKey(userID, providerID), defaultRefreshLockTTL)
		if lockErr != nil {
			return CredentialRecord{}, s.mapError(NewRefreshFailedError(providerID, lockErr))
		}
		unlock = func() {
			_ = handle.Unlock(context.WithoutCancel(ctx))
		}
	}
	defer unlock()

	// Re-read under the lock: another instance may have refreshed while we
	// waited, in which case its rotated token is the only valid one.
	record, err := s.credentialStore.Get(ctx, userID, providerID)
	if err != nil {
		return CredentialRecord{}, s.mapError(err)
	}
	if staleToken != "" && record.AccessToken != staleToken && s.recordFresh(record) {
		return record, nil
	}
	if strings.TrimSpace(record.RefreshToken) == "" {
		return CredentialRecord{}, s.mapError(NewNoRefreshTokenError(userID, providerID))
	}

	descriptor, err := s.resolveDescriptor(providerID)
	if err != nil {
		return CredentialRecord{}, err
	}
	if s.tokenClient == nil {
		return CredentialRecord{}, s.mapError(fmt.Errorf("core: token client is not configured"))
	}

	maxAttempts := s.config.RefreshAttempts
	if maxAttempts < 1 {
		maxAttempts = DefaultRefreshAttempts
	}

	var payload TokenPayload
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		payload, lastErr = s.tokenClient.Refresh(ctx, descriptor, record.RefreshToken)
		if lastErr == nil {
			break
		}
		if !isTransientRefreshError(lastErr) || attempt == maxAttempts {
			return CredentialRecord{}, s.mapError(NewRefreshFailedError(descriptor.ID, lastErr))
		}
		delay := defaultRefreshInitialBackoff
		if s.backoffScheduler != nil {
			delay = s.backoffScheduler.NextDelay(attempt)
		}
		if waitErr := waitWithContext(ctx, delay); waitErr != nil {
			return CredentialRecord{}, s.mapError(NewRefreshFailedError(descriptor.ID, waitErr))
		}
	}

	updated := mergeRefreshedRecord(record, payload, s.now())
	if saveErr := s.credentialStore.Save(ctx, updated); saveErr != nil {
		return CredentialRecord{}, s.mapError(saveErr)
	}
	return updated, nil
}

// recordFresh reports whether the token still clears the refresh buffer. A
// zero expiry means the provider never expires the token.
func (s *Service) recordFresh(record CredentialRecord) bool {
	if record.ExpiresAt.IsZero() {
		return true
	}
	return record.ExpiresAt.Sub(s.now()) > s.config.RefreshBuffer
}

// mergeRefreshedRecord applies provider-optional semantics of the refresh
// grant: a response without a refresh token keeps the previous one, a
// response without expires_in defaults to one hour, and a response without a
// scope keeps the previous scope.
func mergeRefreshedRecord(prior CredentialRecord, payload TokenPayload, now time.Time) CredentialRecord {
	updated := prior
	updated.AccessToken = strings.TrimSpace(payload.AccessToken)
	if refreshToken := strings.TrimSpace(payload.RefreshToken); refreshToken != "" {
		updated.RefreshToken = refreshToken
	}
	expiresIn := payload.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultTokenLifetimeSeconds
	}
	updated.ExpiresAt = now.Add(time.Duration(expiresIn) * time.Second)
	if scope := strings.TrimSpace(payload.Scope); scope != "" {
		updated.Scope = scope
	}
	updated.UpdatedAt = now
	return updated
}

func isTransientRefreshError(err error) bool {
	if err == nil {
		return false
	}
	var endpointErr *TokenEndpointError
	if errors.As(err, &endpointErr) {
		return endpointErr.Transient()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func waitWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Disconnect removes the stored credential for the pair. The returned boolean
// reports whether a record existed.
func (s *Service) Disconnect(ctx context.Context, userID, providerID string) (removed bool, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"user_id":     userID,
		"provider_id": providerID,
	}
	defer func() {
		fields["removed"] = removed
		s.observeOperation(ctx, startedAt, "disconnect", err, fields)
	}()

	removed, err = s.credentialStore.Delete(ctx, userID, providerID)
	if err != nil {
		err = s.mapError(err)
		return false, err
	}
	return removed, nil
}

// Connected lists the provider ids the user has a stored credential for.
func (s *Service) Connected(ctx context.Context, userID string) ([]string, error) {
	if s == nil || s.credentialStore == nil {
		return nil, s.mapError(fmt.Errorf("core: credential store is not configured"))
	}
	ids, err := s.credentialStore.List(ctx, userID)
	if err != nil {
		return nil, s.mapError(err)
	}
	return ids, nil
}

// Has reports whether a credential exists for the pair.
func (s *Service) Has(ctx context.Context, userID, providerID string) (bool, error) {
	if s == nil || s.credentialStore == nil {
		return false, s.mapError(fmt.Errorf("core: credential store is not configured"))
	}
	ok, err := s.credentialStore.Has(ctx, userID, providerID)
	if err != nil {
		return false, s.mapError(err)
	}
	return ok, nil
}

var _ BackoffScheduler = ExponentialBackoffScheduler{}
