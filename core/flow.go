package core

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Begin starts an authorization-code flow for the given user and provider.
// It issues a one-time state token bound to the pair and returns the provider
// authorization URL the caller should redirect to. The service never follows
// the URL itself.
func (s *Service) Begin(ctx context.Context, userID, providerID string) (result BeginResult, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"user_id":     userID,
		"provider_id": providerID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "begin", err, fields)
	}()

	userID = strings.TrimSpace(userID)
	if userID == "" {
		err = s.mapError(fmt.Errorf("core: user id is required"))
		return BeginResult{}, err
	}

	descriptor, err := s.resolveDescriptor(providerID)
	if err != nil {
		return BeginResult{}, err
	}

	state, err := GenerateState()
	if err != nil {
		err = s.mapError(err)
		return BeginResult{}, err
	}

	now := s.now()
	if saveErr := s.stateStore.Save(ctx, StateRecord{
		State:      state,
		UserID:     userID,
		ProviderID: descriptor.ID,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.config.StateTTL),
	}); saveErr != nil {
		err = s.mapError(saveErr)
		return BeginResult{}, err
	}

	result = BeginResult{
		ProviderID: descriptor.ID,
		URL:        composeAuthorizationURL(descriptor, s.config.CallbackURL(descriptor.ID), state),
		State:      state,
	}
	return result, nil
}

// BeginForSession verifies an inbound session credential first and then runs
// Begin for the resolved user.
func (s *Service) BeginForSession(ctx context.Context, sessionCredential, providerID string) (BeginResult, error) {
	if s == nil || s.sessionVerifier == nil {
		return BeginResult{}, s.mapError(fmt.Errorf("core: session verifier is not configured"))
	}
	userID, err := s.sessionVerifier.Verify(ctx, sessionCredential)
	if err != nil {
		return BeginResult{}, s.mapError(err)
	}
	return s.Begin(ctx, userID, providerID)
}

// Complete redeems the callback state and exchanges the authorization code
// for tokens. The state is consumed before anything else is checked, so a
// mismatched or failing callback still burns it. The code exchange is never
// retried: authorization codes are single-use and a retry after a timeout
// could double-spend the code upstream.
func (s *Service) Complete(ctx context.Context, providerID, code, state string) (record CredentialRecord, err error) {
	startedAt := s.now()
	fields := map[string]any{
		"provider_id": providerID,
	}
	defer func() {
		if record.UserID != "" {
			fields["user_id"] = record.UserID
		}
		s.observeOperation(ctx, startedAt, "complete", err, fields)
	}()

	if strings.TrimSpace(code) == "" {
		err = s.mapError(fmt.Errorf("core: authorization code is required"))
		return CredentialRecord{}, err
	}

	stateRecord, err := s.stateStore.Consume(ctx, state)
	if err != nil {
		err = s.mapError(err)
		return CredentialRecord{}, err
	}
	if !strings.EqualFold(strings.TrimSpace(stateRecord.ProviderID), strings.TrimSpace(providerID)) {
		err = s.mapError(NewProviderMismatchError(stateRecord.ProviderID, providerID))
		return CredentialRecord{}, err
	}

	descriptor, err := s.resolveDescriptor(providerID)
	if err != nil {
		return CredentialRecord{}, err
	}
	if s.tokenClient == nil {
		err = s.mapError(fmt.Errorf("core: token client is not configured"))
		return CredentialRecord{}, err
	}

	payload, exchangeErr := s.tokenClient.Exchange(ctx, descriptor, code, s.config.CallbackURL(descriptor.ID))
	if exchangeErr != nil {
		err = s.mapError(NewExchangeFailedError(descriptor.ID, exchangeErr))
		return CredentialRecord{}, err
	}

	record = recordFromPayload(stateRecord.UserID, descriptor, payload, s.now())
	if saveErr := s.credentialStore.Save(ctx, record); saveErr != nil {
		err = s.mapError(saveErr)
		return CredentialRecord{}, err
	}
	return record, nil
}

func (s *Service) resolveDescriptor(providerID string) (ProviderDescriptor, error) {
	if s == nil || s.registry == nil {
		return ProviderDescriptor{}, s.mapError(fmt.Errorf("core: registry unavailable"))
	}
	descriptor, err := s.registry.Resolve(providerID)
	if err != nil {
		return ProviderDescriptor{}, s.mapError(err)
	}
	return descriptor, nil
}

func composeAuthorizationURL(descriptor ProviderDescriptor, redirectURI, state string) string {
	values := url.Values{}
	values.Set("client_id", descriptor.ClientID)
	if strings.TrimSpace(redirectURI) != "" {
		values.Set("redirect_uri", redirectURI)
	}
	responseType := strings.TrimSpace(descriptor.ResponseType)
	if responseType == "" {
		responseType = "code"
	}
	values.Set("response_type", responseType)
	if strings.TrimSpace(descriptor.Scope) != "" {
		values.Set("scope", descriptor.Scope)
	}
	values.Set("state", state)

	separator := "?"
	if strings.Contains(descriptor.AuthURL, "?") {
		separator = "&"
	}
	return descriptor.AuthURL + separator + values.Encode()
}

// recordFromPayload builds the stored record for a fresh code exchange. A
// missing expires_in falls back to one hour; a missing scope falls back to
// the scope that was requested.
func recordFromPayload(userID string, descriptor ProviderDescriptor, payload TokenPayload, now time.Time) CredentialRecord {
	expiresIn := payload.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultTokenLifetimeSeconds
	}
	scope := strings.TrimSpace(payload.Scope)
	if scope == "" {
		scope = strings.TrimSpace(descriptor.Scope)
	}
	return CredentialRecord{
		UserID:       strings.TrimSpace(userID),
		ProviderID:   descriptor.ID,
		AccessToken:  strings.TrimSpace(payload.AccessToken),
		RefreshToken: strings.TrimSpace(payload.RefreshToken),
		ExpiresAt:    now.Add(time.Duration(expiresIn) * time.Second),
		Scope:        scope,
		UpdatedAt:    now,
	}
}
