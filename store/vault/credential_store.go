package vault

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-credentials/core"
)

const defaultCredentialBasePath = "oauth/users"

// CredentialStore persists credential records under
// {base}/{user_id}/{provider_id} in a KV v2 mount. A save writes a new secret
// version atomically; partial records are never observable.
type CredentialStore struct {
	kv       KVClient
	basePath string
}

type CredentialStoreOption func(*CredentialStore)

func WithCredentialBasePath(basePath string) CredentialStoreOption {
	return func(s *CredentialStore) {
		s.basePath = strings.Trim(strings.TrimSpace(basePath), "/")
	}
}

func NewCredentialStore(kv KVClient, options ...CredentialStoreOption) (*CredentialStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("vault: kv client is required")
	}
	store := &CredentialStore{kv: kv, basePath: defaultCredentialBasePath}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(store)
	}
	if store.basePath == "" {
		store.basePath = defaultCredentialBasePath
	}
	return store, nil
}

func (s *CredentialStore) recordPath(userID, providerID string) string {
	return s.basePath + "/" + strings.TrimSpace(userID) + "/" + strings.TrimSpace(providerID)
}

func (s *CredentialStore) userPath(userID string) string {
	return s.basePath + "/" + strings.TrimSpace(userID)
}

func (s *CredentialStore) Save(ctx context.Context, record core.CredentialRecord) error {
	if s == nil || s.kv == nil {
		return fmt.Errorf("vault: credential store is not configured")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	if err := s.kv.Put(ctx, s.recordPath(record.UserID, record.ProviderID), encodeCredential(record)); err != nil {
		return core.NewStoreUnavailableError("save", err)
	}
	return nil
}

func (s *CredentialStore) Get(ctx context.Context, userID, providerID string) (core.CredentialRecord, error) {
	if s == nil || s.kv == nil {
		return core.CredentialRecord{}, fmt.Errorf("vault: credential store is not configured")
	}
	data, _, found, err := s.kv.Get(ctx, s.recordPath(userID, providerID))
	if err != nil {
		return core.CredentialRecord{}, core.NewStoreUnavailableError("get", err)
	}
	if !found {
		return core.CredentialRecord{}, core.NewNoCredentialError(strings.TrimSpace(userID), strings.TrimSpace(providerID))
	}
	return decodeCredential(userID, providerID, data), nil
}

func (s *CredentialStore) List(ctx context.Context, userID string) ([]string, error) {
	if s == nil || s.kv == nil {
		return nil, fmt.Errorf("vault: credential store is not configured")
	}
	keys, err := s.kv.List(ctx, s.userPath(userID))
	if err != nil {
		return nil, core.NewStoreUnavailableError("list", err)
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *CredentialStore) Delete(ctx context.Context, userID, providerID string) (bool, error) {
	if s == nil || s.kv == nil {
		return false, fmt.Errorf("vault: credential store is not configured")
	}
	path := s.recordPath(userID, providerID)
	_, _, found, err := s.kv.Get(ctx, path)
	if err != nil {
		return false, core.NewStoreUnavailableError("delete", err)
	}
	if !found {
		return false, nil
	}
	if err := s.kv.Delete(ctx, path); err != nil {
		return false, core.NewStoreUnavailableError("delete", err)
	}
	return true, nil
}

func (s *CredentialStore) Has(ctx context.Context, userID, providerID string) (bool, error) {
	_, err := s.Get(ctx, userID, providerID)
	if err != nil {
		if core.IsNoCredential(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func encodeCredential(record core.CredentialRecord) map[string]any {
	data := map[string]any{
		"user_id":      strings.TrimSpace(record.UserID),
		"provider_id":  strings.TrimSpace(record.ProviderID),
		"access_token": record.AccessToken,
		"scope":        record.Scope,
	}
	if record.RefreshToken != "" {
		data["refresh_token"] = record.RefreshToken
	}
	if !record.ExpiresAt.IsZero() {
		data["expires_at"] = record.ExpiresAt.UTC().Format(time.RFC3339)
	}
	if !record.UpdatedAt.IsZero() {
		data["updated_at"] = record.UpdatedAt.UTC().Format(time.RFC3339)
	}
	return data
}

func decodeCredential(userID, providerID string, data map[string]any) core.CredentialRecord {
	record := core.CredentialRecord{
		UserID:       strings.TrimSpace(userID),
		ProviderID:   strings.TrimSpace(providerID),
		AccessToken:  readString(data, "access_token"),
		RefreshToken: readString(data, "refresh_token"),
		Scope:        readString(data, "scope"),
		ExpiresAt:    readTime(data, "expires_at"),
		UpdatedAt:    readTime(data, "updated_at"),
	}
	if stored := readString(data, "user_id"); stored != "" {
		record.UserID = stored
	}
	if stored := readString(data, "provider_id"); stored != "" {
		record.ProviderID = stored
	}
	return record
}

func readString(data map[string]any, key string) string {
	value, ok := data[key]
	if !ok || value == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func readTime(data map[string]any, key string) time.Time {
	raw := readString(data, key)
	if raw == "" {
		return time.Time{}
	}
	parsed, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed.UTC()
}

var _ core.CredentialStore = (*CredentialStore)(nil)
