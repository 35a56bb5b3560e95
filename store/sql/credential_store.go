package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-credentials/core"
	"github.com/uptrace/bun"
)

// CredentialStore keeps one row per (user_id, provider_id). Save replaces the
// whole row inside a transaction so readers observe either the prior record
// or the new one, never a blend.
type CredentialStore struct {
	db   *bun.DB
	repo repository.Repository[*oauthCredentialRecord]
}

func (s *CredentialStore) Save(ctx context.Context, record core.CredentialRecord) error {
	if s == nil || s.repo == nil || s.db == nil {
		return fmt.Errorf("sqlstore: credential store is not configured")
	}
	if err := record.Validate(); err != nil {
		return err
	}

	userID := strings.TrimSpace(record.UserID)
	providerID := strings.TrimSpace(record.ProviderID)
	now := time.Now().UTC()

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, deleteErr := tx.NewDelete().
			Model((*oauthCredentialRecord)(nil)).
			Where("user_id = ?", userID).
			Where("provider_id = ?", providerID).
			Exec(ctx); deleteErr != nil {
			return deleteErr
		}

		row := newOAuthCredentialRecord(record, now)
		if !record.UpdatedAt.IsZero() {
			row.UpdatedAt = record.UpdatedAt.UTC()
		}
		_, createErr := s.repo.CreateTx(ctx, tx, row)
		return createErr
	})
	if err != nil {
		return core.NewStoreUnavailableError("save", err)
	}
	return nil
}

func (s *CredentialStore) Get(ctx context.Context, userID, providerID string) (core.CredentialRecord, error) {
	if s == nil || s.repo == nil {
		return core.CredentialRecord{}, fmt.Errorf("sqlstore: credential store is not configured")
	}
	userID = strings.TrimSpace(userID)
	providerID = strings.TrimSpace(providerID)

	records, _, err := s.repo.List(ctx,
		repository.SelectBy("user_id", "=", userID),
		repository.SelectBy("provider_id", "=", providerID),
		repository.SelectPaginate(1, 0),
	)
	if err != nil {
		return core.CredentialRecord{}, core.NewStoreUnavailableError("get", err)
	}
	if len(records) == 0 {
		return core.CredentialRecord{}, core.NewNoCredentialError(userID, providerID)
	}
	return records[0].toDomain(), nil
}

func (s *CredentialStore) List(ctx context.Context, userID string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: credential store is not configured")
	}

	var providerIDs []string
	err := s.db.NewSelect().
		Model((*oauthCredentialRecord)(nil)).
		Column("provider_id").
		Where("user_id = ?", strings.TrimSpace(userID)).
		Order("provider_id ASC").
		Scan(ctx, &providerIDs)
	if err != nil {
		return nil, core.NewStoreUnavailableError("list", err)
	}
	if providerIDs == nil {
		providerIDs = []string{}
	}
	return providerIDs, nil
}

func (s *CredentialStore) Delete(ctx context.Context, userID, providerID string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("sqlstore: credential store is not configured")
	}

	result, err := s.db.NewDelete().
		Model((*oauthCredentialRecord)(nil)).
		Where("user_id = ?", strings.TrimSpace(userID)).
		Where("provider_id = ?", strings.TrimSpace(providerID)).
		Exec(ctx)
	if err != nil {
		return false, core.NewStoreUnavailableError("delete", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, core.NewStoreUnavailableError("delete", err)
	}
	return affected > 0, nil
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
