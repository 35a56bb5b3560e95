package sqlstore

import (
	"strings"
	"time"

	"github.com/goliatone/go-credentials/core"
	"github.com/uptrace/bun"
)

type oauthCredentialRecord struct {
	bun.BaseModel `bun:"table:oauth_credentials,alias:oc"`

	ID           string    `bun:"id,pk"`
	UserID       string    `bun:"user_id,notnull"`
	ProviderID   string    `bun:"provider_id,notnull"`
	AccessToken  string    `bun:"access_token,notnull"`
	RefreshToken string    `bun:"refresh_token"`
	ExpiresAt    time.Time `bun:"expires_at,nullzero"`
	Scope        string    `bun:"scope"`
	CreatedAt    time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

func newOAuthCredentialRecord(record core.CredentialRecord, now time.Time) *oauthCredentialRecord {
	return &oauthCredentialRecord{
		UserID:       strings.TrimSpace(record.UserID),
		ProviderID:   strings.TrimSpace(record.ProviderID),
		AccessToken:  record.AccessToken,
		RefreshToken: record.RefreshToken,
		ExpiresAt:    record.ExpiresAt.UTC(),
		Scope:        record.Scope,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (r *oauthCredentialRecord) toDomain() core.CredentialRecord {
	if r == nil {
		return core.CredentialRecord{}
	}
	return core.CredentialRecord{
		UserID:       r.UserID,
		ProviderID:   r.ProviderID,
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    r.ExpiresAt,
		Scope:        r.Scope,
		UpdatedAt:    r.UpdatedAt,
	}
}
