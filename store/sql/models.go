package sqlstore

import (
	"time"

	"github.com/goliatone/go-compliance-connector/core"
	"github.com/uptrace/bun"
)

type tokenRecord struct {
	bun.BaseModel `bun:"table:connector_tokens,alias:ct"`

	ID                   string                       `bun:"id,pk"`
	SessionSecret        string                       `bun:"session_secret,notnull"`
	TPPRedirectURL       string                       `bun:"tpp_redirect_url,notnull"`
	TPPAppName           string                       `bun:"tpp_app_name,notnull"`
	Status               string                       `bun:"status,notnull"`
	UserID               string                       `bun:"user_id,notnull"`
	AccessToken          []byte                       `bun:"access_token"`
	AccessTokenHash      string                       `bun:"access_token_hash,notnull"`
	AccessTokenExpiresAt *time.Time                   `bun:"access_token_expires_at,nullzero"`
	EncryptionKeyID      string                       `bun:"encryption_key_id,notnull"`
	Consents             core.ProviderOfferedConsents `bun:"consents,type:jsonb,notnull"`
	CreatedAt            time.Time                    `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt            time.Time                    `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}
