package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-compliance-connector/core"
	"github.com/goliatone/go-compliance-connector/security"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// TokenStore persists connector tokens in the connector_tokens table. Access
// tokens are sealed with the configured cipher and looked up by hash.
type TokenStore struct {
	db     *bun.DB
	repo   repository.Repository[*tokenRecord]
	cipher core.SecretCipher
}

type TokenStoreOption func(*TokenStore)

// WithSecretCipher encrypts access tokens at rest. Without a cipher the raw
// token bytes are stored.
func WithSecretCipher(cipher core.SecretCipher) TokenStoreOption {
	return func(s *TokenStore) {
		s.cipher = cipher
	}
}

func NewTokenStore(db *bun.DB, opts ...TokenStoreOption) (*TokenStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*tokenRecord](db, tokenHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid token repository wiring: %w", err)
		}
	}
	store := &TokenStore{db: db, repo: repo}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store, nil
}

func (s *TokenStore) Create(ctx context.Context, token core.Token) (core.Token, error) {
	if s == nil || s.repo == nil {
		return core.Token{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	if strings.TrimSpace(token.ID) == "" {
		return core.Token{}, fmt.Errorf("sqlstore: token id is required")
	}
	if strings.TrimSpace(token.SessionSecret) == "" {
		return core.Token{}, fmt.Errorf("sqlstore: session secret is required")
	}
	if _, err := s.findOne(ctx, repository.SelectBy("session_secret", "=", strings.TrimSpace(token.SessionSecret))); err == nil {
		return core.Token{}, core.ErrDuplicateSessionSecret
	} else if !errors.Is(err, core.ErrTokenNotFound) {
		return core.Token{}, err
	}

	record, err := s.toRecord(ctx, token)
	if err != nil {
		return core.Token{}, err
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.Token{}, err
	}
	return s.toDomain(ctx, created)
}

func (s *TokenStore) Update(ctx context.Context, token core.Token) (core.Token, error) {
	if s == nil || s.repo == nil {
		return core.Token{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	id := strings.TrimSpace(token.ID)
	if id == "" {
		return core.Token{}, fmt.Errorf("sqlstore: token id is required")
	}
	current, err := s.findOne(ctx, repository.SelectBy("id", "=", id))
	if err != nil {
		return core.Token{}, err
	}

	// session secret and creation time are fixed at creation
	token.SessionSecret = current.SessionSecret
	token.CreatedAt = current.CreatedAt
	if token.UpdatedAt.IsZero() {
		token.UpdatedAt = time.Now().UTC()
	}
	record, err := s.toRecord(ctx, token)
	if err != nil {
		return core.Token{}, err
	}
	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(id))
	if err != nil {
		return core.Token{}, err
	}
	return s.toDomain(ctx, updated)
}

func (s *TokenStore) FindBySessionSecret(ctx context.Context, sessionSecret string) (core.Token, error) {
	if s == nil || s.repo == nil {
		return core.Token{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	secret := strings.TrimSpace(sessionSecret)
	if secret == "" {
		return core.Token{}, core.ErrTokenNotFound
	}
	record, err := s.findOne(ctx, repository.SelectBy("session_secret", "=", secret))
	if err != nil {
		return core.Token{}, err
	}
	return s.toDomain(ctx, record)
}

func (s *TokenStore) FindByUserIDAndAccessToken(ctx context.Context, userID string, accessToken string) (core.Token, error) {
	if s == nil || s.repo == nil {
		return core.Token{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" || accessToken == "" {
		return core.Token{}, core.ErrTokenNotFound
	}
	record, err := s.findOne(ctx,
		repository.SelectBy("user_id", "=", userID),
		repository.SelectBy("access_token_hash", "=", security.LookupHash(accessToken)),
		repository.OrderBy("updated_at DESC"),
	)
	if err != nil {
		return core.Token{}, err
	}
	return s.toDomain(ctx, record)
}

func (s *TokenStore) findOne(ctx context.Context, criteria ...repository.SelectCriteria) (*tokenRecord, error) {
	criteria = append(criteria, repository.SelectPaginate(1, 0))
	records, _, err := s.repo.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || records[0] == nil {
		return nil, core.ErrTokenNotFound
	}
	return records[0], nil
}

func (s *TokenStore) toRecord(ctx context.Context, token core.Token) (*tokenRecord, error) {
	record := &tokenRecord{
		ID:             strings.TrimSpace(token.ID),
		SessionSecret:  strings.TrimSpace(token.SessionSecret),
		TPPRedirectURL: token.TPPRedirectURL,
		TPPAppName:     token.TPPAppName,
		Status:         string(token.Status),
		UserID:         strings.TrimSpace(token.UserID),
		Consents:       token.Consents.Clone(),
		CreatedAt:      token.CreatedAt.UTC(),
		UpdatedAt:      token.UpdatedAt.UTC(),
	}
	if !token.AccessTokenExpiresAt.IsZero() {
		expiresAt := token.AccessTokenExpiresAt.UTC()
		record.AccessTokenExpiresAt = &expiresAt
	}
	if token.AccessToken != "" {
		sealed, keyID, err := s.seal(ctx, token.AccessToken)
		if err != nil {
			return nil, err
		}
		record.AccessToken = sealed
		record.AccessTokenHash = security.LookupHash(token.AccessToken)
		record.EncryptionKeyID = keyID
	}
	return record, nil
}

func (s *TokenStore) toDomain(ctx context.Context, record *tokenRecord) (core.Token, error) {
	if record == nil {
		return core.Token{}, core.ErrTokenNotFound
	}
	status, err := core.ParseTokenStatus(record.Status)
	if err != nil {
		return core.Token{}, err
	}
	token := core.Token{
		ID:             record.ID,
		SessionSecret:  record.SessionSecret,
		TPPRedirectURL: record.TPPRedirectURL,
		TPPAppName:     record.TPPAppName,
		Status:         status,
		UserID:         record.UserID,
		Consents:       record.Consents.Clone(),
		CreatedAt:      record.CreatedAt.UTC(),
		UpdatedAt:      record.UpdatedAt.UTC(),
	}
	if record.AccessTokenExpiresAt != nil {
		token.AccessTokenExpiresAt = record.AccessTokenExpiresAt.UTC()
	}
	if len(record.AccessToken) > 0 {
		plaintext, err := s.open(ctx, record.AccessToken)
		if err != nil {
			return core.Token{}, err
		}
		token.AccessToken = plaintext
	}
	return token, nil
}

func (s *TokenStore) seal(ctx context.Context, accessToken string) ([]byte, string, error) {
	if s.cipher == nil {
		return []byte(accessToken), "", nil
	}
	sealed, err := s.cipher.Encrypt(ctx, []byte(accessToken))
	if err != nil {
		return nil, "", fmt.Errorf("sqlstore: encrypt access token: %w: %w", core.ErrSecretCipher, err)
	}
	keyID := ""
	if meta, metaErr := security.ParseEnvelopeMetadata(sealed); metaErr == nil {
		keyID = meta.KeyID
	}
	return sealed, keyID, nil
}

func (s *TokenStore) open(ctx context.Context, stored []byte) (string, error) {
	if !security.IsEnvelope(stored) {
		return string(stored), nil
	}
	if s.cipher == nil {
		return "", fmt.Errorf("sqlstore: access token is encrypted but no cipher is configured: %w", core.ErrSecretCipher)
	}
	plaintext, err := s.cipher.Decrypt(ctx, stored)
	if err != nil {
		return "", fmt.Errorf("sqlstore: decrypt access token: %w: %w", core.ErrSecretCipher, err)
	}
	return string(plaintext), nil
}
