package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-compliance-connector/core"
	connectormigrations "github.com/goliatone/go-compliance-connector/migrations"
	"github.com/goliatone/go-compliance-connector/security"
	sqlstore "github.com/goliatone/go-compliance-connector/store/sql"
	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

type testPersistenceConfig struct {
	driver string
	server string
}

func (c testPersistenceConfig) GetDebug() bool {
	return false
}

func (c testPersistenceConfig) GetDriver() string {
	return c.driver
}

func (c testPersistenceConfig) GetServer() string {
	return c.server
}

func (c testPersistenceConfig) GetPingTimeout() time.Duration {
	return time.Second
}

func (c testPersistenceConfig) GetOtelIdentifier() string {
	return "go-compliance-connector-tests"
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	var tableName string
	if err := client.DB().NewRaw(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
		"connector_tokens",
	).Scan(context.Background(), &tableName); err != nil {
		t.Fatalf("query sqlite master: %v", err)
	}
	if tableName != "connector_tokens" {
		t.Fatalf("expected connector_tokens table, got %q", tableName)
	}
}

func TestOpenClient_SQLiteAppliesMigrations(t *testing.T) {
	ctx := context.Background()
	client, err := sqlstore.OpenClient(ctx, sqlstore.Config{
		Driver:  "sqlite",
		DSN:     fmt.Sprintf("file:connector-open-%d?mode=memory&cache=shared", time.Now().UnixNano()),
		Migrate: true,
	})
	if err != nil {
		t.Fatalf("open client: %v", err)
	}
	defer func() { _ = client.Close() }()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if _, err := factory.TokenStore().FindBySessionSecret(ctx, "missing"); !errors.Is(err, core.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound from migrated store, got %v", err)
	}
}

func TestOpenClient_RejectsUnknownDriver(t *testing.T) {
	if _, err := sqlstore.OpenClient(context.Background(), sqlstore.Config{Driver: "oracle", DSN: "x"}); err == nil {
		t.Fatalf("expected unsupported driver to fail")
	}
	if _, err := sqlstore.OpenClient(context.Background(), sqlstore.Config{Driver: "sqlite"}); err == nil {
		t.Fatalf("expected missing dsn to fail")
	}
}

func TestTokenStore_CreateFindUpdateWithEncryption(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	cipher, err := security.NewAppKeyCipherFromString("sqlstore-test-app-key", security.WithKeyID("test-key"))
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	store, err := sqlstore.NewTokenStore(client.DB(), sqlstore.WithSecretCipher(cipher))
	if err != nil {
		t.Fatalf("new token store: %v", err)
	}

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	created, err := store.Create(ctx, core.Token{
		ID:             "0b6c5a9e-8d1e-4f7a-9c1b-1f2e3d4c5b6a",
		SessionSecret:  "session-secret-1",
		TPPRedirectURL: "https://tpp.example/return",
		TPPAppName:     "Budget App",
		Status:         core.TokenStatusUnconfirmed,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if created.Status != core.TokenStatusUnconfirmed {
		t.Fatalf("expected unconfirmed token, got %q", created.Status)
	}

	_, err = store.Create(ctx, core.Token{
		ID:             "9a1d2c3b-4e5f-4a6b-8c7d-0e1f2a3b4c5d",
		SessionSecret:  "session-secret-1",
		TPPRedirectURL: "https://tpp.example/return",
		Status:         core.TokenStatusUnconfirmed,
	})
	if !errors.Is(err, core.ErrDuplicateSessionSecret) {
		t.Fatalf("expected duplicate session secret error, got %v", err)
	}

	confirmed := created
	confirmed.Status = core.TokenStatusConfirmed
	confirmed.UserID = "user-1"
	confirmed.AccessToken = "access-token-1"
	confirmed.AccessTokenExpiresAt = now.Add(90 * 24 * time.Hour)
	confirmed.Consents = core.ProviderOfferedConsents{
		Balances: []core.AccountReference{{IBAN: "DE89370400440532013000", Currency: "EUR"}},
	}
	confirmed.UpdatedAt = now.Add(time.Minute)
	if _, err := store.Update(ctx, confirmed); err != nil {
		t.Fatalf("update token: %v", err)
	}

	var stored []byte
	if err := client.DB().NewRaw(
		"SELECT access_token FROM connector_tokens WHERE id = ?",
		created.ID,
	).Scan(ctx, &stored); err != nil {
		t.Fatalf("read raw access token: %v", err)
	}
	if !security.IsEnvelope(stored) {
		t.Fatalf("expected access token to be stored encrypted")
	}
	if strings.Contains(string(stored), "access-token-1") {
		t.Fatalf("expected plaintext access token to stay out of storage")
	}

	found, err := store.FindBySessionSecret(ctx, "session-secret-1")
	if err != nil {
		t.Fatalf("find by session secret: %v", err)
	}
	if found.AccessToken != "access-token-1" || found.UserID != "user-1" {
		t.Fatalf("unexpected token after update: %+v", found)
	}
	if len(found.Consents.Balances) != 1 || found.Consents.Balances[0].IBAN != "DE89370400440532013000" {
		t.Fatalf("expected consents to round trip, got %+v", found.Consents)
	}
	if !found.AccessTokenExpiresAt.Equal(confirmed.AccessTokenExpiresAt) {
		t.Fatalf("expected expiry %s, got %s", confirmed.AccessTokenExpiresAt, found.AccessTokenExpiresAt)
	}

	byAccess, err := store.FindByUserIDAndAccessToken(ctx, "user-1", "access-token-1")
	if err != nil {
		t.Fatalf("find by user and access token: %v", err)
	}
	if byAccess.ID != created.ID {
		t.Fatalf("expected token %s, got %s", created.ID, byAccess.ID)
	}

	if _, err := store.FindByUserIDAndAccessToken(ctx, "user-2", "access-token-1"); !errors.Is(err, core.ErrTokenNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
	if _, err := store.FindBySessionSecret(ctx, "unknown"); !errors.Is(err, core.ErrTokenNotFound) {
		t.Fatalf("expected not found for unknown secret, got %v", err)
	}
}

func TestTokenStore_ReadsPlaintextWithoutCipher(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	store, err := sqlstore.NewTokenStore(client.DB())
	if err != nil {
		t.Fatalf("new token store: %v", err)
	}
	if _, err := store.Create(ctx, core.Token{
		ID:             "5f0c3e2a-1b4d-4c6e-8f7a-9b0c1d2e3f4a",
		SessionSecret:  "plain-secret",
		TPPRedirectURL: "https://tpp.example/return",
		Status:         core.TokenStatusConfirmed,
		UserID:         "user-plain",
		AccessToken:    "plain-access",
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create token: %v", err)
	}
	found, err := store.FindByUserIDAndAccessToken(ctx, "user-plain", "plain-access")
	if err != nil {
		t.Fatalf("find token: %v", err)
	}
	if found.AccessToken != "plain-access" {
		t.Fatalf("expected plaintext access token, got %q", found.AccessToken)
	}
}

type failingDecryptCipher struct {
	core.SecretCipher
}

func (failingDecryptCipher) Decrypt(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("security: invalid nonce size 3")
}

func TestTokenStore_CipherFailuresAreInternal(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	cipher, err := security.NewAppKeyCipherFromString("sqlstore-test-app-key", security.WithKeyID("test-key"))
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}
	store, err := sqlstore.NewTokenStore(client.DB(), sqlstore.WithSecretCipher(failingDecryptCipher{SecretCipher: cipher}))
	if err != nil {
		t.Fatalf("new token store: %v", err)
	}
	if _, err := store.Create(ctx, core.Token{
		ID:             "7d3e2f1a-0b9c-4d8e-a7f6-5e4d3c2b1a09",
		SessionSecret:  "cipher-secret",
		TPPRedirectURL: "https://tpp.example/return",
		Status:         core.TokenStatusConfirmed,
		UserID:         "user-cipher",
		AccessToken:    "cipher-access",
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}); err != nil {
		t.Fatalf("create token: %v", err)
	}

	if _, err := store.FindByUserIDAndAccessToken(ctx, "user-cipher", "cipher-access"); !errors.Is(err, core.ErrSecretCipher) {
		t.Fatalf("expected cipher failure, got %v", err)
	}

	svc, err := core.NewCallbackService(core.DefaultConfig(), core.WithTokenRevoker(core.NewTokenService(store)))
	if err != nil {
		t.Fatalf("new callback service: %v", err)
	}
	revoked, err := svc.RevokeAccountInformationConsent(ctx, core.RevokeConsentRequest{
		UserID:      "user-cipher",
		AccessToken: "cipher-access",
	})
	if revoked {
		t.Fatalf("expected revoke to fail")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T: %v", err, err)
	}
	if rich.TextCode != core.ConnectorErrorInternal || rich.Code != 500 {
		t.Fatalf("expected internal error, got %s/%d", rich.TextCode, rich.Code)
	}
}

func TestTokenService_LifecycleOverSQLiteStore(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	cacheConfig := repositorycache.DefaultConfig()
	cacheConfig.TTL = time.Minute
	cacheService, err := repositorycache.NewCacheService(cacheConfig)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	factory, err := sqlstore.NewRepositoryFactoryFromDB(client.DB(), sqlstore.WithFactoryCache(cacheService))
	if err != nil {
		t.Fatalf("factory: %v", err)
	}
	if _, ok := factory.TokenStore().(*sqlstore.CachedTokenStore); !ok {
		t.Fatalf("expected cached token store when a cache is configured")
	}

	service := core.NewTokenService(factory.TokenStore())
	created, err := service.CreateToken(ctx, core.CreateTokenInput{
		SessionSecret:  "lifecycle-secret",
		TPPRedirectURL: "https://tpp.example/return",
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}

	confirmed, err := service.ConfirmToken(ctx, core.ConfirmTokenInput{
		SessionSecret:        "lifecycle-secret",
		UserID:               "user-9",
		AccessToken:          "access-9",
		AccessTokenExpiresAt: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("confirm token: %v", err)
	}
	if confirmed == nil || confirmed.Status != core.TokenStatusConfirmed {
		t.Fatalf("expected confirmed token, got %+v", confirmed)
	}

	revoked, err := service.RevokeTokenByUserIDAndAccessToken(ctx, "user-9", "access-9")
	if err != nil {
		t.Fatalf("revoke token: %v", err)
	}
	if revoked == nil || revoked.ID != created.ID || !revoked.IsRevoked() {
		t.Fatalf("expected revoked token %s, got %+v", created.ID, revoked)
	}

	reloaded, err := service.FindBySessionSecret(ctx, "lifecycle-secret")
	if err != nil {
		t.Fatalf("reload token: %v", err)
	}
	if reloaded == nil || !reloaded.IsRevoked() {
		t.Fatalf("expected cache to be invalidated after revoke, got %+v", reloaded)
	}
}

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:connector-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		t.Fatalf("open sqlite db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	cfg := testPersistenceConfig{
		driver: "sqlite3",
		server: dsn,
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		t.Fatalf("new persistence client: %v", err)
	}

	ctx := context.Background()
	err = connectormigrations.Register(ctx, connectormigrations.DialectSQLite, func(_ context.Context, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	})
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}
