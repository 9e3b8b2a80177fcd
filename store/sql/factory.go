package sqlstore

import (
	"fmt"

	"github.com/goliatone/go-compliance-connector/core"
	persistence "github.com/goliatone/go-persistence-bun"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/uptrace/bun"
)

type RepositoryFactory struct {
	db     *bun.DB
	cipher core.SecretCipher
	cache  repositorycache.CacheService

	tokenStore       *TokenStore
	cachedTokenStore *CachedTokenStore
}

type FactoryOption func(*RepositoryFactory)

func WithFactorySecretCipher(cipher core.SecretCipher) FactoryOption {
	return func(f *RepositoryFactory) {
		f.cipher = cipher
	}
}

// WithFactoryCache wraps the token store in a CachedTokenStore.
func WithFactoryCache(cacheService repositorycache.CacheService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.cache = cacheService
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.Build(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if err := factory.Build(db); err != nil {
		return nil, err
	}
	return factory, nil
}

// Build accepts a *bun.DB or anything exposing DB() *bun.DB, such as a
// go-persistence-bun client.
func (f *RepositoryFactory) Build(persistenceClient any) error {
	if f == nil {
		return fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return err
		}
		f.db = db
	}
	if f.tokenStore != nil {
		return nil
	}

	var opts []TokenStoreOption
	if f.cipher != nil {
		opts = append(opts, WithSecretCipher(f.cipher))
	}
	tokenStore, err := NewTokenStore(f.db, opts...)
	if err != nil {
		return err
	}
	f.tokenStore = tokenStore
	if f.cache != nil {
		cached, err := NewCachedTokenStore(tokenStore, f.cache)
		if err != nil {
			return err
		}
		f.cachedTokenStore = cached
	}
	return nil
}

// TokenStore returns the cached store when a cache is configured.
func (f *RepositoryFactory) TokenStore() core.TokenStore {
	if f == nil {
		return nil
	}
	if f.cachedTokenStore != nil {
		return f.cachedTokenStore
	}
	if f.tokenStore == nil {
		return nil
	}
	return f.tokenStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
