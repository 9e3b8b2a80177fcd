package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/goliatone/go-compliance-connector/core"
	"github.com/goliatone/go-compliance-connector/security"
	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

const tokenCacheKeyPrefix = "go-compliance-connector::token::v1"

// CachedTokenStore caches session secret lookups in front of another
// TokenStore. Writes go to the base store and drop the cached entry. Access
// tokens are never cached: entries for tokens that carry one only record that
// fact, and a hit on such an entry reads through to the base store.
type CachedTokenStore struct {
	base  core.TokenStore
	cache repositorycache.CacheService
}

type cachedTokenEntry struct {
	Token          core.Token
	HasAccessToken bool
}

func NewCachedTokenStore(base core.TokenStore, cacheService repositorycache.CacheService) (*CachedTokenStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base token store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: token cache service is required")
	}
	return &CachedTokenStore{base: base, cache: cacheService}, nil
}

// TokenCacheKey returns go-compliance-connector::token::v1::<hash> where hash
// is the lookup hash of the trimmed session secret. Raw secrets never reach
// the cache backend.
func TokenCacheKey(sessionSecret string) (string, error) {
	secret := strings.TrimSpace(sessionSecret)
	if secret == "" {
		return "", fmt.Errorf("sqlstore: session secret is required")
	}
	return tokenCacheKeyPrefix + "::" + url.PathEscape(security.LookupHash(secret)), nil
}

func (s *CachedTokenStore) Create(ctx context.Context, token core.Token) (core.Token, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Token{}, fmt.Errorf("sqlstore: cached token store is not configured")
	}
	created, err := s.base.Create(ctx, token)
	if err != nil {
		return core.Token{}, err
	}
	if err := s.invalidate(ctx, created.SessionSecret); err != nil {
		return core.Token{}, err
	}
	return created, nil
}

func (s *CachedTokenStore) Update(ctx context.Context, token core.Token) (core.Token, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Token{}, fmt.Errorf("sqlstore: cached token store is not configured")
	}
	updated, err := s.base.Update(ctx, token)
	if err != nil {
		return core.Token{}, err
	}
	if err := s.invalidate(ctx, updated.SessionSecret); err != nil {
		return core.Token{}, err
	}
	return updated, nil
}

func (s *CachedTokenStore) FindBySessionSecret(ctx context.Context, sessionSecret string) (core.Token, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return core.Token{}, fmt.Errorf("sqlstore: cached token store is not configured")
	}
	secret := strings.TrimSpace(sessionSecret)
	if secret == "" {
		return core.Token{}, core.ErrTokenNotFound
	}
	cacheKey, err := TokenCacheKey(secret)
	if err != nil {
		return core.Token{}, err
	}
	var fetched *core.Token
	entry, err := repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (cachedTokenEntry, error) {
		token, err := s.base.FindBySessionSecret(ctx, secret)
		if err != nil {
			return cachedTokenEntry{}, err
		}
		fetched = &token
		return newCachedTokenEntry(token), nil
	})
	if err != nil {
		return core.Token{}, err
	}
	if fetched != nil {
		return cloneToken(*fetched), nil
	}
	if entry.HasAccessToken {
		return s.base.FindBySessionSecret(ctx, secret)
	}
	return cloneToken(entry.Token), nil
}

// FindByUserIDAndAccessToken always reads through to the base store.
func (s *CachedTokenStore) FindByUserIDAndAccessToken(ctx context.Context, userID string, accessToken string) (core.Token, error) {
	if s == nil || s.base == nil {
		return core.Token{}, fmt.Errorf("sqlstore: cached token store is not configured")
	}
	return s.base.FindByUserIDAndAccessToken(ctx, userID, accessToken)
}

func (s *CachedTokenStore) invalidate(ctx context.Context, sessionSecret string) error {
	cacheKey, err := TokenCacheKey(sessionSecret)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func newCachedTokenEntry(token core.Token) cachedTokenEntry {
	entry := cachedTokenEntry{Token: cloneToken(token)}
	if entry.Token.AccessToken != "" {
		entry.Token.AccessToken = ""
		entry.HasAccessToken = true
	}
	return entry
}

func cloneToken(token core.Token) core.Token {
	cloned := token
	cloned.Consents = token.Consents.Clone()
	return cloned
}
