package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MemoryTokenStore keeps tokens in process memory. Session secrets are unique.
type MemoryTokenStore struct {
	mu       sync.RWMutex
	byID     map[string]Token
	bySecret map[string]string
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		byID:     map[string]Token{},
		bySecret: map[string]string{},
	}
}

func (s *MemoryTokenStore) Create(_ context.Context, token Token) (Token, error) {
	if s == nil {
		return Token{}, fmt.Errorf("core: memory token store is nil")
	}
	token.ID = strings.TrimSpace(token.ID)
	token.SessionSecret = strings.TrimSpace(token.SessionSecret)
	if token.ID == "" {
		return Token{}, fmt.Errorf("core: token id is required")
	}
	if token.SessionSecret == "" {
		return Token{}, fmt.Errorf("core: session secret is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bySecret[token.SessionSecret]; exists {
		return Token{}, ErrDuplicateSessionSecret
	}
	if _, exists := s.byID[token.ID]; exists {
		return Token{}, fmt.Errorf("core: token %q already exists", token.ID)
	}
	stored := *cloneToken(&token)
	s.byID[stored.ID] = stored
	s.bySecret[stored.SessionSecret] = stored.ID
	return *cloneToken(&stored), nil
}

func (s *MemoryTokenStore) Update(_ context.Context, token Token) (Token, error) {
	if s == nil {
		return Token{}, fmt.Errorf("core: memory token store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.byID[strings.TrimSpace(token.ID)]
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	// the session secret identifies the session and never changes
	token.SessionSecret = current.SessionSecret
	token.CreatedAt = current.CreatedAt
	stored := *cloneToken(&token)
	s.byID[stored.ID] = stored
	return *cloneToken(&stored), nil
}

func (s *MemoryTokenStore) FindBySessionSecret(_ context.Context, sessionSecret string) (Token, error) {
	if s == nil {
		return Token{}, fmt.Errorf("core: memory token store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySecret[strings.TrimSpace(sessionSecret)]
	if !ok {
		return Token{}, ErrTokenNotFound
	}
	token := s.byID[id]
	return *cloneToken(&token), nil
}

func (s *MemoryTokenStore) FindByUserIDAndAccessToken(_ context.Context, userID string, accessToken string) (Token, error) {
	if s == nil {
		return Token{}, fmt.Errorf("core: memory token store is nil")
	}
	userID = strings.TrimSpace(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	// most recently updated match wins, as in the SQL store
	var (
		match Token
		found bool
	)
	for _, token := range s.byID {
		if token.UserID != userID || token.AccessToken != accessToken {
			continue
		}
		if !found || token.UpdatedAt.After(match.UpdatedAt) {
			match = token
			found = true
		}
	}
	if !found {
		return Token{}, ErrTokenNotFound
	}
	return *cloneToken(&match), nil
}

func (s *MemoryTokenStore) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
