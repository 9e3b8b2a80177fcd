package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"
	"github.com/google/uuid"
)

// TokenService owns the token lifecycle. It creates, confirms and revokes
// tokens over a TokenStore and notifies the session callback endpoint about
// confirmations and denials.
type TokenService struct {
	store          TokenStore
	sessionsSender SessionsCallbackSender
	clock          func() time.Time
	newID          func() string
	observer       operationObserver
}

type TokenServiceOption func(*TokenService)

func WithTokenClock(clock func() time.Time) TokenServiceOption {
	return func(s *TokenService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithTokenIDGenerator(generator func() string) TokenServiceOption {
	return func(s *TokenService) {
		if generator != nil {
			s.newID = generator
		}
	}
}

func WithTokenSessionsCallbackSender(sender SessionsCallbackSender) TokenServiceOption {
	return func(s *TokenService) {
		s.sessionsSender = sender
	}
}

func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(s *TokenService) {
		s.observer.logger = glog.Ensure(logger)
	}
}

func WithTokenMetricsRecorder(recorder MetricsRecorder) TokenServiceOption {
	return func(s *TokenService) {
		if recorder != nil {
			s.observer.metricsRecorder = recorder
		}
	}
}

func NewTokenService(store TokenStore, opts ...TokenServiceOption) *TokenService {
	if store == nil {
		store = NewMemoryTokenStore()
	}
	service := &TokenService{
		store:    store,
		clock:    func() time.Time { return time.Now().UTC() },
		newID:    uuid.NewString,
		observer: operationObserver{logger: glog.Nop(), metricsRecorder: NopMetricsRecorder{}},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(service)
		}
	}
	return service
}

func (s *TokenService) CreateToken(ctx context.Context, in CreateTokenInput) (Token, error) {
	if s == nil || s.store == nil {
		return Token{}, fmt.Errorf("core: token service is not configured")
	}
	secret := strings.TrimSpace(in.SessionSecret)
	if secret == "" {
		return Token{}, NewValidationError("session_secret", "is required")
	}
	if strings.TrimSpace(in.TPPRedirectURL) == "" {
		return Token{}, NewValidationError("tpp_redirect_url", "is required")
	}
	if _, err := s.store.FindBySessionSecret(ctx, secret); err == nil {
		return Token{}, ErrDuplicateSessionSecret
	} else if !errors.Is(err, ErrTokenNotFound) {
		return Token{}, err
	}

	now := s.now()
	return s.store.Create(ctx, Token{
		ID:             s.newID(),
		SessionSecret:  secret,
		TPPRedirectURL: strings.TrimSpace(in.TPPRedirectURL),
		TPPAppName:     strings.TrimSpace(in.TPPAppName),
		Status:         TokenStatusUnconfirmed,
		Consents:       ProviderOfferedConsents{},
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (s *TokenService) ConfirmToken(ctx context.Context, in ConfirmTokenInput) (*Token, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("core: token service is not configured")
	}
	if strings.TrimSpace(in.SessionSecret) == "" {
		return nil, NewValidationError("session_secret", "is required")
	}
	if err := in.Consents.Validate(); err != nil {
		return nil, err
	}
	token, err := s.lookupBySessionSecret(ctx, in.SessionSecret)
	if err != nil || token == nil {
		return nil, err
	}
	if token.Status != TokenStatusUnconfirmed {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTokenStatusTransition, token.Status, TokenStatusConfirmed)
	}
	if err := token.TransitionTo(TokenStatusConfirmed, s.now()); err != nil {
		return nil, err
	}
	token.UserID = strings.TrimSpace(in.UserID)
	token.AccessToken = in.AccessToken
	token.AccessTokenExpiresAt = in.AccessTokenExpiresAt.UTC()
	token.Consents = in.Consents.Clone()

	updated, err := s.store.Update(ctx, *token)
	if err != nil {
		return nil, err
	}

	if s.sessionsSender != nil {
		expiresAt := updated.AccessTokenExpiresAt
		consents := updated.Consents.Clone()
		sendErr := s.sessionsSender.SendSuccessCallback(ctx, updated.SessionSecret, SessionSuccessCallback{
			UserID:               updated.UserID,
			Status:               string(TokenStatusConfirmed),
			AccessToken:          updated.AccessToken,
			AccessTokenExpiresAt: &expiresAt,
			Consents:             &consents,
		})
		s.observer.observeCallback(ctx, "session_success", sendErr, map[string]any{
			"token_id":       updated.ID,
			"session_secret": updated.SessionSecret,
		})
	}
	return &updated, nil
}

func (s *TokenService) RevokeTokenBySessionSecret(ctx context.Context, sessionSecret string) (*Token, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("core: token service is not configured")
	}
	if strings.TrimSpace(sessionSecret) == "" {
		return nil, NewValidationError("session_secret", "is required")
	}
	token, err := s.lookupBySessionSecret(ctx, sessionSecret)
	if err != nil || token == nil {
		return nil, err
	}
	if token.IsRevoked() {
		return token, nil
	}
	if err := token.TransitionTo(TokenStatusRevoked, s.now()); err != nil {
		return nil, err
	}
	updated, err := s.store.Update(ctx, *token)
	if err != nil {
		return nil, err
	}

	if s.sessionsSender != nil {
		sendErr := s.sessionsSender.SendFailCallback(ctx, updated.SessionSecret, AuthorizationDenied())
		s.observer.observeCallback(ctx, "session_fail", sendErr, map[string]any{
			"token_id":       updated.ID,
			"session_secret": updated.SessionSecret,
		})
	}
	return &updated, nil
}

func (s *TokenService) RevokeTokenByUserIDAndAccessToken(ctx context.Context, userID string, accessToken string) (*Token, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("core: token service is not configured")
	}
	token, err := s.FindByAccessToken(ctx, userID, accessToken)
	if err != nil || token == nil {
		return nil, err
	}
	if token.IsRevoked() {
		return token, nil
	}
	if err := token.TransitionTo(TokenStatusRevoked, s.now()); err != nil {
		return nil, err
	}
	updated, err := s.store.Update(ctx, *token)
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// FindBySessionSecret returns nil without error when no token matches.
func (s *TokenService) FindBySessionSecret(ctx context.Context, sessionSecret string) (*Token, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("core: token service is not configured")
	}
	return s.lookupBySessionSecret(ctx, sessionSecret)
}

// FindByAccessToken returns nil without error when no token matches.
func (s *TokenService) FindByAccessToken(ctx context.Context, userID string, accessToken string) (*Token, error) {
	if s == nil || s.store == nil {
		return nil, fmt.Errorf("core: token service is not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, NewValidationError("user_id", "is required")
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, NewValidationError("access_token", "is required")
	}
	token, err := s.store.FindByUserIDAndAccessToken(ctx, userID, accessToken)
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (s *TokenService) lookupBySessionSecret(ctx context.Context, sessionSecret string) (*Token, error) {
	token, err := s.store.FindBySessionSecret(ctx, strings.TrimSpace(sessionSecret))
	if err != nil {
		if errors.Is(err, ErrTokenNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &token, nil
}

func (s *TokenService) now() time.Time {
	if s.clock == nil {
		return time.Now().UTC()
	}
	return s.clock().UTC()
}
