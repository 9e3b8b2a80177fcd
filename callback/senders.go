package callback

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-compliance-connector/core"
)

const (
	OutcomeSuccess = "success"
	OutcomeFail    = "fail"
	pathRevoke     = "/tokens/revoke"
)

type Poster interface {
	Post(ctx context.Context, path string, payload any) error
}

type SessionsSender struct {
	client Poster
}

func NewSessionsSender(client Poster) *SessionsSender {
	return &SessionsSender{client: client}
}

func (s *SessionsSender) SendSuccessCallback(ctx context.Context, sessionSecret string, params core.SessionSuccessCallback) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("callback: sessions sender is not configured")
	}
	if sessionSecret == "" {
		return core.NewValidationError("session_secret", "is required")
	}
	return s.client.Post(ctx, sessionPath(sessionSecret, OutcomeSuccess), params)
}

func (s *SessionsSender) SendFailCallback(ctx context.Context, sessionSecret string, params core.SessionFailCallback) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("callback: sessions sender is not configured")
	}
	if sessionSecret == "" {
		return core.NewValidationError("session_secret", "is required")
	}
	return s.client.Post(ctx, sessionPath(sessionSecret, OutcomeFail), params)
}

type TokensSender struct {
	client Poster
}

func NewTokensSender(client Poster) *TokensSender {
	return &TokensSender{client: client}
}

func (s *TokensSender) SendRevokeTokenCallback(ctx context.Context, accessToken string) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("callback: tokens sender is not configured")
	}
	if strings.TrimSpace(accessToken) == "" {
		return core.NewValidationError("access_token", "is required")
	}
	return s.client.Post(ctx, pathRevoke, core.RevokeTokenCallback{AccessToken: accessToken})
}

var (
	_ core.SessionsCallbackSender = (*SessionsSender)(nil)
	_ core.TokensCallbackSender   = (*TokensSender)(nil)
	_ Poster                      = (*Client)(nil)
	_ RequestSigner               = (*JWTSigner)(nil)
)
