package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type AccountInformationAuthorization struct {
	SessionSecret        string
	UserID               string
	AccessToken          string
	AccessTokenExpiresAt time.Time
	Consents             *ProviderOfferedConsents
}

type RevokeConsentRequest struct {
	UserID      string
	AccessToken string
}

type PaymentInitiationAuthorization struct {
	PaymentID    string
	UserID       string
	PaymentExtra map[string]string
}

type PaymentInitiationFailure struct {
	PaymentID    string
	PaymentExtra map[string]string
}

type CreateTokenInput struct {
	SessionSecret  string
	TPPRedirectURL string
	TPPAppName     string
}

type ConfirmTokenInput struct {
	SessionSecret        string
	UserID               string
	AccessToken          string
	AccessTokenExpiresAt time.Time
	Consents             ProviderOfferedConsents
}

// TokenConfirmer confirms an unconfirmed token. A nil token with a nil error
// means no token matched the session secret.
type TokenConfirmer interface {
	ConfirmToken(ctx context.Context, in ConfirmTokenInput) (*Token, error)
}

// TokenRevoker revokes tokens. A nil token with a nil error means no token
// matched.
type TokenRevoker interface {
	RevokeTokenBySessionSecret(ctx context.Context, sessionSecret string) (*Token, error)
	RevokeTokenByUserIDAndAccessToken(ctx context.Context, userID string, accessToken string) (*Token, error)
}

type TokenCreator interface {
	CreateToken(ctx context.Context, in CreateTokenInput) (Token, error)
}

// TokenStore persists tokens. Lookups return ErrTokenNotFound (possibly
// wrapped) when nothing matches.
type TokenStore interface {
	Create(ctx context.Context, token Token) (Token, error)
	Update(ctx context.Context, token Token) (Token, error)
	FindBySessionSecret(ctx context.Context, sessionSecret string) (Token, error)
	FindByUserIDAndAccessToken(ctx context.Context, userID string, accessToken string) (Token, error)
}

type SessionsCallbackSender interface {
	SendSuccessCallback(ctx context.Context, sessionSecret string, params SessionSuccessCallback) error
	SendFailCallback(ctx context.Context, sessionSecret string, params SessionFailCallback) error
}

type TokensCallbackSender interface {
	SendRevokeTokenCallback(ctx context.Context, accessToken string) error
}

// ProviderCallback is the surface a provider integration calls once the
// user finished (or abandoned) an authorization flow.
type ProviderCallback interface {
	OnAccountInformationAuthorizationSuccess(ctx context.Context, in AccountInformationAuthorization) (string, error)
	OnAccountInformationAuthorizationFail(ctx context.Context, sessionSecret string) (string, error)
	RevokeAccountInformationConsent(ctx context.Context, in RevokeConsentRequest) (bool, error)
	OnPaymentInitiationAuthorizationSuccess(ctx context.Context, in PaymentInitiationAuthorization) (string, error)
	OnPaymentInitiationAuthorizationFail(ctx context.Context, in PaymentInitiationFailure) (string, error)
}

type SecretCipher interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
