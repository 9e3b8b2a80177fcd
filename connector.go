// Package connector wires the provider-side callbacks of a PSD2 compliance
// connector: account information and payment initiation authorization
// outcomes, consent revocation and the token lifecycle behind them.
package connector

import "github.com/goliatone/go-compliance-connector/core"

type Config = core.Config

type CallbacksConfig = core.CallbacksConfig

type PaymentsConfig = core.PaymentsConfig

type Option = core.Option

type Service = core.CallbackService

type ServiceDependencies = core.ServiceDependencies
type TokenService = core.TokenService
type TokenStore = core.TokenStore
type SessionsCallbackSender = core.SessionsCallbackSender
type TokensCallbackSender = core.TokensCallbackSender
type ProviderCallback = core.ProviderCallback

type AccountInformationAuthorization = core.AccountInformationAuthorization
type RevokeConsentRequest = core.RevokeConsentRequest
type PaymentInitiationAuthorization = core.PaymentInitiationAuthorization
type PaymentInitiationFailure = core.PaymentInitiationFailure

var (
	WithLogger                 = core.WithLogger
	WithLoggerProvider         = core.WithLoggerProvider
	WithMetricsRecorder        = core.WithMetricsRecorder
	WithErrorFactory           = core.WithErrorFactory
	WithErrorMapper            = core.WithErrorMapper
	WithConfigProvider         = core.WithConfigProvider
	WithOptionsResolver        = core.WithOptionsResolver
	WithTokenStore             = core.WithTokenStore
	WithTokenConfirmer         = core.WithTokenConfirmer
	WithTokenRevoker           = core.WithTokenRevoker
	WithSessionsCallbackSender = core.WithSessionsCallbackSender
	WithTokensCallbackSender   = core.WithTokensCallbackSender
	WithClock                  = core.WithClock
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewCallbackService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
