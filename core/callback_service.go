package core

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// CallbackService receives authorization outcomes from the provider and
// forwards them to token storage and the remote callback endpoints.
type CallbackService struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	tokenConfirmer  TokenConfirmer
	tokenRevoker    TokenRevoker
	tokenService    *TokenService
	sessionsSender  SessionsCallbackSender
	tokensSender    TokensCallbackSender
	observer        operationObserver
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	TokenConfirmer  TokenConfirmer
	TokenRevoker    TokenRevoker
	TokenService    *TokenService
	SessionsSender  SessionsCallbackSender
	TokensSender    TokensCallbackSender
}

func NewCallbackService(cfg Config, opts ...Option) (*CallbackService, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("connector", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("connector"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	var tokenService *TokenService
	if builder.tokenConfirmer == nil || builder.tokenRevoker == nil {
		tokenOpts := []TokenServiceOption{
			WithTokenSessionsCallbackSender(builder.sessionsSender),
			WithTokenLogger(logger),
			WithTokenMetricsRecorder(builder.metricsRecorder),
		}
		if builder.clock != nil {
			tokenOpts = append(tokenOpts, WithTokenClock(builder.clock))
		}
		tokenService = NewTokenService(builder.tokenStore, tokenOpts...)
		if builder.tokenConfirmer == nil {
			builder.tokenConfirmer = tokenService
		}
		if builder.tokenRevoker == nil {
			builder.tokenRevoker = tokenService
		}
	}

	return &CallbackService{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		tokenConfirmer:  builder.tokenConfirmer,
		tokenRevoker:    builder.tokenRevoker,
		tokenService:    tokenService,
		sessionsSender:  builder.sessionsSender,
		tokensSender:    builder.tokensSender,
		observer: operationObserver{
			prefix:          "connector",
			logger:          logger,
			metricsRecorder: builder.metricsRecorder,
		},
	}, nil
}

func Setup(cfg Config, opts ...Option) (*CallbackService, error) {
	return NewCallbackService(cfg, opts...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *CallbackService) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

// TokenService returns the token service built from the configured store. It
// is nil when both the confirmer and the revoker were injected.
func (s *CallbackService) TokenService() *TokenService {
	if s == nil {
		return nil
	}
	return s.tokenService
}

func (s *CallbackService) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorFactory:    s.errorFactory,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		TokenConfirmer:  s.tokenConfirmer,
		TokenRevoker:    s.tokenRevoker,
		TokenService:    s.tokenService,
		SessionsSender:  s.sessionsSender,
		TokensSender:    s.tokensSender,
	}
}

// OnAccountInformationAuthorizationSuccess confirms the token of the session
// and returns the redirect URL of the TPP.
func (s *CallbackService) OnAccountInformationAuthorizationSuccess(
	ctx context.Context,
	in AccountInformationAuthorization,
) (redirectURL string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"session_secret": in.SessionSecret,
		"user_id":        in.UserID,
	}
	defer func() {
		s.observe(ctx, startedAt, "account_information_success", err, fields)
	}()

	if err = s.requireConfigured(s != nil && s.tokenConfirmer != nil, "token confirmer"); err != nil {
		return "", err
	}
	if err = requireFields(
		requiredString("session_secret", in.SessionSecret),
		requiredString("user_id", in.UserID),
		requiredString("access_token", in.AccessToken),
	); err != nil {
		return "", s.mapError(err)
	}
	if in.AccessTokenExpiresAt.IsZero() {
		err = s.mapError(NewValidationError("access_token_expires_at", "is required"))
		return "", err
	}
	if in.Consents == nil {
		err = s.mapError(NewValidationError("consents", "is required"))
		return "", err
	}

	token, err := s.tokenConfirmer.ConfirmToken(ctx, ConfirmTokenInput{
		SessionSecret:        in.SessionSecret,
		UserID:               in.UserID,
		AccessToken:          in.AccessToken,
		AccessTokenExpiresAt: in.AccessTokenExpiresAt,
		Consents:             in.Consents.Clone(),
	})
	if err != nil {
		err = s.mapError(err)
		return "", err
	}
	if token == nil {
		err = s.mapError(ErrTokenNotFound)
		return "", err
	}
	fields["token_id"] = token.ID
	return token.TPPRedirectURL, nil
}

// OnAccountInformationAuthorizationFail revokes the token of the session and
// returns the redirect URL of the TPP.
func (s *CallbackService) OnAccountInformationAuthorizationFail(
	ctx context.Context,
	sessionSecret string,
) (redirectURL string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"session_secret": sessionSecret,
	}
	defer func() {
		s.observe(ctx, startedAt, "account_information_fail", err, fields)
	}()

	if err = s.requireConfigured(s != nil && s.tokenRevoker != nil, "token revoker"); err != nil {
		return "", err
	}
	if err = requireFields(requiredString("session_secret", sessionSecret)); err != nil {
		return "", s.mapError(err)
	}

	token, err := s.tokenRevoker.RevokeTokenBySessionSecret(ctx, sessionSecret)
	if err != nil {
		err = s.mapError(err)
		return "", err
	}
	if token == nil {
		err = s.mapError(ErrTokenNotFound)
		return "", err
	}
	fields["token_id"] = token.ID
	return token.TPPRedirectURL, nil
}

// RevokeAccountInformationConsent revokes the token matching the user and
// access token. The token callback is sent only for a revoked token.
func (s *CallbackService) RevokeAccountInformationConsent(
	ctx context.Context,
	in RevokeConsentRequest,
) (revoked bool, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"user_id":      in.UserID,
		"access_token": in.AccessToken,
	}
	defer func() {
		fields["revoked"] = revoked
		s.observe(ctx, startedAt, "revoke_account_information_consent", err, fields)
	}()

	if err = s.requireConfigured(s != nil && s.tokenRevoker != nil, "token revoker"); err != nil {
		return false, err
	}
	if err = requireFields(
		requiredString("user_id", in.UserID),
		requiredString("access_token", in.AccessToken),
	); err != nil {
		return false, s.mapError(err)
	}

	token, err := s.tokenRevoker.RevokeTokenByUserIDAndAccessToken(ctx, in.UserID, in.AccessToken)
	if err != nil {
		err = s.mapError(err)
		return false, err
	}
	if token == nil || !token.IsRevoked() {
		return false, nil
	}
	fields["token_id"] = token.ID

	if s.tokensSender != nil {
		sendErr := s.tokensSender.SendRevokeTokenCallback(ctx, in.AccessToken)
		s.observer.observeCallback(ctx, "token_revoke", sendErr, map[string]any{
			"token_id": token.ID,
			"user_id":  in.UserID,
		})
	}
	return true, nil
}

// OnPaymentInitiationAuthorizationSuccess notifies the session of an
// accepted payment and returns the return_to_url extra, or "".
func (s *CallbackService) OnPaymentInitiationAuthorizationSuccess(
	ctx context.Context,
	in PaymentInitiationAuthorization,
) (returnURL string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"payment_id": in.PaymentID,
		"user_id":    in.UserID,
	}
	defer func() {
		s.observe(ctx, startedAt, "payment_initiation_success", err, fields)
	}()

	if err = requireFields(
		requiredString("payment_id", in.PaymentID),
		requiredString("user_id", in.UserID),
	); err != nil {
		return "", s.mapError(err)
	}
	if len(in.PaymentExtra) == 0 {
		err = s.mapError(NewValidationError("payment_extra", "is required"))
		return "", err
	}

	status := PaymentStatusAccepted
	if s != nil && strings.TrimSpace(s.config.Payments.SuccessStatus) != "" {
		status = strings.TrimSpace(s.config.Payments.SuccessStatus)
	}
	sessionSecret := in.PaymentExtra[KeySessionSecret]
	if sessionSecret != "" && s != nil && s.sessionsSender != nil {
		sendErr := s.sessionsSender.SendSuccessCallback(ctx, sessionSecret, SessionSuccessCallback{
			UserID: in.UserID,
			Status: status,
		})
		s.observer.observeCallback(ctx, "session_success", sendErr, map[string]any{
			"payment_id":     in.PaymentID,
			"session_secret": sessionSecret,
		})
	}
	return in.PaymentExtra[KeyReturnToURL], nil
}

// OnPaymentInitiationAuthorizationFail notifies the session that no payment
// was created and returns the return_to_url extra, or "".
func (s *CallbackService) OnPaymentInitiationAuthorizationFail(
	ctx context.Context,
	in PaymentInitiationFailure,
) (returnURL string, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"payment_id": in.PaymentID,
	}
	defer func() {
		s.observe(ctx, startedAt, "payment_initiation_fail", err, fields)
	}()

	if err = requireFields(requiredString("payment_id", in.PaymentID)); err != nil {
		return "", s.mapError(err)
	}
	if len(in.PaymentExtra) == 0 {
		err = s.mapError(NewValidationError("payment_extra", "is required"))
		return "", err
	}

	sessionSecret := in.PaymentExtra[KeySessionSecret]
	if sessionSecret != "" && s != nil && s.sessionsSender != nil {
		sendErr := s.sessionsSender.SendFailCallback(ctx, sessionSecret, PaymentNotCreated())
		s.observer.observeCallback(ctx, "session_fail", sendErr, map[string]any{
			"payment_id":     in.PaymentID,
			"session_secret": sessionSecret,
		})
	}
	return in.PaymentExtra[KeyReturnToURL], nil
}

func (s *CallbackService) observe(ctx context.Context, startedAt time.Time, operation string, err error, fields map[string]any) {
	if s == nil {
		return
	}
	s.observer.observe(ctx, startedAt, operation, err, fields)
}

func (s *CallbackService) requireConfigured(ok bool, collaborator string) error {
	if ok {
		return nil
	}
	return s.mapError(goerrors.New("core: "+collaborator+" is not configured", goerrors.CategoryInternal).
		WithTextCode(ConnectorErrorInternal))
}

func (s *CallbackService) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

type requiredField struct {
	name  string
	value string
}

func requiredString(name string, value string) requiredField {
	return requiredField{name: name, value: value}
}

func requireFields(fields ...requiredField) error {
	for _, field := range fields {
		if strings.TrimSpace(field.value) == "" {
			return NewValidationError(field.name, "is required")
		}
	}
	return nil
}
