package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig   Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	tokenStore      TokenStore
	tokenConfirmer  TokenConfirmer
	tokenRevoker    TokenRevoker
	sessionsSender  SessionsCallbackSender
	tokensSender    TokensCallbackSender
	clock           func() time.Time
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

// WithTokenStore sets the store backing the default TokenService. It is
// ignored for the roles already covered by WithTokenConfirmer and
// WithTokenRevoker.
func WithTokenStore(store TokenStore) Option {
	return func(b *serviceBuilder) {
		b.tokenStore = store
	}
}

func WithTokenConfirmer(confirmer TokenConfirmer) Option {
	return func(b *serviceBuilder) {
		b.tokenConfirmer = confirmer
	}
}

func WithTokenRevoker(revoker TokenRevoker) Option {
	return func(b *serviceBuilder) {
		b.tokenRevoker = revoker
	}
}

func WithSessionsCallbackSender(sender SessionsCallbackSender) Option {
	return func(b *serviceBuilder) {
		b.sessionsSender = sender
	}
}

func WithTokensCallbackSender(sender TokensCallbackSender) Option {
	return func(b *serviceBuilder) {
		b.tokensSender = sender
	}
}

func WithClock(clock func() time.Time) Option {
	return func(b *serviceBuilder) {
		b.clock = clock
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("connector", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return connectorErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

func NewStaticConfigLoader(values map[string]any) RawConfigLoader {
	return staticRawConfigLoader{Values: values}
}

type envConfig struct {
	ServiceName    string        `env:"CONNECTOR_SERVICE_NAME"`
	BaseURL        string        `env:"CONNECTOR_CALLBACKS_BASE_URL"`
	ClientID       string        `env:"CONNECTOR_CALLBACKS_CLIENT_ID"`
	JWTTTL         time.Duration `env:"CONNECTOR_CALLBACKS_JWT_TTL"`
	Timeout        time.Duration `env:"CONNECTOR_CALLBACKS_TIMEOUT"`
	PaymentsStatus string        `env:"CONNECTOR_PAYMENTS_SUCCESS_STATUS"`
}

// EnvConfigLoader reads CONNECTOR_* environment variables. Unset variables
// are left out of the raw map so defaults survive.
type EnvConfigLoader struct {
	Environment map[string]string
}

func (l EnvConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	var raw envConfig
	var err error
	if l.Environment != nil {
		err = env.ParseWithOptions(&raw, env.Options{Environment: l.Environment})
	} else {
		err = env.Parse(&raw)
	}
	if err != nil {
		return nil, fmt.Errorf("core: parse env: %w", err)
	}
	return configToLayerMap(Config{
		ServiceName: raw.ServiceName,
		Callbacks: CallbacksConfig{
			BaseURL:  raw.BaseURL,
			ClientID: raw.ClientID,
			JWTTTL:   raw.JWTTTL,
			Timeout:  raw.Timeout,
		},
		Payments: PaymentsConfig{SuccessStatus: raw.PaymentsStatus},
	}, false), nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults, true),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			configToLayerMap(loaded, false),
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			configToLayerMap(runtime, false),
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}

	callbacks := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Callbacks.BaseURL) != "" {
		callbacks["base_url"] = cfg.Callbacks.BaseURL
	}
	if includeZero || strings.TrimSpace(cfg.Callbacks.ClientID) != "" {
		callbacks["client_id"] = cfg.Callbacks.ClientID
	}
	if includeZero || cfg.Callbacks.JWTTTL > 0 {
		callbacks["jwt_ttl"] = cfg.Callbacks.JWTTTL
	}
	if includeZero || cfg.Callbacks.Timeout > 0 {
		callbacks["timeout"] = cfg.Callbacks.Timeout
	}
	if len(callbacks) > 0 {
		layer["callbacks"] = callbacks
	}

	if includeZero || strings.TrimSpace(cfg.Payments.SuccessStatus) != "" {
		layer["payments"] = map[string]any{
			"success_status": cfg.Payments.SuccessStatus,
		}
	}
	return layer
}
