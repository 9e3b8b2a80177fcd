package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	defaultCallbackJWTTTL  = time.Minute
	defaultCallbackTimeout = 10 * time.Second
)

type CallbacksConfig struct {
	BaseURL  string        `koanf:"base_url" mapstructure:"base_url"`
	ClientID string        `koanf:"client_id" mapstructure:"client_id"`
	JWTTTL   time.Duration `koanf:"jwt_ttl" mapstructure:"jwt_ttl"`
	Timeout  time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type PaymentsConfig struct {
	SuccessStatus string `koanf:"success_status" mapstructure:"success_status"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	Callbacks   CallbacksConfig `koanf:"callbacks" mapstructure:"callbacks"`
	Payments    PaymentsConfig  `koanf:"payments" mapstructure:"payments"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "connector",
		Callbacks: CallbacksConfig{
			JWTTTL:  defaultCallbackJWTTTL,
			Timeout: defaultCallbackTimeout,
		},
		Payments: PaymentsConfig{
			SuccessStatus: PaymentStatusAccepted,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if base := strings.TrimSpace(c.Callbacks.BaseURL); base != "" {
		parsed, err := url.Parse(base)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("core: callbacks.base_url %q is invalid", base)
		}
	}
	if c.Callbacks.JWTTTL < 0 {
		return fmt.Errorf("core: callbacks.jwt_ttl must not be negative")
	}
	if c.Callbacks.Timeout < 0 {
		return fmt.Errorf("core: callbacks.timeout must not be negative")
	}
	if strings.TrimSpace(c.Payments.SuccessStatus) == "" {
		return fmt.Errorf("core: payments.success_status is required")
	}
	return nil
}
