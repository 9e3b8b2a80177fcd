package callback

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-compliance-connector/core"
	"github.com/goliatone/go-compliance-connector/transport"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

const (
	apiPrefix        = "/api/priora/v2"
	headerClientID   = "Client-Id"
	headerAuthorize  = "Authorization"
	headerContent    = "Content-Type"
	contentTypeJSON  = "application/json"
	defaultTimeout   = 10 * time.Second
	maxResponseBytes = 64 << 10
)

type Config struct {
	BaseURL      string
	ClientID     string
	Timeout      time.Duration
	SignatureTTL time.Duration
}

// ConfigFromCore maps the connector callbacks section.
func ConfigFromCore(cfg core.CallbacksConfig) Config {
	return Config{
		BaseURL:      cfg.BaseURL,
		ClientID:     cfg.ClientID,
		Timeout:      cfg.Timeout,
		SignatureTTL: cfg.JWTTTL,
	}
}

// NewSenders builds the session and token senders over one client whose
// requests are signed with key for cfg.SignatureTTL.
func NewSenders(cfg Config, key *rsa.PrivateKey, opts ...ClientOption) (*SessionsSender, *TokensSender, error) {
	if key == nil {
		return nil, nil, fmt.Errorf("callback: signing key is required")
	}
	client, err := NewClient(cfg, NewJWTSigner(key, cfg.SignatureTTL), opts...)
	if err != nil {
		return nil, nil, err
	}
	return NewSessionsSender(client), NewTokensSender(client), nil
}

type Client struct {
	adapter  *transport.RESTAdapter
	baseURL  string
	clientID string
	timeout  time.Duration
	signer   RequestSigner
	logger   glog.Logger
}

type ClientOption func(*Client)

func WithHTTPClient(client transport.HTTPDoer) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.adapter = transport.NewRESTAdapter(client)
		}
	}
}

func WithLogger(logger glog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = glog.Ensure(logger)
	}
}

func NewClient(cfg Config, signer RequestSigner, opts ...ClientOption) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("callback: base url is required")
	}
	if parsed, err := url.Parse(baseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("callback: base url %q is invalid", baseURL)
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("callback: client id is required")
	}
	if signer == nil {
		return nil, fmt.Errorf("callback: request signer is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := &Client{
		adapter:  transport.NewRESTAdapter(nil),
		baseURL:  baseURL,
		clientID: strings.TrimSpace(cfg.ClientID),
		timeout:  timeout,
		signer:   signer,
		logger:   glog.Nop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// Post sends {"data": payload} to the API path. Any non-2xx status is an
// error; delivery is attempted once.
func (c *Client) Post(ctx context.Context, path string, payload any) error {
	if c == nil || c.adapter == nil {
		return fmt.Errorf("callback: client is not configured")
	}
	body, err := json.Marshal(map[string]any{"data": payload})
	if err != nil {
		return fmt.Errorf("callback: encode payload: %w", err)
	}
	signature, err := c.signer.Sign(payload)
	if err != nil {
		return err
	}

	res, err := c.adapter.Do(ctx, transport.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + apiPrefix + path,
		Headers: map[string]string{
			headerContent:   contentTypeJSON,
			headerClientID:  c.clientID,
			headerAuthorize: "Bearer " + signature,
		},
		Body:                 body,
		Timeout:              c.timeout,
		MaxResponseBodyBytes: maxResponseBytes,
	})
	if err != nil {
		return err
	}
	if !res.Successful() {
		c.logger.Warn("callback rejected", "path", redactPath(path), "status_code", res.StatusCode)
		return goerrors.New(
			fmt.Sprintf("callback: unexpected response status %d", res.StatusCode),
			goerrors.CategoryExternal,
		).
			WithCode(http.StatusBadGateway).
			WithTextCode(core.ConnectorErrorCallbackFailed).
			WithMetadata(map[string]any{
				"status_code": res.StatusCode,
				"path":        redactPath(path),
			})
	}
	c.logger.Debug("callback delivered", "path", redactPath(path), "status_code", res.StatusCode)
	return nil
}

func sessionPath(sessionSecret string, outcome string) string {
	return "/sessions/" + url.PathEscape(sessionSecret) + "/" + outcome
}

// redactPath hides the session secret segment.
func redactPath(path string) string {
	parts := strings.Split(path, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "sessions" && i+2 < len(parts) {
			parts[i+1] = core.RedactedValue
		}
	}
	return strings.Join(parts, "/")
}
