package callback

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-compliance-connector/core"
	goerrors "github.com/goliatone/go-errors"
)

var (
	testKeyOnce sync.Once
	testKey     *rsa.PrivateKey
)

func signingKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	testKeyOnce.Do(func() {
		key, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = key
	})
	return testKey
}

type capturedRequest struct {
	method  string
	path    string
	headers http.Header
	body    []byte
}

func newCaptureServer(t *testing.T, status int) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var mu sync.Mutex
	requests := []capturedRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		requests = append(requests, capturedRequest{
			method:  r.Method,
			path:    r.URL.EscapedPath(),
			headers: r.Header.Clone(),
			body:    body,
		})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := NewClient(Config{
		BaseURL:  server.URL + "/",
		ClientID: "client_1",
		Timeout:  time.Second,
	}, NewJWTSigner(signingKey(t), time.Minute), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestSessionsSender_SuccessRequestIsSigned(t *testing.T) {
	server, requests := newCaptureServer(t, http.StatusOK)
	sender := NewSessionsSender(newTestClient(t, server))

	expiresAt := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	err := sender.SendSuccessCallback(context.Background(), "sess/1", core.SessionSuccessCallback{
		UserID:               "user_1",
		Status:               "confirmed",
		AccessToken:          "at_1",
		AccessTokenExpiresAt: &expiresAt,
		Consents:             &core.ProviderOfferedConsents{Balances: []core.AccountReference{{IBAN: "DE89370400440532013000"}}},
	})
	if err != nil {
		t.Fatalf("send success: %v", err)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected one request, got %d", len(*requests))
	}
	req := (*requests)[0]
	if req.method != http.MethodPost {
		t.Fatalf("expected POST, got %s", req.method)
	}
	if req.path != "/api/priora/v2/sessions/sess%2F1/success" {
		t.Fatalf("unexpected path %q", req.path)
	}
	if req.headers.Get("Client-Id") != "client_1" {
		t.Fatalf("expected client id header, got %q", req.headers.Get("Client-Id"))
	}
	if req.headers.Get("Content-Type") != "application/json" {
		t.Fatalf("expected json content type, got %q", req.headers.Get("Content-Type"))
	}

	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(req.body, &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Data["user_id"] != "user_1" || body.Data["access_token"] != "at_1" {
		t.Fatalf("unexpected body data: %+v", body.Data)
	}

	authorization := req.headers.Get("Authorization")
	if !strings.HasPrefix(authorization, "Bearer ") {
		t.Fatalf("expected bearer authorization, got %q", authorization)
	}
	data, err := VerifySignature(strings.TrimPrefix(authorization, "Bearer "), &signingKey(t).PublicKey)
	if err != nil {
		t.Fatalf("verify signature: %v", err)
	}
	if !reflect.DeepEqual(data, any(body.Data)) {
		t.Fatalf("expected signed data to match body data\nsigned=%v\nbody=%v", data, body.Data)
	}
}

func TestSessionsSender_FailAndTokensSender_Revoke(t *testing.T) {
	server, requests := newCaptureServer(t, http.StatusNoContent)
	client := newTestClient(t, server)

	if err := NewSessionsSender(client).SendFailCallback(context.Background(), "sess_1", core.PaymentNotCreated()); err != nil {
		t.Fatalf("send fail: %v", err)
	}
	if err := NewTokensSender(client).SendRevokeTokenCallback(context.Background(), "at_1"); err != nil {
		t.Fatalf("send revoke: %v", err)
	}
	if len(*requests) != 2 {
		t.Fatalf("expected two requests, got %d", len(*requests))
	}
	if got := (*requests)[0].path; got != "/api/priora/v2/sessions/sess_1/fail" {
		t.Fatalf("unexpected fail path %q", got)
	}
	if got := string((*requests)[0].body); got != `{"data":{"error_class":"PaymentNotCreated","error_message":"Payment not created."}}` {
		t.Fatalf("unexpected fail body %s", got)
	}
	if got := (*requests)[1].path; got != "/api/priora/v2/tokens/revoke" {
		t.Fatalf("unexpected revoke path %q", got)
	}
	if got := string((*requests)[1].body); got != `{"data":{"access_token":"at_1"}}` {
		t.Fatalf("unexpected revoke body %s", got)
	}
}

func TestClient_NonSuccessStatusIsCallbackFailure(t *testing.T) {
	server, requests := newCaptureServer(t, http.StatusServiceUnavailable)
	err := NewTokensSender(newTestClient(t, server)).SendRevokeTokenCallback(context.Background(), "at_1")
	if err == nil {
		t.Fatalf("expected error for 503 response")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected go-errors envelope, got %T", err)
	}
	if rich.TextCode != core.ConnectorErrorCallbackFailed || rich.Category != goerrors.CategoryExternal {
		t.Fatalf("unexpected envelope %q %q", rich.TextCode, rich.Category)
	}
	if len(*requests) != 1 {
		t.Fatalf("expected a single attempt, got %d", len(*requests))
	}
}

func TestSenders_RequireArguments(t *testing.T) {
	server, requests := newCaptureServer(t, http.StatusOK)
	client := newTestClient(t, server)

	if err := NewSessionsSender(client).SendSuccessCallback(context.Background(), "", core.SessionSuccessCallback{}); err == nil {
		t.Fatalf("expected session secret to be required")
	}
	if err := NewTokensSender(client).SendRevokeTokenCallback(context.Background(), ""); err == nil {
		t.Fatalf("expected access token to be required")
	}
	var nilSender *SessionsSender
	if err := nilSender.SendFailCallback(context.Background(), "sess_1", core.AuthorizationDenied()); err == nil {
		t.Fatalf("expected nil sender error")
	}
	if len(*requests) != 0 {
		t.Fatalf("expected no requests, got %d", len(*requests))
	}
}

func TestNewClient_ValidatesConfig(t *testing.T) {
	signer := NewJWTSigner(signingKey(t), 0)
	if _, err := NewClient(Config{ClientID: "c"}, signer); err == nil {
		t.Fatalf("expected base url to be required")
	}
	if _, err := NewClient(Config{BaseURL: "priora", ClientID: "c"}, signer); err == nil {
		t.Fatalf("expected relative base url to be rejected")
	}
	if _, err := NewClient(Config{BaseURL: "https://priora.example"}, signer); err == nil {
		t.Fatalf("expected client id to be required")
	}
	if _, err := NewClient(Config{BaseURL: "https://priora.example", ClientID: "c"}, nil); err == nil {
		t.Fatalf("expected signer to be required")
	}
	cfg := ConfigFromCore(core.CallbacksConfig{
		BaseURL:  "https://priora.example",
		ClientID: "c",
		Timeout:  time.Second,
		JWTTTL:   5 * time.Minute,
	})
	if cfg.BaseURL != "https://priora.example" || cfg.ClientID != "c" || cfg.Timeout != time.Second {
		t.Fatalf("unexpected config mapping: %+v", cfg)
	}
	if cfg.SignatureTTL != 5*time.Minute {
		t.Fatalf("expected jwt ttl to map to signature ttl, got %s", cfg.SignatureTTL)
	}
}

func TestNewSenders_SignWithConfiguredTTL(t *testing.T) {
	server, requests := newCaptureServer(t, http.StatusOK)
	cfg := ConfigFromCore(core.CallbacksConfig{
		BaseURL:  server.URL,
		ClientID: "client_1",
		Timeout:  time.Second,
		JWTTTL:   5 * time.Minute,
	})
	sessions, tokens, err := NewSenders(cfg, signingKey(t), WithHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("new senders: %v", err)
	}
	if err := sessions.SendFailCallback(context.Background(), "sess_1", core.PaymentNotCreated()); err != nil {
		t.Fatalf("send fail: %v", err)
	}
	if err := tokens.SendRevokeTokenCallback(context.Background(), "at_1"); err != nil {
		t.Fatalf("send revoke: %v", err)
	}
	if len(*requests) != 2 {
		t.Fatalf("expected two requests, got %d", len(*requests))
	}

	for _, req := range *requests {
		signed := strings.TrimPrefix(req.headers.Get("Authorization"), "Bearer ")
		var claims jwt.RegisteredClaims
		if _, _, err := jwt.NewParser().ParseUnverified(signed, &claims); err != nil {
			t.Fatalf("parse claims: %v", err)
		}
		if claims.ExpiresAt == nil || claims.IssuedAt == nil {
			t.Fatalf("expected exp and iat claims, got %+v", claims)
		}
		if lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time); lifetime != 5*time.Minute {
			t.Fatalf("expected 5m signature lifetime, got %s", lifetime)
		}
	}

	if _, _, err := NewSenders(cfg, nil); err == nil {
		t.Fatalf("expected missing signing key to fail")
	}
}

func TestJWTSigner_ExpiredSignatureIsRejected(t *testing.T) {
	signer := NewJWTSigner(signingKey(t), time.Minute)
	signer.Clock = func() time.Time { return time.Now().Add(-time.Hour) }
	signed, err := signer.Sign(map[string]any{"access_token": "at_1"})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := VerifySignature(signed, &signingKey(t).PublicKey); err == nil {
		t.Fatalf("expected expired signature to be rejected")
	}
	if _, err := (&JWTSigner{}).Sign("x"); err == nil {
		t.Fatalf("expected missing key error")
	}
}

func TestParseRSAPrivateKeyPEM(t *testing.T) {
	key := signingKey(t)
	pkcs1 := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	parsed, err := ParseRSAPrivateKeyPEM(pkcs1)
	if err != nil {
		t.Fatalf("parse pkcs1: %v", err)
	}
	if !parsed.Equal(key) {
		t.Fatalf("expected pkcs1 key to round trip")
	}

	pkcs8Bytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("marshal pkcs8: %v", err)
	}
	pkcs8 := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: pkcs8Bytes})
	if _, err := ParseRSAPrivateKeyPEM(pkcs8); err != nil {
		t.Fatalf("parse pkcs8: %v", err)
	}

	publicBytes, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}
	public, err := ParseRSAPublicKeyPEM(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicBytes}))
	if err != nil {
		t.Fatalf("parse public key: %v", err)
	}
	if !public.Equal(&key.PublicKey) {
		t.Fatalf("expected public key to round trip")
	}

	if _, err := ParseRSAPrivateKeyPEM(nil); err == nil {
		t.Fatalf("expected empty key error")
	}
	if _, err := ParseRSAPrivateKeyPEM([]byte("not a key")); err == nil {
		t.Fatalf("expected invalid key error")
	}
}

func TestRedactPath(t *testing.T) {
	if got := redactPath("/sessions/sess_1/success"); got != "/sessions/[REDACTED]/success" {
		t.Fatalf("unexpected redacted path %q", got)
	}
	if got := redactPath("/tokens/revoke"); got != "/tokens/revoke" {
		t.Fatalf("expected revoke path unchanged, got %q", got)
	}
}
