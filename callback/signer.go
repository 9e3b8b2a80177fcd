package callback

import (
	"crypto/rsa"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultSignatureTTL = time.Minute

type RequestSigner interface {
	Sign(data any) (string, error)
}

type signedClaims struct {
	Data any `json:"data"`
	jwt.RegisteredClaims
}

// JWTSigner signs callback payloads with the connector private key. The token
// carries the payload under the data claim and expires after TTL.
type JWTSigner struct {
	Key   *rsa.PrivateKey
	TTL   time.Duration
	Clock func() time.Time
}

func NewJWTSigner(key *rsa.PrivateKey, ttl time.Duration) *JWTSigner {
	return &JWTSigner{Key: key, TTL: ttl}
}

func (s *JWTSigner) Sign(data any) (string, error) {
	if s == nil || s.Key == nil {
		return "", fmt.Errorf("callback: signing key is required")
	}
	ttl := s.TTL
	if ttl <= 0 {
		ttl = DefaultSignatureTTL
	}
	now := time.Now().UTC()
	if s.Clock != nil {
		now = s.Clock().UTC()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, signedClaims{
		Data: data,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	signed, err := token.SignedString(s.Key)
	if err != nil {
		return "", fmt.Errorf("callback: sign request: %w", err)
	}
	return signed, nil
}

// ParseRSAPrivateKeyPEM accepts PKCS#1 and PKCS#8 encoded keys.
func ParseRSAPrivateKeyPEM(data []byte) (*rsa.PrivateKey, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, fmt.Errorf("callback: private key is required")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("callback: parse private key: %w", err)
	}
	return key, nil
}

func ParseRSAPublicKeyPEM(data []byte) (*rsa.PublicKey, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("callback: parse public key: %w", err)
	}
	return key, nil
}

// VerifySignature checks an RS256 callback signature and returns its data
// claim. Receivers use it to authenticate callbacks.
func VerifySignature(signed string, key *rsa.PublicKey) (any, error) {
	if key == nil {
		return nil, fmt.Errorf("callback: verification key is required")
	}
	var claims signedClaims
	_, err := jwt.ParseWithClaims(strings.TrimSpace(signed), &claims, func(*jwt.Token) (any, error) {
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("callback: verify signature: %w", err)
	}
	return claims.Data, nil
}
