package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTokenNotFound                = errors.New("core: token not found")
	ErrInvalidTokenStatusTransition = errors.New("core: invalid token status transition")
	ErrDuplicateSessionSecret       = errors.New("core: session secret already in use")
	ErrInvalidAccountReference      = errors.New("core: invalid account reference")
	// ErrSecretCipher marks access token encrypt and decrypt failures.
	ErrSecretCipher = errors.New("core: access token cipher failed")
)

type TokenStatus string

const (
	TokenStatusUnconfirmed TokenStatus = "unconfirmed"
	TokenStatusConfirmed   TokenStatus = "confirmed"
	TokenStatusRevoked     TokenStatus = "revoked"
)

// Token is the authorization record of an account information consent
// session. It is created unconfirmed and moves to confirmed or revoked.
type Token struct {
	ID                   string
	SessionSecret        string
	TPPRedirectURL       string
	TPPAppName           string
	Status               TokenStatus
	UserID               string
	AccessToken          string
	AccessTokenExpiresAt time.Time
	Consents             ProviderOfferedConsents
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (t *Token) IsRevoked() bool {
	return t != nil && t.Status == TokenStatusRevoked
}

func (t *Token) TransitionTo(status TokenStatus, now time.Time) error {
	if t == nil {
		return nil
	}
	if t.Status == status {
		t.UpdatedAt = now
		return nil
	}
	if !tokenTransitionAllowed(t.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTokenStatusTransition, t.Status, status)
	}
	t.Status = status
	t.UpdatedAt = now
	return nil
}

func tokenTransitionAllowed(current, next TokenStatus) bool {
	allowed := map[TokenStatus]map[TokenStatus]struct{}{
		TokenStatusUnconfirmed: {
			TokenStatusConfirmed: {},
			TokenStatusRevoked:   {},
		},
		TokenStatusConfirmed: {
			TokenStatusRevoked: {},
		},
		TokenStatusRevoked: {},
	}
	_, ok := allowed[current][next]
	return ok
}

func ParseTokenStatus(value string) (TokenStatus, error) {
	switch TokenStatus(strings.ToLower(strings.TrimSpace(value))) {
	case TokenStatusUnconfirmed:
		return TokenStatusUnconfirmed, nil
	case TokenStatusConfirmed:
		return TokenStatusConfirmed, nil
	case TokenStatusRevoked:
		return TokenStatusRevoked, nil
	}
	return "", fmt.Errorf("core: unknown token status %q", value)
}

// AccountReference identifies one account a consent applies to.
type AccountReference struct {
	IBAN      string `json:"iban,omitempty"`
	BBAN      string `json:"bban,omitempty"`
	MaskedPAN string `json:"masked_pan,omitempty"`
	MSISDN    string `json:"msisdn,omitempty"`
	Currency  string `json:"currency,omitempty"`
}

func (a AccountReference) Validate() error {
	if strings.TrimSpace(a.IBAN) == "" &&
		strings.TrimSpace(a.BBAN) == "" &&
		strings.TrimSpace(a.MaskedPAN) == "" &&
		strings.TrimSpace(a.MSISDN) == "" {
		return fmt.Errorf("%w: an account identifier is required", ErrInvalidAccountReference)
	}
	return nil
}

// ProviderOfferedConsents lists the accounts the user agreed to expose. Empty
// lists mean a global consent.
type ProviderOfferedConsents struct {
	Balances     []AccountReference `json:"balances"`
	Transactions []AccountReference `json:"transactions"`
}

func (c ProviderOfferedConsents) Validate() error {
	for i, account := range c.Balances {
		if err := account.Validate(); err != nil {
			return fmt.Errorf("balances[%d]: %w", i, err)
		}
	}
	for i, account := range c.Transactions {
		if err := account.Validate(); err != nil {
			return fmt.Errorf("transactions[%d]: %w", i, err)
		}
	}
	return nil
}

func (c ProviderOfferedConsents) IsGlobal() bool {
	return len(c.Balances) == 0 && len(c.Transactions) == 0
}

func (c ProviderOfferedConsents) Clone() ProviderOfferedConsents {
	return ProviderOfferedConsents{
		Balances:     append([]AccountReference{}, c.Balances...),
		Transactions: append([]AccountReference{}, c.Transactions...),
	}
}

// SessionSuccessCallback is sent to the session success endpoint.
type SessionSuccessCallback struct {
	UserID               string                   `json:"user_id"`
	Status               string                   `json:"status,omitempty"`
	AccessToken          string                   `json:"access_token,omitempty"`
	AccessTokenExpiresAt *time.Time               `json:"access_token_expires_at,omitempty"`
	Consents             *ProviderOfferedConsents `json:"consents,omitempty"`
}

// SessionFailCallback is sent to the session fail endpoint.
type SessionFailCallback struct {
	ErrorClass   string `json:"error_class"`
	ErrorMessage string `json:"error_message"`
}

func PaymentNotCreated() SessionFailCallback {
	return SessionFailCallback{
		ErrorClass:   ErrorClassPaymentNotCreated,
		ErrorMessage: ErrorMessagePaymentNotCreated,
	}
}

func AuthorizationDenied() SessionFailCallback {
	return SessionFailCallback{
		ErrorClass:   ErrorClassAuthorizationDenied,
		ErrorMessage: ErrorMessageAuthorizationDenied,
	}
}

// RevokeTokenCallback is sent to the token revoke endpoint.
type RevokeTokenCallback struct {
	AccessToken string `json:"access_token"`
}

func cloneToken(token *Token) *Token {
	if token == nil {
		return nil
	}
	copied := *token
	copied.Consents = token.Consents.Clone()
	return &copied
}
