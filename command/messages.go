package command

import (
	"strings"

	"github.com/goliatone/go-compliance-connector/core"
)

const (
	TypeAccountInformationSuccess = "connector.command.account_information.success"
	TypeAccountInformationFail    = "connector.command.account_information.fail"
	TypeRevokeConsent             = "connector.command.account_information.revoke"
	TypePaymentInitiationSuccess  = "connector.command.payment_initiation.success"
	TypePaymentInitiationFail     = "connector.command.payment_initiation.fail"
	TypeCreateToken               = "connector.command.token.create"
)

// RedirectResult is stored in the result collector by commands that answer
// with the TPP redirect URL.
type RedirectResult struct {
	RedirectURL string
}

type RevokeResult struct {
	Revoked bool
}

type AccountInformationSuccessMessage struct {
	Request core.AccountInformationAuthorization
}

func (AccountInformationSuccessMessage) Type() string { return TypeAccountInformationSuccess }

func (m AccountInformationSuccessMessage) Validate() error {
	if strings.TrimSpace(m.Request.SessionSecret) == "" {
		return commandValidationError("session_secret", "is required")
	}
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandValidationError("user_id", "is required")
	}
	if strings.TrimSpace(m.Request.AccessToken) == "" {
		return commandValidationError("access_token", "is required")
	}
	if m.Request.AccessTokenExpiresAt.IsZero() {
		return commandValidationError("access_token_expires_at", "is required")
	}
	if m.Request.Consents == nil {
		return commandValidationError("consents", "is required")
	}
	return commandWrapValidation(m.Request.Consents.Validate(), "command: invalid consents")
}

type AccountInformationFailMessage struct {
	SessionSecret string
}

func (AccountInformationFailMessage) Type() string { return TypeAccountInformationFail }

func (m AccountInformationFailMessage) Validate() error {
	if strings.TrimSpace(m.SessionSecret) == "" {
		return commandValidationError("session_secret", "is required")
	}
	return nil
}

type RevokeConsentMessage struct {
	Request core.RevokeConsentRequest
}

func (RevokeConsentMessage) Type() string { return TypeRevokeConsent }

func (m RevokeConsentMessage) Validate() error {
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandValidationError("user_id", "is required")
	}
	if strings.TrimSpace(m.Request.AccessToken) == "" {
		return commandValidationError("access_token", "is required")
	}
	return nil
}

type PaymentInitiationSuccessMessage struct {
	Request core.PaymentInitiationAuthorization
}

func (PaymentInitiationSuccessMessage) Type() string { return TypePaymentInitiationSuccess }

func (m PaymentInitiationSuccessMessage) Validate() error {
	if strings.TrimSpace(m.Request.PaymentID) == "" {
		return commandValidationError("payment_id", "is required")
	}
	if strings.TrimSpace(m.Request.UserID) == "" {
		return commandValidationError("user_id", "is required")
	}
	return validatePaymentExtra(m.Request.PaymentExtra)
}

type PaymentInitiationFailMessage struct {
	Request core.PaymentInitiationFailure
}

func (PaymentInitiationFailMessage) Type() string { return TypePaymentInitiationFail }

func (m PaymentInitiationFailMessage) Validate() error {
	if strings.TrimSpace(m.Request.PaymentID) == "" {
		return commandValidationError("payment_id", "is required")
	}
	return validatePaymentExtra(m.Request.PaymentExtra)
}

type CreateTokenMessage struct {
	Input core.CreateTokenInput
}

func (CreateTokenMessage) Type() string { return TypeCreateToken }

func (m CreateTokenMessage) Validate() error {
	if strings.TrimSpace(m.Input.SessionSecret) == "" {
		return commandValidationError("session_secret", "is required")
	}
	if strings.TrimSpace(m.Input.TPPRedirectURL) == "" {
		return commandValidationError("tpp_redirect_url", "is required")
	}
	return nil
}

func validatePaymentExtra(extra map[string]string) error {
	if len(extra) == 0 {
		return commandValidationError("payment_extra", "is required")
	}
	return nil
}
