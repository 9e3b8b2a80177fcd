package core

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestConnectorErrorMapper_Sentinels(t *testing.T) {
	cases := []struct {
		err      error
		textCode string
		status   int
	}{
		{ErrTokenNotFound, ConnectorErrorTokenNotFound, http.StatusNotFound},
		{fmt.Errorf("lookup: %w", ErrTokenNotFound), ConnectorErrorTokenNotFound, http.StatusNotFound},
		{ErrInvalidTokenStatusTransition, ConnectorErrorTokenStateConflict, http.StatusConflict},
		{ErrDuplicateSessionSecret, ConnectorErrorTokenStateConflict, http.StatusConflict},
		{ErrInvalidAccountReference, ConnectorErrorBadInput, http.StatusBadRequest},
		{errors.New("callback status 503"), ConnectorErrorCallbackFailed, http.StatusBadGateway},
		{errors.New("user id is required"), ConnectorErrorBadInput, http.StatusBadRequest},
		{
			fmt.Errorf("sqlstore: decrypt access token: %w: %w", ErrSecretCipher, errors.New("security: invalid nonce size 3")),
			ConnectorErrorInternal,
			http.StatusInternalServerError,
		},
		{
			fmt.Errorf("sqlstore: encrypt access token: %w: %w", ErrSecretCipher, errors.New("security: key is required")),
			ConnectorErrorInternal,
			http.StatusInternalServerError,
		},
	}
	for _, tc := range cases {
		mapped := connectorErrorMapper(tc.err)
		if mapped == nil {
			t.Fatalf("%v: expected mapped error", tc.err)
		}
		if mapped.TextCode != tc.textCode {
			t.Fatalf("%v: expected text code %q, got %q", tc.err, tc.textCode, mapped.TextCode)
		}
		if mapped.Code != tc.status {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.status, mapped.Code)
		}
	}
}

func TestConnectorErrorMapper_KeepsRichErrors(t *testing.T) {
	rich := goerrors.New("custom", goerrors.CategoryConflict)
	mapped := connectorErrorMapper(rich)
	if mapped != rich {
		t.Fatalf("expected rich error to be reused")
	}
	if mapped.TextCode != ConnectorErrorTokenStateConflict || mapped.Code != http.StatusConflict {
		t.Fatalf("expected envelope defaults, got %q %d", mapped.TextCode, mapped.Code)
	}
	if connectorErrorMapper(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("user_id", "is required")
	if err.TextCode != ConnectorErrorBadInput || err.Code != http.StatusBadRequest {
		t.Fatalf("unexpected validation envelope: %q %d", err.TextCode, err.Code)
	}
}
