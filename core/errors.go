package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ConnectorErrorBadInput           = "CONNECTOR_BAD_INPUT"
	ConnectorErrorTokenNotFound      = "CONNECTOR_TOKEN_NOT_FOUND"
	ConnectorErrorTokenStateConflict = "CONNECTOR_TOKEN_STATE_CONFLICT"
	ConnectorErrorCallbackFailed     = "CONNECTOR_CALLBACK_FAILED"
	ConnectorErrorInternal           = "CONNECTOR_INTERNAL_ERROR"
)

func connectorErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureConnectorErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrSecretCipher):
		return wrapConnectorError(err, goerrors.CategoryInternal, ConnectorErrorInternal)
	case errors.Is(err, ErrTokenNotFound):
		return wrapConnectorError(err, goerrors.CategoryNotFound, ConnectorErrorTokenNotFound)
	case errors.Is(err, ErrInvalidTokenStatusTransition), errors.Is(err, ErrDuplicateSessionSecret):
		return wrapConnectorError(err, goerrors.CategoryConflict, ConnectorErrorTokenStateConflict)
	case errors.Is(err, ErrInvalidAccountReference):
		return wrapConnectorError(err, goerrors.CategoryBadInput, ConnectorErrorBadInput)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "token") && strings.Contains(msg, "not found"):
		return newConnectorError(err.Error(), goerrors.CategoryNotFound, ConnectorErrorTokenNotFound)
	case strings.Contains(msg, "callback") && (strings.Contains(msg, "status") || strings.Contains(msg, "deliver")):
		return newConnectorError(err.Error(), goerrors.CategoryExternal, ConnectorErrorCallbackFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"):
		return newConnectorError(err.Error(), goerrors.CategoryBadInput, ConnectorErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureConnectorErrorEnvelope(mapped)
}

func newConnectorError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureConnectorErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func wrapConnectorError(source error, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureConnectorErrorEnvelope(
		goerrors.Wrap(source, category, source.Error()).
			WithTextCode(textCode),
	)
}

// NewValidationError builds the envelope returned when a required argument
// is missing.
func NewValidationError(field string, message string) *goerrors.Error {
	return goerrors.NewValidation("core: validation failed", goerrors.FieldError{
		Field:   field,
		Message: message,
	}).
		WithCode(http.StatusBadRequest).
		WithTextCode(ConnectorErrorBadInput)
}

func ensureConnectorErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = connectorHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultConnectorTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultConnectorTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ConnectorErrorBadInput
	case goerrors.CategoryNotFound:
		return ConnectorErrorTokenNotFound
	case goerrors.CategoryConflict:
		return ConnectorErrorTokenStateConflict
	case goerrors.CategoryExternal:
		return ConnectorErrorCallbackFailed
	default:
		return ConnectorErrorInternal
	}
}

func connectorHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
