package core

// Keys read from the payment extra map sent by the provider.
const (
	KeySessionSecret = "session_secret"
	KeyReturnToURL   = "return_to_url"
)

const (
	// PaymentStatusAccepted is the ISO 20022 "AcceptedTechnicalValidation" code
	// reported on payment initiation success.
	PaymentStatusAccepted = "ACTC"

	ErrorClassPaymentNotCreated   = "PaymentNotCreated"
	ErrorMessagePaymentNotCreated = "Payment not created."

	ErrorClassAuthorizationDenied   = "AuthorizationDenied"
	ErrorMessageAuthorizationDenied = "User denied authorization."
)
