package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[AccountInformationSuccessMessage] = (*AccountInformationSuccessCommand)(nil)
	_ gocmd.Commander[AccountInformationFailMessage]    = (*AccountInformationFailCommand)(nil)
	_ gocmd.Commander[RevokeConsentMessage]             = (*RevokeAccountInformationConsentCommand)(nil)
	_ gocmd.Commander[PaymentInitiationSuccessMessage]  = (*PaymentInitiationSuccessCommand)(nil)
	_ gocmd.Commander[PaymentInitiationFailMessage]     = (*PaymentInitiationFailCommand)(nil)
	_ gocmd.Commander[CreateTokenMessage]               = (*CreateTokenCommand)(nil)
)
