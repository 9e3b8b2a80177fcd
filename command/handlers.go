package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-compliance-connector/core"
)

type AccountInformationSuccessCommand struct {
	service core.ProviderCallback
}

func NewAccountInformationSuccessCommand(service core.ProviderCallback) *AccountInformationSuccessCommand {
	return &AccountInformationSuccessCommand{service: service}
}

func (c *AccountInformationSuccessCommand) Execute(ctx context.Context, msg AccountInformationSuccessMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account information service is required")
	}
	redirectURL, err := c.service.OnAccountInformationAuthorizationSuccess(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, RedirectResult{RedirectURL: redirectURL})
	return nil
}

type AccountInformationFailCommand struct {
	service core.ProviderCallback
}

func NewAccountInformationFailCommand(service core.ProviderCallback) *AccountInformationFailCommand {
	return &AccountInformationFailCommand{service: service}
}

func (c *AccountInformationFailCommand) Execute(ctx context.Context, msg AccountInformationFailMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: account information service is required")
	}
	redirectURL, err := c.service.OnAccountInformationAuthorizationFail(ctx, msg.SessionSecret)
	if err != nil {
		return err
	}
	storeResult(ctx, RedirectResult{RedirectURL: redirectURL})
	return nil
}

type RevokeAccountInformationConsentCommand struct {
	service core.ProviderCallback
}

func NewRevokeAccountInformationConsentCommand(service core.ProviderCallback) *RevokeAccountInformationConsentCommand {
	return &RevokeAccountInformationConsentCommand{service: service}
}

func (c *RevokeAccountInformationConsentCommand) Execute(ctx context.Context, msg RevokeConsentMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: consent revocation service is required")
	}
	revoked, err := c.service.RevokeAccountInformationConsent(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, RevokeResult{Revoked: revoked})
	return nil
}

type PaymentInitiationSuccessCommand struct {
	service core.ProviderCallback
}

func NewPaymentInitiationSuccessCommand(service core.ProviderCallback) *PaymentInitiationSuccessCommand {
	return &PaymentInitiationSuccessCommand{service: service}
}

func (c *PaymentInitiationSuccessCommand) Execute(ctx context.Context, msg PaymentInitiationSuccessMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: payment initiation service is required")
	}
	returnURL, err := c.service.OnPaymentInitiationAuthorizationSuccess(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, RedirectResult{RedirectURL: returnURL})
	return nil
}

type PaymentInitiationFailCommand struct {
	service core.ProviderCallback
}

func NewPaymentInitiationFailCommand(service core.ProviderCallback) *PaymentInitiationFailCommand {
	return &PaymentInitiationFailCommand{service: service}
}

func (c *PaymentInitiationFailCommand) Execute(ctx context.Context, msg PaymentInitiationFailMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: payment initiation service is required")
	}
	returnURL, err := c.service.OnPaymentInitiationAuthorizationFail(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, RedirectResult{RedirectURL: returnURL})
	return nil
}

type CreateTokenCommand struct {
	creator core.TokenCreator
}

func NewCreateTokenCommand(creator core.TokenCreator) *CreateTokenCommand {
	return &CreateTokenCommand{creator: creator}
}

func (c *CreateTokenCommand) Execute(ctx context.Context, msg CreateTokenMessage) error {
	if c == nil || c.creator == nil {
		return commandDependencyError("command: token creator is required")
	}
	token, err := c.creator.CreateToken(ctx, msg.Input)
	if err != nil {
		return err
	}
	storeResult(ctx, token)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
