package connector

import (
	"fmt"

	connectorcommand "github.com/goliatone/go-compliance-connector/command"
	"github.com/goliatone/go-compliance-connector/core"
)

type Commands struct {
	AccountInformationSuccess *connectorcommand.AccountInformationSuccessCommand
	AccountInformationFail    *connectorcommand.AccountInformationFailCommand
	RevokeConsent             *connectorcommand.RevokeAccountInformationConsentCommand
	PaymentInitiationSuccess  *connectorcommand.PaymentInitiationSuccessCommand
	PaymentInitiationFail     *connectorcommand.PaymentInitiationFailCommand
	// CreateToken is nil when no token creator could be resolved.
	CreateToken *connectorcommand.CreateTokenCommand
}

type Facade struct {
	service  core.ProviderCallback
	creator  core.TokenCreator
	commands Commands
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	tokenCreator core.TokenCreator
}

func WithTokenCreator(creator core.TokenCreator) FacadeOption {
	return func(options *facadeOptions) {
		options.tokenCreator = creator
	}
}

func NewFacade(service core.ProviderCallback, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("connector: provider callback service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	creator := cfg.tokenCreator
	if creator == nil {
		creator = resolveTokenCreator(service)
	}

	facade := &Facade{service: service, creator: creator}
	facade.commands = Commands{
		AccountInformationSuccess: connectorcommand.NewAccountInformationSuccessCommand(service),
		AccountInformationFail:    connectorcommand.NewAccountInformationFailCommand(service),
		RevokeConsent:             connectorcommand.NewRevokeAccountInformationConsentCommand(service),
		PaymentInitiationSuccess:  connectorcommand.NewPaymentInitiationSuccessCommand(service),
		PaymentInitiationFail:     connectorcommand.NewPaymentInitiationFailCommand(service),
	}
	if creator != nil {
		facade.commands.CreateToken = connectorcommand.NewCreateTokenCommand(creator)
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Service() core.ProviderCallback {
	if f == nil {
		return nil
	}
	return f.service
}

func (f *Facade) TokenCreator() core.TokenCreator {
	if f == nil {
		return nil
	}
	return f.creator
}

// resolveTokenCreator falls back to the token service a CallbackService
// builds when it owns the token lifecycle.
func resolveTokenCreator(service core.ProviderCallback) core.TokenCreator {
	if creator, ok := service.(core.TokenCreator); ok {
		return creator
	}
	owner, ok := service.(interface{ TokenService() *core.TokenService })
	if !ok {
		return nil
	}
	tokens := owner.TokenService()
	if tokens == nil {
		return nil
	}
	return tokens
}
