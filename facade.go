package credentials

import (
	"fmt"

	credentialscommand "github.com/goliatone/go-credentials/command"
	credentialsquery "github.com/goliatone/go-credentials/query"
)

// CommandQueryService is the full surface the facade dispatches into. The
// core service satisfies it.
type CommandQueryService interface {
	credentialscommand.CredentialService
	credentialsquery.TokenReader
	credentialsquery.ConnectionReader
	credentialsquery.CatalogReader
}

// Commands bundles the pre-wired mutating commands over one service.
type Commands struct {
	Begin      *credentialscommand.BeginCommand
	Complete   *credentialscommand.CompleteCommand
	Refresh    *credentialscommand.RefreshCommand
	Disconnect *credentialscommand.DisconnectCommand
}

// Queries bundles the read-side handlers.
type Queries struct {
	GetValidToken *credentialsquery.GetValidTokenQuery
	Connected     *credentialsquery.ConnectedQuery
	HasCredential *credentialsquery.HasCredentialQuery
	ListSupported *credentialsquery.ListSupportedQuery
}

// Facade is the embedding surface: construct it once with a service and hand
// the handlers to a dispatcher or router.
type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("credentials: service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Begin:      credentialscommand.NewBeginCommand(service),
		Complete:   credentialscommand.NewCompleteCommand(service),
		Refresh:    credentialscommand.NewRefreshCommand(service),
		Disconnect: credentialscommand.NewDisconnectCommand(service),
	}
	facade.queries = Queries{
		GetValidToken: credentialsquery.NewGetValidTokenQuery(service),
		Connected:     credentialsquery.NewConnectedQuery(service),
		HasCredential: credentialsquery.NewHasCredentialQuery(service),
		ListSupported: credentialsquery.NewListSupportedQuery(service),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
