package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-credentials/core"
)

// CredentialService is the mutating surface the commands dispatch into.
type CredentialService interface {
	Begin(ctx context.Context, userID, providerID string) (core.BeginResult, error)
	Complete(ctx context.Context, providerID, code, state string) (core.CredentialRecord, error)
	Refresh(ctx context.Context, userID, providerID string) (core.CredentialRecord, error)
	Disconnect(ctx context.Context, userID, providerID string) (bool, error)
}

type BeginCommand struct {
	service CredentialService
}

func NewBeginCommand(service CredentialService) *BeginCommand {
	return &BeginCommand{service: service}
}

func (c *BeginCommand) Execute(ctx context.Context, msg BeginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: begin service is required")
	}
	out, err := c.service.Begin(ctx, msg.UserID, msg.ProviderID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteCommand struct {
	service CredentialService
}

func NewCompleteCommand(service CredentialService) *CompleteCommand {
	return &CompleteCommand{service: service}
}

func (c *CompleteCommand) Execute(ctx context.Context, msg CompleteMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: complete service is required")
	}
	out, err := c.service.Complete(ctx, msg.ProviderID, msg.Code, msg.State)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshCommand struct {
	service CredentialService
}

func NewRefreshCommand(service CredentialService) *RefreshCommand {
	return &RefreshCommand{service: service}
}

func (c *RefreshCommand) Execute(ctx context.Context, msg RefreshMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh service is required")
	}
	out, err := c.service.Refresh(ctx, msg.UserID, msg.ProviderID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DisconnectCommand struct {
	service CredentialService
}

func NewDisconnectCommand(service CredentialService) *DisconnectCommand {
	return &DisconnectCommand{service: service}
}

func (c *DisconnectCommand) Execute(ctx context.Context, msg DisconnectMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: disconnect service is required")
	}
	out, err := c.service.Disconnect(ctx, msg.UserID, msg.ProviderID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
