package command

import (
	"fmt"
	"strings"
)

const (
	TypeBegin      = "credentials.command.begin"
	TypeComplete   = "credentials.command.complete"
	TypeRefresh    = "credentials.command.refresh"
	TypeDisconnect = "credentials.command.disconnect"
)

type BeginMessage struct {
	UserID     string
	ProviderID string
}

func (BeginMessage) Type() string { return TypeBegin }

func (m BeginMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	if strings.TrimSpace(m.ProviderID) == "" {
		return fmt.Errorf("command: provider id is required")
	}
	return nil
}

type CompleteMessage struct {
	ProviderID string
	Code       string
	State      string
}

func (CompleteMessage) Type() string { return TypeComplete }

func (m CompleteMessage) Validate() error {
	if strings.TrimSpace(m.ProviderID) == "" {
		return fmt.Errorf("command: provider id is required")
	}
	if strings.TrimSpace(m.Code) == "" {
		return fmt.Errorf("command: authorization code is required")
	}
	if strings.TrimSpace(m.State) == "" {
		return fmt.Errorf("command: state is required")
	}
	return nil
}

type RefreshMessage struct {
	UserID     string
	ProviderID string
}

func (RefreshMessage) Type() string { return TypeRefresh }

func (m RefreshMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	if strings.TrimSpace(m.ProviderID) == "" {
		return fmt.Errorf("command: provider id is required")
	}
	return nil
}

type DisconnectMessage struct {
	UserID     string
	ProviderID string
}

func (DisconnectMessage) Type() string { return TypeDisconnect }

func (m DisconnectMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("command: user id is required")
	}
	if strings.TrimSpace(m.ProviderID) == "" {
		return fmt.Errorf("command: provider id is required")
	}
	return nil
}
