package query

import (
	"fmt"
	"strings"
)

const (
	TypeGetValidToken = "credentials.query.token.get_valid"
	TypeConnected     = "credentials.query.connections.list"
	TypeHasCredential = "credentials.query.credential.has"
	TypeListSupported = "credentials.query.providers.list"
)

type GetValidTokenMessage struct {
	UserID     string
	ProviderID string
}

func (GetValidTokenMessage) Type() string { return TypeGetValidToken }

func (m GetValidTokenMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("query: user id is required")
	}
	if strings.TrimSpace(m.ProviderID) == "" {
		return fmt.Errorf("query: provider id is required")
	}
	return nil
}

type ConnectedMessage struct {
	UserID string
}

func (ConnectedMessage) Type() string { return TypeConnected }

func (m ConnectedMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("query: user id is required")
	}
	return nil
}

type HasCredentialMessage struct {
	UserID     string
	ProviderID string
}

func (HasCredentialMessage) Type() string { return TypeHasCredential }

func (m HasCredentialMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return fmt.Errorf("query: user id is required")
	}
	if strings.TrimSpace(m.ProviderID) == "" {
		return fmt.Errorf("query: provider id is required")
	}
	return nil
}

type ListSupportedMessage struct{}

func (ListSupportedMessage) Type() string { return TypeListSupported }

func (ListSupportedMessage) Validate() error { return nil }
