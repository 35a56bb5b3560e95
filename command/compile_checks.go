package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[BeginMessage]      = (*BeginCommand)(nil)
	_ gocmd.Commander[CompleteMessage]   = (*CompleteCommand)(nil)
	_ gocmd.Commander[RefreshMessage]    = (*RefreshCommand)(nil)
	_ gocmd.Commander[DisconnectMessage] = (*DisconnectCommand)(nil)
)
