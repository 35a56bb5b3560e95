package query

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Querier[GetValidTokenMessage, string]   = (*GetValidTokenQuery)(nil)
	_ gocmd.Querier[ConnectedMessage, []string]     = (*ConnectedQuery)(nil)
	_ gocmd.Querier[HasCredentialMessage, bool]     = (*HasCredentialQuery)(nil)
	_ gocmd.Querier[ListSupportedMessage, []string] = (*ListSupportedQuery)(nil)
)
