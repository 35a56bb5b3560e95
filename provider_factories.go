package credentials

import (
	"github.com/goliatone/go-credentials/core"
	"github.com/goliatone/go-credentials/providers"
)

type ClientCredentials = providers.ClientCredentials

// NewBuiltinRegistry builds a registry over the builtin provider catalog with
// the supplied client credentials applied.
func NewBuiltinRegistry(clientCredentials map[string]ClientCredentials) (*core.CatalogRegistry, error) {
	return providers.NewBuiltinRegistry(clientCredentials)
}

// BuiltinDescriptors exposes the builtin catalog for callers that compose
// their own registry.
func BuiltinDescriptors(clientCredentials map[string]ClientCredentials) []ProviderDescriptor {
	return providers.BuiltinDescriptors(clientCredentials)
}
