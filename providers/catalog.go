package providers

import (
	"strings"

	"github.com/goliatone/go-credentials/core"
)

// ClientCredentials is the per-provider client id/secret pair injected at
// construction time. Providers without credentials stay in the catalog as
// known-but-not-configured.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// BuiltinDescriptors returns the static provider catalog with the supplied
// client credentials applied. Catalog ids not present in the credentials map
// are returned unconfigured.
func BuiltinDescriptors(credentials map[string]ClientCredentials) []core.ProviderDescriptor {
	catalog := []core.ProviderDescriptor{
		{
			ID:           "notion",
			Name:         "Notion",
			AuthURL:      "https://api.notion.com/v1/oauth/authorize",
			TokenURL:     "https://api.notion.com/v1/oauth/token",
			Scope:        "",
			ResponseType: "code",
		},
		{
			ID:           "gmail",
			Name:         "Gmail",
			AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
			TokenURL:     "https://oauth2.googleapis.com/token",
			Scope:        "https://www.googleapis.com/auth/gmail.send",
			ResponseType: "code",
		},
		{
			ID:           "github",
			Name:         "GitHub",
			AuthURL:      "https://github.com/login/oauth/authorize",
			TokenURL:     "https://github.com/login/oauth/access_token",
			Scope:        "repo user",
			ResponseType: "code",
		},
	}

	for i := range catalog {
		if entry, ok := credentials[strings.ToLower(catalog[i].ID)]; ok {
			catalog[i].ClientID = strings.TrimSpace(entry.ClientID)
			catalog[i].ClientSecret = strings.TrimSpace(entry.ClientSecret)
		}
	}
	return catalog
}

// NewBuiltinRegistry builds a registry over the builtin catalog.
func NewBuiltinRegistry(credentials map[string]ClientCredentials) (*core.CatalogRegistry, error) {
	return core.NewCatalogRegistry(BuiltinDescriptors(credentials)...)
}
