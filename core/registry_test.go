package core

import (
	"reflect"
	"testing"
)

func configuredDescriptor(id string) ProviderDescriptor {
	return ProviderDescriptor{
		ID:           id,
		Name:         id,
		AuthURL:      "https://auth.example.com/authorize",
		TokenURL:     "https://auth.example.com/token",
		Scope:        "read",
		ClientID:     "client-" + id,
		ClientSecret: "secret-" + id,
	}
}

func TestCatalogRegistryResolve(t *testing.T) {
	unconfigured := configuredDescriptor("notion")
	unconfigured.ClientID = ""
	unconfigured.ClientSecret = ""

	registry, err := NewCatalogRegistry(configuredDescriptor("github"), unconfigured)
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	descriptor, err := registry.Resolve("github")
	if err != nil {
		t.Fatalf("resolve github: %v", err)
	}
	if descriptor.ResponseType != "code" {
		t.Fatalf("expected default response type, got %q", descriptor.ResponseType)
	}

	// Resolution is case-insensitive.
	if _, err := registry.Resolve("GitHub"); err != nil {
		t.Fatalf("resolve mixed case: %v", err)
	}

	if _, err := registry.Resolve("slack"); !IsUnknownProvider(err) {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
	if _, err := registry.Resolve("notion"); !IsNotConfigured(err) {
		t.Fatalf("expected not configured error, got %v", err)
	}
}

func TestCatalogRegistryRejectsDuplicates(t *testing.T) {
	registry, err := NewCatalogRegistry(configuredDescriptor("github"))
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	if err := registry.Register(configuredDescriptor("GITHUB")); err == nil {
		t.Fatal("expected duplicate registration error")
	}
}

func TestCatalogRegistryListSupportedIncludesUnconfigured(t *testing.T) {
	unconfigured := configuredDescriptor("notion")
	unconfigured.ClientID = ""

	registry, err := NewCatalogRegistry(configuredDescriptor("github"), unconfigured, configuredDescriptor("gmail"))
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}

	got := registry.ListSupported()
	want := []string{"github", "gmail", "notion"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected supported list %v, want %v", got, want)
	}
}

func TestCatalogRegistryRejectsInvalidDescriptor(t *testing.T) {
	broken := configuredDescriptor("github")
	broken.TokenURL = ""
	if _, err := NewCatalogRegistry(broken); err == nil {
		t.Fatal("expected validation error for missing token url")
	}
}
