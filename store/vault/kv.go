package vault

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	vaultapi "github.com/hashicorp/vault/api"
)

// ErrCASMismatch reports that a compare-and-set write lost the race: the
// secret's current version differs from the expected one.
var ErrCASMismatch = errors.New("vault: check-and-set parameter did not match the current version")

// KVClient is the narrow KV v2 surface the stores need. PutCAS with
// expectedVersion 0 creates the secret only if it does not exist yet.
type KVClient interface {
	Get(ctx context.Context, path string) (data map[string]any, version int, found bool, err error)
	Put(ctx context.Context, path string, data map[string]any) error
	PutCAS(ctx context.Context, path string, expectedVersion int, data map[string]any) (newVersion int, err error)
	List(ctx context.Context, path string) ([]string, error)
	Delete(ctx context.Context, path string) error
}

// APIKVClient adapts the HashiCorp Vault client to KVClient against a KV v2
// mount.
type APIKVClient struct {
	client *vaultapi.Client
	mount  string
}

func NewAPIKVClient(client *vaultapi.Client, mount string) (*APIKVClient, error) {
	if client == nil {
		return nil, fmt.Errorf("vault: api client is required")
	}
	mount = strings.Trim(strings.TrimSpace(mount), "/")
	if mount == "" {
		mount = "secret"
	}
	return &APIKVClient{client: client, mount: mount}, nil
}

func (c *APIKVClient) dataPath(path string) string {
	return c.mount + "/data/" + strings.Trim(strings.TrimSpace(path), "/")
}

func (c *APIKVClient) metadataPath(path string) string {
	return c.mount + "/metadata/" + strings.Trim(strings.TrimSpace(path), "/")
}

func (c *APIKVClient) Get(ctx context.Context, path string) (map[string]any, int, bool, error) {
	if c == nil || c.client == nil {
		return nil, 0, false, fmt.Errorf("vault: kv client is not configured")
	}
	secret, err := c.client.Logical().ReadWithContext(ctx, c.dataPath(path))
	if err != nil {
		return nil, 0, false, err
	}
	if secret == nil || secret.Data == nil {
		return nil, 0, false, nil
	}
	data, _ := secret.Data["data"].(map[string]any)
	if data == nil {
		// A deleted-but-not-destroyed version reads back with nil data.
		return nil, 0, false, nil
	}
	version := 0
	if metadata, ok := secret.Data["metadata"].(map[string]any); ok {
		version = readVersion(metadata["version"])
	}
	return data, version, true, nil
}

func (c *APIKVClient) Put(ctx context.Context, path string, data map[string]any) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("vault: kv client is not configured")
	}
	_, err := c.client.Logical().WriteWithContext(ctx, c.dataPath(path), map[string]any{
		"data": data,
	})
	return err
}

func (c *APIKVClient) PutCAS(ctx context.Context, path string, expectedVersion int, data map[string]any) (int, error) {
	if c == nil || c.client == nil {
		return 0, fmt.Errorf("vault: kv client is not configured")
	}
	secret, err := c.client.Logical().WriteWithContext(ctx, c.dataPath(path), map[string]any{
		"data":    data,
		"options": map[string]any{"cas": expectedVersion},
	})
	if err != nil {
		if isCASFailure(err) {
			return 0, ErrCASMismatch
		}
		return 0, err
	}
	if secret == nil || secret.Data == nil {
		return expectedVersion + 1, nil
	}
	version := readVersion(secret.Data["version"])
	if version == 0 {
		version = expectedVersion + 1
	}
	return version, nil
}

func (c *APIKVClient) List(ctx context.Context, path string) ([]string, error) {
	if c == nil || c.client == nil {
		return nil, fmt.Errorf("vault: kv client is not configured")
	}
	secret, err := c.client.Logical().ListWithContext(ctx, c.metadataPath(path))
	if err != nil {
		return nil, err
	}
	if secret == nil || secret.Data == nil {
		return []string{}, nil
	}
	rawKeys, _ := secret.Data["keys"].([]any)
	keys := make([]string, 0, len(rawKeys))
	for _, raw := range rawKeys {
		key := strings.TrimSuffix(strings.TrimSpace(fmt.Sprint(raw)), "/")
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Delete removes the secret's metadata and every version.
func (c *APIKVClient) Delete(ctx context.Context, path string) error {
	if c == nil || c.client == nil {
		return fmt.Errorf("vault: kv client is not configured")
	}
	_, err := c.client.Logical().DeleteWithContext(ctx, c.metadataPath(path))
	return err
}

func isCASFailure(err error) bool {
	if err == nil {
		return false
	}
	var responseErr *vaultapi.ResponseError
	if errors.As(err, &responseErr) {
		for _, message := range responseErr.Errors {
			if strings.Contains(strings.ToLower(message), "check-and-set") {
				return true
			}
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "check-and-set")
}

func readVersion(value any) int {
	switch typed := value.(type) {
	case int:
		return typed
	case int64:
		return int(typed)
	case float64:
		return int(typed)
	case json.Number:
		if parsed, err := typed.Int64(); err == nil {
			return int(parsed)
		}
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(typed)); err == nil {
			return parsed
		}
	}
	return 0
}

var _ KVClient = (*APIKVClient)(nil)
