// Package vault brokers the secrets the core needs but never caches:
// LLM provider API keys and the remote object-storage credentials
// (LIBRA_STORAGE_ACCESS_KEY/_SECRET_KEY). Vault is tried first, named
// environment variables are the fallback, and secrets are never cached.
package vault

import (
	"context"
	"fmt"
	"os"
	"time"

	vault "github.com/hashicorp/vault/api"
)

// Client wraps the Vault API client.
type Client struct {
	client *vault.Client
	ctx    context.Context
}

// NewClient creates a new Vault client.
// It uses environment variables for configuration:
//   - VAULT_ADDR: Vault server address
//   - VAULT_TOKEN: Authentication token
func NewClient(ctx context.Context) (*Client, error) {
	config := vault.DefaultConfig()
	if config == nil {
		return nil, fmt.Errorf("failed to create default vault config")
	}

	client, err := vault.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	return &Client{
		client: client,
		ctx:    ctx,
	}, nil
}

// GetSecret retrieves a secret from Vault.
func (c *Client) GetSecret(path string) (map[string]interface{}, error) {
	secret, err := c.client.KVv2("secret").Get(c.ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret at %s: %w", path, err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("no data found at %s", path)
	}

	return secret.Data, nil
}

// PutSecret stores a secret in Vault.
func (c *Client) PutSecret(path string, data map[string]interface{}) error {
	_, err := c.client.KVv2("secret").Put(c.ctx, path, data)
	if err != nil {
		return fmt.Errorf("failed to write secret at %s: %w", path, err)
	}

	return nil
}

// IsReachable checks if the Vault server is reachable. Config and
// credential lookups fall back to environment variables when it isn't
// reachable.
func (c *Client) IsReachable() bool {
	ctx, cancel := context.WithTimeout(c.ctx, 2*time.Second)
	defer cancel()

	_, err := c.client.Sys().HealthWithContext(ctx)
	return err == nil
}

// ProviderAPIKey returns the API key for an LLM provider (vendor one of
// "anthropic", "openai", "gemini", "deepseek", "zhipu"). Vault is tried
// first at "libra/providers/<vendor>"; PAT-style secrets are never cached,
// so a Vault miss falls straight through to the provider's named
// environment variable.
func (c *Client) ProviderAPIKey(vendor, envVar string) (string, error) {
	if c.IsReachable() {
		data, err := c.GetSecret(fmt.Sprintf("libra/providers/%s", vendor))
		if err == nil {
			if key, ok := data["api_key"].(string); ok && key != "" {
				return key, nil
			}
		}
	}

	if key := os.Getenv(envVar); key != "" {
		return key, nil
	}

	return "", fmt.Errorf("no API key for provider %s (tried vault and %s)", vendor, envVar)
}

// RemoteStorageSecret returns the access/secret key pair for the remote
// object-storage backend, trying Vault at
// "libra/storage/remote" before the LIBRA_STORAGE_ACCESS_KEY/_SECRET_KEY
// environment variables.
func (c *Client) RemoteStorageSecret() (accessKey, secretKey string, err error) {
	if c.IsReachable() {
		data, verr := c.GetSecret("libra/storage/remote")
		if verr == nil {
			ak, _ := data["access_key"].(string)
			sk, _ := data["secret_key"].(string)
			if ak != "" && sk != "" {
				return ak, sk, nil
			}
		}
	}

	accessKey = os.Getenv("LIBRA_STORAGE_ACCESS_KEY")
	secretKey = os.Getenv("LIBRA_STORAGE_SECRET_KEY")
	if accessKey == "" || secretKey == "" {
		return "", "", fmt.Errorf("no remote storage credentials (tried vault and LIBRA_STORAGE_ACCESS_KEY/_SECRET_KEY)")
	}
	return accessKey, secretKey, nil
}
