package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/vault/api"
)

// resolveVault reads one key of a Vault secret. The reference has the form
// path#key, e.g. secret/data/bankclean/postgres#password. KV v2 payloads are
// unwrapped from their "data" envelope. VAULT_NAMESPACE is honoured when set.
func resolveVault(ctx context.Context, ref string) (string, error) {
	path, key, ok := strings.Cut(ref, "#")
	if !ok || path == "" || key == "" {
		return "", fmt.Errorf("invalid Vault reference %q: expected format path#key", ref)
	}

	addr := os.Getenv("VAULT_ADDR")
	if addr == "" {
		return "", fmt.Errorf("VAULT_ADDR environment variable not set")
	}
	token := os.Getenv("VAULT_TOKEN")
	if token == "" {
		return "", fmt.Errorf("VAULT_TOKEN environment variable not set")
	}

	cfg := api.DefaultConfig()
	cfg.Address = addr
	client, err := api.NewClient(cfg)
	if err != nil {
		return "", fmt.Errorf("creating Vault client: %w", err)
	}
	client.SetToken(token)
	if ns := os.Getenv("VAULT_NAMESPACE"); ns != "" {
		client.SetNamespace(ns)
	}

	secret, err := client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return "", fmt.Errorf("reading Vault secret at %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return "", fmt.Errorf("no secret found at %s", path)
	}

	data := secret.Data
	if inner, ok := data["data"].(map[string]interface{}); ok {
		data = inner
	}
	switch v := data[key].(type) {
	case string:
		return v, nil
	case nil:
		return "", fmt.Errorf("key %q not found in Vault secret at %s", key, path)
	default:
		return fmt.Sprint(v), nil
	}
}
