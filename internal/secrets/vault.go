package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// VaultConfig addresses a single KV v2 secret holding all engine
// credentials as fields.
type VaultConfig struct {
	// Address of the Vault server, e.g. "http://localhost:8200".
	Address string
	Token   string
	// Mount is the KV engine mount path. Defaults to "secret".
	Mount string
	// Path under the mount. Defaults to "taskgraph".
	Path    string
	Timeout time.Duration
}

// VaultProvider reads fields out of one KV v2 secret over Vault's HTTP
// API. Each Get fetches the whole secret; the Resolver's memo keeps
// that from repeating per key.
type VaultProvider struct {
	cfg    VaultConfig
	client *http.Client
}

func NewVaultProvider(cfg *VaultConfig) (*VaultProvider, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, fmt.Errorf("vault address required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("vault token required")
	}
	c := *cfg
	if c.Mount == "" {
		c.Mount = "secret"
	}
	if c.Path == "" {
		c.Path = "taskgraph"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	return &VaultProvider{
		cfg:    c,
		client: &http.Client{Timeout: c.Timeout},
	}, nil
}

func (p *VaultProvider) Name() string { return "vault" }

func (p *VaultProvider) Get(ctx context.Context, key string) (string, error) {
	fields, err := p.fetch(ctx)
	if err != nil {
		return "", err
	}
	val, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%q not in vault secret %s/%s", key, p.cfg.Mount, p.cfg.Path)
	}
	if s, ok := val.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", val), nil
}

func (p *VaultProvider) fetch(ctx context.Context) (map[string]any, error) {
	url := fmt.Sprintf("%s/v1/%s/data/%s",
		strings.TrimSuffix(p.cfg.Address, "/"), p.cfg.Mount, p.cfg.Path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build vault request: %w", err)
	}
	req.Header.Set("X-Vault-Token", p.cfg.Token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vault request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("vault secret %s/%s not found", p.cfg.Mount, p.cfg.Path)
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("vault returned %d: %s", resp.StatusCode, body)
	}

	// KV v2 nests the user payload under data.data.
	var envelope struct {
		Data struct {
			Data map[string]any `json:"data"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode vault response: %w", err)
	}
	return envelope.Data.Data, nil
}
