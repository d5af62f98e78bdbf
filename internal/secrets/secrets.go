// Package secrets resolves credentials that should not live in config
// files. A Resolver walks an ordered chain of providers and memoizes
// hits; environment variables are always the last link in the chain, so
// local development needs no secret store at all.
package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
)

// SecretKey names the secrets the engine knows how to consume.
type SecretKey string

const (
	SecretGraphPassword SecretKey = "graph_password"
	SecretGraphUsername SecretKey = "graph_username"
	SecretGraphURI      SecretKey = "graph_uri"
	SecretTemporalToken SecretKey = "temporal_token"
)

// ErrNotFound is wrapped by Resolver.Get when no provider holds the key.
var ErrNotFound = errors.New("secret not found")

// Provider fetches a single secret by key.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Name() string
}

// Config selects the primary provider. The env provider is appended to
// the chain regardless, so file and vault setups still fall back to
// environment variables for keys they do not hold.
type Config struct {
	// Provider is "env", "file" or "vault". Empty means env only.
	Provider string
	// EnvPrefix is prepended to upper-cased keys when reading the
	// environment. Defaults to "TASKGRAPH_".
	EnvPrefix string
	File      *FileConfig
	Vault     *VaultConfig
}

// Resolver resolves secrets through an ordered provider chain.
type Resolver struct {
	chain []Provider

	mu   sync.Mutex
	memo map[string]string
}

// NewResolver builds a resolver from cfg. A nil cfg yields an env-only
// chain with the default prefix.
func NewResolver(cfg *Config) (*Resolver, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	var chain []Provider
	switch cfg.Provider {
	case "", "env":
		// env is appended below
	case "file":
		p, err := NewFileProvider(cfg.File)
		if err != nil {
			return nil, fmt.Errorf("file provider: %w", err)
		}
		chain = append(chain, p)
	case "vault":
		p, err := NewVaultProvider(cfg.Vault)
		if err != nil {
			return nil, fmt.Errorf("vault provider: %w", err)
		}
		chain = append(chain, p)
	default:
		return nil, fmt.Errorf("unknown secrets provider %q", cfg.Provider)
	}
	chain = append(chain, NewEnvProvider(cfg.EnvPrefix))

	return &Resolver{chain: chain, memo: make(map[string]string)}, nil
}

// Get walks the chain and returns the first non-empty value. Hits are
// memoized so repeated lookups do not hammer remote providers.
func (r *Resolver) Get(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	if val, ok := r.memo[key]; ok {
		r.mu.Unlock()
		return val, nil
	}
	r.mu.Unlock()

	for _, p := range r.chain {
		val, err := p.Get(ctx, key)
		if err != nil || val == "" {
			continue
		}
		r.mu.Lock()
		r.memo[key] = val
		r.mu.Unlock()
		return val, nil
	}

	return "", fmt.Errorf("%q not in %s: %w", key, r.chainNames(), ErrNotFound)
}

// GetOrDefault returns def when the key resolves to nothing.
func (r *Resolver) GetOrDefault(ctx context.Context, key, def string) string {
	val, err := r.Get(ctx, key)
	if err != nil {
		return def
	}
	return val
}

// Forget drops a memoized value so the next Get hits the providers again.
func (r *Resolver) Forget(key string) {
	r.mu.Lock()
	delete(r.memo, key)
	r.mu.Unlock()
}

func (r *Resolver) chainNames() string {
	names := make([]string, len(r.chain))
	for i, p := range r.chain {
		names[i] = p.Name()
	}
	return strings.Join(names, ",")
}

var (
	global     *Resolver
	globalOnce sync.Once
)

// Init installs the process-wide resolver. Later calls are no-ops; the
// first Get auto-initializes with an env-only chain if Init was never
// called.
func Init(cfg *Config) error {
	var err error
	globalOnce.Do(func() {
		global, err = NewResolver(cfg)
	})
	return err
}

// Get resolves key through the process-wide resolver.
func Get(ctx context.Context, key string) (string, error) {
	if err := Init(nil); err != nil {
		return "", err
	}
	return global.Get(ctx, key)
}

// GetOrDefault resolves key through the process-wide resolver, falling
// back to def.
func GetOrDefault(ctx context.Context, key, def string) string {
	if err := Init(nil); err != nil {
		return def
	}
	return global.GetOrDefault(ctx, key, def)
}
