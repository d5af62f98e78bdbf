package config

import (
	"context"

	"github.com/plusplusoneplusplus/taskgraph/internal/secrets"
)

// ApplySecrets fills credential fields left empty by the config file from
// the secrets manager. Values set explicitly in the file win.
func ApplySecrets(ctx context.Context, cfg *Config) {
	if cfg.Graph.URI == "" {
		cfg.Graph.URI = secrets.GetOrDefault(ctx, string(secrets.SecretGraphURI), cfg.Graph.URI)
	}
	if cfg.Graph.Username == "" {
		cfg.Graph.Username = secrets.GetOrDefault(ctx, string(secrets.SecretGraphUsername), cfg.Graph.Username)
	}
	if cfg.Graph.Password == "" {
		cfg.Graph.Password = secrets.GetOrDefault(ctx, string(secrets.SecretGraphPassword), cfg.Graph.Password)
	}
}
