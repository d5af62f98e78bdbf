package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// DefaultEnvPrefix is prepended to upper-cased keys when none is set.
const DefaultEnvPrefix = "TASKGRAPH_"

// EnvProvider maps keys to environment variables: graph_password becomes
// TASKGRAPH_GRAPH_PASSWORD, with the bare upper-cased name as a second
// attempt.
type EnvProvider struct {
	prefix string
}

func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(_ context.Context, key string) (string, error) {
	name := p.prefix + strings.ToUpper(key)
	if val := os.Getenv(name); val != "" {
		return val, nil
	}
	if val := os.Getenv(strings.ToUpper(key)); val != "" {
		return val, nil
	}
	return "", fmt.Errorf("%s unset", name)
}
