package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// FileConfig points the file provider at a flat JSON object of
// key-to-value pairs. Meant for development; production setups should
// use vault or the environment.
type FileConfig struct {
	Path string
}

// FileProvider serves secrets from a JSON file loaded at construction.
// Call Reload to pick up edits.
type FileProvider struct {
	path string

	mu     sync.RWMutex
	values map[string]string
}

func NewFileProvider(cfg *FileConfig) (*FileProvider, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, fmt.Errorf("secrets file path required")
	}
	p := &FileProvider{path: cfg.Path}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Get(_ context.Context, key string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.values[key]
	if !ok {
		return "", fmt.Errorf("%q not in %s", key, p.path)
	}
	return val, nil
}

// Reload re-reads the backing file, replacing the in-memory values
// wholesale on success.
func (p *FileProvider) Reload() error {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return fmt.Errorf("read secrets file: %w", err)
	}
	values := make(map[string]string)
	if err := json.Unmarshal(raw, &values); err != nil {
		return fmt.Errorf("parse secrets file %s: %w", p.path, err)
	}
	p.mu.Lock()
	p.values = values
	p.mu.Unlock()
	return nil
}
