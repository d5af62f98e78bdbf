// Package config loads application configuration from file and environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Graph     GraphConfig     `mapstructure:"graph"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Executor  ExecutorConfig  `mapstructure:"executor"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Log       LogConfig       `mapstructure:"log"`
}

// GraphConfig configures the Neo4j connection.
type GraphConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// SchedulerConfig configures scheduling passes.
type SchedulerConfig struct {
	MaxReadyTasks int           `mapstructure:"max_ready_tasks"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	MaxCycleDepth int           `mapstructure:"max_cycle_depth"`
	BatchSize     int           `mapstructure:"batch_size"`
}

// ExecutorConfig selects the process execution backend.
type ExecutorConfig struct {
	// Backend is "local" or "temporal".
	Backend string `mapstructure:"backend"`
}

// TemporalConfig configures the Temporal connection.
type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRate  float64 `mapstructure:"sample_rate"`
	Environment string  `mapstructure:"environment"`
}

// AuditConfig configures the audit event log.
type AuditConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	OutputPath string `mapstructure:"output_path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Graph.URI == "" {
		warnings = append(warnings, "graph uri is empty, graph operations will fail")
	}

	if c.Scheduler.MaxReadyTasks < 0 {
		warnings = append(warnings, fmt.Sprintf("scheduler max_ready_tasks %d is negative", c.Scheduler.MaxReadyTasks))
	}
	if c.Scheduler.PollInterval < 0 {
		warnings = append(warnings, fmt.Sprintf("scheduler poll_interval %s is negative", c.Scheduler.PollInterval))
	}
	if c.Scheduler.MaxCycleDepth < 1 {
		warnings = append(warnings, fmt.Sprintf("scheduler max_cycle_depth %d disables cycle detection", c.Scheduler.MaxCycleDepth))
	}

	switch c.Executor.Backend {
	case "", "local":
	case "temporal":
		if c.Temporal.Host == "" {
			warnings = append(warnings, "executor backend is temporal but temporal host is empty")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("unknown executor backend '%s'", c.Executor.Backend))
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1.0 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}

	return warnings
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("TASKGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("graph.database", "neo4j")
	v.SetDefault("scheduler.max_ready_tasks", 0)
	v.SetDefault("scheduler.poll_interval", 5*time.Second)
	v.SetDefault("scheduler.max_cycle_depth", 10)
	v.SetDefault("scheduler.batch_size", 100)
	v.SetDefault("executor.backend", "local")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "taskgraph")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("audit.enabled", true)
	v.SetDefault("audit.output_path", "stdout")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
