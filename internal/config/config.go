// Package config loads and validates the inkwell.yml configuration file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the top-level inkwell.yml configuration.
type Config struct {
	Version  string          `yaml:"version"`
	Redis    RedisConfig     `yaml:"redis,omitempty"`
	Server   ServerConfig    `yaml:"server,omitempty"`
	Provider ProviderConfig  `yaml:"provider,omitempty"`
	Workflow *WorkflowConfig `yaml:"workflow,omitempty"`
	Output   OutputConfig    `yaml:"output,omitempty"`
}

// RedisConfig specifies the durable state backend.
type RedisConfig struct {
	URL string `yaml:"url,omitempty"` // Default: redis://localhost:6379
}

// ServerConfig specifies the HTTP and live-channel listener.
type ServerConfig struct {
	Host string `yaml:"host,omitempty"` // Default: 0.0.0.0
	Port int    `yaml:"port,omitempty"` // Default: 8000
}

// ProviderConfig specifies the reasoning provider endpoint.
type ProviderConfig struct {
	Name       string `yaml:"name,omitempty"`        // Default: moonshot
	BaseURL    string `yaml:"base_url,omitempty"`    // Empty uses the provider default
	Model      string `yaml:"model,omitempty"`       // Default: kimi-k2-thinking
	TokenLimit int    `yaml:"token_limit,omitempty"` // Default: 200000
}

// WorkflowConfig specifies revision budgets and loop limits.
type WorkflowConfig struct {
	MaxPlanCritiqueIterations  *int  `yaml:"max_plan_critique_iterations,omitempty"`  // Range [1,10], default 2
	MaxWriteCritiqueIterations *int  `yaml:"max_write_critique_iterations,omitempty"` // Range [1,10], default 2
	PlanAutoApprove            *bool `yaml:"plan_auto_approve,omitempty"`             // Default: true
	MaxTurns                   int   `yaml:"max_turns,omitempty"`                     // Safety ceiling per run, default 300
}

// OutputConfig specifies where project artifacts are written.
type OutputConfig struct {
	Dir string `yaml:"dir,omitempty"` // Default: output
}

// Defaults applied by Validate.
const (
	DefaultRedisURL           = "redis://localhost:6379"
	DefaultServerHost         = "0.0.0.0"
	DefaultServerPort         = 8000
	DefaultProviderName       = "moonshot"
	DefaultModel              = "kimi-k2-thinking"
	DefaultTokenLimit         = 200000
	DefaultCritiqueIterations = 2
	DefaultMaxTurns           = 300
	DefaultOutputDir          = "output"
)

// Validate performs strict validation and fills in defaults for omitted
// fields.
func (c *Config) Validate() error {
	if c.Version == "" {
		c.Version = "1.0"
	}
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Redis.URL == "" {
		c.Redis.URL = DefaultRedisURL
	}

	if c.Server.Host == "" {
		c.Server.Host = DefaultServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultServerPort
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in range [1,65535], got %d", c.Server.Port)
	}

	if c.Provider.Name == "" {
		c.Provider.Name = DefaultProviderName
	}
	if c.Provider.Model == "" {
		c.Provider.Model = DefaultModel
	}
	if c.Provider.TokenLimit == 0 {
		c.Provider.TokenLimit = DefaultTokenLimit
	}
	if c.Provider.TokenLimit < 0 {
		return fmt.Errorf("provider.token_limit must be positive, got %d", c.Provider.TokenLimit)
	}

	if c.Workflow == nil {
		c.Workflow = &WorkflowConfig{}
	}
	if c.Workflow.MaxPlanCritiqueIterations == nil {
		d := DefaultCritiqueIterations
		c.Workflow.MaxPlanCritiqueIterations = &d
	}
	if c.Workflow.MaxWriteCritiqueIterations == nil {
		d := DefaultCritiqueIterations
		c.Workflow.MaxWriteCritiqueIterations = &d
	}
	if v := *c.Workflow.MaxPlanCritiqueIterations; v < 1 || v > 10 {
		return fmt.Errorf("workflow.max_plan_critique_iterations must be in range [1,10], got %d", v)
	}
	if v := *c.Workflow.MaxWriteCritiqueIterations; v < 1 || v > 10 {
		return fmt.Errorf("workflow.max_write_critique_iterations must be in range [1,10], got %d", v)
	}
	if c.Workflow.PlanAutoApprove == nil {
		d := true
		c.Workflow.PlanAutoApprove = &d
	}
	if c.Workflow.MaxTurns == 0 {
		c.Workflow.MaxTurns = DefaultMaxTurns
	}
	if c.Workflow.MaxTurns < 1 {
		return fmt.Errorf("workflow.max_turns must be >= 1, got %d", c.Workflow.MaxTurns)
	}

	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}

	return nil
}

// Default returns a validated configuration with every field at its default.
func Default() *Config {
	c := &Config{}
	// Validate cannot fail on the zero config.
	_ = c.Validate()
	return c
}

// Load reads and validates inkwell.yml from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}
