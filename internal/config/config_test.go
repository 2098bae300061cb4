package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inkwell.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
version: "1.0"
redis:
  url: redis://redis.internal:6379
server:
  host: 127.0.0.1
  port: 9000
provider:
  name: moonshot
  base_url: https://api.moonshot.cn/v1
  model: kimi-k2-thinking
  token_limit: 262144
workflow:
  max_plan_critique_iterations: 3
  max_write_critique_iterations: 1
  plan_auto_approve: false
  max_turns: 120
output:
  dir: /var/lib/inkwell/output
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis://redis.internal:6379", cfg.Redis.URL)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "https://api.moonshot.cn/v1", cfg.Provider.BaseURL)
	assert.Equal(t, 262144, cfg.Provider.TokenLimit)
	assert.Equal(t, 3, *cfg.Workflow.MaxPlanCritiqueIterations)
	assert.Equal(t, 1, *cfg.Workflow.MaxWriteCritiqueIterations)
	assert.False(t, *cfg.Workflow.PlanAutoApprove)
	assert.Equal(t, 120, cfg.Workflow.MaxTurns)
	assert.Equal(t, "/var/lib/inkwell/output", cfg.Output.Dir)
}

func TestLoadMinimalConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `version: "1.0"`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultRedisURL, cfg.Redis.URL)
	assert.Equal(t, DefaultServerHost, cfg.Server.Host)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
	assert.Equal(t, DefaultProviderName, cfg.Provider.Name)
	assert.Equal(t, DefaultModel, cfg.Provider.Model)
	assert.Equal(t, DefaultTokenLimit, cfg.Provider.TokenLimit)
	assert.Equal(t, DefaultCritiqueIterations, *cfg.Workflow.MaxPlanCritiqueIterations)
	assert.Equal(t, DefaultCritiqueIterations, *cfg.Workflow.MaxWriteCritiqueIterations)
	assert.True(t, *cfg.Workflow.PlanAutoApprove)
	assert.Equal(t, DefaultMaxTurns, cfg.Workflow.MaxTurns)
	assert.Equal(t, DefaultOutputDir, cfg.Output.Dir)
}

func TestValidateRejectsBadValues(t *testing.T) {
	one := 1
	eleven := 11
	zero := 0

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "unsupported version",
			mutate:  func(c *Config) { c.Version = "2.0" },
			wantErr: "unsupported version",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "server.port",
		},
		{
			name: "plan critique iterations too high",
			mutate: func(c *Config) {
				c.Workflow = &WorkflowConfig{MaxPlanCritiqueIterations: &eleven}
			},
			wantErr: "max_plan_critique_iterations",
		},
		{
			name: "write critique iterations too low",
			mutate: func(c *Config) {
				c.Workflow = &WorkflowConfig{MaxPlanCritiqueIterations: &one, MaxWriteCritiqueIterations: &zero}
			},
			wantErr: "max_write_critique_iterations",
		},
		{
			name:    "negative max turns",
			mutate:  func(c *Config) { c.Workflow = &WorkflowConfig{MaxTurns: -1} },
			wantErr: "max_turns",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "version: [broken")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, DefaultModel, cfg.Provider.Model)
	assert.NotNil(t, cfg.Workflow.PlanAutoApprove)
}
