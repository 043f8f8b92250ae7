package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simvault/simvault/index"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "image", cfg.Service.Kind)
	assert.Equal(t, 512, cfg.Service.Dimension)
	assert.Equal(t, 3, cfg.Service.K)
	assert.Equal(t, "memory", cfg.Anchor.Backend)
	assert.Equal(t, "memory", cfg.Registry.Backend)

	m, err := cfg.Metric()
	require.NoError(t, err)
	assert.Equal(t, index.MetricSquaredL2, m)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen: "0.0.0.0:9000"
service:
  kind: patent
  dimension: 384
  metric: Cosine
  threshold: 0.85
registry:
  backend: gateway
  gateway:
    base_url: "http://gateway:3000"
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "patent", cfg.Service.Kind)
	assert.Equal(t, 384, cfg.Service.Dimension)
	assert.InDelta(t, 0.85, cfg.Service.Threshold, 1e-9)
	assert.Equal(t, "http://gateway:3000", cfg.Registry.Gateway.BaseURL)

	m, err := cfg.Metric()
	require.NoError(t, err)
	assert.Equal(t, index.MetricCosine, m)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SIMVAULT_SERVICE_KIND", "video")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "video", cfg.Service.Kind)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"BadListen", func(c *Config) { c.Listen = "no-port" }},
		{"ZeroDimension", func(c *Config) { c.Service.Dimension = 0 }},
		{"BadMetric", func(c *Config) { c.Service.Metric = "Manhattan" }},
		{"BadKind", func(c *Config) { c.Service.Kind = "song" }},
		{"PinataWithoutKeys", func(c *Config) { c.Anchor.Backend = "pinata" }},
		{"GatewayWithoutURL", func(c *Config) { c.Registry.Backend = "gateway" }},
		{"NegativeRate", func(c *Config) { c.RateLimit.RequestsPerSecond = -1 }},
		{"RateWithoutBurst", func(c *Config) {
			c.RateLimit.RequestsPerSecond = 5
			c.RateLimit.Burst = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.NotEmpty(t, cfg.Validate())
		})
	}
}
