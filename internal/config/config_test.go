package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mcpbox/internal/constants"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MCPBOX_CONFIGS_TABLE", "mcpbox-configs")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, constants.Development, cfg.Environment)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 60*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 15*time.Second, cfg.ExternalCallTimeout)
	assert.Equal(t, "https://api.cloudflare.com/client/v4", cfg.CloudAPIBase)
	assert.Equal(t, "mcpbox-configs", cfg.ConfigsTable)
	assert.Equal(t, "/mcpbox/credentials", cfg.CredentialPrefix)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MCPBOX_CONFIGS_TABLE", "mcpbox-configs")
	t.Setenv("MCPBOX_PORT", "9090")
	t.Setenv("MCPBOX_ENVIRONMENT", "production")
	t.Setenv("MCPBOX_CLOUD_API_BASE", "https://staging.example.com/v4")
	t.Setenv("MCPBOX_EXTERNAL_CALL_TIMEOUT", "5s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, constants.Production, cfg.Environment)
	assert.Equal(t, "https://staging.example.com/v4", cfg.CloudAPIBase)
	assert.Equal(t, 5*time.Second, cfg.ExternalCallTimeout)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{
			name: "missing configs table",
			env:  map[string]string{},
		},
		{
			name: "invalid environment",
			env: map[string]string{
				"MCPBOX_CONFIGS_TABLE": "mcpbox-configs",
				"MCPBOX_ENVIRONMENT":   "staging",
			},
		},
		{
			name: "invalid port",
			env: map[string]string{
				"MCPBOX_CONFIGS_TABLE": "mcpbox-configs",
				"MCPBOX_PORT":          "70000",
			},
		},
		{
			name: "credential prefix without leading slash",
			env: map[string]string{
				"MCPBOX_CONFIGS_TABLE":     "mcpbox-configs",
				"MCPBOX_CREDENTIAL_PREFIX": "mcpbox/credentials",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
