package config_test

import (
	"testing"

	"github.com/Mindburn-Labs/fabric/pkg/config"
	"github.com/stretchr/testify/assert"
)

// TestLoad_Defaults verifies that Load() returns sensible defaults
// when no environment variables are set.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("BACKEND_URL", "")
	t.Setenv("NODE_ID", "")

	cfg := config.Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "memory://local", cfg.BackendURL)
	assert.Empty(t, cfg.NodeID)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("BACKEND_URL", "postgresql://localhost/fabric")
	t.Setenv("NODE_ID", "n1")
	t.Setenv("OPERATOR_KEY", "abc123")
	t.Setenv("CONFIG_URL", "mutable://accounts/abc123/nodes/n1/config")

	cfg := config.Load()

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "postgresql://localhost/fabric", cfg.BackendURL)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_MissingFields(t *testing.T) {
	cfg := &config.BootConfig{}
	assert.Error(t, cfg.Validate())
}
