package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeConfigFile_JSONByDefault(t *testing.T) {
	raw := []byte(`{"nodeId":"n1","backends":[{"type":"memory"}]}`)
	cfg, err := decodeConfigFile("config.json", raw)
	require.NoError(t, err)
	assert.Equal(t, "n1", cfg.NodeID)
}

func TestDecodeConfigFile_YAMLByExtension(t *testing.T) {
	raw := []byte("nodeId: n1\nbackends:\n  - type: memory\n")
	cfg, err := decodeConfigFile("config.yaml", raw)
	require.NoError(t, err)
	assert.Equal(t, "n1", cfg.NodeID)
}

func TestDecodeConfigFile_YAMLByFormatEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE_FORMAT", "yaml")
	raw := []byte("nodeId: n2\nbackends:\n  - type: memory\n")
	cfg, err := decodeConfigFile("config.txt", raw)
	require.NoError(t, err)
	assert.Equal(t, "n2", cfg.NodeID)
}
