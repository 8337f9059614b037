package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManifest_ValidManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"id": "weather",
		"name": "Weather Plugin",
		"version": "1.0.0",
		"tools": [{"id": "get_weather", "name": "Get Weather", "description": "looks up current weather", "file": "./weather-plugin"}]
	}`), 0o644))

	m, err := ParseManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "weather", m.ID)
	require.Len(t, m.Tools, 1)
	assert.Equal(t, "get_weather", m.Tools[0].ID)
}

func TestParseManifest_MissingIDErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "no id"}`), 0o644))

	_, err := ParseManifest(path)
	assert.Error(t, err)
}
