package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfigOverridesDefaults(t *testing.T) {
	data := []byte(`
[application]
name = "testbed"
log_level = "debug"
frames = 10

[renderer]
max_idle_frames = 3
persist_board = true
`)
	cfg, err := ParseConfig(data)
	require.NoError(t, err)

	assert.Equal(t, "testbed", cfg.Application.Name)
	assert.Equal(t, "debug", cfg.Application.LogLevel)
	assert.Equal(t, uint64(10), cfg.Application.Frames)
	assert.Equal(t, uint64(3), cfg.Renderer.MaxIdleFrames)
	assert.True(t, cfg.Renderer.PersistBoard)

	// untouched keys keep their defaults
	def := DefaultConfig()
	assert.Equal(t, def.Renderer.Width, cfg.Renderer.Width)
	assert.Equal(t, def.Pipelines.QueueSize, cfg.Pipelines.QueueSize)
}

func TestParseConfigRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"log level", "[application]\nlog_level = \"loud\"\n"},
		{"zero width", "[renderer]\nwidth = 0\n"},
		{"queue size", "[pipelines]\nqueue_size = 0\n"},
		{"malformed", "[renderer\nwidth = 1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfig([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engine.toml")
	require.NoError(t, os.WriteFile(path, []byte("[pipelines]\nshader_dir = \"assets/shaders\"\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "assets/shaders", cfg.Pipelines.ShaderDir)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
