package core

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

/** @brief Engine configuration, usually read from a TOML file. */
type EngineConfig struct {
	Application ApplicationSection `toml:"application"`
	Renderer    RendererSection    `toml:"renderer"`
	Pipelines   PipelinesSection   `toml:"pipelines"`
}

type ApplicationSection struct {
	/** @brief The application name used in logs and frame labels. */
	Name string `toml:"name"`
	/** @brief One of debug, info, warn, error, fatal. */
	LogLevel string `toml:"log_level"`
	/** @brief Number of frames to render before stopping. 0 runs until interrupted. */
	Frames uint64 `toml:"frames"`
	/** @brief Target frames per second, 0 disables frame limiting. */
	TargetFPS float64 `toml:"target_fps"`
}

type RendererSection struct {
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
	/**
	 * @brief Number of frames a pooled transient object may stay unused before
	 * it is destroyed. 0 keeps pooled objects forever.
	 */
	MaxIdleFrames uint64 `toml:"max_idle_frames"`
	/** @brief Keep the resource board between frames instead of rebuilding it. */
	PersistBoard bool `toml:"persist_board"`
}

type PipelinesSection struct {
	/** @brief Initial capacity of the pending pipeline creation queue. */
	QueueSize int `toml:"queue_size"`
	/** @brief Directory watched for shader hot reload. Empty disables watching. */
	ShaderDir string `toml:"shader_dir"`
}

func DefaultConfig() *EngineConfig {
	return &EngineConfig{
		Application: ApplicationSection{
			Name:      "framegraph",
			LogLevel:  "info",
			Frames:    0,
			TargetFPS: 60,
		},
		Renderer: RendererSection{
			Width:         1280,
			Height:        720,
			MaxIdleFrames: 120,
		},
		Pipelines: PipelinesSection{
			QueueSize: 64,
		},
	}
}

// LoadConfig reads path on top of DefaultConfig, so a partial file only
// overrides the keys it names.
func LoadConfig(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err := fmt.Errorf("failed to read config file %s: %w", path, err)
		LogError("%s", err.Error())
		return nil, err
	}
	return ParseConfig(data)
}

func ParseConfig(data []byte) (*EngineConfig, error) {
	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		err := fmt.Errorf("failed to parse config: %w", err)
		LogError("%s", err.Error())
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EngineConfig) Validate() error {
	if _, err := ParseLogLevel(c.Application.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Application.LogLevel, err)
	}
	if c.Renderer.Width == 0 || c.Renderer.Height == 0 {
		return fmt.Errorf("renderer size must be non-zero, got %dx%d", c.Renderer.Width, c.Renderer.Height)
	}
	if c.Pipelines.QueueSize <= 0 {
		return fmt.Errorf("pipelines.queue_size must be greater than 0")
	}
	if c.Application.TargetFPS < 0 {
		return fmt.Errorf("application.target_fps must not be negative")
	}
	return nil
}
