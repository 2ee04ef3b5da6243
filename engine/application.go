package engine

import (
	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/views"
)

type ApplicationConfig struct {
	// Engine settings, usually loaded from a TOML file.
	Engine *core.EngineConfig
	// Views declare their passes on every frame graph, in this order.
	Views []views.RenderView
}

// NewApplicationConfig wraps config, falling back to the defaults when nil.
func NewApplicationConfig(config *core.EngineConfig, vs ...views.RenderView) *ApplicationConfig {
	if config == nil {
		config = core.DefaultConfig()
	}
	return &ApplicationConfig{Engine: config, Views: vs}
}
