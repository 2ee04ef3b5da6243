package engine

import (
	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
	"github.com/spaghettifunk/framegraph/engine/renderer/views"
	"github.com/spaghettifunk/framegraph/engine/systems"
)

type Game struct {
	ApplicationConfig *ApplicationConfig
	// Set by the engine before FnInitialize is called.
	SystemManager *systems.SystemManager
	Device        metadata.Device
	State         interface{}
	FnInitialize  Initialize
	FnUpdate      Update
	FnRender      Render
	FnOnResize    OnResize
	FnShutdown    Shutdown
}

type Initialize func() error
type Update func(deltaTime float64) error

// Render declares the game passes on the frame graph, after the passes of the
// configured views.
type Render func(fg *framegraph.FrameGraph, frame views.FrameContext, deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
