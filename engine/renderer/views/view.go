package views

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/spaghettifunk/framegraph/engine/renderer/framegraph"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// Board entries shared between the views.
const (
	SceneColor   = "scene-color"
	WorldHistory = "world-history"
)

// Insertion points, a view can be declared in any order.
const (
	InsertSkybox  uint32 = 100
	InsertWorld   uint32 = 200
	InsertResolve uint32 = 300
	InsertUI      uint32 = 900
)

const (
	SceneColorFormat = gputypes.TextureFormatRGBA16Float
	DepthFormat      = gputypes.TextureFormatDepth32Float
)

// PipelineRegistry is where views register the pipelines they draw with.
type PipelineRegistry interface {
	RegisterRenderPipeline(desc metadata.RenderPipelineDescriptor) (metadata.PipelineID, error)
}

/** @brief Per frame data handed to every view. */
type FrameContext struct {
	Frame    uint64
	Width    uint32
	Height   uint32
	Temporal *framegraph.TemporalResources
}

// RenderView declares a group of related passes on every frame graph.
type RenderView interface {
	Name() string
	OnCreate(pipelines PipelineRegistry) error
	OnResize(width, height uint32)
	AddPasses(fg *framegraph.FrameGraph, frame FrameContext) error
	OnDestroy() error
}

func colorTarget(width, height uint32) metadata.Descriptor {
	return metadata.TextureViewDesc(metadata.NewRenderTargetViewDescriptor(width, height, SceneColorFormat))
}

func depthTarget(width, height uint32) metadata.Descriptor {
	return metadata.TextureViewDesc(metadata.NewRenderTargetViewDescriptor(width, height, DepthFormat))
}

// boardHandle fetches a typed handle published by an earlier view.
func boardHandle[T metadata.Concrete](fg *framegraph.FrameGraph, name string) (framegraph.ResourceNodeHandle[T], error) {
	raw, ok := fg.FromBoard(name)
	if !ok {
		return framegraph.ResourceNodeHandle[T]{}, fmt.Errorf("board entry %q is missing, was its view declared?", name)
	}
	h, ok := framegraph.Typed[T](raw)
	if !ok {
		return framegraph.ResourceNodeHandle[T]{}, fmt.Errorf("board entry %q holds a %s", name, raw.Kind)
	}
	return h, nil
}

func readBoard[T metadata.Concrete](b *framegraph.PassNodeBuilder, name string) (framegraph.ReadRef[T], error) {
	ref, ok := framegraph.ReadFromBoard[T](b, name)
	if ok {
		return ref, nil
	}
	if err := b.Err(); err != nil {
		return ref, err
	}
	return ref, fmt.Errorf("pass %s: board entry %q is missing", b.PassName(), name)
}
