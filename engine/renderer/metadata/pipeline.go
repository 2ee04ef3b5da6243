package metadata

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

/** @brief Stable identifier of a registered render pipeline. */
type PipelineID uint32

/** @brief Returned when a pipeline could not be registered. */
const InvalidPipelineID PipelineID = ^PipelineID(0)

/**
 * @brief Describes a render pipeline. Pipelines with equal descriptors are
 * deduplicated by the pipeline cache. Shaders are referenced by name.
 */
type RenderPipelineDescriptor struct {
	Label              string
	VertexShader       string
	VertexEntryPoint   string
	FragmentShader     string
	FragmentEntryPoint string
	/** @brief Format of the single color target. */
	ColorFormat gputypes.TextureFormat
	/** @brief Format of the depth target, Undefined when the pipeline has none. */
	DepthFormat gputypes.TextureFormat
	Topology    gputypes.PrimitiveTopology
	CullMode    gputypes.CullMode
	FrontFace   gputypes.FrontFace
	SampleCount uint32
}

func (d RenderPipelineDescriptor) Validate() error {
	if d.VertexShader == "" {
		return fmt.Errorf("render pipeline %q has no vertex shader", d.Label)
	}
	if d.ColorFormat == gputypes.TextureFormatUndefined {
		return fmt.Errorf("render pipeline %q has no color format", d.Label)
	}
	return nil
}

// Shaders lists the distinct shader names the pipeline depends on.
func (d RenderPipelineDescriptor) Shaders() []string {
	if d.FragmentShader == "" || d.FragmentShader == d.VertexShader {
		return []string{d.VertexShader}
	}
	return []string{d.VertexShader, d.FragmentShader}
}

/** @brief A compiled render pipeline. */
type RenderPipeline struct {
	ID           PipelineID
	Desc         RenderPipelineDescriptor
	InternalData interface{}
}

/** @brief A shader module compiled by the backend. */
type ShaderModule struct {
	ID     uint32
	Name   string
	Source []byte
	/** @brief Bumped every time the shader source changes. */
	Generation   uint32
	InternalData interface{}
}

/** @brief One binding inside a bind group. Exactly one resource field is set. */
type BindGroupEntry struct {
	Binding     uint32
	Buffer      *Buffer
	TextureView *TextureView
}

/** @brief A set of resources bound together to a pipeline slot. */
type BindGroup struct {
	Label   string
	Entries []BindGroupEntry
}
