package metadata

import "github.com/gogpu/gputypes"

/**
 * @brief The graphics device backend as seen by the frame graph.
 */
type Device interface {
	/** @brief Allocates a new concrete object matching the descriptor. */
	CreateResource(desc Descriptor, label string) (Resource, error)
	/** @brief Frees a concrete object previously returned by CreateResource. */
	DestroyResource(res Resource) error
	/** @brief Opens a command buffer for recording. */
	CreateCommandBuffer(label string) (CommandBuffer, error)
	CreateShaderModule(name string, source []byte) (*ShaderModule, error)
	DestroyShaderModule(module *ShaderModule) error
	/** @brief Compiles a pipeline. fragment may be nil for depth only pipelines. */
	CreateRenderPipeline(desc RenderPipelineDescriptor, vertex, fragment *ShaderModule) (*RenderPipeline, error)
	/** @brief Hands finished command buffers to the GPU queue. Does not wait. */
	Submit(buffers []CommandBuffer) error
}

/**
 * @brief Records GPU commands for one device pass.
 */
type CommandBuffer interface {
	Label() string
	/** @brief Starts a render pass, i.e. binds the attachments. */
	BeginRenderPass(desc *RenderPassDescriptor) error
	EndRenderPass() error
	SetRenderPipeline(pipeline *RenderPipeline) error
	SetVertexBuffer(slot uint32, buffer *Buffer, offset uint64) error
	SetIndexBuffer(buffer *Buffer, format gputypes.IndexFormat, offset uint64) error
	SetBindGroup(index uint32, group *BindGroup) error
	Draw(vertices, instances Range) error
	DrawIndexed(indices Range, baseVertex int32, instances Range) error
	/** @brief Ends recording. No command can be recorded afterwards. */
	Finish() error
}
