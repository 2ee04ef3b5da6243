package headless

import (
	"errors"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

func vertexBufferDesc(size uint64) metadata.Descriptor {
	return metadata.BufferDesc(metadata.BufferDescriptor{Size: size, Usage: gputypes.BufferUsageVertex | gputypes.BufferUsageIndex})
}

func TestCreateAndDestroyBuffer(t *testing.T) {
	d := NewDevice()

	res, err := d.CreateResource(vertexBufferDesc(100), "vertices")
	require.NoError(t, err)
	assert.Equal(t, metadata.ResourceKindBuffer, res.Kind())
	assert.Equal(t, "vertices", res.Label())
	assert.Equal(t, 1, d.Live())
	assert.Equal(t, uint64(256), d.AllocatedBytes())

	require.NoError(t, d.DestroyResource(res))
	assert.Equal(t, 0, d.Live())
	assert.Equal(t, uint64(0), d.AllocatedBytes())

	err = d.DestroyResource(res)
	assert.ErrorIs(t, err, core.ErrResourceUninitialized)
	assert.Equal(t, 1, d.Destroyed())
}

func TestCreateRejectsInvalidDescriptor(t *testing.T) {
	d := NewDevice()
	_, err := d.CreateResource(metadata.BufferDesc(metadata.BufferDescriptor{}), "empty")
	assert.ErrorIs(t, err, core.ErrInvalidDescriptor)
	assert.Equal(t, 0, d.Created(metadata.ResourceKindBuffer))
}

func TestFailCreateHook(t *testing.T) {
	d := NewDevice()
	boom := errors.New("out of memory")
	d.FailCreate = func(metadata.Descriptor) error { return boom }

	_, err := d.CreateResource(vertexBufferDesc(64), "vertices")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, d.Live())
}

func TestTextureViewOwnsTexture(t *testing.T) {
	d := NewDevice()
	desc := metadata.TextureViewDesc(metadata.NewRenderTargetViewDescriptor(64, 32, gputypes.TextureFormatRGBA8Unorm))

	res, err := d.CreateResource(desc, "color")
	require.NoError(t, err)
	view, err := metadata.Borrow[*metadata.TextureView](res)
	require.NoError(t, err)
	require.NotNil(t, view.Texture)
	assert.Equal(t, uint32(64), view.Texture.Desc.Size.Width)
	assert.Equal(t, desc, res.Descriptor())
}

func TestSwapChainImagePresent(t *testing.T) {
	d := NewDevice()
	desc := metadata.SwapChainDesc(metadata.SwapChainDescriptor{Width: 800, Height: 600, Format: gputypes.TextureFormatBGRA8Unorm})

	res, err := d.CreateResource(desc, "backbuffer")
	require.NoError(t, err)
	img, err := metadata.Borrow[*metadata.SwapChainImage](res)
	require.NoError(t, err)
	require.NotNil(t, img.View)
	assert.Equal(t, gputypes.TextureFormatBGRA8Unorm, img.View.Desc.Format)

	require.NoError(t, img.Present())
	require.NoError(t, img.Present())
	assert.Len(t, d.Presented, 1)
	assert.Equal(t, 0, d.Live())
}

func TestShaderModules(t *testing.T) {
	d := NewDevice()

	_, err := d.CreateShaderModule("empty", nil)
	assert.Error(t, err)

	m, err := d.CreateShaderModule("basic", []byte("void main() {}"))
	require.NoError(t, err)
	assert.Equal(t, 1, d.ShaderModules())

	require.NoError(t, d.DestroyShaderModule(m))
	assert.Error(t, d.DestroyShaderModule(m))
	assert.Equal(t, 0, d.ShaderModules())
}

func TestCreateRenderPipeline(t *testing.T) {
	d := NewDevice()
	desc := metadata.RenderPipelineDescriptor{
		Label:          "basic",
		VertexShader:   "basic.vert",
		FragmentShader: "basic.frag",
		ColorFormat:    gputypes.TextureFormatRGBA8Unorm,
	}
	vs, err := d.CreateShaderModule("basic.vert", []byte("v"))
	require.NoError(t, err)
	fs, err := d.CreateShaderModule("basic.frag", []byte("f"))
	require.NoError(t, err)

	_, err = d.CreateRenderPipeline(desc, nil, fs)
	assert.Error(t, err)
	_, err = d.CreateRenderPipeline(desc, vs, nil)
	assert.Error(t, err)

	p, err := d.CreateRenderPipeline(desc, vs, fs)
	require.NoError(t, err)
	assert.Equal(t, desc, p.Desc)
	assert.Equal(t, 1, d.PipelinesCreated())
}

func TestCommandBufferRecording(t *testing.T) {
	d := NewDevice()
	res, err := d.CreateResource(vertexBufferDesc(1024), "mesh")
	require.NoError(t, err)
	buf, _ := metadata.Borrow[*metadata.Buffer](res)
	view := &metadata.TextureView{ID: 99, Label: "target"}

	raw, err := d.CreateCommandBuffer("opaque")
	require.NoError(t, err)
	cb := raw.(*CommandBuffer)
	assert.Equal(t, COMMAND_BUFFER_STATE_RECORDING, cb.State)

	// nothing but a render pass can be opened outside of one
	assert.Error(t, cb.Draw(metadata.NewRange(0, 3), metadata.NewRange(0, 1)))

	require.NoError(t, cb.BeginRenderPass(&metadata.RenderPassDescriptor{
		Label:            "opaque",
		ColorAttachments: []metadata.RenderPassColorAttachment{{View: view, Ops: metadata.LoadOps()}},
	}))
	assert.Error(t, cb.Draw(metadata.NewRange(0, 3), metadata.NewRange(0, 1)), "draw without pipeline")
	require.NoError(t, cb.SetRenderPipeline(&metadata.RenderPipeline{ID: 1}))
	require.NoError(t, cb.SetVertexBuffer(0, buf, 0))
	assert.Error(t, cb.SetVertexBuffer(0, buf, 2048))
	assert.Error(t, cb.DrawIndexed(metadata.NewRange(0, 6), 0, metadata.NewRange(0, 1)), "indexed draw without index buffer")
	require.NoError(t, cb.SetIndexBuffer(buf, gputypes.IndexFormatUint32, 0))
	require.NoError(t, cb.DrawIndexed(metadata.NewRange(0, 6), 0, metadata.NewRange(0, 1)))
	require.NoError(t, cb.Draw(metadata.NewRange(0, 3), metadata.NewRange(0, 1)))

	assert.Error(t, cb.Finish(), "finish inside a render pass")
	require.NoError(t, cb.EndRenderPass())
	require.NoError(t, cb.Finish())

	require.NoError(t, d.Submit([]metadata.CommandBuffer{cb}))
	assert.Equal(t, COMMAND_BUFFER_STATE_SUBMITTED, cb.State)
	assert.Equal(t, []string{"opaque"}, d.SubmittedLabels())
	assert.Equal(t, 1, cb.Count(OpDraw))
	assert.Equal(t, 1, cb.Count(OpDrawIndexed))
	assert.Equal(t, 1, cb.Count(OpBeginRenderPass))

	// submitting twice is refused
	assert.Error(t, d.Submit([]metadata.CommandBuffer{cb}))
}

func TestVertexBufferNeedsUsage(t *testing.T) {
	d := NewDevice()
	res, err := d.CreateResource(metadata.BufferDesc(metadata.BufferDescriptor{Size: 64, Usage: gputypes.BufferUsageUniform}), "uniforms")
	require.NoError(t, err)
	buf, _ := metadata.Borrow[*metadata.Buffer](res)

	cb := newCommandBuffer("pass")
	require.NoError(t, cb.BeginRenderPass(&metadata.RenderPassDescriptor{}))
	assert.Error(t, cb.SetVertexBuffer(0, buf, 0))
	assert.Error(t, cb.SetIndexBuffer(buf, gputypes.IndexFormatUint32, 0))
}
