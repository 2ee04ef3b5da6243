package headless

import (
	"fmt"

	"github.com/gogpu/gputypes"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// Buffers are accounted in multiples of this size, like most GPU allocators do.
const bufferAlignment uint64 = 256

// Device is an in-memory backend. It hands out real metadata objects,
// records every command buffer it receives and keeps track of live objects,
// which makes it the reference device for tests and the headless demo.
type Device struct {
	nextID uint64

	live       map[uint64]metadata.Resource
	created    map[metadata.ResourceKind]int
	destroyed  int
	allocBytes uint64

	shaders   map[uint32]*metadata.ShaderModule
	pipelines int

	Submitted []*CommandBuffer
	Presented []*metadata.SwapChainImage

	// FailCreate, when set, can refuse a resource creation.
	FailCreate func(desc metadata.Descriptor) error
}

func NewDevice() *Device {
	return &Device{
		live:    make(map[uint64]metadata.Resource),
		created: make(map[metadata.ResourceKind]int),
		shaders: make(map[uint32]*metadata.ShaderModule),
	}
}

func (d *Device) newID() uint64 {
	d.nextID++
	return d.nextID
}

func (d *Device) CreateResource(desc metadata.Descriptor, label string) (metadata.Resource, error) {
	if err := desc.Validate(); err != nil {
		return metadata.Resource{}, err
	}
	if d.FailCreate != nil {
		if err := d.FailCreate(desc); err != nil {
			return metadata.Resource{}, err
		}
	}

	var res metadata.Resource
	switch desc.Kind {
	case metadata.ResourceKindBuffer:
		d.allocBytes += metadata.GetAligned(desc.Buffer.Size, bufferAlignment)
		res = metadata.Wrap(&metadata.Buffer{ID: d.newID(), Label: label, Desc: desc.Buffer})
	case metadata.ResourceKindTexture:
		res = metadata.Wrap(d.newTexture(label, desc.Texture))
	case metadata.ResourceKindTextureView:
		res = metadata.Wrap(d.newView(label, desc.TextureView))
	case metadata.ResourceKindSwapChain:
		res = metadata.Wrap(d.acquireSwapChainImage(label, desc.SwapChain))
	default:
		return metadata.Resource{}, fmt.Errorf("headless device cannot create a %s: %w", desc.Kind, core.ErrInvalidDescriptor)
	}

	d.live[resourceID(res)] = res
	d.created[desc.Kind]++
	return res, nil
}

func (d *Device) newTexture(label string, desc metadata.TextureDescriptor) *metadata.Texture {
	return &metadata.Texture{ID: d.newID(), Label: label, Desc: desc}
}

func (d *Device) newView(label string, desc metadata.TextureViewDescriptor) *metadata.TextureView {
	return &metadata.TextureView{
		ID:      d.newID(),
		Label:   label,
		Desc:    desc,
		Texture: d.newTexture(label+"-texture", desc.Texture),
	}
}

func (d *Device) acquireSwapChainImage(label string, desc metadata.SwapChainDescriptor) *metadata.SwapChainImage {
	view := d.newView(label+"-view", metadata.TextureViewDescriptor{
		Texture:         metadata.NewTexture2DDescriptor(desc.Width, desc.Height, desc.Format, gputypes.TextureUsageRenderAttachment),
		Format:          desc.Format,
		Dimension:       gputypes.TextureViewDimension2D,
		Aspect:          gputypes.TextureAspectAll,
		MipLevelCount:   1,
		ArrayLayerCount: 1,
	})
	return &metadata.SwapChainImage{
		ID:    d.newID(),
		Label: label,
		Desc:  desc,
		View:  view,
		OnPresent: func(img *metadata.SwapChainImage) error {
			d.Presented = append(d.Presented, img)
			// presenting gives the image back to the swap chain
			delete(d.live, img.ID)
			return nil
		},
	}
}

func (d *Device) DestroyResource(res metadata.Resource) error {
	id := resourceID(res)
	if _, ok := d.live[id]; !ok {
		return fmt.Errorf("destroy %s: not a live object: %w", res.Label(), core.ErrResourceUninitialized)
	}
	delete(d.live, id)
	if res.Kind() == metadata.ResourceKindBuffer {
		buf, _ := metadata.Borrow[*metadata.Buffer](res)
		d.allocBytes -= metadata.GetAligned(buf.Desc.Size, bufferAlignment)
	}
	d.destroyed++
	return nil
}

func (d *Device) CreateCommandBuffer(label string) (metadata.CommandBuffer, error) {
	return newCommandBuffer(label), nil
}

func (d *Device) CreateShaderModule(name string, source []byte) (*metadata.ShaderModule, error) {
	if len(source) == 0 {
		return nil, fmt.Errorf("shader %s: empty source", name)
	}
	m := &metadata.ShaderModule{Name: name, Source: source}
	m.InternalData = d.newID()
	d.shaders[uint32(m.InternalData.(uint64))] = m
	return m, nil
}

func (d *Device) DestroyShaderModule(module *metadata.ShaderModule) error {
	id, ok := module.InternalData.(uint64)
	if !ok {
		return fmt.Errorf("shader %s was not created by this device", module.Name)
	}
	if _, ok := d.shaders[uint32(id)]; !ok {
		return fmt.Errorf("shader %s destroyed twice", module.Name)
	}
	delete(d.shaders, uint32(id))
	return nil
}

func (d *Device) CreateRenderPipeline(desc metadata.RenderPipelineDescriptor, vertex, fragment *metadata.ShaderModule) (*metadata.RenderPipeline, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if vertex == nil {
		return nil, fmt.Errorf("pipeline %s: missing vertex module", desc.Label)
	}
	if desc.FragmentShader != "" && fragment == nil {
		return nil, fmt.Errorf("pipeline %s: missing fragment module", desc.Label)
	}
	d.pipelines++
	return &metadata.RenderPipeline{Desc: desc, InternalData: d.newID()}, nil
}

func (d *Device) Submit(buffers []metadata.CommandBuffer) error {
	for _, b := range buffers {
		cb, ok := b.(*CommandBuffer)
		if !ok {
			return fmt.Errorf("command buffer %s was not created by this device", b.Label())
		}
		if cb.State != COMMAND_BUFFER_STATE_RECORDING_ENDED {
			return fmt.Errorf("command buffer %s submitted while %s", cb.label, cb.State)
		}
		cb.State = COMMAND_BUFFER_STATE_SUBMITTED
		d.Submitted = append(d.Submitted, cb)
	}
	return nil
}

// Created returns how many objects of kind were created so far.
func (d *Device) Created(kind metadata.ResourceKind) int {
	return d.created[kind]
}

func (d *Device) Destroyed() int {
	return d.destroyed
}

// Live counts the objects created and not yet destroyed or presented.
func (d *Device) Live() int {
	return len(d.live)
}

func (d *Device) AllocatedBytes() uint64 {
	return d.allocBytes
}

func (d *Device) ShaderModules() int {
	return len(d.shaders)
}

func (d *Device) PipelinesCreated() int {
	return d.pipelines
}

// SubmittedLabels lists the submitted command buffers in order.
func (d *Device) SubmittedLabels() []string {
	labels := make([]string, 0, len(d.Submitted))
	for _, cb := range d.Submitted {
		labels = append(labels, cb.label)
	}
	return labels
}

func resourceID(res metadata.Resource) uint64 {
	switch res.Kind() {
	case metadata.ResourceKindBuffer:
		b, _ := metadata.Borrow[*metadata.Buffer](res)
		return b.ID
	case metadata.ResourceKindTexture:
		t, _ := metadata.Borrow[*metadata.Texture](res)
		return t.ID
	case metadata.ResourceKindTextureView:
		v, _ := metadata.Borrow[*metadata.TextureView](res)
		return v.ID
	case metadata.ResourceKindSwapChain:
		s, _ := metadata.Borrow[*metadata.SwapChainImage](res)
		return s.ID
	}
	return 0
}
