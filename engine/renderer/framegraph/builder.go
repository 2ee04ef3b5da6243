package framegraph

import (
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// PassNodeBuilder declares the resources of the pass under construction. It
// is only valid inside the setup function given to FrameGraph.AddPass. The
// first failing declaration is kept and fails the pass.
type PassNodeBuilder struct {
	graph *FrameGraph
	pass  *PassNode
	err   error
}

// Attachable lists the resources a pass can render into as color target.
type Attachable interface {
	*metadata.TextureView | *metadata.SwapChainImage
}

func (b *PassNodeBuilder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Err returns the first declaration error of the pass so far.
func (b *PassNodeBuilder) Err() error {
	return b.err
}

func (b *PassNodeBuilder) PassName() string {
	return b.pass.Name
}

// Render attaches the closure executed when the pass runs. It can be set once.
func (b *PassNodeBuilder) Render(fn RenderFunc) {
	if b.pass.renderFn != nil {
		b.fail(fmt.Errorf("pass %s: %w", b.pass.Name, core.ErrRenderFnAlreadySet))
		return
	}
	b.pass.renderFn = fn
}

// SideEffect keeps the pass alive even when nothing reads what it writes,
// e.g. a readback or a debug capture.
func (b *PassNodeBuilder) SideEffect() {
	b.pass.sideEffect = true
}

// Read records a dependency on the given version. Reading the same version
// twice is recorded once.
func Read[T metadata.Concrete](b *PassNodeBuilder, h ResourceNodeHandle[T]) ReadRef[T] {
	node, err := b.graph.lookupNode(h.raw)
	if err != nil {
		b.fail(fmt.Errorf("pass %s read: %w", b.pass.Name, err))
		return ReadRef[T]{}
	}
	b.pass.addRead(node.ID)
	return ReadRef[T]{handle: h}
}

// Write produces a new version of the resource behind h, written by this pass.
// h itself keeps pointing at the previous version.
func Write[T metadata.Concrete](b *PassNodeBuilder, h ResourceNodeHandle[T]) WriteRef[T] {
	node, err := b.graph.lookupNode(h.raw)
	if err != nil {
		b.fail(fmt.Errorf("pass %s write: %w", b.pass.Name, err))
		return WriteRef[T]{}
	}
	next := b.graph.newVersion(node.Resource, b.pass.ID)
	b.pass.addWrite(next.ID)
	return WriteRef[T]{handle: ResourceNodeHandle[T]{raw: next.raw()}}
}

// Create declares a graph owned resource. The concrete object is taken from
// the transient pool or created by the device when the first pass using it runs.
func Create[T metadata.Concrete](b *PassNodeBuilder, name string, desc metadata.Descriptor) ResourceNodeHandle[T] {
	h, err := CreateResource[T](b.graph, name, desc)
	if err != nil {
		b.fail(fmt.Errorf("pass %s: %w", b.pass.Name, err))
	}
	return h
}

// Import declares a caller owned resource. The graph never creates, pools or
// releases it. It is also put on the board under name.
func Import[T metadata.Concrete](b *PassNodeBuilder, name string, obj T) ResourceNodeHandle[T] {
	h, err := ImportResource(b.graph, name, obj)
	if err != nil {
		b.fail(fmt.Errorf("pass %s: %w", b.pass.Name, err))
	}
	return h
}

// ReadFromBoard reads the version currently published on the board under name.
// An entry left over from an earlier frame counts as missing.
func ReadFromBoard[T metadata.Concrete](b *PassNodeBuilder, name string) (ReadRef[T], bool) {
	raw, ok := b.graph.FromBoard(name)
	if !ok {
		return ReadRef[T]{}, false
	}
	h, ok := Typed[T](raw)
	if !ok {
		b.fail(fmt.Errorf("pass %s board entry %q is a %s: %w", b.pass.Name, name, raw.Kind, core.ErrResourceTypeMismatch))
		return ReadRef[T]{}, false
	}
	ref := Read(b, h)
	return ref, ref.IsValid()
}

// AddColorAttachment renders the pass into the written view or swap chain image.
// The concrete view is resolved when the pass executes.
func AddColorAttachment[T Attachable](b *PassNodeBuilder, ref WriteRef[T], ops metadata.AttachmentOps) {
	if !ref.IsValid() {
		b.fail(fmt.Errorf("pass %s color attachment: %w", b.pass.Name, core.ErrInvalidHandle))
		return
	}
	b.pass.colorAttachments = append(b.pass.colorAttachments, colorAttachment{
		target: ref.handle.raw,
		ops:    ops,
	})
}

// SetDepthAttachment sets the depth target of the pass.
func (b *PassNodeBuilder) SetDepthAttachment(ref WriteRef[*metadata.TextureView], ops metadata.AttachmentOps, clearDepth float32) {
	if !ref.IsValid() {
		b.fail(fmt.Errorf("pass %s depth attachment: %w", b.pass.Name, core.ErrInvalidHandle))
		return
	}
	b.pass.depthAttachment = &depthAttachment{
		target:     ref.handle.raw,
		ops:        ops,
		clearDepth: clearDepth,
	}
}
