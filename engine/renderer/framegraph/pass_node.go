package framegraph

import (
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// RenderFunc records the GPU commands of a pass. It runs once, at execution,
// against a context built for that pass only, so it should capture refs and
// ids rather than concrete objects.
type RenderFunc func(ctx *RenderContext) error

type colorAttachment struct {
	target RawResourceNodeHandle
	ops    metadata.AttachmentOps
}

type depthAttachment struct {
	target     RawResourceNodeHandle
	ops        metadata.AttachmentOps
	clearDepth float32
}

// PassNode is one declared unit of GPU work.
type PassNode struct {
	ID          PassID
	Name        string
	InsertPoint uint32

	reads    []NodeID
	writes   []NodeID
	requests []ResourceID
	releases []ResourceID

	renderFn         RenderFunc
	colorAttachments []colorAttachment
	depthAttachment  *depthAttachment

	sideEffect bool
	refCount   int
	culled     bool
}

func newPassNode(id PassID, name string, insertPoint uint32) *PassNode {
	return &PassNode{
		ID:          id,
		Name:        name,
		InsertPoint: insertPoint,
	}
}

func (p *PassNode) Reads() []NodeID {
	return slices.Clone(p.reads)
}

func (p *PassNode) Writes() []NodeID {
	return slices.Clone(p.writes)
}

// Requests lists the resources this pass acquires, filled by Compile.
func (p *PassNode) Requests() []ResourceID {
	return slices.Clone(p.requests)
}

// Releases lists the resources this pass gives back, filled by Compile.
func (p *PassNode) Releases() []ResourceID {
	return slices.Clone(p.releases)
}

func (p *PassNode) Culled() bool {
	return p.culled
}

func (p *PassNode) HasSideEffect() bool {
	return p.sideEffect
}

func (p *PassNode) addRead(node NodeID) {
	if slices.Contains(p.reads, node) {
		return
	}
	p.reads = append(p.reads, node)
}

func (p *PassNode) addWrite(node NodeID) {
	p.writes = append(p.writes, node)
}

// takeRenderFn moves the closure out of the node.
func (p *PassNode) takeRenderFn() RenderFunc {
	fn := p.renderFn
	p.renderFn = nil
	return fn
}
