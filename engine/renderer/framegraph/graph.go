package framegraph

import (
	"cmp"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

var graphSerial atomic.Uint64

// Stats summarises the last compilation.
type Stats struct {
	Declared  int
	Culled    int
	Compiled  int
	Resources int
}

// FrameGraph owns every pass, virtual resource and resource node of a frame.
// Build it with AddPass, then Compile once and Execute once.
type FrameGraph struct {
	label  string
	serial uint64
	board  *ResourceBoard

	resources []*VirtualResource
	nodes     []*ResourceNode
	passes    []*PassNode

	devicePasses []*DevicePass
	compiled     bool
	buildErr     error
	stats        Stats
}

func New(label string) *FrameGraph {
	return NewWithBoard(label, NewResourceBoard())
}

// NewWithBoard builds a graph on top of an existing board, which lets a board
// outlive a single frame.
func NewWithBoard(label string, board *ResourceBoard) *FrameGraph {
	if board == nil {
		board = NewResourceBoard()
	}
	return &FrameGraph{
		label:  label,
		serial: graphSerial.Add(1),
		board:  board,
	}
}

func (fg *FrameGraph) Label() string {
	return fg.label
}

func (fg *FrameGraph) Board() *ResourceBoard {
	return fg.board
}

func (fg *FrameGraph) Stats() Stats {
	return fg.stats
}

func (fg *FrameGraph) IsCompiled() bool {
	return fg.compiled
}

func (fg *FrameGraph) Resource(id ResourceID) (*VirtualResource, bool) {
	if int(id) >= len(fg.resources) {
		return nil, false
	}
	return fg.resources[id], true
}

func (fg *FrameGraph) Node(id NodeID) (*ResourceNode, bool) {
	if int(id) >= len(fg.nodes) {
		return nil, false
	}
	return fg.nodes[id], true
}

func (fg *FrameGraph) Pass(id PassID) (*PassNode, bool) {
	if int(id) >= len(fg.passes) {
		return nil, false
	}
	return fg.passes[id], true
}

// DevicePasses lists the compiled passes in execution order.
func (fg *FrameGraph) DevicePasses() []*DevicePass {
	return slices.Clone(fg.devicePasses)
}

// CreateResource declares a graph owned resource outside of any pass.
func CreateResource[T metadata.Concrete](fg *FrameGraph, name string, desc metadata.Descriptor) (ResourceNodeHandle[T], error) {
	if fg.compiled {
		return ResourceNodeHandle[T]{}, core.ErrGraphAlreadyCompiled
	}
	if want := metadata.KindOf[T](); desc.Kind != want {
		return ResourceNodeHandle[T]{}, fmt.Errorf("create %s: descriptor is a %s, handle wants a %s: %w", name, desc.Kind, want, core.ErrResourceTypeMismatch)
	}
	if err := desc.Validate(); err != nil {
		return ResourceNodeHandle[T]{}, fmt.Errorf("create %s: %w", name, err)
	}
	res := newSetupResource(ResourceID(len(fg.resources)), name, desc)
	fg.resources = append(fg.resources, res)
	node := fg.addNode(res.ID, desc.Kind, 0)
	return ResourceNodeHandle[T]{raw: node.raw()}, nil
}

// ImportResource declares a caller owned resource outside of any pass and puts it on the board.
func ImportResource[T metadata.Concrete](fg *FrameGraph, name string, obj T) (ResourceNodeHandle[T], error) {
	if fg.compiled {
		return ResourceNodeHandle[T]{}, core.ErrGraphAlreadyCompiled
	}
	wrapped := metadata.Wrap(obj)
	if !wrapped.IsValid() {
		return ResourceNodeHandle[T]{}, fmt.Errorf("import %s: nil object: %w", name, core.ErrInvalidHandle)
	}
	res := newImportedResource(ResourceID(len(fg.resources)), name, wrapped)
	fg.resources = append(fg.resources, res)
	node := fg.addNode(res.ID, wrapped.Kind(), 0)
	fg.board.Put(name, node.raw())
	return ResourceNodeHandle[T]{raw: node.raw()}, nil
}

// AddPass declares a pass. setup declares the pass resources through the
// builder. The pass is committed when setup returns without error. A failed
// pass also fails the following Compile.
func (fg *FrameGraph) AddPass(name string, insertPoint uint32, setup func(b *PassNodeBuilder) error) error {
	if fg.compiled {
		return core.ErrGraphAlreadyCompiled
	}

	b := &PassNodeBuilder{
		graph: fg,
		pass:  newPassNode(PassID(len(fg.passes)), name, insertPoint),
	}
	err := setup(b)
	if err == nil {
		err = b.err
	}
	if err != nil {
		err := fmt.Errorf("frame graph %s: pass %s: %w", fg.label, name, err)
		core.LogError("%s", err.Error())
		fg.buildErr = errors.Join(fg.buildErr, err)
		return err
	}

	if b.pass.renderFn == nil {
		core.LogDebug("pass %s has no render function, it will record nothing", name)
		b.pass.renderFn = func(*RenderContext) error { return nil }
	}
	fg.passes = append(fg.passes, b.pass)
	return nil
}

func (fg *FrameGraph) addNode(resource ResourceID, kind metadata.ResourceKind, version uint32) *ResourceNode {
	node := &ResourceNode{
		ID:       NodeID(len(fg.nodes)),
		graph:    fg.serial,
		Resource: resource,
		Kind:     kind,
		version:  version,
	}
	fg.nodes = append(fg.nodes, node)
	return node
}

func (fg *FrameGraph) newVersion(resource ResourceID, writer PassID) *ResourceNode {
	res := fg.resources[resource]
	node := fg.addNode(resource, res.Desc.Kind, res.bumpVersion())
	node.writer = writer
	node.hasWriter = true
	return node
}

// FromBoard returns the handle published under name when it belongs to this
// graph. A persisted board may still hold handles of a previous frame, those
// are skipped.
func (fg *FrameGraph) FromBoard(name string) (RawResourceNodeHandle, bool) {
	raw, ok := fg.board.Get(name)
	if !ok {
		return RawResourceNodeHandle{}, false
	}
	if _, err := fg.lookupNode(raw); err != nil {
		core.LogDebug("frame graph %s: board entry %q is stale", fg.label, name)
		return RawResourceNodeHandle{}, false
	}
	return raw, true
}

func (fg *FrameGraph) lookupNode(raw RawResourceNodeHandle) (*ResourceNode, error) {
	if !raw.IsValid() || raw.graph != fg.serial || int(raw.Node) >= len(fg.nodes) {
		return nil, fmt.Errorf("%s: %w", raw, core.ErrInvalidHandle)
	}
	node := fg.nodes[raw.Node]
	if node.Resource != raw.Resource || node.Kind != raw.Kind {
		return nil, fmt.Errorf("%s: %w", raw, core.ErrInvalidHandle)
	}
	return node, nil
}

// Compile sorts the passes by insertion point, culls the unreferenced ones,
// computes resource lifetimes and emits one device pass per surviving pass.
func (fg *FrameGraph) Compile() error {
	if fg.compiled {
		return core.ErrGraphAlreadyCompiled
	}
	if fg.buildErr != nil {
		return fg.buildErr
	}
	fg.compiled = true

	sorted := slices.Clone(fg.passes)
	// passes are stored in declaration order, the stable sort keeps it for ties
	slices.SortStableFunc(sorted, func(a, b *PassNode) int {
		return cmp.Compare(a.InsertPoint, b.InsertPoint)
	})

	culled := fg.cull()

	alive := make([]*PassNode, 0, len(sorted))
	for _, p := range sorted {
		if !p.culled {
			alive = append(alive, p)
		}
	}

	fg.computeLifetimes(alive)

	fg.devicePasses = make([]*DevicePass, 0, len(alive))
	for _, p := range alive {
		fg.devicePasses = append(fg.devicePasses, newDevicePass(fg, p))
	}

	fg.stats = Stats{
		Declared:  len(fg.passes),
		Culled:    culled,
		Compiled:  len(fg.devicePasses),
		Resources: len(fg.resources),
	}
	core.LogDebug("frame graph %s compiled: %d passes, %d culled, %d resources", fg.label, fg.stats.Compiled, fg.stats.Culled, fg.stats.Resources)
	return nil
}

// computeLifetimes walks the surviving passes in execution order. Each used
// resource is requested by its first pass and released by its last one.
// Imported resources are only requested: the graph never releases them.
func (fg *FrameGraph) computeLifetimes(alive []*PassNode) {
	for pos, p := range alive {
		for _, id := range p.reads {
			fg.resources[fg.nodes[id].Resource].touch(pos, p.ID)
		}
		for _, id := range p.writes {
			fg.resources[fg.nodes[id].Resource].touch(pos, p.ID)
		}
	}

	for _, res := range fg.resources {
		if !res.lifetime.set {
			continue
		}
		first := alive[res.lifetime.firstPos]
		first.requests = append(first.requests, res.ID)
		if res.IsImported() {
			continue
		}
		last := alive[res.lifetime.lastPos]
		last.releases = append(last.releases, res.ID)
	}
}

// Reset drops every pass, resource and node. The board is left alone.
func (fg *FrameGraph) Reset() {
	fg.resources = nil
	fg.nodes = nil
	fg.passes = nil
	fg.devicePasses = nil
	fg.buildErr = nil
	fg.compiled = false
	fg.serial = graphSerial.Add(1)
}
