package framegraph

import "github.com/spaghettifunk/framegraph/engine/renderer/metadata"

// ResourceNode is one immutable version of a virtual resource.
type ResourceNode struct {
	ID       NodeID
	graph    uint64
	Resource ResourceID
	Kind     metadata.ResourceKind

	version   uint32
	writer    PassID
	hasWriter bool
	// passes reading this node, recomputed by the cull stage
	readers int
}

func (n *ResourceNode) Version() uint32 {
	return n.version
}

// Writer is the pass that produced this version. Versions coming straight
// from Create or Import have no writer.
func (n *ResourceNode) Writer() (PassID, bool) {
	return n.writer, n.hasWriter
}

func (n *ResourceNode) raw() RawResourceNodeHandle {
	return RawResourceNodeHandle{Node: n.ID, Resource: n.Resource, Kind: n.Kind, graph: n.graph}
}
