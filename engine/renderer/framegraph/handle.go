package framegraph

import (
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// ResourceID indexes a virtual resource inside one frame graph.
type ResourceID uint32

// NodeID indexes a resource node (one version of a virtual resource).
type NodeID uint32

// PassID indexes a pass node in declaration order.
type PassID uint32

// RawResourceNodeHandle is the untyped form of a resource node handle, the
// form stored on the resource board.
type RawResourceNodeHandle struct {
	Node     NodeID
	Resource ResourceID
	Kind     metadata.ResourceKind
	// serial of the graph that issued the handle
	graph uint64
}

func (h RawResourceNodeHandle) IsValid() bool {
	return h.Kind != metadata.ResourceKindUnknown
}

func (h RawResourceNodeHandle) String() string {
	return fmt.Sprintf("%s#%d@node%d", h.Kind, h.Resource, h.Node)
}

// ResourceNodeHandle points at one version of a virtual resource holding a T.
type ResourceNodeHandle[T metadata.Concrete] struct {
	raw RawResourceNodeHandle
}

func (h ResourceNodeHandle[T]) Raw() RawResourceNodeHandle {
	return h.raw
}

func (h ResourceNodeHandle[T]) IsValid() bool {
	return h.raw.IsValid()
}

// Typed converts a raw handle back to a typed one. It fails when the kinds differ.
func Typed[T metadata.Concrete](raw RawResourceNodeHandle) (ResourceNodeHandle[T], bool) {
	if !raw.IsValid() || raw.Kind != metadata.KindOf[T]() {
		return ResourceNodeHandle[T]{}, false
	}
	return ResourceNodeHandle[T]{raw: raw}, true
}

// ReadRef is the read capability a pass receives from Read. It only unlocks
// ReadResource inside the render closure.
type ReadRef[T metadata.Concrete] struct {
	handle ResourceNodeHandle[T]
}

func (r ReadRef[T]) Handle() ResourceNodeHandle[T] {
	return r.handle
}

func (r ReadRef[T]) IsValid() bool {
	return r.handle.IsValid()
}

// WriteRef is the write capability a pass receives from Write. Its handle is
// the new version produced by the write.
type WriteRef[T metadata.Concrete] struct {
	handle ResourceNodeHandle[T]
}

func (r WriteRef[T]) Handle() ResourceNodeHandle[T] {
	return r.handle
}

func (r WriteRef[T]) IsValid() bool {
	return r.handle.IsValid()
}
