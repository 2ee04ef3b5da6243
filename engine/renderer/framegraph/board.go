package framegraph

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ResourceBoard lets passes find a resource by name instead of threading
// handles through the call stack. The last Put for a name wins.
type ResourceBoard struct {
	handles map[string]RawResourceNodeHandle
}

func NewResourceBoard() *ResourceBoard {
	return &ResourceBoard{
		handles: make(map[string]RawResourceNodeHandle),
	}
}

func (b *ResourceBoard) Put(name string, handle RawResourceNodeHandle) {
	b.handles[name] = handle
}

func (b *ResourceBoard) Get(name string) (RawResourceNodeHandle, bool) {
	h, ok := b.handles[name]
	return h, ok
}

func (b *ResourceBoard) Len() int {
	return len(b.handles)
}

// Names returns the board keys sorted.
func (b *ResourceBoard) Names() []string {
	names := maps.Keys(b.handles)
	slices.Sort(names)
	return names
}

func (b *ResourceBoard) Clear() {
	clear(b.handles)
}
