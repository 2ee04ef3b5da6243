package framegraph

import "github.com/spaghettifunk/framegraph/engine/renderer/metadata"

type resourceState uint8

const (
	// The graph creates the concrete object from the descriptor.
	resourceStateSetup resourceState = iota
	// The caller owns the concrete object, the graph only wraps it.
	resourceStateImported
)

type lifetime struct {
	set       bool
	firstPos  int
	lastPos   int
	firstPass PassID
	lastPass  PassID
}

// VirtualResource is the graph-time record of one logical resource.
type VirtualResource struct {
	ID   ResourceID
	Name string
	Desc metadata.Descriptor

	state    resourceState
	imported metadata.Resource
	version  uint32
	lifetime lifetime
}

func newSetupResource(id ResourceID, name string, desc metadata.Descriptor) *VirtualResource {
	return &VirtualResource{
		ID:    id,
		Name:  name,
		Desc:  desc,
		state: resourceStateSetup,
	}
}

func newImportedResource(id ResourceID, name string, res metadata.Resource) *VirtualResource {
	return &VirtualResource{
		ID:       id,
		Name:     name,
		Desc:     res.Descriptor(),
		state:    resourceStateImported,
		imported: res,
	}
}

func (r *VirtualResource) IsImported() bool {
	return r.state == resourceStateImported
}

// Version is bumped once per write.
func (r *VirtualResource) Version() uint32 {
	return r.version
}

// FirstPass is the first surviving pass using the resource, after compilation.
func (r *VirtualResource) FirstPass() (PassID, bool) {
	return r.lifetime.firstPass, r.lifetime.set
}

// LastPass is the last surviving pass using the resource, after compilation.
func (r *VirtualResource) LastPass() (PassID, bool) {
	return r.lifetime.lastPass, r.lifetime.set
}

func (r *VirtualResource) bumpVersion() uint32 {
	r.version++
	return r.version
}

// touch widens the lifetime to include the pass at sorted position pos.
func (r *VirtualResource) touch(pos int, pass PassID) {
	if !r.lifetime.set {
		r.lifetime = lifetime{
			set:       true,
			firstPos:  pos,
			lastPos:   pos,
			firstPass: pass,
			lastPass:  pass,
		}
		return
	}
	if pos > r.lifetime.lastPos {
		r.lifetime.lastPos = pos
		r.lifetime.lastPass = pass
	}
}
