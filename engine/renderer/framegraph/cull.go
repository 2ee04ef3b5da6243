package framegraph

import "github.com/spaghettifunk/framegraph/engine/renderer/metadata"

// cull removes the passes whose output nobody consumes and returns how many
// were removed. A pass is a root, never culled, when it writes an imported
// resource or a swap chain image, when it is marked as side effect, or when
// it writes nothing at all. Removing a pass releases its reads, which can
// cascade to the passes producing them.
func (fg *FrameGraph) cull() int {
	for _, n := range fg.nodes {
		n.readers = 0
	}
	for _, p := range fg.passes {
		p.culled = false
		p.refCount = len(p.writes)
		for _, id := range p.reads {
			fg.nodes[id].readers++
		}
	}

	stack := make([]*ResourceNode, 0, len(fg.nodes))
	for _, n := range fg.nodes {
		if n.readers == 0 && n.hasWriter {
			stack = append(stack, n)
		}
	}

	culled := 0
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		writer := fg.passes[n.writer]
		writer.refCount--
		if writer.refCount > 0 || writer.culled || fg.isRootPass(writer) {
			continue
		}

		writer.culled = true
		culled++
		for _, id := range writer.reads {
			read := fg.nodes[id]
			read.readers--
			if read.readers == 0 && read.hasWriter {
				stack = append(stack, read)
			}
		}
	}
	return culled
}

func (fg *FrameGraph) isRootPass(p *PassNode) bool {
	if p.sideEffect || len(p.writes) == 0 {
		return true
	}
	for _, id := range p.writes {
		res := fg.resources[fg.nodes[id].Resource]
		if res.IsImported() || res.Desc.Kind == metadata.ResourceKindSwapChain {
			return true
		}
	}
	return false
}
