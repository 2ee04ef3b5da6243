package core

import "fmt"

// IdentifierPool hands out small integer ids, reusing released slots first.
type IdentifierPool struct {
	owners []interface{}
}

func NewIdentifierPool(capacity int) *IdentifierPool {
	return &IdentifierPool{
		owners: make([]interface{}, 0, capacity),
	}
}

func (p *IdentifierPool) Acquire(owner interface{}) uint32 {
	for i := range p.owners {
		// Existing free spot. Take it.
		if p.owners[i] == nil {
			p.owners[i] = owner
			return uint32(i)
		}
	}

	// No free slots, the new id is the next index.
	p.owners = append(p.owners, owner)
	return uint32(len(p.owners) - 1)
}

func (p *IdentifierPool) Release(id uint32) error {
	if int(id) >= len(p.owners) {
		err := fmt.Errorf("identifier release: id '%d' out of range (max=%d). Nothing was done", id, len(p.owners))
		return err
	}
	if p.owners[id] == nil {
		return fmt.Errorf("identifier release: id '%d' is not in use", id)
	}

	p.owners[id] = nil
	return nil
}

func (p *IdentifierPool) Owner(id uint32) (interface{}, bool) {
	if int(id) >= len(p.owners) || p.owners[id] == nil {
		return nil, false
	}
	return p.owners[id], true
}
