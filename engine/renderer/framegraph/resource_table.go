package framegraph

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

type tableEntry struct {
	res      metadata.Resource
	imported bool
}

type pendingPresent struct {
	name  string
	image *metadata.SwapChainImage
}

// ResourceTable maps the virtual resources of the executing graph to their
// concrete objects. It lives for one Execute.
type ResourceTable struct {
	resources map[ResourceID]tableEntry
	device    metadata.Device
	cache     *TransientResourceCache
	metrics   *core.Metrics

	// released swap chain images, presented once their commands are submitted
	presents []pendingPresent
}

func NewResourceTable(device metadata.Device, cache *TransientResourceCache, metrics *core.Metrics) *ResourceTable {
	return &ResourceTable{
		resources: make(map[ResourceID]tableEntry),
		device:    device,
		cache:     cache,
		metrics:   metrics,
	}
}

func (t *ResourceTable) Len() int {
	return len(t.resources)
}

func (t *ResourceTable) Contains(id ResourceID) bool {
	_, ok := t.resources[id]
	return ok
}

func (t *ResourceTable) Get(id ResourceID) (metadata.Resource, bool) {
	e, ok := t.resources[id]
	return e.res, ok
}

// Request materializes vr. Imported resources are wrapped as they are, the
// others come from the transient pool or, on a miss, from the device.
func (t *ResourceTable) Request(vr *VirtualResource) error {
	if _, ok := t.resources[vr.ID]; ok {
		return fmt.Errorf("request %s: %w", vr.Name, core.ErrResourceAlreadyTaken)
	}

	if vr.IsImported() {
		t.resources[vr.ID] = tableEntry{res: vr.imported, imported: true}
		return nil
	}

	res, hit := metadata.Resource{}, false
	if t.cache != nil {
		res, hit = t.cache.Get(vr.Desc)
	}
	t.metrics.CacheLookup(hit)
	if !hit {
		if t.device == nil {
			return fmt.Errorf("request %s: no device to create it", vr.Name)
		}
		var err error
		label := fmt.Sprintf("%s-%s", vr.Name, uuid.NewString())
		res, err = t.device.CreateResource(vr.Desc, label)
		if err != nil {
			return fmt.Errorf("request %s: %w", vr.Name, err)
		}
	}

	if res.Kind() != vr.Desc.Kind {
		err := fmt.Errorf("request %s: got a %s for a %s: %w", vr.Name, res.Kind(), vr.Desc.Kind, core.ErrResourceTypeMismatch)
		if t.device != nil {
			return errors.Join(err, t.device.DestroyResource(res))
		}
		return err
	}
	t.resources[vr.ID] = tableEntry{res: res}
	return nil
}

// Release removes vr from the table. Graph created objects go back to the
// transient pool, swap chain images wait for PresentReleased instead.
func (t *ResourceTable) Release(vr *VirtualResource) error {
	e, ok := t.resources[vr.ID]
	if !ok {
		return fmt.Errorf("release %s: %w", vr.Name, core.ErrResourceUninitialized)
	}
	delete(t.resources, vr.ID)
	return t.giveBack(vr.Name, e)
}

// ReleaseAll empties the table. Imported objects are dropped, graph created
// leftovers are released as Release does and every pending swap chain image
// is presented.
func (t *ResourceTable) ReleaseAll() error {
	ids := maps.Keys(t.resources)
	slices.Sort(ids)

	var errs error
	for _, id := range ids {
		e := t.resources[id]
		delete(t.resources, id)
		if err := t.giveBack(e.res.Label(), e); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errors.Join(errs, t.PresentReleased())
}

// PendingPresents is the number of released swap chain images not yet presented.
func (t *ResourceTable) PendingPresents() int {
	return len(t.presents)
}

// PresentReleased presents the swap chain images released so far. It must
// run after the commands writing them were submitted.
func (t *ResourceTable) PresentReleased() error {
	var errs error
	for _, p := range t.presents {
		if err := p.image.Present(); err != nil {
			errs = errors.Join(errs, fmt.Errorf("present %s: %w", p.name, err))
		}
	}
	t.presents = t.presents[:0]
	return errs
}

func (t *ResourceTable) giveBack(name string, e tableEntry) error {
	if e.imported {
		return nil
	}
	if e.res.Kind() == metadata.ResourceKindSwapChain {
		img, err := metadata.Borrow[*metadata.SwapChainImage](e.res)
		if err != nil {
			return err
		}
		t.presents = append(t.presents, pendingPresent{name: name, image: img})
		return nil
	}
	if t.cache == nil {
		if t.device == nil {
			return nil
		}
		return t.device.DestroyResource(e.res)
	}
	if err := t.cache.Insert(e.res.Descriptor(), e.res); err != nil {
		return fmt.Errorf("release %s: %w", name, err)
	}
	return nil
}

func lookup[T metadata.Concrete](t *ResourceTable, vr *VirtualResource) (T, error) {
	var zero T
	e, ok := t.resources[vr.ID]
	if !ok {
		return zero, fmt.Errorf("%s: %w", vr.Name, core.ErrResourceNotFound)
	}
	obj, err := metadata.Borrow[T](e.res)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", vr.Name, err)
	}
	return obj, nil
}
