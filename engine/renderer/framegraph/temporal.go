package framegraph

import (
	"errors"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

// TemporalResources keeps resources alive across frames under a string key,
// e.g. the previous frame color for temporal anti aliasing. Each frame they
// are imported into the new graph, so the graph never pools or releases them.
type TemporalResources struct {
	device    metadata.Device
	resources map[string]metadata.Resource
}

func NewTemporalResources(device metadata.Device) *TemporalResources {
	return &TemporalResources{
		device:    device,
		resources: make(map[string]metadata.Resource),
	}
}

func (tr *TemporalResources) Len() int {
	return len(tr.resources)
}

func (tr *TemporalResources) Keys() []string {
	keys := maps.Keys(tr.resources)
	slices.Sort(keys)
	return keys
}

// PutTemporal imports the resource stored under key into fg, creating it on
// first use. A key already holding another kind of resource is an error. A
// key whose descriptor changed, e.g. after a resize, gets a new object.
func PutTemporal[T metadata.Concrete](tr *TemporalResources, fg *FrameGraph, key string, desc metadata.Descriptor) (ResourceNodeHandle[T], error) {
	var zero ResourceNodeHandle[T]
	kind := metadata.KindOf[T]()
	if kind == metadata.ResourceKindSwapChain {
		return zero, fmt.Errorf("temporal %s: swap chain images cannot persist: %w", key, core.ErrResourceTypeMismatch)
	}
	if desc.Kind != kind {
		return zero, fmt.Errorf("temporal %s: descriptor is a %s: %w", key, desc.Kind, core.ErrResourceTypeMismatch)
	}

	res, ok := tr.resources[key]
	if ok && res.Kind() != kind {
		return zero, fmt.Errorf("temporal %s holds a %s: %w", key, res.Kind(), core.ErrResourceTypeMismatch)
	}
	if ok && res.Descriptor() != desc {
		core.LogDebug("temporal %s changed descriptor, recreating it", key)
		if err := tr.device.DestroyResource(res); err != nil {
			return zero, fmt.Errorf("temporal %s: %w", key, err)
		}
		delete(tr.resources, key)
		ok = false
	}
	if !ok {
		if err := desc.Validate(); err != nil {
			return zero, fmt.Errorf("temporal %s: %w", key, err)
		}
		created, err := tr.device.CreateResource(desc, "temporal-"+key)
		if err != nil {
			return zero, fmt.Errorf("temporal %s: %w", key, err)
		}
		tr.resources[key] = created
		res = created
	}

	obj, err := metadata.Borrow[T](res)
	if err != nil {
		return zero, fmt.Errorf("temporal %s: %w", key, err)
	}
	return ImportResource(fg, key, obj)
}

// Remove destroys the resource stored under key, if any.
func (tr *TemporalResources) Remove(key string) error {
	res, ok := tr.resources[key]
	if !ok {
		return nil
	}
	delete(tr.resources, key)
	return tr.device.DestroyResource(res)
}

// Destroy releases every temporal resource.
func (tr *TemporalResources) Destroy() error {
	var errs error
	for _, key := range tr.Keys() {
		if err := tr.Remove(key); err != nil {
			errs = errors.Join(errs, err)
		}
	}
	return errs
}
