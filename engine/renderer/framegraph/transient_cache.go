package framegraph

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/framegraph/engine/core"
	"github.com/spaghettifunk/framegraph/engine/renderer/metadata"
)

type pooledResource struct {
	res      metadata.Resource
	lastUsed uint64
}

// TransientResourceCache pools graph created objects across frames, keyed by
// their exact descriptor. Objects idle for more than maxIdleFrames frames are
// destroyed on EndFrame. A maxIdleFrames of 0 keeps them forever.
type TransientResourceCache struct {
	pools         map[metadata.Descriptor][]pooledResource
	frame         uint64
	maxIdleFrames uint64
	count         int
}

func NewTransientResourceCache(maxIdleFrames uint64) *TransientResourceCache {
	return &TransientResourceCache{
		pools:         make(map[metadata.Descriptor][]pooledResource),
		maxIdleFrames: maxIdleFrames,
	}
}

// Get pops the most recently pooled object with an equal descriptor.
func (c *TransientResourceCache) Get(desc metadata.Descriptor) (metadata.Resource, bool) {
	pool := c.pools[desc]
	if len(pool) == 0 {
		return metadata.Resource{}, false
	}
	last := pool[len(pool)-1]
	pool[len(pool)-1] = pooledResource{}
	if len(pool) == 1 {
		delete(c.pools, desc)
	} else {
		c.pools[desc] = pool[:len(pool)-1]
	}
	c.count--
	return last.res, true
}

// Insert pushes res onto the pool of desc. Pooling the same object twice is refused.
func (c *TransientResourceCache) Insert(desc metadata.Descriptor, res metadata.Resource) error {
	if !res.IsValid() {
		return fmt.Errorf("pooling an empty resource: %w", core.ErrInvalidHandle)
	}
	for _, p := range c.pools[desc] {
		if p.res.Same(res) {
			return fmt.Errorf("%s is already pooled: %w", res.Label(), core.ErrResourceAlreadyTaken)
		}
	}
	c.pools[desc] = append(c.pools[desc], pooledResource{res: res, lastUsed: c.frame})
	c.count++
	return nil
}

func (c *TransientResourceCache) Len() int {
	return c.count
}

// LenFor counts the pooled objects of one descriptor.
func (c *TransientResourceCache) LenFor(desc metadata.Descriptor) int {
	return len(c.pools[desc])
}

func (c *TransientResourceCache) Frame() uint64 {
	return c.frame
}

// EndFrame advances the frame counter and destroys every object that has not
// been used for more than maxIdleFrames frames. It returns how many were destroyed.
func (c *TransientResourceCache) EndFrame(device metadata.Device) (int, error) {
	c.frame++
	if c.maxIdleFrames == 0 {
		return 0, nil
	}

	var errs error
	evicted := 0
	for desc, pool := range c.pools {
		// pools are ordered by insertion, so the stale objects are in front
		keep := 0
		for keep < len(pool) && c.frame-pool[keep].lastUsed > c.maxIdleFrames {
			keep++
		}
		for _, p := range pool[:keep] {
			if err := device.DestroyResource(p.res); err != nil {
				errs = errors.Join(errs, fmt.Errorf("destroy pooled %s: %w", p.res.Label(), err))
			}
		}
		evicted += keep
		c.count -= keep
		if keep == len(pool) {
			delete(c.pools, desc)
			continue
		}
		c.pools[desc] = append(pool[:0], pool[keep:]...)
	}
	if evicted > 0 {
		core.LogDebug("transient cache evicted %d idle resources", evicted)
	}
	return evicted, errs
}

// Clear destroys every pooled object.
func (c *TransientResourceCache) Clear(device metadata.Device) error {
	var errs error
	for _, pool := range c.pools {
		for _, p := range pool {
			if err := device.DestroyResource(p.res); err != nil {
				errs = errors.Join(errs, err)
			}
		}
	}
	clear(c.pools)
	c.count = 0
	return errs
}
