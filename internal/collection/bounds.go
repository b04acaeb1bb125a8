package collection

import (
	"github.com/irfansharif/scenery/internal/geom"
)

// boundsCache memoizes the aggregate bounding box. It is either valid with a
// box or invalid; every membership, visibility or geometry change invalidates
// it and BoundingBox recomputes it on demand.
type boundsCache struct {
	box   geom.Box
	valid bool
}

func (bc *boundsCache) invalidate() {
	bc.valid = false
	bc.box = geom.Box{}
}

func (bc *boundsCache) set(box geom.Box) {
	bc.box = box
	bc.valid = true
}

// BoundingBox returns the box enclosing every instance whose visibility
// matches the show state. An empty collection yields an empty box. The result
// is a copy; the cache itself is never exposed.
func (c *Collection) BoundingBox() geom.Box {
	if c.bounds.valid && !c.instanceBoundsValid() {
		collectionLogger.Printf("bounding box: instance bounds changed, discarding cache")
		c.bounds.invalidate()
	}
	if c.bounds.valid {
		return c.bounds.box
	}

	box := geom.EmptyBox()
	for _, s := range c.slots {
		if s != nil && s.inst.IsVisible() == c.showState {
			box = box.Combine(s.inst.BoundingBox())
		}
	}
	c.bounds.set(box)
	return box
}

// BoundingBoxValid reports whether the next BoundingBox call is served from
// the cache.
func (c *Collection) BoundingBoxValid() bool {
	return c.bounds.valid && c.instanceBoundsValid()
}

// instanceBoundsValid reports whether every instance matching the show state
// still has a valid individual box.
func (c *Collection) instanceBoundsValid() bool {
	for _, s := range c.slots {
		if s != nil && s.inst.IsVisible() == c.showState && !s.inst.BoundingBoxValid() {
			return false
		}
	}
	return true
}
