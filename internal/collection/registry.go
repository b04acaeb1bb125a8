package collection

import (
	"fmt"
	"sort"

	"github.com/irfansharif/scenery/internal/instance"
)

func notFound(id instance.ID) error {
	return fmt.Errorf("instance %d: %w", id, ErrNotFound)
}

// Add stores a copy of inst and files it into exactly one bucket. When shader
// names a bound shader the instance joins that shader's sub-bucket (and its
// selection flag is dropped: shader-group membership wins over selection).
// An unbound shader id falls back to the standard classification.
func (c *Collection) Add(inst instance.Instance, shader ShaderID) error {
	id := inst.ID()
	if _, exists := c.index[id]; exists {
		collectionLogger.Printf("add: instance %d already in collection", id)
		return fmt.Errorf("instance %d: %w", id, ErrDuplicate)
	}

	s := &slot{inst: inst}
	if shader != 0 {
		if _, bound := c.shaderGroups[shader]; bound {
			s.shader = shader
			s.inst.Unselect()
		} else {
			collectionLogger.Printf("add: shader %d not bound, instance %d classified normally", shader, id)
		}
	}

	c.index[id] = c.allocSlot(s)
	c.reclassify(id)
	c.bounds.invalidate()
	c.assertInvariants("add")
	return nil
}

// Remove deletes an instance from its bucket and from the registry.
func (c *Collection) Remove(id instance.ID) error {
	idx, ok := c.index[id]
	if !ok {
		collectionLogger.Printf("remove: instance %d not found", id)
		return notFound(id)
	}

	c.detach(id)
	c.slots[idx] = nil
	c.free = append(c.free, idx)
	delete(c.index, id)

	c.bounds.invalidate()
	c.assertInvariants("remove")
	return nil
}

// Clear empties every bucket, releases every shader sub-bucket and the
// registry. Safe to call on an empty collection.
func (c *Collection) Clear() {
	c.slots = nil
	c.free = nil
	c.index = make(map[instance.ID]int)
	c.notTransparent = make(bucket)
	c.transparent = make(bucket)
	c.selected = make(bucket)
	c.shaderGroups = make(map[ShaderID]bucket)
	c.bounds.invalidate()
}

// Len returns the number of registered instances.
func (c *Collection) Len() int {
	return len(c.index)
}

// IsEmpty reports whether the registry holds no instance.
func (c *Collection) IsEmpty() bool {
	return len(c.index) == 0
}

// Contains reports whether id is registered.
func (c *Collection) Contains(id instance.ID) bool {
	_, ok := c.index[id]
	return ok
}

// Instance returns a handle to the registered instance. The handle stays valid
// until the instance is removed or the collection cleared. Use the collection
// to change visibility, selection or placement.
func (c *Collection) Instance(id instance.ID) (*instance.Instance, bool) {
	s, ok := c.lookup(id)
	if !ok {
		return nil, false
	}
	return &s.inst, true
}

// Instances returns handles to every registered instance, ordered by id.
func (c *Collection) Instances() []*instance.Instance {
	handles := make([]*instance.Instance, 0, len(c.index))
	for _, s := range c.slots {
		if s != nil {
			handles = append(handles, &s.inst)
		}
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i].ID() < handles[j].ID() })
	return handles
}

// IDs returns every registered id in ascending order.
func (c *Collection) IDs() []instance.ID {
	ids := make([]instance.ID, 0, len(c.index))
	for id := range c.index {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// lookup resolves an id through the registry.
func (c *Collection) lookup(id instance.ID) (*slot, bool) {
	idx, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.slots[idx], true
}

// allocSlot stores s in a free slot, growing the arena when none is left.
// Slot indices are stable for the lifetime of the entry.
func (c *Collection) allocSlot(s *slot) int {
	if n := len(c.free); n > 0 {
		idx := c.free[n-1]
		c.free = c.free[:n-1]
		c.slots[idx] = s
		return idx
	}
	c.slots = append(c.slots, s)
	return len(c.slots) - 1
}
