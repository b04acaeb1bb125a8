package collection

import (
	"fmt"
	"sort"

	"github.com/irfansharif/scenery/internal/instance"
)

// Bucket names a partition class, for diagnostics.
type Bucket int

const (
	BucketNone Bucket = iota
	BucketNotTransparent
	BucketTransparent
	BucketSelected
	BucketShader
)

func (b Bucket) String() string {
	switch b {
	case BucketNone:
		return "none"
	case BucketNotTransparent:
		return "not-transparent"
	case BucketTransparent:
		return "transparent"
	case BucketSelected:
		return "selected"
	case BucketShader:
		return "shader"
	default:
		return "unknown"
	}
}

// inShaderGroup reports whether s is bound to a live shader sub-bucket.
func (c *Collection) inShaderGroup(s *slot) bool {
	if s.shader == 0 {
		return false
	}
	_, ok := c.shaderGroups[s.shader]
	return ok
}

// target returns the bucket s belongs in given its current flags: selection,
// then shader binding, then transparency.
func (c *Collection) target(s *slot) bucket {
	switch {
	case s.inst.IsSelected():
		return c.selected
	case c.inShaderGroup(s):
		return c.shaderGroups[s.shader]
	case s.inst.IsTransparent():
		return c.transparent
	default:
		return c.notTransparent
	}
}

// detach removes id from every bucket.
func (c *Collection) detach(id instance.ID) {
	delete(c.notTransparent, id)
	delete(c.transparent, id)
	delete(c.selected, id)
	for _, group := range c.shaderGroups {
		delete(group, id)
	}
}

// reclassify moves a registered id into the one bucket its flags call for.
func (c *Collection) reclassify(id instance.ID) {
	idx := c.index[id]
	c.detach(id)
	c.target(c.slots[idx])[id] = idx
}

// BindShader creates an empty sub-bucket for shader.
func (c *Collection) BindShader(shader ShaderID) error {
	if shader == 0 {
		return ErrInvalidShader
	}
	if _, ok := c.shaderGroups[shader]; ok {
		return fmt.Errorf("shader %d: %w", shader, ErrAlreadyBound)
	}
	c.shaderGroups[shader] = make(bucket)
	collectionLogger.Printf("bound shader %d", shader)
	return nil
}

// UnbindShader destroys the sub-bucket of shader, moving each of its
// instances back into selected, transparent or not-transparent per its
// current flags.
func (c *Collection) UnbindShader(shader ShaderID) error {
	if _, ok := c.shaderGroups[shader]; !ok || shader == 0 {
		return fmt.Errorf("shader %d: %w", shader, ErrNotFound)
	}
	delete(c.shaderGroups, shader)

	moved := 0
	for _, s := range c.slots {
		if s == nil || s.shader != shader {
			continue
		}
		s.shader = 0
		c.reclassify(s.inst.ID())
		moved++
	}
	collectionLogger.Printf("unbound shader %d (%d instances reclassified)", shader, moved)

	c.bounds.invalidate()
	c.assertInvariants("unbind-shader")
	return nil
}

// Select moves an instance into the selected bucket. Instances held by a
// shader sub-bucket cannot be selected individually.
func (c *Collection) Select(id instance.ID) error {
	s, ok := c.lookup(id)
	if !ok {
		return notFound(id)
	}
	if s.inst.IsSelected() {
		return fmt.Errorf("instance %d: %w", id, ErrAlreadySelected)
	}
	if c.inShaderGroup(s) {
		return fmt.Errorf("instance %d: %w", id, ErrShaderBound)
	}
	s.inst.Select()
	c.reclassify(id)
	c.assertInvariants("select")
	return nil
}

// Unselect moves a selected instance back to the bucket its transparency (or
// shader binding) calls for.
func (c *Collection) Unselect(id instance.ID) error {
	s, ok := c.lookup(id)
	if !ok {
		return notFound(id)
	}
	if !s.inst.IsSelected() {
		return fmt.Errorf("instance %d: %w", id, ErrNotSelected)
	}
	s.inst.Unselect()
	c.reclassify(id)
	c.assertInvariants("unselect")
	return nil
}

// SelectAll selects every instance matching the show state, shader-bound ones
// included. Everything else ends up unselected.
func (c *Collection) SelectAll() {
	c.UnselectAll()
	for _, s := range c.slots {
		if s == nil || s.inst.IsVisible() != c.showState {
			continue
		}
		s.inst.Select()
		c.reclassify(s.inst.ID())
	}
	c.assertInvariants("select-all")
}

// UnselectAll empties the selected bucket and reclassifies everything in a
// single sweep.
func (c *Collection) UnselectAll() {
	for _, idx := range c.selected {
		c.slots[idx].inst.Unselect()
	}
	c.selected = make(bucket)
	c.sweep(func(*slot) bool { return true })
	c.assertInvariants("unselect-all")
}

// UpdateInstancesTransparency refreshes the transparent/not-transparent split
// of every instance outside the selected bucket and the shader sub-buckets.
// Geometry transparency can change behind the collection's back (material
// edits); this is how it catches up.
func (c *Collection) UpdateInstancesTransparency() {
	c.sweep(func(s *slot) bool {
		return !s.inst.IsSelected() && !c.inShaderGroup(s)
	})
	c.assertInvariants("update-transparency")
}

// sweep reclassifies every registered instance accepted by filter.
func (c *Collection) sweep(filter func(*slot) bool) {
	for _, s := range c.slots {
		if s != nil && filter(s) {
			c.reclassify(s.inst.ID())
		}
	}
}

// IsSelected reports whether id is registered and selected.
func (c *Collection) IsSelected(id instance.ID) bool {
	s, ok := c.lookup(id)
	return ok && s.inst.IsSelected()
}

// NumSelected returns the size of the selected bucket.
func (c *Collection) NumSelected() int {
	return len(c.selected)
}

// ShaderGroups returns the bound shader ids in ascending order.
func (c *Collection) ShaderGroups() []ShaderID {
	ids := make([]ShaderID, 0, len(c.shaderGroups))
	for id := range c.shaderGroups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ShaderOf returns the shader id is bound to, zero if none.
func (c *Collection) ShaderOf(id instance.ID) ShaderID {
	s, ok := c.lookup(id)
	if !ok || !c.inShaderGroup(s) {
		return 0
	}
	return s.shader
}

// BucketOf reports which bucket currently holds id, and the shader for
// BucketShader. Unknown ids report BucketNone.
func (c *Collection) BucketOf(id instance.ID) (Bucket, ShaderID) {
	if _, ok := c.notTransparent[id]; ok {
		return BucketNotTransparent, 0
	}
	if _, ok := c.transparent[id]; ok {
		return BucketTransparent, 0
	}
	if _, ok := c.selected[id]; ok {
		return BucketSelected, 0
	}
	for shader, group := range c.shaderGroups {
		if _, ok := group[id]; ok {
			return BucketShader, shader
		}
	}
	return BucketNone, 0
}
