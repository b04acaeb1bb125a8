// Package instance defines the drawable occurrence of a piece of geometry in a
// scene: its identity, placement, visibility, selection, polygon rendering mode
// and a cached world-space bounding box.
//
// Instances are plain values. A collection owns them and hands out pointers
// ("handles") into its own storage; mutating visibility or selection through a
// handle bypasses the collection's bookkeeping, so callers go through the
// collection for those.
package instance

import (
	"fmt"
	"sync/atomic"

	"github.com/irfansharif/scenery/internal/geom"
)

// ID uniquely identifies an instance for its whole lifetime.
type ID uint32

var lastID atomic.Uint32

// NextID returns a process-unique instance identifier. Zero is never returned.
func NextID() ID {
	return ID(lastID.Add(1))
}

// Geometry is the capability surface an instance needs from the mesh it
// places. Instances never mutate their geometry.
type Geometry interface {
	// IsTransparent reports whether the geometry must be alpha-blended.
	IsTransparent() bool
	// BoundingBox returns the geometry's bounds in model space.
	BoundingBox() geom.Box
	// BoundingBoxValid reports whether the last returned box still holds.
	BoundingBoxValid() bool
	// BoundingBoxVersion changes whenever the model-space box may have
	// changed. Instances sharing the geometry compare it against the version
	// their cached box was computed from.
	BoundingBoxVersion() int
}

// Instance is one placed occurrence of geometry.
type Instance struct {
	id        ID
	geometry  Geometry
	transform geom.Mat4
	visible   bool
	selected  bool
	polygon   PolygonModes

	bbox        geom.Box
	bboxValid   bool
	bboxVersion int // geometry version bbox was computed from
}

// New returns a visible, unselected instance of g at the origin, with a fresh
// identifier.
func New(g Geometry) Instance {
	return NewWithID(NextID(), g)
}

// NewWithID is like New but uses the given identifier.
func NewWithID(id ID, g Geometry) Instance {
	return Instance{
		id:        id,
		geometry:  g,
		transform: geom.Identity(),
		visible:   true,
		polygon:   DefaultPolygonModes(),
	}
}

func (i *Instance) ID() ID                     { return i.id }
func (i *Instance) Geometry() Geometry         { return i.geometry }
func (i *Instance) Transform() geom.Mat4       { return i.transform }
func (i *Instance) IsVisible() bool            { return i.visible }
func (i *Instance) IsSelected() bool           { return i.selected }
func (i *Instance) PolygonModes() PolygonModes { return i.polygon }

// IsTransparent forwards to the geometry.
func (i *Instance) IsTransparent() bool {
	return i.geometry != nil && i.geometry.IsTransparent()
}

// SetVisibility sets the visibility flag.
func (i *Instance) SetVisibility(visible bool) { i.visible = visible }

// Select marks the instance selected.
func (i *Instance) Select() { i.selected = true }

// Unselect clears the selection flag.
func (i *Instance) Unselect() { i.selected = false }

// SetPolygonMode sets the rasterization mode of the given face(s).
func (i *Instance) SetPolygonMode(face Face, mode PolygonMode) {
	i.polygon = i.polygon.With(face, mode)
}

// SetTransform places the instance and invalidates its bounding box.
func (i *Instance) SetTransform(m geom.Mat4) {
	i.transform = m
	i.bboxValid = false
}

// BoundingBoxValid reports whether the cached world-space box is current: it
// must have been computed since the last transform change, from the
// geometry's current version, and the geometry's own box must still be valid.
func (i *Instance) BoundingBoxValid() bool {
	if !i.bboxValid {
		return false
	}
	if i.geometry == nil {
		return true
	}
	return i.geometry.BoundingBoxValid() && i.geometry.BoundingBoxVersion() == i.bboxVersion
}

// BoundingBox returns the world-space bounding box, recomputing it from the
// geometry when the cached one is stale. Instances without geometry are empty.
func (i *Instance) BoundingBox() geom.Box {
	if i.BoundingBoxValid() {
		return i.bbox
	}
	if i.geometry == nil {
		i.bbox = geom.EmptyBox()
	} else {
		i.bbox = i.geometry.BoundingBox().Transform(i.transform)
		i.bboxVersion = i.geometry.BoundingBoxVersion()
	}
	i.bboxValid = true
	return i.bbox
}

func (i *Instance) String() string {
	return fmt.Sprintf("instance#%d(visible=%t, selected=%t, transparent=%t)",
		i.id, i.visible, i.selected, i.IsTransparent())
}
