// Package collection owns every drawable instance of a scene and partitions
// it into disjoint rendering classes so a renderer can draw them in the right
// order with the right GPU state.
//
// A Collection is made of:
//   - a registry, the single owner of instance values, stored in stable slots;
//   - a partition index of buckets (not-transparent, transparent, selected and
//     one sub-bucket per bound shader) mapping instance ids to slot indices;
//   - a bounding volume cache over the instances matching the show state;
//   - a draw sequencer issuing opaque, transparent and selected passes to an
//     external draw capability.
//
// Every instance is in exactly one bucket at all times. All membership changes
// go through reclassify, which detaches an id from every bucket before
// inserting it into the one its current flags call for.
//
// A Collection is not safe for concurrent use; mutate it and draw it from the
// same (render) goroutine.
package collection

import (
	"errors"
	"io"
	"log"
	"os"

	"github.com/irfansharif/scenery/internal/geom"
	"github.com/irfansharif/scenery/internal/instance"
)

var collectionLogger *log.Logger = log.New(io.Discard, "", 0)

// checkInvariants runs Validate after every mutation and panics on failure.
// Meant for development builds and tests only.
var checkInvariants = false

func init() {
	if os.Getenv("SCENERY_DEBUG_COLLECTION") == "1" {
		collectionLogger = log.New(os.Stdout, "[collection] ", log.Ltime|log.Lmsgprefix)
	}
	if os.Getenv("SCENERY_DEBUG_INVARIANTS") == "1" {
		checkInvariants = true
	}
}

var (
	// ErrDuplicate is returned when adding an instance whose id is already
	// registered.
	ErrDuplicate = errors.New("instance already in collection")
	// ErrNotFound is returned for unknown instance or shader ids.
	ErrNotFound = errors.New("not found")
	// ErrAlreadySelected is returned when selecting a selected instance.
	ErrAlreadySelected = errors.New("instance already selected")
	// ErrNotSelected is returned when unselecting an unselected instance.
	ErrNotSelected = errors.New("instance not selected")
	// ErrShaderBound is returned when selecting an instance that sits in a
	// shader sub-bucket; those are exempt from selection.
	ErrShaderBound = errors.New("instance is bound to a shader group")
	// ErrAlreadyBound is returned when binding a shader twice.
	ErrAlreadyBound = errors.New("shader already bound")
	// ErrInvalidShader is returned for the reserved shader id 0.
	ErrInvalidShader = errors.New("invalid shader id")
)

// ShaderID identifies a shader program. Zero means "no shader".
type ShaderID uint32

// slot is one registry entry: the owned instance and its shader binding. The
// binding survives temporary selection (SelectAll) and is only cleared by
// unbinding the shader.
type slot struct {
	inst   instance.Instance
	shader ShaderID
}

// bucket maps instance ids to slot indices in the registry.
type bucket map[instance.ID]int

// Collection is the render-bucket collection of one scene.
type Collection struct {
	// Registry.
	slots []*slot
	free  []int
	index map[instance.ID]int

	// Partition index.
	notTransparent bucket
	transparent    bucket
	selected       bucket
	shaderGroups   map[ShaderID]bucket

	bounds            boundsCache
	showState         bool
	checkTransparency bool

	passes map[Group]PassFunc
	stats  Stats
}

// Option configures a Collection.
type Option func(*Collection)

// WithShowState sets the initial show state (default true: visible instances
// are drawable).
func WithShowState(show bool) Option {
	return func(c *Collection) { c.showState = show }
}

// WithTransparencyCheck controls whether Execute refreshes the transparency
// classification before drawing (default true).
func WithTransparencyCheck(check bool) Option {
	return func(c *Collection) { c.checkTransparency = check }
}

// New returns an empty collection.
func New(options ...Option) *Collection {
	c := &Collection{
		index:             make(map[instance.ID]int),
		notTransparent:    make(bucket),
		transparent:       make(bucket),
		selected:          make(bucket),
		shaderGroups:      make(map[ShaderID]bucket),
		showState:         true,
		checkTransparency: true,
	}
	c.passes = map[Group]PassFunc{
		GroupStandard: (*Collection).standardPass,
		GroupSelected: (*Collection).selectedPass,
	}
	for _, option := range options {
		option(c)
	}
	return c
}

// ShowState returns the show-state filter: instances whose visibility equals
// it are drawn, counted and bounded.
func (c *Collection) ShowState() bool {
	return c.showState
}

// SetShowState changes the show-state filter.
func (c *Collection) SetShowState(show bool) {
	if c.showState == show {
		return
	}
	c.showState = show
	c.bounds.invalidate()
}

// TransparencyCheck reports whether Execute refreshes transparency first.
func (c *Collection) TransparencyCheck() bool {
	return c.checkTransparency
}

// SetTransparencyCheck enables or disables the transparency refresh done by
// Execute.
func (c *Collection) SetTransparencyCheck(check bool) {
	c.checkTransparency = check
}

// SetVisibility sets the visibility of one instance.
func (c *Collection) SetVisibility(id instance.ID, visible bool) error {
	s, ok := c.lookup(id)
	if !ok {
		return notFound(id)
	}
	s.inst.SetVisibility(visible)
	c.bounds.invalidate()
	return nil
}

// ShowAll makes every instance visible.
func (c *Collection) ShowAll() {
	c.setAllVisibility(true)
}

// HideAll hides every instance.
func (c *Collection) HideAll() {
	c.setAllVisibility(false)
}

func (c *Collection) setAllVisibility(visible bool) {
	for _, s := range c.slots {
		if s != nil {
			s.inst.SetVisibility(visible)
		}
	}
	c.bounds.invalidate()
}

// SetTransform places one instance.
func (c *Collection) SetTransform(id instance.ID, m geom.Mat4) error {
	s, ok := c.lookup(id)
	if !ok {
		return notFound(id)
	}
	s.inst.SetTransform(m)
	c.bounds.invalidate()
	return nil
}

// SetPolygonModeForAll sets the polygon mode of the given face(s) on every
// instance.
func (c *Collection) SetPolygonModeForAll(face instance.Face, mode instance.PolygonMode) {
	for _, s := range c.slots {
		if s != nil {
			s.inst.SetPolygonMode(face, mode)
		}
	}
}

// NumberOfDrawableObjects counts the instances matching the show state.
func (c *Collection) NumberOfDrawableObjects() int {
	n := 0
	for _, s := range c.slots {
		if s != nil && s.inst.IsVisible() == c.showState {
			n++
		}
	}
	return n
}

// assertInvariants is the development-build guard around mutations.
func (c *Collection) assertInvariants(op string) {
	if !checkInvariants {
		return
	}
	if err := c.Validate(); err != nil {
		panic("collection: invariant violated after " + op + ": " + err.Error())
	}
}
