// Package mesh provides triangle meshes, the concrete geometry placed by scene
// instances. A mesh carries a single RGBA colour; any alpha below 255 makes it
// transparent, which is how material edits move instances between the opaque
// and transparent draw passes.
package mesh

import (
	"fmt"
	"image/color"
	"sync/atomic"

	"github.com/irfansharif/scenery/internal/geom"
)

// FloatsPerVertex is the interleaved vertex layout: position (xyz) and normal
// (xyz).
const FloatsPerVertex = 6

// ID identifies a mesh for GPU storage.
type ID int

var lastID atomic.Int64

// Mesh is a non-indexed triangle list with per-vertex normals.
type Mesh struct {
	id        ID
	name      string
	positions []geom.Vec3
	normals   []geom.Vec3
	colour    color.RGBA

	bbox      geom.Box
	bboxValid bool
	version   int // bumped on every vertex change, drives GPU re-upload
}

// New returns a mesh over the given triangle list. positions and normals must
// have the same length, a multiple of three.
func New(name string, positions, normals []geom.Vec3, c color.RGBA) (*Mesh, error) {
	if len(positions)%3 != 0 {
		return nil, fmt.Errorf("mesh %q: %d positions is not a triangle list", name, len(positions))
	}
	if len(normals) != len(positions) {
		return nil, fmt.Errorf("mesh %q: %d normals for %d positions", name, len(normals), len(positions))
	}
	return &Mesh{
		id:        ID(lastID.Add(1)),
		name:      name,
		positions: positions,
		normals:   normals,
		colour:    c,
		version:   1,
	}, nil
}

func (m *Mesh) ID() ID              { return m.id }
func (m *Mesh) Name() string        { return m.name }
func (m *Mesh) Colour() color.RGBA  { return m.colour }
func (m *Mesh) VertexCount() int    { return len(m.positions) }
func (m *Mesh) Version() int        { return m.version }
func (m *Mesh) IsTransparent() bool { return m.colour.A < 255 }

// SetColour changes the mesh colour. Changing alpha across 255 flips the
// transparency of every instance placing this mesh.
func (m *Mesh) SetColour(c color.RGBA) {
	m.colour = c
}

// SetAlpha is SetColour with only the alpha channel changed.
func (m *Mesh) SetAlpha(a uint8) {
	m.colour.A = a
}

// SetTriangles replaces the vertex data and invalidates the bounding box.
func (m *Mesh) SetTriangles(positions, normals []geom.Vec3) error {
	if len(positions)%3 != 0 || len(normals) != len(positions) {
		return fmt.Errorf("mesh %q: invalid triangle list (%d positions, %d normals)", m.name, len(positions), len(normals))
	}
	m.positions = positions
	m.normals = normals
	m.bboxValid = false
	m.version++
	return nil
}

// BoundingBoxValid reports whether the cached box reflects the current
// vertices.
func (m *Mesh) BoundingBoxValid() bool {
	return m.bboxValid
}

// BoundingBoxVersion is the vertex version; bounds only change with vertices.
func (m *Mesh) BoundingBoxVersion() int {
	return m.version
}

// BoundingBox returns the model-space bounds, recomputing them when stale.
func (m *Mesh) BoundingBox() geom.Box {
	if !m.bboxValid {
		m.bbox = geom.BoxOf(m.positions...)
		m.bboxValid = true
	}
	return m.bbox
}

// Vertices returns the interleaved vertex data for upload (see
// FloatsPerVertex).
func (m *Mesh) Vertices() []float32 {
	vertices := make([]float32, 0, len(m.positions)*FloatsPerVertex)
	for i, p := range m.positions {
		n := m.normals[i]
		vertices = append(vertices,
			p.X, p.Y, p.Z, // position
			n.X, n.Y, n.Z, // normal
		)
	}
	return vertices
}
