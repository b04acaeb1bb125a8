package app

import (
	"fmt"
	"math/rand"

	"github.com/chewxy/math32"

	"github.com/irfansharif/scenery/internal/collection"
	"github.com/irfansharif/scenery/internal/geom"
	"github.com/irfansharif/scenery/internal/instance"
	"github.com/irfansharif/scenery/internal/mesh"
	"github.com/irfansharif/scenery/internal/palette"
)

const (
	libraryMeshes = 12  // meshes shared by the demo scene's instances
	gridSpacing   = 3.0 // world units between instance positions
)

// Scene is the demo content: a library of meshes shared by instances laid out
// on a grid.
type Scene struct {
	Meshes []*mesh.Mesh

	rng              *rand.Rand
	palette          palette.Palette
	transparentRatio float64
	placed           int // instances ever placed, for grid positions
}

// NewScene generates the mesh library.
func NewScene(seed int64, transparentRatio float64) (*Scene, error) {
	rng := rand.New(rand.NewSource(seed))
	s := &Scene{
		rng:              rng,
		palette:          palette.Shimmered(palette.RandomPalette(rng), 0, rng),
		transparentRatio: transparentRatio,
	}
	for i := 0; i < libraryMeshes; i++ {
		m, err := s.randomMesh(i)
		if err != nil {
			return nil, err
		}
		s.Meshes = append(s.Meshes, m)
	}
	return s, nil
}

func (s *Scene) randomMesh(i int) (*mesh.Mesh, error) {
	colour := palette.Pick(s.palette, s.transparentRatio, s.rng)
	if i%3 == 0 {
		size := geom.MakeVec3(0.5+s.rng.Float32(), 0.5+s.rng.Float32(), 0.5+s.rng.Float32())
		return mesh.Cuboid(fmt.Sprintf("cuboid-%d", i), size, colour)
	}
	sides := 3 + s.rng.Intn(6)
	outline := geom.RegularPolygon(sides, 0.5+0.5*s.rng.Float32())
	return mesh.Prism(fmt.Sprintf("prism%d-%d", sides, i), outline, 0.5+1.5*s.rng.Float32(), colour)
}

// NewInstance places a random library mesh at the next grid position, with a
// random rotation.
func (s *Scene) NewInstance() instance.Instance {
	m := s.Meshes[s.rng.Intn(len(s.Meshes))]
	inst := instance.New(m)

	// Rows of ten along x, growing in z. Prisms extrude along z, stand them up.
	col, row := s.placed%10, s.placed/10
	s.placed++
	pos := geom.MakeVec3(float32(col)*gridSpacing, 0, float32(row)*gridSpacing)
	rot := geom.RotateY(s.rng.Float32() * 2 * math32.Pi).Mul(geom.RotateX(-math32.Pi / 2))
	inst.SetTransform(geom.Translate(pos).Mul(rot))
	return inst
}

// Populate adds n new instances to c.
func (s *Scene) Populate(c *collection.Collection, n int) error {
	for i := 0; i < n; i++ {
		if err := c.Add(s.NewInstance(), 0); err != nil {
			return err
		}
	}
	return nil
}

// iterInstance returns the id after (or before) current in ascending id
// order, wrapping around. With no current id (or a removed one) it starts
// from the first (or last) id. Returns false for empty collections.
func iterInstance(ids []instance.ID, current instance.ID, next bool) (instance.ID, bool) {
	if len(ids) == 0 {
		return 0, false
	}
	pos := -1
	for i, id := range ids {
		if id == current {
			pos = i
			break
		}
	}
	if pos == -1 {
		if next {
			return ids[0], true
		}
		return ids[len(ids)-1], true
	}

	direction := 1
	if !next {
		direction = -1
	}
	return ids[(pos+direction+len(ids))%len(ids)], true
}
