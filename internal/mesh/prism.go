package mesh

import (
	"fmt"
	"image/color"

	"github.com/rclancey/earcut"

	"github.com/irfansharif/scenery/internal/geom"
)

// earClip triangulates a simple polygon using the earcut algorithm. It returns
// a slice of triangles, each wound counter-clockwise.
func earClip(polygon []geom.Point) ([][3]geom.Point, error) {
	if len(polygon) < 3 {
		return nil, fmt.Errorf("degenerate polygon (%d vertices < 3)", len(polygon))
	}

	// Flat coordinate array required by earcut: [x0, y0, x1, y1, ..., xn, yn].
	coords := make([]float64, len(polygon)*2)
	for i, p := range polygon {
		coords[i*2] = float64(p.X)
		coords[i*2+1] = float64(p.Y)
	}

	indices, err := earcut.Earcut(coords, nil /* holeIndices */, 2 /* dim */)
	if err != nil {
		return nil, fmt.Errorf("triangulation failed for %d-vertex polygon: %w", len(polygon), err)
	}
	if len(indices)%3 != 0 {
		return nil, fmt.Errorf("invalid triangle count (indices: %d, not divisible by 3)", len(indices))
	}

	triangles := make([][3]geom.Point, len(indices)/3)
	for t := range triangles {
		a, b, c := polygon[indices[t*3]], polygon[indices[t*3+1]], polygon[indices[t*3+2]]
		if cross(a, b, c) < 0 {
			b, c = c, b
		}
		triangles[t] = [3]geom.Point{a, b, c}
	}
	return triangles, nil
}

// cross returns the z component of (b-a) x (c-a); positive for
// counter-clockwise triangles.
func cross(a, b, c geom.Point) float32 {
	ab, ac := b.Sub(a), c.Sub(a)
	return ab.X*ac.Y - ab.Y*ac.X
}

// signedArea is positive for counter-clockwise outlines.
func signedArea(outline []geom.Point) float32 {
	var area float32
	for i := range outline {
		p, q := outline[i], outline[(i+1)%len(outline)]
		area += p.X*q.Y - q.X*p.Y
	}
	return area / 2
}

// Prism extrudes a simple polygon outline (in the xy-plane) along +z by
// height. The caps are triangulated with earcut; the sides are flat-shaded
// quads.
func Prism(name string, outline []geom.Point, height float32, c color.RGBA) (*Mesh, error) {
	if height <= 0 {
		return nil, fmt.Errorf("prism %q: non-positive height %v", name, height)
	}
	if len(outline) < 3 {
		return nil, fmt.Errorf("prism %q: degenerate outline (%d vertices < 3)", name, len(outline))
	}
	area := signedArea(outline)
	if area == 0 {
		return nil, fmt.Errorf("prism %q: outline has zero area", name)
	}
	if area < 0 {
		// Normalize to counter-clockwise so side normals point outward.
		reversed := make([]geom.Point, len(outline))
		for i, p := range outline {
			reversed[len(outline)-1-i] = p
		}
		outline = reversed
	}

	triangles, err := earClip(outline)
	if err != nil {
		return nil, fmt.Errorf("prism %q: %w", name, err)
	}

	var positions, normals []geom.Vec3
	emit := func(n geom.Vec3, vs ...geom.Vec3) {
		for _, v := range vs {
			positions = append(positions, v)
			normals = append(normals, n)
		}
	}
	lift := func(p geom.Point, z float32) geom.Vec3 { return geom.MakeVec3(p.X, p.Y, z) }

	// Caps: the top faces +z keeping the winding, the bottom faces -z with
	// the winding flipped.
	for _, tri := range triangles {
		emit(geom.MakeVec3(0, 0, 1), lift(tri[0], height), lift(tri[1], height), lift(tri[2], height))
		emit(geom.MakeVec3(0, 0, -1), lift(tri[0], 0), lift(tri[2], 0), lift(tri[1], 0))
	}

	// Sides.
	for i := range outline {
		p, q := outline[i], outline[(i+1)%len(outline)]
		edge := q.Sub(p)
		n := geom.MakeVec3(edge.Y, -edge.X, 0).Normalize()
		p0, q0, p1, q1 := lift(p, 0), lift(q, 0), lift(p, height), lift(q, height)
		emit(n, p0, q0, q1)
		emit(n, p0, q1, p1)
	}

	return New(name, positions, normals, c)
}

// Cuboid returns an axis-aligned box mesh with its minimum corner at the
// origin.
func Cuboid(name string, size geom.Vec3, c color.RGBA) (*Mesh, error) {
	outline := []geom.Point{
		geom.MakePoint(0, 0),
		geom.MakePoint(size.X, 0),
		geom.MakePoint(size.X, size.Y),
		geom.MakePoint(0, size.Y),
	}
	return Prism(name, outline, size.Z, c)
}
