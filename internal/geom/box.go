package geom

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Box represents an axis-aligned 3D bounding box. The zero value is not
// empty (it is the degenerate box at the origin); use EmptyBox for the
// identity of Combine.
type Box struct {
	Min Vec3
	Max Vec3
}

// EmptyBox returns a box containing nothing. Combining it with any box b
// yields b.
func EmptyBox() Box {
	inf := math32.Inf(1)
	return Box{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

// MakeBox returns the smallest box containing both corners, in any order.
func MakeBox(a, b Vec3) Box {
	return Box{Min: a.Min(b), Max: a.Max(b)}
}

// BoxOf returns the smallest box containing all the given points.
func BoxOf(points ...Vec3) Box {
	b := EmptyBox()
	for _, p := range points {
		b = b.ExpandPoint(p)
	}
	return b
}

// IsEmpty reports whether the box contains no point (max < min on any axis).
func (b Box) IsEmpty() bool {
	return b.Max.X < b.Min.X || b.Max.Y < b.Min.Y || b.Max.Z < b.Min.Z
}

// ExpandPoint returns b grown to include p.
func (b Box) ExpandPoint(p Vec3) Box {
	return Box{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

// Combine returns the smallest box containing both b and o. Empty boxes are
// ignored.
func (b Box) Combine(o Box) Box {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return Box{Min: b.Min.Min(o.Min), Max: b.Max.Max(o.Max)}
}

// Center returns the box center. Undefined for empty boxes.
func (b Box) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the box extent along each axis, zero for empty boxes.
func (b Box) Size() Vec3 {
	if b.IsEmpty() {
		return Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Diagonal returns the length of the box diagonal, zero for empty boxes.
func (b Box) Diagonal() float32 {
	return b.Size().Length()
}

// Contains reports whether p lies inside or on the boundary of b.
func (b Box) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// Corners returns the eight corners of the box.
func (b Box) Corners() [8]Vec3 {
	return [8]Vec3{
		{b.Min.X, b.Min.Y, b.Min.Z},
		{b.Max.X, b.Min.Y, b.Min.Z},
		{b.Min.X, b.Max.Y, b.Min.Z},
		{b.Max.X, b.Max.Y, b.Min.Z},
		{b.Min.X, b.Min.Y, b.Max.Z},
		{b.Max.X, b.Min.Y, b.Max.Z},
		{b.Min.X, b.Max.Y, b.Max.Z},
		{b.Max.X, b.Max.Y, b.Max.Z},
	}
}

// Transform returns the axis-aligned box enclosing b after applying m.
func (b Box) Transform(m Mat4) Box {
	if b.IsEmpty() {
		return b
	}
	out := EmptyBox()
	for _, c := range b.Corners() {
		out = out.ExpandPoint(m.MulPoint(c))
	}
	return out
}

// Equal reports whether both boxes are empty or have identical corners.
func (b Box) Equal(o Box) bool {
	if b.IsEmpty() || o.IsEmpty() {
		return b.IsEmpty() && o.IsEmpty()
	}
	return b == o
}

func (b Box) String() string {
	if b.IsEmpty() {
		return "box(empty)"
	}
	return fmt.Sprintf("box[(%g,%g,%g)-(%g,%g,%g)]", b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
}
