// Package geom provides the geometric primitives shared by the scene packages:
// - 2D points, used for polygon outlines before extrusion
// - 3D vectors
// - Axis-aligned bounding boxes and their combination
// - 4x4 transforms in OpenGL (column-major) layout
package geom

import (
	"github.com/chewxy/math32"
)

// Pi is π as a float32.
const Pi = math32.Pi

// Point represents a 2D point or vector in Cartesian coordinates.
type Point struct {
	X float32
	Y float32
}

// Vec3 represents a 3D point or vector.
type Vec3 struct {
	X float32
	Y float32
	Z float32
}

func MakePoint(x, y float32) Point  { return Point{X: x, Y: y} }
func MakeVec3(x, y, z float32) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (p Point) Add(q Point) Point     { return Point{p.X + q.X, p.Y + q.Y} }
func (p Point) Sub(q Point) Point     { return Point{p.X - q.X, p.Y - q.Y} }
func (p Point) Scale(s float32) Point { return Point{p.X * s, p.Y * s} }

func (v Vec3) Add(u Vec3) Vec3      { return Vec3{v.X + u.X, v.Y + u.Y, v.Z + u.Z} }
func (v Vec3) Sub(u Vec3) Vec3      { return Vec3{v.X - u.X, v.Y - u.Y, v.Z - u.Z} }
func (v Vec3) Scale(s float32) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(u Vec3) float32   { return v.X*u.X + v.Y*u.Y + v.Z*u.Z }
func (v Vec3) Length() float32      { return math32.Sqrt(v.Dot(v)) }
func (v Vec3) Min(u Vec3) Vec3 {
	return Vec3{math32.Min(v.X, u.X), math32.Min(v.Y, u.Y), math32.Min(v.Z, u.Z)}
}
func (v Vec3) Max(u Vec3) Vec3 {
	return Vec3{math32.Max(v.X, u.X), math32.Max(v.Y, u.Y), math32.Max(v.Z, u.Z)}
}
func (v Vec3) Cross(u Vec3) Vec3 {
	return Vec3{v.Y*u.Z - v.Z*u.Y, v.Z*u.X - v.X*u.Z, v.X*u.Y - v.Y*u.X}
}

// Normalize returns the unit vector in the direction of v. The zero vector is
// returned unchanged.
func (v Vec3) Normalize() Vec3 {
	l := v.Length()
	if l == 0 {
		return v
	}
	return v.Scale(1 / l)
}

// RegularPolygon returns the n corners of a regular polygon centered on the
// origin, counter-clockwise starting on the positive x-axis.
func RegularPolygon(n int, radius float32) []Point {
	if n < 3 {
		return nil
	}
	points := make([]Point, n)
	for i := range points {
		a := 2 * math32.Pi * float32(i) / float32(n)
		points[i] = MakePoint(radius*math32.Cos(a), radius*math32.Sin(a))
	}
	return points
}
