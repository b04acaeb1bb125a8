package app

import (
	"github.com/chewxy/math32"

	"github.com/irfansharif/scenery/internal/geom"
)

const (
	minDistance = 0.5
	maxDistance = 1000.0
	maxPitch    = 1.5 // radians, just short of straight up/down
	zoomFactor  = 0.9 // distance multiplier per zoom step
)

// View is an orbit camera around a target point.
type View struct {
	Target        geom.Vec3
	Distance      float32
	Yaw, Pitch    float32 // radians
	FovY          float32 // radians
	Width, Height int
}

// NewView creates a view with default values.
func NewView(width, height int) *View {
	v := &View{Width: width, Height: height}
	v.Reset()
	return v
}

// Reset returns to the default camera around the origin.
func (v *View) Reset() {
	v.Target = geom.Vec3{}
	v.Distance = 10
	v.Yaw = geom.Pi / 4
	v.Pitch = 0.5
	v.FovY = geom.Pi / 4
}

// SetDistance sets the distance to the target, clamping to valid range.
func (v *View) SetDistance(d float32) {
	if d < minDistance {
		v.Distance = minDistance
	} else if d > maxDistance {
		v.Distance = maxDistance
	} else {
		v.Distance = d
	}
}

// Zoom moves towards (positive steps) or away from the target.
func (v *View) Zoom(steps float32) {
	v.SetDistance(v.Distance * math32.Pow(zoomFactor, steps))
}

// Orbit rotates around the target.
func (v *View) Orbit(dyaw, dpitch float32) {
	v.Yaw = math32.Mod(v.Yaw+dyaw, 2*geom.Pi)
	v.Pitch += dpitch
	if v.Pitch > maxPitch {
		v.Pitch = maxPitch
	} else if v.Pitch < -maxPitch {
		v.Pitch = -maxPitch
	}
}

// SetViewport updates the viewport dimensions.
func (v *View) SetViewport(width, height int) {
	v.Width = width
	v.Height = height
}

// Fit centres the box and moves back until its bounding sphere fills the
// view. Empty boxes reset the view.
func (v *View) Fit(box geom.Box) {
	if box.IsEmpty() {
		v.Reset()
		return
	}
	v.Target = box.Center()
	radius := box.Diagonal() / 2
	v.SetDistance(radius / math32.Sin(v.FovY/2))
}

// Eye returns the camera position.
func (v *View) Eye() geom.Vec3 {
	cp := math32.Cos(v.Pitch)
	dir := geom.MakeVec3(cp*math32.Sin(v.Yaw), math32.Sin(v.Pitch), cp*math32.Cos(v.Yaw))
	return v.Target.Add(dir.Scale(v.Distance))
}

// ViewMatrix returns the world-to-camera transform.
func (v *View) ViewMatrix() geom.Mat4 {
	return geom.LookAt(v.Eye(), v.Target, geom.MakeVec3(0, 1, 0))
}

// ProjectionMatrix returns the perspective projection for the viewport.
func (v *View) ProjectionMatrix() geom.Mat4 {
	aspect := float32(1)
	if v.Height > 0 {
		aspect = float32(v.Width) / float32(v.Height)
	}
	near := v.Distance / 100
	if near < 0.01 {
		near = 0.01
	}
	return geom.Perspective(v.FovY, aspect, near, v.Distance*10+100)
}
