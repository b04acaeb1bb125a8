package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyBoxIsCombineIdentity(t *testing.T) {
	b := MakeBox(MakeVec3(-1, 0, 2), MakeVec3(3, 4, 5))
	assert.True(t, EmptyBox().IsEmpty())
	assert.Equal(t, b, EmptyBox().Combine(b))
	assert.Equal(t, b, b.Combine(EmptyBox()))
	assert.True(t, EmptyBox().Combine(EmptyBox()).IsEmpty())
}

func TestMakeBoxOrdersCorners(t *testing.T) {
	b := MakeBox(MakeVec3(3, 4, 5), MakeVec3(-1, 0, 2))
	assert.Equal(t, MakeVec3(-1, 0, 2), b.Min)
	assert.Equal(t, MakeVec3(3, 4, 5), b.Max)
	assert.False(t, b.IsEmpty())
}

func TestBoxCombine(t *testing.T) {
	a := MakeBox(MakeVec3(0, 0, 0), MakeVec3(1, 1, 1))
	b := MakeBox(MakeVec3(2, -1, 0), MakeVec3(3, 0.5, 4))
	c := a.Combine(b)
	assert.Equal(t, MakeVec3(0, -1, 0), c.Min)
	assert.Equal(t, MakeVec3(3, 1, 4), c.Max)
	assert.Equal(t, c, b.Combine(a))
}

func TestBoxSizeAndCenter(t *testing.T) {
	b := MakeBox(MakeVec3(-2, -2, -2), MakeVec3(2, 4, 6))
	assert.Equal(t, MakeVec3(4, 6, 8), b.Size())
	assert.Equal(t, MakeVec3(0, 1, 2), b.Center())
	assert.Equal(t, Vec3{}, EmptyBox().Size())
	assert.Zero(t, EmptyBox().Diagonal())
	assert.InDelta(t, 3.0, MakeBox(Vec3{}, MakeVec3(1, 2, 2)).Diagonal(), 1e-6)
}

func TestBoxEqual(t *testing.T) {
	assert.True(t, EmptyBox().Equal(BoxOf()))
	assert.False(t, EmptyBox().Equal(Box{}))
	b := BoxOf(MakeVec3(1, 2, 3), MakeVec3(-1, 0, 0))
	assert.True(t, b.Equal(MakeBox(MakeVec3(-1, 0, 0), MakeVec3(1, 2, 3))))
}

func TestBoxTransform(t *testing.T) {
	b := MakeBox(MakeVec3(0, 0, 0), MakeVec3(1, 1, 1))

	moved := b.Transform(Translate(MakeVec3(10, 0, -5)))
	assert.Equal(t, MakeVec3(10, 0, -5), moved.Min)
	assert.Equal(t, MakeVec3(11, 1, -4), moved.Max)

	scaled := b.Transform(Scale(MakeVec3(2, 3, 4)))
	assert.Equal(t, MakeVec3(2, 3, 4), scaled.Max)

	assert.True(t, EmptyBox().Transform(Translate(MakeVec3(1, 1, 1))).IsEmpty())
}

func TestMat4Compose(t *testing.T) {
	m := Translate(MakeVec3(1, 2, 3)).Mul(Scale(MakeVec3(2, 2, 2)))
	p := m.MulPoint(MakeVec3(1, 1, 1))
	assert.Equal(t, MakeVec3(3, 4, 5), p)

	assert.Equal(t, Identity(), Identity().Mul(Identity()))
}

func TestRotateY(t *testing.T) {
	p := RotateY(Pi / 2).MulPoint(MakeVec3(1, 0, 0))
	assert.InDelta(t, 0, p.X, 1e-6)
	assert.InDelta(t, 0, p.Y, 1e-6)
	assert.InDelta(t, -1, p.Z, 1e-6)
}

func TestLookAtMapsEyeToOrigin(t *testing.T) {
	eye := MakeVec3(0, 0, 5)
	view := LookAt(eye, Vec3{}, MakeVec3(0, 1, 0))
	p := view.MulPoint(eye)
	assert.InDelta(t, 0, p.Length(), 1e-5)

	// The target sits straight ahead, on the negative z-axis.
	q := view.MulPoint(Vec3{})
	assert.InDelta(t, -5, q.Z, 1e-5)
}

func TestRegularPolygon(t *testing.T) {
	require.Nil(t, RegularPolygon(2, 1))
	square := RegularPolygon(4, 2)
	require.Len(t, square, 4)
	assert.InDelta(t, 2, square[0].X, 1e-6)
	assert.InDelta(t, 2, square[1].Y, 1e-6)
}
