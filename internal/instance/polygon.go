package instance

// Face selects which polygon faces a rasterization mode applies to.
type Face int

const (
	Front Face = iota
	Back
	FrontAndBack
)

func (f Face) String() string {
	switch f {
	case Front:
		return "front"
	case Back:
		return "back"
	case FrontAndBack:
		return "front-and-back"
	default:
		return "unknown"
	}
}

// PolygonMode is how a face is rasterized.
type PolygonMode int

const (
	Fill PolygonMode = iota
	Line
	Point
)

func (m PolygonMode) String() string {
	switch m {
	case Fill:
		return "fill"
	case Line:
		return "line"
	case Point:
		return "point"
	default:
		return "unknown"
	}
}

// Next cycles fill -> line -> point -> fill.
func (m PolygonMode) Next() PolygonMode {
	return (m + 1) % 3
}

// PolygonModes holds the per-face rasterization modes of an instance.
type PolygonModes struct {
	Front PolygonMode
	Back  PolygonMode
}

// DefaultPolygonModes fills both faces.
func DefaultPolygonModes() PolygonModes {
	return PolygonModes{Front: Fill, Back: Fill}
}

// With returns a copy of pm with face set to mode.
func (pm PolygonModes) With(face Face, mode PolygonMode) PolygonModes {
	switch face {
	case Front:
		pm.Front = mode
	case Back:
		pm.Back = mode
	case FrontAndBack:
		pm.Front, pm.Back = mode, mode
	}
	return pm
}

// Uniform reports whether both faces share a mode, and which.
func (pm PolygonModes) Uniform() (PolygonMode, bool) {
	return pm.Front, pm.Front == pm.Back
}
