// Package palette provides colour generation for scene meshes. It implements
// HSV-based palette generation with shimmer effects, and parsing of the hex
// colours used in configuration.
package palette

import (
	"fmt"
	"image/color"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
)

// TransparentAlpha is the alpha given to meshes picked as transparent.
const TransparentAlpha = 110

// Palette holds five RGBA colors.
type Palette [5]color.RGBA

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// hsb converts hue in [0,100), saturation and brightness in [0,100] to an
// opaque colour.
func hsb(h, s, b float64) color.RGBA {
	c := colorful.Hsv(h*3.6, clamp(s/100.0, 0, 1), clamp(b/100.0, 0, 1))
	red, green, blue := c.RGB255()
	return color.RGBA{R: red, G: green, B: blue, A: 255}
}

// RandomPalette returns a palette using HSV generation: one dark base colour,
// one light neutral and three accents.
func RandomPalette(r *rand.Rand) Palette {
	p := Palette{}
	p[0] = hsb(r.Float64()*100, r.Float64()*100, r.Float64()*30+20)
	p[1] = hsb(r.Float64()*100, r.Float64()*10, 90)
	for i := 2; i < 5; i++ {
		p[i] = hsb(r.Float64()*100, r.Float64()*50+25, r.Float64()*50+40)
	}
	return p
}

// Shimmered applies a brightness jitter to accent colors 2..4 when shimmer >= 0.
func Shimmered(p Palette, shimmer int, r *rand.Rand) Palette {
	if shimmer < 0 {
		return p
	}

	out := p
	for i := 2; i < 5; i++ {
		c := colorful.Color{R: float64(out[i].R) / 255, G: float64(out[i].G) / 255, B: float64(out[i].B) / 255}
		h, s, v := c.Hsv()
		v = clamp(v+(r.Float64()-0.5)*0.2, 0, 1)
		red, green, blue := colorful.Hsv(h, s, v).RGB255()
		out[i] = color.RGBA{R: red, G: green, B: blue, A: out[i].A}
	}
	return out
}

// Pick draws a mesh colour from p. With probability transparentRatio the
// colour is made transparent.
func Pick(p Palette, transparentRatio float64, r *rand.Rand) color.RGBA {
	c := p[r.Intn(len(p))]
	if r.Float64() < transparentRatio {
		c.A = TransparentAlpha
	}
	return c
}

// ParseHex parses "#rrggbb" or "#rrggbbaa".
func ParseHex(s string) (color.RGBA, error) {
	alpha := uint8(255)
	if len(s) == 9 {
		var a uint8
		if _, err := fmt.Sscanf(s[7:], "%02x", &a); err != nil {
			return color.RGBA{}, fmt.Errorf("colour %q: bad alpha: %w", s, err)
		}
		alpha = a
		s = s[:7]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("colour %q: %w", s, err)
	}
	red, green, blue := c.RGB255()
	return color.RGBA{R: red, G: green, B: blue, A: alpha}, nil
}

// Floats converts c to normalized RGBA components, as shader uniforms expect.
func Floats(c color.RGBA) [4]float32 {
	return [4]float32{
		float32(c.R) / 255, float32(c.G) / 255,
		float32(c.B) / 255, float32(c.A) / 255,
	}
}
