// Package render is the OpenGL draw capability of the viewer.
//
// A Renderer implements the collection's Drawer, Highlighter and ShaderUser
// interfaces:
//  1. Instance geometry (meshes) is uploaded lazily through the memory
//     controller, and re-uploaded whenever a mesh's vertices change.
//  2. Each draw sets the model matrix, mesh colour and polygon mode, then
//     issues a DrawArrays over the mesh's slot.
//  3. GL errors are collected and reported through Err once per pass.
package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"

	"github.com/irfansharif/scenery/internal/collection"
	"github.com/irfansharif/scenery/internal/geom"
	"github.com/irfansharif/scenery/internal/instance"
	"github.com/irfansharif/scenery/internal/memory"
	"github.com/irfansharif/scenery/internal/mesh"
	"github.com/irfansharif/scenery/internal/palette"
)

var renderLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("SCENERY_DEBUG_RENDER") == "1" {
		renderLogger = log.New(os.Stdout, "[render] ", log.Ltime|log.Lmsgprefix)
	}
}

// ErrUnsupportedGeometry is recorded for instances whose geometry is not a
// mesh.
var ErrUnsupportedGeometry = errors.New("geometry is not a mesh")

var (
	_ collection.Drawer      = (*Renderer)(nil)
	_ collection.Highlighter = (*Renderer)(nil)
	_ collection.ShaderUser  = (*Renderer)(nil)
)

// GLError is an OpenGL error code.
type GLError uint32

func (e GLError) Error() string {
	switch uint32(e) {
	case gl.INVALID_ENUM:
		return "GL_INVALID_ENUM"
	case gl.INVALID_VALUE:
		return "GL_INVALID_VALUE"
	case gl.INVALID_OPERATION:
		return "GL_INVALID_OPERATION"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "GL_INVALID_FRAMEBUFFER_OPERATION"
	case gl.OUT_OF_MEMORY:
		return "GL_OUT_OF_MEMORY"
	default:
		return fmt.Sprintf("GL error 0x%x", uint32(e))
	}
}

// Stats tracks rendering performance metrics.
type Stats struct {
	Draws          int     // draws issued in the last frame
	LastFrameUs    float64 // time between BeginFrame and EndFrame, in microseconds
	UploadFailures int
}

// Renderer draws instances with OpenGL. It requires a current context on the
// calling goroutine.
type Renderer struct {
	memController *memory.Controller

	lit       *program
	highlight *program
	shaders   map[collection.ShaderID]*program
	current   *program

	view, projection geom.Mat4
	highlightColour  [4]float32

	err        error
	frameStart time.Time
	stats      Stats
}

// NewRenderer compiles the built-in programs.
func NewRenderer(memController *memory.Controller, highlight color.RGBA) (*Renderer, error) {
	lit, err := newProgram(litFragmentShaderSource)
	if err != nil {
		return nil, fmt.Errorf("lit program: %w", err)
	}
	hl, err := newProgram(highlightFragmentShaderSource)
	if err != nil {
		lit.delete()
		return nil, fmt.Errorf("highlight program: %w", err)
	}
	r := &Renderer{
		memController:   memController,
		lit:             lit,
		highlight:       hl,
		shaders:         make(map[collection.ShaderID]*program),
		view:            geom.Identity(),
		projection:      geom.Identity(),
		highlightColour: palette.Floats(highlight),
	}
	r.current = lit
	return r, nil
}

// RegisterShader compiles fragmentSource as the program of shader group id.
func (r *Renderer) RegisterShader(id collection.ShaderID, fragmentSource string) error {
	if _, ok := r.shaders[id]; ok {
		return fmt.Errorf("shader %d already registered", id)
	}
	p, err := newProgram(fragmentSource)
	if err != nil {
		return fmt.Errorf("shader %d: %w", id, err)
	}
	r.shaders[id] = p
	renderLogger.Printf("registered shader %d (program %d)", id, p.id)
	return nil
}

// SetCamera sets the view and projection matrices used by every program.
func (r *Renderer) SetCamera(view, projection geom.Mat4) {
	r.view, r.projection = view, projection
}

// SetViewport resizes the GL viewport.
func (r *Renderer) SetViewport(width, height int) {
	gl.Viewport(0, 0, int32(width), int32(height))
}

// BeginFrame clears the framebuffer and activates the lit program.
func (r *Renderer) BeginFrame(background color.RGBA) {
	r.frameStart = time.Now()
	r.stats.Draws = 0
	bg := palette.Floats(background)
	gl.ClearColor(bg[0], bg[1], bg[2], 1)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	r.activate(r.lit)
}

// EndFrame records frame timing.
func (r *Renderer) EndFrame() {
	gl.BindVertexArray(0)
	r.stats.LastFrameUs = float64(time.Since(r.frameStart).Microseconds())
}

func (r *Renderer) activate(p *program) {
	r.current = p
	p.use(r.view, r.projection)
	if p == r.highlight {
		gl.Uniform4fv(p.uHighlight, 1, &r.highlightColour[0])
	}
}

// SetState applies depth and blend state.
func (r *Renderer) SetState(s collection.RenderState) {
	if s.DepthTest {
		gl.Enable(gl.DEPTH_TEST)
	} else {
		gl.Disable(gl.DEPTH_TEST)
	}
	gl.DepthMask(s.DepthWrite)
	if s.Blend {
		gl.Enable(gl.BLEND)
		gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	} else {
		gl.Disable(gl.BLEND)
	}
}

// Draw draws one instance with the current program.
func (r *Renderer) Draw(inst *instance.Instance) {
	m, ok := inst.Geometry().(*mesh.Mesh)
	if !ok {
		r.record(fmt.Errorf("instance %d: %w", inst.ID(), ErrUnsupportedGeometry))
		return
	}
	if err := r.memController.Sync(m); err != nil {
		r.stats.UploadFailures++
		r.record(fmt.Errorf("instance %d: uploading mesh %q: %w", inst.ID(), m.Name(), err))
		return
	}
	loc, ok := r.memController.Locate(m.ID())
	if !ok {
		r.record(fmt.Errorf("instance %d: mesh %q has no storage", inst.ID(), m.Name()))
		return
	}

	model := inst.Transform()
	colour := palette.Floats(m.Colour())
	gl.UniformMatrix4fv(r.current.uModel, 1, false, &model[0])
	gl.Uniform4fv(r.current.uColour, 1, &colour[0])
	gl.PolygonMode(gl.FRONT_AND_BACK, glPolygonMode(inst.PolygonModes()))

	gl.BindVertexArray(loc.Buffer.VAO)
	gl.DrawArrays(gl.TRIANGLES, loc.First, loc.Count)
	r.stats.Draws++
}

// glPolygonMode maps the instance's modes to GL. Core profiles only support
// FRONT_AND_BACK, so mixed modes fall back to the front face's.
func glPolygonMode(modes instance.PolygonModes) uint32 {
	mode, uniform := modes.Uniform()
	if !uniform {
		mode = modes.Front
	}
	switch mode {
	case instance.Line:
		return gl.LINE
	case instance.Point:
		return gl.POINT
	default:
		return gl.FILL
	}
}

func (r *Renderer) record(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Err returns the first error recorded since the last call, draining the GL
// error queue.
func (r *Renderer) Err() error {
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		r.record(GLError(code))
	}
	err := r.err
	r.err = nil
	return err
}

// UseHighlight switches to the selection highlight program.
func (r *Renderer) UseHighlight() {
	r.activate(r.highlight)
}

// UnuseHighlight switches back to the lit program.
func (r *Renderer) UnuseHighlight() {
	r.activate(r.lit)
}

// UseShader switches to the program registered for id.
func (r *Renderer) UseShader(id collection.ShaderID) error {
	p, ok := r.shaders[id]
	if !ok {
		return fmt.Errorf("no program registered for shader %d", id)
	}
	r.activate(p)
	return nil
}

// UnuseShader switches back to the lit program.
func (r *Renderer) UnuseShader() {
	r.activate(r.lit)
}

// Stats returns the current performance statistics.
func (r *Renderer) Stats() Stats {
	return r.stats
}

// Cleanup deletes every program.
func (r *Renderer) Cleanup() {
	r.lit.delete()
	r.highlight.delete()
	for _, p := range r.shaders {
		p.delete()
	}
}
