package collection

import (
	"errors"
	"fmt"
	"log"

	"github.com/irfansharif/scenery/internal/instance"
)

var (
	// ErrUnknownGroup is returned by Execute for groups without a pass.
	ErrUnknownGroup = errors.New("no draw pass for group")
	// ErrNoDrawer is returned when drawing without a draw capability.
	ErrNoDrawer = errors.New("render context has no drawer")
)

// Group selects which passes Execute runs.
type Group int

const (
	// GroupStandard runs the opaque pass, then the transparent pass.
	GroupStandard Group = 0
	// GroupSelected runs the selected pass.
	GroupSelected Group = 1
)

// RenderState is the fixed-function state a pass draws with.
type RenderState struct {
	DepthTest  bool
	DepthWrite bool
	Blend      bool // standard alpha compositing (src-alpha, one-minus-src-alpha)
}

var (
	// OpaqueState is used for the opaque and selected passes, and restored
	// after the transparent pass.
	OpaqueState = RenderState{DepthTest: true, DepthWrite: true}
	// TransparentState keeps depth testing against opaque geometry but stops
	// writing depth.
	TransparentState = RenderState{DepthTest: true, Blend: true}
)

// Drawer is the draw capability the sequencer issues draws to.
type Drawer interface {
	// SetState applies fixed-function state for the following draws.
	SetState(RenderState)
	// Draw executes the draw of one instance.
	Draw(*instance.Instance)
	// Err returns and clears the error recorded since the last call, if any.
	Err() error
}

// Highlighter switches the global selection highlight shader on and off.
type Highlighter interface {
	UseHighlight()
	UnuseHighlight()
}

// ShaderUser activates the program of a shader group.
type ShaderUser interface {
	UseShader(ShaderID) error
	UnuseShader()
}

// RenderContext carries everything the sequencer needs for one call. It is
// passed explicitly instead of being read from process-wide state.
type RenderContext struct {
	Drawer      Drawer
	Highlighter Highlighter // optional
	Shaders     ShaderUser  // optional

	// SelectionShaderUsed wraps the selected pass in the highlight shader.
	SelectionShaderUsed bool
}

// PassFunc draws one group.
type PassFunc func(*Collection, RenderContext)

// RegisterPass installs (or replaces) the pass run for group g.
func (c *Collection) RegisterPass(g Group, pass PassFunc) {
	c.passes[g] = pass
}

// Execute draws group g. Empty collections draw nothing. When the
// transparency check is on, the transparent/not-transparent split is
// refreshed first.
func (c *Collection) Execute(g Group, rc RenderContext) error {
	if rc.Drawer == nil {
		return ErrNoDrawer
	}
	pass, ok := c.passes[g]
	if !ok {
		return fmt.Errorf("group %d: %w", g, ErrUnknownGroup)
	}
	if c.IsEmpty() {
		return nil
	}
	if c.checkTransparency {
		c.UpdateInstancesTransparency()
	}
	pass(c, rc)
	return nil
}

// ExecuteShaderGroup draws the sub-bucket of shader with its program active.
// Shader groups draw with OpaqueState, without blending, even for transparent
// geometry.
func (c *Collection) ExecuteShaderGroup(shader ShaderID, rc RenderContext) error {
	if rc.Drawer == nil {
		return ErrNoDrawer
	}
	group, ok := c.shaderGroups[shader]
	if !ok {
		return fmt.Errorf("shader %d: %w", shader, ErrNotFound)
	}
	if len(group) == 0 {
		return nil
	}
	if rc.Shaders != nil {
		if err := rc.Shaders.UseShader(shader); err != nil {
			return fmt.Errorf("shader %d: %w", shader, err)
		}
		defer rc.Shaders.UnuseShader()
	}
	c.runPass("shader", rc, func() {
		rc.Drawer.SetState(OpaqueState)
		c.drawBucket(group, rc.Drawer)
	})
	return nil
}

// standardPass draws the not-transparent bucket, then the transparent one.
// Draw order inside a bucket is unspecified; transparent instances are not
// depth sorted.
func (c *Collection) standardPass(rc RenderContext) {
	if len(c.notTransparent) > 0 {
		c.runPass("opaque", rc, func() {
			rc.Drawer.SetState(OpaqueState)
			c.drawBucket(c.notTransparent, rc.Drawer)
		})
	}
	if len(c.transparent) > 0 {
		c.runPass("transparent", rc, func() {
			rc.Drawer.SetState(TransparentState)
			c.drawBucket(c.transparent, rc.Drawer)
			rc.Drawer.SetState(OpaqueState)
		})
	}
}

// selectedPass draws the selected bucket, under the highlight shader when it
// is in use.
func (c *Collection) selectedPass(rc RenderContext) {
	if len(c.selected) == 0 {
		return
	}
	highlight := rc.SelectionShaderUsed && rc.Highlighter != nil
	c.runPass("selected", rc, func() {
		if highlight {
			rc.Highlighter.UseHighlight()
		}
		rc.Drawer.SetState(OpaqueState)
		c.drawBucket(c.selected, rc.Drawer)
		if highlight {
			rc.Highlighter.UnuseHighlight()
		}
	})
}

// drawBucket draws every instance of b matching the show state.
func (c *Collection) drawBucket(b bucket, d Drawer) {
	for _, idx := range b {
		inst := &c.slots[idx].inst
		if inst.IsVisible() != c.showState {
			continue
		}
		d.Draw(inst)
		c.stats.DrawCalls++
	}
}

// runPass runs draw and then checks the draw capability's error state. Errors
// are reported, never fatal: the remaining passes still run.
func (c *Collection) runPass(name string, rc RenderContext, draw func()) {
	draw()
	if err := rc.Drawer.Err(); err != nil {
		c.stats.DrawErrors++
		c.stats.LastDrawError = err
		log.Printf("WARNING: %s pass: draw error: %v", name, err)
	}
}
