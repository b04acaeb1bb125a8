// Package app is the scene viewer: a collection of mesh instances, an orbit
// view and the commands that edit them, driven by an input interpreter.
package app

import (
	"errors"
	"fmt"
	"log"

	"github.com/irfansharif/scenery/internal/collection"
	"github.com/irfansharif/scenery/internal/config"
	"github.com/irfansharif/scenery/internal/instance"
	"github.com/irfansharif/scenery/internal/memory"
	"github.com/irfansharif/scenery/internal/mesh"
	"github.com/irfansharif/scenery/internal/palette"
)

// FlatShader is the shader group drawn with the unlit program.
const FlatShader collection.ShaderID = 1

const (
	compactionInterval = 60  // frames
	validationInterval = 100 // frames
)

var errNoCurrent = errors.New("no current instance")

// App encapsulates the main application state and logic.
type App struct {
	Collection  *collection.Collection
	Scene       *Scene
	View        *View
	Memory      *memory.Controller // nil when running without GPU storage
	Interpreter Interpreter

	current     instance.ID
	polygonMode instance.PolygonMode
	frame       int
}

// NewApp creates the application and populates the demo scene.
func NewApp(cfg config.Config, interpreter Interpreter, memController *memory.Controller) (*App, error) {
	scene, err := NewScene(cfg.Scene.Seed, cfg.Scene.TransparentRatio)
	if err != nil {
		return nil, fmt.Errorf("generating scene: %w", err)
	}
	c := collection.New(collection.WithTransparencyCheck(cfg.Render.TransparencyCheck))
	if err := c.BindShader(FlatShader); err != nil {
		return nil, err
	}
	if err := scene.Populate(c, cfg.Scene.Instances); err != nil {
		return nil, fmt.Errorf("populating scene: %w", err)
	}

	app := &App{
		Collection:  c,
		Scene:       scene,
		View:        NewView(cfg.Window.Width, cfg.Window.Height),
		Memory:      memController,
		Interpreter: interpreter,
		polygonMode: instance.Fill,
	}
	app.Fit()
	return app, nil
}

// Current returns the id of the instance commands act on, zero if none.
func (app *App) Current() instance.ID {
	return app.current
}

// HandleEvent interprets ev and applies the resulting commands. Command
// errors are reported, never fatal.
func (app *App) HandleEvent(ev Event) {
	for _, cmd := range app.Interpreter.Interpret(ev) {
		if err := app.Apply(cmd); err != nil {
			log.Printf("WARNING: %s: %v", cmd.Op, err)
		}
	}
}

// Apply executes one command.
func (app *App) Apply(cmd Command) error {
	c := app.Collection
	switch cmd.Op {
	case OpNone:
	case OpSelectNext, OpSelectPrev:
		id, ok := iterInstance(c.IDs(), app.current, cmd.Op == OpSelectNext)
		if !ok {
			return nil
		}
		app.current = id
		c.UnselectAll()
		return c.Select(id)
	case OpSelectAll:
		c.SelectAll()
	case OpUnselectAll:
		c.UnselectAll()
	case OpToggleVisibility:
		inst, err := app.currentInstance()
		if err != nil {
			return err
		}
		return c.SetVisibility(inst.ID(), !inst.IsVisible())
	case OpShowAll:
		c.ShowAll()
	case OpHideAll:
		c.HideAll()
	case OpToggleShowState:
		c.SetShowState(!c.ShowState())
	case OpToggleTransparency:
		return app.toggleTransparency()
	case OpCyclePolygonMode:
		app.polygonMode = app.polygonMode.Next()
		c.SetPolygonModeForAll(instance.FrontAndBack, app.polygonMode)
	case OpToggleFlat:
		return app.toggleFlat()
	case OpToggleFlatGroup:
		if containsShader(c.ShaderGroups(), FlatShader) {
			return c.UnbindShader(FlatShader)
		}
		return c.BindShader(FlatShader)
	case OpRemove:
		if app.current == 0 {
			return errNoCurrent
		}
		return c.Remove(app.current)
	case OpAdd:
		inst := app.Scene.NewInstance()
		if err := c.Add(inst, 0); err != nil {
			return err
		}
		app.current = inst.ID()
	case OpFit:
		app.Fit()
	case OpZoom:
		app.View.Zoom(float32(cmd.Amount))
	case OpOrbit:
		app.View.Orbit(float32(cmd.DX), float32(cmd.DY))
	case OpResize:
		app.View.SetViewport(cmd.Width, cmd.Height)
	default:
		return fmt.Errorf("unknown command %d", cmd.Op)
	}
	return nil
}

func (app *App) currentInstance() (*instance.Instance, error) {
	if app.current == 0 {
		return nil, errNoCurrent
	}
	inst, ok := app.Collection.Instance(app.current)
	if !ok {
		return nil, fmt.Errorf("instance %d: %w", app.current, collection.ErrNotFound)
	}
	return inst, nil
}

// toggleTransparency edits the material of the current instance's mesh, which
// every instance sharing the mesh sees.
func (app *App) toggleTransparency() error {
	inst, err := app.currentInstance()
	if err != nil {
		return err
	}
	m, ok := inst.Geometry().(*mesh.Mesh)
	if !ok {
		return fmt.Errorf("instance %d has no mesh", inst.ID())
	}
	if m.IsTransparent() {
		m.SetAlpha(255)
	} else {
		m.SetAlpha(palette.TransparentAlpha)
	}
	app.Collection.UpdateInstancesTransparency()
	return nil
}

// toggleFlat moves the current instance into the flat shader group, or back
// out of it. Group membership is decided on insertion, so the instance is
// re-added.
func (app *App) toggleFlat() error {
	inst, err := app.currentInstance()
	if err != nil {
		return err
	}
	c := app.Collection
	moved := *inst
	shader := FlatShader
	if c.ShaderOf(moved.ID()) == FlatShader {
		shader = 0
	} else if !containsShader(c.ShaderGroups(), FlatShader) {
		if err := c.BindShader(FlatShader); err != nil {
			return err
		}
	}
	if err := c.Remove(moved.ID()); err != nil {
		return err
	}
	return c.Add(moved, shader)
}

func containsShader(shaders []collection.ShaderID, shader collection.ShaderID) bool {
	for _, s := range shaders {
		if s == shader {
			return true
		}
	}
	return false
}

// Fit points the view at everything drawable.
func (app *App) Fit() {
	app.View.Fit(app.Collection.BoundingBox())
}

// Render draws the standard passes, every shader group, then the selected
// pass on top.
func (app *App) Render(rc collection.RenderContext) error {
	c := app.Collection
	var errs []error
	if err := c.Execute(collection.GroupStandard, rc); err != nil {
		errs = append(errs, err)
	}
	for _, shader := range c.ShaderGroups() {
		if err := c.ExecuteShaderGroup(shader, rc); err != nil {
			errs = append(errs, err)
		}
	}
	if err := c.Execute(collection.GroupSelected, rc); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// releaseUnusedMeshes frees the GPU storage of library meshes no instance
// draws anymore. They are uploaded again on their next draw.
func (app *App) releaseUnusedMeshes() error {
	used := make(map[mesh.ID]bool)
	for _, inst := range app.Collection.Instances() {
		if m, ok := inst.Geometry().(*mesh.Mesh); ok {
			used[m.ID()] = true
		}
	}
	for _, m := range app.Scene.Meshes {
		if used[m.ID()] || !app.Memory.Contains(m.ID()) {
			continue
		}
		if err := app.Memory.Remove(m.ID()); err != nil {
			return fmt.Errorf("releasing mesh %q: %w", m.Name(), err)
		}
	}
	return nil
}

// Maintain runs the periodic housekeeping of one frame: GPU memory
// compaction, and integrity checks of the collection and the memory
// controller.
func (app *App) Maintain() error {
	app.frame++
	if app.Memory != nil && app.frame%compactionInterval == 0 {
		if err := app.releaseUnusedMeshes(); err != nil {
			return err
		}
		if _, err := app.Memory.TryCompaction(); err != nil {
			return fmt.Errorf("compaction: %w", err)
		}
		app.Memory.ReleaseEmpty()
	}
	if app.frame%validationInterval == 0 {
		if err := app.Collection.Validate(); err != nil {
			return err
		}
		if app.Memory != nil {
			if err := app.Memory.ValidateIntegrity(); err != nil {
				return err
			}
		}
	}
	return nil
}
