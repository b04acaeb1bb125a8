package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfansharif/scenery/internal/collection"
	"github.com/irfansharif/scenery/internal/config"
	"github.com/irfansharif/scenery/internal/instance"
	"github.com/irfansharif/scenery/internal/memory"
	"github.com/irfansharif/scenery/internal/mesh"
)

func newTestApp(t *testing.T, instances int) *App {
	t.Helper()
	cfg := config.Default()
	cfg.Scene.Seed = 1
	cfg.Scene.Instances = instances
	cfg.Scene.TransparentRatio = 0.5
	app, err := NewApp(cfg, NewScriptInterpreter(), nil)
	require.NoError(t, err)
	return app
}

func apply(t *testing.T, app *App, ops ...Op) {
	t.Helper()
	for _, op := range ops {
		require.NoError(t, app.Apply(Command{Op: op}), "op %s", op)
	}
}

// countingDrawer records draws per instance and implements every capability.
type countingDrawer struct {
	draws   map[instance.ID]int
	shaders []collection.ShaderID
}

func newCountingDrawer() *countingDrawer {
	return &countingDrawer{draws: make(map[instance.ID]int)}
}

func (d *countingDrawer) SetState(collection.RenderState) {}
func (d *countingDrawer) Draw(inst *instance.Instance)    { d.draws[inst.ID()]++ }
func (d *countingDrawer) Err() error                      { return nil }
func (d *countingDrawer) UseHighlight()                   {}
func (d *countingDrawer) UnuseHighlight()                 {}
func (d *countingDrawer) UnuseShader()                    {}
func (d *countingDrawer) UseShader(id collection.ShaderID) error {
	d.shaders = append(d.shaders, id)
	return nil
}

func (d *countingDrawer) context() collection.RenderContext {
	return collection.RenderContext{Drawer: d, Highlighter: d, Shaders: d, SelectionShaderUsed: true}
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t, 20)
	c := app.Collection
	assert.Equal(t, 20, c.Len())
	assert.Equal(t, []collection.ShaderID{FlatShader}, c.ShaderGroups())
	require.NoError(t, c.Validate())
	assert.Equal(t, c.BoundingBox().Center(), app.View.Target)
	assert.Zero(t, app.Current())
}

func TestNewAppDeterministic(t *testing.T) {
	a, b := newTestApp(t, 10), newTestApp(t, 10)
	assert.Equal(t, a.Collection.BoundingBox(), b.Collection.BoundingBox())
	assert.Equal(t, a.Collection.Stats().Transparent, b.Collection.Stats().Transparent)
}

func TestSelectNextPrev(t *testing.T) {
	app := newTestApp(t, 5)
	ids := app.Collection.IDs()

	apply(t, app, OpSelectNext)
	assert.Equal(t, ids[0], app.Current())
	assert.True(t, app.Collection.IsSelected(ids[0]))

	apply(t, app, OpSelectNext)
	assert.Equal(t, ids[1], app.Current())
	assert.Equal(t, 1, app.Collection.NumSelected())

	apply(t, app, OpSelectPrev, OpSelectPrev)
	assert.Equal(t, ids[4], app.Current(), "wraps around")
}

func TestSelectAllUnselectAll(t *testing.T) {
	app := newTestApp(t, 6)
	apply(t, app, OpSelectAll)
	assert.Equal(t, 6, app.Collection.NumSelected())
	apply(t, app, OpUnselectAll)
	assert.Zero(t, app.Collection.NumSelected())
}

func TestVisibilityCommands(t *testing.T) {
	app := newTestApp(t, 4)
	c := app.Collection

	require.ErrorIs(t, app.Apply(Command{Op: OpToggleVisibility}), errNoCurrent)

	apply(t, app, OpSelectNext, OpToggleVisibility)
	assert.Equal(t, 3, c.NumberOfDrawableObjects())
	apply(t, app, OpToggleShowState)
	assert.Equal(t, 1, c.NumberOfDrawableObjects())
	apply(t, app, OpToggleShowState, OpHideAll)
	assert.Zero(t, c.NumberOfDrawableObjects())
	apply(t, app, OpShowAll)
	assert.Equal(t, 4, c.NumberOfDrawableObjects())
}

func TestToggleTransparency(t *testing.T) {
	app := newTestApp(t, 30)
	c := app.Collection
	apply(t, app, OpSelectNext, OpUnselectAll)

	inst, ok := c.Instance(app.Current())
	require.True(t, ok)
	m := inst.Geometry().(*mesh.Mesh)
	before := m.IsTransparent()

	apply(t, app, OpToggleTransparency)
	assert.NotEqual(t, before, m.IsTransparent())
	want := collection.BucketNotTransparent
	if m.IsTransparent() {
		want = collection.BucketTransparent
	}
	b, _ := c.BucketOf(app.Current())
	assert.Equal(t, want, b)
	require.NoError(t, c.Validate(), "every instance sharing the mesh is reclassified")
}

func TestToggleFlat(t *testing.T) {
	app := newTestApp(t, 3)
	c := app.Collection
	apply(t, app, OpSelectNext)
	id := app.Current()

	apply(t, app, OpToggleFlat)
	assert.Equal(t, FlatShader, c.ShaderOf(id))
	assert.False(t, c.IsSelected(id))
	assert.Equal(t, 3, c.Len())

	// Shader-grouped instances cannot be selected individually.
	require.ErrorIs(t, c.Select(id), collection.ErrShaderBound)

	apply(t, app, OpToggleFlat)
	assert.Zero(t, c.ShaderOf(id))
	require.NoError(t, c.Validate())
}

func TestToggleFlatGroup(t *testing.T) {
	app := newTestApp(t, 3)
	c := app.Collection
	apply(t, app, OpSelectNext, OpToggleFlat)
	id := app.Current()

	apply(t, app, OpToggleFlatGroup)
	assert.Empty(t, c.ShaderGroups())
	assert.Zero(t, c.ShaderOf(id))

	apply(t, app, OpToggleFlatGroup)
	assert.Equal(t, []collection.ShaderID{FlatShader}, c.ShaderGroups())

	// Toggling an instance binds the group when needed.
	apply(t, app, OpToggleFlatGroup, OpToggleFlat)
	assert.Equal(t, FlatShader, c.ShaderOf(id))
}

func TestRemoveAdd(t *testing.T) {
	app := newTestApp(t, 3)
	require.ErrorIs(t, app.Apply(Command{Op: OpRemove}), errNoCurrent)

	apply(t, app, OpSelectNext, OpRemove)
	assert.Equal(t, 2, app.Collection.Len())
	require.Error(t, app.Apply(Command{Op: OpRemove}))

	apply(t, app, OpAdd)
	assert.Equal(t, 3, app.Collection.Len())
	assert.True(t, app.Collection.Contains(app.Current()))
}

func TestCyclePolygonMode(t *testing.T) {
	app := newTestApp(t, 2)
	apply(t, app, OpCyclePolygonMode)
	for _, inst := range app.Collection.Instances() {
		mode, uniform := inst.PolygonModes().Uniform()
		assert.True(t, uniform)
		assert.Equal(t, instance.Fill.Next(), mode)
	}
}

func TestViewCommands(t *testing.T) {
	app := newTestApp(t, 2)
	d := app.View.Distance
	require.NoError(t, app.Apply(Command{Op: OpZoom, Amount: 2}))
	assert.Less(t, app.View.Distance, d)

	require.NoError(t, app.Apply(Command{Op: OpOrbit, DY: 10}))
	assert.Equal(t, float32(maxPitch), app.View.Pitch)

	require.NoError(t, app.Apply(Command{Op: OpResize, Width: 300, Height: 200}))
	assert.Equal(t, 300, app.View.Width)

	app.View.Target.X = 1000
	apply(t, app, OpFit)
	assert.Equal(t, app.Collection.BoundingBox().Center(), app.View.Target)

	require.Error(t, app.Apply(Command{Op: Op(999)}))
}

func TestRenderDrawsEachDrawableOnce(t *testing.T) {
	app := newTestApp(t, 12)
	c := app.Collection
	apply(t, app, OpSelectNext, OpSelectNext, OpToggleFlat, OpSelectNext)
	ids := c.IDs()
	require.NoError(t, c.SetVisibility(ids[len(ids)-1], false))

	d := newCountingDrawer()
	require.NoError(t, app.Render(d.context()))

	assert.Equal(t, []collection.ShaderID{FlatShader}, d.shaders)
	assert.Len(t, d.draws, c.NumberOfDrawableObjects())
	for id, n := range d.draws {
		assert.Equal(t, 1, n, "instance %d", id)
	}
	assert.Zero(t, d.draws[ids[len(ids)-1]])
}

func TestRenderWithoutDrawer(t *testing.T) {
	app := newTestApp(t, 2)
	require.ErrorIs(t, app.Render(collection.RenderContext{}), collection.ErrNoDrawer)
}

func TestHandleEventScript(t *testing.T) {
	app := newTestApp(t, 4)
	script := NewScriptInterpreter(
		Command{Op: OpSelectAll},
		Command{Op: OpToggleVisibility}, // no current instance: reported, not fatal
		Command{Op: OpUnselectAll},
		Command{Op: OpAdd},
	)
	app.Interpreter = script
	for !script.Done() {
		app.HandleEvent(Event{Kind: EventTick})
	}
	assert.Equal(t, 5, app.Collection.Len())
	assert.Zero(t, app.Collection.NumSelected())
	assert.Empty(t, script.Interpret(Event{}))
}

func TestMaintain(t *testing.T) {
	app := newTestApp(t, 4)
	for i := 0; i < 2*validationInterval; i++ {
		require.NoError(t, app.Maintain())
	}
}

// hostBackend is a memory.Backend that stores nothing.
type hostBackend struct{ next uint32 }

func (b *hostBackend) CreateBuffer(int) (memory.Buffer, error) {
	b.next++
	return memory.Buffer{VAO: b.next, VBO: b.next}, nil
}
func (b *hostBackend) Upload(memory.Buffer, int, []float32) error             { return nil }
func (b *hostBackend) Copy(memory.Buffer, int, memory.Buffer, int, int) error { return nil }
func (b *hostBackend) Release(memory.Buffer)                                  {}

func TestMaintainReleasesUnusedMeshes(t *testing.T) {
	mc := memory.NewController(&hostBackend{})
	cfg := config.Default()
	cfg.Scene.Seed = 1
	cfg.Scene.Instances = 10
	app, err := NewApp(cfg, NewScriptInterpreter(), mc)
	require.NoError(t, err)

	for _, m := range app.Scene.Meshes {
		require.NoError(t, mc.Sync(m))
	}
	kept, ok := app.Collection.Instance(app.Collection.IDs()[0])
	require.True(t, ok)
	keptMesh := kept.Geometry().(*mesh.Mesh)
	for _, id := range app.Collection.IDs()[1:] {
		require.NoError(t, app.Collection.Remove(id))
	}

	for i := 0; i < compactionInterval; i++ {
		require.NoError(t, app.Maintain())
	}
	for _, m := range app.Scene.Meshes {
		assert.Equal(t, m == keptMesh, mc.Contains(m.ID()), "mesh %s", m.Name())
	}
	require.NoError(t, mc.ValidateIntegrity())
}
