package collection

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfansharif/scenery/internal/instance"
)

// recorder implements Drawer, Highlighter and ShaderUser, logging every call.
type recorder struct {
	calls   []string
	errs    []error // returned by successive Err calls
	useErr  error
	drawnBy map[instance.ID]int
}

func newRecorder() *recorder {
	return &recorder{drawnBy: make(map[instance.ID]int)}
}

func (r *recorder) SetState(s RenderState) {
	switch s {
	case OpaqueState:
		r.calls = append(r.calls, "state:opaque")
	case TransparentState:
		r.calls = append(r.calls, "state:transparent")
	default:
		r.calls = append(r.calls, fmt.Sprintf("state:%+v", s))
	}
}

func (r *recorder) Draw(inst *instance.Instance) {
	r.calls = append(r.calls, fmt.Sprintf("draw:%d", inst.ID()))
	r.drawnBy[inst.ID()]++
}

func (r *recorder) Err() error {
	if len(r.errs) == 0 {
		return nil
	}
	err := r.errs[0]
	r.errs = r.errs[1:]
	return err
}

func (r *recorder) UseHighlight()   { r.calls = append(r.calls, "highlight:on") }
func (r *recorder) UnuseHighlight() { r.calls = append(r.calls, "highlight:off") }

func (r *recorder) UseShader(id ShaderID) error {
	if r.useErr != nil {
		return r.useErr
	}
	r.calls = append(r.calls, fmt.Sprintf("shader:%d", id))
	return nil
}

func (r *recorder) UnuseShader() { r.calls = append(r.calls, "shader:off") }

func (r *recorder) context(highlight bool) RenderContext {
	return RenderContext{Drawer: r, Highlighter: r, Shaders: r, SelectionShaderUsed: highlight}
}

func TestExecuteStandardOrder(t *testing.T) {
	c := New()
	opaque := addNew(t, c, cube(0, 1, false), 0)
	transparent := addNew(t, c, cube(0, 1, true), 0)
	selected := addNew(t, c, cube(0, 1, false), 0)
	require.NoError(t, c.Select(selected))

	r := newRecorder()
	require.NoError(t, c.Execute(GroupStandard, r.context(true)))
	assert.Equal(t, []string{
		"state:opaque",
		fmt.Sprintf("draw:%d", opaque),
		"state:transparent",
		fmt.Sprintf("draw:%d", transparent),
		"state:opaque",
	}, r.calls)
	assert.Zero(t, r.drawnBy[selected])
	assert.Equal(t, 2, c.Stats().DrawCalls)
}

func TestExecuteSelected(t *testing.T) {
	c := New()
	addNew(t, c, cube(0, 1, false), 0)
	selected := addNew(t, c, cube(0, 1, true), 0)
	require.NoError(t, c.Select(selected))

	r := newRecorder()
	require.NoError(t, c.Execute(GroupSelected, r.context(true)))
	assert.Equal(t, []string{
		"highlight:on",
		"state:opaque",
		fmt.Sprintf("draw:%d", selected),
		"highlight:off",
	}, r.calls)

	r = newRecorder()
	require.NoError(t, c.Execute(GroupSelected, r.context(false)))
	assert.Equal(t, []string{"state:opaque", fmt.Sprintf("draw:%d", selected)}, r.calls)
}

func TestExecuteSelectedWithoutHighlighter(t *testing.T) {
	c := New()
	id := addNew(t, c, cube(0, 1, false), 0)
	require.NoError(t, c.Select(id))

	r := newRecorder()
	rc := RenderContext{Drawer: r, SelectionShaderUsed: true}
	require.NoError(t, c.Execute(GroupSelected, rc))
	assert.Equal(t, 1, r.drawnBy[id])
}

func TestExecuteEmptyAndSkipped(t *testing.T) {
	r := newRecorder()
	c := New()
	require.NoError(t, c.Execute(GroupStandard, r.context(true)))
	require.NoError(t, c.Execute(GroupSelected, r.context(true)))
	assert.Empty(t, r.calls)

	// Only an opaque instance: the transparent pass is skipped entirely.
	id := addNew(t, c, cube(0, 1, false), 0)
	require.NoError(t, c.Execute(GroupStandard, r.context(true)))
	assert.Equal(t, []string{"state:opaque", fmt.Sprintf("draw:%d", id)}, r.calls)
}

func TestExecuteShowState(t *testing.T) {
	c := New()
	shown := addNew(t, c, cube(0, 1, false), 0)
	hidden := addNew(t, c, cube(0, 1, false), 0)
	require.NoError(t, c.SetVisibility(hidden, false))

	r := newRecorder()
	require.NoError(t, c.Execute(GroupStandard, r.context(false)))
	assert.Equal(t, 1, r.drawnBy[shown])
	assert.Zero(t, r.drawnBy[hidden])

	c.SetShowState(false)
	r = newRecorder()
	require.NoError(t, c.Execute(GroupStandard, r.context(false)))
	assert.Zero(t, r.drawnBy[shown])
	assert.Equal(t, 1, r.drawnBy[hidden])
}

func TestExecuteErrors(t *testing.T) {
	c := New()
	addNew(t, c, cube(0, 1, false), 0)

	require.ErrorIs(t, c.Execute(GroupStandard, RenderContext{}), ErrNoDrawer)
	require.ErrorIs(t, c.Execute(Group(9), newRecorder().context(false)), ErrUnknownGroup)
}

func TestExecuteRefreshesTransparency(t *testing.T) {
	g := cube(0, 1, false)
	for _, check := range []bool{true, false} {
		t.Run(fmt.Sprintf("check=%t", check), func(t *testing.T) {
			g.transparent = false
			c := New(WithTransparencyCheck(check))
			id := addNew(t, c, g, 0)
			g.transparent = true

			r := newRecorder()
			if check {
				require.NoError(t, c.Execute(GroupStandard, r.context(false)))
				assert.Equal(t, BucketTransparent, bucketOf(t, c, id))
				assert.Contains(t, r.calls, "state:transparent")
			} else {
				assert.False(t, c.TransparencyCheck())
				c.SetTransparencyCheck(true)
				assert.True(t, c.TransparencyCheck())
				require.NoError(t, c.Execute(GroupStandard, r.context(false)))
				assert.Equal(t, BucketTransparent, bucketOf(t, c, id))
			}
		})
	}
}

func TestDrawErrorsAreCounted(t *testing.T) {
	c := New()
	addNew(t, c, cube(0, 1, false), 0)
	addNew(t, c, cube(0, 1, true), 0)

	boom := errors.New("GL_INVALID_OPERATION")
	r := newRecorder()
	r.errs = []error{boom, nil}
	require.NoError(t, c.Execute(GroupStandard, r.context(false)))

	st := c.Stats()
	assert.Equal(t, 2, st.DrawCalls, "later passes still run")
	assert.Equal(t, 1, st.DrawErrors)
	assert.Equal(t, boom, st.LastDrawError)
}

func TestExecuteShaderGroup(t *testing.T) {
	c := New()
	require.NoError(t, c.BindShader(4))
	require.NoError(t, c.BindShader(5))
	grouped := addNew(t, c, cube(0, 1, true), 4)
	plain := addNew(t, c, cube(0, 1, false), 0)

	// The grouped geometry is transparent but draws without blending.
	r := newRecorder()
	require.NoError(t, c.ExecuteShaderGroup(4, r.context(false)))
	assert.Equal(t, []string{
		"shader:4",
		"state:opaque",
		fmt.Sprintf("draw:%d", grouped),
		"shader:off",
	}, r.calls)

	// Shader-grouped instances are not drawn by the standard passes.
	r = newRecorder()
	require.NoError(t, c.Execute(GroupStandard, r.context(false)))
	assert.Zero(t, r.drawnBy[grouped])
	assert.Equal(t, 1, r.drawnBy[plain])

	r = newRecorder()
	require.NoError(t, c.ExecuteShaderGroup(5, r.context(false)))
	assert.Empty(t, r.calls)

	require.ErrorIs(t, c.ExecuteShaderGroup(6, r.context(false)), ErrNotFound)
	require.ErrorIs(t, c.ExecuteShaderGroup(4, RenderContext{}), ErrNoDrawer)

	r.useErr = errors.New("link failed")
	require.Error(t, c.ExecuteShaderGroup(4, r.context(false)))
}

func TestRegisterPass(t *testing.T) {
	c := New()
	id := addNew(t, c, cube(0, 1, false), 0)

	const groupAll Group = 2
	c.RegisterPass(groupAll, func(c *Collection, rc RenderContext) {
		c.standardPass(rc)
		c.selectedPass(rc)
	})
	r := newRecorder()
	require.NoError(t, c.Execute(groupAll, r.context(false)))
	assert.Equal(t, 1, r.drawnBy[id])
}
