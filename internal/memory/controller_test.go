package memory

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfansharif/scenery/internal/geom"
	"github.com/irfansharif/scenery/internal/mesh"
)

// fakeBackend keeps buffers in host memory.
type fakeBackend struct {
	next      uint32
	buffers   map[uint32][]float32
	released  int
	createErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{buffers: make(map[uint32][]float32)}
}

func (f *fakeBackend) CreateBuffer(vertexCapacity int) (Buffer, error) {
	if f.createErr != nil {
		return Buffer{}, f.createErr
	}
	f.next++
	f.buffers[f.next] = make([]float32, vertexCapacity*mesh.FloatsPerVertex)
	return Buffer{VAO: f.next, VBO: f.next}, nil
}

func (f *fakeBackend) Upload(b Buffer, vertexOffset int, vertices []float32) error {
	buf, ok := f.buffers[b.VBO]
	if !ok {
		return errors.New("no such buffer")
	}
	start := vertexOffset * mesh.FloatsPerVertex
	if start+len(vertices) > len(buf) {
		return errors.New("upload overflows buffer")
	}
	copy(buf[start:], vertices)
	return nil
}

func (f *fakeBackend) Copy(src Buffer, srcOffset int, dst Buffer, dstOffset, count int) error {
	s, d := f.buffers[src.VBO], f.buffers[dst.VBO]
	n := count * mesh.FloatsPerVertex
	copy(d[dstOffset*mesh.FloatsPerVertex:], s[srcOffset*mesh.FloatsPerVertex:srcOffset*mesh.FloatsPerVertex+n])
	return nil
}

func (f *fakeBackend) Release(b Buffer) {
	delete(f.buffers, b.VBO)
	f.released++
}

// read returns the vertices stored for id.
func (f *fakeBackend) read(t *testing.T, mc *Controller, id mesh.ID) []float32 {
	t.Helper()
	loc, ok := mc.Locate(id)
	require.True(t, ok)
	buf := f.buffers[loc.Buffer.VBO]
	start := int(loc.First) * mesh.FloatsPerVertex
	return buf[start : start+int(loc.Count)*mesh.FloatsPerVertex]
}

func vertices(n int, v float32) []float32 {
	out := make([]float32, n*mesh.FloatsPerVertex)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestSelectClass(t *testing.T) {
	assert.Equal(t, ClassS, selectClass(36))
	assert.Equal(t, ClassS, selectClass(vertexCapacityS))
	assert.Equal(t, ClassM, selectClass(vertexCapacityS+1))
	assert.Equal(t, ClassL, selectClass(vertexCapacityM+1))
	assert.Equal(t, ClassDedicated, selectClass(vertexCapacityL+1))
}

func TestEnsureSlotRejectsBadInput(t *testing.T) {
	mc := NewController(newFakeBackend())
	require.Error(t, mc.EnsureSlot(1, nil))
	require.Error(t, mc.EnsureSlot(1, make([]float32, 7)))
	assert.False(t, mc.Contains(1))
}

func TestEnsureSlotSharesBatches(t *testing.T) {
	f := newFakeBackend()
	mc := NewController(f)
	require.NoError(t, mc.EnsureSlot(1, vertices(36, 1)))
	require.NoError(t, mc.EnsureSlot(2, vertices(36, 2)))

	a, _ := mc.Locate(1)
	b, _ := mc.Locate(2)
	assert.Equal(t, a.Buffer, b.Buffer)
	assert.Equal(t, int32(0), a.First)
	assert.Equal(t, int32(vertexCapacityS), b.First)
	assert.Equal(t, int32(36), a.Count)

	assert.Equal(t, vertices(36, 1), f.read(t, mc, 1))
	assert.Equal(t, vertices(36, 2), f.read(t, mc, 2))

	st := mc.Stats()
	assert.Equal(t, 2, st.TotalMeshes)
	assert.Equal(t, 1, st.TotalBatches)
	assert.Equal(t, slotsPerBatchS, st.TotalSlots)
	assert.Equal(t, slotsPerBatchS-2, st.FreeSlots)
	require.NoError(t, mc.ValidateIntegrity())
}

func TestEnsureSlotInPlaceAndReallocate(t *testing.T) {
	f := newFakeBackend()
	mc := NewController(f)
	require.NoError(t, mc.EnsureSlot(1, vertices(36, 1)))
	before, _ := mc.Locate(1)

	require.NoError(t, mc.EnsureSlot(1, vertices(48, 3)))
	after, _ := mc.Locate(1)
	assert.Equal(t, before.First, after.First, "fits: updated in place")
	assert.Equal(t, int32(48), after.Count)

	require.NoError(t, mc.EnsureSlot(1, vertices(vertexCapacityS+10, 4)))
	moved, _ := mc.Locate(1)
	assert.NotEqual(t, before.Buffer, moved.Buffer, "outgrew the small class")
	assert.Equal(t, vertices(vertexCapacityS+10, 4), f.read(t, mc, 1))
	require.NoError(t, mc.ValidateIntegrity())
}

func TestDedicated(t *testing.T) {
	f := newFakeBackend()
	mc := NewController(f)
	n := vertexCapacityL + 1
	require.NoError(t, mc.EnsureSlot(1, vertices(n, 1)))
	st := mc.Stats()
	assert.Equal(t, 1, st.ClassStats[ClassDedicated].BatchCount)
	assert.Equal(t, int64(n*bytesPerVertex), st.TotalGPUBytes)

	require.NoError(t, mc.Remove(1))
	assert.Equal(t, 1, f.released, "dedicated buffers are released on removal")
	assert.Zero(t, mc.Stats().TotalBatches)
	require.NoError(t, mc.ValidateIntegrity())
}

func TestRemoveReusesLowestSlot(t *testing.T) {
	mc := NewController(newFakeBackend())
	for id := mesh.ID(1); id <= 3; id++ {
		require.NoError(t, mc.EnsureSlot(id, vertices(10, 1)))
	}
	first, _ := mc.Locate(1)
	require.NoError(t, mc.Remove(1))
	require.Error(t, mc.Remove(1))
	_, ok := mc.Locate(1)
	assert.False(t, ok)

	require.NoError(t, mc.EnsureSlot(4, vertices(10, 1)))
	reused, _ := mc.Locate(4)
	assert.Equal(t, first.First, reused.First)
	require.NoError(t, mc.ValidateIntegrity())
}

func TestCreateBufferError(t *testing.T) {
	f := newFakeBackend()
	f.createErr = errors.New("out of memory")
	mc := NewController(f)
	require.Error(t, mc.EnsureSlot(1, vertices(3, 1)))
	assert.False(t, mc.Contains(1))
	require.NoError(t, mc.ValidateIntegrity())
}

type fakeSource struct {
	id      mesh.ID
	version int
	verts   []float32
}

func (s *fakeSource) ID() mesh.ID         { return s.id }
func (s *fakeSource) Version() int        { return s.version }
func (s *fakeSource) Vertices() []float32 { return s.verts }

func TestSyncUploadsOnVersionChange(t *testing.T) {
	mc := NewController(newFakeBackend())
	src := &fakeSource{id: 7, version: 1, verts: vertices(3, 1)}

	require.NoError(t, mc.Sync(src))
	require.NoError(t, mc.Sync(src))
	assert.Equal(t, 1, mc.Stats().Uploads)

	src.version = 2
	src.verts = vertices(6, 2)
	require.NoError(t, mc.Sync(src))
	assert.Equal(t, 2, mc.Stats().Uploads)
	loc, _ := mc.Locate(7)
	assert.Equal(t, int32(6), loc.Count)
}

func TestSyncMesh(t *testing.T) {
	f := newFakeBackend()
	mc := NewController(f)
	m, err := mesh.Cuboid("box", geom.MakeVec3(1, 1, 1), color.RGBA{R: 200, A: 255})
	require.NoError(t, err)
	require.NoError(t, mc.Sync(m))
	assert.Equal(t, m.Vertices(), f.read(t, mc, m.ID()))
}

func TestReleaseEmpty(t *testing.T) {
	f := newFakeBackend()
	mc := NewController(f)
	require.NoError(t, mc.EnsureSlot(1, vertices(3, 1)))
	require.NoError(t, mc.EnsureSlot(2, vertices(vertexCapacityS+1, 1)))
	require.NoError(t, mc.Remove(2))

	assert.Equal(t, 1, mc.ReleaseEmpty())
	st := mc.Stats()
	assert.Equal(t, 1, st.TotalBatches)
	assert.Equal(t, 1, st.BatchReleases)
	require.NoError(t, mc.ValidateIntegrity())
}

func TestTryCompaction(t *testing.T) {
	f := newFakeBackend()
	mc := NewController(f)

	// Fill the first small batch and spill two meshes into a second one.
	n := slotsPerBatchS + 2
	for id := 1; id <= n; id++ {
		require.NoError(t, mc.EnsureSlot(mesh.ID(id), vertices(4, float32(id))))
	}
	require.Equal(t, 2, mc.Stats().TotalBatches)

	// Free room in the first batch; the second is now sparse.
	require.NoError(t, mc.Remove(1))
	require.NoError(t, mc.Remove(2))

	relocated, err := mc.TryCompaction()
	require.NoError(t, err)
	assert.Equal(t, 2, relocated)

	st := mc.Stats()
	assert.Equal(t, 1, st.TotalBatches)
	assert.Equal(t, 2, st.SlotsRelocated)
	assert.Equal(t, 1, st.CompactionEvents)
	for id := n - 1; id <= n; id++ {
		assert.Equal(t, vertices(4, float32(id)), f.read(t, mc, mesh.ID(id)))
	}
	require.NoError(t, mc.ValidateIntegrity())

	relocated, err = mc.TryCompaction()
	require.NoError(t, err)
	assert.Zero(t, relocated)
}

func TestCleanup(t *testing.T) {
	f := newFakeBackend()
	mc := NewController(f)
	require.NoError(t, mc.EnsureSlot(1, vertices(3, 1)))
	require.NoError(t, mc.EnsureSlot(2, vertices(vertexCapacityM+1, 1)))
	mc.Cleanup()
	assert.Empty(t, f.buffers)
	assert.False(t, mc.Contains(1))
	require.NoError(t, mc.ValidateIntegrity())
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "999", formatNumber(999))
	assert.Equal(t, "1.5K", formatNumber(1500))
	assert.Equal(t, "2.0M", formatNumber(2000000))
	assert.Equal(t, "██░░", makeUtilizationBar(0.5, 4))
	assert.Equal(t, "░░", makeUtilizationBar(-1, 2))
}
