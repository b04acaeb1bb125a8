// Package memory provides GPU vertex storage for scene meshes.
//
// The controller uses size-classed slot allocation: meshes of similar vertex
// counts share one vertex buffer, each occupying a fixed-capacity slot, so
// re-uploading a mesh whose size barely changed never reallocates. Meshes too
// large for any class get a dedicated buffer.
package memory

import (
	"fmt"
	"io"
	"log"
	"os"
	"sort"

	"github.com/irfansharif/scenery/internal/mesh"
)

var memoryLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("SCENERY_DEBUG_MEMORY") == "1" {
		memoryLogger = log.New(os.Stdout, "[memory] ", log.Ltime|log.Lmsgprefix)
	}
}

// Size class configuration.
const (
	vertexCapacityS = 256
	vertexCapacityM = 2048
	vertexCapacityL = 16384
	slotsPerBatchS  = 64
	slotsPerBatchM  = 32
	slotsPerBatchL  = 8
)

// bytesPerVertex is the GPU footprint of one interleaved vertex.
const bytesPerVertex = mesh.FloatsPerVertex * 4

// SizeClass groups meshes by vertex count.
type SizeClass int

const (
	ClassS         SizeClass = iota // up to 256 vertices (cuboids, small prisms)
	ClassM                          // up to 2K vertices
	ClassL                          // up to 16K vertices
	ClassDedicated                  // one buffer per mesh
)

var sizeClasses = []SizeClass{ClassS, ClassM, ClassL, ClassDedicated}

func (sc SizeClass) String() string {
	switch sc {
	case ClassS:
		return "small"
	case ClassM:
		return "medium"
	case ClassL:
		return "large"
	case ClassDedicated:
		return "dedicated"
	default:
		return "unknown"
	}
}

// selectClass chooses the smallest class that fits vertexCount.
func selectClass(vertexCount int) SizeClass {
	switch {
	case vertexCount <= vertexCapacityS:
		return ClassS
	case vertexCount <= vertexCapacityM:
		return ClassM
	case vertexCount <= vertexCapacityL:
		return ClassL
	default:
		return ClassDedicated
	}
}

func (sc SizeClass) slotCapacity() int {
	switch sc {
	case ClassS:
		return vertexCapacityS
	case ClassM:
		return vertexCapacityM
	case ClassL:
		return vertexCapacityL
	default:
		return 0 // sized per mesh
	}
}

func (sc SizeClass) slotsPerBatch() int {
	switch sc {
	case ClassS:
		return slotsPerBatchS
	case ClassM:
		return slotsPerBatchM
	case ClassL:
		return slotsPerBatchL
	default:
		return 1
	}
}

// Buffer names the GPU objects behind one batch.
type Buffer struct {
	VAO, VBO uint32
}

// Backend owns the GPU buffers. The OpenGL implementation is GLBackend.
type Backend interface {
	// CreateBuffer allocates a vertex buffer holding vertexCapacity vertices.
	CreateBuffer(vertexCapacity int) (Buffer, error)
	// Upload writes vertices starting at vertex index vertexOffset.
	Upload(b Buffer, vertexOffset int, vertices []float32) error
	// Copy moves count vertices between buffers, GPU side.
	Copy(src Buffer, srcOffset int, dst Buffer, dstOffset, count int) error
	// Release frees the buffer.
	Release(b Buffer)
}

// Source is what the controller needs from a mesh.
type Source interface {
	ID() mesh.ID
	Version() int
	Vertices() []float32
}

// Location is where a mesh's vertices live, ready for a draw call.
type Location struct {
	Buffer Buffer
	First  int32
	Count  int32
}

type slot struct {
	active       bool
	meshID       mesh.ID
	vertexCount  int
	vertexOffset int
}

// batch is one vertex buffer split into fixed-capacity slots.
type batch struct {
	id             int
	buffer         Buffer
	vertexCapacity int
	slots          []slot
	active         int
	class          SizeClass
}

type slotRef struct {
	batch *batch
	index int
}

// pool holds the batches of one size class, and its free slots sorted by
// (batch id, slot index) so allocations pack towards older batches.
type pool struct {
	class   SizeClass
	batches []*batch
	free    []slotRef
}

func (p *pool) takeFree() (slotRef, bool) {
	if len(p.free) == 0 {
		return slotRef{}, false
	}
	ref := p.free[0]
	p.free = p.free[1:]
	return ref, true
}

func (p *pool) addFree(ref slotRef) {
	less := func(a, b slotRef) bool {
		if a.batch.id != b.batch.id {
			return a.batch.id < b.batch.id
		}
		return a.index < b.index
	}
	i := sort.Search(len(p.free), func(i int) bool { return less(ref, p.free[i]) })
	p.free = append(p.free, slotRef{})
	copy(p.free[i+1:], p.free[i:])
	p.free[i] = ref
}

func (p *pool) dropBatch(b *batch) {
	for i, existing := range p.batches {
		if existing == b {
			p.batches = append(p.batches[:i], p.batches[i+1:]...)
			break
		}
	}
	free := p.free[:0]
	for _, ref := range p.free {
		if ref.batch != b {
			free = append(free, ref)
		}
	}
	p.free = free
}

type allocation struct {
	batch   *batch
	index   int
	version int
}

// Controller manages the GPU storage of every mesh in a scene.
type Controller struct {
	backend     Backend
	pools       map[SizeClass]*pool
	meshes      map[mesh.ID]*allocation
	nextBatchID int
	stats       Stats
}

// NewController returns an empty controller over backend.
func NewController(backend Backend) *Controller {
	mc := &Controller{
		backend: backend,
		pools:   make(map[SizeClass]*pool),
		meshes:  make(map[mesh.ID]*allocation),
		stats: Stats{
			ClassStats: make(map[SizeClass]ClassStats),
		},
	}
	for _, sc := range sizeClasses {
		mc.pools[sc] = &pool{class: sc}
	}
	return mc
}

// Sync uploads src's vertices unless the stored copy is already at its
// version.
func (mc *Controller) Sync(src Source) error {
	if alloc, ok := mc.meshes[src.ID()]; ok && alloc.version == src.Version() {
		return nil
	}
	if err := mc.EnsureSlot(src.ID(), src.Vertices()); err != nil {
		return err
	}
	mc.meshes[src.ID()].version = src.Version()
	return nil
}

// EnsureSlot stores vertices for id, updating its slot in place when they
// still fit and moving it to another size class otherwise.
func (mc *Controller) EnsureSlot(id mesh.ID, vertices []float32) error {
	if len(vertices) == 0 {
		return fmt.Errorf("cannot allocate empty vertex data for mesh %d", id)
	}
	if len(vertices)%mesh.FloatsPerVertex != 0 {
		return fmt.Errorf("vertex data must be a multiple of %d floats, got %d", mesh.FloatsPerVertex, len(vertices))
	}
	vertexCount := len(vertices) / mesh.FloatsPerVertex

	if existing, ok := mc.meshes[id]; ok {
		s := &existing.batch.slots[existing.index]
		if vertexCount <= existing.batch.slotCapacity(existing.index) {
			s.vertexCount = vertexCount
			return mc.upload(existing.batch, s, vertices)
		}
		memoryLogger.Printf("mesh %d outgrew its %s slot (%d vertices), reallocating", id, existing.batch.class, vertexCount)
		if err := mc.Remove(id); err != nil {
			return fmt.Errorf("failed to remove mesh %d for reallocation: %w", id, err)
		}
	}

	class := selectClass(vertexCount)
	p := mc.pools[class]
	var ref slotRef
	if class == ClassDedicated {
		b, err := mc.createBatch(class, vertexCount)
		if err != nil {
			return fmt.Errorf("failed to create dedicated batch for %d vertices: %w", vertexCount, err)
		}
		ref = slotRef{batch: b}
	} else {
		var ok bool
		if ref, ok = p.takeFree(); !ok {
			b, err := mc.createBatch(class, 0)
			if err != nil {
				return fmt.Errorf("failed to create batch for class %s: %w", class, err)
			}
			for i := range b.slots {
				p.addFree(slotRef{batch: b, index: i})
			}
			ref, _ = p.takeFree()
		}
	}

	s := &ref.batch.slots[ref.index]
	s.active = true
	s.meshID = id
	s.vertexCount = vertexCount
	ref.batch.active++
	mc.meshes[id] = &allocation{batch: ref.batch, index: ref.index}

	if err := mc.upload(ref.batch, s, vertices); err != nil {
		return fmt.Errorf("failed to upload vertex data: %w", err)
	}
	return nil
}

func (b *batch) slotCapacity(index int) int {
	if b.class == ClassDedicated {
		return b.vertexCapacity - b.slots[index].vertexOffset
	}
	return b.class.slotCapacity()
}

func (mc *Controller) createBatch(class SizeClass, vertexCount int) (*batch, error) {
	numSlots := class.slotsPerBatch()
	capacity := class.slotCapacity() * numSlots
	if class == ClassDedicated {
		capacity = vertexCount
	}

	buffer, err := mc.backend.CreateBuffer(capacity)
	if err != nil {
		return nil, err
	}
	b := &batch{
		id:             mc.nextBatchID,
		buffer:         buffer,
		vertexCapacity: capacity,
		slots:          make([]slot, numSlots),
		class:          class,
	}
	for i := range b.slots {
		b.slots[i].vertexOffset = i * class.slotCapacity()
	}
	mc.nextBatchID++

	p := mc.pools[class]
	p.batches = append(p.batches, b)
	memoryLogger.Printf("created batch#%03d (%s, %d slots, %s vertices)", b.id, class, numSlots, formatNumber(int64(capacity)))
	return b, nil
}

func (mc *Controller) upload(b *batch, s *slot, vertices []float32) error {
	mc.stats.Uploads++
	return mc.backend.Upload(b.buffer, s.vertexOffset, vertices)
}

// Remove frees the slot of id. Dedicated buffers are released immediately.
func (mc *Controller) Remove(id mesh.ID) error {
	alloc, ok := mc.meshes[id]
	if !ok {
		return fmt.Errorf("mesh %d not found", id)
	}
	b := alloc.batch
	b.slots[alloc.index] = slot{vertexOffset: b.slots[alloc.index].vertexOffset}
	b.active--
	delete(mc.meshes, id)

	p := mc.pools[b.class]
	if b.class == ClassDedicated {
		mc.deleteBatch(p, b)
		return nil
	}
	p.addFree(slotRef{batch: b, index: alloc.index})
	return nil
}

// Locate returns where id's vertices are stored.
func (mc *Controller) Locate(id mesh.ID) (Location, bool) {
	alloc, ok := mc.meshes[id]
	if !ok {
		return Location{}, false
	}
	s := alloc.batch.slots[alloc.index]
	return Location{
		Buffer: alloc.batch.buffer,
		First:  int32(s.vertexOffset),
		Count:  int32(s.vertexCount),
	}, true
}

// Contains reports whether id has storage.
func (mc *Controller) Contains(id mesh.ID) bool {
	_, ok := mc.meshes[id]
	return ok
}

// ReleaseEmpty deletes batches without any active slot and returns how many
// were released. Meant to be called periodically, not every frame.
func (mc *Controller) ReleaseEmpty() int {
	released := 0
	for _, sc := range sizeClasses {
		p := mc.pools[sc]
		for _, b := range append([]*batch(nil), p.batches...) {
			if b.active == 0 {
				mc.deleteBatch(p, b)
				released++
			}
		}
	}
	return released
}

func (mc *Controller) deleteBatch(p *pool, b *batch) {
	if b.active > 0 {
		log.Printf("WARNING: refusing to delete batch#%03d with %d active slots", b.id, b.active)
		return
	}
	p.dropBatch(b)
	mc.backend.Release(b.buffer)
	mc.stats.BatchReleases++
	memoryLogger.Printf("released batch#%03d (%s)", b.id, b.class)
}

// Cleanup releases every GPU buffer.
func (mc *Controller) Cleanup() {
	for _, p := range mc.pools {
		for _, b := range p.batches {
			mc.backend.Release(b.buffer)
		}
		p.batches = nil
		p.free = nil
	}
	mc.meshes = make(map[mesh.ID]*allocation)
}

// ValidateIntegrity checks that every tracked mesh references a live, active
// slot that points back at it, and that free lists only hold inactive slots.
func (mc *Controller) ValidateIntegrity() error {
	var errors []string

	live := make(map[*batch]bool)
	for _, p := range mc.pools {
		for _, b := range p.batches {
			live[b] = true
		}
	}

	for id, alloc := range mc.meshes {
		if !live[alloc.batch] {
			errors = append(errors, fmt.Sprintf("Mesh %d references deleted batch %d", id, alloc.batch.id))
			continue
		}
		if alloc.index >= len(alloc.batch.slots) {
			errors = append(errors, fmt.Sprintf("Mesh %d has invalid slot index %d (batch has %d slots)",
				id, alloc.index, len(alloc.batch.slots)))
			continue
		}
		s := &alloc.batch.slots[alloc.index]
		if !s.active {
			errors = append(errors, fmt.Sprintf("Mesh %d references inactive slot %d in batch %d", id, alloc.index, alloc.batch.id))
		}
		if s.meshID != id {
			errors = append(errors, fmt.Sprintf("Mesh %d slot mismatch: slot points to mesh %d", id, s.meshID))
		}
	}

	for sc, p := range mc.pools {
		for _, ref := range p.free {
			if !live[ref.batch] {
				errors = append(errors, fmt.Sprintf("Free list of %s references deleted batch %d", sc, ref.batch.id))
				continue
			}
			if ref.batch.slots[ref.index].active {
				errors = append(errors, fmt.Sprintf("Free list of %s holds active slot %d in batch %d", sc, ref.index, ref.batch.id))
			}
		}
		for _, b := range p.batches {
			active := 0
			for _, s := range b.slots {
				if s.active {
					active++
				}
			}
			if active != b.active {
				errors = append(errors, fmt.Sprintf("Batch %d counts %d active slots, has %d", b.id, b.active, active))
			}
		}
	}

	if len(errors) > 0 {
		log.Printf("memory integrity check failed with %d errors:", len(errors))
		for _, err := range errors {
			log.Printf("  - %s", err)
		}
		return fmt.Errorf("memory integrity check failed with %d errors", len(errors))
	}
	return nil
}
