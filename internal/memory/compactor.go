package memory

import (
	"io"
	"log"
	"os"
	"sort"
	"time"
)

var compactionLogger *log.Logger = log.New(io.Discard, "", 0)

func init() {
	if os.Getenv("SCENERY_DEBUG_COMPACTION") == "1" {
		compactionLogger = log.New(os.Stdout, "[compaction] ", log.Ltime|log.Lmsgprefix)
	}
}

// Compaction configuration. Batches whose slot utilization is below the
// threshold have their meshes moved into other batches of the same class, and
// are released once empty. No more than the configured number of batches are
// compacted per call.
const (
	DefragThreshold   = 0.25
	DefragMaxPerFrame = 1
)

// scanForCompaction returns sparse batches, emptiest first. Dedicated
// batches are released on removal and never compacted.
func (mc *Controller) scanForCompaction() []*batch {
	var candidates []*batch
	for _, sc := range sizeClasses {
		if sc == ClassDedicated {
			continue
		}
		for _, b := range mc.pools[sc].batches {
			util := float64(b.active) / float64(len(b.slots))
			if util < DefragThreshold {
				candidates = append(candidates, b)
				compactionLogger.Printf("[%s] batch#%03d - CANDIDATE (%.1f%% util, %d/%d slots active)",
					sc, b.id, util*100, b.active, len(b.slots))
			}
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].active*len(candidates[j].slots) < candidates[j].active*len(candidates[i].slots)
	})
	return candidates
}

// TryCompaction compacts up to DefragMaxPerFrame sparse batches and returns
// how many meshes were relocated. Should be called periodically (e.g. every
// 60 frames).
func (mc *Controller) TryCompaction() (int, error) {
	candidates := mc.scanForCompaction()
	if len(candidates) == 0 {
		return 0, nil
	}

	startTime := time.Now()
	compacted, relocated := 0, 0
	for _, b := range candidates {
		if compacted >= DefragMaxPerFrame {
			compactionLogger.Printf("reached max compactions (%d) per call, skipping %d remaining candidates",
				DefragMaxPerFrame, len(candidates)-compacted)
			break
		}
		p := mc.pools[b.class]
		moved, err := mc.compactBatch(p, b)
		relocated += moved
		if err != nil {
			return relocated, err
		}
		if b.active == 0 {
			mc.deleteBatch(p, b)
			compacted++
		} else if moved > 0 {
			compacted++
		}
	}

	mc.stats.CompactionEvents += compacted
	mc.stats.SlotsRelocated += relocated
	if compacted > 0 {
		mc.stats.LastCompactionTimeUs = float64(time.Since(startTime).Microseconds())
	}
	compactionLogger.Printf("completed: %d candidates, %d batches compacted, %d meshes relocated",
		len(candidates), compacted, relocated)
	return relocated, nil
}

// compactBatch moves the active slots of src into free slots of other batches
// in p.
func (mc *Controller) compactBatch(p *pool, src *batch) (int, error) {
	moved := 0
	for i := range src.slots {
		s := &src.slots[i]
		if !s.active {
			continue
		}
		dst, ok := p.takeFreeOutside(src)
		if !ok {
			break
		}
		d := &dst.batch.slots[dst.index]
		if err := mc.backend.Copy(src.buffer, s.vertexOffset, dst.batch.buffer, d.vertexOffset, s.vertexCount); err != nil {
			p.addFree(dst)
			return moved, err
		}

		d.active = true
		d.meshID = s.meshID
		d.vertexCount = s.vertexCount
		dst.batch.active++

		alloc := mc.meshes[s.meshID]
		alloc.batch, alloc.index = dst.batch, dst.index

		*s = slot{vertexOffset: s.vertexOffset}
		src.active--
		p.addFree(slotRef{batch: src, index: i})
		moved++
	}
	return moved, nil
}

// takeFreeOutside pops the first free slot not in b.
func (p *pool) takeFreeOutside(b *batch) (slotRef, bool) {
	for i, ref := range p.free {
		if ref.batch != b {
			p.free = append(p.free[:i], p.free[i+1:]...)
			return ref, true
		}
	}
	return slotRef{}, false
}
