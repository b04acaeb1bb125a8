package memory

import (
	"fmt"
	"strings"
)

// Stats tracks the controller's memory use.
type Stats struct {
	TotalMeshes        int
	TotalVertices      int64
	TotalGPUBytes      int64
	TotalBatches       int
	TotalSlots         int
	TotalActiveSlots   int
	TotalActiveBatches int
	FreeSlots          int
	ClassStats         map[SizeClass]ClassStats

	// Cumulative.
	Uploads              int
	BatchReleases        int
	CompactionEvents     int
	SlotsRelocated       int
	LastCompactionTimeUs float64
}

// ClassStats tracks metrics across the batches of one size class.
type ClassStats struct {
	MeshCount     int
	BatchCount    int
	TotalSlots    int
	ActiveSlots   int
	ActiveBatches int
	FreeSlots     int
	GPUBytes      int64
	Vertices      int64
}

// Stats returns current memory statistics.
func (mc *Controller) Stats() Stats {
	mc.updateStats()
	st := mc.stats
	st.ClassStats = make(map[SizeClass]ClassStats, len(mc.stats.ClassStats))
	for sc, cs := range mc.stats.ClassStats {
		st.ClassStats[sc] = cs
	}
	return st
}

func (mc *Controller) updateStats() {
	mc.stats.TotalMeshes = len(mc.meshes)
	mc.stats.TotalVertices = 0
	mc.stats.TotalGPUBytes = 0
	mc.stats.TotalBatches = 0
	mc.stats.TotalSlots = 0
	mc.stats.TotalActiveSlots = 0
	mc.stats.TotalActiveBatches = 0
	mc.stats.FreeSlots = 0

	for sc, p := range mc.pools {
		cs := p.calculateStats()
		mc.stats.TotalBatches += cs.BatchCount
		mc.stats.TotalGPUBytes += cs.GPUBytes
		mc.stats.TotalVertices += cs.Vertices
		mc.stats.TotalSlots += cs.TotalSlots
		mc.stats.TotalActiveSlots += cs.ActiveSlots
		mc.stats.TotalActiveBatches += cs.ActiveBatches
		mc.stats.FreeSlots += cs.FreeSlots
		mc.stats.ClassStats[sc] = cs
	}
}

func (p *pool) calculateStats() ClassStats {
	cs := ClassStats{
		BatchCount: len(p.batches),
		FreeSlots:  len(p.free),
	}
	for _, b := range p.batches {
		cs.GPUBytes += int64(b.vertexCapacity * bytesPerVertex)
		cs.TotalSlots += len(b.slots)
		cs.ActiveSlots += b.active
		if b.active > 0 {
			cs.ActiveBatches++
		}
		for _, s := range b.slots {
			if s.active {
				cs.Vertices += int64(s.vertexCount)
				cs.MeshCount++
			}
		}
	}
	return cs
}

// PrintStats logs memory statistics with utilization bars.
func (mc *Controller) PrintStats() {
	stats := mc.Stats()

	slotsUtil := 0.0
	if stats.TotalSlots > 0 {
		slotsUtil = float64(stats.TotalActiveSlots) / float64(stats.TotalSlots)
	}

	memoryLogger.Println("===== Memory Controller Stats =====")
	memoryLogger.Printf("%.1f%% slots active (%d/%d), %d/%d batches active, %d free-list slots, %s GPU, %d meshes (%s triangles), %d uploads, %d batches released, %d compactions (%d slots relocated, %.2fμs last)",
		slotsUtil*100,
		stats.TotalActiveSlots,
		stats.TotalSlots,
		stats.TotalActiveBatches,
		stats.TotalBatches,
		stats.FreeSlots,
		formatNumber(stats.TotalGPUBytes),
		stats.TotalMeshes,
		formatNumber(stats.TotalVertices/3),
		stats.Uploads,
		stats.BatchReleases,
		stats.CompactionEvents,
		stats.SlotsRelocated,
		stats.LastCompactionTimeUs,
	)
	for _, sc := range sizeClasses {
		cs, ok := stats.ClassStats[sc]
		if !ok || cs.BatchCount == 0 {
			continue
		}
		util := 0.0
		if cs.TotalSlots > 0 {
			util = float64(cs.ActiveSlots) / float64(cs.TotalSlots)
		}
		memoryLogger.Printf("  [%9s] %s %.0f%% slots active (%d/%d), %d batches, %s GPU (%s vertices)",
			sc, makeUtilizationBar(util, 12), util*100,
			cs.ActiveSlots, cs.TotalSlots, cs.BatchCount,
			formatNumber(cs.GPUBytes), formatNumber(cs.Vertices))
	}
	memoryLogger.Println("===================================")
}

// makeUtilizationBar creates a visual bar for utilization percentage.
func makeUtilizationBar(utilization float64, width int) string {
	if utilization < 0 {
		utilization = 0
	}
	if utilization > 1 {
		utilization = 1
	}
	filled := int(utilization * float64(width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// formatNumber formats large numbers with K/M suffixes for readability.
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%.1fK", float64(n)/1000.0)
	}
	return fmt.Sprintf("%.1fM", float64(n)/1000000.0)
}
