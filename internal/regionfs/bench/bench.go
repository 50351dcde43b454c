// Package bench tracks chunk generation/load/save timings with atomic
// counters and renders them as a plain-text report.
package bench

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Metrics accumulates generation, load, and save timings across the life of
// a mount. All fields are safe for concurrent use.
type Metrics struct {
	startedAt time.Time

	chunksGenerated  atomic.Uint64
	generationTimeUs atomic.Uint64
	maxGenerationUs  atomic.Uint64
	chunksLoaded     atomic.Uint64
	loadTimeUs       atomic.Uint64
	chunksSaved      atomic.Uint64
	saveTimeUs       atomic.Uint64
	cacheHits        atomic.Uint64
	cacheMisses      atomic.Uint64
}

// New creates a Metrics tracker with its session clock started now.
func New() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

// RecordGeneration records one chunk generation taking d.
func (m *Metrics) RecordGeneration(d time.Duration) {
	m.chunksGenerated.Add(1)
	us := uint64(d.Microseconds())
	m.generationTimeUs.Add(us)
	for {
		cur := m.maxGenerationUs.Load()
		if us <= cur || m.maxGenerationUs.CompareAndSwap(cur, us) {
			break
		}
	}
}

// RecordLoad records one storage load taking d.
func (m *Metrics) RecordLoad(d time.Duration) {
	m.chunksLoaded.Add(1)
	m.loadTimeUs.Add(uint64(d.Microseconds()))
}

// RecordSave records one storage save taking d.
func (m *Metrics) RecordSave(d time.Duration) {
	m.chunksSaved.Add(1)
	m.saveTimeUs.Add(uint64(d.Microseconds()))
}

// RecordCacheHit records a chunk cache hit.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records a chunk cache miss.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// Snapshot is a point-in-time copy of the accumulated counters.
type Snapshot struct {
	Uptime            time.Duration
	ChunksGenerated   uint64
	GenerationTotalMs float64
	GenerationAvgMs   float64
	GenerationMaxMs   float64
	ChunksLoaded      uint64
	LoadAvgMs         float64
	ChunksSaved       uint64
	SaveAvgMs         float64
	CacheHits         uint64
	CacheMisses       uint64
}

// Snapshot reads the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	generated := m.chunksGenerated.Load()
	genTotalMs := float64(m.generationTimeUs.Load()) / 1000.0
	genMaxMs := float64(m.maxGenerationUs.Load()) / 1000.0
	genAvgMs := 0.0
	if generated > 0 {
		genAvgMs = genTotalMs / float64(generated)
	}

	loaded := m.chunksLoaded.Load()
	loadAvgMs := 0.0
	if loaded > 0 {
		loadAvgMs = float64(m.loadTimeUs.Load()) / 1000.0 / float64(loaded)
	}

	saved := m.chunksSaved.Load()
	saveAvgMs := 0.0
	if saved > 0 {
		saveAvgMs = float64(m.saveTimeUs.Load()) / 1000.0 / float64(saved)
	}

	return Snapshot{
		Uptime:            time.Since(m.startedAt),
		ChunksGenerated:   generated,
		GenerationTotalMs: genTotalMs,
		GenerationAvgMs:   genAvgMs,
		GenerationMaxMs:   genMaxMs,
		ChunksLoaded:      loaded,
		LoadAvgMs:         loadAvgMs,
		ChunksSaved:       saved,
		SaveAvgMs:         saveAvgMs,
		CacheHits:         m.cacheHits.Load(),
		CacheMisses:       m.cacheMisses.Load(),
	}
}

// Report renders a plain-text summary of the current counters.
func (m *Metrics) Report() string {
	s := m.Snapshot()
	return fmt.Sprintf(
		"regionfs benchmark report\n"+
			"=========================\n"+
			"Session Duration: %s\n\n"+
			"[Generation]\n"+
			"Chunks Generated: %d\n"+
			"Total Time: %.2f ms\n"+
			"Avg Time: %.2f ms/chunk\n"+
			"Max Time: %.2f ms\n\n"+
			"[Storage Read]\n"+
			"Chunks Loaded: %d\n"+
			"Avg Time: %.2f ms/chunk\n\n"+
			"[Storage Write]\n"+
			"Chunks Saved: %d\n"+
			"Avg Time: %.2f ms/chunk\n\n"+
			"[Cache]\n"+
			"Hits: %d\n"+
			"Misses: %d\n",
		s.Uptime.Round(time.Millisecond),
		s.ChunksGenerated, s.GenerationTotalMs, s.GenerationAvgMs, s.GenerationMaxMs,
		s.ChunksLoaded, s.LoadAvgMs,
		s.ChunksSaved, s.SaveAvgMs,
		s.CacheHits, s.CacheMisses,
	)
}
