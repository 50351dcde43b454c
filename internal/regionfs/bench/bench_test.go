package bench

import (
	"strings"
	"testing"
	"time"
)

func TestRecordGenerationTracksCountAndMax(t *testing.T) {
	m := New()
	m.RecordGeneration(10 * time.Millisecond)
	m.RecordGeneration(30 * time.Millisecond)
	m.RecordGeneration(5 * time.Millisecond)

	s := m.Snapshot()
	if s.ChunksGenerated != 3 {
		t.Fatalf("expected 3 chunks generated, got %d", s.ChunksGenerated)
	}
	if s.GenerationMaxMs < 29.9 || s.GenerationMaxMs > 30.1 {
		t.Fatalf("expected max ~30ms, got %.2f", s.GenerationMaxMs)
	}
}

func TestRecordLoadAndSave(t *testing.T) {
	m := New()
	m.RecordLoad(4 * time.Millisecond)
	m.RecordLoad(6 * time.Millisecond)
	m.RecordSave(2 * time.Millisecond)

	s := m.Snapshot()
	if s.ChunksLoaded != 2 {
		t.Fatalf("expected 2 chunks loaded, got %d", s.ChunksLoaded)
	}
	if s.LoadAvgMs < 4.9 || s.LoadAvgMs > 5.1 {
		t.Fatalf("expected avg load ~5ms, got %.2f", s.LoadAvgMs)
	}
	if s.ChunksSaved != 1 {
		t.Fatalf("expected 1 chunk saved, got %d", s.ChunksSaved)
	}
}

func TestCacheCounters(t *testing.T) {
	m := New()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	s := m.Snapshot()
	if s.CacheHits != 2 || s.CacheMisses != 1 {
		t.Fatalf("expected 2 hits / 1 miss, got hits=%d misses=%d", s.CacheHits, s.CacheMisses)
	}
}

func TestReportContainsSections(t *testing.T) {
	m := New()
	m.RecordGeneration(time.Millisecond)
	report := m.Report()

	for _, want := range []string{"[Generation]", "[Storage Read]", "[Storage Write]", "[Cache]"} {
		if !strings.Contains(report, want) {
			t.Fatalf("expected report to contain %q, got:\n%s", want, report)
		}
	}
}

func TestSnapshotAvgsAreZeroWithNoSamples(t *testing.T) {
	m := New()
	s := m.Snapshot()
	if s.GenerationAvgMs != 0 || s.LoadAvgMs != 0 || s.SaveAvgMs != 0 {
		t.Fatal("expected zero averages with no recorded samples")
	}
}
