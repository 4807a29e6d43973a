package tracker

import (
	"testing"
)

func TestTracker(t *testing.T) {
	tr := New()
	provider := "maps.googleapis.com"

	// Test Initial State
	stats := tr.Snapshot()
	if len(stats) != 0 {
		t.Errorf("Expected empty stats, got %d", len(stats))
	}

	tr.TrackMemoryHit(provider)
	tr.TrackDurableHit(provider)
	tr.TrackCacheMiss(provider)
	tr.TrackAPISuccess(provider)
	tr.TrackAPIFailure(provider)
	tr.TrackAPIZero(provider)
	tr.TrackAPIQuota(provider)

	stats = tr.Snapshot()
	pStats, ok := stats[provider]
	if !ok {
		t.Fatalf("Expected stats for provider %s", provider)
	}

	checks := map[string]int64{
		"MemoryHits":    pStats.MemoryHits,
		"DurableHits":   pStats.DurableHits,
		"CacheMisses":   pStats.CacheMisses,
		"APISuccess":    pStats.APISuccess,
		"APIFailures":   pStats.APIFailures,
		"APIZeroResult": pStats.APIZeroResult,
		"APIQuota":      pStats.APIQuota,
	}
	for name, got := range checks {
		if got != 1 {
			t.Errorf("Expected 1 %s, got %d", name, got)
		}
	}
}

func TestReset(t *testing.T) {
	tr := New()
	provider := "cache"

	tr.TrackMemoryHit(provider)
	tr.Reset()

	stats := tr.Snapshot()
	s, ok := stats[provider]
	if !ok {
		t.Fatal("Provider should still exist after reset")
	}
	if s.MemoryHits != 0 {
		t.Errorf("MemoryHits should be 0 after reset, got %d", s.MemoryHits)
	}
}
