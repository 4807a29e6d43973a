package tracker

import (
	"sync"
	"sync/atomic"
)

// Tracker tracks cache and upstream usage statistics per provider.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats
}

// ProviderStats holds metrics for a specific provider.
// Fields are accessed atomically.
type ProviderStats struct {
	MemoryHits    int64 `json:"memory_hits"`
	DurableHits   int64 `json:"durable_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	APISuccess    int64 `json:"api_success"`
	APIFailures   int64 `json:"api_failures"`
	APIZeroResult int64 `json:"api_zero_result"`
	APIQuota      int64 `json:"api_quota"`
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
	}
}

// getStats returns the stats object for a provider, creating it if needed.
func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	// Double check
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

// TrackMemoryHit counts a hit served from the in-process tier.
func (t *Tracker) TrackMemoryHit(provider string) {
	atomic.AddInt64(&t.getStats(provider).MemoryHits, 1)
}

// TrackDurableHit counts a hit promoted from the durable tier.
func (t *Tracker) TrackDurableHit(provider string) {
	atomic.AddInt64(&t.getStats(provider).DurableHits, 1)
}

func (t *Tracker) TrackCacheMiss(provider string) {
	atomic.AddInt64(&t.getStats(provider).CacheMisses, 1)
}

func (t *Tracker) TrackAPISuccess(provider string) {
	atomic.AddInt64(&t.getStats(provider).APISuccess, 1)
}

func (t *Tracker) TrackAPIFailure(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIFailures, 1)
}

func (t *Tracker) TrackAPIZero(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIZeroResult, 1)
}

// TrackAPIQuota counts upstream rate-limit rejections.
func (t *Tracker) TrackAPIQuota(provider string) {
	atomic.AddInt64(&t.getStats(provider).APIQuota, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make(map[string]ProviderStats)
	for k, v := range t.stats {
		result[k] = ProviderStats{
			MemoryHits:    atomic.LoadInt64(&v.MemoryHits),
			DurableHits:   atomic.LoadInt64(&v.DurableHits),
			CacheMisses:   atomic.LoadInt64(&v.CacheMisses),
			APISuccess:    atomic.LoadInt64(&v.APISuccess),
			APIFailures:   atomic.LoadInt64(&v.APIFailures),
			APIZeroResult: atomic.LoadInt64(&v.APIZeroResult),
			APIQuota:      atomic.LoadInt64(&v.APIQuota),
		}
	}
	return result
}

// Reset zeroes every counter while keeping known providers listed.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.stats {
		t.stats[k] = &ProviderStats{}
	}
}
