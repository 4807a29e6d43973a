package api

import (
	"net/http"
	"runtime"
	"sync"
	"time"

	"tripreel/pkg/tracker"
)

// RowCounter reports durable store sizes. *db.DB satisfies it.
type RowCounter interface {
	Stats() (cacheRows, stateRows int, err error)
}

type StatsHandler struct {
	tracker *tracker.Tracker
	cache   interface{ Len() int }
	db      RowCounter // nil when the cache is not on SQLite
	hub     *Hub
	started time.Time

	mu     sync.Mutex
	maxMem uint64
}

func NewStatsHandler(t *tracker.Tracker, c interface{ Len() int }, db RowCounter, hub *Hub) *StatsHandler {
	return &StatsHandler{
		tracker: t,
		cache:   c,
		db:      db,
		hub:     hub,
		started: time.Now(),
	}
}

type ProviderStatsDTO struct {
	MemoryHits    int64 `json:"memory_hits"`
	DurableHits   int64 `json:"durable_hits"`
	CacheMisses   int64 `json:"cache_misses"`
	APISuccess    int64 `json:"api_success"`
	APIZeroResult int64 `json:"api_zero"`
	APIFailures   int64 `json:"api_errors"`
	APIQuota      int64 `json:"api_quota"`
	HitRate       int64 `json:"hit_rate"`
}

type ServerStats struct {
	UptimeSec   int64  `json:"uptime_sec"`
	MemoryMB    uint64 `json:"memory_mb"`
	MemoryMaxMB uint64 `json:"memory_max_mb"`
	Goroutines  int    `json:"goroutines"`
}

type CacheStats struct {
	MemoryEntries int `json:"memory_entries"`
	DurableRows   int `json:"durable_rows"`
	StateRows     int `json:"state_rows"`
}

type StatsResponse struct {
	Server        ServerStats                 `json:"server"`
	Cache         CacheStats                  `json:"cache"`
	PlayerClients int                         `json:"player_clients"`
	Providers     map[string]ProviderStatsDTO `json:"providers"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	snapshot := h.tracker.Snapshot()

	resp := StatsResponse{
		Server:    h.serverStats(),
		Providers: make(map[string]ProviderStatsDTO, len(snapshot)),
	}
	if h.cache != nil {
		resp.Cache.MemoryEntries = h.cache.Len()
	}
	if h.db != nil {
		// Counts are best effort; a failure leaves them at zero.
		if rows, state, err := h.db.Stats(); err == nil {
			resp.Cache.DurableRows = rows
			resp.Cache.StateRows = state
		}
	}
	if h.hub != nil {
		resp.PlayerClients = h.hub.Count()
	}

	for provider, stats := range snapshot {
		hits := stats.MemoryHits + stats.DurableHits
		totalCache := hits + stats.CacheMisses
		hitRate := int64(0)
		if totalCache > 0 {
			hitRate = (hits * 100) / totalCache
		}
		resp.Providers[provider] = ProviderStatsDTO{
			MemoryHits:    stats.MemoryHits,
			DurableHits:   stats.DurableHits,
			CacheMisses:   stats.CacheMisses,
			APISuccess:    stats.APISuccess,
			APIZeroResult: stats.APIZeroResult,
			APIFailures:   stats.APIFailures,
			APIQuota:      stats.APIQuota,
			HitRate:       hitRate,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *StatsHandler) serverStats() ServerStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	h.mu.Lock()
	if ms.Alloc > h.maxMem {
		h.maxMem = ms.Alloc
	}
	maxMem := h.maxMem
	h.mu.Unlock()

	return ServerStats{
		UptimeSec:   int64(time.Since(h.started).Seconds()),
		MemoryMB:    bToMb(ms.Alloc),
		MemoryMaxMB: bToMb(maxMem),
		Goroutines:  runtime.NumGoroutine(),
	}
}

func bToMb(b uint64) uint64 {
	return b / 1024 / 1024
}
