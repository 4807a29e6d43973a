package api

import (
	"log/slog"
	"net/http"
	"time"

	"tripreel/pkg/maps"
	"tripreel/pkg/version"
)

// StatusReporter reports whether the map capability is configured.
type StatusReporter interface {
	Status() maps.Status
}

// NewServer creates and configures the HTTP server.
// assetsDir is served at / (videos, music and the web UI); an empty value disables it.
func NewServer(addr, assetsDir string, days *DaysHandler, playerH *PlayerHandler, hub *Hub, stats *StatsHandler, mapsStatus StatusReporter, shutdown func()) *http.Server {
	mux := http.NewServeMux()

	// 1. Health & diagnostics
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("GET /api/version", handleVersion)
	mux.HandleFunc("GET /api/log/latest", handleLatestLog)
	if stats != nil {
		mux.Handle("GET /api/stats", stats)
	}

	// 2. Maps capability
	mux.HandleFunc("GET /api/maps/status", func(w http.ResponseWriter, r *http.Request) {
		st := maps.Status{Available: false, Message: maps.Message(maps.ErrMissingCredential)}
		if mapsStatus != nil {
			st = mapsStatus.Status()
		}
		writeJSON(w, http.StatusOK, st)
	})

	// 3. Itinerary
	if days != nil {
		mux.HandleFunc("GET /api/days", days.HandleList)
		mux.HandleFunc("GET /api/days/{day}", days.HandleGet)
		mux.HandleFunc("POST /api/days/{day}/spots/{id}/resolve", days.HandleResolve)
		mux.HandleFunc("POST /api/days/{day}/route", days.HandleRoute)
		mux.HandleFunc("POST /api/days/{day}/nearby", days.HandleNearby)
	}

	// 4. Player
	if playerH != nil {
		mux.HandleFunc("GET /api/player/state", playerH.HandleState)
		mux.HandleFunc("POST /api/player/control", playerH.HandleControl)
	}
	if hub != nil {
		mux.Handle("GET /ws/player", hub)
	}

	// 5. Shutdown
	mux.HandleFunc("POST /api/shutdown", func(w http.ResponseWriter, r *http.Request) {
		slog.Info("Graceful shutdown initiated via API")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("Shutting down...")); err != nil {
			slog.Error("Failed to write shutdown response", "error", err)
		}
		// Let the response flush first.
		go func() {
			time.Sleep(100 * time.Millisecond)
			shutdown()
		}()
	})

	// 6. Static assets
	if assetsDir != "" {
		mux.Handle("/", http.FileServer(&spaFileSystem{root: http.Dir(assetsDir)}))
	}

	// No WriteTimeout: it would cut long-lived player sockets.
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health response", "error", err)
	}
}

func handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": version.Version})
}
