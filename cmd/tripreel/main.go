package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tripreel/internal/api"
	"tripreel/pkg/audio"
	"tripreel/pkg/cache"
	"tripreel/pkg/config"
	"tripreel/pkg/db"
	"tripreel/pkg/db/maintenance"
	"tripreel/pkg/itinerary"
	"tripreel/pkg/logging"
	"tripreel/pkg/maps"
	"tripreel/pkg/model"
	"tripreel/pkg/nearby"
	"tripreel/pkg/player"
	"tripreel/pkg/probe"
	"tripreel/pkg/request"
	"tripreel/pkg/resolver"
	"tripreel/pkg/route"
	"tripreel/pkg/store"
	"tripreel/pkg/tracker"
	"tripreel/pkg/version"
)

const defaultConfigPath = "configs/tripreel.yaml"

var (
	initConfig    = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath    = flag.String("config", defaultConfigPath, "Path to the config file")
	itineraryPath = flag.String("itinerary", "", "Itinerary YAML (defaults to the bundled trip)")
	clipsPath     = flag.String("clips", "", "Clip list YAML (defaults to the bundled slideshow)")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background(), *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	appCfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("tripreel started", "version", version.Version)

	st, dbConn, dbProbe, err := initStore(ctx, appCfg)
	if err != nil {
		return err
	}
	defer st.Close()

	tr := tracker.New()
	prov := config.NewProvider(appCfg, st)
	reqClient := request.New(tr, request.Options{
		Timeout:   time.Duration(appCfg.Request.Timeout),
		Retries:   appCfg.Request.Retries,
		BaseDelay: time.Duration(appCfg.Request.Backoff.BaseDelay),
		MaxDelay:  time.Duration(appCfg.Request.Backoff.MaxDelay),
		Rate:      appCfg.Request.Rate,
	})
	defer reqClient.Close()

	svcs, err := initCore(ctx, appCfg, prov, st, tr, reqClient)
	if err != nil {
		return err
	}

	hub := api.NewHub()
	defer hub.Close()

	bgm := audio.SelectSource(ctx, reqClient, appCfg.Server.AssetsDir, appCfg.Player.BGM.LocalPath, appCfg.Player.BGM.FallbackURL)
	pc, err := initPlayer(appCfg, prov, hub, bgm)
	if err != nil {
		return err
	}
	defer pc.Close()

	probes := []probe.Probe{
		dbProbe,
		probe.MapsCredential(svcs.Maps),
		probe.BGMSource(bgm, appCfg.Player.BGM.Enabled),
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	var rows api.RowCounter
	if dbConn != nil {
		rows = dbConn
	}
	srv := api.NewServer(appCfg.Server.Address, appCfg.Server.AssetsDir,
		api.NewDaysHandler(svcs.Itinerary, svcs.Overlay, svcs.Resolver, svcs.Planner, svcs.Ranker),
		pc.Controls,
		hub,
		api.NewStatsHandler(tr, svcs.Cache, rows, hub),
		svcs.Maps,
		shutdownFunc,
	)
	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit)
}

// initStore opens the durable tier selected by cache.backend. dbConn is nil
// unless the backend is sqlite.
func initStore(ctx context.Context, cfg *config.Config) (store.Store, *db.DB, probe.Probe, error) {
	switch cfg.Cache.Backend {
	case "redis":
		rs, err := store.NewRedisStore(ctx, store.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, probe.Probe{}, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return rs, nil, probe.Database(rs), nil
	case "memory":
		slog.Warn("Cache backend is memory, nothing survives a restart")
		ms := store.NewMemoryStore()
		return ms, nil, probe.Database(probe.PingerFunc(func(context.Context) error { return nil })), nil
	default:
		dbConn, err := db.Init(cfg.DB.Path)
		if err != nil {
			return nil, nil, probe.Probe{}, fmt.Errorf("failed to initialize database: %w", err)
		}
		var opts []store.SQLiteOption
		if cfg.Cache.MaxValueBytes > 0 {
			opts = append(opts, store.WithMaxValueBytes(cfg.Cache.MaxValueBytes))
		}
		st := store.NewSQLiteStore(dbConn, opts...)
		maintenance.Run(ctx, st, dbConn, maintenance.Options{
			Version:   version.Version,
			Retention: time.Duration(cfg.Cache.Retention),
		})
		return st, dbConn, probe.Database(probe.PingerFunc(dbConn.PingContext)), nil
	}
}

// CoreServices groups the itinerary, cache and map-backed components.
type CoreServices struct {
	Itinerary *itinerary.Itinerary
	Overlay   *itinerary.Overlay
	Cache     *cache.Tiered
	Maps      *maps.GoogleClient
	Resolver  *resolver.Resolver
	Planner   *route.Planner
	Ranker    *nearby.Ranker
}

func initCore(ctx context.Context, cfg *config.Config, prov config.Provider, st store.Store, tr *tracker.Tracker, reqClient *request.Client) (*CoreServices, error) {
	it, err := loadItinerary(*itineraryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load itinerary: %w", err)
	}

	ttl := prov.CacheTTL(ctx)
	c := cache.New(st, cache.WithTracker(tr), cache.WithDefaultTTL(ttl))
	gm := maps.NewGoogleClient(reqClient, maps.GoogleOptions{
		Key:      cfg.Maps.Key,
		BaseURL:  cfg.Maps.BaseURL,
		Language: cfg.Maps.Language,
		Tracker:  tr,
	})
	if status := gm.Status(); !status.Available {
		slog.Warn("Map features disabled", "reason", status.Message)
	}

	ov := itinerary.NewOverlay()
	res := resolver.New(gm, c, resolver.WithTTL(ttl), resolver.OnResolved(ov.Set))
	slog.Info("Itinerary loaded", "days", it.Len())

	return &CoreServices{
		Itinerary: it,
		Overlay:   ov,
		Cache:     c,
		Maps:      gm,
		Resolver:  res,
		Planner:   route.NewPlanner(gm, res, c, ttl),
		Ranker: nearby.NewRanker(gm, c, nearby.Options{
			Radius: prov.SearchRadius(ctx),
			Type:   prov.NearbyType(ctx),
			TTL:    ttl,
		}),
	}, nil
}

func loadItinerary(path string) (*itinerary.Itinerary, error) {
	if path == "" {
		return itinerary.LoadEmbedded()
	}
	return itinerary.LoadFile(path)
}

func loadClips(path string) ([]model.Clip, error) {
	if path == "" {
		return player.LoadEmbeddedClips()
	}
	return player.LoadClipsFile(path)
}

// PlayerComponents is the playback engine bound to its media surfaces.
type PlayerComponents struct {
	Engine   *player.Engine
	Controls *api.PlayerHandler
	closers  []func()
}

func (p *PlayerComponents) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
}

func initPlayer(cfg *config.Config, prov config.Provider, hub *api.Hub, bgm audio.Source) (*PlayerComponents, error) {
	clips, err := loadClips(*clipsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load clips: %w", err)
	}

	pc := &PlayerComponents{}
	var out audio.Output
	remoteSrc := ""
	// Wired even when disabled so it can be toggled on.
	if bgm.Location != "" {
		if cfg.Player.BGM.Output == "local" && !bgm.Fallback {
			lp, err := audio.NewLoopPlayer(audio.LocalPath(cfg.Server.AssetsDir, bgm.Location), time.Duration(cfg.Player.FrameInterval))
			if err != nil {
				slog.Warn("Local BGM unavailable, using the browser", "error", err)
				remoteSrc = bgm.Location
			} else {
				out = lp
				pc.closers = append(pc.closers, func() { _ = lp.Close() })
			}
		} else {
			remoteSrc = bgm.Location
		}
	}

	remote := api.NewRemote(hub, remoteSrc)
	if out == nil {
		out = remote.Audio()
	}

	engine, err := player.New(clips, remote.Media(), player.Options{
		Config:    cfg.Player,
		Prefs:     prov,
		BGM:       out,
		BGMSource: bgm.Location,
	})
	if err != nil {
		pc.Close()
		return nil, fmt.Errorf("failed to create player: %w", err)
	}
	pc.Engine = engine
	pc.Controls = api.NewPlayerHandler(engine)
	pc.closers = append(pc.closers, engine.Close, remote.Attach(engine, pc.Controls))

	slog.Debug("BGM source selected", "bgm", bgm.Location, "fallback", bgm.Fallback, "output", cfg.Player.BGM.Output)
	return pc, nil
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.RequestLogger.Info("Request Processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
