package config

import (
	"context"
	"strconv"
	"time"

	"tripreel/pkg/store"
)

// Provider defines the interface for accessing unified configuration.
type Provider interface {
	// Player preferences
	Volume(ctx context.Context) float64
	Muted(ctx context.Context) bool
	PlaybackRate(ctx context.Context) float64
	BGMEnabled(ctx context.Context) bool
	SavePlayerPrefs(ctx context.Context, prefs PlayerPrefs) error

	// Places
	SearchRadius(ctx context.Context) float64
	NearbyType(ctx context.Context) string

	// Cache
	CacheTTL(ctx context.Context) time.Duration

	// Raw access
	AppConfig() *Config
}

// PlayerPrefs is the user-adjustable subset of the player state that survives restarts.
type PlayerPrefs struct {
	Volume     float64
	Muted      bool
	Rate       float64
	BGMEnabled bool
}

// UnifiedProvider implements Provider by bridging static Config and persistent Store.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore
}

// NewProvider creates a new UnifiedProvider. st may be nil.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	return &UnifiedProvider{
		base:  base,
		store: st,
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

func (p *UnifiedProvider) Volume(ctx context.Context) float64 {
	v := p.getFloat64(ctx, KeyPlayerVolume, p.base.Player.DefaultVolume)
	if v < 0 || v > 1 {
		return p.base.Player.DefaultVolume
	}
	return v
}

func (p *UnifiedProvider) Muted(ctx context.Context) bool {
	return p.getBool(ctx, KeyPlayerMuted, p.base.Player.StartMuted)
}

func (p *UnifiedProvider) PlaybackRate(ctx context.Context) float64 {
	r := p.getFloat64(ctx, KeyPlayerRate, p.base.Player.DefaultRate)
	if r < p.base.Player.MinRate || r > p.base.Player.MaxRate {
		return p.base.Player.DefaultRate
	}
	return r
}

func (p *UnifiedProvider) BGMEnabled(ctx context.Context) bool {
	return p.getBool(ctx, KeyBGMEnabled, p.base.Player.BGM.Enabled)
}

// SavePlayerPrefs persists the preferences. It is a no-op without a state store.
func (p *UnifiedProvider) SavePlayerPrefs(ctx context.Context, prefs PlayerPrefs) error {
	if p.store == nil {
		return nil
	}
	vals := map[string]string{
		KeyPlayerVolume: strconv.FormatFloat(prefs.Volume, 'f', 3, 64),
		KeyPlayerMuted:  strconv.FormatBool(prefs.Muted),
		KeyPlayerRate:   strconv.FormatFloat(prefs.Rate, 'f', 3, 64),
		KeyBGMEnabled:   strconv.FormatBool(prefs.BGMEnabled),
	}
	for k, v := range vals {
		if err := p.store.SetState(ctx, k, v); err != nil {
			return err
		}
	}
	return nil
}

func (p *UnifiedProvider) SearchRadius(ctx context.Context) float64 {
	return p.getFloat64(ctx, KeySearchRadius, p.base.Maps.SearchRadius.Meters())
}

func (p *UnifiedProvider) NearbyType(ctx context.Context) string {
	return p.getString(ctx, KeyNearbyType, p.base.Maps.NearbyType)
}

func (p *UnifiedProvider) CacheTTL(ctx context.Context) time.Duration {
	return p.getDuration(ctx, KeyCacheTTL, time.Duration(p.base.Cache.TTL))
}

// --- Helpers ---

func (p *UnifiedProvider) getString(ctx context.Context, key, fallback string) string {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val
		}
	}
	return fallback
}

func (p *UnifiedProvider) getFloat64(ctx context.Context, key string, fallback float64) float64 {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				return f
			}
		}
	}
	return fallback
}

func (p *UnifiedProvider) getBool(ctx context.Context, key string, fallback bool) bool {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			return val == "true"
		}
	}
	return fallback
}

func (p *UnifiedProvider) getDuration(ctx context.Context, key string, fallback time.Duration) time.Duration {
	if p.store != nil {
		if val, ok := p.store.GetState(ctx, key); ok && val != "" {
			if dur, err := ParseDuration(val); err == nil {
				return dur
			}
		}
	}
	return fallback
}
