package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Maps    MapsConfig    `yaml:"maps"`
	Cache   CacheConfig   `yaml:"cache"`
	Request RequestConfig `yaml:"request"`
	Player  PlayerConfig  `yaml:"player"`
	Log     LogConfig     `yaml:"log"`
	DB      DBConfig      `yaml:"db"`
	Server  ServerConfig  `yaml:"server"`
}

// MapsConfig holds settings for the geocoding/places/directions provider.
type MapsConfig struct {
	Key          string   `yaml:"key"`           // API Key (falls back to MAPS_API_KEY)
	BaseURL      string   `yaml:"base_url"`      // e.g. https://maps.googleapis.com/maps/api
	Language     string   `yaml:"language"`      // e.g. "ko"
	SearchRadius Distance `yaml:"search_radius"` // Nearby search radius
	NearbyType   string   `yaml:"nearby_type"`   // Place type for recommendations
}

// CacheConfig holds settings for the two-tier response cache.
type CacheConfig struct {
	Backend string      `yaml:"backend"` // "sqlite", "redis", "memory"
	TTL     Duration    `yaml:"ttl"`
	Redis   RedisConfig `yaml:"redis"`
	// MaxValueBytes rejects durable writes larger than this (0 = unlimited).
	MaxValueBytes int `yaml:"max_value_bytes"`
	// Retention prunes sqlite rows not written for this long at startup.
	Retention Duration `yaml:"retention"`
}

// RedisConfig holds connection settings for the redis durable tier.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// RequestConfig holds HTTP request settings.
type RequestConfig struct {
	Retries int           `yaml:"retries"`
	Timeout Duration      `yaml:"timeout"`
	Rate    float64       `yaml:"rate"` // Requests per second per provider
	Backoff BackoffConfig `yaml:"backoff"`
}

// BackoffConfig holds exponential backoff settings.
type BackoffConfig struct {
	BaseDelay Duration `yaml:"base_delay"`
	MaxDelay  Duration `yaml:"max_delay"`
}

// PlayerConfig holds settings for the slideshow playback engine.
type PlayerConfig struct {
	Transition    Duration    `yaml:"transition"`
	DefaultRate   float64     `yaml:"default_rate"`
	MinRate       float64     `yaml:"min_rate"`
	MaxRate       float64     `yaml:"max_rate"`
	DefaultVolume float64     `yaml:"default_volume"`
	StartMuted    bool        `yaml:"start_muted"`
	SwipeIndex    int         `yaml:"swipe_index"`
	FrameInterval Duration    `yaml:"frame_interval"`
	BGM           BGMConfig   `yaml:"bgm"`
	Fades         FadesConfig `yaml:"fades"`
}

// BGMConfig holds background music settings.
type BGMConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Output      string `yaml:"output"`       // "remote" (browser) or "local" (speaker)
	LocalPath   string `yaml:"local_path"`   // Site path under Server.AssetsDir, probed at startup
	FallbackURL string `yaml:"fallback_url"` // Used when the local asset is missing
}

// FadesConfig holds the audio envelope durations.
type FadesConfig struct {
	Start   Duration `yaml:"start"`
	Resume  Duration `yaml:"resume"`
	Pause   Duration `yaml:"pause"`
	BGMOn   Duration `yaml:"bgm_on"`
	BGMOff  Duration `yaml:"bgm_off"`
	JumpIn  Duration `yaml:"jump_in"`
	Preload Duration `yaml:"preload_lead"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Server   LogSettings `yaml:"server"`
	Requests LogSettings `yaml:"requests"`
	// Trace logs every progress tick at DEBUG.
	Trace bool `yaml:"trace"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// DBConfig holds database settings.
type DBConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address   string `yaml:"address"`
	AssetsDir string `yaml:"assets_dir"` // Web UI, videos and music, served at /
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Maps: MapsConfig{
			BaseURL:      "https://maps.googleapis.com/maps/api",
			Language:     "ko",
			SearchRadius: Distance(1500),
			NearbyType:   "restaurant",
		},
		Cache: CacheConfig{
			Backend:   "sqlite",
			TTL:       Duration(6 * time.Hour),
			Retention: Duration(30 * 24 * time.Hour),
			Redis: RedisConfig{
				Addr:   "localhost:6379",
				Prefix: "tripreel:",
			},
		},
		Request: RequestConfig{
			Retries: 3,
			Timeout: Duration(30 * time.Second),
			Rate:    10,
			Backoff: BackoffConfig{
				BaseDelay: Duration(500 * time.Millisecond),
				MaxDelay:  Duration(30 * time.Second),
			},
		},
		Player: PlayerConfig{
			Transition:    Duration(800 * time.Millisecond),
			DefaultRate:   0.8,
			MinRate:       0.6,
			MaxRate:       1.25,
			DefaultVolume: 0.4,
			StartMuted:    true,
			SwipeIndex:    5,
			FrameInterval: Duration(16 * time.Millisecond),
			BGM: BGMConfig{
				Enabled:     true,
				Output:      "remote",
				LocalPath:   "/audio/bgm.mp3",
				FallbackURL: "https://assets.mixkit.co/music/preview/mixkit-forest-trek-117.mp3",
			},
			Fades: FadesConfig{
				Start:   Duration(600 * time.Millisecond),
				Resume:  Duration(500 * time.Millisecond),
				Pause:   Duration(400 * time.Millisecond),
				BGMOn:   Duration(600 * time.Millisecond),
				BGMOff:  Duration(500 * time.Millisecond),
				JumpIn:  Duration(500 * time.Millisecond),
				Preload: Duration(800 * time.Millisecond),
			},
		},
		Log: LogConfig{
			Server: LogSettings{
				Path:  "./logs/server.log",
				Level: "INFO",
			},
			Requests: LogSettings{
				Path:  "./logs/requests.log",
				Level: "INFO",
			},
		},
		DB: DBConfig{
			Path: "./data/tripreel.db",
		},
		Server: ServerConfig{
			Address:   "localhost:3080",
			AssetsDir: "./assets",
		},
	}
}

// Load loads the configuration from the given path.
// A .env file next to the working directory is loaded first so secrets can stay out of the YAML.
// If the file does not exist, it is created with default values.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("Failed to load .env file", "error", err)
	}

	cfg := DefaultConfig()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}

	// Env fallback is never written back to disk.
	if cfg.Maps.Key == "" {
		cfg.Maps.Key = os.Getenv("MAPS_API_KEY")
	}
	if cfg.Cache.Redis.Password == "" {
		cfg.Cache.Redis.Password = os.Getenv("REDIS_PASSWORD")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges that would otherwise break the player or cache.
func (c *Config) Validate() error {
	p := c.Player
	if p.MinRate <= 0 || p.MaxRate < p.MinRate {
		return fmt.Errorf("invalid player rate range [%.2f, %.2f]", p.MinRate, p.MaxRate)
	}
	if p.DefaultVolume < 0 || p.DefaultVolume > 1 {
		return fmt.Errorf("invalid player default_volume %.2f: must be within [0, 1]", p.DefaultVolume)
	}
	if p.Transition <= 0 {
		return fmt.Errorf("invalid player transition %v", time.Duration(p.Transition))
	}
	switch c.Cache.Backend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("invalid cache backend '%s': must be sqlite, redis or memory", c.Cache.Backend)
	}
	switch p.BGM.Output {
	case "remote", "local":
	default:
		return fmt.Errorf("invalid bgm output '%s': must be remote or local", p.BGM.Output)
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	// Never persist secrets that came from the environment.
	out := *cfg
	out.Maps.Key = ""
	out.Cache.Redis.Password = ""

	data, err := yaml.Marshal(&out)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# tripreel Configuration
# ---------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles)
# The maps key may be left empty here and provided via MAPS_API_KEY (or .env).

`)
	data = append(header, data...)

	reBackend := regexp.MustCompile(`(?m)^(\s+)backend:`)
	data = reBackend.ReplaceAll(data, []byte("${1}# Options: sqlite, redis, memory\n${1}backend:"))

	reOutput := regexp.MustCompile(`(?m)^(\s+)output:`)
	data = reOutput.ReplaceAll(data, []byte("${1}# Options: remote, local\n${1}output:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return Save(path, DefaultConfig())
}
