package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/five82/nearby/internal/geo"
)

// Config is the resolved nearby configuration.
type Config struct {
	API        API
	Tracker    Tracker
	Permission Permission
	Simulator  Simulator
	LogFile    string
	Debug      bool
}

// API locates the backend and the bearer token.
type API struct {
	BaseURL   string
	Token     string
	TokenFile string
}

// Tracker tunes the location manager.
type Tracker struct {
	RefreshInterval time.Duration
	RadiusMeters    float64
	Limit           int
	Watch           bool
	FixTimeout      time.Duration
	FixMaxAge       time.Duration
	HighAccuracy    bool
	UploadInterval  time.Duration
}

// Permission stands in for the device permission settings: Status is what a
// check reports, Answer is the response to a prompt.
type Permission struct {
	Status string
	Answer string
}

// Simulator places the synthetic device.
type Simulator struct {
	Latitude       float64
	Longitude      float64
	JitterMeters   float64
	AccuracyMeters float64
	Latency        time.Duration
	WatchInterval  time.Duration
}

const (
	defaultConfigPath      = "~/.config/nearby/config.toml"
	defaultLogFile         = "~/.local/share/nearby/nearby.log"
	defaultBaseURL         = "http://127.0.0.1:8080"
	defaultRefreshInterval = 30 * time.Second
	defaultRadiusMeters    = 5000.0
	defaultLimit           = 50
	defaultFixTimeout      = 15 * time.Second
	defaultFixMaxAge       = 10 * time.Second
	defaultUploadInterval  = 10 * time.Second
	defaultStatus          = "ask"
	defaultAnswer          = "granted"
	defaultLatitude        = 37.78825
	defaultLongitude       = -122.4324
	defaultJitterMeters    = 25.0
	defaultAccuracyMeters  = 10.0
	defaultLatency         = 200 * time.Millisecond
	defaultWatchInterval   = 5 * time.Second
)

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		API: API{BaseURL: defaultBaseURL},
		Tracker: Tracker{
			RefreshInterval: defaultRefreshInterval,
			RadiusMeters:    defaultRadiusMeters,
			Limit:           defaultLimit,
			FixTimeout:      defaultFixTimeout,
			FixMaxAge:       defaultFixMaxAge,
			HighAccuracy:    true,
			UploadInterval:  defaultUploadInterval,
		},
		Permission: Permission{Status: defaultStatus, Answer: defaultAnswer},
		Simulator: Simulator{
			Latitude:       defaultLatitude,
			Longitude:      defaultLongitude,
			JitterMeters:   defaultJitterMeters,
			AccuracyMeters: defaultAccuracyMeters,
			Latency:        defaultLatency,
			WatchInterval:  defaultWatchInterval,
		},
		LogFile: mustExpand(defaultLogFile),
	}
}

type rawConfig struct {
	API struct {
		BaseURL   string `toml:"base_url"`
		Token     string `toml:"token"`
		TokenFile string `toml:"token_file"`
	} `toml:"api"`
	Tracker struct {
		RefreshInterval string   `toml:"refresh_interval"`
		RadiusMeters    *float64 `toml:"radius_meters"`
		Limit           *int     `toml:"limit"`
		Watch           *bool    `toml:"watch"`
		FixTimeout      string   `toml:"fix_timeout"`
		FixMaxAge       string   `toml:"fix_max_age"`
		HighAccuracy    *bool    `toml:"high_accuracy"`
		UploadInterval  string   `toml:"upload_interval"`
	} `toml:"tracker"`
	Permission struct {
		Status string `toml:"status"`
		Answer string `toml:"answer"`
	} `toml:"permission"`
	Simulator struct {
		Latitude       *float64 `toml:"latitude"`
		Longitude      *float64 `toml:"longitude"`
		JitterMeters   *float64 `toml:"jitter_meters"`
		AccuracyMeters *float64 `toml:"accuracy_meters"`
		Latency        string   `toml:"latency"`
		WatchInterval  string   `toml:"watch_interval"`
	} `toml:"simulator"`
	LogFile string `toml:"log_file"`
	Debug   bool   `toml:"debug"`
}

// Load reads the config at path (default ~/.config/nearby/config.toml),
// falling back to defaults when the file is missing or a value is blank.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := apply(&cfg, raw); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func apply(cfg *Config, raw rawConfig) error {
	if v := strings.TrimSpace(raw.API.BaseURL); v != "" {
		cfg.API.BaseURL = v
	}
	cfg.API.Token = strings.TrimSpace(raw.API.Token)
	if v := strings.TrimSpace(raw.API.TokenFile); v != "" {
		cfg.API.TokenFile = mustExpand(v)
	}

	t := &cfg.Tracker
	durations := []struct {
		key   string
		value string
		dest  *time.Duration
	}{
		{"tracker.refresh_interval", raw.Tracker.RefreshInterval, &t.RefreshInterval},
		{"tracker.fix_timeout", raw.Tracker.FixTimeout, &t.FixTimeout},
		{"tracker.fix_max_age", raw.Tracker.FixMaxAge, &t.FixMaxAge},
		{"tracker.upload_interval", raw.Tracker.UploadInterval, &t.UploadInterval},
		{"simulator.latency", raw.Simulator.Latency, &cfg.Simulator.Latency},
		{"simulator.watch_interval", raw.Simulator.WatchInterval, &cfg.Simulator.WatchInterval},
	}
	for _, d := range durations {
		if err := parseDuration(d.key, d.value, d.dest); err != nil {
			return err
		}
	}
	if raw.Tracker.RadiusMeters != nil {
		if *raw.Tracker.RadiusMeters <= 0 {
			return fmt.Errorf("tracker.radius_meters must be positive, got %v", *raw.Tracker.RadiusMeters)
		}
		t.RadiusMeters = *raw.Tracker.RadiusMeters
	}
	if raw.Tracker.Limit != nil {
		if *raw.Tracker.Limit <= 0 {
			return fmt.Errorf("tracker.limit must be positive, got %d", *raw.Tracker.Limit)
		}
		t.Limit = *raw.Tracker.Limit
	}
	if raw.Tracker.Watch != nil {
		t.Watch = *raw.Tracker.Watch
	}
	if raw.Tracker.HighAccuracy != nil {
		t.HighAccuracy = *raw.Tracker.HighAccuracy
	}

	if v := strings.TrimSpace(raw.Permission.Status); v != "" {
		cfg.Permission.Status = strings.ToLower(v)
	}
	if v := strings.TrimSpace(raw.Permission.Answer); v != "" {
		cfg.Permission.Answer = strings.ToLower(v)
	}

	s := &cfg.Simulator
	if raw.Simulator.Latitude != nil {
		s.Latitude = *raw.Simulator.Latitude
	}
	if raw.Simulator.Longitude != nil {
		s.Longitude = *raw.Simulator.Longitude
	}
	if !geo.ValidCoordinate(s.Latitude, s.Longitude) {
		return fmt.Errorf("simulator position %v,%v is out of range", s.Latitude, s.Longitude)
	}
	if raw.Simulator.JitterMeters != nil && *raw.Simulator.JitterMeters >= 0 {
		s.JitterMeters = *raw.Simulator.JitterMeters
	}
	if raw.Simulator.AccuracyMeters != nil && *raw.Simulator.AccuracyMeters >= 0 {
		s.AccuracyMeters = *raw.Simulator.AccuracyMeters
	}

	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	cfg.Debug = raw.Debug
	return nil
}

func parseDuration(key, value string, dest *time.Duration) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	if d < 0 {
		return fmt.Errorf("%s must not be negative, got %s", key, d)
	}
	*dest = d
	return nil
}

// DefaultPath returns the expanded default config location.
func DefaultPath() string {
	return mustExpand(defaultConfigPath)
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
