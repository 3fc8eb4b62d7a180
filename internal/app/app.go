package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/five82/nearby/internal/config"
	"github.com/five82/nearby/internal/prefs"
	"github.com/five82/nearby/internal/ui"
)

// Options configure the nearby application.
type Options struct {
	ConfigPath string
	PrefsPath  string  // empty uses default ~/.config/nearby/prefs.toml
	PollEvery  int     // seconds; zero uses tracker.refresh_interval
	Radius     float64 // meters; zero uses tracker.radius_meters
}

// Run boots the nearby TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyOverrides(&cfg, opts)

	logFile, err := openLog(cfg.LogFile)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()

	// The TUI owns the terminal, so everything logs to the file.
	log.SetOutput(logFile)
	logger, debug := newLoggers(logFile, cfg.Debug)

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	c, err := Build(cfg, logger, debug)
	if err != nil {
		return err
	}
	defer c.Manager.Unmount()

	logger.Printf("app: starting, api %s, refresh %s, radius %.0fm",
		cfg.API.BaseURL, cfg.Tracker.RefreshInterval, cfg.Tracker.RadiusMeters)

	return ui.Run(ui.Options{
		Context:   ctx,
		Tracker:   c.Manager,
		Store:     c.Store,
		LogPath:   cfg.LogFile,
		PollTick:  ui.DefaultUIInterval,
		ThemeName: userPrefs.Theme,
		Units:     userPrefs.Units,
		PrefsPath: opts.PrefsPath,
	})
}

func applyOverrides(cfg *config.Config, opts Options) {
	if opts.PollEvery > 0 {
		cfg.Tracker.RefreshInterval = time.Duration(opts.PollEvery) * time.Second
	}
	if opts.Radius > 0 {
		cfg.Tracker.RadiusMeters = opts.Radius
	}
}
