package app

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/five82/nearby/internal/api"
	"github.com/five82/nearby/internal/config"
	"github.com/five82/nearby/internal/geolocation"
	"github.com/five82/nearby/internal/nearby"
	"github.com/five82/nearby/internal/permission"
	"github.com/five82/nearby/internal/session"
	"github.com/five82/nearby/internal/state"
	"github.com/five82/nearby/internal/tracker"
)

// Components is the wired location subsystem.
type Components struct {
	Store    *state.Store
	Manager  *tracker.Manager
	Client   *api.Client
	Sessions *session.Holder
	Gate     *permission.Gate
	Location *geolocation.Provider
}

// Build wires the location subsystem from cfg. A missing token is not an
// error: the manager stays idle until a session exists.
func Build(cfg config.Config, logger, debug *log.Logger) (*Components, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	token, err := session.LoadToken(cfg.API.Token, cfg.API.TokenFile)
	if err != nil {
		return nil, fmt.Errorf("load session token: %w", err)
	}
	sessions := session.NewHolder(nil)
	if token != "" {
		s, err := session.FromToken(token)
		if err != nil {
			return nil, fmt.Errorf("invalid session token: %w", err)
		}
		sessions.Set(s)
		logger.Printf("app: signed in as %s", s.UserID)
	} else {
		logger.Printf("app: %v, tracking stays idle", session.ErrNoToken)
	}

	client, err := api.NewClient(cfg.API.BaseURL, api.StaticToken(token))
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}

	status, err := permission.ParseStatus(cfg.Permission.Status)
	if err != nil {
		return nil, fmt.Errorf("permission.status: %w", err)
	}
	answer, err := permission.ParseStatus(cfg.Permission.Answer)
	if err != nil {
		return nil, fmt.Errorf("permission.answer: %w", err)
	}
	gate := permission.NewGate(permission.NewStaticPlatform(status, answer), logger)

	sim := geolocation.NewSimulator(geolocation.SimulatorConfig{
		Latitude:       cfg.Simulator.Latitude,
		Longitude:      cfg.Simulator.Longitude,
		JitterMeters:   cfg.Simulator.JitterMeters,
		AccuracyMeters: cfg.Simulator.AccuracyMeters,
		Latency:        cfg.Simulator.Latency,
		WatchInterval:  cfg.Simulator.WatchInterval,
		Unavailable:    status == permission.StatusUnavailable,
	})
	location := geolocation.NewProvider(sim, gate, logger)

	store := &state.Store{}
	manager := tracker.New(tracker.Config{
		RefreshInterval: cfg.Tracker.RefreshInterval,
		RadiusMeters:    cfg.Tracker.RadiusMeters,
		Watch:           cfg.Tracker.Watch,
		UploadInterval:  cfg.Tracker.UploadInterval,
		FixOptions: geolocation.Options{
			EnableHighAccuracy: cfg.Tracker.HighAccuracy,
			Timeout:            cfg.Tracker.FixTimeout,
			MaxAge:             cfg.Tracker.FixMaxAge,
			DistanceFilter:     geolocation.DefaultOptions().DistanceFilter,
		},
	}, tracker.Deps{
		Gate:     gate,
		Location: location,
		Nearby:   nearby.NewSynchronizer(client, cfg.Tracker.Limit, debug),
		Uploader: client,
		Sessions: sessions,
		Store:    store,
		Logger:   logger,
		Debug:    debug,
	})

	return &Components{
		Store:    store,
		Manager:  manager,
		Client:   client,
		Sessions: sessions,
		Gate:     gate,
		Location: location,
	}, nil
}

// openLog opens path for appending, creating its directory.
func openLog(path string) (*os.File, error) {
	if path == "" {
		return nil, errors.New("log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// newLoggers returns the main logger and, when enabled, the debug logger.
func newLoggers(w io.Writer, debugEnabled bool) (*log.Logger, *log.Logger) {
	logger := log.New(w, "", log.LstdFlags)
	if !debugEnabled {
		return logger, nil
	}
	return logger, log.New(w, "", log.LstdFlags|log.Lmicroseconds)
}
