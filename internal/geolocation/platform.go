package geolocation

import (
	"context"
	"fmt"
	"time"
)

// Options tune a fix request. Zero fields take the defaults.
type Options struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	MaxAge             time.Duration
	DistanceFilter     float64 // meters between watch deliveries; zero delivers every change
}

const (
	defaultTimeout        = 15 * time.Second
	defaultMaxAge         = 10 * time.Second
	defaultDistanceFilter = 10.0
)

// DefaultOptions returns high accuracy, 15s timeout, 10s max age and a 10m
// watch distance filter.
func DefaultOptions() Options {
	return Options{
		EnableHighAccuracy: true,
		Timeout:            defaultTimeout,
		MaxAge:             defaultMaxAge,
		DistanceFilter:     defaultDistanceFilter,
	}
}

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxAge < 0 {
		o.MaxAge = 0
	}
	if o.DistanceFilter < 0 {
		o.DistanceFilter = 0
	}
	return o
}

// Position is a raw platform reading.
type Position struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	Timestamp time.Time // when the platform produced the reading
}

// PositionErrorCode mirrors the platform geolocation error codes.
type PositionErrorCode int

const (
	CodePermissionDenied    PositionErrorCode = 1
	CodePositionUnavailable PositionErrorCode = 2
	CodeTimeout             PositionErrorCode = 3
)

// PositionError is returned by platforms for classified failures.
type PositionError struct {
	Code    PositionErrorCode
	Message string
}

func (e *PositionError) Error() string {
	return fmt.Sprintf("position error %d: %s", e.Code, e.Message)
}

// WatchID identifies a platform watch.
type WatchID int64

// Platform is the host geolocation API.
type Platform interface {
	// Available reports whether the host has a location capability at all.
	Available() bool
	// CurrentPosition produces one reading. Implementations should honour ctx
	// but are not required to; the provider enforces its own timeout.
	CurrentPosition(ctx context.Context, opts Options) (Position, error)
	// WatchPosition starts continuous readings until ClearWatch(id).
	WatchPosition(onPosition func(Position), onError func(error), opts Options) (WatchID, error)
	// ClearWatch stops a watch; unknown ids are ignored.
	ClearWatch(id WatchID)
}
