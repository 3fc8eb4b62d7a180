package geolocation

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/five82/nearby/internal/geo"
)

// SimulatorConfig describes a synthetic device position.
type SimulatorConfig struct {
	Latitude       float64
	Longitude      float64
	JitterMeters   float64
	AccuracyMeters float64
	Latency        time.Duration
	WatchInterval  time.Duration
	Unavailable    bool
}

// Simulator is a Platform that wanders within JitterMeters of a fixed origin.
// It stands in for device hardware on hosts without one.
type Simulator struct {
	cfg SimulatorConfig
	now func() time.Time

	mu      sync.Mutex
	rng     *rand.Rand
	watches map[WatchID]chan struct{}
	nextID  WatchID
}

// NewSimulator returns a Simulator. A zero WatchInterval defaults to 5s.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.WatchInterval <= 0 {
		cfg.WatchInterval = 5 * time.Second
	}
	if cfg.JitterMeters < 0 {
		cfg.JitterMeters = 0
	}
	seed := uint64(time.Now().UnixNano())
	return &Simulator{
		cfg:     cfg,
		now:     time.Now,
		rng:     rand.New(rand.NewPCG(seed, seed>>1)),
		watches: make(map[WatchID]chan struct{}),
	}
}

// Available implements Platform.
func (s *Simulator) Available() bool {
	return !s.cfg.Unavailable
}

// CurrentPosition implements Platform.
func (s *Simulator) CurrentPosition(ctx context.Context, _ Options) (Position, error) {
	if s.cfg.Unavailable {
		return Position{}, &PositionError{Code: CodePositionUnavailable, Message: "simulator disabled"}
	}
	if s.cfg.Latency > 0 {
		timer := time.NewTimer(s.cfg.Latency)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Position{}, &PositionError{Code: CodeTimeout, Message: ctx.Err().Error()}
		case <-timer.C:
		}
	}
	return s.sample(), nil
}

// WatchPosition implements Platform.
func (s *Simulator) WatchPosition(onPosition func(Position), _ func(error), _ Options) (WatchID, error) {
	if s.cfg.Unavailable {
		return 0, &PositionError{Code: CodePositionUnavailable, Message: "simulator disabled"}
	}
	stop := make(chan struct{})
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.watches[id] = stop
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.cfg.WatchInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if onPosition != nil {
					onPosition(s.sample())
				}
			}
		}
	}()
	return id, nil
}

// ClearWatch implements Platform.
func (s *Simulator) ClearWatch(id WatchID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stop, ok := s.watches[id]
	if !ok {
		return
	}
	delete(s.watches, id)
	close(stop)
}

// ActiveWatches returns the number of running watches.
func (s *Simulator) ActiveWatches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watches)
}

func (s *Simulator) sample() Position {
	s.mu.Lock()
	north := (s.rng.Float64()*2 - 1) * s.cfg.JitterMeters
	east := (s.rng.Float64()*2 - 1) * s.cfg.JitterMeters
	s.mu.Unlock()

	lat, lng := geo.Offset(s.cfg.Latitude, s.cfg.Longitude, north, east)
	return Position{
		Latitude:  lat,
		Longitude: lng,
		Accuracy:  s.cfg.AccuracyMeters,
		Timestamp: s.now(),
	}
}
