package tracker

import (
	"context"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/five82/nearby/internal/api"
	"github.com/five82/nearby/internal/apperr"
	"github.com/five82/nearby/internal/geo"
	"github.com/five82/nearby/internal/geolocation"
	"github.com/five82/nearby/internal/permission"
	"github.com/five82/nearby/internal/session"
	"github.com/five82/nearby/internal/state"
)

const (
	DefaultRefreshInterval = 30 * time.Second
	DefaultUploadInterval  = 10 * time.Second
	uploadTimeout          = 10 * time.Second
)

// ErrNotMounted is returned by Refresh outside a Mount/Unmount pair.
var ErrNotMounted = errors.New("tracker: not mounted")

// Phase is the manager lifecycle state.
type Phase int

const (
	Idle Phase = iota
	Initializing
	Ready
	Failed
)

func (p Phase) String() string {
	switch p {
	case Initializing:
		return "initializing"
	case Ready:
		return "ready"
	case Failed:
		return "error"
	default:
		return "idle"
	}
}

// PermissionGate is satisfied by *permission.Gate.
type PermissionGate interface {
	CheckAndRequest(ctx context.Context) permission.State
}

// LocationSource is satisfied by *geolocation.Provider.
type LocationSource interface {
	CurrentFix(ctx context.Context, opts geolocation.Options) (geo.Fix, error)
	Watch(onFix func(geo.Fix), onError func(error), opts geolocation.Options) (geolocation.Subscription, error)
	Cancel(sub geolocation.Subscription)
}

// NearbySyncer is satisfied by *nearby.Synchronizer.
type NearbySyncer interface {
	Sync(ctx context.Context, fix geo.Fix, radiusMeters float64) ([]api.NearbyUser, error)
}

// Sessions is satisfied by *session.Holder.
type Sessions interface {
	Current() (session.Session, bool)
	Clear()
}

// Config tunes the manager. Zero fields take defaults.
type Config struct {
	RefreshInterval time.Duration
	RadiusMeters    float64
	FixOptions      geolocation.Options
	Watch           bool
	UploadInterval  time.Duration // minimum spacing between location uploads
}

// Deps are the collaborators a Manager drives. Uploader may be nil.
type Deps struct {
	Gate     PermissionGate
	Location LocationSource
	Nearby   NearbySyncer
	Uploader api.LocationUploader
	Sessions Sessions
	Store    *state.Store
	Logger   *log.Logger
	Debug    *log.Logger
}

// Manager runs the permission → fix → upload → sync pipeline while the map is
// mounted, and repeats it on a timer once initialization succeeds.
type Manager struct {
	cfg      Config
	gate     PermissionGate
	location LocationSource
	nearby   NearbySyncer
	uploader api.LocationUploader
	sessions Sessions
	store    *state.Store
	logger   *log.Logger
	debug    *log.Logger

	cycle   *semaphore.Weighted
	uploads *rate.Limiter
	wg      sync.WaitGroup

	// mu guards the fields below and is held across every store write, so
	// nothing is published once Unmount has returned.
	mu      sync.Mutex
	phase   Phase
	mounted bool
	epoch   uint64
	runCtx  context.Context
	cancel  context.CancelFunc
	watch   geolocation.Subscription
}

// New builds a Manager. Store is required; a nil Logger or Debug discards.
func New(cfg Config, deps Deps) *Manager {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.UploadInterval <= 0 {
		cfg.UploadInterval = DefaultUploadInterval
	}
	if cfg.FixOptions == (geolocation.Options{}) {
		cfg.FixOptions = geolocation.DefaultOptions()
	}
	discard := log.New(io.Discard, "", 0)
	if deps.Logger == nil {
		deps.Logger = discard
	}
	if deps.Debug == nil {
		deps.Debug = discard
	}
	if deps.Store == nil {
		deps.Store = &state.Store{}
	}
	return &Manager{
		cfg:      cfg,
		gate:     deps.Gate,
		location: deps.Location,
		nearby:   deps.Nearby,
		uploader: deps.Uploader,
		sessions: deps.Sessions,
		store:    deps.Store,
		logger:   deps.Logger,
		debug:    deps.Debug,
		cycle:    semaphore.NewWeighted(1),
		uploads:  rate.NewLimiter(rate.Every(cfg.UploadInterval), 1),
	}
}

// Store returns the map state the manager publishes to.
func (m *Manager) Store() *state.Store {
	return m.store
}

// Phase returns the current lifecycle state.
func (m *Manager) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Mounted reports whether the manager is between Mount and Unmount.
func (m *Manager) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// Mount attaches the manager to the map view and runs initialization
// synchronously. Background work is bound to ctx and to the Mount/Unmount
// pair. Without a signed-in session the manager stays Idle. Mounting twice is
// a no-op.
func (m *Manager) Mount(ctx context.Context) error {
	m.mu.Lock()
	if m.mounted {
		m.mu.Unlock()
		return nil
	}
	m.mounted = true
	m.epoch++
	epoch := m.epoch
	m.runCtx, m.cancel = context.WithCancel(ctx)
	runCtx := m.runCtx
	m.phase = Idle
	m.mu.Unlock()

	return m.initialize(runCtx, epoch, true)
}

// Refresh runs a cycle on demand: a tick when Ready, a fresh initialization
// when Idle or Failed. A cycle already in flight makes it a no-op.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return ErrNotMounted
	}
	epoch, runCtx, phase := m.epoch, m.runCtx, m.phase
	m.mu.Unlock()

	// Work is cancelled by either the caller or Unmount.
	cycleCtx, cancel := context.WithCancel(runCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	switch phase {
	case Ready:
		return m.tick(cycleCtx, epoch)
	case Initializing:
		return nil
	default:
		return m.initialize(cycleCtx, epoch, false)
	}
}

// Unmount stops the timer, the watch and any in-flight cycle. Results that
// arrive afterwards are discarded. Safe to call at any time, any number of
// times.
func (m *Manager) Unmount() {
	m.mu.Lock()
	if !m.mounted {
		m.mu.Unlock()
		return
	}
	m.mounted = false
	m.epoch++
	if m.cancel != nil {
		m.cancel()
	}
	watch := m.watch
	m.watch = geolocation.Subscription{}
	m.phase = Idle
	m.mu.Unlock()

	if watch.Active() && m.location != nil {
		m.location.Cancel(watch)
	}
}

// initialize runs the first cycle of a mount. A fresh mount waits for a cycle
// left over from the previous mount, whose results the epoch guard discards;
// a manual retry skips when a cycle is in flight.
func (m *Manager) initialize(ctx context.Context, epoch uint64, wait bool) error {
	if wait {
		if err := m.cycle.Acquire(ctx, 1); err != nil {
			return err
		}
	} else if !m.cycle.TryAcquire(1) {
		m.debug.Printf("tracker: initialization skipped, cycle in flight")
		return nil
	}
	defer m.cycle.Release(1)

	if m.ready(epoch) {
		m.debug.Printf("tracker: initialization skipped, already ready")
		return nil
	}

	if !m.signedIn() {
		m.logger.Printf("tracker: no active session, staying idle")
		m.setPhase(epoch, Idle)
		return nil
	}
	if !m.setPhase(epoch, Initializing) {
		return nil
	}

	granted := permission.Denied
	if m.gate != nil {
		granted = m.gate.CheckAndRequest(ctx)
	}
	m.publish(epoch, func(s *state.Store) { s.SetPermission(granted) })
	if granted != permission.Granted {
		err := permissionError(granted)
		m.logger.Printf("tracker: %v", err)
		m.publish(epoch, func(s *state.Store) { s.SetError(err) })
		m.setPhase(epoch, Failed)
		return err
	}

	if err := m.runCycle(ctx, epoch); err != nil {
		m.logger.Printf("tracker: initialization failed: %v", err)
		m.setPhase(epoch, Failed)
		return err
	}
	m.start(epoch)
	return nil
}

func (m *Manager) tick(ctx context.Context, epoch uint64) error {
	if !m.cycle.TryAcquire(1) {
		m.debug.Printf("tracker: tick skipped, cycle in flight")
		return nil
	}
	defer m.cycle.Release(1)

	if !m.signedIn() {
		m.debug.Printf("tracker: tick skipped, no active session")
		return nil
	}
	if err := m.runCycle(ctx, epoch); err != nil {
		m.logger.Printf("tracker: refresh failed: %v", err)
		return err
	}
	return nil
}

// runCycle fetches a fix, uploads it and re-syncs the nearby list. Errors are
// published before they are returned; the nearby list is never cleared.
func (m *Manager) runCycle(ctx context.Context, epoch uint64) error {
	if m.location == nil || m.nearby == nil {
		return m.fail(epoch, apperr.New(apperr.Unknown, "tracker is missing a location source or nearby backend"))
	}

	m.publish(epoch, func(s *state.Store) { s.SetLocationLoading(true) })
	fix, err := m.location.CurrentFix(ctx, m.cfg.FixOptions)
	if err != nil {
		return m.fail(epoch, err)
	}
	if !m.publish(epoch, func(s *state.Store) { s.SetLocation(fix) }) {
		return context.Canceled
	}
	m.upload(epoch, fix)

	m.publish(epoch, func(s *state.Store) { s.SetLoading(true) })
	users, err := m.nearby.Sync(ctx, fix, m.cfg.RadiusMeters)
	if err != nil {
		return m.fail(epoch, err)
	}
	published := m.publish(epoch, func(s *state.Store) {
		s.SetNearbyUsers(users)
		s.SetError(nil)
	})
	if !published {
		return context.Canceled
	}
	m.debug.Printf("tracker: %d nearby user(s) around %s", len(users), fix)
	return nil
}

func (m *Manager) fail(epoch uint64, err error) error {
	if errors.Is(err, context.Canceled) && !m.current(epoch) {
		return err
	}
	appErr := apperr.Normalize(err, apperr.Unknown)
	if appErr.Code == apperr.Unauthorized && m.sessions != nil {
		m.logger.Printf("tracker: backend rejected the session, signing out")
		m.sessions.Clear()
	}
	m.publish(epoch, func(s *state.Store) { s.SetError(appErr) })
	return appErr
}

// start moves to Ready and launches the timer and optional watch.
func (m *Manager) start(epoch uint64) {
	m.mu.Lock()
	if !m.mounted || m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	if m.phase == Ready {
		m.mu.Unlock()
		return
	}
	m.phase = Ready
	ctx := m.runCtx
	m.wg.Add(1)
	m.mu.Unlock()

	go m.loop(ctx, epoch)

	if m.cfg.Watch {
		m.startWatch(epoch)
	}
}

func (m *Manager) loop(ctx context.Context, epoch uint64) {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = m.tick(ctx, epoch)
		}
	}
}

func (m *Manager) startWatch(epoch uint64) {
	sub, err := m.location.Watch(
		func(fix geo.Fix) {
			if m.publish(epoch, func(s *state.Store) { s.SetLocation(fix) }) {
				m.upload(epoch, fix)
			}
		},
		func(err error) {
			m.logger.Printf("tracker: watch error: %v", err)
			appErr := apperr.Normalize(err, apperr.Unavailable)
			m.publish(epoch, func(s *state.Store) { s.SetError(appErr) })
		},
		m.cfg.FixOptions,
	)
	if err != nil {
		m.logger.Printf("tracker: could not start location watch: %v", err)
		return
	}

	m.mu.Lock()
	if !m.mounted || m.epoch != epoch {
		m.mu.Unlock()
		m.location.Cancel(sub)
		return
	}
	m.watch = sub
	m.mu.Unlock()
}

// upload sends the fix in the background. Uploads closer together than
// UploadInterval are dropped.
func (m *Manager) upload(epoch uint64, fix geo.Fix) {
	if m.uploader == nil {
		return
	}
	if !m.uploads.Allow() {
		m.debug.Printf("tracker: location upload throttled")
		return
	}

	m.mu.Lock()
	if !m.mounted || m.epoch != epoch {
		m.mu.Unlock()
		return
	}
	ctx := m.runCtx
	m.wg.Add(1)
	m.mu.Unlock()

	go func() {
		defer m.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
		defer cancel()
		if err := m.uploader.UpdateLocation(ctx, fix); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			m.logger.Printf("tracker: location upload failed: %v", err)
			if apperr.CodeOf(err) == apperr.Unauthorized && m.sessions != nil {
				m.sessions.Clear()
			}
		}
	}()
}

// publish applies fn to the store if epoch is still the mounted one.
func (m *Manager) publish(epoch uint64, fn func(*state.Store)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted || m.epoch != epoch {
		return false
	}
	fn(m.store)
	return true
}

func (m *Manager) setPhase(epoch uint64, p Phase) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted || m.epoch != epoch {
		return false
	}
	m.phase = p
	return true
}

func (m *Manager) current(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted && m.epoch == epoch
}

func (m *Manager) signedIn() bool {
	if m.sessions == nil {
		return false
	}
	_, ok := m.sessions.Current()
	return ok
}

// ready reports whether epoch is current and has already started its timer.
func (m *Manager) ready(epoch uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.epoch == epoch && m.phase == Ready
}

// wait blocks until background goroutines have exited.
func (m *Manager) wait() {
	m.wg.Wait()
}

// permissionError reports any refusal as PERMISSION_DENIED; the permission
// detail and the published permission state tell Blocked apart.
func permissionError(s permission.State) *apperr.Error {
	if s == permission.Blocked {
		return apperr.New(apperr.PermissionDenied,
			"location access is blocked; enable it in settings to see nearby users").
			WithDetail("permission", s.String())
	}
	return apperr.New(apperr.PermissionDenied,
		"location permission is required to see nearby users").
		WithDetail("permission", s.String())
}
