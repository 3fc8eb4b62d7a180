package geolocation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/five82/nearby/internal/apperr"
	"github.com/five82/nearby/internal/geo"
)

// Authorizer reports whether location access has been granted.
// *permission.Gate implements it.
type Authorizer interface {
	Granted() bool
}

// Subscription is the handle returned by Watch. The zero value never matches
// an active watch.
type Subscription struct {
	id uint64
}

// Active reports whether the handle was issued by a successful Watch.
func (s Subscription) Active() bool {
	return s.id != 0
}

// Provider normalizes a Platform into geo.Fix values. It owns at most one
// platform watch at a time.
type Provider struct {
	platform Platform
	auth     Authorizer
	logger   *log.Logger
	now      func() time.Time

	// watchMu serializes Watch and Cancel so replacement is atomic.
	watchMu sync.Mutex

	mu      sync.Mutex
	last    *geo.Fix
	watch   *watchState
	nextSub uint64
}

type watchState struct {
	sub        uint64
	platformID WatchID
	opts       Options

	// mu serializes callback delivery for this watch.
	mu      sync.Mutex
	lastFix *geo.Fix
}

// NewProvider wraps platform. auth may be nil when no gate is in use.
func NewProvider(platform Platform, auth Authorizer, logger *log.Logger) *Provider {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Provider{platform: platform, auth: auth, logger: logger, now: time.Now}
}

// CurrentFix makes a single attempt to obtain a fix. A remembered fix younger
// than opts.MaxAge is returned without asking the platform.
func (p *Provider) CurrentFix(ctx context.Context, opts Options) (geo.Fix, error) {
	opts = opts.withDefaults()
	if err := p.precheck(); err != nil {
		return geo.Fix{}, err
	}
	if fix, ok := p.cached(opts.MaxAge); ok {
		return fix, nil
	}

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	type result struct {
		pos Position
		err error
	}
	// Buffered so a platform that ignores ctx can still finish and exit.
	done := make(chan result, 1)
	go func() {
		pos, err := p.platform.CurrentPosition(ctx, opts)
		done <- result{pos: pos, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return geo.Fix{}, classify(r.err)
		}
		fix, err := p.toFix(r.pos)
		if err != nil {
			return geo.Fix{}, err
		}
		p.remember(fix)
		return fix, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return geo.Fix{}, apperr.Wrap(apperr.Timeout,
				fmt.Sprintf("no location fix within %s", opts.Timeout), ctx.Err())
		}
		return geo.Fix{}, apperr.Wrap(apperr.Unknown, "location request cancelled", ctx.Err())
	}
}

// Watch starts continuous updates, replacing any existing watch before it
// returns. onFix is called once per accepted reading, in arrival order and
// never concurrently; readings older than the last delivered one are dropped.
func (p *Provider) Watch(onFix func(geo.Fix), onError func(error), opts Options) (Subscription, error) {
	opts = opts.withDefaults()
	if err := p.precheck(); err != nil {
		return Subscription{}, err
	}

	p.watchMu.Lock()
	defer p.watchMu.Unlock()

	p.mu.Lock()
	old := p.watch
	p.watch = nil
	p.nextSub++
	ws := &watchState{sub: p.nextSub, opts: opts}
	p.watch = ws
	p.mu.Unlock()

	if old != nil {
		p.platform.ClearWatch(old.platformID)
	}

	id, err := p.platform.WatchPosition(
		func(pos Position) { p.deliver(ws, pos, onFix) },
		func(err error) { p.deliverError(ws, err, onError) },
		opts,
	)
	if err != nil {
		p.mu.Lock()
		if p.watch == ws {
			p.watch = nil
		}
		p.mu.Unlock()
		return Subscription{}, classify(err)
	}
	ws.mu.Lock()
	ws.platformID = id
	ws.mu.Unlock()
	return Subscription{id: ws.sub}, nil
}

// Cancel stops the watch identified by sub. Calling it for a replaced,
// already cancelled or zero handle is a no-op.
func (p *Provider) Cancel(sub Subscription) {
	if !sub.Active() {
		return
	}
	p.watchMu.Lock()
	defer p.watchMu.Unlock()

	p.mu.Lock()
	ws := p.watch
	if ws == nil || ws.sub != sub.id {
		p.mu.Unlock()
		return
	}
	p.watch = nil
	p.mu.Unlock()

	ws.mu.Lock()
	id := ws.platformID
	ws.mu.Unlock()
	p.platform.ClearWatch(id)
}

// Watching reports whether a watch is active.
func (p *Provider) Watching() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watch != nil
}

// LastKnown returns the most recent fix produced by either path.
func (p *Provider) LastKnown() (geo.Fix, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return geo.Fix{}, false
	}
	return *p.last, true
}

func (p *Provider) precheck() error {
	if p.platform == nil || !p.platform.Available() {
		return apperr.New(apperr.Unavailable, "location services are not available")
	}
	if p.auth != nil && !p.auth.Granted() {
		return apperr.New(apperr.PermissionDenied, "location permission has not been granted")
	}
	return nil
}

func (p *Provider) cached(maxAge time.Duration) (geo.Fix, bool) {
	if maxAge <= 0 {
		return geo.Fix{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil || p.now().Sub(p.last.CapturedAt) > maxAge {
		return geo.Fix{}, false
	}
	return *p.last, true
}

func (p *Provider) remember(fix geo.Fix) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != nil && fix.CapturedAt.Before(p.last.CapturedAt) {
		return
	}
	p.last = &fix
}

func (p *Provider) current(ws *watchState) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watch == ws
}

func (p *Provider) deliver(ws *watchState, pos Position, onFix func(geo.Fix)) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if !p.current(ws) {
		return
	}
	fix, err := p.toFix(pos)
	if err != nil {
		p.logger.Printf("watch: dropping reading: %v", err)
		return
	}
	if prev := ws.lastFix; prev != nil {
		if fix.CapturedAt.Before(prev.CapturedAt) {
			p.logger.Printf("watch: dropping out-of-order reading captured %s before %s",
				fix.CapturedAt.Format(time.RFC3339Nano), prev.CapturedAt.Format(time.RFC3339Nano))
			return
		}
		if ws.opts.DistanceFilter > 0 &&
			geo.HaversineMeters(prev.Latitude, prev.Longitude, fix.Latitude, fix.Longitude) < ws.opts.DistanceFilter {
			return
		}
	}
	ws.lastFix = &fix
	p.remember(fix)
	if onFix != nil {
		onFix(fix)
	}
}

func (p *Provider) deliverError(ws *watchState, err error, onError func(error)) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if !p.current(ws) || onError == nil {
		return
	}
	onError(classify(err))
}

func (p *Provider) toFix(pos Position) (geo.Fix, error) {
	if !geo.ValidCoordinate(pos.Latitude, pos.Longitude) {
		return geo.Fix{}, apperr.New(apperr.Unavailable, "platform returned an invalid position")
	}
	captured := pos.Timestamp
	if captured.IsZero() {
		captured = p.now()
	}
	accuracy := pos.Accuracy
	if accuracy < 0 {
		accuracy = 0
	}
	return geo.Fix{
		Latitude:   pos.Latitude,
		Longitude:  pos.Longitude,
		Accuracy:   accuracy,
		CapturedAt: captured,
	}, nil
}

func classify(err error) error {
	var posErr *PositionError
	if errors.As(err, &posErr) {
		switch posErr.Code {
		case CodePermissionDenied:
			return apperr.Wrap(apperr.PermissionDenied, "location permission denied by platform", err)
		case CodeTimeout:
			return apperr.Wrap(apperr.Timeout, "location request timed out", err)
		default:
			return apperr.Wrap(apperr.Unavailable, "position unavailable", err)
		}
	}
	return apperr.Normalize(err, apperr.Unavailable)
}
