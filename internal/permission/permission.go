// Package permission gates access to the device location.
package permission

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
)

// State is the normalized permission outcome.
type State int

const (
	Unknown State = iota
	Granted
	Denied
	Blocked
)

func (s State) String() string {
	switch s {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	case Blocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// Kind names the permission being asked for.
type Kind string

// FineLocation is the only permission the location subsystem needs.
const FineLocation Kind = "location.fine"

// Status is what a platform reports.
type Status string

const (
	StatusGranted     Status = "granted"
	StatusDenied      Status = "denied"
	StatusBlocked     Status = "blocked"
	StatusUnavailable Status = "unavailable"
)

// ParseStatus accepts the config spellings of a platform status.
func ParseStatus(value string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "granted", "allow", "allowed":
		return StatusGranted, nil
	case "", "denied", "deny", "ask":
		return StatusDenied, nil
	case "blocked", "never", "never_ask_again":
		return StatusBlocked, nil
	case "unavailable":
		return StatusUnavailable, nil
	default:
		return "", fmt.Errorf("unknown permission status %q", value)
	}
}

// Platform is the host permission API.
type Platform interface {
	Check(ctx context.Context, kind Kind) (Status, error)
	Request(ctx context.Context, kind Kind) (Status, error)
}

// Gate checks and requests location permission. It never fails: platform
// errors collapse to Denied.
type Gate struct {
	platform Platform
	logger   *log.Logger

	mu   sync.RWMutex
	last State
}

// NewGate wraps platform. A nil logger discards output.
func NewGate(platform Platform, logger *log.Logger) *Gate {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Gate{platform: platform, logger: logger}
}

// CheckAndRequest returns Granted without prompting when already granted,
// prompts once when the permission is revocably denied, and returns Blocked
// without prompting when the user has to change device settings.
func (g *Gate) CheckAndRequest(ctx context.Context) State {
	state := g.checkAndRequest(ctx)
	g.mu.Lock()
	g.last = state
	g.mu.Unlock()
	return state
}

func (g *Gate) checkAndRequest(ctx context.Context) State {
	if g.platform == nil {
		g.logger.Printf("permission check failed: no platform")
		return Denied
	}
	status, err := g.platform.Check(ctx, FineLocation)
	if err != nil {
		g.logger.Printf("permission check failed: %v", err)
		return Denied
	}
	switch status {
	case StatusGranted:
		return Granted
	case StatusBlocked:
		return Blocked
	case StatusUnavailable:
		g.logger.Printf("permission check: location unavailable on this platform")
		return Denied
	}

	status, err = g.platform.Request(ctx, FineLocation)
	if err != nil {
		g.logger.Printf("permission request failed: %v", err)
		return Denied
	}
	switch status {
	case StatusGranted:
		return Granted
	case StatusBlocked:
		return Blocked
	default:
		return Denied
	}
}

// State returns the outcome of the last CheckAndRequest, Unknown before the
// first call.
func (g *Gate) State() State {
	if g == nil {
		return Unknown
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.last
}

// Granted reports whether the last outcome allows location access.
func (g *Gate) Granted() bool {
	return g.State() == Granted
}

// NeedsSettings reports whether the caller should offer a path to the
// settings that can lift the state.
func NeedsSettings(s State) bool {
	return s == Blocked
}

// StaticPlatform is a Platform backed by configuration: Status is what Check
// reports and Answer is what the user "answers" to a prompt.
type StaticPlatform struct {
	mu      sync.Mutex
	status  Status
	answer  Status
	prompts int
}

// NewStaticPlatform builds a StaticPlatform.
func NewStaticPlatform(status, answer Status) *StaticPlatform {
	if status == "" {
		status = StatusDenied
	}
	if answer == "" {
		answer = StatusDenied
	}
	return &StaticPlatform{status: status, answer: answer}
}

// Check implements Platform.
func (p *StaticPlatform) Check(ctx context.Context, _ Kind) (Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status, nil
}

// Request implements Platform. The answer sticks, like a real prompt.
func (p *StaticPlatform) Request(ctx context.Context, _ Kind) (Status, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prompts++
	if p.status == StatusBlocked {
		return StatusBlocked, nil
	}
	p.status = p.answer
	return p.status, nil
}

// Prompts returns how many times Request was called.
func (p *StaticPlatform) Prompts() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.prompts
}
