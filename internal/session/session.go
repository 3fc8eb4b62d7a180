// Package session describes the signed-in user the location manager works
// on behalf of. The client never verifies token signatures; it only reads the
// claims it needs to decide whether a session exists and when it expires.
package session

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the user context derived from a bearer token.
type Session struct {
	UserID    string
	Name      string
	Token     string
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Expired reports whether the token's exp claim is in the past.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Claims are the JWT claims the backend issues.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// ErrNoToken is returned when no token is configured.
var ErrNoToken = errors.New("no session token configured")

// FromToken extracts a Session from a JWT without verifying its signature.
func FromToken(raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, ErrNoToken
	}
	var claims Claims
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return Session{}, fmt.Errorf("parse token: %w", err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Session{}, fmt.Errorf("parse token: missing sub claim")
	}
	s := Session{UserID: claims.Subject, Name: claims.Name, Token: raw}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// LoadToken returns the inline token when set, otherwise the trimmed contents
// of tokenFile. Both empty yields "".
func LoadToken(inline, tokenFile string) (string, error) {
	if t := strings.TrimSpace(inline); t != "" {
		return t, nil
	}
	if strings.TrimSpace(tokenFile) == "" {
		return "", nil
	}
	data, err := os.ReadFile(tokenFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read token file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Holder stores the current session for concurrent readers.
type Holder struct {
	mu      sync.RWMutex
	current *Session
	now     func() time.Time
}

// NewHolder returns a Holder optionally seeded with s.
func NewHolder(s *Session) *Holder {
	h := &Holder{now: time.Now}
	if s != nil {
		dup := *s
		h.current = &dup
	}
	return h
}

// Current returns the active, unexpired session.
func (h *Holder) Current() (Session, bool) {
	if h == nil {
		return Session{}, false
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.current == nil || h.current.Expired(h.now()) {
		return Session{}, false
	}
	return *h.current, true
}

// Set replaces the session.
func (h *Holder) Set(s Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = &s
}

// Clear signs the user out, e.g. after the backend answered 401.
func (h *Holder) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = nil
}
