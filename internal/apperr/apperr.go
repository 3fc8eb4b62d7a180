// Package apperr defines the normalized failure shape shared by the
// permission, location and network layers.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net"
	"time"
)

// Code classifies a failure.
type Code string

const (
	PermissionDenied  Code = "PERMISSION_DENIED"
	PermissionBlocked Code = "PERMISSION_BLOCKED"
	Unavailable       Code = "UNAVAILABLE"
	Timeout           Code = "TIMEOUT"
	NetworkError      Code = "NETWORK_ERROR"
	ServerError       Code = "SERVER_ERROR"
	InvalidData       Code = "INVALID_DATA"
	Unauthorized      Code = "UNAUTHORIZED"
	Unknown           Code = "UNKNOWN"
)

// Error is a normalized application failure.
type Error struct {
	Code       Code
	Message    string
	OccurredAt time.Time
	Details    map[string]any

	cause error
}

// New builds an Error stamped with the current time.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message, OccurredAt: time.Now()}
}

// Wrap builds an Error that keeps cause reachable through errors.Unwrap.
func Wrap(code Code, message string, cause error) *Error {
	e := New(code, message)
	e.cause = cause
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// WithDetail returns a copy of e carrying key=value in Details.
func (e *Error) WithDetail(key string, value any) *Error {
	dup := e.Clone()
	if dup.Details == nil {
		dup.Details = make(map[string]any, 1)
	}
	dup.Details[key] = value
	return dup
}

// Clone returns a copy that does not share the Details map.
func (e *Error) Clone() *Error {
	if e == nil {
		return nil
	}
	dup := *e
	if e.Details != nil {
		dup.Details = maps.Clone(e.Details)
	}
	return &dup
}

// Is matches another *Error by code so errors.Is(err, apperr.New(Timeout, ""))
// works without comparing messages or timestamps.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || other == nil || e == nil {
		return false
	}
	return e.Code == other.Code
}

// CodeOf reports the Code carried by err, or Unknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return Unknown
}

// Normalize converts any error into an *Error. Errors that already are
// *Error pass through untouched; context deadlines become Timeout, network
// failures NetworkError, everything else takes fallback.
func Normalize(err error, fallback Code) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Wrap(Timeout, "operation timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Wrap(Timeout, "network timeout", err)
		}
		return Wrap(NetworkError, "network request failed", err)
	}
	if fallback == "" {
		fallback = Unknown
	}
	return Wrap(fallback, err.Error(), nil)
}
