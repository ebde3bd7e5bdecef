// Package ratelimit implements the fixed-window throttle that guards the
// model-backed endpoints. Functions here are pure.
package ratelimit

import (
	"errors"
	"strconv"
	"time"
)

// Policy bounds requests per client per window (value type).
type Policy struct {
	Limit  int           // requests allowed per window
	Window time.Duration // window length
	Burst  int           // extra requests allowed once Limit is reached
}

// Validate rejects policies that would refuse or admit everything by accident.
func (p Policy) Validate() error {
	if p.Limit <= 0 {
		return errors.New("rate limit must be positive")
	}
	if p.Window <= 0 {
		return errors.New("rate limit window must be positive")
	}
	if p.Burst < 0 {
		return errors.New("rate limit burst must not be negative")
	}
	return nil
}

// WindowState is one client's usage of the current window (value type).
type WindowState struct {
	Count     int
	BurstUsed int
	WindowEnd time.Time
}

// Expired reports whether the state belongs to a window that closed before now.
func (s WindowState) Expired(now time.Time) bool {
	return s.WindowEnd.IsZero() || now.After(s.WindowEnd)
}

// Result is the verdict for one request (value type).
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long a refused client should wait. Zero when allowed.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed {
		return 0
	}
	if d := r.ResetAt.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Headers returns the X-RateLimit-* response headers for r.
func (r Result) Headers() map[string]string {
	return map[string]string{
		"X-RateLimit-Limit":     strconv.Itoa(r.Limit),
		"X-RateLimit-Remaining": strconv.Itoa(r.Remaining),
		"X-RateLimit-Reset":     strconv.FormatInt(r.ResetAt.Unix(), 10),
	}
}

// Check admits or refuses one request and returns the state to store.
// Windows are aligned to multiples of p.Window so every client resets at the
// same instant.
func Check(state WindowState, p Policy, now time.Time) (Result, WindowState) {
	if state.Expired(now) {
		state = WindowState{WindowEnd: now.Truncate(p.Window).Add(p.Window)}
	}

	res := Result{Limit: p.Limit, ResetAt: state.WindowEnd}

	switch {
	case state.Count < p.Limit:
		state.Count++
		res.Allowed = true
		res.Remaining = p.Limit - state.Count
	case state.BurstUsed < p.Burst:
		state.Count++
		state.BurstUsed++
		res.Allowed = true
	}
	return res, state
}
