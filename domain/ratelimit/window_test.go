package ratelimit_test

import (
	"testing"
	"time"

	"github.com/ravindran79-arch/smartbid-compliance/domain/ratelimit"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func TestCheck_WithinLimit(t *testing.T) {
	p := ratelimit.Policy{Limit: 3, Window: time.Minute}
	var state ratelimit.WindowState

	for i := 1; i <= 3; i++ {
		var res ratelimit.Result
		res, state = ratelimit.Check(state, p, base.Add(time.Duration(i)*time.Second))
		if !res.Allowed {
			t.Fatalf("request %d refused", i)
		}
		if res.Remaining != 3-i {
			t.Errorf("request %d Remaining = %d, want %d", i, res.Remaining, 3-i)
		}
	}

	res, _ := ratelimit.Check(state, p, base.Add(10*time.Second))
	if res.Allowed {
		t.Error("fourth request allowed, want refused")
	}
	if !res.ResetAt.Equal(base.Add(time.Minute)) {
		t.Errorf("ResetAt = %v, want %v", res.ResetAt, base.Add(time.Minute))
	}
}

func TestCheck_Burst(t *testing.T) {
	p := ratelimit.Policy{Limit: 1, Window: time.Minute, Burst: 2}
	var state ratelimit.WindowState
	var res ratelimit.Result

	allowed := 0
	for i := 0; i < 5; i++ {
		res, state = ratelimit.Check(state, p, base)
		if res.Allowed {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("allowed = %d, want 3 (limit 1 + burst 2)", allowed)
	}
	if state.BurstUsed != 2 {
		t.Errorf("BurstUsed = %d, want 2", state.BurstUsed)
	}
}

func TestCheck_NewWindowResets(t *testing.T) {
	p := ratelimit.Policy{Limit: 1, Window: time.Minute}
	_, state := ratelimit.Check(ratelimit.WindowState{}, p, base)

	if res, _ := ratelimit.Check(state, p, base.Add(30*time.Second)); res.Allowed {
		t.Fatal("second request in same window allowed")
	}
	res, next := ratelimit.Check(state, p, base.Add(61*time.Second))
	if !res.Allowed {
		t.Fatal("request in next window refused")
	}
	if next.Count != 1 {
		t.Errorf("Count after reset = %d, want 1", next.Count)
	}
}

func TestResult_RetryAfter(t *testing.T) {
	res := ratelimit.Result{Allowed: false, ResetAt: base.Add(20 * time.Second)}
	if got := res.RetryAfter(base); got != 20*time.Second {
		t.Errorf("RetryAfter = %v, want 20s", got)
	}
	if got := res.RetryAfter(base.Add(time.Minute)); got != 0 {
		t.Errorf("RetryAfter past reset = %v, want 0", got)
	}
	res.Allowed = true
	if got := res.RetryAfter(base); got != 0 {
		t.Errorf("RetryAfter when allowed = %v, want 0", got)
	}
}

func TestResult_Headers(t *testing.T) {
	h := ratelimit.Result{Limit: 30, Remaining: 29, ResetAt: base}.Headers()
	if h["X-RateLimit-Limit"] != "30" || h["X-RateLimit-Remaining"] != "29" {
		t.Errorf("headers = %v", h)
	}
	if h["X-RateLimit-Reset"] != "1767268800" {
		t.Errorf("X-RateLimit-Reset = %s", h["X-RateLimit-Reset"])
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		p       ratelimit.Policy
		wantErr bool
	}{
		{"valid", ratelimit.Policy{Limit: 10, Window: time.Minute, Burst: 2}, false},
		{"zero limit", ratelimit.Policy{Window: time.Minute}, true},
		{"zero window", ratelimit.Policy{Limit: 1}, true},
		{"negative burst", ratelimit.Policy{Limit: 1, Window: time.Minute, Burst: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
