package entitlement

import (
	"fmt"
	"testing"

	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
)

func TestIsBlocked(t *testing.T) {
	const limit = 3

	for _, checks := range []int64{0, 1, 2, 3, 10} {
		for _, subscribed := range []bool{false, true} {
			name := fmt.Sprintf("checks=%d/subscribed=%t", checks, subscribed)
			t.Run(name, func(t *testing.T) {
				rec := usage.Record{BidderChecks: checks, IsSubscribed: subscribed}
				want := checks >= limit && !subscribed

				if got := IsBlocked(rec, limit); got != want {
					t.Errorf("IsBlocked(%+v, %d) = %t, want %t", rec, limit, got, want)
				}
			})
		}
	}
}

func TestIsBlocked_IgnoresInitiatorChecks(t *testing.T) {
	rec := usage.Record{InitiatorChecks: 100, BidderChecks: 0}
	if IsBlocked(rec, 3) {
		t.Error("initiator usage must not consume the bidder trial")
	}
}

func TestIsBlocked_ZeroLimit(t *testing.T) {
	if !IsBlocked(usage.Record{}, 0) {
		t.Error("zero limit should block unsubscribed users")
	}
	if IsBlocked(usage.Record{IsSubscribed: true}, 0) {
		t.Error("zero limit should not block subscribed users")
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name          string
		rec           usage.Record
		wantAllowed   bool
		wantRemaining int64
		wantReason    string
	}{
		{
			name:          "fresh user",
			rec:           usage.Record{},
			wantAllowed:   true,
			wantRemaining: 3,
			wantReason:    ReasonTrial,
		},
		{
			name:          "last trial audit",
			rec:           usage.Record{BidderChecks: 2},
			wantAllowed:   true,
			wantRemaining: 1,
			wantReason:    ReasonTrial,
		},
		{
			name:          "trial exhausted",
			rec:           usage.Record{BidderChecks: 3},
			wantAllowed:   false,
			wantRemaining: 0,
			wantReason:    ReasonTrialExhausted,
		},
		{
			name:          "subscribed over limit",
			rec:           usage.Record{BidderChecks: 40, IsSubscribed: true},
			wantAllowed:   true,
			wantRemaining: -1,
			wantReason:    ReasonSubscribed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Check(tt.rec, DefaultTrialLimit)

			if d.Allowed != tt.wantAllowed {
				t.Errorf("Allowed = %t, want %t", d.Allowed, tt.wantAllowed)
			}
			if d.Remaining != tt.wantRemaining {
				t.Errorf("Remaining = %d, want %d", d.Remaining, tt.wantRemaining)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("Reason = %s, want %s", d.Reason, tt.wantReason)
			}
			if d.Allowed == IsBlocked(tt.rec, DefaultTrialLimit) {
				t.Errorf("Check disagrees with IsBlocked for %+v", tt.rec)
			}
		})
	}
}
