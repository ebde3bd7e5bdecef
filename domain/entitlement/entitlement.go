// Package entitlement decides whether a metered action may run.
// All functions are deterministic with no side effects.
package entitlement

import "github.com/ravindran79-arch/smartbid-compliance/domain/usage"

// DefaultTrialLimit is the number of free bidder audits before a subscription is required.
const DefaultTrialLimit int64 = 3

// Reason codes reported on a Decision.
const (
	ReasonSubscribed     = "subscribed"
	ReasonTrial          = "trial"
	ReasonTrialExhausted = "trial_exhausted"
)

// Decision is the outcome of a gate check (value type).
type Decision struct {
	Allowed    bool   `json:"allowed"`
	Used       int64  `json:"used"`
	Limit      int64  `json:"limit"`
	Remaining  int64  `json:"remaining"` // -1 when subscribed
	Subscribed bool   `json:"subscribed"`
	Reason     string `json:"reason"`
}

// IsBlocked reports whether a metered action must be refused.
// Blocked iff the bidder trial is used up and the user holds no subscription.
// This is a PURE function.
func IsBlocked(rec usage.Record, limit int64) bool {
	return rec.BidderChecks >= limit && !rec.IsSubscribed
}

// Check evaluates the gate and explains the result.
// This is a PURE function.
func Check(rec usage.Record, limit int64) Decision {
	d := Decision{
		Used:       rec.BidderChecks,
		Limit:      limit,
		Subscribed: rec.IsSubscribed,
	}

	if rec.IsSubscribed {
		d.Allowed = true
		d.Remaining = -1
		d.Reason = ReasonSubscribed
		return d
	}

	if IsBlocked(rec, limit) {
		d.Reason = ReasonTrialExhausted
		return d
	}

	d.Allowed = true
	d.Remaining = limit - rec.BidderChecks
	d.Reason = ReasonTrial
	return d
}
