// Package usage provides the per-user usage record and pure counter arithmetic.
// All functions are pure - no side effects.
package usage

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnknownCounter is returned when a counter key is not one of the known counters.
var ErrUnknownCounter = errors.New("unknown usage counter")

// Counter identifies one metered counter on a Record.
type Counter string

const (
	CounterInitiator Counter = "initiatorChecks" // audits run by the RFQ issuer
	CounterBidder    Counter = "bidderChecks"    // audits run by a bidding vendor (trial-gated)
)

// Counters lists every known counter in a stable order.
var Counters = []Counter{CounterInitiator, CounterBidder}

// Valid reports whether c is a known counter.
func (c Counter) Valid() bool {
	return c == CounterInitiator || c == CounterBidder
}

// ParseCounter accepts the wire name or the short role name ("initiator", "bidder").
func ParseCounter(s string) (Counter, error) {
	switch s {
	case string(CounterInitiator), "initiator":
		return CounterInitiator, nil
	case string(CounterBidder), "bidder":
		return CounterBidder, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCounter, s)
}

// Record is the per-user usage document (value type).
// A missing record is equivalent to the zero Record.
type Record struct {
	UserID            string    `json:"userId"`
	InitiatorChecks   int64     `json:"initiatorChecks"`
	BidderChecks      int64     `json:"bidderChecks"`
	IsSubscribed      bool      `json:"isSubscribed"`
	BillingCustomerID string    `json:"billingCustomerId,omitempty"`
	UpdatedAt         time.Time `json:"updatedAt,omitempty"`
	// Version grows by one on every committed state change.
	Version int64 `json:"version"`
}

// Value returns the current value of counter c (0 for unknown counters).
func (r Record) Value(c Counter) int64 {
	switch c {
	case CounterInitiator:
		return r.InitiatorChecks
	case CounterBidder:
		return r.BidderChecks
	}
	return 0
}

// HasBillingCustomer reports whether a checkout has linked a billing customer.
func (r Record) HasBillingCustomer() bool {
	return r.BillingCustomerID != ""
}

// Apply returns a copy of r with counter c incremented by one.
// This is a PURE function; stores call it inside their transaction.
func Apply(r Record, c Counter, at time.Time) (Record, error) {
	if !c.Valid() {
		return r, fmt.Errorf("%w: %q", ErrUnknownCounter, c)
	}
	switch c {
	case CounterInitiator:
		r.InitiatorChecks++
	case CounterBidder:
		r.BidderChecks++
	}
	r.UpdatedAt = at
	r.Version++
	return r, nil
}

// Subscribe returns a copy of r merged with an active subscription for customerID.
// Fields other than IsSubscribed and BillingCustomerID are left untouched,
// so applying the same merge twice yields the same record.
func Subscribe(r Record, customerID string) Record {
	next := r
	next.IsSubscribed = true
	if customerID != "" {
		next.BillingCustomerID = customerID
	}
	return bump(r, next)
}

// Unsubscribe returns a copy of r with the subscription flag cleared.
// The billing customer link is kept so the user can still reach the portal.
func Unsubscribe(r Record) Record {
	next := r
	next.IsSubscribed = false
	return bump(r, next)
}

// bump advances next.Version when it differs from prev.
func bump(prev, next Record) Record {
	if !SameState(prev, next) {
		next.Version = prev.Version + 1
	}
	return next
}

// Newer reports whether r was committed after o.
func (r Record) Newer(o Record) bool {
	return r.Version > o.Version
}

// SameState reports whether two records carry identical counters and entitlement.
// UpdatedAt and Version are ignored.
func SameState(a, b Record) bool {
	return a.UserID == b.UserID &&
		a.InitiatorChecks == b.InitiatorChecks &&
		a.BidderChecks == b.BidderChecks &&
		a.IsSubscribed == b.IsSubscribed &&
		a.BillingCustomerID == b.BillingCustomerID
}
