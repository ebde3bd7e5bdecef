// Package billing provides the verified payment-provider events that change entitlement.
// Events form a closed set: every variant implements Event and nothing else does.
package billing

import "errors"

// Provider event type names.
const (
	TypeCheckoutCompleted   = "checkout.session.completed"
	TypeSubscriptionDeleted = "customer.subscription.deleted"
)

// ErrIncompleteEvent is returned by Validate when a recognised event lacks required fields.
var ErrIncompleteEvent = errors.New("incomplete billing event")

// Event is a verified billing-state transition pushed by the payment provider.
type Event interface {
	// ID is the provider-assigned event id (used for logging and replay tracing).
	ID() string
	// Type is the provider event type name.
	Type() string
	// Validate checks the variant-specific payload shape.
	Validate() error

	isEvent()
}

// CheckoutCompleted links a billing customer to a user and grants the subscription.
type CheckoutCompleted struct {
	EventID    string
	UserID     string // caller-supplied reference set when the checkout was created
	CustomerID string // provider-assigned customer id
}

func (e CheckoutCompleted) ID() string   { return e.EventID }
func (e CheckoutCompleted) Type() string { return TypeCheckoutCompleted }
func (CheckoutCompleted) isEvent()       {}

// Validate requires both the user reference and the customer id.
func (e CheckoutCompleted) Validate() error {
	if e.UserID == "" {
		return errors.Join(ErrIncompleteEvent, errors.New("missing client reference (user id)"))
	}
	if e.CustomerID == "" {
		return errors.Join(ErrIncompleteEvent, errors.New("missing customer id"))
	}
	return nil
}

// SubscriptionDeleted revokes the subscription of whichever user owns CustomerID.
type SubscriptionDeleted struct {
	EventID        string
	SubscriptionID string
	CustomerID     string
}

func (e SubscriptionDeleted) ID() string   { return e.EventID }
func (e SubscriptionDeleted) Type() string { return TypeSubscriptionDeleted }
func (SubscriptionDeleted) isEvent()       {}

// Validate requires the customer id used for the reverse lookup.
func (e SubscriptionDeleted) Validate() error {
	if e.CustomerID == "" {
		return errors.Join(ErrIncompleteEvent, errors.New("missing customer id"))
	}
	return nil
}

// Ignored is any verified event this service does not act on.
type Ignored struct {
	EventID   string
	EventType string
}

func (e Ignored) ID() string    { return e.EventID }
func (e Ignored) Type() string  { return e.EventType }
func (Ignored) Validate() error { return nil }
func (Ignored) isEvent()        {}
