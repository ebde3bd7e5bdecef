// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

import (
	"context"
	"errors"
	"time"

	"github.com/ravindran79-arch/smartbid-compliance/domain/billing"
	"github.com/ravindran79-arch/smartbid-compliance/domain/ratelimit"
	"github.com/ravindran79-arch/smartbid-compliance/domain/report"
	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
)

// Store errors shared by every adapter.
var (
	// ErrNotFound is returned when an entity is not found.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a transaction could not commit because of
	// concurrent writers. The write did not happen.
	ErrConflict = errors.New("transaction conflict")

	// ErrNotConfigured is returned before any external call when a required
	// credential (API key, billing secret) is absent.
	ErrNotConfigured = errors.New("not configured")

	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// IDGenerator generates unique identifiers.
type IDGenerator interface {
	New() string
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// UsageStore persists one usage record per user.
// Every mutating method is a single all-or-nothing transaction.
type UsageStore interface {
	// Get returns the user's record. A missing record is returned as the
	// zero record for that user, not as an error.
	Get(ctx context.Context, userID string) (usage.Record, error)

	// Increment adds one to counter inside a read-modify-write transaction,
	// creating the record if absent, and returns the committed record.
	Increment(ctx context.Context, userID string, counter usage.Counter) (usage.Record, error)

	// IncrementIf is Increment guarded by allow, which is called with the
	// committed record inside the same transaction. An error from allow
	// aborts the write and is returned wrapped.
	IncrementIf(ctx context.Context, userID string, counter usage.Counter, allow func(usage.Record) error) (usage.Record, error)

	// Subscribe merges {isSubscribed: true, billingCustomerId} into the user's
	// record, creating it if absent, and indexes customerID -> userID.
	Subscribe(ctx context.Context, userID, customerID string) (usage.Record, error)

	// UnsubscribeCustomer clears the subscription flag on the record linked to
	// customerID. Returns ErrNotFound when no user is linked.
	UnsubscribeCustomer(ctx context.Context, customerID string) (usage.Record, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error
}

// ReportStore persists compliance reports.
type ReportStore interface {
	// Create stores a new report.
	Create(ctx context.Context, r report.Report) error

	// Get retrieves a report by ID.
	Get(ctx context.Context, id string) (report.Report, error)

	// ListByOwner returns an owner's reports, newest first.
	ListByOwner(ctx context.Context, owner string, limit int) ([]report.Report, error)

	// Delete removes a report.
	Delete(ctx context.Context, id string) error
}

// -----------------------------------------------------------------------------
// External Service Ports
// -----------------------------------------------------------------------------

// Generator relays a prepared generation request to a generative-AI service.
type Generator interface {
	// Generate posts body and returns the provider's JSON response verbatim.
	Generate(ctx context.Context, body []byte) ([]byte, error)

	// GenerateText posts body and returns the first candidate's text.
	GenerateText(ctx context.Context, body []byte) (string, error)

	// Complete sends a single prompt asking for a JSON answer and returns the
	// first candidate's text.
	Complete(ctx context.Context, prompt string) (string, error)
}

// RateLimiter throttles requests per client key. Allow records the request
// when it returns a result.
type RateLimiter interface {
	Allow(ctx context.Context, key string, now time.Time) (ratelimit.Result, error)
}

// PaymentProvider interfaces with the payment processor.
type PaymentProvider interface {
	// Name returns the provider name (e.g., "stripe").
	Name() string

	// CreatePortalSession creates a customer portal session for managing the subscription.
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (portalURL string, err error)

	// ParseWebhook verifies the signature over the raw payload and decodes the event.
	ParseWebhook(payload []byte, signature string) (billing.Event, error)
}

// -----------------------------------------------------------------------------
// Event Ports
// -----------------------------------------------------------------------------

// UsagePublisher fans committed usage records out to live subscribers.
type UsagePublisher interface {
	// Publish delivers rec to subscribers of rec.UserID. Must not block.
	Publish(rec usage.Record)
}

// Metrics records domain events. Implementations must be safe for
// concurrent use.
type Metrics interface {
	// GateDecision counts one entitlement gate evaluation by reason.
	GateDecision(reason string)

	// UsageIncrement counts one counter transaction by outcome (ok, conflict, error).
	UsageIncrement(counter, outcome string)

	// Upstream observes one call to an external service; err marks failure.
	Upstream(service string, elapsed time.Duration, err error)

	// WebhookEvent counts one billing webhook by event type and outcome.
	WebhookEvent(eventType, outcome string)

	// Audit counts one metered audit by role and outcome.
	Audit(role, outcome string)

	// LiveSubscribers reports the number of open live usage feed subscriptions.
	LiveSubscribers(n int)
}
