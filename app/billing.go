package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ravindran79-arch/smartbid-compliance/domain/billing"
	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// Webhook outcomes, reported to metrics and returned to callers.
const (
	OutcomeApplied  = "applied"  // state changed
	OutcomeNoop     = "noop"     // replay or no state change needed
	OutcomeIgnored  = "ignored"  // event type not handled, or payload incomplete
	OutcomeUnlinked = "unlinked" // no user linked to the billing customer
	OutcomeFailed   = "failed"   // store write failed
	OutcomeRejected = "rejected" // signature verification failed
)

// BillingService links payment provider state to usage records.
type BillingService struct {
	store     ports.UsageStore
	provider  ports.PaymentProvider
	publisher ports.UsagePublisher
	returnURL string
	metrics   ports.Metrics
	logger    zerolog.Logger
}

// NewBillingService creates a new billing service. publisher may be nil.
func NewBillingService(
	store ports.UsageStore,
	provider ports.PaymentProvider,
	publisher ports.UsagePublisher,
	returnURL string,
	logger zerolog.Logger,
) *BillingService {
	return &BillingService{
		store:     store,
		provider:  provider,
		publisher: publisher,
		returnURL: returnURL,
		metrics:   noopMetrics{},
		logger:    logger,
	}
}

// WithMetrics sets the metrics recorder.
func (s *BillingService) WithMetrics(m ports.Metrics) *BillingService {
	if m != nil {
		s.metrics = m
	}
	return s
}

// HandleWebhook verifies a raw webhook delivery and applies it.
//
// Only verification problems are returned as errors: ports.ErrInvalidSignature
// when the signature does not match and ErrNotConfigured when no webhook
// secret is set. Once verified, every outcome (including a failed store
// write) is acknowledged so the provider stops redelivering; the failure is
// logged and counted instead.
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) (string, error) {
	event, err := s.provider.ParseWebhook(payload, signature)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrInvalidSignature):
			s.metrics.WebhookEvent("unknown", OutcomeRejected)
			s.logger.Warn().Err(err).Msg("webhook signature verification failed")
			return OutcomeRejected, err
		case errors.Is(err, ports.ErrNotConfigured):
			s.logger.Error().Err(err).Msg("webhook received but billing is not configured")
			return OutcomeRejected, err
		default:
			// Verified but undecodable: acknowledge, nothing to apply.
			s.metrics.WebhookEvent("unknown", OutcomeIgnored)
			s.logger.Error().Err(err).Msg("failed to decode verified webhook")
			return OutcomeIgnored, nil
		}
	}

	outcome := s.apply(ctx, event)
	s.metrics.WebhookEvent(event.Type(), outcome)
	return outcome, nil
}

// apply dispatches one verified event.
func (s *BillingService) apply(ctx context.Context, event billing.Event) string {
	log := s.logger.With().Str("event_id", event.ID()).Str("event_type", event.Type()).Logger()

	if err := event.Validate(); err != nil {
		log.Warn().Err(err).Msg("ignoring incomplete billing event")
		return OutcomeIgnored
	}

	switch ev := event.(type) {
	case billing.CheckoutCompleted:
		before, err := s.store.Get(ctx, ev.UserID)
		if err != nil {
			log.Error().Err(err).Str("user_id", ev.UserID).Msg("failed to read usage before subscribe")
			return OutcomeFailed
		}
		rec, err := s.store.Subscribe(ctx, ev.UserID, ev.CustomerID)
		if err != nil {
			log.Error().Err(err).Str("user_id", ev.UserID).Msg("failed to apply checkout")
			return OutcomeFailed
		}
		s.publish(rec)
		if before.IsSubscribed && before.BillingCustomerID == ev.CustomerID {
			log.Debug().Str("user_id", ev.UserID).Msg("checkout replay, no change")
			return OutcomeNoop
		}
		log.Info().
			Str("user_id", ev.UserID).
			Str("customer_id", ev.CustomerID).
			Msg("checkout completed: subscription activated")
		return OutcomeApplied

	case billing.SubscriptionDeleted:
		rec, err := s.store.UnsubscribeCustomer(ctx, ev.CustomerID)
		if errors.Is(err, ports.ErrNotFound) {
			log.Warn().Str("customer_id", ev.CustomerID).Msg("subscription deleted for unknown customer")
			return OutcomeUnlinked
		}
		if err != nil {
			log.Error().Err(err).Str("customer_id", ev.CustomerID).Msg("failed to apply subscription deletion")
			return OutcomeFailed
		}
		s.publish(rec)
		log.Info().
			Str("user_id", rec.UserID).
			Str("customer_id", ev.CustomerID).
			Msg("subscription deleted: subscription deactivated")
		return OutcomeApplied

	default:
		log.Debug().Msg("ignoring unhandled billing event")
		return OutcomeIgnored
	}
}

// CreatePortalSession returns a billing portal URL for the user's linked
// customer. Users without a billing customer get ErrNoBillingCustomer and the
// provider is never called.
func (s *BillingService) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}

	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("read usage: %w", err)
	}
	if !rec.HasBillingCustomer() {
		return "", ErrNoBillingCustomer
	}

	start := time.Now()
	url, err := s.provider.CreatePortalSession(ctx, rec.BillingCustomerID, s.returnURL)
	s.metrics.Upstream("billing", time.Since(start), err)
	if err != nil {
		if errors.Is(err, ports.ErrNotConfigured) {
			return "", err
		}
		s.logger.Error().Err(err).
			Str("user_id", userID).
			Str("customer_id", rec.BillingCustomerID).
			Msg("failed to create portal session")
		return "", fmt.Errorf("%w: create portal session: %v", ErrUpstream, err)
	}
	return url, nil
}

func (s *BillingService) publish(rec usage.Record) {
	if s.publisher != nil {
		s.publisher.Publish(rec)
	}
}
