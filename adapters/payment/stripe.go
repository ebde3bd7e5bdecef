// Package payment provides payment provider adapters.
package payment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	portalsession "github.com/stripe/stripe-go/v82/billingportal/session"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/ravindran79-arch/smartbid-compliance/domain/billing"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// ErrInvalidSignature is returned when a webhook payload fails signature verification.
var ErrInvalidSignature = ports.ErrInvalidSignature

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	APIURL        string // Optional: overrides the Stripe API base URL
}

// StripeProvider implements ports.PaymentProvider for Stripe.
type StripeProvider struct {
	config StripeConfig
	portal *portalsession.Client
}

// NewStripeProvider creates a new Stripe payment provider.
func NewStripeProvider(config StripeConfig) *StripeProvider {
	backend := stripe.GetBackend(stripe.APIBackend)
	if config.APIURL != "" {
		backend = stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			URL: stripe.String(config.APIURL),
		})
	}

	return &StripeProvider{
		config: config,
		portal: &portalsession.Client{B: backend, Key: config.SecretKey},
	}
}

// Name returns the provider name.
func (p *StripeProvider) Name() string {
	return "stripe"
}

// CreatePortalSession creates a customer portal session.
func (p *StripeProvider) CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error) {
	if p.config.SecretKey == "" {
		return "", ErrPaymentsDisabled
	}

	params := &stripe.BillingPortalSessionParams{
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(returnURL),
	}
	params.Context = ctx

	s, err := p.portal.New(params)
	if err != nil {
		return "", err
	}
	return s.URL, nil
}

// ParseWebhook verifies a Stripe webhook and decodes it into a billing event.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (billing.Event, error) {
	if p.config.WebhookSecret == "" {
		return nil, ErrPaymentsDisabled
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, p.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	return decodeEvent(event)
}

// decodeEvent maps a verified Stripe event onto the billing event variants.
func decodeEvent(event stripe.Event) (billing.Event, error) {
	switch string(event.Type) {
	case billing.TypeCheckoutCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		ev := billing.CheckoutCompleted{
			EventID: event.ID,
			UserID:  sess.ClientReferenceID,
		}
		if sess.Customer != nil {
			ev.CustomerID = sess.Customer.ID
		}
		return ev, nil

	case billing.TypeSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		ev := billing.SubscriptionDeleted{
			EventID:        event.ID,
			SubscriptionID: sub.ID,
		}
		if sub.Customer != nil {
			ev.CustomerID = sub.Customer.ID
		}
		return ev, nil

	default:
		return billing.Ignored{EventID: event.ID, EventType: string(event.Type)}, nil
	}
}

// Ensure interface compliance.
var _ ports.PaymentProvider = (*StripeProvider)(nil)
