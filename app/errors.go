// Package app contains the application services that orchestrate domain logic
// and ports: usage metering, audits, reports, billing and the analysis relay.
package app

import (
	"errors"

	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// Service errors. Transports map them to status codes with errors.Is.
var (
	// ErrInvalidRequest is returned for malformed or incomplete input.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrTrialExhausted is returned when the entitlement gate blocks a metered action.
	ErrTrialExhausted = errors.New("free trial exhausted, subscription required")

	// ErrNoBillingCustomer is returned when a user has no linked billing customer.
	ErrNoBillingCustomer = errors.New("no subscription found")

	// ErrUpstream wraps failures of external services (LLM, billing API).
	ErrUpstream = errors.New("upstream service failed")

	// ErrNotConfigured is returned when a required credential is absent.
	ErrNotConfigured = ports.ErrNotConfigured
)
