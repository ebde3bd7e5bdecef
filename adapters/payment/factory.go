package payment

import (
	"fmt"

	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// NewProvider creates a payment provider by name.
// A stripe provider with no keys is valid: each operation reports
// ErrPaymentsDisabled until the matching key is configured.
func NewProvider(name string, stripeCfg StripeConfig) (ports.PaymentProvider, error) {
	switch name {
	case "stripe", "":
		return NewStripeProvider(stripeCfg), nil
	case "none":
		return NewNoopProvider(), nil
	default:
		return nil, fmt.Errorf("unknown payment provider: %s", name)
	}
}
