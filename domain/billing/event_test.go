package billing

import (
	"errors"
	"testing"
)

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   Event
		wantErr bool
	}{
		{"checkout complete", CheckoutCompleted{EventID: "evt_1", UserID: "alice", CustomerID: "cus_1"}, false},
		{"checkout missing user", CheckoutCompleted{EventID: "evt_2", CustomerID: "cus_1"}, true},
		{"checkout missing customer", CheckoutCompleted{EventID: "evt_3", UserID: "alice"}, true},
		{"deletion complete", SubscriptionDeleted{EventID: "evt_4", CustomerID: "cus_1"}, false},
		{"deletion missing customer", SubscriptionDeleted{EventID: "evt_5", SubscriptionID: "sub_1"}, true},
		{"ignored", Ignored{EventID: "evt_6", EventType: "invoice.paid"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantErr {
				if !errors.Is(err, ErrIncompleteEvent) {
					t.Errorf("Validate() = %v, want ErrIncompleteEvent", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestEvent_Type(t *testing.T) {
	if got := (CheckoutCompleted{}).Type(); got != TypeCheckoutCompleted {
		t.Errorf("CheckoutCompleted.Type() = %s", got)
	}
	if got := (SubscriptionDeleted{}).Type(); got != TypeSubscriptionDeleted {
		t.Errorf("SubscriptionDeleted.Type() = %s", got)
	}
	if got := (Ignored{EventType: "invoice.paid"}).Type(); got != "invoice.paid" {
		t.Errorf("Ignored.Type() = %s", got)
	}
}
