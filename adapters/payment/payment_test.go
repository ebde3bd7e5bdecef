package payment_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/ravindran79-arch/smartbid-compliance/adapters/payment"
	"github.com/ravindran79-arch/smartbid-compliance/domain/billing"
)

const testWebhookSecret = "whsec_test_123"

func signedEvent(t *testing.T, event map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return signed.Payload, signed.Header
}

func stripeEvent(id, typ string, object map[string]any) map[string]any {
	return map[string]any{
		"id":     id,
		"object": "event",
		"type":   typ,
		"data":   map[string]any{"object": object},
	}
}

func TestNoopProvider(t *testing.T) {
	p := payment.NewNoopProvider()
	if p.Name() != "none" {
		t.Errorf("Name() = %s, want none", p.Name())
	}
	if _, err := p.CreatePortalSession(context.Background(), "cus_1", "https://return"); err != payment.ErrPaymentsDisabled {
		t.Errorf("CreatePortalSession err = %v, want ErrPaymentsDisabled", err)
	}
	if _, err := p.ParseWebhook([]byte("{}"), "sig"); err != payment.ErrPaymentsDisabled {
		t.Errorf("ParseWebhook err = %v, want ErrPaymentsDisabled", err)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantName string
		wantErr  bool
	}{
		{"default is stripe", "", "stripe", false},
		{"stripe", "stripe", "stripe", false},
		{"none", "none", "none", false},
		{"unknown", "paypal", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := payment.NewProvider(tt.provider, payment.StripeConfig{})
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("Name() = %s, want %s", p.Name(), tt.wantName)
			}
		})
	}
}

func TestStripeProvider_ParseWebhook_CheckoutCompleted(t *testing.T) {
	p := payment.NewStripeProvider(payment.StripeConfig{WebhookSecret: testWebhookSecret})

	payload, sig := signedEvent(t, stripeEvent("evt_1", "checkout.session.completed", map[string]any{
		"id":                  "cs_1",
		"object":              "checkout.session",
		"client_reference_id": "alice",
		"customer":            "cus_123",
	}))

	ev, err := p.ParseWebhook(payload, sig)
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	got, ok := ev.(billing.CheckoutCompleted)
	if !ok {
		t.Fatalf("event = %T, want CheckoutCompleted", ev)
	}
	want := billing.CheckoutCompleted{EventID: "evt_1", UserID: "alice", CustomerID: "cus_123"}
	if got != want {
		t.Errorf("event = %+v, want %+v", got, want)
	}
}

func TestStripeProvider_ParseWebhook_SubscriptionDeleted(t *testing.T) {
	p := payment.NewStripeProvider(payment.StripeConfig{WebhookSecret: testWebhookSecret})

	payload, sig := signedEvent(t, stripeEvent("evt_2", "customer.subscription.deleted", map[string]any{
		"id":       "sub_1",
		"object":   "subscription",
		"customer": "cus_123",
	}))

	ev, err := p.ParseWebhook(payload, sig)
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	got, ok := ev.(billing.SubscriptionDeleted)
	if !ok {
		t.Fatalf("event = %T, want SubscriptionDeleted", ev)
	}
	if got.CustomerID != "cus_123" || got.SubscriptionID != "sub_1" || got.EventID != "evt_2" {
		t.Errorf("event = %+v", got)
	}
}

func TestStripeProvider_ParseWebhook_Ignored(t *testing.T) {
	p := payment.NewStripeProvider(payment.StripeConfig{WebhookSecret: testWebhookSecret})

	payload, sig := signedEvent(t, stripeEvent("evt_3", "invoice.paid", map[string]any{
		"id":     "in_1",
		"object": "invoice",
	}))

	ev, err := p.ParseWebhook(payload, sig)
	if err != nil {
		t.Fatalf("ParseWebhook: %v", err)
	}
	if ev.Type() != "invoice.paid" {
		t.Errorf("Type() = %s, want invoice.paid", ev.Type())
	}
	if _, ok := ev.(billing.Ignored); !ok {
		t.Errorf("event = %T, want Ignored", ev)
	}
}

func TestStripeProvider_ParseWebhook_BadSignature(t *testing.T) {
	p := payment.NewStripeProvider(payment.StripeConfig{WebhookSecret: testWebhookSecret})

	payload, sig := signedEvent(t, stripeEvent("evt_1", "checkout.session.completed", map[string]any{
		"client_reference_id": "alice",
		"customer":            "cus_123",
	}))

	tests := []struct {
		name    string
		payload []byte
		sig     string
	}{
		{"tampered payload", bytes.Replace(payload, []byte("alice"), []byte("mallory"), 1), sig},
		{"missing header", payload, ""},
		{"garbage header", payload, "t=1,v1=deadbeef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseWebhook(tt.payload, tt.sig)
			if !errors.Is(err, payment.ErrInvalidSignature) {
				t.Errorf("err = %v, want ErrInvalidSignature", err)
			}
		})
	}
}

func TestStripeProvider_ParseWebhook_WrongSecret(t *testing.T) {
	p := payment.NewStripeProvider(payment.StripeConfig{WebhookSecret: "whsec_other"})

	payload, sig := signedEvent(t, stripeEvent("evt_1", "invoice.paid", map[string]any{}))
	if _, err := p.ParseWebhook(payload, sig); !errors.Is(err, payment.ErrInvalidSignature) {
		t.Errorf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestStripeProvider_ParseWebhook_NotConfigured(t *testing.T) {
	p := payment.NewStripeProvider(payment.StripeConfig{})
	if _, err := p.ParseWebhook([]byte("{}"), "sig"); err != payment.ErrPaymentsDisabled {
		t.Errorf("err = %v, want ErrPaymentsDisabled", err)
	}
}

func TestStripeProvider_CreatePortalSession(t *testing.T) {
	var gotCustomer, gotReturn, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/billing_portal/sessions" {
			http.NotFound(w, r)
			return
		}
		r.ParseForm()
		gotCustomer = r.PostForm.Get("customer")
		gotReturn = r.PostForm.Get("return_url")
		gotAuth = r.Header.Get("Authorization")

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "bps_1",
			"object": "billing_portal.session",
			"url":    "https://billing.stripe.com/p/session/test_1",
		})
	}))
	defer srv.Close()

	p := payment.NewStripeProvider(payment.StripeConfig{SecretKey: "sk_test_123", APIURL: srv.URL})

	url, err := p.CreatePortalSession(context.Background(), "cus_123", "https://app.example.com/")
	if err != nil {
		t.Fatalf("CreatePortalSession: %v", err)
	}
	if url != "https://billing.stripe.com/p/session/test_1" {
		t.Errorf("url = %s", url)
	}
	if gotCustomer != "cus_123" {
		t.Errorf("customer = %s, want cus_123", gotCustomer)
	}
	if gotReturn != "https://app.example.com/" {
		t.Errorf("return_url = %s", gotReturn)
	}
	if gotAuth != "Bearer sk_test_123" {
		t.Errorf("Authorization = %s", gotAuth)
	}
}

func TestStripeProvider_CreatePortalSession_NotConfigured(t *testing.T) {
	p := payment.NewStripeProvider(payment.StripeConfig{WebhookSecret: testWebhookSecret})
	if _, err := p.CreatePortalSession(context.Background(), "cus_1", "https://r"); err != payment.ErrPaymentsDisabled {
		t.Errorf("err = %v, want ErrPaymentsDisabled", err)
	}
}
