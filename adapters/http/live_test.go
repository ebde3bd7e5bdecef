package http_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	apihttp "github.com/ravindran79-arch/smartbid-compliance/adapters/http"
	"github.com/ravindran79-arch/smartbid-compliance/adapters/payment"
	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
)

func TestLiveUsage(t *testing.T) {
	ts := setupTestServer(t, payment.StripeConfig{})
	ts.usage.Increment(context.Background(), "alice", usage.CounterBidder)

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/usage/alice/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg apihttp.LiveMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if msg.Type != "usage" || msg.Usage.BidderChecks != 1 || msg.Decision.Remaining != 2 {
		t.Errorf("snapshot = %+v", msg)
	}

	// A committed audit is pushed to the subscriber.
	rec := ts.do("POST", "/api/audits", []byte(`{"userId":"alice","role":"bidder","rfq":"a","bid":"b"}`), nil)
	if rec.Code != 201 {
		t.Fatalf("audit status = %d; body: %s", rec.Code, rec.Body.String())
	}

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if msg.Usage.BidderChecks != 2 || msg.Decision.Remaining != 1 {
		t.Errorf("update = %+v, want 2 bidder checks with 1 remaining", msg)
	}
}

func TestLiveUsage_SkipsRecordsOlderThanSnapshot(t *testing.T) {
	ts := setupTestServer(t, payment.StripeConfig{})
	ctx := context.Background()
	ts.usage.Increment(ctx, "alice", usage.CounterBidder)
	ts.usage.Increment(ctx, "alice", usage.CounterBidder)

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/usage/alice/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg apihttp.LiveMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}
	if msg.Usage.BidderChecks != 2 || msg.Usage.Version != 2 {
		t.Fatalf("snapshot = %+v", msg.Usage)
	}

	// A late publish of the first increment arrives after the snapshot.
	ts.feed.Publish(usage.Record{UserID: "alice", BidderChecks: 1, Version: 1})

	rec := ts.do("POST", "/api/audits", []byte(`{"userId":"alice","role":"initiator","rfq":"a","bid":"b"}`), nil)
	if rec.Code != 201 {
		t.Fatalf("audit status = %d; body: %s", rec.Code, rec.Body.String())
	}

	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read update: %v", err)
	}
	if msg.Usage.BidderChecks != 2 || msg.Usage.InitiatorChecks != 1 || msg.Usage.Version != 3 {
		t.Errorf("update = %+v, want the initiator audit at version 3", msg.Usage)
	}
}

func TestLiveUsage_ClosedOnShutdown(t *testing.T) {
	ts := setupTestServer(t, payment.StripeConfig{})

	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/usage/bob/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var msg apihttp.LiveMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read snapshot: %v", err)
	}

	ts.feed.Close()

	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.CloseGoingAway) {
		t.Errorf("read after shutdown error = %v, want close going away", err)
	}
}
