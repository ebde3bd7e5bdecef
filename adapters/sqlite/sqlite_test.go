package sqlite_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ravindran79-arch/smartbid-compliance/adapters/clock"
	"github.com/ravindran79-arch/smartbid-compliance/adapters/sqlite"
	"github.com/ravindran79-arch/smartbid-compliance/domain/report"
	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

func setupTestDB(t *testing.T) (*sqlite.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp("", "smartbid-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	path := f.Name()
	f.Close()

	db, err := sqlite.Open(path)
	if err != nil {
		os.Remove(path)
		t.Fatalf("open database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		os.Remove(path)
		t.Fatalf("migrate: %v", err)
	}

	cleanup := func() {
		db.Close()
		os.Remove(path)
		os.Remove(path + "-wal")
		os.Remove(path + "-shm")
	}

	return db, cleanup
}

func TestMigrate_Idempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := db.Migrate(); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

// -----------------------------------------------------------------------------
// UsageStore Tests
// -----------------------------------------------------------------------------

func TestUsageStore_Get_Absent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewUsageStore(db, "")
	rec, err := store.Get(context.Background(), "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.UserID != "alice" || rec.BidderChecks != 0 || rec.IsSubscribed {
		t.Errorf("absent record = %+v, want zero", rec)
	}
}

func TestUsageStore_Increment(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := sqlite.NewUsageStore(db, "test").WithClock(clock.NewFake(now))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := store.Increment(ctx, "alice", usage.CounterBidder); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	rec, err := store.Increment(ctx, "alice", usage.CounterInitiator)
	if err != nil {
		t.Fatalf("increment: %v", err)
	}

	if rec.BidderChecks != 2 || rec.InitiatorChecks != 1 {
		t.Errorf("record = %+v, want bidder=2 initiator=1", rec)
	}

	got, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !usage.SameState(got, rec) {
		t.Errorf("Get = %+v, want %+v", got, rec)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, now)
	}
}

func TestUsageStore_Increment_UnknownCounter(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewUsageStore(db, "")
	_, err := store.Increment(context.Background(), "alice", usage.Counter("other"))
	if !errors.Is(err, usage.ErrUnknownCounter) {
		t.Errorf("err = %v, want ErrUnknownCounter", err)
	}
}

func TestUsageStore_Increment_Concurrent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewUsageStore(db, "")
	ctx := context.Background()
	const n = 25

	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := store.Increment(ctx, "alice", usage.CounterBidder)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent increment: %v", err)
	}

	rec, _ := store.Get(ctx, "alice")
	if rec.BidderChecks != n {
		t.Errorf("BidderChecks = %d, want %d", rec.BidderChecks, n)
	}
}

func TestUsageStore_Namespaces(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	a := sqlite.NewUsageStore(db, "app-a")
	b := sqlite.NewUsageStore(db, "app-b")
	ctx := context.Background()

	a.Increment(ctx, "alice", usage.CounterBidder)

	rec, _ := b.Get(ctx, "alice")
	if rec.BidderChecks != 0 {
		t.Errorf("namespace leak: %+v", rec)
	}
}

func TestUsageStore_SubscribeAndUnsubscribe(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewUsageStore(db, "")
	ctx := context.Background()

	store.Increment(ctx, "alice", usage.CounterBidder)

	rec, err := store.Subscribe(ctx, "alice", "cus_1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if !rec.IsSubscribed || rec.BillingCustomerID != "cus_1" || rec.BidderChecks != 1 {
		t.Errorf("after subscribe = %+v", rec)
	}

	replay, err := store.Subscribe(ctx, "alice", "cus_1")
	if err != nil {
		t.Fatalf("subscribe replay: %v", err)
	}
	if !usage.SameState(rec, replay) {
		t.Errorf("replay changed state: %+v -> %+v", rec, replay)
	}

	rec, err = store.UnsubscribeCustomer(ctx, "cus_1")
	if err != nil {
		t.Fatalf("unsubscribe: %v", err)
	}
	if rec.IsSubscribed || rec.UserID != "alice" {
		t.Errorf("after unsubscribe = %+v", rec)
	}

	got, _ := store.Get(ctx, "alice")
	if got.IsSubscribed || got.BillingCustomerID != "cus_1" {
		t.Errorf("persisted = %+v", got)
	}
}

func TestUsageStore_UnsubscribeCustomer_Unknown(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewUsageStore(db, "")
	_, err := store.UnsubscribeCustomer(context.Background(), "cus_missing")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUsageStore_UnsubscribeCustomer_ReplacedCustomer(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewUsageStore(db, "")
	ctx := context.Background()

	store.Subscribe(ctx, "alice", "cus_old")
	store.Subscribe(ctx, "alice", "cus_new")

	// A late cancellation for the replaced customer must not end the new subscription.
	_, err := store.UnsubscribeCustomer(ctx, "cus_old")
	if !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	got, _ := store.Get(ctx, "alice")
	if !got.IsSubscribed || got.BillingCustomerID != "cus_new" {
		t.Fatalf("record = %+v, want subscribed under cus_new", got)
	}

	rec, err := store.UnsubscribeCustomer(ctx, "cus_new")
	if err != nil {
		t.Fatalf("UnsubscribeCustomer(cus_new): %v", err)
	}
	if rec.IsSubscribed {
		t.Errorf("after cancelling cus_new = %+v", rec)
	}
}

func TestUsageStore_VersionAdvances(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewUsageStore(db, "")
	ctx := context.Background()

	store.Increment(ctx, "alice", usage.CounterBidder)
	store.Increment(ctx, "alice", usage.CounterInitiator)
	store.Subscribe(ctx, "alice", "cus_1")
	store.Subscribe(ctx, "alice", "cus_1")

	got, err := store.Get(ctx, "alice")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Version != 3 {
		t.Errorf("Version = %d, want 3", got.Version)
	}

	rec, _ := store.UnsubscribeCustomer(ctx, "cus_1")
	if rec.Version != 4 {
		t.Errorf("Version after unsubscribe = %d, want 4", rec.Version)
	}
}

func TestUsageStore_IncrementIf(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewUsageStore(db, "")
	ctx := context.Background()
	errFull := errors.New("full")
	atMostTwo := func(rec usage.Record) error {
		if rec.BidderChecks >= 2 {
			return errFull
		}
		return nil
	}

	const n = 10
	var ok atomic.Int64
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := store.IncrementIf(ctx, "alice", usage.CounterBidder, atMostTwo)
			switch {
			case err == nil:
				ok.Add(1)
			case !errors.Is(err, errFull):
				return err
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("IncrementIf: %v", err)
	}

	rec, _ := store.Get(ctx, "alice")
	if rec.BidderChecks != 2 || ok.Load() != 2 {
		t.Errorf("BidderChecks = %d after %d successes, want 2/2", rec.BidderChecks, ok.Load())
	}
}

func TestUsageStore_Ping(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	if err := sqlite.NewUsageStore(db, "").Ping(context.Background()); err != nil {
		t.Errorf("Ping = %v", err)
	}
}

// -----------------------------------------------------------------------------
// ReportStore Tests
// -----------------------------------------------------------------------------

func testReport(id, owner string, ts int64) report.Report {
	stance := "Ask for net 30"
	return report.Report{
		ID:               id,
		OwnerLogin:       owner,
		Timestamp:        ts,
		Role:             "bidderChecks",
		ExecutiveSummary: "summary",
		Findings: []report.Finding{
			{RequirementText: "ISO 9001", ComplianceScore: 1, BidResponseSummary: "ok", Flag: report.FlagCompliant, Category: report.CategoryTechnical},
			{RequirementText: "Net 30", ComplianceScore: 0.5, BidResponseSummary: "Net 45", Flag: report.FlagPartial, Category: report.CategoryCommercial, NegotiationStance: &stance},
		},
	}
}

func TestReportStore_CRUD(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	store := sqlite.NewReportStore(db, "")
	ctx := context.Background()

	if err := store.Create(ctx, testReport("r1", "alice", 100)); err != nil {
		t.Fatalf("create: %v", err)
	}
	store.Create(ctx, testReport("r2", "alice", 300))
	store.Create(ctx, testReport("r3", "bob", 200))

	got, err := store.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Findings) != 2 {
		t.Fatalf("findings = %d, want 2", len(got.Findings))
	}
	if got.Findings[1].NegotiationStance == nil || *got.Findings[1].NegotiationStance != "Ask for net 30" {
		t.Errorf("stance not round-tripped: %+v", got.Findings[1])
	}
	if err := report.Validate(got); err != nil {
		t.Errorf("stored report invalid: %v", err)
	}

	list, err := store.ListByOwner(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "r2" || list[1].ID != "r1" {
		t.Errorf("list = %v, want [r2 r1]", list)
	}

	limited, _ := store.ListByOwner(ctx, "alice", 1)
	if len(limited) != 1 {
		t.Errorf("limited len = %d, want 1", len(limited))
	}

	if err := store.Delete(ctx, "r1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "r1"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := store.Delete(ctx, "r1"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
}
