package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ravindran79-arch/smartbid-compliance/adapters/memory"
	"github.com/ravindran79-arch/smartbid-compliance/domain/report"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

func sampleReport(id, owner string, ts int64) report.Report {
	return report.Report{
		ID:               id,
		OwnerLogin:       owner,
		Timestamp:        ts,
		Role:             "bidderChecks",
		ExecutiveSummary: "summary",
		Findings: []report.Finding{
			{RequirementText: "ISO 9001", ComplianceScore: 1, BidResponseSummary: "ok", Flag: report.FlagCompliant, Category: report.CategoryTechnical},
		},
	}
}

func TestReportStore_CreateGet(t *testing.T) {
	store := memory.NewReportStore()
	ctx := context.Background()

	if err := store.Create(ctx, sampleReport("r1", "alice", 100)); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.OwnerLogin != "alice" || len(got.Findings) != 1 {
		t.Errorf("Get = %+v", got)
	}

	if err := store.Create(ctx, sampleReport("r1", "alice", 200)); err == nil {
		t.Error("duplicate Create should fail")
	}
}

func TestReportStore_Get_NotFound(t *testing.T) {
	store := memory.NewReportStore()
	if _, err := store.Get(context.Background(), "nope"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReportStore_ListByOwner(t *testing.T) {
	store := memory.NewReportStore()
	ctx := context.Background()

	store.Create(ctx, sampleReport("r1", "alice", 100))
	store.Create(ctx, sampleReport("r2", "alice", 300))
	store.Create(ctx, sampleReport("r3", "alice", 200))
	store.Create(ctx, sampleReport("r4", "bob", 400))

	list, err := store.ListByOwner(ctx, "alice", 0)
	if err != nil {
		t.Fatalf("ListByOwner failed: %v", err)
	}
	want := []string{"r2", "r3", "r1"}
	if len(list) != len(want) {
		t.Fatalf("len = %d, want %d", len(list), len(want))
	}
	for i, id := range want {
		if list[i].ID != id {
			t.Errorf("list[%d] = %s, want %s", i, list[i].ID, id)
		}
	}

	limited, _ := store.ListByOwner(ctx, "alice", 2)
	if len(limited) != 2 || limited[0].ID != "r2" {
		t.Errorf("limited list = %v", limited)
	}

	none, _ := store.ListByOwner(ctx, "carol", 10)
	if len(none) != 0 {
		t.Errorf("unknown owner should have no reports, got %d", len(none))
	}
}

func TestReportStore_Delete(t *testing.T) {
	store := memory.NewReportStore()
	ctx := context.Background()

	store.Create(ctx, sampleReport("r1", "alice", 100))
	store.Create(ctx, sampleReport("r2", "alice", 200))

	if err := store.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "r1"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("deleted report still present: %v", err)
	}
	list, _ := store.ListByOwner(ctx, "alice", 0)
	if len(list) != 1 || list[0].ID != "r2" {
		t.Errorf("list after delete = %v", list)
	}
	if err := store.Delete(ctx, "r1"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}
