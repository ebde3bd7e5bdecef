package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/ravindran79-arch/smartbid-compliance/domain/report"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// ReportStore is an in-memory implementation of ports.ReportStore.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]report.Report // by ID
	byOwner map[string][]string      // owner -> IDs
}

// NewReportStore creates a new in-memory report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string]report.Report),
		byOwner: make(map[string][]string),
	}
}

// Create stores a new report.
func (s *ReportStore) Create(ctx context.Context, r report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[r.ID]; exists {
		return errors.New("report already exists")
	}

	s.reports[r.ID] = r
	s.byOwner[r.OwnerLogin] = append(s.byOwner[r.OwnerLogin], r.ID)
	return nil
}

// Get retrieves a report by ID.
func (s *ReportStore) Get(ctx context.Context, id string) (report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return report.Report{}, ports.ErrNotFound
	}
	return r, nil
}

// ListByOwner returns an owner's reports, newest first.
func (s *ReportStore) ListByOwner(ctx context.Context, owner string, limit int) ([]report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byOwner[owner]
	result := make([]report.Report, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.reports[id])
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp > result[j].Timestamp
	})

	if limit > 0 && limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

// Delete removes a report.
func (s *ReportStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.reports[id]
	if !ok {
		return ports.ErrNotFound
	}

	ids := s.byOwner[r.OwnerLogin]
	for i, existing := range ids {
		if existing == id {
			s.byOwner[r.OwnerLogin] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	delete(s.reports, id)
	return nil
}

// Ensure interface compliance.
var _ ports.ReportStore = (*ReportStore)(nil)
