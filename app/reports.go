package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ravindran79-arch/smartbid-compliance/domain/report"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// DefaultReportListLimit caps List when the caller passes no limit.
const DefaultReportListLimit = 100

// ReportService gives owners access to their stored reports.
// A report that exists but belongs to someone else is reported as not found.
type ReportService struct {
	reports ports.ReportStore
	logger  zerolog.Logger
}

// NewReportService creates a new report service.
func NewReportService(reports ports.ReportStore, logger zerolog.Logger) *ReportService {
	return &ReportService{reports: reports, logger: logger}
}

// List returns the owner's reports, newest first.
func (s *ReportService) List(ctx context.Context, owner string, limit int) ([]report.Report, error) {
	if strings.TrimSpace(owner) == "" {
		return nil, fmt.Errorf("%w: owner is required", ErrInvalidRequest)
	}
	if limit <= 0 || limit > DefaultReportListLimit {
		limit = DefaultReportListLimit
	}
	list, err := s.reports.ListByOwner(ctx, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	if list == nil {
		list = []report.Report{}
	}
	return list, nil
}

// Get returns one report owned by owner.
func (s *ReportService) Get(ctx context.Context, owner, id string) (report.Report, error) {
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(id) == "" {
		return report.Report{}, fmt.Errorf("%w: owner and id are required", ErrInvalidRequest)
	}
	rep, err := s.reports.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return report.Report{}, ports.ErrNotFound
		}
		return report.Report{}, fmt.Errorf("get report: %w", err)
	}
	if rep.OwnerLogin != owner {
		return report.Report{}, ports.ErrNotFound
	}
	return rep, nil
}

// Delete removes one report on its owner's request.
func (s *ReportService) Delete(ctx context.Context, owner, id string) error {
	if _, err := s.Get(ctx, owner, id); err != nil {
		return err
	}
	if err := s.reports.Delete(ctx, id); err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return ports.ErrNotFound
		}
		return fmt.Errorf("delete report: %w", err)
	}
	s.logger.Info().Str("owner", owner).Str("report_id", id).Msg("report deleted")
	return nil
}
