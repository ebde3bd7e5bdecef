package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ravindran79-arch/smartbid-compliance/domain/entitlement"
	"github.com/ravindran79-arch/smartbid-compliance/domain/report"
	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// AuditRequest is one metered compliance audit.
// Either Request (a prepared generation request relayed verbatim) or Input
// (document texts rendered into the standard prompt) must be set.
type AuditRequest struct {
	UserID  string
	Role    usage.Counter
	Input   report.Input
	Request json.RawMessage
}

// AuditResult is the persisted report plus the usage state after the audit.
type AuditResult struct {
	Report   report.Report        `json:"report"`
	Usage    usage.Record         `json:"usage"`
	Decision entitlement.Decision `json:"decision"`
}

// AuditService runs metered audits: gate, model call, persist, count.
type AuditService struct {
	usage     *UsageService
	reports   ports.ReportStore
	generator ports.Generator
	idGen     ports.IDGenerator
	clock     ports.Clock
	metrics   ports.Metrics
	logger    zerolog.Logger
}

// NewAuditService creates a new audit service.
func NewAuditService(
	usageSvc *UsageService,
	reports ports.ReportStore,
	generator ports.Generator,
	idGen ports.IDGenerator,
	clock ports.Clock,
	logger zerolog.Logger,
) *AuditService {
	return &AuditService{
		usage:     usageSvc,
		reports:   reports,
		generator: generator,
		idGen:     idGen,
		clock:     clock,
		metrics:   noopMetrics{},
		logger:    logger,
	}
}

// WithMetrics sets the metrics recorder.
func (s *AuditService) WithMetrics(m ports.Metrics) *AuditService {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Run executes one audit. A blocked user gets ErrTrialExhausted and nothing
// is called, stored or counted. The gate is checked again when counting, so
// concurrent audits cannot push a trial past its limit. If the counter cannot
// be incremented the stored report is removed again, so every kept report
// has been counted.
func (s *AuditService) Run(ctx context.Context, req AuditRequest) (AuditResult, error) {
	if err := validateAudit(req); err != nil {
		return AuditResult{}, err
	}
	role := string(req.Role)

	if _, err := s.usage.Authorize(ctx, req.UserID); err != nil {
		if errors.Is(err, ErrTrialExhausted) {
			s.metrics.Audit(role, "blocked")
		}
		return AuditResult{}, err
	}

	text, err := s.generate(ctx, req)
	if err != nil {
		s.metrics.Audit(role, "upstream_error")
		return AuditResult{}, err
	}

	draft, err := report.ParseDraft(text)
	if err != nil {
		s.metrics.Audit(role, "invalid_report")
		return AuditResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	rep := report.Finalize(draft, s.idGen.New(), req.UserID, role, s.clock.Now().UnixMilli())
	if err := report.Validate(rep); err != nil {
		s.metrics.Audit(role, "invalid_report")
		s.logger.Warn().Err(err).Str("user_id", req.UserID).Msg("model returned an invalid report")
		return AuditResult{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if err := s.reports.Create(ctx, rep); err != nil {
		s.metrics.Audit(role, "error")
		return AuditResult{}, fmt.Errorf("store report: %w", err)
	}

	rec, err := s.usage.IncrementAllowed(ctx, req.UserID, req.Role)
	if err != nil {
		s.logger.Error().Err(err).
			Str("user_id", req.UserID).
			Str("report_id", rep.ID).
			Msg("usage increment failed, attempting to remove report")

		// Compensation: an uncounted audit must not leave a report behind.
		if delErr := s.reports.Delete(context.WithoutCancel(ctx), rep.ID); delErr != nil {
			s.logger.Error().Err(delErr).
				Str("report_id", rep.ID).
				Msg("failed to remove report after increment failure")
		}
		if errors.Is(err, ErrTrialExhausted) {
			s.metrics.Audit(role, "blocked")
		} else {
			s.metrics.Audit(role, "error")
		}
		return AuditResult{}, fmt.Errorf("count audit: %w", err)
	}

	s.metrics.Audit(role, "ok")
	s.logger.Info().
		Str("user_id", req.UserID).
		Str("report_id", rep.ID).
		Str("role", role).
		Int("findings", len(rep.Findings)).
		Msg("audit completed")

	return AuditResult{
		Report:   rep,
		Usage:    rec,
		Decision: entitlement.Check(rec, s.usage.Limit()),
	}, nil
}

func (s *AuditService) generate(ctx context.Context, req AuditRequest) (string, error) {
	start := time.Now()
	var (
		text string
		err  error
	)
	if len(req.Request) > 0 {
		text, err = s.generator.GenerateText(ctx, req.Request)
	} else {
		text, err = s.generator.Complete(ctx, report.Prompt(string(req.Role), req.Input))
	}
	s.metrics.Upstream("llm", time.Since(start), err)

	if err != nil {
		if errors.Is(err, ports.ErrNotConfigured) {
			return "", err
		}
		s.logger.Error().Err(err).Str("user_id", req.UserID).Msg("generation failed")
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return text, nil
}

func validateAudit(req AuditRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}
	if !req.Role.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidRequest, usage.ErrUnknownCounter, req.Role)
	}
	if len(req.Request) > 0 {
		if !json.Valid(req.Request) {
			return fmt.Errorf("%w: request is not valid JSON", ErrInvalidRequest)
		}
		return nil
	}
	if err := req.Input.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return nil
}
