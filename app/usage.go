package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ravindran79-arch/smartbid-compliance/domain/entitlement"
	"github.com/ravindran79-arch/smartbid-compliance/domain/usage"
	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// Snapshot is a user's committed usage record plus the gate decision for it.
type Snapshot struct {
	Usage    usage.Record         `json:"usage"`
	Decision entitlement.Decision `json:"decision"`
}

// UsageService meters audits against the trial limit.
// Concurrency control lives in the store transaction, never here.
type UsageService struct {
	store     ports.UsageStore
	publisher ports.UsagePublisher
	limit     atomic.Int64
	metrics   ports.Metrics
	logger    zerolog.Logger
}

// NewUsageService creates a new usage service. publisher may be nil.
func NewUsageService(
	store ports.UsageStore,
	publisher ports.UsagePublisher,
	trialLimit int64,
	logger zerolog.Logger,
) *UsageService {
	s := &UsageService{
		store:     store,
		publisher: publisher,
		metrics:   noopMetrics{},
		logger:    logger,
	}
	s.limit.Store(trialLimit)
	return s
}

// WithMetrics sets the metrics recorder.
func (s *UsageService) WithMetrics(m ports.Metrics) *UsageService {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Limit returns the current trial limit.
func (s *UsageService) Limit() int64 {
	return s.limit.Load()
}

// SetLimit changes the trial limit, e.g. after a config reload.
func (s *UsageService) SetLimit(limit int64) {
	old := s.limit.Swap(limit)
	if old != limit {
		s.logger.Info().Int64("old", old).Int64("new", limit).Msg("trial limit updated")
	}
}

// Snapshot returns the user's record and the gate decision for it.
func (s *UsageService) Snapshot(ctx context.Context, userID string) (Snapshot, error) {
	if strings.TrimSpace(userID) == "" {
		return Snapshot{}, fmt.Errorf("%w: userId is required", ErrInvalidRequest)
	}

	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read usage: %w", err)
	}
	return Snapshot{Usage: rec, Decision: entitlement.Check(rec, s.Limit())}, nil
}

// Authorize evaluates the entitlement gate for a metered action.
// A blocked user gets ErrTrialExhausted together with the snapshot that
// explains the refusal.
func (s *UsageService) Authorize(ctx context.Context, userID string) (Snapshot, error) {
	snap, err := s.Snapshot(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}

	s.metrics.GateDecision(snap.Decision.Reason)
	if !snap.Decision.Allowed {
		s.logger.Info().
			Str("user_id", userID).
			Int64("bidder_checks", snap.Usage.BidderChecks).
			Int64("limit", snap.Decision.Limit).
			Msg("metered action blocked")
		return snap, ErrTrialExhausted
	}
	return snap, nil
}

// Increment commits one use of counter and publishes the new record.
// On error the use must be treated as not counted.
func (s *UsageService) Increment(ctx context.Context, userID string, counter usage.Counter) (usage.Record, error) {
	return s.increment(ctx, userID, counter, nil)
}

// IncrementAllowed is Increment with the gate re-evaluated on the record
// inside the store transaction. A user blocked by a concurrent commit since
// Authorize gets ErrTrialExhausted and nothing is counted.
func (s *UsageService) IncrementAllowed(ctx context.Context, userID string, counter usage.Counter) (usage.Record, error) {
	limit := s.Limit()
	return s.increment(ctx, userID, counter, func(rec usage.Record) error {
		if entitlement.IsBlocked(rec, limit) {
			return ErrTrialExhausted
		}
		return nil
	})
}

func (s *UsageService) increment(ctx context.Context, userID string, counter usage.Counter, allow func(usage.Record) error) (usage.Record, error) {
	var (
		rec usage.Record
		err error
	)
	if allow == nil {
		rec, err = s.store.Increment(ctx, userID, counter)
	} else {
		rec, err = s.store.IncrementIf(ctx, userID, counter, allow)
	}
	if err != nil {
		if errors.Is(err, ErrTrialExhausted) {
			s.metrics.UsageIncrement(string(counter), "blocked")
			s.logger.Info().
				Str("user_id", userID).
				Str("counter", string(counter)).
				Msg("usage increment refused, trial used up meanwhile")
			return usage.Record{}, err
		}
		outcome := "error"
		if errors.Is(err, ports.ErrConflict) {
			outcome = "conflict"
		}
		s.metrics.UsageIncrement(string(counter), outcome)
		s.logger.Error().Err(err).
			Str("user_id", userID).
			Str("counter", string(counter)).
			Msg("usage increment failed")
		return usage.Record{}, err
	}

	s.metrics.UsageIncrement(string(counter), "ok")
	s.publish(rec)
	return rec, nil
}

func (s *UsageService) publish(rec usage.Record) {
	if s.publisher != nil {
		s.publisher.Publish(rec)
	}
}
