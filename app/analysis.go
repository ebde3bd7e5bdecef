package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ravindran79-arch/smartbid-compliance/ports"
)

// AnalysisService relays prepared generation requests unmetered.
type AnalysisService struct {
	generator ports.Generator
	metrics   ports.Metrics
	logger    zerolog.Logger
}

// NewAnalysisService creates a new analysis relay.
func NewAnalysisService(generator ports.Generator, logger zerolog.Logger) *AnalysisService {
	return &AnalysisService{generator: generator, metrics: noopMetrics{}, logger: logger}
}

// WithMetrics sets the metrics recorder.
func (s *AnalysisService) WithMetrics(m ports.Metrics) *AnalysisService {
	if m != nil {
		s.metrics = m
	}
	return s
}

// Analyze forwards body and returns the provider response verbatim.
func (s *AnalysisService) Analyze(ctx context.Context, body []byte) ([]byte, error) {
	if len(body) == 0 || !json.Valid(body) {
		return nil, fmt.Errorf("%w: body must be a JSON generation request", ErrInvalidRequest)
	}

	start := time.Now()
	out, err := s.generator.Generate(ctx, body)
	s.metrics.Upstream("llm", time.Since(start), err)
	if err != nil {
		if errors.Is(err, ports.ErrNotConfigured) {
			return nil, err
		}
		s.logger.Error().Err(err).Msg("analysis relay failed")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return out, nil
}
