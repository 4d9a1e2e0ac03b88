package monitor

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/3ngin33r0d1y/API-Monitoring/internal/compliance"
)

// Evaluator produces a fresh compliance result from the current snapshot.
type Evaluator interface {
	Evaluate(ctx context.Context) (*compliance.Result, error)
}

// Broadcaster distributes refreshed results to streaming clients.
type Broadcaster interface {
	Broadcast(stream string, payload []byte)
}

// Stream name used for compliance pushes.
const complianceStream = "compliance"

// Service owns the refresh lifecycle around the pure compliance engine: a
// periodic re-evaluation, manual refreshes, and the latest-result cache the
// HTTP layer reads. Overlapping refreshes are harmless; the last stored
// result wins.
type Service struct {
	evaluator Evaluator
	hub       Broadcaster
	logger    *slog.Logger
	interval  time.Duration

	mu     sync.RWMutex
	latest *compliance.Result

	metrics *evaluationMetrics
}

// New returns a monitor service. A nil hub disables streaming.
func New(evaluator Evaluator, hub Broadcaster, logger *slog.Logger, interval time.Duration) *Service {
	return &Service{
		evaluator: evaluator,
		hub:       hub,
		logger:    logger,
		interval:  interval,
		metrics:   newEvaluationMetrics(prometheus.DefaultRegisterer, logger),
	}
}

// Run refreshes immediately, then on every interval tick until the context
// is cancelled.
func (s *Service) Run(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil {
		s.logger.Error("initial compliance refresh failed", "error", err)
	}
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := s.Refresh(ctx); err != nil {
				s.logger.Error("scheduled compliance refresh failed", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Refresh runs one evaluation, stores the result and pushes it to streaming
// clients.
func (s *Service) Refresh(ctx context.Context) (*compliance.Result, error) {
	started := time.Now()
	result, err := s.evaluator.Evaluate(ctx)
	if err != nil {
		s.metrics.recordEvaluation("error", time.Since(started))
		return nil, err
	}
	s.metrics.recordEvaluation("ok", time.Since(started))
	s.metrics.recordResult(result)

	for _, conflict := range result.Diagnostics {
		s.logger.Warn("environment aliases disagree",
			"service", conflict.ServiceName,
			"stage", conflict.Stage,
			"chosen", conflict.ChosenLabel+"="+conflict.ChosenVersion,
			"ignored", conflict.IgnoredLabel+"="+conflict.IgnoredVersion,
		)
	}

	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()

	s.publish(result)
	s.logger.Info("compliance refreshed",
		"services", result.TotalServices,
		"violations", len(result.Violations),
		"score", result.ScorePercent,
	)
	return result, nil
}

// Latest returns the most recently stored result, if any evaluation has
// completed yet.
func (s *Service) Latest() (*compliance.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.latest, s.latest != nil
}

func (s *Service) publish(result *compliance.Result) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Error("failed to encode compliance result", "error", err)
		return
	}
	s.hub.Broadcast(complianceStream, payload)
}
