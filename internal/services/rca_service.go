package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/miradorstack/mirador-rca/internal/api"
	"github.com/miradorstack/mirador-rca/internal/metrics"
	"github.com/miradorstack/mirador-rca/internal/rcapb"
	"github.com/miradorstack/mirador-rca/internal/result"
	"github.com/miradorstack/mirador-rca/internal/utils"
)

// InferenceService implements rcapb.InferenceServiceServer. It never
// runs inference itself; the foreground inference loop calls
// RecordCycle after each cycle and this service only ever serves the
// latest cached result back to operators.
type InferenceService struct {
	rcapb.UnimplementedInferenceServiceServer

	logger    *slog.Logger
	latencies *utils.LatencyTracker

	mu   sync.RWMutex
	last *result.CauseResult
}

// NewInferenceService constructs the gRPC facade.
func NewInferenceService(logger *slog.Logger) *InferenceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &InferenceService{
		logger:    logger,
		latencies: utils.NewLatencyTracker(1024),
	}
}

// RecordCycle stores the outcome of one inference cycle for later
// retrieval and feeds the cycle's latency/outcome into metrics. res is
// nil when the cycle produced no cause (a valid, non-error outcome).
func (s *InferenceService) RecordCycle(duration time.Duration, res *result.CauseResult, cycleErr error) {
	outcome := metrics.OutcomeSuccess
	if cycleErr != nil {
		outcome = metrics.OutcomeError
	}
	metrics.ObserveInferenceCycle(duration, outcome)

	s.latencies.Observe(duration)
	if count := s.latencies.Count(); count >= 20 && count%20 == 0 {
		p95 := s.latencies.Percentile(95)
		s.logger.Info("inference cycle latency", slog.Duration("p95", p95), slog.Int("samples", count))
	}

	if res == nil {
		return
	}
	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
}

// GetLastCauseResult serves the most recent inference cycle's result.
func (s *InferenceService) GetLastCauseResult(ctx context.Context, req *rcapb.GetLastCauseResultRequest) (*rcapb.CauseResultResponse, error) {
	s.mu.RLock()
	last := s.last
	s.mu.RUnlock()

	if last == nil {
		return &rcapb.CauseResultResponse{Found: false}, nil
	}
	return api.ToProtoCauseResult(*last), nil
}

// LatencyP95 returns the current p95 inference-cycle latency.
func (s *InferenceService) LatencyP95() time.Duration {
	if s.latencies == nil {
		return 0
	}
	return s.latencies.Percentile(95)
}
