package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful inference cycles.
	OutcomeSuccess = "success"
	// OutcomeError labels failed inference cycles (DB/Inference-kind errors).
	OutcomeError = "error"
)

var (
	inferenceCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mirador_rca",
			Name:      "inference_cycles_total",
			Help:      "Total number of inference cycles run, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	inferenceCycleSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "mirador_rca",
			Name:      "inference_cycle_seconds",
			Help:      "End-to-end inference cycle latency in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 4, 5, 8, 13},
		},
	)

	policyRankSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mirador_rca",
			Name:      "policy_rank_seconds",
			Help:      "Policy.Rank call latency in seconds, partitioned by policy name.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"policy"},
	)

	aggregatorMetricBufSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mirador_rca",
			Name:      "aggregator_metric_buffer_size",
			Help:      "Number of abnormal-metric events currently buffered by the aggregator.",
		},
	)
)

// Register attaches mirador-rca collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		inferenceCyclesTotal,
		inferenceCycleSeconds,
		policyRankSeconds,
		aggregatorMetricBufSize,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveInferenceCycle records one inference cycle's duration and outcome.
func ObserveInferenceCycle(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	inferenceCyclesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	inferenceCycleSeconds.Observe(duration.Seconds())
}

// ObservePolicyRank records one Policy.Rank call's duration.
func ObservePolicyRank(policyName string, duration time.Duration) {
	if duration < 0 {
		duration = 0
	}
	policyRankSeconds.WithLabelValues(policyName).Observe(duration.Seconds())
}

// SetAggregatorMetricBufSize reports the aggregator's current buffer size.
func SetAggregatorMetricBufSize(n int) {
	aggregatorMetricBufSize.Set(float64(n))
}
