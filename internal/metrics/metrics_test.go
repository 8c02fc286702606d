package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestRegisterIsIdempotent(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("unexpected error on first register: %v", err)
	}
	if err := Register(reg); err != nil {
		t.Fatalf("unexpected error on second register: %v", err)
	}
}

func TestObserveInferenceCycleNormalizesUnknownOutcome(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	ObserveInferenceCycle(5*time.Millisecond, "bogus")

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() != "mirador_rca_inference_cycles_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelValue(m, "outcome") == OutcomeSuccess {
				found = true
			}
		}
	}
	if !found {
		t.Fatalf("expected an unknown outcome to be normalized to %q", OutcomeSuccess)
	}
}

func TestSetAggregatorMetricBufSizeReportsGaugeValue(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("register: %v", err)
	}

	SetAggregatorMetricBufSize(7)

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != "mirador_rca_aggregator_metric_buffer_size" {
			continue
		}
		if got := mf.GetMetric()[0].GetGauge().GetValue(); got != 7 {
			t.Fatalf("expected gauge value 7, got %v", got)
		}
	}
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
