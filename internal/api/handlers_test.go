package api

import (
	"testing"

	"github.com/miradorstack/mirador-rca/internal/result"
)

func buildSampleCauseResult() result.CauseResult {
	return result.CauseResult{
		AbnormalKPI: result.AbnormalKPI{
			MetricID:     "sli_latency",
			EntityID:     "sli1",
			Timestamp:    100000,
			MetricLabels: map[string]string{"sli": "checkout"},
			Desc:         "SLI latency abnormal",
		},
		CauseMetrics: []result.CauseMetric{
			{
				MetricID:     "blk_util",
				EntityID:     "block2",
				MetricLabels: map[string]string{"disk": "sda"},
				Timestamp:    100000,
				Desc:         "block device utilization high",
				Score:        0.9,
				Keyword:      "storage",
				Path: []result.PathStep{
					{MetricID: "blk_util", EntityID: "block2", Score: 0.9},
					{MetricID: "sli_latency", EntityID: "sli1"},
				},
			},
		},
		Desc: "SLI latency abnormal, top 1 probable root causes: 1. block device utilization high;",
	}
}

func TestToProtoCauseResultMapsAbnormalKPI(t *testing.T) {
	proto := ToProtoCauseResult(buildSampleCauseResult())

	if !proto.Found {
		t.Fatalf("expected Found to be true")
	}
	if proto.AbnormalKPI.MetricID != "sli_latency" || proto.AbnormalKPI.EntityID != "sli1" {
		t.Fatalf("unexpected abnormal_kpi mapping: %+v", proto.AbnormalKPI)
	}
}

func TestToProtoCauseResultMapsCauseMetricsAndPath(t *testing.T) {
	proto := ToProtoCauseResult(buildSampleCauseResult())

	if len(proto.CauseMetrics) != 1 {
		t.Fatalf("expected one cause metric, got %d", len(proto.CauseMetrics))
	}
	cm := proto.CauseMetrics[0]
	if cm.EntityID != "block2" || cm.Keyword != "storage" {
		t.Fatalf("unexpected cause metric mapping: %+v", cm)
	}
	if len(cm.Path) != 2 || cm.Path[0].MetricID != "blk_util" || cm.Path[1].MetricID != "sli_latency" {
		t.Fatalf("unexpected path mapping: %+v", cm.Path)
	}
}
