package aggregator

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/miradorstack/mirador-rca/internal/infererr"
	"github.com/miradorstack/mirador-rca/internal/models"
	"github.com/miradorstack/mirador-rca/internal/obsmeta"
)

type queueSource struct {
	items [][]byte
}

func (q *queueSource) Next(ctx context.Context) ([]byte, bool, error) {
	if len(q.items) == 0 {
		return nil, false, nil
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true, nil
}

func newTestRegistry() *obsmeta.Registry {
	return obsmeta.NewRegistry(obsmeta.Data{
		MetricEntityType: map[string]models.EntityType{
			"sli_latency":   models.EntitySLI,
			"proc_cpu_util": models.EntityProcess,
		},
		EntityKeys: map[models.EntityType][]string{
			models.EntitySLI:     {"machine_id", "sli_name"},
			models.EntityProcess: {"machine_id", "pid"},
		},
	})
}

func kpiPayload(ts int64) []byte {
	raw, _ := json.Marshal(map[string]any{
		"Timestamp":  ts,
		"Attributes": map[string]any{"event_id": "evt-1", "event_type": "app"},
		"Resource": map[string]any{
			"metric": "sli_latency",
			"labels": map[string]string{"machine_id": "h1", "sli_name": "checkout"},
			"score":  0.9,
		},
	})
	return raw
}

func metricPayload(ts int64, score float64) []byte {
	raw, _ := json.Marshal(map[string]any{
		"Timestamp":  ts,
		"Attributes": map[string]any{"event_id": "evt-2", "event_type": "sys"},
		"Resource": map[string]any{
			"metric": "proc_cpu_util",
			"labels": map[string]string{"machine_id": "h1", "pid": "123"},
			"score":  score,
		},
	})
	return raw
}

func TestGetAbnormalInfoReturnsValidWindowOnly(t *testing.T) {
	kpiSrc := &queueSource{items: [][]byte{kpiPayload(1_000_000)}}
	metricSrc := &queueSource{items: [][]byte{metricPayload(999_500, 0.8)}}

	agg := New(kpiSrc, metricSrc, newTestRegistry(), 60, 10, 120)
	kpi, metrics, err := agg.GetAbnormalInfo(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kpi.MetricID != "sli_latency" {
		t.Fatalf("expected sli_latency KPI, got %s", kpi.MetricID)
	}
	if len(metrics) != 2 || metrics[0].MetricID != "sli_latency" || metrics[1].MetricID != "proc_cpu_util" {
		t.Fatalf("expected the KPI itself plus one proc_cpu_util metric, got %+v", metrics)
	}
}

func TestGetAbnormalInfoNoKPI(t *testing.T) {
	agg := New(&queueSource{}, &queueSource{}, newTestRegistry(), 60, 10, 120)
	_, _, err := agg.GetAbnormalInfo(context.Background())
	if !infererr.Is(err, infererr.NoKPI) {
		t.Fatalf("expected NoKPI error, got %v", err)
	}
}

func TestDuplicateMetricBuffersBothRawEvents(t *testing.T) {
	kpiSrc := &queueSource{items: [][]byte{kpiPayload(1_000_000)}}
	metricSrc := &queueSource{items: [][]byte{
		metricPayload(999_500, 0.5),
		metricPayload(999_800, 0.8),
	}}

	agg := New(kpiSrc, metricSrc, newTestRegistry(), 60, 10, 120)
	_, metrics, err := agg.GetAbnormalInfo(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(metrics) != 3 {
		t.Fatalf("aggregator buffers the KPI and both raw metric events; dedup happens in the causal-graph builder, got %d", len(metrics))
	}
}

func TestSysEventTypeDoesNotTrigger(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"Timestamp":  1000,
		"Attributes": map[string]any{"event_id": "evt-3", "event_type": "sys"},
		"Resource": map[string]any{
			"metric": "sli_latency",
			"labels": map[string]string{"machine_id": "h1", "sli_name": "checkout"},
			"score":  0.9,
		},
	})
	agg := New(&queueSource{items: [][]byte{raw}}, &queueSource{}, newTestRegistry(), 60, 10, 120)
	_, _, err := agg.GetAbnormalInfo(context.Background())
	if !infererr.Is(err, infererr.NoKPI) {
		t.Fatalf("expected NoKPI since event_type=sys never triggers, got %v", err)
	}
}
