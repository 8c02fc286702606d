package inferloop

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/miradorstack/mirador-rca/internal/aggregator"
	"github.com/miradorstack/mirador-rca/internal/broker"
	"github.com/miradorstack/mirador-rca/internal/crosshost"
	"github.com/miradorstack/mirador-rca/internal/keyword"
	"github.com/miradorstack/mirador-rca/internal/models"
	"github.com/miradorstack/mirador-rca/internal/obsmeta"
	"github.com/miradorstack/mirador-rca/internal/policy"
	"github.com/miradorstack/mirador-rca/internal/result"
	"github.com/miradorstack/mirador-rca/internal/rules"
	"github.com/miradorstack/mirador-rca/internal/timeseries"
	"github.com/miradorstack/mirador-rca/internal/topology"
)

// buildSingleHostFixture wires one KPI entity and one block device
// that both belong to the same host, with no cross-host edges.
func buildSingleHostFixture() *topology.Fake {
	nodes := []models.TopoNode{
		{ID: "host1", EntityID: "host1", EntityType: models.EntityHost, MachineID: "m1"},
		{ID: "sli1", EntityID: "sli1", EntityType: models.EntitySLI, MachineID: "m1"},
		{ID: "block1", EntityID: "block1", EntityType: models.EntityBlock, MachineID: "m1"},
	}
	edges := []models.TopoEdge{
		{ID: "e1", Type: models.RelationBelongsTo, FromID: "sli1", ToID: "host1"},
		{ID: "e2", Type: models.RelationBelongsTo, FromID: "block1", ToID: "host1"},
	}
	f := topology.NewFake()
	f.PutSnapshot(100, nodes, edges)
	return f
}

type recordingRecorder struct {
	calls int
	last  *result.CauseResult
	err   error
}

func (r *recordingRecorder) RecordCycle(duration time.Duration, res *result.CauseResult, cycleErr error) {
	r.calls++
	r.last = res
	r.err = cycleErr
}

func newTestLoop(t *testing.T, topo *topology.Fake, publisher broker.CausePublisher, recorder CycleRecorder) (*Loop, *broker.Channel, *broker.Channel) {
	t.Helper()

	kpiChan := broker.NewChannel(4, 10*time.Millisecond)
	metricChan := broker.NewChannel(4, 10*time.Millisecond)
	registry := obsmeta.NewRegistry(obsmeta.Data{})
	agg := aggregator.New(kpiChan, metricChan, registry, 60, 60, 300)

	ts := timeseries.NewFake()
	ts.Series["sli_latency"] = []float64{1, 2, 3, 4}
	ts.Series["blk_util"] = []float64{4, 3, 2, 1}

	x := crosshost.New(topo, ts, rules.NewEngine(), policy.DFS{}, crosshost.Config{
		HostDepth:      3,
		CorrThreshold:  0,
		Step:           10,
		SampleDuration: 40,
		RootTopK:       0,
	}, nil)

	loop := New(agg, x, result.NewFormatter(keyword.NewTable()), publisher, recorder, Config{
		NoKPIPollInterval: 5 * time.Millisecond,
		ToleratedBias:     50,
	}, nil)

	return loop, kpiChan, metricChan
}

func sendKPI(t *testing.T, ch *broker.Channel, entityID, metricID string, ts int64) {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"Timestamp": ts,
		"Attributes": map[string]string{
			"event_id":   "evt-1",
			"event_type": "app",
			"entity_id":  entityID,
		},
		"Resource": map[string]interface{}{
			"metric": metricID,
		},
	})
	if err != nil {
		t.Fatalf("marshal kpi payload: %v", err)
	}
	ch.Send(payload)
}

func sendMetric(t *testing.T, ch *broker.Channel, entityID, metricID string, ts int64) {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"Timestamp": ts,
		"Attributes": map[string]string{
			"entity_id": entityID,
		},
		"Resource": map[string]interface{}{
			"metric": metricID,
		},
	})
	if err != nil {
		t.Fatalf("marshal metric payload: %v", err)
	}
	ch.Send(payload)
}

func TestRunOnceFormatsAndPublishesOnLocalCause(t *testing.T) {
	topo := buildSingleHostFixture()
	publisher := broker.NewFakePublisher(0)
	recorder := &recordingRecorder{}
	loop, kpiChan, metricChan := newTestLoop(t, topo, publisher, recorder)

	sendKPI(t, kpiChan, "sli1", "sli_latency", 100000)
	sendMetric(t, metricChan, "block1", "blk_util", 100000)

	found := loop.runOnce(context.Background())
	if !found {
		t.Fatalf("expected runOnce to find a triggering KPI")
	}
	if recorder.calls != 1 {
		t.Fatalf("expected exactly one recorded cycle, got %d", recorder.calls)
	}
	if recorder.err != nil {
		t.Fatalf("unexpected cycle error: %v", recorder.err)
	}
	if recorder.last == nil {
		t.Fatalf("expected a non-nil cause result")
	}
	if recorder.last.AbnormalKPI.EntityID != "sli1" {
		t.Fatalf("unexpected abnormal kpi entity: %+v", recorder.last.AbnormalKPI)
	}

	envelopes := publisher.Envelopes()
	if len(envelopes) != 1 {
		t.Fatalf("expected exactly one published envelope, got %d", len(envelopes))
	}
	if envelopes[0].EventID != "evt-1" {
		t.Fatalf("unexpected envelope event id: %q", envelopes[0].EventID)
	}
}

func TestRunOnceReturnsFalseWhenNoKPIAvailable(t *testing.T) {
	topo := buildSingleHostFixture()
	publisher := broker.NewFakePublisher(0)
	recorder := &recordingRecorder{}
	loop, _, _ := newTestLoop(t, topo, publisher, recorder)

	found := loop.runOnce(context.Background())
	if found {
		t.Fatalf("expected runOnce to report no KPI found")
	}
	if recorder.calls != 0 {
		t.Fatalf("expected no recorded cycle, got %d", recorder.calls)
	}
}

func TestMetadataRefresherMergesUpdates(t *testing.T) {
	ch := broker.NewChannel(4, 5*time.Millisecond)
	registry := obsmeta.NewRegistry(obsmeta.Data{})
	refresher := NewMetadataRefresher(ch, registry, nil)

	payload, err := json.Marshal(map[string]interface{}{
		"entity_type": string(models.EntityBlock),
		"keys":        []string{"disk"},
		"metric_ids":  []string{"blk_util"},
	})
	if err != nil {
		t.Fatalf("marshal metadata payload: %v", err)
	}
	ch.Send(payload)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	go refresher.Run(ctx)

	deadline := time.Now().Add(40 * time.Millisecond)
	for time.Now().Before(deadline) {
		if t, ok := registry.Snapshot().MetricEntityType["blk_util"]; ok && t == models.EntityBlock {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("expected metadata refresher to merge blk_util ownership")
}
