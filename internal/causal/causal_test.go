package causal

import (
	"context"
	"testing"

	"github.com/miradorstack/mirador-rca/internal/models"
	"github.com/miradorstack/mirador-rca/internal/rules"
	"github.com/miradorstack/mirador-rca/internal/timeseries"
)

func TestBuildEntityGraphAndAttachAbnormalMetrics(t *testing.T) {
	nodeByID := map[string]*models.TopoNode{
		"proc1": {ID: "proc1", EntityID: "proc1", EntityType: models.EntityProcess, MachineID: "m1"},
		"sli1":  {ID: "sli1", EntityID: "sli1", EntityType: models.EntitySLI, MachineID: "m1"},
	}
	pairs := []rules.EntityPair{{From: "proc1", To: "sli1"}}
	g := BuildEntityGraph(pairs, nodeByID)

	events := []models.AbnormalEvent{
		{EntityID: "sli1", MetricID: "sli_latency", Timestamp: 100, HasCorrScore: true, Score: 0.9},
	}
	AttachAbnormalMetrics(g, events)

	raw, ok := g.Node("sli1")
	if !ok {
		t.Fatalf("expected sli1 node")
	}
	attrs := raw.(EntityNodeAttrs)
	if !attrs.IsAbnormal {
		t.Fatalf("expected sli1 marked abnormal")
	}
	if _, ok := attrs.AbnormalMetrics["sli_latency"]; !ok {
		t.Fatalf("expected sli_latency recorded")
	}
}

func TestDropWeakCorrelationsClearsNonAbnormal(t *testing.T) {
	nodeByID := map[string]*models.TopoNode{
		"sli1": {ID: "sli1", EntityID: "sli1", EntityType: models.EntitySLI},
	}
	g := BuildEntityGraph(nil, nodeByID)
	g.AddNode("sli1", EntityNodeAttrs{EntityID: "sli1", AbnormalMetrics: map[string]models.AbnormalEvent{
		"weak": {MetricID: "weak", HasCorrScore: true, Score: 0.01},
	}})
	DropWeakCorrelations(g, 0.1)

	raw, _ := g.Node("sli1")
	attrs := raw.(EntityNodeAttrs)
	if attrs.IsAbnormal {
		t.Fatalf("expected sli1 demoted to non-abnormal after weak metric dropped")
	}
}

func TestScoreCorrelationsUsesTimeseriesClient(t *testing.T) {
	nodeByID := map[string]*models.TopoNode{
		"sli1": {ID: "sli1", EntityID: "sli1", EntityType: models.EntitySLI},
	}
	g := BuildEntityGraph([]rules.EntityPair{}, nodeByID)
	g.AddNode("sli1", EntityNodeAttrs{EntityID: "sli1", AbnormalMetrics: map[string]models.AbnormalEvent{
		"m1": {MetricID: "m1", Timestamp: 100000},
	}})

	kpi := models.AbnormalEvent{MetricID: "kpi1", Timestamp: 100000, HistData: []float64{1, 2, 3, 4}}

	fake := timeseries.NewFake()
	fake.Series["m1"] = []float64{2, 4, 6, 8}

	if err := ScoreCorrelations(context.Background(), g, kpi, fake, 10, 40); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, _ := g.Node("sli1")
	attrs := raw.(EntityNodeAttrs)
	ev := attrs.AbnormalMetrics["m1"]
	if !ev.HasCorrScore {
		t.Fatalf("expected a corr score to be computed")
	}
	if ev.Score < 0.99 {
		t.Fatalf("expected near-perfect correlation, got %f", ev.Score)
	}
}
