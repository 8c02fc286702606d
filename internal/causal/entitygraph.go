// Package causal implements the causal-graph builder: the entity
// cause graph, its abnormal-metric attachment and correlation
// scoring, and the metric cause graph expanded from it via the rule
// engine's category pairs.
package causal

import (
	"context"

	"github.com/miradorstack/mirador-rca/internal/corr"
	"github.com/miradorstack/mirador-rca/internal/graphcore"
	"github.com/miradorstack/mirador-rca/internal/models"
	"github.com/miradorstack/mirador-rca/internal/rules"
	"github.com/miradorstack/mirador-rca/internal/timeseries"
)

// EntityNodeAttrs is the payload stored on each entity-graph node.
type EntityNodeAttrs struct {
	EntityID        string
	EntityType      models.EntityType
	MachineID       string
	RawData         map[string]string
	IsAbnormal      bool
	AbnormalMetrics map[string]models.AbnormalEvent // keyed by metric_id
}

// EntityEdgeAttrs is the payload stored on each entity-graph edge.
type EntityEdgeAttrs struct {
	RuleMeta rules.RuleMeta
}

// BuildEntityGraph inserts every endpoint referenced by pairs as a
// node (looked up in nodeByID) and wires the edges.
func BuildEntityGraph(pairs []rules.EntityPair, nodeByID map[string]*models.TopoNode) *graphcore.Graph {
	g := graphcore.New()
	for _, p := range pairs {
		ensureEntityNode(g, p.From, nodeByID)
		ensureEntityNode(g, p.To, nodeByID)
		g.AddEdge(p.From, p.To, EntityEdgeAttrs{})
	}
	return g
}

func ensureEntityNode(g *graphcore.Graph, id string, nodeByID map[string]*models.TopoNode) {
	if g.HasNode(id) {
		return
	}
	attrs := EntityNodeAttrs{EntityID: id, AbnormalMetrics: map[string]models.AbnormalEvent{}}
	if n, ok := nodeByID[id]; ok && n != nil {
		attrs.EntityType = n.EntityType
		attrs.MachineID = n.MachineID
		attrs.RawData = n.RawData
	}
	g.AddNode(id, attrs)
}

// AttachAbnormalMetrics marks every entity node whose id matches an
// abnormal event's EntityID, keeping the newest event on a duplicate
// metric id.
func AttachAbnormalMetrics(g *graphcore.Graph, events []models.AbnormalEvent) {
	for _, ev := range events {
		if !g.HasNode(ev.EntityID) {
			continue
		}
		raw, _ := g.Node(ev.EntityID)
		attrs := raw.(EntityNodeAttrs)
		attrs.IsAbnormal = true
		existing, ok := attrs.AbnormalMetrics[ev.MetricID]
		if !ok || ev.Timestamp > existing.Timestamp {
			attrs.AbnormalMetrics[ev.MetricID] = ev
		}
		g.SetNode(ev.EntityID, attrs)
	}
}

// ScoreCorrelations fetches the KPI's historical series once, then for
// each abnormal metric on each entity node fetches its series and
// computes corr_score/real_trend. Metrics whose correlation is NaN
// (zero variance) get no score at all; callers must then apply the
// corr_score drop-threshold rule separately via DropWeakCorrelations.
func ScoreCorrelations(ctx context.Context, g *graphcore.Graph, kpi models.AbnormalEvent, ts timeseries.Client, step, sampleDuration float64) error {
	var kpiHist []float64
	var err error
	if len(kpi.HistData) > 0 {
		kpiHist = kpi.HistData
	} else {
		kpiHist, err = ts.Sample(ctx, kpi.MetricID, kpi.Labels, float64(kpi.Timestamp)/1000, step, sampleDuration)
		if err != nil {
			return err
		}
	}

	for _, id := range g.Nodes() {
		raw, _ := g.Node(id)
		attrs := raw.(EntityNodeAttrs)
		for metricID, ev := range attrs.AbnormalMetrics {
			hist := ev.HistData
			if len(hist) == 0 {
				hist, err = ts.Sample(ctx, metricID, ev.Labels, float64(ev.Timestamp)/1000, step, sampleDuration)
				if err != nil {
					return err
				}
			}
			score, ok := corr.AbsScore(kpiHist, hist)
			ev.HistData = hist
			if ok {
				ev.Score = score
				ev.HasCorrScore = true
			}
			attrs.AbnormalMetrics[metricID] = ev
		}
		g.SetNode(id, attrs)
	}
	return nil
}

// DropWeakCorrelations removes abnormal metrics scoring below the
// threshold; an entity with no surviving metrics is marked
// non-abnormal.
func DropWeakCorrelations(g *graphcore.Graph, threshold float64) {
	for _, id := range g.Nodes() {
		raw, _ := g.Node(id)
		attrs := raw.(EntityNodeAttrs)
		for metricID, ev := range attrs.AbnormalMetrics {
			if !ev.HasCorrScore || ev.Score < threshold {
				delete(attrs.AbnormalMetrics, metricID)
			}
		}
		attrs.IsAbnormal = len(attrs.AbnormalMetrics) > 0
		g.SetNode(id, attrs)
	}
}

// AttachRuleMeta resolves and stores a RuleMeta on every entity edge,
// looked up by the endpoints' entity types alone; host-local and
// cross-host edges share the one table.
func AttachRuleMeta(g *graphcore.Graph, engine *rules.Engine) {
	for _, e := range g.Edges() {
		fromRaw, _ := g.Node(e.From)
		toRaw, _ := g.Node(e.To)
		from := fromRaw.(EntityNodeAttrs)
		to := toRaw.(EntityNodeAttrs)
		rm := engine.RuleMetaFor(from.EntityType, to.EntityType)
		g.SetEdgeAttrs(e.ID, EntityEdgeAttrs{RuleMeta: rm})
	}
}
