package causal

import (
	"github.com/miradorstack/mirador-rca/internal/corr"
	"github.com/miradorstack/mirador-rca/internal/graphcore"
	"github.com/miradorstack/mirador-rca/internal/models"
	"github.com/miradorstack/mirador-rca/internal/rules"
)

// BuildMetricGraph expands the entity graph into the metric cause
// graph: one metric node per surviving abnormal metric (or virtual
// placeholder), one directed edge per winning (from-group, to-group)
// pair on each entity edge.
func BuildMetricGraph(entityGraph *graphcore.Graph) *graphcore.Graph {
	mg := graphcore.New()

	for _, id := range entityGraph.Nodes() {
		raw, _ := entityGraph.Node(id)
		attrs := raw.(EntityNodeAttrs)
		for metricID, ev := range attrs.AbnormalMetrics {
			nodeID := models.MetricNodeId{EntityID: attrs.EntityID, MetricID: metricID}
			mg.AddNode(nodeID.EntityID+"/"+nodeID.MetricID, models.MetricNode{
				NodeID: nodeID,
				Attrs: models.MetricAttrs{
					EntityID:     attrs.EntityID,
					EntityType:   attrs.EntityType,
					MachineID:    attrs.MachineID,
					MetricLabels: ev.Labels,
					Timestamp:    ev.Timestamp,
					Desc:         ev.Desc,
					CorrScore:    ev.Score,
					HasCorrScore: ev.HasCorrScore,
					RealTrend:    corr.DeriveTrend(ev.HistData),
				},
			})
		}
	}

	for _, e := range entityGraph.Edges() {
		edgeAttrs, _ := entityGraph.EdgeAttrs(e.ID)
		ea, ok := edgeAttrs.(EntityEdgeAttrs)
		if !ok {
			continue
		}
		fromRaw, _ := entityGraph.Node(e.From)
		toRaw, _ := entityGraph.Node(e.To)
		from := fromRaw.(EntityNodeAttrs)
		to := toRaw.(EntityNodeAttrs)

		fromMetrics := metricIDs(from.AbnormalMetrics)
		toMetrics := metricIDs(to.AbnormalMetrics)
		groupPairs := ea.RuleMeta.Expand(fromMetrics, toMetrics)

		seen := map[[2]string]bool{}
		for _, gp := range groupPairs {
			wireGroupPair(mg, from, to, gp, seen)
		}
	}

	return mg
}

func metricIDs(m map[string]models.AbnormalEvent) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, id)
	}
	return out
}

func wireGroupPair(mg *graphcore.Graph, from, to EntityNodeAttrs, gp rules.GroupPair, seen map[[2]string]bool) {
	fromMetric, _, ok := pickWinner(mg, from.EntityID, gp.From)
	if !ok {
		return
	}
	toMetric, _, ok := pickWinner(mg, to.EntityID, gp.To)
	if !ok {
		return
	}

	key := [2]string{from.EntityID + "/" + fromMetric, to.EntityID + "/" + toMetric}
	if seen[key] {
		return
	}
	seen[key] = true

	ensureMetricNode(mg, from.EntityID, fromMetric, gp.From)
	ensureMetricNode(mg, to.EntityID, toMetric, gp.To)
	setExpectedTrend(mg, from.EntityID, fromMetric, gp.From.Trend)
	setExpectedTrend(mg, to.EntityID, toMetric, gp.To.Trend)

	mg.AddEdge(key[0], key[1], nil)
}

// pickWinner selects, from a group's metrics, the one with the
// largest corr_score already present on the metric graph (ties: first
// one seen). A virtual group always "wins" with its single
// placeholder id.
func pickWinner(mg *graphcore.Graph, entityID string, group rules.MetricGroup) (metricID string, trend models.Trend, ok bool) {
	if group.IsVirtual {
		return group.Metrics[0], group.Trend, true
	}
	if len(group.Metrics) == 0 {
		return "", "", false
	}

	bestScore := -1.0
	best := ""
	bestReal := models.TrendDefault
	for _, m := range group.Metrics {
		raw, found := mg.Node(entityID + "/" + m)
		if !found {
			continue
		}
		n := raw.(models.MetricNode)
		if !group.Trend.Check(n.Attrs.RealTrend) {
			continue
		}
		if n.Attrs.CorrScore > bestScore {
			bestScore = n.Attrs.CorrScore
			best = m
			bestReal = n.Attrs.RealTrend
		}
	}
	if best == "" {
		return "", "", false
	}
	return best, bestReal, true
}

func ensureMetricNode(mg *graphcore.Graph, entityID, metricID string, group rules.MetricGroup) {
	id := entityID + "/" + metricID
	if mg.HasNode(id) {
		return
	}
	mg.AddNode(id, models.MetricNode{
		NodeID: models.MetricNodeId{EntityID: entityID, MetricID: metricID},
		Attrs: models.MetricAttrs{
			EntityID:  entityID,
			IsVirtual: group.IsVirtual,
		},
	})
}

func setExpectedTrend(mg *graphcore.Graph, entityID, metricID string, trend models.Trend) {
	id := entityID + "/" + metricID
	raw, ok := mg.Node(id)
	if !ok {
		return
	}
	n := raw.(models.MetricNode)
	if n.Attrs.ExpectedTrend == "" {
		n.Attrs.ExpectedTrend = trend
		mg.SetNode(id, n)
	}
}
