// Package crosshost implements the cross-host expander: it grows a
// host-local cause tree across machine boundaries by following
// precomputed cross-host runs_on/store_in edges, re-running the
// causal-graph builder and an inference policy on each newly touched
// host pair.
package crosshost

import (
	"context"
	"log/slog"

	"github.com/miradorstack/mirador-rca/internal/causal"
	"github.com/miradorstack/mirador-rca/internal/graphcore"
	"github.com/miradorstack/mirador-rca/internal/models"
	"github.com/miradorstack/mirador-rca/internal/policy"
	"github.com/miradorstack/mirador-rca/internal/rules"
	"github.com/miradorstack/mirador-rca/internal/timeseries"
	"github.com/miradorstack/mirador-rca/internal/topology"
)

// Config configures one Expander.
type Config struct {
	// HostDepth bounds the belongs_to/runs_on traversal depth used to
	// pull a host's local subgraph.
	HostDepth int
	// CorrThreshold drops abnormal metrics below this absolute
	// correlation score.
	CorrThreshold float64
	// Step and SampleDuration parameterize the time-series sampling
	// grid used when scoring correlations.
	Step           float64
	SampleDuration float64
	// RootTopK bounds the final ranked result; 0 keeps every path.
	RootTopK int
}

// Expander runs the cross-host cause-tree expansion described in spec
// §4.6 starting from a single triggering KPI.
type Expander struct {
	Topo   topology.Client
	TS     timeseries.Client
	Engine *rules.Engine
	Policy policy.Policy
	Cfg    Config
	Logger *slog.Logger
}

// New constructs an Expander; a nil logger falls back to slog.Default.
func New(topo topology.Client, ts timeseries.Client, engine *rules.Engine, pol policy.Policy, cfg Config, logger *slog.Logger) *Expander {
	if logger == nil {
		logger = slog.Default()
	}
	return &Expander{Topo: topo, TS: ts, Engine: engine, Policy: pol, Cfg: cfg, Logger: logger}
}

// frontierItem is one newly-discovered tree node pending cross-host
// expansion, tagged with the host it lives on.
type frontierItem struct {
	id        models.MetricNodeId
	machineID string
}

// Expand runs the full cross-host expansion for one inference cycle:
// host-local inference on the KPI's own host, then iterative growth
// across cross-host edges, and a final ranked pass over the
// stabilized cause tree.
func (x *Expander) Expand(ctx context.Context, kpi models.AbnormalEvent, metrics []models.AbnormalEvent, ts float64) ([]models.Cause, error) {
	rootNode, err := x.Topo.EntityByID(ctx, kpi.EntityID, ts)
	if err != nil {
		return nil, err
	}

	hostCache := map[string]*models.HostTopo{}
	rootTopo, err := x.getHostTopo(ctx, hostCache, rootNode.MachineID, ts)
	if err != nil {
		return nil, err
	}

	events := append([]models.AbnormalEvent{kpi}, metrics...)

	rootGraph, err := x.buildMetricGraph(ctx, x.Engine.ApplyHostRules(rootTopo), rootTopo.Nodes, events, kpi)
	if err != nil {
		return nil, err
	}

	targetID := models.MetricNodeId{EntityID: kpi.EntityID, MetricID: kpi.MetricID}
	targetNode, ok := nodeFor(rootGraph, targetID)
	if !ok {
		return nil, nil
	}

	tree := models.NewCauseTree(targetNode)
	rootCauses, err := x.Policy.Rank(rootGraph, targetID, 0)
	if err != nil {
		return nil, err
	}
	newIDs := tree.AppendAllCauses(rootCauses)

	runsOn, err := x.Topo.CrossHostEdges(ctx, models.RelationRunsOn, ts)
	if err != nil {
		x.Logger.Warn("cross-host runs_on query failed", slog.Any("error", err))
		runsOn = nil
	}
	storeIn, err := x.Topo.CrossHostEdges(ctx, models.RelationStoreIn, ts)
	if err != nil {
		x.Logger.Warn("cross-host store_in query failed", slog.Any("error", err))
		storeIn = nil
	}
	crossEdges := append(append([]models.TopoEdge{}, runsOn...), storeIn...)

	queue := make([]frontierItem, 0, len(newIDs))
	for _, id := range newIDs {
		queue = append(queue, frontierItem{id: id, machineID: rootNode.MachineID})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		for _, edge := range crossEdges {
			neighMachineID, fromIsHome := neighborMachineID(edge, item.machineID)
			if neighMachineID == "" {
				continue
			}

			neighTopo, err := x.getHostTopo(ctx, hostCache, neighMachineID, ts)
			if err != nil {
				x.Logger.Warn("neighbor host query failed, skipping",
					slog.String("machine_id", neighMachineID), slog.Any("error", err))
				continue
			}
			homeTopo := hostCache[item.machineID]

			var fromTopo, toTopo *models.HostTopo
			if fromIsHome {
				fromTopo, toTopo = homeTopo, neighTopo
			} else {
				fromTopo, toTopo = neighTopo, homeTopo
			}
			e := edge
			crossPairs := rules.CrossHost(&e, fromTopo, toTopo)

			var filtered []rules.EntityPair
			for _, p := range crossPairs {
				if _, ok := homeTopo.Nodes[p.To]; ok {
					filtered = append(filtered, p)
				}
			}
			pairs := append(filtered, x.Engine.ApplyHostRules(neighTopo)...)
			if len(pairs) == 0 {
				continue
			}

			nodeByID := mergeNodes(homeTopo.Nodes, neighTopo.Nodes)
			combined, err := x.buildMetricGraph(ctx, pairs, nodeByID, events, kpi)
			if err != nil {
				x.Logger.Warn("combined graph build failed, skipping",
					slog.String("machine_id", neighMachineID), slog.Any("error", err))
				continue
			}

			causes, err := x.Policy.Rank(combined, item.id, 0)
			if err != nil {
				x.Logger.Warn("neighbor policy rank failed, skipping",
					slog.String("machine_id", neighMachineID), slog.Any("error", err))
				continue
			}

			var deepOnNeighbor []models.Cause
			for _, c := range causes {
				if len(c.Path) == 0 {
					continue
				}
				if c.Path[0].Attrs.MachineID == neighMachineID {
					deepOnNeighbor = append(deepOnNeighbor, c)
				}
			}
			added := tree.AppendAllCauses(deepOnNeighbor)
			for _, id := range added {
				queue = append(queue, frontierItem{id: id, machineID: neighMachineID})
			}
		}
	}

	nodes, edges := tree.ToCauseGraph()
	finalGraph := graphcore.New()
	for id, n := range nodes {
		finalGraph.AddNode(nodeKey(id), n)
	}
	for _, e := range edges {
		finalGraph.AddEdge(nodeKey(e.From), nodeKey(e.To), nil)
	}

	return x.Policy.Rank(finalGraph, targetID, x.Cfg.RootTopK)
}

func (x *Expander) getHostTopo(ctx context.Context, cache map[string]*models.HostTopo, machineID string, ts float64) (*models.HostTopo, error) {
	if t, ok := cache[machineID]; ok {
		return t, nil
	}
	t, err := x.Topo.HostTopo(ctx, machineID, ts, x.Cfg.HostDepth)
	if err != nil {
		return nil, err
	}
	cache[machineID] = t
	return t, nil
}

// buildMetricGraph runs the full entity-graph-to-metric-graph pipeline
// over an arbitrary entity-pair set.
func (x *Expander) buildMetricGraph(ctx context.Context, pairs []rules.EntityPair, nodeByID map[string]*models.TopoNode, events []models.AbnormalEvent, kpi models.AbnormalEvent) (*graphcore.Graph, error) {
	g := causal.BuildEntityGraph(pairs, nodeByID)
	causal.AttachAbnormalMetrics(g, events)
	if err := causal.ScoreCorrelations(ctx, g, kpi, x.TS, x.Cfg.Step, x.Cfg.SampleDuration); err != nil {
		return nil, err
	}
	causal.DropWeakCorrelations(g, x.Cfg.CorrThreshold)
	causal.AttachRuleMeta(g, x.Engine)
	return causal.BuildMetricGraph(g), nil
}

// neighborMachineID reports the other endpoint's machine_id when edge
// touches homeMachineID, and whether home is the edge's From side.
func neighborMachineID(edge models.TopoEdge, homeMachineID string) (neighbor string, fromIsHome bool) {
	switch {
	case edge.FromNode != nil && edge.FromNode.MachineID == homeMachineID && edge.ToNode != nil:
		return edge.ToNode.MachineID, true
	case edge.ToNode != nil && edge.ToNode.MachineID == homeMachineID && edge.FromNode != nil:
		return edge.FromNode.MachineID, false
	default:
		return "", false
	}
}

func mergeNodes(a, b map[string]*models.TopoNode) map[string]*models.TopoNode {
	out := make(map[string]*models.TopoNode, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

func nodeFor(g *graphcore.Graph, id models.MetricNodeId) (models.MetricNode, bool) {
	raw, ok := g.Node(nodeKey(id))
	if !ok {
		return models.MetricNode{}, false
	}
	return raw.(models.MetricNode), true
}

func nodeKey(id models.MetricNodeId) string {
	return id.EntityID + "/" + id.MetricID
}
