package policy

import (
	"sort"

	"github.com/miradorstack/mirador-rca/internal/graphcore"
	"github.com/miradorstack/mirador-rca/internal/models"
)

// DFS enumerates every simple path ending at the target by recursing
// on predecessors, detecting back-edges via a path-membership set.
type DFS struct {
	// OnCycle, if set, receives a warning message when a back-edge is
	// skipped instead of being silently dropped.
	OnCycle func(msg string)
}

type scoredPath struct {
	score float64
	path  []models.MetricNode // cause (index 0) -> effect (last)
}

func (d DFS) Rank(g *graphcore.Graph, target models.MetricNodeId, topK int) ([]models.Cause, error) {
	targetNode, ok := metricNode(g, target)
	if !ok {
		return nil, nil
	}

	var scored []scoredPath
	inPath := map[string]bool{nodeKey(target): true}
	d.walk(g, targetNode, []models.MetricNode{targetNode}, inPath, &scored)

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	causes := make([]models.Cause, 0, len(scored))
	seenNodeID := map[models.MetricNodeId]bool{}
	seenMachineMetric := map[[2]string]bool{}
	for _, sp := range scored {
		stripped := stripVirtualPrefix(sp.path)
		if len(stripped) == 0 {
			continue
		}
		root := stripped[0]
		if topK > 0 {
			if root.Attrs.IsVirtual {
				continue
			}
			if seenNodeID[root.NodeID] {
				continue
			}
			mmKey := [2]string{root.Attrs.MachineID, root.NodeID.MetricID}
			if seenMachineMetric[mmKey] {
				continue
			}
		}
		causes = append(causes, models.Cause{
			MetricID:   root.NodeID.MetricID,
			EntityID:   root.NodeID.EntityID,
			CauseScore: sp.score,
			Path:       stripped,
		})
		seenNodeID[root.NodeID] = true
		seenMachineMetric[[2]string{root.Attrs.MachineID, root.NodeID.MetricID}] = true
		if topK > 0 && len(causes) >= topK {
			break
		}
	}
	return causes, nil
}

// walk recurses on effect's predecessors, appending each to a copy of
// fromEffect, which is ordered target (index 0) -> current effect;
// terminal reverses it into cause-first order once a branch ends.
func (d DFS) walk(g *graphcore.Graph, effect models.MetricNode, fromEffect []models.MetricNode, inPath map[string]bool, out *[]scoredPath) {
	preds := g.Predecessors(nodeKey(effect.NodeID))

	terminal := func() {
		path := make([]models.MetricNode, len(fromEffect))
		for i, n := range fromEffect {
			path[len(fromEffect)-1-i] = n
		}
		*out = append(*out, scoredPath{score: meanCorrScoreExcludingTarget(path), path: path})
	}

	forwardPreds := make([]string, 0, len(preds))
	for _, predKey := range preds {
		if inPath[predKey] {
			if d.OnCycle != nil {
				d.OnCycle("policy: skipped back-edge into " + predKey)
			}
			continue
		}
		forwardPreds = append(forwardPreds, predKey)
	}
	if len(forwardPreds) == 0 {
		// No predecessors, or every predecessor is already on the
		// current path: this branch ends at effect.
		terminal()
		return
	}
	for _, predKey := range forwardPreds {
		raw, ok := g.Node(predKey)
		if !ok {
			continue
		}
		predNode := raw.(models.MetricNode)
		inPath[predKey] = true
		next := make([]models.MetricNode, len(fromEffect)+1)
		copy(next, fromEffect)
		next[len(fromEffect)] = predNode
		d.walk(g, predNode, next, inPath, out)
		delete(inPath, predKey)
	}
}
