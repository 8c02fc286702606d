// Package policy implements the two inference policies that rank
// candidate causes on a metric cause graph against a target (the
// triggering KPI metric node): exhaustive DFS path search, and
// first-order random-walk sampling.
package policy

import (
	"github.com/miradorstack/mirador-rca/internal/graphcore"
	"github.com/miradorstack/mirador-rca/internal/models"
)

// Policy ranks candidate causes against target on g.
type Policy interface {
	Rank(g *graphcore.Graph, target models.MetricNodeId, topK int) ([]models.Cause, error)
}

func metricNode(g *graphcore.Graph, id models.MetricNodeId) (models.MetricNode, bool) {
	raw, ok := g.Node(id.EntityID + "/" + id.MetricID)
	if !ok {
		return models.MetricNode{}, false
	}
	return raw.(models.MetricNode), true
}

func nodeKey(id models.MetricNodeId) string {
	return id.EntityID + "/" + id.MetricID
}

// stripVirtualPrefix drops leading virtual-metric nodes from a path
// (ordered cause-to-effect); a path that becomes empty after
// stripping should be dropped by the caller.
func stripVirtualPrefix(path []models.MetricNode) []models.MetricNode {
	i := 0
	for i < len(path) && path[i].Attrs.IsVirtual {
		i++
	}
	return path[i:]
}

func meanCorrScoreExcludingTarget(path []models.MetricNode) float64 {
	if len(path) <= 1 {
		return 0
	}
	var sum float64
	var n int
	for _, node := range path[:len(path)-1] {
		if node.Attrs.IsVirtual {
			continue
		}
		sum += node.Attrs.CorrScore
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
