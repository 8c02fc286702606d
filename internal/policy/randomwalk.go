package policy

import (
	"math"
	"math/rand"
	"sort"

	"github.com/miradorstack/mirador-rca/internal/graphcore"
	"github.com/miradorstack/mirador-rca/internal/infererr"
	"github.com/miradorstack/mirador-rca/internal/models"
)

// RandomWalk ranks causes by first-order sampling on a per-node
// transition matrix built from abnormal_score.
type RandomWalk struct {
	// Rho is the backward-edge damping factor applied to successor
	// transitions.
	Rho float64
	// Rounds is the number of walk steps taken from the target; it
	// must be positive.
	Rounds int
	// Rand is the source of randomness; a nil value uses a new source
	// seeded with 1, so Rank is deterministic unless a caller injects
	// its own *rand.Rand.
	Rand *rand.Rand
}

type transitionRow struct {
	targets []string
	probs   []float64
}

func (rw RandomWalk) Rank(g *graphcore.Graph, target models.MetricNodeId, topK int) ([]models.Cause, error) {
	if rw.Rounds <= 0 {
		return nil, infererr.New(infererr.Inference, "policy.RandomWalk", "rounds must be positive", nil)
	}

	rows, err := buildTransitionMatrix(g, rw.Rho)
	if err != nil {
		return nil, err
	}

	r := rw.Rand
	if r == nil {
		r = rand.New(rand.NewSource(1))
	}

	visits := map[string]int{}
	current := nodeKey(target)
	for i := 0; i < rw.Rounds; i++ {
		row, ok := rows[current]
		if !ok || len(row.targets) == 0 {
			break
		}
		next := sampleNext(row, r)
		visits[next]++
		current = next
	}

	type visitCount struct {
		key   string
		count int
	}
	counts := make([]visitCount, 0, len(visits))
	for k, c := range visits {
		counts = append(counts, visitCount{k, c})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].count > counts[j].count })

	limit := len(counts)
	if topK > 0 && topK < limit {
		limit = topK
	}

	causes := make([]models.Cause, 0, limit)
	for i := 0; i < limit; i++ {
		raw, ok := g.Node(counts[i].key)
		if !ok {
			continue
		}
		node := raw.(models.MetricNode)
		path := stripVirtualPrefix([]models.MetricNode{node})
		if len(path) == 0 {
			continue
		}
		causes = append(causes, models.Cause{
			MetricID:   node.NodeID.MetricID,
			EntityID:   node.NodeID.EntityID,
			CauseScore: float64(counts[i].count) / float64(rw.Rounds),
			Path:       path,
		})
	}
	return causes, nil
}

// buildTransitionMatrix builds one row per graph node s: forward
// probability |abnormal_score(p)| to each predecessor p, backward
// probability rho*|abnormal_score(c)| to each successor c, and a
// self-loop absorbing max(0, |abnormal_score(s)| - max_forward_score).
// Each node's row considers only that node's own predecessors/
// successors, never the rest of the graph.
func buildTransitionMatrix(g *graphcore.Graph, rho float64) (map[string]transitionRow, error) {
	rows := make(map[string]transitionRow, len(g.Nodes()))
	scoreOf := func(id string) float64 {
		raw, _ := g.Node(id)
		if n, ok := raw.(models.MetricNode); ok {
			return math.Abs(n.AbnormalScore())
		}
		return 0
	}
	for _, id := range g.Nodes() {
		raw, _ := g.Node(id)
		node, ok := raw.(models.MetricNode)
		if !ok {
			continue
		}
		score := math.Abs(node.AbnormalScore())

		var row transitionRow
		var total float64
		var maxForward float64

		for _, pred := range g.Predecessors(id) {
			w := scoreOf(pred)
			row.targets = append(row.targets, pred)
			row.probs = append(row.probs, w)
			total += w
			if w > maxForward {
				maxForward = w
			}
		}
		for _, succ := range g.Successors(id) {
			w := rho * scoreOf(succ)
			row.targets = append(row.targets, succ)
			row.probs = append(row.probs, w)
			total += w
		}

		self := math.Max(0, score-maxForward)
		row.targets = append(row.targets, id)
		row.probs = append(row.probs, self)
		total += self

		if total == 0 {
			return nil, infererr.New(infererr.Inference, "policy.RandomWalk", "zero-sum transition row for "+id, nil)
		}
		for i := range row.probs {
			row.probs[i] /= total
		}
		rows[id] = row
	}
	return rows, nil
}

func sampleNext(row transitionRow, r *rand.Rand) string {
	x := r.Float64()
	var cum float64
	for i, p := range row.probs {
		cum += p
		if x <= cum {
			return row.targets[i]
		}
	}
	return row.targets[len(row.targets)-1]
}
