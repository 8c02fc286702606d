package policy

import (
	"time"

	"github.com/miradorstack/mirador-rca/internal/graphcore"
	"github.com/miradorstack/mirador-rca/internal/metrics"
	"github.com/miradorstack/mirador-rca/internal/models"
)

// Timed wraps a Policy and reports each Rank call's duration under the
// given policy name, so the two selectable policies (dfs, randomwalk)
// are distinguishable in the exported histogram.
type Timed struct {
	Policy Policy
	Name   string
}

// NewTimed wraps pol, labelling its Rank durations with name.
func NewTimed(pol Policy, name string) Timed {
	return Timed{Policy: pol, Name: name}
}

// Rank delegates to the wrapped policy and records the call duration.
func (t Timed) Rank(g *graphcore.Graph, target models.MetricNodeId, topK int) ([]models.Cause, error) {
	start := time.Now()
	causes, err := t.Policy.Rank(g, target, topK)
	metrics.ObservePolicyRank(t.Name, time.Since(start))
	return causes, err
}
