package models

// Trend is the expected or observed direction of a metric's recent
// history relative to its own baseline.
type Trend string

const (
	TrendRise    Trend = "rise"
	TrendFall    Trend = "fall"
	TrendDefault Trend = "default"
)

// Check reports whether an observed trend satisfies an expected trend.
// It fails only when both sides are non-default and differ.
func (expect Trend) Check(real Trend) bool {
	if expect == "" || real == "" {
		return true
	}
	if expect == real {
		return true
	}
	if expect != TrendDefault && real != TrendDefault {
		return false
	}
	return true
}

// MetricNodeId identifies a node in the metric-level cause graph. It
// has value semantics and is safe to use as a map key.
type MetricNodeId struct {
	EntityID string
	MetricID string
}

// VirtualMetricPrefix marks the fixed set of placeholder metric ids
// that stand in for "some cause of this category exists here" when no
// concrete anomalous metric matched a category.
const VirtualMetricPrefix = "virtual"

const (
	VirtualMetricDefault  = "virtual_metric"
	VirtualMetricIODelay  = "virtual_io_delay"
	VirtualMetricIOLoad   = "virtual_io_load"
	VirtualMetricNetDelay = "virtual_net_delay"
)

// IsVirtualMetric reports whether a metric id is one of the fixed
// virtual placeholders.
func IsVirtualMetric(metricID string) bool {
	switch metricID {
	case VirtualMetricDefault, VirtualMetricIODelay, VirtualMetricIOLoad, VirtualMetricNetDelay:
		return true
	default:
		return false
	}
}

// MetricAttrs carries the metric-event snapshot plus fields computed
// while building the causal graph.
type MetricAttrs struct {
	EntityID     string
	EntityType   EntityType
	MachineID    string
	MetricLabels map[string]string
	Timestamp    int64
	Desc         string

	CorrScore     float64
	HasCorrScore  bool
	RealTrend     Trend
	ExpectedTrend Trend
	IsVirtual     bool
}

// MetricNode is one node of the metric cause graph.
type MetricNode struct {
	NodeID MetricNodeId
	Attrs  MetricAttrs
}

// AbnormalScore returns the score used by the inference policies: the
// correlation score when present, otherwise zero (virtual nodes and
// metrics without a surviving score never drive the walk).
func (n MetricNode) AbnormalScore() float64 {
	if !n.Attrs.HasCorrScore {
		return 0
	}
	return n.Attrs.CorrScore
}
