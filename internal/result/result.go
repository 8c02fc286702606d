// Package result implements the result formatter: it turns a ranked
// cause list into the cause envelope the broker publisher sends to
// the inference topic.
package result

import (
	"fmt"

	"github.com/miradorstack/mirador-rca/internal/keyword"
	"github.com/miradorstack/mirador-rca/internal/models"
)

// AbnormalKPI describes the triggering KPI metric, taken from a cause
// path's last (effect) node.
type AbnormalKPI struct {
	MetricID     string            `json:"metric_id"`
	EntityID     string            `json:"entity_id"`
	Timestamp    int64             `json:"timestamp"`
	MetricLabels map[string]string `json:"metric_labels"`
	Desc         string            `json:"desc"`
}

// PathStep is one node along a cause's path, in the emitted envelope's
// shape: virtual metric ids are renamed to the default placeholder.
type PathStep struct {
	MetricID     string            `json:"metric_id"`
	EntityID     string            `json:"entity_id"`
	MetricLabels map[string]string `json:"metric_labels"`
	Timestamp    int64             `json:"timestamp"`
	Desc         string            `json:"desc"`
	Score        float64           `json:"score"`
}

// CauseMetric is one ranked cause, formatted for the envelope.
type CauseMetric struct {
	MetricID     string            `json:"metric_id"`
	EntityID     string            `json:"entity_id"`
	MetricLabels map[string]string `json:"metric_labels"`
	Timestamp    int64             `json:"timestamp"`
	Desc         string            `json:"desc"`
	Score        float64           `json:"score"`
	Keyword      string            `json:"keyword"`
	Path         []PathStep        `json:"path"`
}

// CauseResult is the envelope's "Resource" object.
type CauseResult struct {
	AbnormalKPI  AbnormalKPI   `json:"abnormal_kpi"`
	CauseMetrics []CauseMetric `json:"cause_metrics"`
	Desc         string        `json:"desc"`
}

// Envelope is the standard broker envelope wrapping one CauseResult:
// timestamp, event id, and severity fields alongside the resource.
type Envelope struct {
	Timestamp      int64             `json:"Timestamp"`
	EventID        string            `json:"event_id"`
	Attributes     map[string]string `json:"Attributes"`
	Resource       CauseResult       `json:"Resource"`
	Keywords       []string          `json:"keywords"`
	SeverityText   string            `json:"SeverityText"`
	SeverityNumber int               `json:"SeverityNumber"`
	Body           string            `json:"Body"`
}

const (
	severityText   = "WARN"
	severityNumber = 13
	envelopeBody   = "A cause inferring event for an abnormal event"
)

// Formatter builds CauseResult/Envelope values from ranked causes,
// annotating each with a human keyword looked up by entity type.
type Formatter struct {
	Keywords *keyword.Table
}

// NewFormatter constructs a Formatter backed by keywords.
func NewFormatter(keywords *keyword.Table) *Formatter {
	return &Formatter{Keywords: keywords}
}

// Format builds the full cause result for one inference cycle. causes
// must be non-empty and already ranked/truncated by the policy; an
// empty slice means the caller should have treated this as "no cause
// detected" and skipped formatting entirely.
func (f *Formatter) Format(causes []models.Cause) (CauseResult, error) {
	if len(causes) == 0 {
		return CauseResult{}, fmt.Errorf("result: format called with no causes")
	}

	target := causes[0].Path[len(causes[0].Path)-1]
	abnKPI := formatAbnormalKPI(target)
	causeMetrics := f.formatCauseMetrics(causes)

	return CauseResult{
		AbnormalKPI:  abnKPI,
		CauseMetrics: causeMetrics,
		Desc:         formatDesc(abnKPI, causeMetrics),
	}, nil
}

// BuildEnvelope wraps a formatted CauseResult in the standard broker
// envelope for the triggering KPI event.
func BuildEnvelope(kpi models.AbnormalEvent, res CauseResult) Envelope {
	return Envelope{
		Timestamp:      kpi.Timestamp,
		EventID:        kpi.EventID,
		Attributes:     map[string]string{"event_id": kpi.EventID},
		Resource:       res,
		Keywords:       collectKeywords(res.CauseMetrics),
		SeverityText:   severityText,
		SeverityNumber: severityNumber,
		Body:           envelopeBody,
	}
}

func formatAbnormalKPI(node models.MetricNode) AbnormalKPI {
	return AbnormalKPI{
		MetricID:     node.NodeID.MetricID,
		EntityID:     node.Attrs.EntityID,
		Timestamp:    node.Attrs.Timestamp,
		MetricLabels: node.Attrs.MetricLabels,
		Desc:         node.Attrs.Desc,
	}
}

func (f *Formatter) formatCauseMetrics(causes []models.Cause) []CauseMetric {
	out := make([]CauseMetric, 0, len(causes))
	for _, cause := range causes {
		if len(cause.Path) == 0 {
			continue
		}
		root := cause.Path[0]
		out = append(out, CauseMetric{
			MetricID:     cause.MetricID,
			EntityID:     cause.EntityID,
			MetricLabels: root.Attrs.MetricLabels,
			Timestamp:    root.Attrs.Timestamp,
			Desc:         root.Attrs.Desc,
			Score:        cause.CauseScore,
			Keyword:      f.keywordFor(root.Attrs.EntityType),
			Path:         formatPath(cause.Path),
		})
	}
	return out
}

func (f *Formatter) keywordFor(entityType models.EntityType) string {
	if f.Keywords == nil {
		return ""
	}
	return f.Keywords.KeywordForEntity(entityType)
}

func formatPath(path []models.MetricNode) []PathStep {
	out := make([]PathStep, 0, len(path))
	for _, node := range path {
		metricID := node.NodeID.MetricID
		if models.IsVirtualMetric(metricID) {
			metricID = models.VirtualMetricDefault
		}
		out = append(out, PathStep{
			MetricID:     metricID,
			EntityID:     node.Attrs.EntityID,
			MetricLabels: node.Attrs.MetricLabels,
			Timestamp:    node.Attrs.Timestamp,
			Desc:         node.Attrs.Desc,
			Score:        node.Attrs.CorrScore,
		})
	}
	return out
}

func formatDesc(kpi AbnormalKPI, metrics []CauseMetric) string {
	desc := fmt.Sprintf("%s, top %d probable root causes: ", kpi.Desc, len(metrics))
	for i, m := range metrics {
		desc += fmt.Sprintf("%d. %s; ", i+1, m.Desc)
	}
	return desc
}

func collectKeywords(metrics []CauseMetric) []string {
	out := make([]string, 0, len(metrics))
	for _, m := range metrics {
		out = append(out, m.Keyword)
	}
	return out
}
