// Package rcapb holds the wire-shape types for InferenceService
// (inference.proto) plus a JSON-over-gRPC codec standing in for
// protoc-generated code (see DESIGN.md). Message types are plain Go
// structs with JSON tags, not protobuf-go generated types: they are
// never passed through protobuf binary marshaling, only through the
// json codec registered in codec.go.
package rcapb

// GetLastCauseResultRequest carries no fields.
type GetLastCauseResultRequest struct{}

// AbnormalKPI is the triggering KPI metric of the most recent cause
// result.
type AbnormalKPI struct {
	MetricID     string            `json:"metric_id"`
	EntityID     string            `json:"entity_id"`
	Timestamp    int64             `json:"timestamp"`
	MetricLabels map[string]string `json:"metric_labels"`
	Desc         string            `json:"desc"`
}

// PathStep is one node of a cause's path, cause-to-effect ordered.
type PathStep struct {
	MetricID     string            `json:"metric_id"`
	EntityID     string            `json:"entity_id"`
	MetricLabels map[string]string `json:"metric_labels"`
	Timestamp    int64             `json:"timestamp"`
	Desc         string            `json:"desc"`
	Score        float64           `json:"score"`
}

// CauseMetric is one ranked root-cause candidate.
type CauseMetric struct {
	MetricID     string            `json:"metric_id"`
	EntityID     string            `json:"entity_id"`
	MetricLabels map[string]string `json:"metric_labels"`
	Timestamp    int64             `json:"timestamp"`
	Desc         string            `json:"desc"`
	Score        float64           `json:"score"`
	Keyword      string            `json:"keyword"`
	Path         []*PathStep       `json:"path"`
}

// CauseResultResponse is InferenceService.GetLastCauseResult's response.
type CauseResultResponse struct {
	Found        bool           `json:"found"`
	AbnormalKPI  *AbnormalKPI   `json:"abnormal_kpi"`
	CauseMetrics []*CauseMetric `json:"cause_metrics"`
	Desc         string         `json:"desc"`
}
