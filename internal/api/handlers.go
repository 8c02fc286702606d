package api

import (
	"github.com/miradorstack/mirador-rca/internal/rcapb"
	"github.com/miradorstack/mirador-rca/internal/result"
)

// ToProtoCauseResult converts a formatted cause result into the gRPC
// response shape served by InferenceService.GetLastCauseResult.
func ToProtoCauseResult(res result.CauseResult) *rcapb.CauseResultResponse {
	resp := &rcapb.CauseResultResponse{
		Found: true,
		AbnormalKPI: &rcapb.AbnormalKPI{
			MetricID:     res.AbnormalKPI.MetricID,
			EntityID:     res.AbnormalKPI.EntityID,
			Timestamp:    res.AbnormalKPI.Timestamp,
			MetricLabels: res.AbnormalKPI.MetricLabels,
			Desc:         res.AbnormalKPI.Desc,
		},
		Desc: res.Desc,
	}
	for _, cm := range res.CauseMetrics {
		resp.CauseMetrics = append(resp.CauseMetrics, toProtoCauseMetric(cm))
	}
	return resp
}

func toProtoCauseMetric(cm result.CauseMetric) *rcapb.CauseMetric {
	proto := &rcapb.CauseMetric{
		MetricID:     cm.MetricID,
		EntityID:     cm.EntityID,
		MetricLabels: cm.MetricLabels,
		Timestamp:    cm.Timestamp,
		Desc:         cm.Desc,
		Score:        cm.Score,
		Keyword:      cm.Keyword,
	}
	for _, step := range cm.Path {
		proto.Path = append(proto.Path, &rcapb.PathStep{
			MetricID:     step.MetricID,
			EntityID:     step.EntityID,
			MetricLabels: step.MetricLabels,
			Timestamp:    step.Timestamp,
			Desc:         step.Desc,
			Score:        step.Score,
		})
	}
	return proto
}
