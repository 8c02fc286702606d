package aggregator

import (
	"encoding/json"

	"github.com/miradorstack/mirador-rca/internal/infererr"
	"github.com/miradorstack/mirador-rca/internal/models"
	"github.com/miradorstack/mirador-rca/internal/obsmeta"
)

// parseAbnormalEvent decodes one wire-shape JSON payload into an
// AbnormalEvent, deriving its entity id via registry when the payload
// didn't already carry one. It returns a DataParse error for malformed
// JSON or a missing metric id, and whatever registry.ResolveEntityID
// returns (Metadata kind) when derivation fails.
func parseAbnormalEvent(raw []byte, registry *obsmeta.Registry) (models.AbnormalEvent, error) {
	var r rawEvent
	if err := json.Unmarshal(raw, &r); err != nil {
		return models.AbnormalEvent{}, infererr.New(infererr.DataParse, "parseAbnormalEvent", "invalid JSON", err)
	}
	metricID := r.metricID()
	if metricID == "" {
		return models.AbnormalEvent{}, infererr.New(infererr.DataParse, "parseAbnormalEvent", "missing Resource.metric", nil)
	}

	entityID, err := registry.ResolveEntityID(r.Attributes.EntityID, metricID, r.Resource.Labels)
	if err != nil {
		return models.AbnormalEvent{}, err
	}

	return models.AbnormalEvent{
		Timestamp: r.Timestamp,
		MetricID:  metricID,
		Score:     models.ClampScore(r.Resource.Score),
		Labels:    r.Resource.Labels,
		EntityID:  entityID,
		EventID:   r.Attributes.EventID,
		Desc:      r.description(),
		EventType: r.Attributes.EventType,
	}, nil
}

// parseInlineCauseMetrics decodes a KPI event's inline cause_metrics
// list into standalone AbnormalEvents, skipping (not failing on) any
// entry whose entity id cannot be derived.
func parseInlineCauseMetrics(raw []byte, registry *obsmeta.Registry) []models.AbnormalEvent {
	var r rawEvent
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil
	}
	out := make([]models.AbnormalEvent, 0, len(r.Resource.CauseMetrics))
	for _, cm := range r.Resource.CauseMetrics {
		if cm.Metric == "" {
			continue
		}
		entityID, err := registry.ResolveEntityID("", cm.Metric, cm.Labels)
		if err != nil {
			continue
		}
		out = append(out, models.AbnormalEvent{
			Timestamp: r.Timestamp,
			MetricID:  cm.Metric,
			Score:     models.ClampScore(cm.Score),
			Labels:    cm.Labels,
			EntityID:  entityID,
			EventID:   r.Attributes.EventID,
			Desc:      cm.Description,
			EventType: "sys",
		})
	}
	return out
}
