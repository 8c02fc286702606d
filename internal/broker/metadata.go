package broker

import (
	"encoding/json"

	"github.com/miradorstack/mirador-rca/internal/infererr"
	"github.com/miradorstack/mirador-rca/internal/models"
)

// rawMetadata is the observation-metadata topic's wire shape: one
// entity type's metric-id ownership plus its label-key derivation
// order, matching obsmeta.Registry.MergeMetadata's parameters.
type rawMetadata struct {
	EntityType models.EntityType `json:"entity_type"`
	Keys       []string          `json:"keys"`
	MetricIDs  []string          `json:"metric_ids"`
}

// ParseMetadata decodes one observation-metadata topic payload.
func ParseMetadata(raw []byte) (entityType models.EntityType, keys []string, metricIDs []string, err error) {
	var r rawMetadata
	if jsonErr := json.Unmarshal(raw, &r); jsonErr != nil {
		return "", nil, nil, infererr.New(infererr.DataParse, "ParseMetadata", "invalid JSON", jsonErr)
	}
	if r.EntityType == "" {
		return "", nil, nil, infererr.New(infererr.DataParse, "ParseMetadata", "missing entity_type", nil)
	}
	return r.EntityType, r.Keys, r.MetricIDs, nil
}
