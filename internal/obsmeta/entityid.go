package obsmeta

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/miradorstack/mirador-rca/internal/infererr"
	"github.com/miradorstack/mirador-rca/internal/models"
)

const keySeparator = "_"

// DeriveEntityID computes the canonical entity id for an event's
// labels: entity_type, then each of keys' values in the configured
// order, joined by keySeparator, then percent-escaped as a whole.
// This is the single canonical form every caller builds entity ids
// from; no other derivation exists in this package.
func DeriveEntityID(entityType models.EntityType, labels map[string]string, keys []string) (string, error) {
	parts := make([]string, 0, len(keys)+1)
	parts = append(parts, string(entityType))
	for _, key := range keys {
		val, ok := labels[key]
		if !ok {
			return "", infererr.New(infererr.Metadata, "DeriveEntityID", fmt.Sprintf("missing label %q for entity type %q", key, entityType), nil)
		}
		parts = append(parts, val)
	}
	raw := strings.Join(parts, keySeparator)
	return url.QueryEscape(raw), nil
}

// ResolveEntityID returns existing when the event already supplied a
// non-empty entity id, otherwise derives one from the
// registry's metadata for metricID.
func (r *Registry) ResolveEntityID(existing, metricID string, labels map[string]string) (string, error) {
	if existing != "" {
		return existing, nil
	}
	entityType, ok := r.EntityTypeForMetric(metricID)
	if !ok {
		return "", infererr.New(infererr.Metadata, "ResolveEntityID", fmt.Sprintf("no entity type registered for metric %q", metricID), nil)
	}
	keys, ok := r.KeysForEntityType(entityType)
	if !ok {
		return "", infererr.New(infererr.Metadata, "ResolveEntityID", fmt.Sprintf("no label keys registered for entity type %q", entityType), nil)
	}
	return DeriveEntityID(entityType, labels, keys)
}
