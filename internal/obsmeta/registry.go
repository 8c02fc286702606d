// Package obsmeta implements the observation-metadata registry: the
// one piece of state the metadata refresher and the foreground
// inference loop share. It is an injected, concurrency-safe value:
// writers replace the whole snapshot, readers never observe a
// partially updated record.
package obsmeta

import (
	"sync/atomic"

	"github.com/miradorstack/mirador-rca/internal/models"
)

// Data is one immutable observation-metadata snapshot: which entity
// type owns a metric id, and which label keys (in order) identify an
// instance of that entity type.
type Data struct {
	MetricEntityType map[string]models.EntityType
	EntityKeys       map[models.EntityType][]string
}

func emptyData() Data {
	return Data{MetricEntityType: map[string]models.EntityType{}, EntityKeys: map[models.EntityType][]string{}}
}

// Registry is a concurrency-safe holder for a Data snapshot. Reads
// never block on writes and vice versa: Replace swaps in a brand new
// Data value, it never mutates a previously returned one.
type Registry struct {
	current atomic.Pointer[Data]
}

// NewRegistry constructs a Registry, optionally seeded with an initial
// snapshot (an empty one is used when initial is the zero value).
func NewRegistry(initial Data) *Registry {
	r := &Registry{}
	if initial.MetricEntityType == nil {
		d := emptyData()
		initial = d
	}
	r.current.Store(&initial)
	return r
}

// Replace installs a new snapshot wholesale. Never call this to patch
// part of the existing data in place; build the full replacement Data
// value first.
func (r *Registry) Replace(d Data) {
	r.current.Store(&d)
}

// Snapshot returns the current Data value. The returned value must be
// treated as read-only; callers must not mutate its maps.
func (r *Registry) Snapshot() Data {
	return *r.current.Load()
}

// EntityTypeForMetric resolves which entity type owns a metric id.
func (r *Registry) EntityTypeForMetric(metricID string) (models.EntityType, bool) {
	d := r.Snapshot()
	t, ok := d.MetricEntityType[metricID]
	return t, ok
}

// KeysForEntityType returns the ordered label keys identifying an
// instance of the given entity type.
func (r *Registry) KeysForEntityType(t models.EntityType) ([]string, bool) {
	d := r.Snapshot()
	keys, ok := d.EntityKeys[t]
	return keys, ok
}

// MergeMetadata folds a decoded metadata-topic payload into a new Data
// value and replaces the registry's snapshot with it, matching the
// refresher's "consume metadata topic, replace the type's record"
// contract. It is safe to call concurrently with reads, never with
// other writes (the refresher is the sole writer).
func (r *Registry) MergeMetadata(entityType models.EntityType, keys []string, metricIDs []string) {
	prev := r.Snapshot()
	next := Data{
		MetricEntityType: make(map[string]models.EntityType, len(prev.MetricEntityType)+len(metricIDs)),
		EntityKeys:       make(map[models.EntityType][]string, len(prev.EntityKeys)+1),
	}
	for k, v := range prev.MetricEntityType {
		next.MetricEntityType[k] = v
	}
	for k, v := range prev.EntityKeys {
		next.EntityKeys[k] = v
	}
	next.EntityKeys[entityType] = keys
	for _, m := range metricIDs {
		next.MetricEntityType[m] = entityType
	}
	r.Replace(next)
}
