package obsmeta

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-rca/internal/models"
)

// yamlFile is the extension file's YAML shape: each entity type's
// declared identity keys and each metric's owning entity type, e.g.:
//
//	entity_types:
//	  host:
//	    keys: [machine_id]
//	  process:
//	    keys: [machine_id, pid]
//	metrics:
//	  sli_latency: sli
//	  proc_cpu_util: process
type yamlFile struct {
	EntityTypes map[string]struct {
		Keys []string `yaml:"keys"`
	} `yaml:"entity_types"`
	Metrics map[string]string `yaml:"metrics"`
}

// LoadExtensionFile parses the observation-metadata extension YAML
// file at path into a Data snapshot, for seeding a Registry at
// startup before the metadata-topic refresher has produced its first
// update.
func LoadExtensionFile(path string) (Data, error) {
	d := emptyData()
	raw, err := os.ReadFile(path)
	if err != nil {
		return d, fmt.Errorf("read observe-meta file: %w", err)
	}
	var f yamlFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return d, fmt.Errorf("parse observe-meta file: %w", err)
	}
	for name, cfg := range f.EntityTypes {
		d.EntityKeys[models.EntityType(name)] = cfg.Keys
	}
	for metric, entityType := range f.Metrics {
		d.MetricEntityType[metric] = models.EntityType(entityType)
	}
	return d, nil
}
