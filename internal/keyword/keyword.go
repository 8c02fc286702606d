// Package keyword implements the cause-keyword table supplementing
// C9's result formatting: an entity-type to human-readable keyword
// lookup used to annotate each reported cause.
package keyword

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-rca/internal/models"
)

// Table is a concurrency-safe entity-type -> keyword lookup.
type Table struct {
	mu       sync.RWMutex
	keywords map[models.EntityType]string
}

// NewTable constructs an empty Table.
func NewTable() *Table {
	return &Table{keywords: map[models.EntityType]string{}}
}

// KeywordForEntity returns the configured keyword for an entity type,
// or the empty string when none is configured.
func (t *Table) KeywordForEntity(entityType models.EntityType) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.keywords[entityType]
}

type yamlFile struct {
	EntityKeywords map[string]string `yaml:"entity_keywords"`
}

// LoadYAML replaces the table's contents with the entries in the
// cause-keyword YAML file at path.
func (t *Table) LoadYAML(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read cause keyword file: %w", err)
	}
	var f yamlFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse cause keyword file: %w", err)
	}
	next := make(map[models.EntityType]string, len(f.EntityKeywords))
	for k, v := range f.EntityKeywords {
		next[models.EntityType(k)] = v
	}
	t.mu.Lock()
	t.keywords = next
	t.mu.Unlock()
	return nil
}
