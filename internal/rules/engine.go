package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/mirador-rca/internal/models"
)

// ruleMetaKey identifies a RuleMeta table entry by its entity-type
// pair.
type ruleMetaKey struct {
	From models.EntityType
	To   models.EntityType
}

// Engine owns the fixed host-rule set plus the configurable RuleMeta
// table loaded from the infer-rule YAML file.
type Engine struct {
	hostRules []HostRule
	metaTable map[ruleMetaKey]RuleMeta
}

// NewEngine constructs an Engine with the fixed host-rule ordering and
// an empty RuleMeta table; call LoadRuleMeta to populate it.
func NewEngine() *Engine {
	return &Engine{hostRules: HostRules(), metaTable: map[ruleMetaKey]RuleMeta{}}
}

// ApplyHostRules runs every host-local rule over topo in order and
// concatenates their emitted pairs; duplicates are left for the
// causal-graph builder to de-duplicate.
func (e *Engine) ApplyHostRules(topo *models.HostTopo) []EntityPair {
	var out []EntityPair
	for _, r := range e.hostRules {
		out = append(out, r.Apply(topo)...)
	}
	return out
}

// RuleMetaFor resolves the configured RuleMeta for an entity-type
// pair, falling back to DefaultRuleMeta (ALL->ALL, no named
// categories) when nothing is configured.
func (e *Engine) RuleMetaFor(fromType, toType models.EntityType) RuleMeta {
	if rm, ok := e.metaTable[ruleMetaKey{fromType, toType}]; ok {
		return rm
	}
	return DefaultRuleMeta(fromType, toType)
}

// yamlRuleFile is the infer-rule YAML shape:
//
//	rules:
//	  - from_type: process
//	    to_type: sli
//	    from_categories:
//	      - name: cpu
//	        metrics: [proc_cpu_util]
//	        trend: rise
//	    to_categories:
//	      - name: latency
//	        metrics: [sli_latency]
//	        trend: rise
//	    pairs:
//	      - {from: cpu, to: latency}
type yamlRuleFile struct {
	Rules []struct {
		FromType       string              `yaml:"from_type"`
		ToType         string              `yaml:"to_type"`
		FromCategories []yamlCategoryEntry `yaml:"from_categories"`
		ToCategories   []yamlCategoryEntry `yaml:"to_categories"`
		Pairs          []struct {
			From string `yaml:"from"`
			To   string `yaml:"to"`
		} `yaml:"pairs"`
	} `yaml:"rules"`
}

type yamlCategoryEntry struct {
	Name          string   `yaml:"name"`
	Metrics       []string `yaml:"metrics"`
	Trend         string   `yaml:"trend"`
	VirtualMetric string   `yaml:"virtual_metric"`
}

func (c yamlCategoryEntry) toCategory() MetricCategory {
	members := make(map[string]bool, len(c.Metrics))
	for _, m := range c.Metrics {
		members[m] = true
	}
	return MetricCategory{Name: c.Name, Metrics: members, Trend: parseTrend(c.Trend), VirtualMetric: c.VirtualMetric}
}

func parseTrend(s string) models.Trend {
	switch s {
	case "rise":
		return models.TrendRise
	case "fall":
		return models.TrendFall
	default:
		return models.TrendDefault
	}
}

// LoadRuleMeta replaces the Engine's RuleMeta table with the contents
// of the YAML file at path.
func (e *Engine) LoadRuleMeta(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read rule meta file: %w", err)
	}
	var f yamlRuleFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse rule meta file: %w", err)
	}

	table := make(map[ruleMetaKey]RuleMeta, len(f.Rules))
	for _, r := range f.Rules {
		rm := RuleMeta{FromType: models.EntityType(r.FromType), ToType: models.EntityType(r.ToType)}
		for _, c := range r.FromCategories {
			rm.FromCategories = append(rm.FromCategories, c.toCategory())
		}
		for _, c := range r.ToCategories {
			rm.ToCategories = append(rm.ToCategories, c.toCategory())
		}
		for _, p := range r.Pairs {
			rm.Pairs = append(rm.Pairs, CategoryPair{From: p.From, To: p.To})
		}
		if len(rm.Pairs) == 0 {
			rm.Pairs = []CategoryPair{{From: CategoryAll, To: CategoryAll}}
		}
		table[ruleMetaKey{rm.FromType, rm.ToType}] = rm
	}
	e.metaTable = table
	return nil
}
