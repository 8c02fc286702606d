// Package rules implements the declarative rule model: metric
// categories, category pairings, the entity-relation rule set, and
// per-edge metric causal-relation expansion.
package rules

import "github.com/miradorstack/mirador-rca/internal/models"

// Pseudo-category names recognized by category-pair expansion.
const (
	CategoryAll   = "ALL"
	CategoryOther = "OTHER"
)

// MetricCategory is a named grouping of metric ids for one entity
// type, with the anomaly trend expected when that category is the
// cause of an effect on the other side of an edge. Every category
// implicitly carries its own virtual placeholder metric id so the
// builder can still wire an edge when no concrete member is
// abnormal.
type MetricCategory struct {
	Name          string
	Metrics       map[string]bool
	Trend         models.Trend
	VirtualMetric string // defaults to models.VirtualMetricDefault when empty
}

func (c MetricCategory) virtualMetricID() string {
	if c.VirtualMetric != "" {
		return c.VirtualMetric
	}
	return models.VirtualMetricDefault
}

// virtualCategoryKey namespaces a category's virtual placeholder group
// so it never collides with the real category's own name: a
// CategoryPair side must spell this exact key to select the virtual
// group, not the bare category name.
func virtualCategoryKey(name string) string {
	return "virtual:" + name
}

// CategoryPair is one configured `(from-category, to-category)` entry
// in a RuleMeta; either side may be the pseudo-category ALL.
type CategoryPair struct {
	From string
	To   string
}

// MetricGroup is one side of an expanded category pair: either a
// named category's surviving members, a single OTHER metric, or a
// category's virtual placeholder.
type MetricGroup struct {
	CategoryName string
	Metrics      []string
	Trend        models.Trend
	IsVirtual    bool
}

// RuleMeta governs metric-level expansion for one `(from_type,
// to_type)` entity-type pair: the category tables on each side and
// the configured category pairs.
type RuleMeta struct {
	FromType       models.EntityType
	ToType         models.EntityType
	FromCategories []MetricCategory
	ToCategories   []MetricCategory
	Pairs          []CategoryPair
}

// DefaultRuleMeta is used when no RuleMeta is configured for an entity
// edge: a single ALL->ALL pair with no named categories.
func DefaultRuleMeta(fromType, toType models.EntityType) RuleMeta {
	return RuleMeta{
		FromType: fromType,
		ToType:   toType,
		Pairs:    []CategoryPair{{From: CategoryAll, To: CategoryAll}},
	}
}

// partition assigns each concrete metric id to the first category
// whose Metrics set contains it, or to OTHER when none match. It
// returns named groups (one per category that matched at least one
// metric), each category's virtual placeholder group keyed under its
// own namespaced key (never the real category's name), and the list
// of OTHER metric ids.
func partition(metricIDs []string, categories []MetricCategory) (named map[string]MetricGroup, virtual map[string]MetricGroup, other []string) {
	named = map[string]MetricGroup{}
	virtual = map[string]MetricGroup{}
	assigned := make(map[string]bool, len(metricIDs))

	for _, cat := range categories {
		virtualKey := virtualCategoryKey(cat.Name)
		virtual[virtualKey] = MetricGroup{CategoryName: virtualKey, Metrics: []string{cat.virtualMetricID()}, Trend: cat.Trend, IsVirtual: true}
		var members []string
		for _, m := range metricIDs {
			if cat.Metrics[m] {
				members = append(members, m)
				assigned[m] = true
			}
		}
		if len(members) > 0 {
			named[cat.Name] = MetricGroup{CategoryName: cat.Name, Metrics: members, Trend: cat.Trend}
		}
	}
	for _, m := range metricIDs {
		if !assigned[m] {
			other = append(other, m)
		}
	}
	return named, virtual, other
}

// expandSide resolves one side (ALL, OTHER, or a specific category
// name) of a CategoryPair into the list of groups it denotes.
func expandSide(side string, named, virtual map[string]MetricGroup, other []string) []MetricGroup {
	switch side {
	case CategoryAll:
		// Virtual placeholder groups never participate in ALL:
		// they only wire an edge when a CategoryPair names them
		// explicitly by their namespaced key.
		var groups []MetricGroup
		for _, g := range named {
			groups = append(groups, g)
		}
		for _, m := range other {
			groups = append(groups, MetricGroup{CategoryName: CategoryOther, Metrics: []string{m}})
		}
		return groups
	case CategoryOther:
		var groups []MetricGroup
		for _, m := range other {
			groups = append(groups, MetricGroup{CategoryName: CategoryOther, Metrics: []string{m}})
		}
		return groups
	default:
		var groups []MetricGroup
		if g, ok := named[side]; ok {
			groups = append(groups, g)
		}
		if g, ok := virtual[side]; ok {
			groups = append(groups, g)
		}
		return groups
	}
}

// GroupPair is one resolved (from-group, to-group) pair ready for
// metric-edge wiring.
type GroupPair struct {
	From MetricGroup
	To   MetricGroup
}

// Expand resolves every configured CategoryPair in rm against the two
// endpoints' concrete abnormal metric ids, producing the cross
// product of matching groups.
func (rm RuleMeta) Expand(fromMetricIDs, toMetricIDs []string) []GroupPair {
	fromNamed, fromVirtual, fromOther := partition(fromMetricIDs, rm.FromCategories)
	toNamed, toVirtual, toOther := partition(toMetricIDs, rm.ToCategories)

	var out []GroupPair
	for _, pair := range rm.Pairs {
		fromGroups := expandSide(pair.From, fromNamed, fromVirtual, fromOther)
		toGroups := expandSide(pair.To, toNamed, toVirtual, toOther)
		for _, fg := range fromGroups {
			for _, tg := range toGroups {
				out = append(out, GroupPair{From: fg, To: tg})
			}
		}
	}
	return out
}
