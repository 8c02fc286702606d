package rules

import (
	"testing"

	"github.com/miradorstack/mirador-rca/internal/models"
)

func cpuSliRuleMeta() RuleMeta {
	return RuleMeta{
		FromType: models.EntityProcess,
		ToType:   models.EntitySLI,
		FromCategories: []MetricCategory{
			{Name: "cpu", Metrics: map[string]bool{"proc_cpu_util": true}, Trend: models.TrendRise},
		},
		ToCategories: []MetricCategory{
			{Name: "latency", Metrics: map[string]bool{"sli_latency": true}, Trend: models.TrendRise},
		},
		Pairs: []CategoryPair{{From: "cpu", To: "latency"}},
	}
}

func TestExpandNamedPairMatchesOnlyRealGroups(t *testing.T) {
	rm := cpuSliRuleMeta()
	pairs := rm.Expand([]string{"proc_cpu_util"}, []string{"sli_latency"})

	if len(pairs) != 1 {
		t.Fatalf("expected exactly one group pair for a named category match, got %d: %+v", len(pairs), pairs)
	}
	if pairs[0].From.IsVirtual || pairs[0].To.IsVirtual {
		t.Fatalf("expected no virtual group wired when a named category pair has real matches, got %+v", pairs[0])
	}
	if pairs[0].From.Metrics[0] != "proc_cpu_util" || pairs[0].To.Metrics[0] != "sli_latency" {
		t.Fatalf("unexpected group members: %+v", pairs[0])
	}
}

func TestExpandNamedPairNoMatchYieldsNoGroups(t *testing.T) {
	rm := cpuSliRuleMeta()
	// Neither side's concrete metric id belongs to its configured
	// category, so the named pair must not fall back to the virtual
	// placeholder: a virtual group only appears when a CategoryPair
	// names it explicitly by its namespaced key.
	pairs := rm.Expand([]string{"proc_mem_rss"}, []string{"sli_error_rate"})
	if len(pairs) != 0 {
		t.Fatalf("expected no group pairs when neither side matches its named category, got %+v", pairs)
	}
}

func TestExpandAllExcludesVirtualGroups(t *testing.T) {
	rm := cpuSliRuleMeta()
	rm.Pairs = []CategoryPair{{From: CategoryAll, To: CategoryAll}}

	pairs := rm.Expand([]string{"proc_cpu_util"}, []string{"sli_latency"})
	for _, p := range pairs {
		if p.From.IsVirtual || p.To.IsVirtual {
			t.Fatalf("ALL expansion must never enumerate a virtual group, got %+v", p)
		}
	}
}

func TestExpandVirtualGroupRequiresExplicitKey(t *testing.T) {
	rm := cpuSliRuleMeta()
	rm.Pairs = []CategoryPair{{From: virtualCategoryKey("cpu"), To: "latency"}}

	pairs := rm.Expand([]string{"proc_mem_rss"}, []string{"sli_latency"})
	if len(pairs) != 1 {
		t.Fatalf("expected exactly one pair when a pair explicitly names the virtual key, got %d: %+v", len(pairs), pairs)
	}
	if !pairs[0].From.IsVirtual {
		t.Fatalf("expected the explicitly-named side to be the virtual placeholder group, got %+v", pairs[0])
	}
	if pairs[0].From.Metrics[0] != models.VirtualMetricDefault {
		t.Fatalf("expected the default virtual metric id, got %q", pairs[0].From.Metrics[0])
	}
}

func TestVirtualKeyNeverCollidesWithRealCategoryName(t *testing.T) {
	rm := cpuSliRuleMeta()
	// A pair referencing the bare category name "cpu" must only ever
	// resolve the real group, never the virtual one, even though a
	// virtual group for "cpu" also exists internally.
	pairs := rm.Expand([]string{"proc_cpu_util"}, []string{"sli_latency"})
	if len(pairs) != 1 || pairs[0].From.IsVirtual {
		t.Fatalf("expected the bare category name to resolve only the real group, got %+v", pairs)
	}
}
