package rules

import (
	"testing"

	"github.com/miradorstack/mirador-rca/internal/models"
)

func hostTopoFixture() *models.HostTopo {
	nodes := map[string]*models.TopoNode{
		"host":    {ID: "host", EntityType: models.EntityHost, MachineID: "h1"},
		"process": {ID: "process", EntityType: models.EntityProcess, MachineID: "h1"},
		"cpu":     {ID: "cpu", EntityType: models.EntityCPU, MachineID: "h1"},
	}
	edges := map[string]*models.TopoEdge{
		"e1": {ID: "e1", Type: models.RelationBelongsTo, FromID: "process", ToID: "host"},
		"e2": {ID: "e2", Type: models.RelationBelongsTo, FromID: "cpu", ToID: "process"},
	}
	return models.NewHostTopo("h1", nodes, edges)
}

func TestBelongsToRule(t *testing.T) {
	pairs := BelongsToRule{}.Apply(hostTopoFixture())
	want := map[EntityPair]bool{
		{From: "process", To: "host"}: true,
		{From: "cpu", To: "process"}:  true,
	}
	if len(pairs) != len(want) {
		t.Fatalf("expected %d pairs, got %d: %+v", len(want), len(pairs), pairs)
	}
	for _, p := range pairs {
		if !want[p] {
			t.Fatalf("unexpected pair %+v", p)
		}
	}
}

func TestBelongsToSliProcessException(t *testing.T) {
	nodes := map[string]*models.TopoNode{
		"sli":     {ID: "sli", EntityType: models.EntitySLI},
		"process": {ID: "process", EntityType: models.EntityProcess},
	}
	edges := map[string]*models.TopoEdge{
		"e1": {ID: "e1", Type: models.RelationBelongsTo, FromID: "sli", ToID: "process"},
	}
	topo := models.NewHostTopo("h1", nodes, edges)
	pairs := BelongsToRule{}.Apply(topo)
	if len(pairs) != 1 || pairs[0] != (EntityPair{From: "process", To: "sli"}) {
		t.Fatalf("expected process causes sli, got %+v", pairs)
	}
}

func TestHostRuleOrdering(t *testing.T) {
	rules := HostRules()
	if len(rules) != 4 {
		t.Fatalf("expected 4 host rules, got %d", len(rules))
	}
	if _, ok := rules[0].(BelongsToRule); !ok {
		t.Fatalf("expected BelongsToRule first, got %T", rules[0])
	}
	if _, ok := rules[3].(HostRuleSet); !ok {
		t.Fatalf("expected HostRuleSet last, got %T", rules[3])
	}
}

func TestRuleMetaExpandAllToAll(t *testing.T) {
	rm := DefaultRuleMeta(models.EntityProcess, models.EntitySLI)
	pairs := rm.Expand([]string{"proc_cpu_util"}, []string{"sli_latency"})
	if len(pairs) == 0 {
		t.Fatalf("expected at least one expanded group pair")
	}
	var sawConcrete bool
	for _, p := range pairs {
		if len(p.From.Metrics) == 1 && p.From.Metrics[0] == "proc_cpu_util" {
			sawConcrete = true
		}
	}
	if !sawConcrete {
		t.Fatalf("expected the concrete metric to surface as its own OTHER group, got %+v", pairs)
	}
}
