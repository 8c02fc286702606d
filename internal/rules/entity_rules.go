package rules

import "github.com/miradorstack/mirador-rca/internal/models"

// EntityPair is one directed entity-level causal pair: From causes
// To. Both fields are topology-node ids (models.TopoNode.ID).
type EntityPair struct {
	From string
	To   string
}

// HostRule is a predicate over a host-local subgraph that emits
// entity-level causal pairs. Implementations are a closed,
// tagged-variant set evaluated in a fixed order: BelongsTo, RunsOn,
// SLI, Host.
type HostRule interface {
	Apply(topo *models.HostTopo) []EntityPair
}

// BelongsToRule turns belongs_to(a->b) into a->b, except the two
// named exceptions where effect and cause invert.
type BelongsToRule struct{}

func (BelongsToRule) Apply(topo *models.HostTopo) []EntityPair {
	var out []EntityPair
	for _, e := range topo.Edges {
		if e.Type != models.RelationBelongsTo || e.FromNode == nil || e.ToNode == nil {
			continue
		}
		a, b := e.FromNode, e.ToNode
		switch {
		case a.EntityType == models.EntitySLI && b.EntityType == models.EntityProcess:
			out = append(out, EntityPair{From: b.ID, To: a.ID})
		case a.EntityType == models.EntityBlock && b.EntityType == models.EntityDisk:
			out = append(out, EntityPair{From: b.ID, To: a.ID})
		default:
			out = append(out, EntityPair{From: a.ID, To: b.ID})
		}
	}
	return out
}

// RunsOnRule turns runs_on(a->b) into b->a: the host the process runs
// on is a cause of the process, not the other way around.
type RunsOnRule struct{}

func (RunsOnRule) Apply(topo *models.HostTopo) []EntityPair {
	var out []EntityPair
	for _, e := range topo.Edges {
		if e.Type != models.RelationRunsOn || e.FromNode == nil || e.ToNode == nil {
			continue
		}
		out = append(out, EntityPair{From: e.ToNode.ID, To: e.FromNode.ID})
	}
	return out
}

// SliRule emits tcp_link->sli whenever a TCP_LINK and an SLI entity
// belong_to the same process.
type SliRule struct{}

func (SliRule) Apply(topo *models.HostTopo) []EntityPair {
	childrenByParent := map[string][]*models.TopoNode{}
	for _, e := range topo.Edges {
		if e.Type != models.RelationBelongsTo || e.FromNode == nil || e.ToNode == nil {
			continue
		}
		childrenByParent[e.ToNode.ID] = append(childrenByParent[e.ToNode.ID], e.FromNode)
	}

	var out []EntityPair
	for _, process := range topo.NodesByType(models.EntityProcess) {
		var tcpLinks, slis []*models.TopoNode
		for _, child := range childrenByParent[process.ID] {
			switch child.EntityType {
			case models.EntityTCPLink:
				tcpLinks = append(tcpLinks, child)
			case models.EntitySLI:
				slis = append(slis, child)
			}
		}
		for _, t := range tcpLinks {
			for _, s := range slis {
				out = append(out, EntityPair{From: t.ID, To: s.ID})
			}
		}
	}
	return out
}

// HostRuleSet emits the fixed host-local wiring PROCESS->DISK,
// BLOCK->PROCESS, CPU->PROCESS, NETCARD->TCP_LINK between every pair
// of same-host nodes of the named types. Most topologies carry at
// most one node of each of these types per host, so this degenerates
// to the expected single pair; see DESIGN.md for the Open Question
// this resolves.
type HostRuleSet struct{}

func (HostRuleSet) Apply(topo *models.HostTopo) []EntityPair {
	var out []EntityPair
	wire := func(fromType, toType models.EntityType) {
		froms := topo.NodesByType(fromType)
		tos := topo.NodesByType(toType)
		for _, f := range froms {
			for _, t := range tos {
				out = append(out, EntityPair{From: f.ID, To: t.ID})
			}
		}
	}
	wire(models.EntityProcess, models.EntityDisk)
	wire(models.EntityBlock, models.EntityProcess)
	wire(models.EntityCPU, models.EntityProcess)
	wire(models.EntityNetcard, models.EntityTCPLink)
	return out
}

// HostRules returns the four host-local rules in their fixed
// application order.
func HostRules() []HostRule {
	return []HostRule{BelongsToRule{}, RunsOnRule{}, SliRule{}, HostRuleSet{}}
}
