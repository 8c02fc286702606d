// Package graphcore wraps github.com/katalvlaran/lvlath/core with the
// directed, attributed node/edge bookkeeping the entity cause graph
// and metric cause graph need on top of it: per-node/per-edge
// attribute payloads, and an explicit predecessor/successor index so
// policy code can walk a single node's own neighbors without ever
// touching the rest of the graph.
package graphcore

import (
	"fmt"

	"github.com/katalvlaran/lvlath/core"
)

// Graph is a directed attributed graph over string node ids. Node and
// edge payloads are opaque to graphcore; callers type-assert them back.
type Graph struct {
	g *core.Graph

	nodeAttrs map[string]interface{}
	edgeAttrs map[string]interface{}

	// successors/predecessors are maintained alongside core.Graph so
	// that policy traversal never needs to guess whether the
	// underlying library's neighbor query is direction-aware.
	successors   map[string][]string
	predecessors map[string][]string
}

// New constructs an empty directed attributed graph.
func New() *Graph {
	return &Graph{
		g:            core.NewGraph(core.WithDirected(true)),
		nodeAttrs:    map[string]interface{}{},
		edgeAttrs:    map[string]interface{}{},
		successors:   map[string][]string{},
		predecessors: map[string][]string{},
	}
}

// AddNode inserts id with the given attrs, or overwrites attrs if id
// already exists.
func (gr *Graph) AddNode(id string, attrs interface{}) error {
	if _, ok := gr.nodeAttrs[id]; !ok {
		if err := gr.g.AddVertex(id); err != nil {
			return fmt.Errorf("graphcore: add node %q: %w", id, err)
		}
	}
	gr.nodeAttrs[id] = attrs
	return nil
}

// HasNode reports whether id has been added.
func (gr *Graph) HasNode(id string) bool {
	_, ok := gr.nodeAttrs[id]
	return ok
}

// Node returns the attrs for id.
func (gr *Graph) Node(id string) (interface{}, bool) {
	a, ok := gr.nodeAttrs[id]
	return a, ok
}

// SetNode overwrites the attrs for an existing node.
func (gr *Graph) SetNode(id string, attrs interface{}) {
	gr.nodeAttrs[id] = attrs
}

// AddEdge inserts a directed edge from -> to with attrs, adding either
// endpoint as an empty-attrs node first if absent. Returns the
// underlying edge id.
func (gr *Graph) AddEdge(from, to string, attrs interface{}) (string, error) {
	if !gr.HasNode(from) {
		if err := gr.AddNode(from, nil); err != nil {
			return "", err
		}
	}
	if !gr.HasNode(to) {
		if err := gr.AddNode(to, nil); err != nil {
			return "", err
		}
	}
	id, err := gr.g.AddEdge(from, to, 0)
	if err != nil {
		return "", fmt.Errorf("graphcore: add edge %s->%s: %w", from, to, err)
	}
	gr.edgeAttrs[id] = attrs
	gr.successors[from] = append(gr.successors[from], to)
	gr.predecessors[to] = append(gr.predecessors[to], from)
	return id, nil
}

// Nodes returns every node id, in insertion order via the underlying
// library's Vertices().
func (gr *Graph) Nodes() []string {
	return gr.g.Vertices()
}

// Edge describes one directed edge with its attrs.
type Edge struct {
	ID    string
	From  string
	To    string
	Attrs interface{}
}

// Edges returns every edge.
func (gr *Graph) Edges() []Edge {
	raw := gr.g.Edges()
	out := make([]Edge, 0, len(raw))
	for _, e := range raw {
		out = append(out, Edge{ID: e.ID, From: e.From, To: e.To, Attrs: gr.edgeAttrs[e.ID]})
	}
	return out
}

// Successors returns the node ids that id has a direct outgoing edge
// to; it never inspects any other node's adjacency.
func (gr *Graph) Successors(id string) []string {
	return gr.successors[id]
}

// Predecessors returns the node ids that have a direct outgoing edge
// to id; it never inspects any other node's adjacency.
func (gr *Graph) Predecessors(id string) []string {
	return gr.predecessors[id]
}

// NodeCount returns the number of nodes.
func (gr *Graph) NodeCount() int {
	return len(gr.nodeAttrs)
}

// SetEdgeAttrs overwrites the attrs stored for an existing edge id.
func (gr *Graph) SetEdgeAttrs(id string, attrs interface{}) {
	gr.edgeAttrs[id] = attrs
}

// EdgeAttrs returns the attrs for an edge id.
func (gr *Graph) EdgeAttrs(id string) (interface{}, bool) {
	a, ok := gr.edgeAttrs[id]
	return a, ok
}
