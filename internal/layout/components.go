// Package layout positions graph nodes for the panel.
//
// A full pass splits the graph into connected components, runs a layered
// top-to-bottom layout over every multi-node component, packs singleton
// nodes into a condensed grid and stacks the grid below the layered part.
package layout

import (
	"sort"

	gonum "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/Benny93/graphpanel/internal/graph"
)

// Component is the ordered list of node IDs of one connected component.
type Component []string

// Partition splits the connected components of a graph into singletons
// (one node, no edges) and multi-element components.
type Partition struct {
	Singles []Component
	Multi   []Component
}

// SingleIDs returns the node IDs of all singleton components.
func (p Partition) SingleIDs() []string {
	return flatten(p.Singles)
}

// MultiIDs returns the node IDs of all multi-element components.
func (p Partition) MultiIDs() []string {
	return flatten(p.Multi)
}

func flatten(cs []Component) []string {
	var out []string
	for _, c := range cs {
		out = append(out, c...)
	}
	return out
}

// Components computes the undirected connected components of g.
//
// Components and the IDs inside them follow the graph's node order, so the
// result is deterministic. A node whose only edges are self loops still
// counts as a multi-element component.
func Components(g *graph.Graph) Partition {
	nodes := g.Nodes()
	index := make(map[string]int64, len(nodes))
	ug := simple.NewUndirectedGraph()
	for i, n := range nodes {
		index[n.ID] = int64(i)
		ug.AddNode(simple.Node(i))
	}

	selfLoop := make(map[string]bool)
	for _, e := range g.Edges() {
		if e.Source == e.Target {
			selfLoop[e.Source] = true
			continue
		}
		ug.SetEdge(simple.Edge{F: simple.Node(index[e.Source]), T: simple.Node(index[e.Target])})
	}

	raw := topo.ConnectedComponents(ug)
	comps := make([][]int64, 0, len(raw))
	for _, c := range raw {
		comps = append(comps, sortedIDs(c))
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i][0] < comps[j][0] })

	var p Partition
	for _, c := range comps {
		comp := make(Component, 0, len(c))
		for _, idx := range c {
			comp = append(comp, nodes[idx].ID)
		}
		if len(comp) == 1 && !selfLoop[comp[0]] {
			p.Singles = append(p.Singles, comp)
		} else {
			p.Multi = append(p.Multi, comp)
		}
	}
	return p
}

func sortedIDs(nodes []gonum.Node) []int64 {
	out := make([]int64, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID())
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
