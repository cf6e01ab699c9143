package interact

import "github.com/Benny93/graphpanel/internal/graph"

// Highlight dims every element outside the neighborhood of id and marks the
// node, its direct predecessors and successors and the connecting edges.
func Highlight(g *graph.Graph, id string) {
	self := g.Node(id)
	if self == nil {
		return
	}
	nb := g.Neighborhood(id)
	keepNode := map[string]bool{id: true}
	keepEdge := make(map[string]bool, len(nb.Edges))
	for _, n := range nb.Nodes {
		keepNode[n.ID] = true
	}
	for _, e := range nb.Edges {
		keepEdge[e.ID] = true
	}

	for _, n := range g.Nodes() {
		if !keepNode[n.ID] {
			n.AddClass(graph.ClassSemiTransparent)
		}
	}
	for _, e := range g.Edges() {
		if !keepEdge[e.ID] {
			e.AddClass(graph.ClassSemiTransparent)
		}
	}

	self.AddClass(graph.ClassHighlight)
	for _, n := range nb.Nodes {
		n.AddClass(graph.ClassHighlight)
	}
	for _, e := range nb.Edges {
		e.AddClass(graph.ClassHighlight)
	}
}

// Unhighlight undoes Highlight for id. Dimming is cleared everywhere.
func Unhighlight(g *graph.Graph, id string) {
	for _, n := range g.Nodes() {
		n.RemoveClass(graph.ClassSemiTransparent)
	}
	for _, e := range g.Edges() {
		e.RemoveClass(graph.ClassSemiTransparent)
	}

	self := g.Node(id)
	if self == nil {
		return
	}
	self.RemoveClass(graph.ClassHighlight)
	nb := g.Neighborhood(id)
	for _, n := range nb.Nodes {
		n.RemoveClass(graph.ClassHighlight)
	}
	for _, e := range nb.Edges {
		e.RemoveClass(graph.ClassHighlight)
	}
}
