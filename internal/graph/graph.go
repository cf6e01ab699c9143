package graph

import (
	"sync"

	"github.com/Benny93/graphpanel/internal/geom"
)

// Graph is an in-memory directed graph of panel nodes and edges.
//
// Nodes and edges keep their insertion order so that layout and rendering
// are deterministic. Adjacency indexes make neighborhood queries
// O(result) rather than O(graph).
type Graph struct {
	mu        sync.RWMutex
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string

	// Secondary indexes, kept in sync by AddEdge.
	outgoing map[string][]*Edge
	incoming map[string][]*Edge
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		edges:    make(map[string]*Edge),
		outgoing: make(map[string][]*Edge),
		incoming: make(map[string][]*Edge),
	}
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// AddNode adds a node, replacing any existing node with the same ID while
// keeping its original position in the node order.
func (g *Graph) AddNode(n *Node) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[n.ID]; !ok {
		g.nodeOrder = append(g.nodeOrder, n.ID)
	}
	g.nodes[n.ID] = n
}

// HasNode reports whether id is a node of the graph.
func (g *Graph) HasNode(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.nodes[id]
	return ok
}

// Node returns the node with the given ID, or nil.
func (g *Graph) Node(id string) *Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.nodes[id]
}

// Nodes returns all nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id])
	}
	return out
}

// AddEdge adds an edge. Edges whose source or target is not a node of the
// graph are dropped and AddEdge returns false. An edge with an existing ID
// is ignored.
func (g *Graph) AddEdge(e *Edge) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[e.Source]; !ok {
		return false
	}
	if _, ok := g.nodes[e.Target]; !ok {
		return false
	}
	if _, ok := g.edges[e.ID]; ok {
		return false
	}

	g.edges[e.ID] = e
	g.edgeOrder = append(g.edgeOrder, e.ID)
	g.outgoing[e.Source] = append(g.outgoing[e.Source], e)
	g.incoming[e.Target] = append(g.incoming[e.Target], e)
	return true
}

// Edge returns the edge with the given ID, or nil.
func (g *Graph) Edge(id string) *Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.edges[id]
}

// Edges returns all edges in insertion order.
func (g *Graph) Edges() []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, g.edges[id])
	}
	return out
}

// Outgoing returns edges whose source is the given node.
func (g *Graph) Outgoing(id string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Edge(nil), g.outgoing[id]...)
}

// Incoming returns edges whose target is the given node.
func (g *Graph) Incoming(id string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]*Edge(nil), g.incoming[id]...)
}

// EdgesOf returns every edge touching the given node, outgoing first.
func (g *Graph) EdgesOf(id string) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]*Edge, 0, len(g.outgoing[id])+len(g.incoming[id]))
	out = append(out, g.outgoing[id]...)
	for _, e := range g.incoming[id] {
		// A self loop is already in the outgoing list.
		if e.Source == id {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Neighborhood is the set of elements directly connected to a node.
type Neighborhood struct {
	Nodes []*Node
	Edges []*Edge
}

// Neighborhood returns the direct predecessors and successors of a node
// together with the connecting edges. The node itself is not included
// unless it has a self loop.
func (g *Graph) Neighborhood(id string) Neighborhood {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var nb Neighborhood
	seenNode := make(map[string]bool)
	seenEdge := make(map[string]bool)

	add := func(e *Edge, other string) {
		if !seenEdge[e.ID] {
			seenEdge[e.ID] = true
			nb.Edges = append(nb.Edges, e)
		}
		if !seenNode[other] {
			seenNode[other] = true
			nb.Nodes = append(nb.Nodes, g.nodes[other])
		}
	}

	for _, e := range g.outgoing[id] {
		add(e, e.Target)
	}
	for _, e := range g.incoming[id] {
		add(e, e.Source)
	}
	return nb
}

// Stats returns a summary of graph size.
func (g *Graph) Stats() map[string]int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	return map[string]int{
		"nodes": len(g.nodes),
		"edges": len(g.edges),
	}
}

// SizeFunc reports the box size of a node centered on its position.
type SizeFunc func(n *Node) (w, h float64)

// BoundingBox returns the union of the boxes of the given nodes, or of all
// nodes when ids is nil. Unknown IDs are skipped.
func (g *Graph) BoundingBox(ids []string, size SizeFunc) geom.Rect {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if ids == nil {
		ids = g.nodeOrder
	}
	box := geom.EmptyRect()
	for _, id := range ids {
		n, ok := g.nodes[id]
		if !ok {
			continue
		}
		w, h := size(n)
		box = box.Union(geom.RectAround(n.Position, w, h))
	}
	return box
}
