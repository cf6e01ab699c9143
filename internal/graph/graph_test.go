package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	t.Parallel()

	g := New()

	assert.NotNil(t, g)
	assert.Equal(t, 0, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Empty(t, g.Nodes())
}

func TestGraph_AddNode(t *testing.T) {
	t.Parallel()

	t.Run("KeepsInsertionOrder", func(t *testing.T) {
		t.Parallel()
		g := New()

		g.AddNode(&Node{ID: "c"})
		g.AddNode(&Node{ID: "a"})
		g.AddNode(&Node{ID: "b"})

		ids := make([]string, 0, 3)
		for _, n := range g.Nodes() {
			ids = append(ids, n.ID)
		}
		assert.Equal(t, []string{"c", "a", "b"}, ids)
	})

	t.Run("ReplaceExisting", func(t *testing.T) {
		t.Parallel()
		g := New()

		g.AddNode(&Node{ID: "a", Label: "old"})
		g.AddNode(&Node{ID: "b"})
		g.AddNode(&Node{ID: "a", Label: "new"})

		assert.Equal(t, 2, g.NodeCount())
		assert.Equal(t, "new", g.Node("a").Label)
		assert.Equal(t, "a", g.Nodes()[0].ID)
	})
}

func TestGraph_AddEdge(t *testing.T) {
	t.Parallel()

	t.Run("RejectsUnknownEndpoints", func(t *testing.T) {
		t.Parallel()
		g := New()
		g.AddNode(&Node{ID: "a"})

		assert.False(t, g.AddEdge(&Edge{ID: "e0", Source: "a", Target: "z"}))
		assert.False(t, g.AddEdge(&Edge{ID: "e1", Source: "z", Target: "a"}))
		assert.Equal(t, 0, g.EdgeCount())
		assert.Equal(t, 1, g.NodeCount())
	})

	t.Run("IndexesAdjacency", func(t *testing.T) {
		t.Parallel()
		g := New()
		g.AddNode(&Node{ID: "a"})
		g.AddNode(&Node{ID: "b"})
		g.AddNode(&Node{ID: "c"})

		assert.True(t, g.AddEdge(&Edge{ID: "e0", Source: "a", Target: "b"}))
		assert.True(t, g.AddEdge(&Edge{ID: "e1", Source: "c", Target: "a"}))

		assert.Len(t, g.Outgoing("a"), 1)
		assert.Len(t, g.Incoming("a"), 1)
		assert.Len(t, g.EdgesOf("a"), 2)
		assert.Empty(t, g.Outgoing("b"))
	})

	t.Run("DuplicateIDIgnored", func(t *testing.T) {
		t.Parallel()
		g := New()
		g.AddNode(&Node{ID: "a"})
		g.AddNode(&Node{ID: "b"})

		assert.True(t, g.AddEdge(&Edge{ID: "e0", Source: "a", Target: "b"}))
		assert.False(t, g.AddEdge(&Edge{ID: "e0", Source: "b", Target: "a"}))
		assert.Equal(t, 1, g.EdgeCount())
	})
}

func TestGraph_Neighborhood(t *testing.T) {
	t.Parallel()

	g := New()
	for _, id := range []string{"a", "b", "c", "d"} {
		g.AddNode(&Node{ID: id})
	}
	g.AddEdge(&Edge{ID: "e0", Source: "a", Target: "b"})
	g.AddEdge(&Edge{ID: "e1", Source: "c", Target: "b"})
	g.AddEdge(&Edge{ID: "e2", Source: "c", Target: "d"})

	nb := g.Neighborhood("b")

	nodeIDs := make([]string, 0)
	for _, n := range nb.Nodes {
		nodeIDs = append(nodeIDs, n.ID)
	}
	edgeIDs := make([]string, 0)
	for _, e := range nb.Edges {
		edgeIDs = append(edgeIDs, e.ID)
	}

	assert.ElementsMatch(t, []string{"a", "c"}, nodeIDs)
	assert.ElementsMatch(t, []string{"e0", "e1"}, edgeIDs)
	assert.Empty(t, g.Neighborhood("missing").Nodes)
}

func TestGraph_Stats(t *testing.T) {
	t.Parallel()

	g := New()
	g.AddNode(&Node{ID: "a"})
	g.AddNode(&Node{ID: "b"})
	g.AddEdge(&Edge{ID: "e0", Source: "a", Target: "b"})

	assert.Equal(t, map[string]int{"nodes": 2, "edges": 1}, g.Stats())
}
