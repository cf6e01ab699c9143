package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(nodes []*Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestBuild(t *testing.T) {
	t.Parallel()

	t.Run("DanglingReferenceDropped", func(t *testing.T) {
		t.Parallel()
		g := Build([]InputNode{
			{ID: "a", IsPrimary: true, References: []Reference{{Key: "z", IsOutgoing: true}}},
		})

		assert.Equal(t, []string{"a"}, ids(g.Nodes()))
		assert.Equal(t, 0, g.EdgeCount())
		assert.True(t, g.Node("a").DeadEnd)
	})

	t.Run("ExplicitDeadEnd", func(t *testing.T) {
		t.Parallel()
		g := Build([]InputNode{
			{ID: "a", IsPrimary: true, DeadEnd: true},
			{ID: "b", IsPrimary: true, DeadEnd: true, References: []Reference{{Key: "c", IsOutgoing: true}}},
			{ID: "c", IsPrimary: true},
		})

		assert.True(t, g.Node("a").DeadEnd, "no references at all")
		assert.True(t, g.Node("b").DeadEnd, "flag wins over a resolved reference")
		assert.False(t, g.Node("c").DeadEnd)
		assert.Equal(t, 1, g.EdgeCount())
	})

	t.Run("OrientsByDirection", func(t *testing.T) {
		t.Parallel()
		g := Build([]InputNode{
			{ID: "a", IsPrimary: true, References: []Reference{{Key: "b", IsOutgoing: true, Label: "calls"}}},
			{ID: "b", IsPrimary: true, References: []Reference{{Key: "c", IsOutgoing: false}}},
			{ID: "c", IsPrimary: true},
		})

		edges := g.Edges()
		require.Len(t, edges, 2)
		assert.Equal(t, "a", edges[0].Source)
		assert.Equal(t, "b", edges[0].Target)
		assert.Equal(t, "calls", edges[0].Label)
		assert.Equal(t, "c", edges[1].Source)
		assert.Equal(t, "b", edges[1].Target)
		assert.Equal(t, "e0", edges[0].ID)
		assert.Equal(t, "e1", edges[1].ID)
	})

	t.Run("DeduplicatesEdges", func(t *testing.T) {
		t.Parallel()
		g := Build([]InputNode{
			{ID: "a", IsPrimary: true, References: []Reference{
				{Key: "b", IsOutgoing: true},
				{Key: "b", IsOutgoing: true},
			}},
			// The same edge seen from the other end.
			{ID: "b", IsPrimary: true, References: []Reference{{Key: "a", IsOutgoing: false}}},
		})

		assert.Equal(t, 1, g.EdgeCount())
	})

	t.Run("DistinctLabelsKept", func(t *testing.T) {
		t.Parallel()
		g := Build([]InputNode{
			{ID: "a", References: []Reference{
				{Key: "b", IsOutgoing: true, Label: "x"},
				{Key: "b", IsOutgoing: true, Label: "y"},
			}},
			{ID: "b"},
		})

		assert.Equal(t, 2, g.EdgeCount())
	})

	t.Run("SecondaryEdgesMarked", func(t *testing.T) {
		t.Parallel()
		g := Build([]InputNode{
			{ID: "a", IsPrimary: true, References: []Reference{
				{Key: "b", IsOutgoing: true},
				{Key: "s", IsOutgoing: true},
			}},
			{ID: "b", IsPrimary: true},
			{ID: "s", IsPrimary: false},
		})

		edges := g.Edges()
		require.Len(t, edges, 2)
		assert.True(t, edges[0].IsPrimary, "a->b joins two primary nodes")
		assert.False(t, edges[1].IsPrimary, "a->s touches a secondary node")
		assert.False(t, g.Node("a").DeadEnd)
	})

	t.Run("LabelAndDisplayDefaults", func(t *testing.T) {
		t.Parallel()
		g := Build([]InputNode{
			{ID: "a", EntityType: "country_event"},
			{ID: "b", Name: "Bee", EntityType: "trait", EntityTypeDisplayName: "Trait"},
		})

		assert.Equal(t, "a", g.Node("a").Label)
		assert.Equal(t, "country_event", g.Node("a").EntityTypeDisplayName)
		assert.Equal(t, "Bee", g.Node("b").Label)
		assert.Equal(t, "Trait", g.Node("b").EntityTypeDisplayName)
	})

	t.Run("DuplicateIDsIgnored", func(t *testing.T) {
		t.Parallel()
		g := Build([]InputNode{
			{ID: "a", Name: "first"},
			{ID: "a", Name: "second", References: []Reference{{Key: "a", IsOutgoing: true}}},
			{ID: ""},
		})

		assert.Equal(t, 1, g.NodeCount())
		assert.Equal(t, "first", g.Node("a").Label)
		assert.Equal(t, 0, g.EdgeCount())
	})

	t.Run("EdgesOnlyReferenceKnownNodes", func(t *testing.T) {
		t.Parallel()
		inputs := []InputNode{
			{ID: "a", References: []Reference{{Key: "b", IsOutgoing: true}, {Key: "x", IsOutgoing: false}}},
			{ID: "b", References: []Reference{{Key: "c", IsOutgoing: true}, {Key: "y", IsOutgoing: true}}},
			{ID: "c", References: []Reference{{Key: "a", IsOutgoing: true}}},
		}
		g := Build(inputs)

		known := map[string]bool{"a": true, "b": true, "c": true}
		for _, e := range g.Edges() {
			assert.True(t, known[e.Source], "source %s", e.Source)
			assert.True(t, known[e.Target], "target %s", e.Target)
		}
		assert.Equal(t, 3, g.EdgeCount())
		assert.Equal(t, 3, g.NodeCount())
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		g := Build(nil)

		assert.Equal(t, 0, g.NodeCount())
		assert.Equal(t, 0, g.EdgeCount())
	})
}
