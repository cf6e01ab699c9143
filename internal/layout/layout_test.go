package layout

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/graphpanel/internal/graph"
)

func build(ids []string, edges [][2]string) *graph.Graph {
	refs := make(map[string][]graph.Reference)
	for _, e := range edges {
		refs[e[0]] = append(refs[e[0]], graph.Reference{Key: e[1], IsOutgoing: true})
	}
	inputs := make([]graph.InputNode, 0, len(ids))
	for _, id := range ids {
		inputs = append(inputs, graph.InputNode{ID: id, IsPrimary: true, References: refs[id]})
	}
	return graph.Build(inputs)
}

func TestComponents(t *testing.T) {
	t.Parallel()

	t.Run("TwoConnectedOneIsolated", func(t *testing.T) {
		t.Parallel()
		p := Components(build([]string{"a", "b", "c"}, [][2]string{{"a", "b"}}))

		assert.Equal(t, []Component{{"a", "b"}}, p.Multi)
		assert.Equal(t, []Component{{"c"}}, p.Singles)
	})

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		p := Components(graph.New())

		assert.Empty(t, p.Multi)
		assert.Empty(t, p.Singles)
	})

	t.Run("OnlyIsolated", func(t *testing.T) {
		t.Parallel()
		p := Components(build([]string{"x", "y", "z"}, nil))

		assert.Empty(t, p.Multi)
		assert.Equal(t, []string{"x", "y", "z"}, p.SingleIDs())
	})

	t.Run("SelfLoopIsMulti", func(t *testing.T) {
		t.Parallel()
		p := Components(build([]string{"a"}, [][2]string{{"a", "a"}}))

		assert.Equal(t, []Component{{"a"}}, p.Multi)
		assert.Empty(t, p.Singles)
	})

	t.Run("PartitionIsComplete", func(t *testing.T) {
		t.Parallel()
		ids := []string{"a", "b", "c", "d", "e", "f", "g"}
		g := build(ids, [][2]string{{"a", "b"}, {"c", "b"}, {"e", "f"}, {"f", "e"}})
		p := Components(g)

		all := append(p.MultiIDs(), p.SingleIDs()...)
		sort.Strings(all)
		assert.Equal(t, ids, all, "every node exactly once")
		assert.Equal(t, []Component{{"a", "b", "c"}, {"e", "f"}}, p.Multi)
		assert.Equal(t, []Component{{"d"}, {"g"}}, p.Singles)
	})
}

func TestRun_SinglesBelowMulti(t *testing.T) {
	t.Parallel()

	g := build([]string{"a", "b", "c"}, [][2]string{{"a", "b"}})
	res := Run(g, DefaultOptions(800, 600))

	a, b, c := g.Node("a"), g.Node("b"), g.Node("c")
	assert.Less(t, a.Position.Y, b.Position.Y, "layered top to bottom")
	assert.InDelta(t, a.Position.X, b.Position.X, 1e-9)

	multi := g.BoundingBox([]string{"a", "b"}, DefaultSize)
	_, ch := DefaultSize(c)
	assert.InDelta(t, multi.Y2+DefaultMargin, c.Position.Y-ch/2, 1e-9)
	assert.Equal(t, multi, res.Multi)

	// The camera frames both groups inside the viewport.
	bounds := res.Bounds()
	tl := res.Camera.ToScreen(bounds.Center())
	assert.InDelta(t, 400, tl.X, 1e-6)
	assert.InDelta(t, 300, tl.Y, 1e-6)
}

func TestRun_OnlySingles(t *testing.T) {
	t.Parallel()

	g := build([]string{"a", "b", "c", "d"}, nil)
	res := Run(g, DefaultOptions(600, 600))

	assert.True(t, res.Multi.Empty())
	assert.False(t, res.Singles.Empty())

	// A square viewport gives a 2x2 grid.
	assert.Equal(t, g.Node("a").Position.Y, g.Node("b").Position.Y)
	assert.Equal(t, g.Node("a").Position.X, g.Node("c").Position.X)
	assert.Less(t, g.Node("a").Position.Y, g.Node("c").Position.Y)
}

func TestRun_Empty(t *testing.T) {
	t.Parallel()

	res := Run(graph.New(), DefaultOptions(800, 600))

	assert.True(t, res.Bounds().Empty())
	assert.Equal(t, 1.0, res.Camera.Zoom)
}

func TestRun_CycleAndLongEdge(t *testing.T) {
	t.Parallel()

	t.Run("CycleIsLaidOut", func(t *testing.T) {
		t.Parallel()
		g := build([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"c", "a"}})
		Run(g, DefaultOptions(800, 600))

		for _, n := range g.Nodes() {
			assert.False(t, math.IsNaN(n.Position.X) || math.IsInf(n.Position.X, 0), n.ID)
		}
		assert.Less(t, g.Node("a").Position.Y, g.Node("b").Position.Y)
		assert.Less(t, g.Node("b").Position.Y, g.Node("c").Position.Y)
	})

	t.Run("LongEdgeGetsBendPoint", func(t *testing.T) {
		t.Parallel()
		g := build([]string{"a", "b", "c"}, [][2]string{{"a", "b"}, {"b", "c"}, {"a", "c"}})
		Run(g, DefaultOptions(800, 600))

		var long *graph.Edge
		for _, e := range g.Edges() {
			if e.Source == "a" && e.Target == "c" {
				long = e
			} else {
				assert.Empty(t, e.Route, e.ID)
			}
		}
		require.NotNil(t, long)
		require.Len(t, long.Route, 1)
		assert.InDelta(t, g.Node("b").Position.Y, long.Route[0].Y, 1e-9)
	})
}

func TestRun_ComponentsDoNotOverlap(t *testing.T) {
	t.Parallel()

	g := build([]string{"a", "b", "c", "d"}, [][2]string{{"a", "b"}, {"c", "d"}})
	Run(g, DefaultOptions(800, 600))

	left := g.BoundingBox([]string{"a", "b"}, DefaultSize)
	right := g.BoundingBox([]string{"c", "d"}, DefaultSize)
	assert.False(t, left.Intersects(right))
	assert.InDelta(t, DefaultComponentGap, right.X1-left.X2, 1e-9)
}

func TestGridColumns(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, gridColumns(0, 100, 100))
	assert.Equal(t, 1, gridColumns(1, 100, 100))
	assert.Equal(t, 3, gridColumns(9, 100, 100))
	assert.Equal(t, 4, gridColumns(8, 200, 100))
	assert.Equal(t, 3, gridColumns(3, 1000, 10), "never more columns than nodes")
}
