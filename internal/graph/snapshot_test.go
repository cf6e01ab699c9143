package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/graphpanel/internal/geom"
)

func sampleGraph() *Graph {
	g := Build([]InputNode{
		{
			ID: "a", Name: "Alpha", IsPrimary: true, EntityType: "country_event", Abbreviation: "CE",
			Location:   &Location{Filename: "events/a.txt", Line: 3, Column: 1},
			Details:    []Detail{{Key: "scope", Values: []string{"country"}}},
			References: []Reference{{Key: "b", IsOutgoing: true, Label: "option"}, {Key: "gone", IsOutgoing: true}},
		},
		{ID: "b", IsPrimary: false, EntityType: "trait"},
		{ID: "c", IsPrimary: true, EntityType: "trait", References: []Reference{{Key: "missing", IsOutgoing: true}}},
	})
	g.Node("a").Position = geom.Point{X: 10, Y: 20}
	g.Node("b").Position = geom.Point{X: 10, Y: 120}
	g.Node("c").Position = geom.Point{X: 200, Y: 5.5}
	g.Node("b").AddClass(ClassSemiTransparent)
	g.Edges()[0].Route = []geom.Point{{X: 10, Y: 70}}
	return g
}

func TestSnapshot_RoundTrip(t *testing.T) {
	t.Parallel()

	g := sampleGraph()
	cam := geom.Camera{Pan: geom.Point{X: 3, Y: -4}, Zoom: 1.5, PixelRatio: 1}

	data, err := ExportJSON(g, cam)
	require.NoError(t, err)

	imported, importedCam, err := ImportJSON(data)
	require.NoError(t, err)

	assert.Equal(t, g.Nodes(), imported.Nodes())
	assert.Equal(t, g.Edges(), imported.Edges())
	assert.Equal(t, cam, importedCam)

	// Exporting the imported graph yields the same document.
	again, err := ExportJSON(imported, importedCam)
	require.NoError(t, err)
	assert.JSONEq(t, data, again)
}

func TestSnapshot_DanglingEdgesDropped(t *testing.T) {
	t.Parallel()

	data := `{"elements":{"nodes":[{"data":{"id":"a"},"position":{"x":1,"y":2}}],
		"edges":[{"data":{"id":"e0","source":"a","target":"z"}}]},"zoom":0,"pan":{"x":0,"y":0}}`

	g, cam, err := ImportJSON(data)
	require.NoError(t, err)

	assert.Equal(t, 1, g.NodeCount())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Equal(t, "a", g.Node("a").Label)
	assert.Equal(t, geom.Point{X: 1, Y: 2}, g.Node("a").Position)
	assert.Equal(t, 1.0, cam.Zoom)
}

func TestSnapshot_InvalidJSON(t *testing.T) {
	t.Parallel()

	_, _, err := ImportJSON("{not json")
	assert.Error(t, err)
}

func TestLoadInput(t *testing.T) {
	t.Parallel()

	t.Run("ReadsNodeList", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "graph.json")
		require.NoError(t, os.WriteFile(path, []byte(`[{"id":"a","isPrimary":true,"entityType":"x","references":[]}]`), 0o644))

		nodes, err := LoadInput(path)
		require.NoError(t, err)
		require.Len(t, nodes, 1)
		assert.Equal(t, "a", nodes[0].ID)
	})

	t.Run("MissingFile", func(t *testing.T) {
		t.Parallel()
		_, err := LoadInput(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})
}
