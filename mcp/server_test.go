package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Benny93/graphpanel/internal/archive"
	"github.com/Benny93/graphpanel/internal/graph"
	"github.com/Benny93/graphpanel/internal/panel"
)

// fakePanels records calls instead of driving a surface.
type fakePanels struct {
	mu       sync.Mutex
	state    panel.State
	open     bool
	roots    []string
	data     []panel.GraphData
	settings []graph.Settings
	ratios   []float64
	jsons    int
	rendered bool
	initErr  error
}

func (f *fakePanels) Create(ctx context.Context, rootPath string) (*panel.Panel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = true
	f.roots = append(f.roots, rootPath)
	return nil, nil
}

func (f *fakePanels) InitialiseGraph(ctx context.Context, data panel.GraphData, settings graph.Settings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.initErr != nil {
		return f.initErr
	}
	f.data = append(f.data, data)
	f.settings = append(f.settings, settings)
	f.state = panel.Done
	return nil
}

func (f *fakePanels) ExportImage(ctx context.Context, pixelRatio float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratios = append(f.ratios, pixelRatio)
	return nil
}

func (f *fakePanels) ExportJSON(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.jsons++
	return nil
}

func (f *fakePanels) CheckRendered(ctx context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rendered, nil
}

func (f *fakePanels) State() (panel.State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.open {
		return 0, panel.ErrNoPanel
	}
	return f.state, nil
}

func (f *fakePanels) Dispose() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

type recordingOutputs struct {
	image, json string
}

func (o *recordingOutputs) SetOutputs(image, json string) {
	if image != "" {
		o.image = image
	}
	if json != "" {
		o.json = json
	}
}

func writeNodes(t *testing.T, dir string) string {
	t.Helper()
	nodes := []graph.InputNode{
		{ID: "a", Name: "A", EntityType: "function", IsPrimary: true,
			References: []graph.Reference{{Key: "b", IsOutgoing: true, Label: "calls"}}},
		{ID: "b", Name: "B", EntityType: "function"},
	}
	data, err := json.Marshal(nodes)
	require.NoError(t, err)
	path := filepath.Join(dir, "nodes.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestNewServer(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakePanels{}, Options{})
	assert.NotNil(t, s.server)
	assert.Equal(t, graph.DefaultSettings(), s.opts.Settings)
	assert.Equal(t, 1.0, s.opts.PixelRatio)
}

func TestServer_Tools(t *testing.T) {
	t.Parallel()
	s := NewServer(&fakePanels{}, Options{})

	t.Run("ListTools", func(t *testing.T) {
		names := make(map[string]bool)
		for _, tool := range s.ListTools() {
			names[tool.Name] = true
		}
		for _, want := range []string{
			"graph_show", "graph_import", "graph_export_image",
			"graph_export_json", "graph_status", "graph_close",
		} {
			assert.True(t, names[want], "Should have tool: %s", want)
		}
	})

	t.Run("ToolDescriptions", func(t *testing.T) {
		for _, tool := range s.ListTools() {
			assert.NotEmpty(t, tool.Description)
			require.NotNil(t, tool.InputSchema)
			assert.Equal(t, "object", tool.InputSchema.Type)
		}
	})
}

func TestServer_CallTool(t *testing.T) {
	t.Parallel()

	t.Run("ShowRelativePath", func(t *testing.T) {
		dir := t.TempDir()
		writeNodes(t, dir)
		f := &fakePanels{}
		s := NewServer(f, Options{RootPath: dir})

		out, err := s.CallTool(t.Context(), "graph_show", map[string]any{
			"path":              "nodes.json",
			"wheel_sensitivity": 0.5,
		})
		require.NoError(t, err)
		assert.Contains(t, out, "Showing 2 node(s)")
		assert.Equal(t, []string{dir}, f.roots)
		require.Len(t, f.data, 1)
		nodes, ok := f.data[0].(panel.Nodes)
		require.True(t, ok)
		assert.Len(t, nodes, 2)
		assert.Equal(t, 0.5, f.settings[0].WheelSensitivity)
	})

	t.Run("ShowMissingPath", func(t *testing.T) {
		s := NewServer(&fakePanels{}, Options{})
		_, err := s.CallTool(t.Context(), "graph_show", map[string]any{})
		assert.ErrorContains(t, err, "path is required")
	})

	t.Run("ShowFailure", func(t *testing.T) {
		dir := t.TempDir()
		path := writeNodes(t, dir)
		s := NewServer(&fakePanels{initErr: panel.ErrReadyTimeout}, Options{})
		_, err := s.CallTool(t.Context(), "graph_show", map[string]any{"path": path})
		assert.ErrorIs(t, err, panel.ErrReadyTimeout)
	})

	t.Run("ImportInvalidSnapshot", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
		f := &fakePanels{}
		s := NewServer(f, Options{})

		_, err := s.CallTool(t.Context(), "graph_import", map[string]any{"path": path})
		assert.Error(t, err)
		assert.Empty(t, f.data)
	})

	t.Run("ImportNeedsSource", func(t *testing.T) {
		s := NewServer(&fakePanels{}, Options{})
		_, err := s.CallTool(t.Context(), "graph_import", map[string]any{})
		assert.ErrorContains(t, err, "path or archive_id")
	})

	t.Run("ImportArchiveDisabled", func(t *testing.T) {
		s := NewServer(&fakePanels{}, Options{})
		_, err := s.CallTool(t.Context(), "graph_import", map[string]any{"archive_id": "x"})
		assert.ErrorContains(t, err, "disabled")
	})

	t.Run("ExportsSetOutputs", func(t *testing.T) {
		f := &fakePanels{open: true, state: panel.Done}
		o := &recordingOutputs{}
		s := NewServer(f, Options{RootPath: "/proj", PixelRatio: 2, Outputs: o})

		out, err := s.CallTool(t.Context(), "graph_export_image", map[string]any{"output": "g.png"})
		require.NoError(t, err)
		assert.Equal(t, "Exported image to g.png.", out)
		assert.Equal(t, filepath.Join("/proj", "g.png"), o.image)
		assert.Equal(t, []float64{2}, f.ratios)

		_, err = s.CallTool(t.Context(), "graph_export_image", map[string]any{"pixel_ratio": 3.0})
		require.NoError(t, err)
		assert.Equal(t, []float64{2, 3}, f.ratios)

		out, err = s.CallTool(t.Context(), "graph_export_json", map[string]any{"output": "/abs/g.json"})
		require.NoError(t, err)
		assert.Equal(t, "Exported snapshot to /abs/g.json.", out)
		assert.Equal(t, "/abs/g.json", o.json)
		assert.Equal(t, 1, f.jsons)
	})

	t.Run("ExportWithoutGraph", func(t *testing.T) {
		s := NewServer(&fakePanels{}, Options{})
		out, err := s.CallTool(t.Context(), "graph_export_json", map[string]any{})
		require.NoError(t, err)
		assert.Contains(t, out, "nothing exported")
	})

	t.Run("StatusAndClose", func(t *testing.T) {
		f := &fakePanels{}
		s := NewServer(f, Options{})

		out, err := s.CallTool(t.Context(), "graph_status", nil)
		require.NoError(t, err)
		assert.Equal(t, "No panel is open.", out)

		f.open, f.state, f.rendered = true, panel.Done, true
		out, err = s.CallTool(t.Context(), "graph_status", nil)
		require.NoError(t, err)
		assert.Contains(t, out, "State: done")
		assert.Contains(t, out, "Rendered: true")

		out, err = s.CallTool(t.Context(), "graph_close", nil)
		require.NoError(t, err)
		assert.Equal(t, "Panel closed.", out)
		assert.False(t, f.open)
	})

	t.Run("UnknownTool", func(t *testing.T) {
		s := NewServer(&fakePanels{}, Options{})
		result, err := s.CallTool(t.Context(), "unknown_tool", map[string]any{})
		assert.ErrorContains(t, err, "unknown tool")
		assert.Empty(t, result)
	})
}

func TestServer_Resources(t *testing.T) {
	t.Parallel()

	t.Run("ListResources", func(t *testing.T) {
		s := NewServer(&fakePanels{}, Options{})
		uris := make(map[string]bool)
		for _, res := range s.ListResources() {
			uris[res.URI] = true
		}
		for _, want := range []string{"graphpanel://status", "graphpanel://protocol", "graphpanel://archive"} {
			assert.True(t, uris[want], "Should have resource: %s", want)
		}
	})

	t.Run("Protocol", func(t *testing.T) {
		s := NewServer(&fakePanels{}, Options{})
		out, err := s.ReadResource(t.Context(), "graphpanel://protocol")
		require.NoError(t, err)
		assert.Contains(t, out, "checkCytoscapeRendered")
		assert.Contains(t, out, "goToFile")
	})

	t.Run("Archive", func(t *testing.T) {
		arch := archive.NewMemoryArchive()
		s := NewServer(&fakePanels{}, Options{Archive: arch})

		out, err := s.ReadResource(t.Context(), "graphpanel://archive")
		require.NoError(t, err)
		assert.Equal(t, "No archived snapshots.", out)

		require.NoError(t, arch.Put(t.Context(), archive.NewEntry("g.json", "{}", 3, 2)))
		out, err = s.ReadResource(t.Context(), "graphpanel://archive")
		require.NoError(t, err)
		assert.Contains(t, out, "g.json")
		assert.Contains(t, out, "(3 nodes, 2 edges)")
	})

	t.Run("Unknown", func(t *testing.T) {
		s := NewServer(&fakePanels{}, Options{})
		_, err := s.ReadResource(t.Context(), "graphpanel://nope")
		assert.ErrorContains(t, err, "unknown resource")
	})
}

func TestServer_Run(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakePanels{}, Options{})
	in := strings.Join([]string{
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`garbage`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"graph_show","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"resources/read","params":{"uri":"graphpanel://status"}}`,
		`{"jsonrpc":"2.0","id":5,"method":"bogus"}`,
	}, "\n") + "\n"

	var out bytes.Buffer
	require.NoError(t, s.Run(t.Context(), strings.NewReader(in), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 5)

	resp := make([]map[string]any, len(lines))
	for i, line := range lines {
		require.NoError(t, json.Unmarshal([]byte(line), &resp[i]))
	}

	info := resp[0]["result"].(map[string]any)["serverInfo"].(map[string]any)
	assert.Equal(t, "graphpanel", info["name"])

	tools := resp[1]["result"].(map[string]any)["tools"].([]any)
	assert.Len(t, tools, 6)

	call := resp[2]["result"].(map[string]any)
	assert.Equal(t, true, call["isError"])

	contents := resp[3]["result"].(map[string]any)["contents"].([]any)
	assert.Equal(t, "No panel is open.", contents[0].(map[string]any)["text"])

	errObj := resp[4]["error"].(map[string]any)
	assert.Equal(t, float64(-32601), errObj["code"])
}

func TestServer_InProcessSurface(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	input := writeNodes(t, dir)

	arch := archive.NewMemoryArchive()
	host := &panel.FileHost{Dir: dir, Archive: arch}
	reg := panel.NewRegistry(panel.InProcessLauncher{}, panel.Options{Host: host, ReadyTimeout: 10 * time.Second})
	t.Cleanup(func() { _ = reg.Dispose() })
	s := NewServer(reg, Options{RootPath: dir, Outputs: host, Archive: arch})
	ctx := t.Context()

	_, err := s.CallTool(ctx, "graph_show", map[string]any{"path": input})
	require.NoError(t, err)

	status, err := s.CallTool(ctx, "graph_status", nil)
	require.NoError(t, err)
	assert.Contains(t, status, "State: done")
	assert.Contains(t, status, "Rendered: true")

	_, err = s.CallTool(ctx, "graph_export_json", map[string]any{"output": "snap.json"})
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "snap.json"))
	require.NoError(t, err)

	entries, err := arch.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// A shown panel is replaced by the import.
	out, err := s.CallTool(ctx, "graph_import", map[string]any{"archive_id": entries[0].ID})
	require.NoError(t, err)
	assert.Equal(t, "Imported archived snapshot snap.json.", out)
	st, err := reg.State()
	require.NoError(t, err)
	assert.Equal(t, panel.Done, st)

	_, err = s.CallTool(ctx, "graph_close", nil)
	require.NoError(t, err)
	_, err = reg.State()
	assert.ErrorIs(t, err, panel.ErrNoPanel)
}

func TestServer_RunListsResources(t *testing.T) {
	t.Parallel()

	s := NewServer(&fakePanels{}, Options{})
	in := `{"jsonrpc":"2.0","id":"r1","method":"resources/list"}` + "\n" +
		`{"jsonrpc":"2.0","id":"r2","method":"resources/read","params":{}}`

	var out bytes.Buffer
	require.NoError(t, s.Run(t.Context(), strings.NewReader(in), &out))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var list struct {
		ID     string `json:"id"`
		Result struct {
			Resources []Resource `json:"resources"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &list))
	assert.Equal(t, "r1", list.ID)
	assert.Equal(t, s.ListResources(), list.Result.Resources)

	assert.Contains(t, lines[1], `"code":-32602`)
}
