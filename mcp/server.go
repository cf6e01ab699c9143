// Package mcp provides the MCP (Model Context Protocol) server for graphpanel.
//
// It lets an editor or agent drive the graph panel: show a graph, import a
// snapshot, export, query status and close.
package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Benny93/graphpanel/internal/archive"
	"github.com/Benny93/graphpanel/internal/graph"
	"github.com/Benny93/graphpanel/internal/panel"
	"github.com/Benny93/graphpanel/internal/protocol"
)

// Version is reported in the initialize handshake.
var Version = "0.1.0"

// Panels is the panel control surface the server drives. *panel.Registry
// satisfies it.
type Panels interface {
	Create(ctx context.Context, rootPath string) (*panel.Panel, error)
	InitialiseGraph(ctx context.Context, data panel.GraphData, settings graph.Settings) error
	ExportImage(ctx context.Context, pixelRatio float64) error
	ExportJSON(ctx context.Context) error
	CheckRendered(ctx context.Context) (bool, error)
	State() (panel.State, error)
	Dispose() error
}

// Outputs redirects exports. *panel.FileHost satisfies it.
type Outputs interface {
	SetOutputs(image, json string)
}

// Options configures a Server.
type Options struct {
	// RootPath anchors relative paths in tool arguments.
	RootPath string

	Settings   graph.Settings
	PixelRatio float64

	// Outputs and Archive are optional.
	Outputs Outputs
	Archive archive.Archive
}

// Server represents the MCP server.
type Server struct {
	panels Panels
	opts   Options
	server *mcp.Server
}

// Tool represents an MCP tool.
type Tool struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// Resource represents an MCP resource.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

// NewServer creates a new MCP server.
func NewServer(panels Panels, opts Options) *Server {
	if opts.Settings.WheelSensitivity <= 0 {
		opts.Settings = graph.DefaultSettings()
	}
	if opts.PixelRatio <= 0 {
		opts.PixelRatio = 1
	}
	s := &Server{panels: panels, opts: opts}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "graphpanel",
		Version: Version,
	}, nil)

	return s
}

func objectSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []Tool {
	return []Tool{
		{
			Name:        "graph_show",
			Description: "Show a graph from a JSON node list produced by the analysis engine. Replaces the graph currently shown.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"path":              {Type: "string", Description: "Path to the node list JSON file"},
				"wheel_sensitivity": {Type: "number", Description: "Zoom speed multiplier for the mouse wheel"},
			}, "path"),
		},
		{
			Name:        "graph_import",
			Description: "Show a previously exported graph snapshot without re-running layout.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"path":       {Type: "string", Description: "Path to an exported snapshot JSON file"},
				"archive_id": {Type: "string", Description: "ID of an archived snapshot"},
			}),
		},
		{
			Name:        "graph_export_image",
			Description: "Export the shown graph with its overlay as a PNG image.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"output":      {Type: "string", Description: "Destination PNG path"},
				"pixel_ratio": {Type: "number", Description: "Scale factor of the exported image"},
			}),
		},
		{
			Name:        "graph_export_json",
			Description: "Export the shown graph, including positions, as a portable JSON snapshot.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{
				"output": {Type: "string", Description: "Destination JSON path"},
			}),
		},
		{
			Name:        "graph_status",
			Description: "Report the panel readiness state and whether anything is rendered.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
		},
		{
			Name:        "graph_close",
			Description: "Close the graph panel.",
			InputSchema: objectSchema(map[string]*jsonschema.Schema{}),
		},
	}
}

// ListResources returns all registered resources.
func (s *Server) ListResources() []Resource {
	return []Resource{
		{
			URI:         "graphpanel://status",
			Name:        "Panel Status",
			Description: "Readiness state of the graph panel",
			MimeType:    "text/plain",
		},
		{
			URI:         "graphpanel://protocol",
			Name:        "Panel Protocol",
			Description: "Messages exchanged between host and rendering surface",
			MimeType:    "text/plain",
		},
		{
			URI:         "graphpanel://archive",
			Name:        "Snapshot Archive",
			Description: "Archived graph snapshots, newest first",
			MimeType:    "text/plain",
		},
	}
}

// CallTool executes a tool with the given arguments.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case "graph_show":
		path, _ := args["path"].(string)
		settings := s.opts.Settings
		if ws, _ := args["wheel_sensitivity"].(float64); ws > 0 {
			settings.WheelSensitivity = ws
		}
		return s.handleShow(ctx, path, settings)
	case "graph_import":
		path, _ := args["path"].(string)
		id, _ := args["archive_id"].(string)
		return s.handleImport(ctx, path, id)
	case "graph_export_image":
		output, _ := args["output"].(string)
		ratio, _ := args["pixel_ratio"].(float64)
		if ratio <= 0 {
			ratio = s.opts.PixelRatio
		}
		return s.handleExportImage(ctx, output, ratio)
	case "graph_export_json":
		output, _ := args["output"].(string)
		return s.handleExportJSON(ctx, output)
	case "graph_status":
		return s.status(ctx), nil
	case "graph_close":
		if err := s.panels.Dispose(); err != nil {
			return "", fmt.Errorf("closing panel: %w", err)
		}
		return "Panel closed.", nil
	default:
		return "", fmt.Errorf("unknown tool: %s", name)
	}
}

// ReadResource reads a resource by URI.
func (s *Server) ReadResource(ctx context.Context, uri string) (string, error) {
	switch uri {
	case "graphpanel://status":
		return s.status(ctx), nil
	case "graphpanel://protocol":
		return getProtocol(), nil
	case "graphpanel://archive":
		return s.archiveList(ctx)
	default:
		return "", fmt.Errorf("unknown resource: %s", uri)
	}
}

func (s *Server) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || s.opts.RootPath == "" {
		return path
	}
	return filepath.Join(s.opts.RootPath, path)
}

// show replaces whatever the panel shows with data.
func (s *Server) show(ctx context.Context, data panel.GraphData, settings graph.Settings) error {
	if _, err := s.panels.Create(ctx, s.opts.RootPath); err != nil {
		return err
	}
	return s.panels.InitialiseGraph(ctx, data, settings)
}

func (s *Server) handleShow(ctx context.Context, path string, settings graph.Settings) (string, error) {
	if path == "" {
		return "", errors.New("path is required")
	}
	nodes, err := graph.LoadInput(s.resolve(path))
	if err != nil {
		return "", err
	}
	if err := s.show(ctx, panel.Nodes(nodes), settings); err != nil {
		return "", fmt.Errorf("showing graph: %w", err)
	}
	return fmt.Sprintf("Showing %d node(s) from %s.", len(nodes), path), nil
}

func (s *Server) handleImport(ctx context.Context, path, id string) (string, error) {
	var (
		data   string
		source string
	)
	switch {
	case id != "":
		if s.opts.Archive == nil {
			return "", errors.New("snapshot archive is disabled")
		}
		e, err := s.opts.Archive.Get(ctx, id)
		if err != nil {
			return "", err
		}
		data, source = e.JSON, "archived snapshot "+e.Name
	case path != "":
		raw, err := os.ReadFile(s.resolve(path))
		if err != nil {
			return "", fmt.Errorf("reading snapshot: %w", err)
		}
		data, source = string(raw), path
	default:
		return "", errors.New("path or archive_id is required")
	}

	if _, _, err := graph.ImportJSON(data); err != nil {
		return "", err
	}
	if err := s.show(ctx, panel.Snapshot(data), s.opts.Settings); err != nil {
		return "", fmt.Errorf("importing snapshot: %w", err)
	}
	return "Imported " + source + ".", nil
}

func (s *Server) handleExportImage(ctx context.Context, output string, ratio float64) (string, error) {
	if s.opts.Outputs != nil {
		s.opts.Outputs.SetOutputs(s.resolve(output), "")
	}
	if err := s.panels.ExportImage(ctx, ratio); err != nil {
		return "", fmt.Errorf("exporting image: %w", err)
	}
	return s.exported("image", output), nil
}

func (s *Server) handleExportJSON(ctx context.Context, output string) (string, error) {
	if s.opts.Outputs != nil {
		s.opts.Outputs.SetOutputs("", s.resolve(output))
	}
	if err := s.panels.ExportJSON(ctx); err != nil {
		return "", fmt.Errorf("exporting json: %w", err)
	}
	return s.exported("snapshot", output), nil
}

func (s *Server) exported(what, output string) string {
	if st, err := s.panels.State(); err != nil || st != panel.Done {
		return "No graph is shown; nothing exported."
	}
	if output == "" {
		return "Exported " + what + "."
	}
	return fmt.Sprintf("Exported %s to %s.", what, output)
}

func (s *Server) status(ctx context.Context) string {
	st, err := s.panels.State()
	if errors.Is(err, panel.ErrNoPanel) {
		return "No panel is open."
	}
	if err != nil {
		return "Panel status unavailable: " + err.Error()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "State: %s\n", st)
	rendered, err := s.panels.CheckRendered(ctx)
	if err != nil {
		fmt.Fprintf(&b, "Rendered: unknown (%v)\n", err)
	} else {
		fmt.Fprintf(&b, "Rendered: %t\n", rendered)
	}
	return b.String()
}

func (s *Server) archiveList(ctx context.Context) (string, error) {
	if s.opts.Archive == nil {
		return "Snapshot archive is disabled.", nil
	}
	entries, err := s.opts.Archive.List(ctx)
	if err != nil {
		return "", err
	}
	if len(entries) == 0 {
		return "No archived snapshots.", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Archived snapshots (%d):\n\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "  %s  %s  %s  (%d nodes, %d edges)\n",
			e.ID, e.CreatedAt.Format("2006-01-02 15:04:05"), e.Name, e.Nodes, e.Edges)
	}
	return b.String(), nil
}

func getProtocol() string {
	return `Graph panel protocol

Every message is a JSON object whose "command" field names its type.

Host -> surface:
  ` + protocol.CmdGo + `                      {data: node[], settings}   build and lay out a graph
  ` + protocol.CmdImportJSON + `              {json, settings}           show a snapshot without layout
  ` + protocol.CmdExportImage + `             {pixelRatio?}              request a PNG export
  ` + protocol.CmdExportJSON + `              {}                         request a JSON snapshot
  ` + protocol.CmdCheckRendered + `   {}                         ask whether anything is rendered

Surface -> host:
  ` + protocol.CmdReady + `                   {}                         surface finished starting
  ` + protocol.CmdGoToFile + `                {uri, line, column}        navigate to a source location
  ` + protocol.CmdSaveImage + `               {image: base64 png}        save an exported image
  ` + protocol.CmdSaveJSON + `                {json}                     save an exported snapshot
  ` + protocol.CmdRenderedResult + ` {rendered}                 answer to the rendered probe

Graph data sent before the surface is ready is held back and delivered on ready.
`
}

// Run serves newline-delimited JSON-RPC on stdin/stdout until stdin ends or
// ctx is cancelled.
func (s *Server) Run(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if stdin == nil || stdout == nil {
		return errors.New("stdin and stdout must not be nil")
	}

	reader := bufio.NewReader(stdin)
	// MCP requires compact JSON, one message per line.
	enc := json.NewEncoder(stdout)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadBytes('\n')
		if len(bytes.TrimSpace(line)) > 0 {
			if resp := s.dispatch(ctx, line); resp != nil {
				if werr := enc.Encode(resp); werr != nil {
					return werr
				}
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// request is an incoming JSON-RPC message. A missing ID marks a
// notification.
type request struct {
	ID     any             `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// dispatch answers one line; nil means no response is due.
func (s *Server) dispatch(ctx context.Context, line []byte) map[string]any {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		slog.Debug("mcp: dropping undecodable line", "error", err)
		return nil
	}
	if req.ID == nil {
		return nil
	}
	return s.handleRequest(ctx, req)
}

func (s *Server) handleRequest(ctx context.Context, req request) map[string]any {
	switch req.Method {
	case "initialize":
		return reply(req.ID, map[string]any{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]any{"name": "graphpanel", "version": Version},
			"capabilities": map[string]any{
				"tools":     map[string]any{"listChanged": false},
				"resources": map[string]any{"listChanged": false},
			},
		})
	case "ping":
		return reply(req.ID, map[string]any{})
	case "tools/list":
		return reply(req.ID, map[string]any{"tools": s.toolList()})
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "resources/list":
		return reply(req.ID, map[string]any{"resources": s.ListResources()})
	case "resources/read":
		return s.handleResourcesRead(ctx, req)
	default:
		return errorResponse(req.ID, -32601, "Method not found: "+req.Method)
	}
}

func (s *Server) toolList() []map[string]any {
	tools := s.ListTools()
	out := make([]map[string]any, len(tools))
	for i, tool := range tools {
		out[i] = map[string]any{
			"name":        tool.Name,
			"description": tool.Description,
			"inputSchema": tool.InputSchema,
		}
	}
	return out
}

func (s *Server) handleToolsCall(ctx context.Context, req request) map[string]any {
	var params struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
		return errorResponse(req.ID, -32602, "Invalid params")
	}

	text, err := s.CallTool(ctx, params.Name, params.Arguments)
	result := map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
	}
	if err != nil {
		// Tool failures are reported in-band so the caller can read them.
		result["content"] = []map[string]any{{"type": "text", "text": err.Error()}}
		result["isError"] = true
	}
	return reply(req.ID, result)
}

func (s *Server) handleResourcesRead(ctx context.Context, req request) map[string]any {
	var params struct {
		URI string `json:"uri"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil || params.URI == "" {
		return errorResponse(req.ID, -32602, "Invalid params")
	}

	text, err := s.ReadResource(ctx, params.URI)
	if err != nil {
		return errorResponse(req.ID, -32000, err.Error())
	}
	return reply(req.ID, map[string]any{
		"contents": []map[string]any{{"uri": params.URI, "mimeType": "text/plain", "text": text}},
	})
}

func reply(id, result any) map[string]any {
	return map[string]any{"jsonrpc": "2.0", "id": id, "result": result}
}

func errorResponse(id any, code int, message string) map[string]any {
	return map[string]any{
		"jsonrpc": "2.0",
		"id":      id,
		"error":   map[string]any{"code": code, "message": message},
	}
}
