package graph

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/Benny93/graphpanel/internal/geom"
)

// Snapshot is the portable JSON form of a rendered graph. Its shape follows
// the element JSON of common graph-rendering libraries so that exports can
// be re-imported verbatim, positions included.
type Snapshot struct {
	Elements Elements   `json:"elements"`
	Zoom     float64    `json:"zoom"`
	Pan      geom.Point `json:"pan"`
}

// Elements groups the node and edge elements of a snapshot.
type Elements struct {
	Nodes []NodeElement `json:"nodes"`
	Edges []EdgeElement `json:"edges"`
}

// NodeElement is one node of a snapshot.
type NodeElement struct {
	Data     NodeData   `json:"data"`
	Position geom.Point `json:"position"`
	Classes  string     `json:"classes,omitempty"`
}

// NodeData carries the node attributes.
type NodeData struct {
	ID                    string    `json:"id"`
	Label                 string    `json:"label"`
	IsPrimary             bool      `json:"isPrimary"`
	EntityType            string    `json:"entityType"`
	Abbreviation          string    `json:"abbreviation,omitempty"`
	EntityTypeDisplayName string    `json:"entityTypeDisplayName,omitempty"`
	Details               []Detail  `json:"details,omitempty"`
	Location              *Location `json:"location,omitempty"`
	DeadEnd               bool      `json:"deadend_option,omitempty"`
}

// EdgeElement is one edge of a snapshot.
type EdgeElement struct {
	Data    EdgeData `json:"data"`
	Classes string   `json:"classes,omitempty"`
}

// EdgeData carries the edge attributes.
type EdgeData struct {
	ID        string       `json:"id"`
	Source    string       `json:"source"`
	Target    string       `json:"target"`
	Label     string       `json:"label,omitempty"`
	IsPrimary bool         `json:"isPrimary"`
	Route     []geom.Point `json:"route,omitempty"`
}

// ToSnapshot captures the graph and camera.
func ToSnapshot(g *Graph, cam geom.Camera) Snapshot {
	snap := Snapshot{
		Elements: Elements{
			Nodes: make([]NodeElement, 0, g.NodeCount()),
			Edges: make([]EdgeElement, 0, g.EdgeCount()),
		},
		Zoom: cam.Zoom,
		Pan:  cam.Pan,
	}

	for _, n := range g.Nodes() {
		snap.Elements.Nodes = append(snap.Elements.Nodes, NodeElement{
			Data: NodeData{
				ID:                    n.ID,
				Label:                 n.Label,
				IsPrimary:             n.IsPrimary,
				EntityType:            n.EntityType,
				Abbreviation:          n.Abbreviation,
				EntityTypeDisplayName: n.EntityTypeDisplayName,
				Details:               n.Details,
				Location:              n.Location,
				DeadEnd:               n.DeadEnd,
			},
			Position: n.Position,
			Classes:  n.Classes.String(),
		})
	}

	for _, e := range g.Edges() {
		snap.Elements.Edges = append(snap.Elements.Edges, EdgeElement{
			Data: EdgeData{
				ID:        e.ID,
				Source:    e.Source,
				Target:    e.Target,
				Label:     e.Label,
				IsPrimary: e.IsPrimary,
				Route:     e.Route,
			},
			Classes: e.Classes.String(),
		})
	}

	return snap
}

// Graph rebuilds a Graph from the snapshot without touching positions.
// Edges referencing unknown nodes are dropped.
func (s Snapshot) Graph() *Graph {
	g := New()
	for _, el := range s.Elements.Nodes {
		if el.Data.ID == "" {
			continue
		}
		d := el.Data
		label := d.Label
		if label == "" {
			label = d.ID
		}
		g.AddNode(&Node{
			ID:                    d.ID,
			Label:                 label,
			IsPrimary:             d.IsPrimary,
			EntityType:            d.EntityType,
			Abbreviation:          d.Abbreviation,
			EntityTypeDisplayName: d.EntityTypeDisplayName,
			Details:               d.Details,
			Location:              d.Location,
			DeadEnd:               d.DeadEnd,
			Position:              el.Position,
			Classes:               ParseClasses(el.Classes),
		})
	}

	for i, el := range s.Elements.Edges {
		d := el.Data
		id := d.ID
		if id == "" {
			id = fmt.Sprintf("e%d", i)
		}
		g.AddEdge(&Edge{
			ID:        id,
			Source:    d.Source,
			Target:    d.Target,
			Label:     d.Label,
			IsPrimary: d.IsPrimary,
			Route:     d.Route,
			Classes:   ParseClasses(el.Classes),
		})
	}
	return g
}

// Camera returns the stored camera at pixel ratio 1.
func (s Snapshot) Camera() geom.Camera {
	zoom := s.Zoom
	if zoom == 0 {
		zoom = 1
	}
	return geom.Camera{Pan: s.Pan, Zoom: zoom, PixelRatio: 1}
}

// ExportJSON serializes the graph and camera to a snapshot string.
func ExportJSON(g *Graph, cam geom.Camera) (string, error) {
	data, err := json.Marshal(ToSnapshot(g, cam))
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot: %w", err)
	}
	return string(data), nil
}

// ImportJSON parses a snapshot string produced by ExportJSON.
func ImportJSON(data string) (*Graph, geom.Camera, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, geom.Camera{}, fmt.Errorf("parsing snapshot: %w", err)
	}
	return snap.Graph(), snap.Camera(), nil
}

// LoadInput reads an analysis engine node list from a JSON file.
func LoadInput(path string) ([]InputNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var nodes []InputNode
	if err := json.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return nodes, nil
}
