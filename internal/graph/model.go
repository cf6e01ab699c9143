// Package graph provides the data model rendered by the graph panel.
//
// It defines the input shape produced by the analysis engine (InputNode and
// its references), the normalized node and edge types held by a Graph, and
// the portable JSON snapshot used for export and re-import.
package graph

import (
	"sort"
	"strings"

	"github.com/Benny93/graphpanel/internal/geom"
)

// Element classes toggled by interaction.
const (
	ClassHighlight       = "highlight"
	ClassSemiTransparent = "semitransp"
)

// Location points at a source position for navigate-to-source.
type Location struct {
	// Filename uses forward slashes.
	Filename string `json:"filename"`

	// Line is 1-based.
	Line int `json:"line"`

	// Column is 1-based.
	Column int `json:"column"`
}

// Detail is one key/values row of the detailed tooltip.
type Detail struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

// Reference is a typed link from an input node to another node key.
type Reference struct {
	// Key is the id of the referenced node.
	Key string `json:"key"`

	// IsOutgoing orients the edge away from the owning node.
	IsOutgoing bool `json:"isOutgoing"`

	// Label is shown on the edge when set.
	Label string `json:"label,omitempty"`
}

// InputNode is a node as delivered by the analysis engine.
type InputNode struct {
	ID                    string      `json:"id"`
	Name                  string      `json:"name,omitempty"`
	References            []Reference `json:"references"`
	Location              *Location   `json:"location,omitempty"`
	Documentation         string      `json:"documentation,omitempty"`
	Details               []Detail    `json:"details,omitempty"`
	IsPrimary             bool        `json:"isPrimary"`
	EntityType            string      `json:"entityType"`
	EntityTypeDisplayName string      `json:"entityTypeDisplayName,omitempty"`
	Abbreviation          string      `json:"abbreviation,omitempty"`
	DeadEnd               bool        `json:"deadEnd,omitempty"`
}

// Settings is threaded from host to surface with every delivery.
type Settings struct {
	WheelSensitivity float64 `json:"wheelSensitivity"`
}

// DefaultSettings returns the settings used when the host supplies none.
func DefaultSettings() Settings {
	return Settings{WheelSensitivity: 1}
}

// Node is a normalized graph node.
type Node struct {
	// ID is unique within one graph.
	ID string

	// Label is the display name; defaults to ID.
	Label string

	// IsPrimary marks focal entities as opposed to referenced ones.
	IsPrimary bool

	EntityType            string
	Abbreviation          string
	EntityTypeDisplayName string
	Details               []Detail

	// Location is nil when the node cannot be navigated to.
	Location *Location

	// DeadEnd is set when outgoing references were expected but none resolved.
	DeadEnd bool

	// Position is the node center in graph coordinates.
	Position geom.Point

	Classes ClassSet
}

// Edge is a directed link between two nodes of the same graph.
type Edge struct {
	ID     string
	Source string
	Target string
	Label  string

	// IsPrimary is false when either endpoint is a secondary node.
	IsPrimary bool

	// Route holds bend points between source and target, if any.
	Route []geom.Point

	Classes ClassSet
}

// ClassSet is a set of element classes.
type ClassSet map[string]struct{}

// ParseClasses builds a ClassSet from a space-separated list.
func ParseClasses(s string) ClassSet {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil
	}
	cs := make(ClassSet, len(fields))
	for _, f := range fields {
		cs[f] = struct{}{}
	}
	return cs
}

// Has reports whether class c is set.
func (cs ClassSet) Has(c string) bool {
	_, ok := cs[c]
	return ok
}

// String renders the set sorted and space-separated.
func (cs ClassSet) String() string {
	if len(cs) == 0 {
		return ""
	}
	out := make([]string, 0, len(cs))
	for c := range cs {
		out = append(out, c)
	}
	sort.Strings(out)
	return strings.Join(out, " ")
}

// HasClass reports whether the node carries class c.
func (n *Node) HasClass(c string) bool {
	return n.Classes.Has(c)
}

// AddClass sets class c on the node.
func (n *Node) AddClass(c string) {
	if n.Classes == nil {
		n.Classes = make(ClassSet)
	}
	n.Classes[c] = struct{}{}
}

// RemoveClass clears class c from the node.
func (n *Node) RemoveClass(c string) {
	delete(n.Classes, c)
}

// DisplayType returns the human label for the node's entity type.
func (n *Node) DisplayType() string {
	if n.EntityTypeDisplayName != "" {
		return n.EntityTypeDisplayName
	}
	return n.EntityType
}

// HasClass reports whether the edge carries class c.
func (e *Edge) HasClass(c string) bool {
	return e.Classes.Has(c)
}

// AddClass sets class c on the edge.
func (e *Edge) AddClass(c string) {
	if e.Classes == nil {
		e.Classes = make(ClassSet)
	}
	e.Classes[c] = struct{}{}
}

// RemoveClass clears class c from the edge.
func (e *Edge) RemoveClass(c string) {
	delete(e.Classes, c)
}
