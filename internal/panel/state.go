// Package panel is the host side of the graph panel.
//
// A Panel drives one rendering surface over a protocol.Transport. It owns
// the readiness rendezvous: graph data handed to InitialiseGraph is held
// back until the surface has posted ready, whichever of the two happens
// first. The Registry keeps at most one live panel.
package panel

import (
	"errors"
	"fmt"

	"github.com/Benny93/graphpanel/internal/graph"
	"github.com/Benny93/graphpanel/internal/protocol"
)

// State is the readiness state of a panel.
type State int

const (
	// New: surface created, nothing exchanged.
	New State = iota
	// DataReady: data is waiting for the surface to become ready.
	DataReady
	// ClientReady: the surface is ready but no data arrived yet.
	ClientReady
	// Done: data has been delivered into the surface.
	Done
)

func (s State) String() string {
	switch s {
	case New:
		return "new"
	case DataReady:
		return "data-ready"
	case ClientReady:
		return "client-ready"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrDisposed is returned by operations on a disposed panel.
	ErrDisposed = errors.New("panel disposed")

	// ErrReadyTimeout is returned when the surface did not become ready in
	// time. The pending delivery is withdrawn.
	ErrReadyTimeout = errors.New("surface did not become ready")

	// ErrSuperseded is returned to an InitialiseGraph call whose data was
	// replaced by a later call before the surface became ready.
	ErrSuperseded = errors.New("graph data superseded")

	// ErrNoPanel is returned by registry operations that need a live panel.
	ErrNoPanel = errors.New("no active panel")
)

// GraphData is what a panel can show: either Nodes from the analysis engine
// or a previously exported Snapshot.
type GraphData interface {
	message(settings graph.Settings) protocol.HostMessage
}

// Nodes is a flat node list to build and lay out.
type Nodes []graph.InputNode

func (n Nodes) message(settings graph.Settings) protocol.HostMessage {
	return protocol.Go{Data: n, Settings: settings}
}

// Snapshot is an exported JSON snapshot, shown without layout.
type Snapshot string

func (s Snapshot) message(settings graph.Settings) protocol.HostMessage {
	return protocol.ImportJSON{JSON: string(s), Settings: settings}
}
