package surface

import (
	"context"
	"math"
	"sort"

	"github.com/Benny93/graphpanel/internal/geom"
	"github.com/Benny93/graphpanel/internal/graph"
	"github.com/Benny93/graphpanel/internal/interact"
	"github.com/Benny93/graphpanel/internal/protocol"
)

// Hover is the pointer entering node id.
func (s *Surface) Hover(id string) {
	s.post(func() {
		if s.g == nil || !s.g.HasNode(id) {
			return
		}
		if s.hovered != "" && s.hovered != id {
			s.tips.Leave(s.hovered)
			interact.Unhighlight(s.g, s.hovered)
		}
		s.hovered = id
		s.tips.Enter(id)
		interact.Highlight(s.g, id)
		s.frame()
	})
}

// Leave is the pointer leaving node id.
func (s *Surface) Leave(id string) {
	s.post(func() {
		if s.g == nil || !s.g.HasNode(id) {
			return
		}
		s.tips.Leave(id)
		interact.Unhighlight(s.g, id)
		if s.hovered == id {
			s.hovered = ""
		}
		s.frame()
	})
}

// DismissTooltip is the pointer leaving an expanded tooltip.
func (s *Surface) DismissTooltip(id string) {
	s.post(func() { s.tips.Dismiss(id) })
}

// Tap activates id; the empty id is the background.
func (s *Surface) Tap(id string) {
	s.post(func() { s.taps.Tap(id) })
}

// onDoubleTap runs on the loop, from within a Tap event.
func (s *Surface) onDoubleTap(id string) {
	if s.g == nil {
		return
	}
	n := s.g.Node(id)
	if n == nil || n.Location == nil {
		return
	}
	s.send(protocol.GoToFile{URI: n.Location.Filename, Line: n.Location.Line, Column: n.Location.Column})
}

// Pan moves the camera by a CSS pixel offset.
func (s *Surface) Pan(dx, dy float64) {
	s.post(func() {
		s.cam.Pan = s.cam.Pan.Add(geom.Point{X: dx, Y: dy})
		s.frame()
	})
}

// Wheel zooms around a CSS pixel position. Positive deltas zoom out.
func (s *Surface) Wheel(delta float64, at geom.Point) {
	s.post(func() {
		diff := -delta / wheelStep * s.settings.WheelSensitivity
		s.cam = geom.ZoomAt(s.cam, math.Pow(10, diff), at, geom.MinZoom, geom.MaxZoom)
		s.frame()
	})
}

// Resize changes the viewport. The camera is re-centered once resizing
// settles.
func (s *Surface) Resize(w, h int) {
	s.post(func() {
		if w <= 0 || h <= 0 {
			return
		}
		s.width, s.height = w, h
		s.layer.Resize(s.devicePx(w), s.devicePx(h))
		s.frame()
		s.resize.Trigger(s.recenter)
	})
}

func (s *Surface) recenter() {
	if s.g == nil {
		return
	}
	box := s.g.BoundingBox(nil, s.opts.Fonts.NodeSize)
	s.cam = geom.Center(s.cam, box, float64(s.width), float64(s.height))
	s.frame()
}

// Snapshot is a read-only view of the surface state.
type Snapshot struct {
	Nodes    int
	Edges    int
	Camera   geom.Camera
	Width    int
	Height   int
	Frames   int
	Tooltips map[string]interact.TooltipState

	// Highlighted and Dimmed list node IDs carrying each class.
	Highlighted []string
	Dimmed      []string

	// Positions holds node centers in graph coordinates.
	Positions map[string]geom.Point
}

// Snapshot returns the surface state once every pointer event and timer
// callback queued before the call has been handled. Host messages still in
// the transport are not covered; a CheckRendered round-trip orders those.
func (s *Surface) Snapshot(ctx context.Context) (Snapshot, error) {
	out := make(chan Snapshot, 1)
	s.post(func() { out <- s.snapshot() })
	select {
	case snap := <-out:
		return snap, nil
	case <-s.done:
		return Snapshot{}, protocol.ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Surface) snapshot() Snapshot {
	snap := Snapshot{
		Camera:    s.cam,
		Width:     s.width,
		Height:    s.height,
		Frames:    s.layer.Frames(),
		Tooltips:  make(map[string]interact.TooltipState),
		Positions: make(map[string]geom.Point),
	}
	for _, id := range s.tips.Visible() {
		snap.Tooltips[id] = s.tips.State(id)
	}
	if s.g == nil {
		return snap
	}
	snap.Nodes, snap.Edges = s.g.NodeCount(), s.g.EdgeCount()
	for _, n := range s.g.Nodes() {
		snap.Positions[n.ID] = n.Position
		if n.HasClass(graph.ClassHighlight) {
			snap.Highlighted = append(snap.Highlighted, n.ID)
		}
		if n.HasClass(graph.ClassSemiTransparent) {
			snap.Dimmed = append(snap.Dimmed, n.ID)
		}
	}
	sort.Strings(snap.Highlighted)
	sort.Strings(snap.Dimmed)
	return snap
}
