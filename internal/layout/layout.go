package layout

import (
	"github.com/Benny93/graphpanel/internal/geom"
	"github.com/Benny93/graphpanel/internal/graph"
)

// Default spacing, in graph units.
const (
	DefaultMargin       = 10.0
	DefaultLayerGap     = 50.0
	DefaultNodeGap      = 20.0
	DefaultComponentGap = 40.0
	DefaultGridGap      = 10.0
	DefaultPadding      = 30.0

	// Node circle diameter; boxes are never narrower.
	nodeDiameter = 30.0
)

// Options configures a layout pass.
type Options struct {
	// Width and Height are the viewport size in CSS pixels.
	Width, Height float64

	// Margin separates the singleton grid from the layered part.
	Margin float64

	LayerGap     float64
	NodeGap      float64
	ComponentGap float64
	GridGap      float64

	// Padding is kept free around the graph when fitting the camera.
	Padding float64

	MinZoom, MaxZoom float64

	// Size reports node box sizes including the label. Defaults to
	// DefaultSize.
	Size graph.SizeFunc
}

// DefaultOptions returns options for a viewport of the given size.
func DefaultOptions(width, height float64) Options {
	return Options{
		Width:        width,
		Height:       height,
		Margin:       DefaultMargin,
		LayerGap:     DefaultLayerGap,
		NodeGap:      DefaultNodeGap,
		ComponentGap: DefaultComponentGap,
		GridGap:      DefaultGridGap,
		Padding:      DefaultPadding,
		MinZoom:      geom.MinZoom,
		MaxZoom:      geom.MaxZoom,
		Size:         DefaultSize,
	}
}

// DefaultSize estimates a node box from its label length. Renderers with
// real font metrics supply their own SizeFunc.
func DefaultSize(n *graph.Node) (w, h float64) {
	const charW, lineH = 7.0, 16.0
	w = float64(len([]rune(n.Label))) * charW
	if w < nodeDiameter {
		w = nodeDiameter
	}
	// Label sits above the circle; reserve the same below to keep the box
	// centered on the node position.
	return w, nodeDiameter + 2*lineH
}

// Result describes a completed layout pass.
type Result struct {
	Partition Partition

	// Multi and Singles are the bounding boxes of each group; empty when
	// the group has no nodes.
	Multi   geom.Rect
	Singles geom.Rect

	Camera geom.Camera
}

// Bounds is the union of both groups.
func (r Result) Bounds() geom.Rect {
	return r.Multi.Union(r.Singles)
}

// Run lays out g in place: node positions and edge routes are overwritten.
func Run(g *graph.Graph, opts Options) Result {
	if opts.Size == nil {
		opts.Size = DefaultSize
	}
	for _, e := range g.Edges() {
		e.Route = nil
	}

	res := Result{Partition: Components(g)}
	res.Multi = layoutMulti(g, res.Partition.Multi, opts)

	singles := res.Partition.SingleIDs()
	for id, p := range grid(singles, g, opts.Size, opts) {
		g.Node(id).Position = p
	}
	res.Singles = g.BoundingBox(nonNil(singles), opts.Size)

	if !res.Multi.Empty() && !res.Singles.Empty() {
		dx := res.Multi.X1 - res.Singles.X1
		dy := res.Multi.Y2 + opts.Margin - res.Singles.Y1
		for _, id := range singles {
			n := g.Node(id)
			n.Position = n.Position.Add(geom.Point{X: dx, Y: dy})
		}
		res.Singles = res.Singles.Translate(dx, dy)
	}

	res.Camera = geom.Fit(res.Bounds(), opts.Width, opts.Height, opts.Padding, opts.MinZoom, opts.MaxZoom)
	return res
}

// layoutMulti lays out every multi component and packs them left to right
// with their tops aligned at y=0. It returns the group's bounding box.
func layoutMulti(g *graph.Graph, comps []Component, opts Options) geom.Rect {
	member := make(map[string]int)
	for i, c := range comps {
		for _, id := range c {
			member[id] = i
		}
	}
	compEdges := make([][]*graph.Edge, len(comps))
	for _, e := range g.Edges() {
		if i, ok := member[e.Source]; ok {
			compEdges[i] = append(compEdges[i], e)
		}
	}

	box := geom.EmptyRect()
	cursor := 0.0
	for i, comp := range comps {
		pos, routes := layered(comp, compEdges[i], opts.Size, g, opts)
		for id, p := range pos {
			g.Node(id).Position = p
		}
		local := g.BoundingBox(comp, opts.Size)
		dx, dy := cursor-local.X1, -local.Y1

		shift := geom.Point{X: dx, Y: dy}
		for _, id := range comp {
			n := g.Node(id)
			n.Position = n.Position.Add(shift)
		}
		for _, e := range compEdges[i] {
			pts := routes[e.ID]
			for j := range pts {
				pts[j] = pts[j].Add(shift)
			}
			e.Route = pts
		}

		placed := local.Translate(dx, dy)
		box = box.Union(placed)
		cursor = placed.X2 + opts.ComponentGap
	}
	return box
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
