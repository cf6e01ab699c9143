package layout

import (
	"math"
	"sort"

	"github.com/Benny93/graphpanel/internal/geom"
	"github.com/Benny93/graphpanel/internal/graph"
)

// orderSweeps is the number of down+up barycenter passes.
const orderSweeps = 4

// vertex is a real node or a dummy on a long edge.
type vertex struct {
	id    string // empty for dummies
	w, h  float64
	layer int
	x     float64
	up    []int // neighbors in layer-1
	down  []int // neighbors in layer+1
}

// dagEdge is an edge of the acyclic working graph.
type dagEdge struct {
	edge     *graph.Edge
	from, to int
	reversed bool
}

// layered lays out one connected component top to bottom. It returns node
// centers in component-local coordinates and bend points per edge ID.
//
// The phases follow the Sugiyama scheme: break cycles, assign layers by
// longest path, split long edges with dummies, order layers by barycenter
// and assign coordinates respecting node boxes.
func layered(comp Component, edges []*graph.Edge, size graph.SizeFunc, g *graph.Graph, opts Options) (map[string]geom.Point, map[string][]geom.Point) {
	index := make(map[string]int, len(comp))
	verts := make([]*vertex, 0, len(comp))
	for i, id := range comp {
		index[id] = i
		w, h := size(g.Node(id))
		verts = append(verts, &vertex{id: id, w: w, h: h})
	}

	dag := breakCycles(comp, edges, index)
	assignLayers(verts, dag)
	chains := splitLongEdges(&verts, dag, opts.NodeGap/2)
	layers := orderLayers(verts)
	assignX(verts, layers, opts.NodeGap)
	ys := assignY(verts, layers, opts.LayerGap)

	pos := make(map[string]geom.Point, len(comp))
	for _, v := range verts {
		if v.id == "" {
			continue
		}
		pos[v.id] = geom.Point{X: v.x, Y: ys[v.layer]}
	}

	routes := make(map[string][]geom.Point)
	for i, de := range dag {
		chain := chains[i]
		if len(chain) == 0 {
			continue
		}
		pts := make([]geom.Point, 0, len(chain))
		for _, vi := range chain {
			pts = append(pts, geom.Point{X: verts[vi].x, Y: ys[verts[vi].layer]})
		}
		if de.reversed {
			for l, r := 0, len(pts)-1; l < r; l, r = l+1, r-1 {
				pts[l], pts[r] = pts[r], pts[l]
			}
		}
		routes[de.edge.ID] = pts
	}
	return pos, routes
}

// breakCycles reverses DFS back edges so that the working graph is acyclic.
// Self loops are left out of the working graph.
func breakCycles(comp Component, edges []*graph.Edge, index map[string]int) []dagEdge {
	out := make([][]int, len(comp))
	for i, e := range edges {
		if e.Source == e.Target {
			continue
		}
		out[index[e.Source]] = append(out[index[e.Source]], i)
	}

	const (
		white = iota
		grey
		black
	)
	color := make([]int, len(comp))
	reversed := make(map[int]bool)

	var visit func(v int)
	visit = func(v int) {
		color[v] = grey
		for _, ei := range out[v] {
			t := index[edges[ei].Target]
			switch color[t] {
			case grey:
				reversed[ei] = true
			case white:
				visit(t)
			}
		}
		color[v] = black
	}
	for v := range comp {
		if color[v] == white {
			visit(v)
		}
	}

	dag := make([]dagEdge, 0, len(edges))
	for i, e := range edges {
		if e.Source == e.Target {
			continue
		}
		from, to := index[e.Source], index[e.Target]
		if reversed[i] {
			from, to = to, from
		}
		dag = append(dag, dagEdge{edge: e, from: from, to: to, reversed: reversed[i]})
	}
	return dag
}

// assignLayers places every vertex one layer below its deepest predecessor.
func assignLayers(verts []*vertex, dag []dagEdge) {
	indeg := make([]int, len(verts))
	succ := make([][]int, len(verts))
	for _, de := range dag {
		indeg[de.to]++
		succ[de.from] = append(succ[de.from], de.to)
	}

	queue := make([]int, 0, len(verts))
	for v := range verts {
		if indeg[v] == 0 {
			queue = append(queue, v)
		}
	}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, t := range succ[v] {
			if verts[v].layer+1 > verts[t].layer {
				verts[t].layer = verts[v].layer + 1
			}
			indeg[t]--
			if indeg[t] == 0 {
				queue = append(queue, t)
			}
		}
	}
}

// splitLongEdges inserts dummy vertices so that every working edge spans
// exactly one layer. It returns the dummy chain per dag edge.
func splitLongEdges(verts *[]*vertex, dag []dagEdge, dummyWidth float64) [][]int {
	chains := make([][]int, len(dag))
	link := func(a, b int) {
		(*verts)[a].down = append((*verts)[a].down, b)
		(*verts)[b].up = append((*verts)[b].up, a)
	}

	for i, de := range dag {
		prev := de.from
		for l := (*verts)[de.from].layer + 1; l < (*verts)[de.to].layer; l++ {
			*verts = append(*verts, &vertex{w: dummyWidth, layer: l})
			d := len(*verts) - 1
			link(prev, d)
			chains[i] = append(chains[i], d)
			prev = d
		}
		link(prev, de.to)
	}
	return chains
}

// orderLayers groups vertices by layer and reduces crossings with
// barycenter sweeps. Initial order follows vertex creation order.
func orderLayers(verts []*vertex) [][]int {
	depth := 0
	for _, v := range verts {
		if v.layer > depth {
			depth = v.layer
		}
	}
	layers := make([][]int, depth+1)
	for i, v := range verts {
		layers[v.layer] = append(layers[v.layer], i)
	}

	pos := make([]float64, len(verts))
	setPos := func(layer []int) {
		for p, v := range layer {
			pos[v] = float64(p)
		}
	}
	for _, layer := range layers {
		setPos(layer)
	}

	sortBy := func(layer []int, neighbors func(v int) []int) {
		key := make(map[int]float64, len(layer))
		for _, v := range layer {
			ns := neighbors(v)
			if len(ns) == 0 {
				key[v] = pos[v]
				continue
			}
			sum := 0.0
			for _, n := range ns {
				sum += pos[n]
			}
			key[v] = sum / float64(len(ns))
		}
		sort.SliceStable(layer, func(i, j int) bool { return key[layer[i]] < key[layer[j]] })
		setPos(layer)
	}

	for s := 0; s < orderSweeps; s++ {
		for l := 1; l < len(layers); l++ {
			sortBy(layers[l], func(v int) []int { return verts[v].up })
		}
		for l := len(layers) - 2; l >= 0; l-- {
			sortBy(layers[l], func(v int) []int { return verts[v].down })
		}
	}
	return layers
}

// assignX packs each layer left to right, pulling vertices toward the mean
// of their upper neighbors, then shifts the layer to minimise the total
// displacement from those targets.
func assignX(verts []*vertex, layers [][]int, gap float64) {
	for l, layer := range layers {
		desired := make([]float64, len(layer))
		for i, v := range layer {
			ups := verts[v].up
			if l == 0 || len(ups) == 0 {
				desired[i] = math.Inf(-1)
				continue
			}
			sum := 0.0
			for _, u := range ups {
				sum += verts[u].x
			}
			desired[i] = sum / float64(len(ups))
		}

		right := math.Inf(-1)
		for i, v := range layer {
			vx := verts[v]
			minX := right + gap + vx.w/2
			if math.IsInf(right, -1) {
				minX = vx.w / 2
			}
			vx.x = math.Max(desired[i], minX)
			right = vx.x + vx.w/2
		}

		// Shift the layer as a block toward its targets.
		offset, n := 0.0, 0
		for i, v := range layer {
			if math.IsInf(desired[i], -1) {
				continue
			}
			offset += verts[v].x - desired[i]
			n++
		}
		if n > 0 {
			offset /= float64(n)
			for _, v := range layer {
				verts[v].x -= offset
			}
		}
	}
}

// assignY returns the center line of each layer.
func assignY(verts []*vertex, layers [][]int, gap float64) []float64 {
	ys := make([]float64, len(layers))
	top := 0.0
	for l, layer := range layers {
		h := 0.0
		for _, v := range layer {
			h = math.Max(h, verts[v].h)
		}
		ys[l] = top + h/2
		top += h + gap
	}
	return ys
}
