package layout

import (
	"math"

	"github.com/Benny93/graphpanel/internal/geom"
	"github.com/Benny93/graphpanel/internal/graph"
)

// gridColumns picks the column count so the grid roughly matches the
// viewport aspect ratio.
func gridColumns(n int, width, height float64) int {
	if n == 0 {
		return 0
	}
	aspect := 1.0
	if width > 0 && height > 0 {
		aspect = width / height
	}
	cols := int(math.Ceil(math.Sqrt(float64(n) * aspect)))
	if cols < 1 {
		cols = 1
	}
	if cols > n {
		cols = n
	}
	return cols
}

// grid places ids row by row in a condensed grid whose top-left corner is
// the origin. Each column is as wide as its widest node and each row as
// tall as its tallest node.
func grid(ids []string, g *graph.Graph, size graph.SizeFunc, opts Options) map[string]geom.Point {
	cols := gridColumns(len(ids), opts.Width, opts.Height)
	pos := make(map[string]geom.Point, len(ids))
	if cols == 0 {
		return pos
	}
	rows := (len(ids) + cols - 1) / cols

	colW := make([]float64, cols)
	rowH := make([]float64, rows)
	for i, id := range ids {
		w, h := size(g.Node(id))
		r, c := i/cols, i%cols
		colW[c] = math.Max(colW[c], w)
		rowH[r] = math.Max(rowH[r], h)
	}

	colX := make([]float64, cols)
	x := 0.0
	for c := range colW {
		colX[c] = x + colW[c]/2
		x += colW[c] + opts.GridGap
	}
	rowY := make([]float64, rows)
	y := 0.0
	for r := range rowH {
		rowY[r] = y + rowH[r]/2
		y += rowH[r] + opts.GridGap
	}

	for i, id := range ids {
		pos[id] = geom.Point{X: colX[i%cols], Y: rowY[i/cols]}
	}
	return pos
}
