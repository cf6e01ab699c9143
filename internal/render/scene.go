package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/draw"

	"github.com/Benny93/graphpanel/internal/geom"
	"github.com/Benny93/graphpanel/internal/graph"
)

// Edge styling in graph units.
const (
	edgeWidth     = 3.0
	dashLength    = 6.0
	dashGap       = 4.0
	arrowLength   = 9.0
	arrowHalf     = 4.5
	highlightBord = 2.0
	edgeDimAlpha  = 0.2
	labelBgAlpha  = 0.8
	edgeLabelSize = 12.0
)

// Theme holds the editor-dependent colors of the base scene.
type Theme struct {
	Foreground color.NRGBA
	Background color.NRGBA
}

// DefaultTheme is a light editor theme.
func DefaultTheme() Theme {
	return Theme{
		Foreground: color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 0xFF},
		Background: color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF},
	}
}

var (
	bodyPrimary   = color.NRGBA{R: 0x66, G: 0x66, B: 0x66, A: 0xFF}
	bodySecondary = color.NRGBA{R: 0xAA, G: 0xAA, B: 0xAA, A: 0xFF}
	edgeColor     = color.NRGBA{R: 0xCC, G: 0xCC, B: 0xCC, A: 0xFF}
	white         = color.NRGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// SceneBounds returns the graph-space box covering every node and its label.
func SceneBounds(g *graph.Graph, fonts *Fonts) geom.Rect {
	return g.BoundingBox(nil, fonts.NodeSize)
}

// RenderScene rasterizes edges, node bodies and labels at the given scale
// over the scene bounding box. It returns the image and the box it covers.
// An empty graph yields a 1×1 transparent image.
func RenderScene(g *graph.Graph, scale float64, fonts *Fonts, theme Theme) (*image.RGBA, geom.Rect) {
	if scale <= 0 {
		scale = 1
	}
	box := SceneBounds(g, fonts)
	if box.Empty() {
		return image.NewRGBA(image.Rect(0, 0, 1, 1)), box
	}

	w := int(math.Ceil(box.Width() * scale))
	h := int(math.Ceil(box.Height() * scale))
	img := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	cam := sceneCamera(box, scale)

	DrawScene(img, g, cam, fonts, theme)
	return img, box
}

// sceneCamera maps the top-left of box to the image origin.
func sceneCamera(box geom.Rect, scale float64) geom.Camera {
	return geom.Camera{Pan: geom.Point{X: -box.X1, Y: -box.Y1}, Zoom: 1, PixelRatio: scale}
}

// DrawScene draws the base scene onto dst with the camera transform.
func DrawScene(dst draw.Image, g *graph.Graph, cam geom.Camera, fonts *Fonts, theme Theme) {
	p := newPen(dst)
	scale := cam.Scale()

	for _, e := range g.Edges() {
		drawEdge(p, g, e, cam, fonts, theme)
	}

	for _, n := range g.Nodes() {
		alpha := 1.0
		if n.HasClass(graph.ClassSemiTransparent) {
			alpha = dimmedAlpha
		}
		body := bodySecondary
		if n.IsPrimary {
			body = bodyPrimary
		}
		c := cam.ToScreen(n.Position)
		p.disc(c, NodeRadius*scale, withAlpha(body, alpha))
		if n.HasClass(graph.ClassHighlight) {
			p.ring(c, NodeRadius*scale+highlightBord*scale/2, highlightBord*scale, withAlpha(white, alpha))
		}
		drawNodeLabel(p, n, c, scale, alpha, fonts, theme)
	}
}

func drawEdge(p *pen, g *graph.Graph, e *graph.Edge, cam geom.Camera, fonts *Fonts, theme Theme) {
	src, tgt := g.Node(e.Source), g.Node(e.Target)
	if src == nil || tgt == nil || e.Source == e.Target {
		return
	}
	scale := cam.Scale()
	alpha := 1.0
	if e.HasClass(graph.ClassSemiTransparent) {
		alpha = edgeDimAlpha
	}
	col := withAlpha(edgeColor, alpha)

	pts := make([]geom.Point, 0, len(e.Route)+2)
	pts = append(pts, cam.ToScreen(src.Position))
	for _, r := range e.Route {
		pts = append(pts, cam.ToScreen(r))
	}
	pts = append(pts, cam.ToScreen(tgt.Position))

	for i := 1; i < len(pts); i++ {
		if e.IsPrimary {
			p.line(pts[i-1], pts[i], edgeWidth*scale, col)
		} else {
			p.dashed(pts[i-1], pts[i], edgeWidth*scale, dashLength*scale, dashGap*scale, col)
		}
	}

	mid, dir := midpoint(pts)
	arrow := edgeColor
	if e.HasClass(graph.ClassHighlight) {
		arrow = white
	}
	if dir != (geom.Point{}) {
		tip := mid.Add(dir.Scale(arrowLength * scale / 2))
		base := mid.Sub(dir.Scale(arrowLength * scale / 2))
		n := geom.Point{X: -dir.Y, Y: dir.X}.Scale(arrowHalf * scale)
		p.polygon(withAlpha(arrow, alpha), tip, base.Add(n), base.Sub(n))
	}

	if e.Label != "" && fonts != nil {
		drawLabelBox(p, fonts, e.Label, edgeLabelSize*scale, mid, alpha, theme)
	}
}

// midpoint returns the point halfway along a polyline and the unit
// direction of the segment it falls on.
func midpoint(pts []geom.Point) (geom.Point, geom.Point) {
	total := 0.0
	for i := 1; i < len(pts); i++ {
		total += pts[i].Sub(pts[i-1]).Len()
	}
	if total == 0 {
		return pts[0], geom.Point{}
	}
	half := total / 2
	for i := 1; i < len(pts); i++ {
		d := pts[i].Sub(pts[i-1])
		l := d.Len()
		if l == 0 {
			continue
		}
		if half <= l {
			u := d.Scale(1 / l)
			return pts[i-1].Add(u.Scale(half)), u
		}
		half -= l
	}
	last := pts[len(pts)-1]
	return last, geom.Point{}
}

// drawNodeLabel draws the wrapped label above the node circle.
func drawNodeLabel(p *pen, n *graph.Node, c geom.Point, scale, alpha float64, fonts *Fonts, theme Theme) {
	if fonts == nil {
		return
	}
	lines := fonts.WrapLabel(n.Label)
	lineH := LabelSize * lineSpacing * scale
	top := c.Y - NodeRadius*scale - float64(len(lines))*lineH
	for i, l := range lines {
		center := geom.Point{X: c.X, Y: top + (float64(i)+0.5)*lineH}
		drawLabelBox(p, fonts, l, LabelSize*scale, center, alpha, theme)
	}
}

// drawLabelBox draws text centered on at over a translucent background.
func drawLabelBox(p *pen, fonts *Fonts, text string, size float64, at geom.Point, alpha float64, theme Theme) {
	w, h := fonts.Measure(text, size)
	p.rect(geom.RectAround(at, w, h), withAlpha(theme.Background, labelBgAlpha*alpha))
	fonts.drawText(p.dst, text, size, at, withAlpha(theme.Foreground, alpha), true)
}

// ExportImage renders the scene and the overlay at pixelRatio and
// composites them into one PNG. The overlay is drawn on an offscreen
// canvas of the same size whose camera is translated to the scene box.
func ExportImage(g *graph.Graph, pixelRatio float64, fonts *Fonts, theme Theme) ([]byte, error) {
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	base, box := RenderScene(g, pixelRatio, fonts, theme)
	if !box.Empty() {
		overlay := image.NewRGBA(base.Bounds())
		DrawOverlay(overlay, g.Nodes(), sceneCamera(box, pixelRatio), fonts)
		Composite(base, overlay)
	}
	return EncodePNG(base)
}

// Composite draws top over dst, aligned at the origin.
func Composite(dst draw.Image, top image.Image) {
	draw.Draw(dst, dst.Bounds(), top, top.Bounds().Min, draw.Over)
}

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}
