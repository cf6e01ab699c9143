package render

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/vector"

	"github.com/Benny93/graphpanel/internal/geom"
)

// kappa places cubic control points for a quarter circle.
const kappa = 0.5522847498

// pen fills paths onto a destination through an anti-aliasing rasterizer.
type pen struct {
	dst draw.Image
	z   *vector.Rasterizer
}

func newPen(dst draw.Image) *pen {
	b := dst.Bounds()
	return &pen{dst: dst, z: vector.NewRasterizer(b.Dx(), b.Dy())}
}

// fill rasterizes the path built by build and composites c over dst.
func (p *pen) fill(c color.Color, build func(z *vector.Rasterizer)) {
	b := p.dst.Bounds()
	p.z.Reset(b.Dx(), b.Dy())
	p.z.DrawOp = draw.Over
	build(p.z)
	p.z.Draw(p.dst, b, image.NewUniform(c), image.Point{})
}

// circle adds a closed circle subpath. The winding direction matters when
// several subpaths are filled together.
func circle(z *vector.Rasterizer, c geom.Point, r float64, reverse bool) {
	cx, cy, rr := float32(c.X), float32(c.Y), float32(r)
	k := float32(kappa) * rr
	z.MoveTo(cx+rr, cy)
	if !reverse {
		z.CubeTo(cx+rr, cy+k, cx+k, cy+rr, cx, cy+rr)
		z.CubeTo(cx-k, cy+rr, cx-rr, cy+k, cx-rr, cy)
		z.CubeTo(cx-rr, cy-k, cx-k, cy-rr, cx, cy-rr)
		z.CubeTo(cx+k, cy-rr, cx+rr, cy-k, cx+rr, cy)
	} else {
		z.CubeTo(cx+rr, cy-k, cx+k, cy-rr, cx, cy-rr)
		z.CubeTo(cx-k, cy-rr, cx-rr, cy-k, cx-rr, cy)
		z.CubeTo(cx-rr, cy+k, cx-k, cy+rr, cx, cy+rr)
		z.CubeTo(cx+k, cy+rr, cx+rr, cy+k, cx+rr, cy)
	}
	z.ClosePath()
}

func (p *pen) disc(c geom.Point, r float64, col color.Color) {
	p.fill(col, func(z *vector.Rasterizer) { circle(z, c, r, false) })
}

// ring strokes a circle of radius r with the given line width. The inner
// subpath winds the other way so the rasterizer leaves the hole empty.
func (p *pen) ring(c geom.Point, r, width float64, col color.Color) {
	outer, inner := r+width/2, math.Max(0, r-width/2)
	p.fill(col, func(z *vector.Rasterizer) {
		circle(z, c, outer, false)
		if inner > 0 {
			circle(z, c, inner, true)
		}
	})
}

// line strokes a straight segment as a quad.
func (p *pen) line(a, b geom.Point, width float64, col color.Color) {
	d := b.Sub(a)
	l := d.Len()
	if l == 0 {
		return
	}
	n := geom.Point{X: -d.Y / l * width / 2, Y: d.X / l * width / 2}
	p.polygon(col, a.Add(n), b.Add(n), b.Sub(n), a.Sub(n))
}

// dashed strokes a segment as alternating dashes and gaps.
func (p *pen) dashed(a, b geom.Point, width, dash, gap float64, col color.Color) {
	d := b.Sub(a)
	l := d.Len()
	if l == 0 || dash <= 0 {
		return
	}
	u := d.Scale(1 / l)
	for s := 0.0; s < l; s += dash + gap {
		e := math.Min(s+dash, l)
		p.line(a.Add(u.Scale(s)), a.Add(u.Scale(e)), width, col)
	}
}

func (p *pen) polygon(col color.Color, pts ...geom.Point) {
	if len(pts) < 3 {
		return
	}
	p.fill(col, func(z *vector.Rasterizer) {
		z.MoveTo(float32(pts[0].X), float32(pts[0].Y))
		for _, q := range pts[1:] {
			z.LineTo(float32(q.X), float32(q.Y))
		}
		z.ClosePath()
	})
}

// rect fills an axis-aligned rectangle.
func (p *pen) rect(r geom.Rect, col color.Color) {
	p.polygon(col,
		geom.Point{X: r.X1, Y: r.Y1}, geom.Point{X: r.X2, Y: r.Y1},
		geom.Point{X: r.X2, Y: r.Y2}, geom.Point{X: r.X1, Y: r.Y2})
}

// withAlpha scales the alpha of c by a in [0,1].
func withAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * a))
	return c
}
