package geom

import "math"

// Default zoom bounds applied to interactive camera changes.
const (
	MinZoom = 0.1
	MaxZoom = 5.0
)

// Camera is the pan/zoom transform of a viewport. It is recomputed once per
// frame and handed to pure draw functions.
//
// A graph point p lands on device pixel (p*Zoom + Pan) * PixelRatio.
type Camera struct {
	Pan        Point   `json:"pan"`
	Zoom       float64 `json:"zoom"`
	PixelRatio float64 `json:"pixelRatio"`
}

// Identity returns a camera with no pan, zoom 1 and pixel ratio 1.
func Identity() Camera {
	return Camera{Zoom: 1, PixelRatio: 1}
}

// Scale is the combined graph-unit to device-pixel factor.
func (c Camera) Scale() float64 {
	return c.Zoom * c.ratio()
}

// ToScreen maps a graph point to device pixels.
func (c Camera) ToScreen(p Point) Point {
	r := c.ratio()
	return Point{
		X: (p.X*c.Zoom + c.Pan.X) * r,
		Y: (p.Y*c.Zoom + c.Pan.Y) * r,
	}
}

// FromScreen maps device pixels back to graph coordinates.
func (c Camera) FromScreen(p Point) Point {
	r := c.ratio()
	z := c.Zoom
	if z == 0 {
		z = 1
	}
	return Point{
		X: (p.X/r - c.Pan.X) / z,
		Y: (p.Y/r - c.Pan.Y) / z,
	}
}

// WithPixelRatio returns a copy using the given device pixel ratio.
func (c Camera) WithPixelRatio(r float64) Camera {
	c.PixelRatio = r
	return c
}

func (c Camera) ratio() float64 {
	if c.PixelRatio <= 0 {
		return 1
	}
	return c.PixelRatio
}

// Fit returns a camera that centers bounds inside a w×h viewport (in CSS
// pixels) leaving padding on every side. The zoom is clamped to
// [minZoom, maxZoom]. An empty bounds centers the origin at zoom 1.
func Fit(bounds Rect, w, h, padding, minZoom, maxZoom float64) Camera {
	cam := Camera{Zoom: 1, PixelRatio: 1}
	if bounds.Empty() {
		cam.Pan = Point{X: w / 2, Y: h / 2}
		return cam
	}

	bw, bh := bounds.Width(), bounds.Height()
	availW, availH := w-2*padding, h-2*padding
	zoom := 1.0
	switch {
	case bw > 0 && bh > 0:
		zoom = math.Min(availW/bw, availH/bh)
	case bw > 0:
		zoom = availW / bw
	case bh > 0:
		zoom = availH / bh
	}
	zoom = clamp(zoom, minZoom, maxZoom)

	c := bounds.Center()
	cam.Zoom = zoom
	cam.Pan = Point{X: w/2 - c.X*zoom, Y: h/2 - c.Y*zoom}
	return cam
}

// ZoomAt multiplies the zoom by factor while keeping the graph point under
// the CSS-pixel position at fixed. The result is clamped to [minZoom, maxZoom].
func ZoomAt(c Camera, factor float64, at Point, minZoom, maxZoom float64) Camera {
	if factor <= 0 {
		return c
	}
	z := c.Zoom
	if z == 0 {
		z = 1
	}
	newZoom := clamp(z*factor, minZoom, maxZoom)
	model := Point{X: (at.X - c.Pan.X) / z, Y: (at.Y - c.Pan.Y) / z}
	c.Zoom = newZoom
	c.Pan = Point{X: at.X - model.X*newZoom, Y: at.Y - model.Y*newZoom}
	return c
}

// Center keeps the zoom and pans so that bounds is centered in w×h.
func Center(c Camera, bounds Rect, w, h float64) Camera {
	if bounds.Empty() {
		return c
	}
	mid := bounds.Center()
	c.Pan = Point{X: w/2 - mid.X*c.Zoom, Y: h/2 - mid.Y*c.Zoom}
	return c
}

func clamp(v, lo, hi float64) float64 {
	if lo > 0 && v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}
