package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRect(t *testing.T) {
	t.Parallel()

	t.Run("UnionWithEmpty", func(t *testing.T) {
		t.Parallel()
		r := Rect{X1: 0, Y1: 0, X2: 10, Y2: 5}

		assert.Equal(t, r, EmptyRect().Union(r))
		assert.Equal(t, r, r.Union(EmptyRect()))
		assert.True(t, EmptyRect().Empty())
	})

	t.Run("UnionGrows", func(t *testing.T) {
		t.Parallel()
		a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}
		b := Rect{X1: -5, Y1: 5, X2: 3, Y2: 20}

		u := a.Union(b)

		assert.Equal(t, Rect{X1: -5, Y1: 0, X2: 10, Y2: 20}, u)
		assert.Equal(t, 15.0, u.Width())
		assert.Equal(t, 20.0, u.Height())
	})

	t.Run("Intersects", func(t *testing.T) {
		t.Parallel()
		a := Rect{X1: 0, Y1: 0, X2: 10, Y2: 10}

		assert.True(t, a.Intersects(Rect{X1: 5, Y1: 5, X2: 15, Y2: 15}))
		assert.False(t, a.Intersects(Rect{X1: 10, Y1: 0, X2: 20, Y2: 10}))
		assert.False(t, a.Intersects(EmptyRect()))
	})
}

func TestCamera_ToScreen(t *testing.T) {
	t.Parallel()

	cam := Camera{Pan: Point{X: 10, Y: 20}, Zoom: 2, PixelRatio: 2}

	p := cam.ToScreen(Point{X: 5, Y: 5})

	// (5*2 + 10) * 2, (5*2 + 20) * 2
	assert.Equal(t, Point{X: 40, Y: 60}, p)
	assert.Equal(t, 4.0, cam.Scale())
	assert.InDelta(t, 5.0, cam.FromScreen(p).X, 1e-9)
	assert.InDelta(t, 5.0, cam.FromScreen(p).Y, 1e-9)
}

func TestFit(t *testing.T) {
	t.Parallel()

	t.Run("CentersBounds", func(t *testing.T) {
		t.Parallel()
		bounds := Rect{X1: 0, Y1: 0, X2: 100, Y2: 50}

		cam := Fit(bounds, 220, 220, 10, MinZoom, MaxZoom)

		assert.InDelta(t, 2.0, cam.Zoom, 1e-9)
		center := cam.ToScreen(bounds.Center())
		assert.InDelta(t, 110, center.X, 1e-9)
		assert.InDelta(t, 110, center.Y, 1e-9)
	})

	t.Run("ClampsZoom", func(t *testing.T) {
		t.Parallel()
		cam := Fit(Rect{X1: 0, Y1: 0, X2: 1, Y2: 1}, 1000, 1000, 0, MinZoom, MaxZoom)

		assert.Equal(t, MaxZoom, cam.Zoom)
	})

	t.Run("EmptyBounds", func(t *testing.T) {
		t.Parallel()
		cam := Fit(EmptyRect(), 200, 100, 10, MinZoom, MaxZoom)

		assert.Equal(t, 1.0, cam.Zoom)
		assert.Equal(t, Point{X: 100, Y: 50}, cam.Pan)
	})
}

func TestZoomAt(t *testing.T) {
	t.Parallel()

	cam := Camera{Pan: Point{X: 0, Y: 0}, Zoom: 1, PixelRatio: 1}
	at := Point{X: 50, Y: 50}
	before := cam.FromScreen(at)

	zoomed := ZoomAt(cam, 2, at, MinZoom, MaxZoom)

	assert.Equal(t, 2.0, zoomed.Zoom)
	after := zoomed.FromScreen(at)
	assert.InDelta(t, before.X, after.X, 1e-9)
	assert.InDelta(t, before.Y, after.Y, 1e-9)

	assert.Equal(t, MinZoom, ZoomAt(cam, 0.0001, at, MinZoom, MaxZoom).Zoom)
}
