package render

import (
	"image"
	"image/color"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/image/draw"

	"github.com/Benny93/graphpanel/internal/geom"
	"github.com/Benny93/graphpanel/internal/graph"
)

// Overlay geometry in graph units.
const (
	NodeRadius    = 15.0
	DeadEndRadius = 13.0
	AbbrevSize    = 16.0
	outlineWidth  = 1.0
	dimmedAlpha   = 0.5
)

var (
	overlayPrimary   = color.NRGBA{R: 0xEE, G: 0xEE, B: 0xEE, A: 0xFF}
	overlaySecondary = color.NRGBA{R: 0x44, G: 0x44, B: 0x44, A: 0xFF}
	black            = color.NRGBA{A: 0xFF}
)

// Abbreviate returns the text drawn inside a node: the explicit
// abbreviation if set, else the upper-cased first letter of each
// underscore separated word of the entity type.
func Abbreviate(n *graph.Node) string {
	if n.Abbreviation != "" {
		return n.Abbreviation
	}
	return AbbreviateType(n.EntityType)
}

// AbbreviateType abbreviates an entity type such as "country_event" to "CE".
func AbbreviateType(entityType string) string {
	var b strings.Builder
	for _, word := range strings.Split(entityType, "_") {
		r, _ := utf8.DecodeRuneInString(word)
		if r == utf8.RuneError {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// DrawOverlay draws the abbreviation discs of nodes onto dst using the
// camera transform. It does not clear dst.
func DrawOverlay(dst draw.Image, nodes []*graph.Node, cam geom.Camera, fonts *Fonts) {
	p := newPen(dst)
	scale := cam.Scale()
	for _, n := range nodes {
		alpha := 1.0
		if n.HasClass(graph.ClassSemiTransparent) {
			alpha = dimmedAlpha
		}
		fill := overlaySecondary
		if n.IsPrimary {
			fill = overlayPrimary
		}

		c := cam.ToScreen(n.Position)
		p.disc(c, NodeRadius*scale, withAlpha(fill, alpha))
		p.ring(c, NodeRadius*scale, outlineWidth*scale, withAlpha(black, alpha))
		if n.DeadEnd {
			p.ring(c, DeadEndRadius*scale, outlineWidth*scale, withAlpha(black, alpha))
		}
		if fonts != nil {
			fonts.drawText(dst, Abbreviate(n), AbbrevSize*scale, c, withAlpha(black, alpha), true)
		}
	}
}

// Layer is the overlay canvas stacked on top of the scene. It is redrawn
// from scratch for every frame since any camera change moves every pixel.
type Layer struct {
	img    *image.RGBA
	fonts  *Fonts
	frames int
}

// NewLayer creates a layer of w×h device pixels.
func NewLayer(w, h int, fonts *Fonts) *Layer {
	return &Layer{img: image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0))), fonts: fonts}
}

// Resize reallocates the buffer when the device size changed.
func (l *Layer) Resize(w, h int) {
	if l.img.Bounds().Dx() == w && l.img.Bounds().Dy() == h {
		return
	}
	l.img = image.NewRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))
}

// Frame clears the layer and draws nodes with the camera's current transform.
func (l *Layer) Frame(nodes []*graph.Node, cam geom.Camera) {
	draw.Draw(l.img, l.img.Bounds(), image.Transparent, image.Point{}, draw.Src)
	DrawOverlay(l.img, nodes, cam, l.fonts)
	l.frames++
}

// Image returns the current layer contents.
func (l *Layer) Image() *image.RGBA {
	return l.img
}

// Frames counts completed frames.
func (l *Layer) Frames() int {
	return l.frames
}
