// Package render rasterizes panel graphs.
//
// It draws the base scene (edges, node bodies, labels), the abbreviation
// overlay kept in sync with the camera, and the composited PNG export.
// Drawing functions are pure: they take a destination image, the nodes to
// draw and a geom.Camera, and touch nothing else.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"
	"sync"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/Benny93/graphpanel/internal/geom"
	"github.com/Benny93/graphpanel/internal/graph"
)

// Label metrics in graph units.
const (
	LabelSize     = 16.0
	LabelMaxWidth = 200.0
	lineSpacing   = 1.2
)

// Fonts caches Go Regular faces per pixel size. Faces are not safe for
// concurrent use, so every access goes through the mutex.
type Fonts struct {
	mu    sync.Mutex
	font  *opentype.Font
	faces map[float64]font.Face
}

// NewFonts parses the embedded Go Regular font.
func NewFonts() (*Fonts, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parsing font: %w", err)
	}
	return &Fonts{font: f, faces: make(map[float64]font.Face)}, nil
}

// face returns the face for size px. Caller holds f.mu.
func (f *Fonts) face(size float64) (font.Face, error) {
	// Quarter pixel buckets keep the cache small under smooth zooming.
	key := math.Round(size*4) / 4
	if key <= 0 {
		key = 0.25
	}
	if face, ok := f.faces[key]; ok {
		return face, nil
	}
	face, err := opentype.NewFace(f.font, &opentype.FaceOptions{
		Size:    key,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("creating %.2fpx face: %w", key, err)
	}
	f.faces[key] = face
	return face, nil
}

// Measure returns the advance width and line height of text at size px.
func (f *Fonts) Measure(text string, size float64) (w, h float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	face, err := f.face(size)
	if err != nil {
		return 0, size * lineSpacing
	}
	return fromFixed(font.MeasureString(face, text)), size * lineSpacing
}

// WrapLabel splits a label into lines no wider than LabelMaxWidth at
// LabelSize. Words longer than a line are kept whole.
func (f *Fonts) WrapLabel(label string) []string {
	words := strings.Fields(label)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		next := cur + " " + w
		if width, _ := f.Measure(next, LabelSize); width > LabelMaxWidth {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur = next
	}
	return append(lines, cur)
}

// NodeSize is a graph.SizeFunc using real font metrics. The box is centered
// on the node and reserves the label height both above and below the
// circle.
func (f *Fonts) NodeSize(n *graph.Node) (w, h float64) {
	w = 2 * NodeRadius
	lines := f.WrapLabel(n.Label)
	for _, l := range lines {
		lw, _ := f.Measure(l, LabelSize)
		w = math.Max(w, lw)
	}
	labelH := float64(len(lines)) * LabelSize * lineSpacing
	return w, 2*NodeRadius + 2*labelH
}

// drawText draws text centered horizontally on at. With middle set the text
// is centered vertically as well, otherwise at.Y is the baseline.
func (f *Fonts) drawText(dst draw.Image, text string, size float64, at geom.Point, c color.Color, middle bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	face, err := f.face(size)
	if err != nil {
		return
	}
	width := fromFixed(font.MeasureString(face, text))
	y := at.Y
	if middle {
		m := face.Metrics()
		y += (fromFixed(m.Ascent) - fromFixed(m.Descent)) / 2
	}
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(at.X - width/2), Y: toFixed(y)},
	}
	d.DrawString(text)
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}
