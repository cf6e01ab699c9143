// Package surface implements the sandboxed rendering surface.
//
// A Surface owns the graph, camera, overlay layer and interaction state of
// one panel. Everything it owns is touched only from its event loop:
// host messages, pointer events and timer callbacks are all queued onto
// that loop, so handlers never race each other.
package surface

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Benny93/graphpanel/internal/geom"
	"github.com/Benny93/graphpanel/internal/graph"
	"github.com/Benny93/graphpanel/internal/interact"
	"github.com/Benny93/graphpanel/internal/layout"
	"github.com/Benny93/graphpanel/internal/protocol"
	"github.com/Benny93/graphpanel/internal/render"
)

// Defaults for Options.
const (
	DefaultWidth          = 800
	DefaultHeight         = 600
	DefaultResizeDebounce = 10 * time.Millisecond

	// wheelStep is the wheel delta that zooms by one decade at sensitivity 1.
	wheelStep = 250.0

	eventBuffer = 64
)

// Options configures a Surface.
type Options struct {
	// Width and Height are the viewport size in CSS pixels.
	Width, Height int

	// PixelRatio is the device pixel ratio of the overlay and the default
	// export scale.
	PixelRatio float64

	DoubleTapWindow time.Duration
	TooltipHold     time.Duration
	ResizeDebounce  time.Duration

	Clock  interact.Clock
	Fonts  *render.Fonts
	Theme  render.Theme
	Logger *slog.Logger
}

func (o *Options) defaults() error {
	if o.Width <= 0 {
		o.Width = DefaultWidth
	}
	if o.Height <= 0 {
		o.Height = DefaultHeight
	}
	if o.PixelRatio <= 0 {
		o.PixelRatio = 1
	}
	if o.DoubleTapWindow <= 0 {
		o.DoubleTapWindow = interact.DefaultDoubleTapWindow
	}
	if o.TooltipHold <= 0 {
		o.TooltipHold = interact.DefaultTooltipHold
	}
	if o.ResizeDebounce <= 0 {
		o.ResizeDebounce = DefaultResizeDebounce
	}
	if o.Clock == nil {
		o.Clock = interact.RealClock{}
	}
	if o.Theme == (render.Theme{}) {
		o.Theme = render.DefaultTheme()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Fonts == nil {
		f, err := render.NewFonts()
		if err != nil {
			return err
		}
		o.Fonts = f
	}
	return nil
}

// Surface is one rendering surface connected to a host.
type Surface struct {
	ID   string
	ep   *protocol.SurfaceEndpoint
	opts Options
	log  *slog.Logger

	events    chan func()
	done      chan struct{}
	closeOnce sync.Once
	runCtx    context.Context

	tips   *interact.Tooltips
	taps   *interact.DoubleTap
	resize *interact.Debouncer

	// Owned by the event loop.
	g        *graph.Graph
	cam      geom.Camera
	settings graph.Settings
	layer    *render.Layer
	width    int
	height   int
	hovered  string
}

// New creates a surface speaking over t. Call Run to start it.
func New(t protocol.Transport, opts Options) (*Surface, error) {
	if err := opts.defaults(); err != nil {
		return nil, fmt.Errorf("configuring surface: %w", err)
	}
	id := uuid.New().String()
	s := &Surface{
		ID:       id,
		ep:       protocol.NewSurfaceEndpoint(t),
		opts:     opts,
		log:      opts.Logger.With("surface", id),
		events:   make(chan func(), eventBuffer),
		done:     make(chan struct{}),
		runCtx:   context.Background(),
		cam:      geom.Identity().WithPixelRatio(opts.PixelRatio),
		settings: graph.DefaultSettings(),
		width:    opts.Width,
		height:   opts.Height,
	}
	s.layer = render.NewLayer(s.devicePx(opts.Width), s.devicePx(opts.Height), opts.Fonts)

	clock := loopClock{inner: opts.Clock, s: s}
	s.tips = interact.NewTooltips(opts.TooltipHold, clock, nil)
	s.taps = interact.NewDoubleTap(opts.DoubleTapWindow, clock, s.onDoubleTap)
	s.resize = interact.NewDebouncer(opts.ResizeDebounce, clock)
	return s, nil
}

func (s *Surface) devicePx(v int) int {
	return int(math.Ceil(float64(v) * s.opts.PixelRatio))
}

// loopClock delivers timer callbacks onto the surface's event loop.
type loopClock struct {
	inner interact.Clock
	s     *Surface
}

func (c loopClock) Now() time.Time { return c.inner.Now() }

func (c loopClock) AfterFunc(d time.Duration, f func()) interact.Timer {
	return c.inner.AfterFunc(d, func() { c.s.post(f) })
}

// post queues f on the event loop. It is dropped once the surface closed.
func (s *Surface) post(f func()) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.events <- f:
	case <-s.done:
	}
}

// Run posts the readiness signal and processes host messages and local
// events until ctx is cancelled, Close is called or the host goes away.
func (s *Surface) Run(ctx context.Context) error {
	defer s.Close()
	s.runCtx = ctx

	if err := s.ep.Send(ctx, protocol.Ready{}); err != nil {
		return fmt.Errorf("posting ready: %w", err)
	}
	s.log.Debug("surface ready", "width", s.width, "height", s.height)

	recvErr := make(chan error, 1)
	go s.receive(ctx, recvErr)

	for {
		select {
		case f := <-s.events:
			f()
		case err := <-recvErr:
			if errors.Is(err, protocol.ErrClosed) {
				return nil
			}
			return err
		case <-s.done:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Surface) receive(ctx context.Context, errc chan<- error) {
	for {
		m, err := s.ep.Receive(ctx)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownCommand) || errors.Is(err, protocol.ErrMalformed) {
				s.log.Warn("ignoring host message", "error", err)
				continue
			}
			errc <- err
			return
		}
		s.post(func() { s.handle(m) })
	}
}

// Close stops the loop and cancels every pending timer. It is safe to call
// more than once.
func (s *Surface) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.tips.Close()
		s.taps.Close()
		s.resize.Stop()
		err = s.ep.Close()
	})
	return err
}

// Done is closed when the surface has been closed.
func (s *Surface) Done() <-chan struct{} {
	return s.done
}

func (s *Surface) send(m protocol.SurfaceMessage) {
	if err := s.ep.Send(s.runCtx, m); err != nil {
		s.log.Warn("sending to host failed", "command", m.Command(), "error", err)
	}
}

func (s *Surface) handle(m protocol.HostMessage) {
	switch m := m.(type) {
	case protocol.Go:
		s.showNodes(m.Data, m.Settings)
	case protocol.ImportJSON:
		s.importSnapshot(m.JSON, m.Settings)
	case protocol.ExportImage:
		s.exportImage(m.PixelRatio)
	case protocol.ExportJSON:
		s.exportJSON()
	case protocol.CheckRendered:
		s.send(protocol.RenderedResult{Rendered: s.g != nil && s.g.NodeCount() > 0})
	default:
		s.log.Warn("unhandled host message", "command", m.Command())
	}
}

func (s *Surface) resetInteraction() {
	for _, id := range s.tips.Visible() {
		s.tips.Dismiss(id)
	}
	s.hovered = ""
}

func (s *Surface) useSettings(settings graph.Settings) {
	if settings.WheelSensitivity <= 0 {
		settings.WheelSensitivity = graph.DefaultSettings().WheelSensitivity
	}
	s.settings = settings
}

func (s *Surface) layoutOptions() layout.Options {
	opts := layout.DefaultOptions(float64(s.width), float64(s.height))
	opts.Size = s.opts.Fonts.NodeSize
	return opts
}

func (s *Surface) showNodes(data []graph.InputNode, settings graph.Settings) {
	s.resetInteraction()
	s.useSettings(settings)

	g := graph.Build(data)
	res := layout.Run(g, s.layoutOptions())
	s.g = g
	s.cam = res.Camera.WithPixelRatio(s.opts.PixelRatio)
	s.log.Info("graph shown",
		"nodes", g.NodeCount(), "edges", g.EdgeCount(),
		"components", len(res.Partition.Multi), "singles", len(res.Partition.Singles))
	s.frame()
}

func (s *Surface) importSnapshot(data string, settings graph.Settings) {
	g, cam, err := graph.ImportJSON(data)
	if err != nil {
		s.log.Warn("import failed", "error", err)
		return
	}
	s.resetInteraction()
	s.useSettings(settings)
	s.g = g
	s.cam = cam.WithPixelRatio(s.opts.PixelRatio)
	s.log.Info("snapshot imported", "nodes", g.NodeCount(), "edges", g.EdgeCount())
	s.frame()
}

func (s *Surface) current() *graph.Graph {
	if s.g == nil {
		return graph.New()
	}
	return s.g
}

func (s *Surface) exportImage(ratio float64) {
	if ratio <= 0 {
		ratio = s.opts.PixelRatio
	}
	png, err := render.ExportImage(s.current(), ratio, s.opts.Fonts, s.opts.Theme)
	if err != nil {
		s.log.Error("image export failed", "error", err)
		return
	}
	s.send(protocol.NewSaveImage(png))
}

func (s *Surface) exportJSON() {
	cam := s.cam
	cam.PixelRatio = 1
	data, err := graph.ExportJSON(s.current(), cam)
	if err != nil {
		s.log.Error("json export failed", "error", err)
		return
	}
	s.send(protocol.SaveJSON{JSON: data})
}

// frame redraws the overlay with the current camera.
func (s *Surface) frame() {
	s.layer.Frame(s.current().Nodes(), s.cam)
}
