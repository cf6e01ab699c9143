package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Benny93/graphpanel/internal/graph"
	"github.com/Benny93/graphpanel/internal/interact"
	"github.com/Benny93/graphpanel/internal/protocol"
)

// Options configures a Panel.
type Options struct {
	// RootPath anchors relative navigation paths.
	RootPath string

	Host Host

	// ReadyTimeout bounds how long InitialiseGraph waits for the surface.
	// Zero waits until the context is done.
	ReadyTimeout time.Duration

	Clock   interact.Clock
	Logger  *slog.Logger
	Metrics *Metrics
}

func (o *Options) defaults() {
	if o.Clock == nil {
		o.Clock = interact.RealClock{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.Host == nil {
		o.Host = logHost{log: o.Logger}
	}
}

// delivery is graph data waiting for the surface. sent receives exactly
// one result.
type delivery struct {
	msg     protocol.HostMessage
	sent    chan error
	started time.Time
}

// Panel is the host side of one rendering surface.
type Panel struct {
	ID   string
	ep   *protocol.HostEndpoint
	opts Options
	log  *slog.Logger

	// ctx is cancelled on Dispose and bounds host side effects.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	pending  *delivery
	replies  map[string][]chan error
	probes   []chan bool
	disposed bool

	done chan struct{}
	once sync.Once
}

// NewPanel starts a panel talking to a surface over t. The panel owns t and
// closes it on Dispose.
func NewPanel(t protocol.Transport, opts Options) *Panel {
	opts.defaults()
	id := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	p := &Panel{
		ID:      id,
		ep:      protocol.NewHostEndpoint(t),
		opts:    opts,
		log:     opts.Logger.With("panel", id),
		ctx:     ctx,
		cancel:  cancel,
		state:   New,
		replies: make(map[string][]chan error),
		done:    make(chan struct{}),
	}
	opts.Metrics.opened()
	go p.receive()
	return p
}

// State returns the readiness state.
func (p *Panel) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Done is closed once the panel is disposed.
func (p *Panel) Done() <-chan struct{} {
	return p.done
}

// setState must be called with mu held.
func (p *Panel) setState(to State) {
	from := p.state
	p.state = to
	p.opts.Metrics.transition(from, to)
	p.log.Debug("panel state", "from", from, "to", to)
}

// InitialiseGraph hands data to the surface. It returns once the data has
// been transmitted, which may mean waiting for the surface to become ready.
//
// A panel that already shows a graph ignores the call. A second call while
// the first is still waiting replaces the pending data; the first call then
// returns ErrSuperseded. When ctx ends or ReadyTimeout passes first, the
// delivery is withdrawn and the panel is back in New.
func (p *Panel) InitialiseGraph(ctx context.Context, data GraphData, settings graph.Settings) error {
	msg := data.message(settings)

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	switch p.state {
	case Done:
		p.mu.Unlock()
		p.log.Debug("graph already delivered, ignoring", "command", msg.Command())
		return nil
	case ClientReady:
		p.setState(Done)
		p.mu.Unlock()
		start := time.Now()
		err := p.send(ctx, msg)
		if err != nil {
			p.undeliver(err)
		}
		p.opts.Metrics.delivered(result(err), time.Since(start).Seconds())
		return err
	}

	if prev := p.pending; prev != nil {
		prev.sent <- ErrSuperseded
	}
	d := &delivery{msg: msg, sent: make(chan error, 1), started: time.Now()}
	p.pending = d
	p.setState(DataReady)
	p.mu.Unlock()

	var expired chan struct{}
	if p.opts.ReadyTimeout > 0 {
		expired = make(chan struct{})
		t := p.opts.Clock.AfterFunc(p.opts.ReadyTimeout, func() { close(expired) })
		defer t.Stop()
	}

	select {
	case err := <-d.sent:
		p.opts.Metrics.delivered(result(err), time.Since(d.started).Seconds())
		return err
	case <-expired:
		return p.withdraw(d, ErrReadyTimeout)
	case <-ctx.Done():
		return p.withdraw(d, ctx.Err())
	}
}

// undeliver reverts Done after a failed send so the graph can be handed
// over again. The surface is known to be ready at this point.
func (p *Panel) undeliver(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.disposed || p.state != Done {
		return
	}
	p.setState(ClientReady)
	p.log.Warn("graph delivery failed", "error", err)
}

// withdraw takes d back unless the loop already claimed it, in which case
// the loop's result wins.
func (p *Panel) withdraw(d *delivery, cause error) error {
	p.mu.Lock()
	if p.pending != d {
		p.mu.Unlock()
		return <-d.sent
	}
	p.pending = nil
	p.setState(New)
	p.mu.Unlock()

	p.opts.Metrics.delivered("withdrawn", time.Since(d.started).Seconds())
	p.log.Warn("graph delivery withdrawn", "error", cause)
	return cause
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "sent"
}

func (p *Panel) send(ctx context.Context, m protocol.HostMessage) error {
	p.opts.Metrics.message("out", m.Command())
	if err := p.ep.Send(ctx, m); err != nil {
		if errors.Is(err, protocol.ErrClosed) {
			return ErrDisposed
		}
		return fmt.Errorf("sending %s: %w", m.Command(), err)
	}
	return nil
}

// ExportImage asks the surface for a PNG and waits until the host saved
// it. Without a delivered graph it does nothing.
func (p *Panel) ExportImage(ctx context.Context, pixelRatio float64) error {
	return p.request(ctx, protocol.ExportImage{PixelRatio: pixelRatio}, protocol.CmdSaveImage)
}

// ExportJSON asks the surface for a snapshot and waits until the host
// saved it. Without a delivered graph it does nothing.
func (p *Panel) ExportJSON(ctx context.Context) error {
	return p.request(ctx, protocol.ExportJSON{}, protocol.CmdSaveJSON)
}

func (p *Panel) request(ctx context.Context, m protocol.HostMessage, reply string) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	if p.state != Done {
		p.mu.Unlock()
		p.log.Debug("nothing rendered, ignoring", "command", m.Command())
		return nil
	}
	ch := make(chan error, 1)
	p.replies[reply] = append(p.replies[reply], ch)
	p.mu.Unlock()

	if err := p.send(ctx, m); err != nil {
		p.dropReply(reply, ch)
		return err
	}
	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		p.dropReply(reply, ch)
		return ctx.Err()
	}
}

func (p *Panel) dropReply(reply string, ch chan error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	q := p.replies[reply]
	for i, c := range q {
		if c == ch {
			p.replies[reply] = append(q[:i:i], q[i+1:]...)
			return
		}
	}
}

// resolve completes the oldest request waiting for reply.
func (p *Panel) resolve(reply string, err error) {
	p.mu.Lock()
	q := p.replies[reply]
	if len(q) == 0 {
		p.mu.Unlock()
		return
	}
	ch := q[0]
	p.replies[reply] = q[1:]
	p.mu.Unlock()
	ch <- err
}

// CheckRendered asks the surface whether it shows any element.
func (p *Panel) CheckRendered(ctx context.Context) (bool, error) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return false, ErrDisposed
	}
	if p.state != Done {
		p.mu.Unlock()
		return false, nil
	}
	ch := make(chan bool, 1)
	p.probes = append(p.probes, ch)
	p.mu.Unlock()

	if err := p.send(ctx, protocol.CheckRendered{}); err != nil {
		p.dropProbe(ch)
		return false, err
	}
	select {
	case v, ok := <-ch:
		if !ok {
			return false, ErrDisposed
		}
		return v, nil
	case <-ctx.Done():
		p.dropProbe(ch)
		return false, ctx.Err()
	}
}

func (p *Panel) dropProbe(ch chan bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, c := range p.probes {
		if c == ch {
			p.probes = append(p.probes[:i:i], p.probes[i+1:]...)
			return
		}
	}
}

// Dispose closes the surface connection and fails everything still
// waiting. It is safe to call more than once.
func (p *Panel) Dispose() error {
	var err error
	p.once.Do(func() {
		p.mu.Lock()
		p.disposed = true
		if p.pending != nil {
			p.pending.sent <- ErrDisposed
			p.pending = nil
		}
		for reply, q := range p.replies {
			for _, ch := range q {
				ch <- ErrDisposed
			}
			delete(p.replies, reply)
		}
		for _, ch := range p.probes {
			close(ch)
		}
		p.probes = nil
		p.mu.Unlock()

		close(p.done)
		p.cancel()
		err = p.ep.Close()
		p.opts.Metrics.closed()
		p.log.Debug("panel disposed")
	})
	return err
}

func (p *Panel) receive() {
	for {
		m, err := p.ep.Receive(p.ctx)
		if err != nil {
			if errors.Is(err, protocol.ErrUnknownCommand) || errors.Is(err, protocol.ErrMalformed) {
				p.log.Warn("ignoring surface message", "error", err)
				continue
			}
			if !errors.Is(err, protocol.ErrClosed) && !errors.Is(err, context.Canceled) {
				p.log.Warn("surface connection lost", "error", err)
			}
			_ = p.Dispose()
			return
		}
		select {
		case <-p.done:
			return
		default:
		}
		p.opts.Metrics.message("in", m.Command())
		p.handle(m)
	}
}

func (p *Panel) handle(m protocol.SurfaceMessage) {
	switch m := m.(type) {
	case protocol.Ready:
		p.onReady()
	case protocol.GoToFile:
		nav := Navigation{Path: resolvePath(p.opts.RootPath, m.URI), Line: m.Line, Column: m.Column}
		if err := p.opts.Host.Navigate(p.ctx, nav); err != nil {
			p.log.Warn("navigation failed", "target", nav, "error", err)
		}
	case protocol.SaveImage:
		data, err := m.PNG()
		if err == nil {
			err = p.opts.Host.SaveImage(p.ctx, data)
		}
		if err != nil {
			p.log.Error("saving image failed", "error", err)
		}
		p.resolve(protocol.CmdSaveImage, err)
	case protocol.SaveJSON:
		err := p.opts.Host.SaveJSON(p.ctx, m.JSON)
		if err != nil {
			p.log.Error("saving json failed", "error", err)
		}
		p.resolve(protocol.CmdSaveJSON, err)
	case protocol.RenderedResult:
		p.mu.Lock()
		var ch chan bool
		if len(p.probes) > 0 {
			ch, p.probes = p.probes[0], p.probes[1:]
		}
		p.mu.Unlock()
		if ch != nil {
			ch <- m.Rendered
		}
	default:
		p.log.Warn("unhandled surface message", "command", m.Command())
	}
}

func (p *Panel) onReady() {
	p.mu.Lock()
	switch p.state {
	case DataReady:
		d := p.pending
		p.pending = nil
		p.setState(Done)
		p.mu.Unlock()
		err := p.send(p.ctx, d.msg)
		if err != nil {
			p.undeliver(err)
		}
		d.sent <- err
		return
	case New:
		p.setState(ClientReady)
	default:
		p.log.Warn("unexpected ready signal", "state", p.state)
	}
	p.mu.Unlock()
}
