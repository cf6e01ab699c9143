package panel

import (
	"context"
	"fmt"
	"sync"

	"github.com/Benny93/graphpanel/internal/graph"
)

// Registry holds zero or one live panel.
type Registry struct {
	launcher Launcher
	opts     Options

	mu      sync.Mutex
	current *Panel
}

// NewRegistry returns an empty registry. Panels are launched with l and
// configured from opts; RootPath is set per Create.
func NewRegistry(l Launcher, opts Options) *Registry {
	return &Registry{launcher: l, opts: opts}
}

// Create makes sure a panel is available. A panel that is still waiting
// for data (New or ClientReady) is reused; any other panel is disposed and
// replaced.
func (r *Registry) Create(ctx context.Context, rootPath string) (*Panel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p := r.current; p != nil {
		select {
		case <-p.Done():
			r.current = nil
		default:
			if st := p.State(); st == New || st == ClientReady {
				return p, nil
			}
			_ = p.Dispose()
			r.current = nil
		}
	}

	t, err := r.launcher.Launch(ctx)
	if err != nil {
		return nil, fmt.Errorf("launching surface: %w", err)
	}
	opts := r.opts
	opts.RootPath = rootPath
	p := NewPanel(t, opts)
	r.current = p
	go r.forget(p)
	return p, nil
}

// forget clears the slot when p is disposed from elsewhere, e.g. because
// its surface went away.
func (r *Registry) forget(p *Panel) {
	<-p.Done()
	r.mu.Lock()
	if r.current == p {
		r.current = nil
	}
	r.mu.Unlock()
}

// Current returns the live panel or nil.
func (r *Registry) Current() *Panel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// State returns the state of the live panel.
func (r *Registry) State() (State, error) {
	p := r.Current()
	if p == nil {
		return 0, ErrNoPanel
	}
	return p.State(), nil
}

// InitialiseGraph forwards to the live panel.
func (r *Registry) InitialiseGraph(ctx context.Context, data GraphData, settings graph.Settings) error {
	p := r.Current()
	if p == nil {
		return ErrNoPanel
	}
	return p.InitialiseGraph(ctx, data, settings)
}

// ExportImage exports from the live panel; without one it does nothing.
func (r *Registry) ExportImage(ctx context.Context, pixelRatio float64) error {
	if p := r.Current(); p != nil {
		return p.ExportImage(ctx, pixelRatio)
	}
	return nil
}

// ExportJSON exports from the live panel; without one it does nothing.
func (r *Registry) ExportJSON(ctx context.Context) error {
	if p := r.Current(); p != nil {
		return p.ExportJSON(ctx)
	}
	return nil
}

// CheckRendered probes the live panel.
func (r *Registry) CheckRendered(ctx context.Context) (bool, error) {
	if p := r.Current(); p != nil {
		return p.CheckRendered(ctx)
	}
	return false, nil
}

// Dispose disposes the live panel, if any, and empties the registry.
func (r *Registry) Dispose() error {
	r.mu.Lock()
	p := r.current
	r.current = nil
	r.mu.Unlock()
	if p == nil {
		return nil
	}
	return p.Dispose()
}
