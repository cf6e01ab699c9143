package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Benny93/graphpanel/internal/archive"
	"github.com/Benny93/graphpanel/internal/config"
	"github.com/Benny93/graphpanel/internal/graph"
	"github.com/Benny93/graphpanel/internal/panel"
	"github.com/Benny93/graphpanel/internal/surface"
)

// env is everything a panel-driving command needs for one project root.
type env struct {
	root     string
	cfg      *config.Config
	archive  archive.Archive
	host     *panel.FileHost
	prom     *prometheus.Registry
	registry *panel.Registry
}

// envOptions tweak openEnv.
type envOptions struct {
	// Mode overrides surface.mode when set.
	Mode string

	// Out receives navigation and save notices.
	Out io.Writer

	// Launcher replaces the launcher derived from the config.
	Launcher panel.Launcher

	// Archive replaces the configured archive.
	Archive archive.Archive
}

func absRoot(root string) (string, error) {
	if root == "" {
		root = "."
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("accessing %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

func loadConfig(root string) (*config.Config, error) {
	cfg, err := config.Load(config.Path(root))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func openEnv(rootFlag string, o envOptions) (*env, error) {
	root, err := absRoot(rootFlag)
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return nil, err
	}
	if o.Mode != "" {
		cfg.Surface.Mode = o.Mode
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	if o.Out == nil {
		o.Out = os.Stdout
	}

	e := &env{root: root, cfg: cfg, prom: prometheus.NewRegistry(), archive: o.Archive}
	if e.archive == nil && cfg.Archive.Enabled {
		a := archive.NewBadgerArchive()
		if err := a.Initialize(e.archiveDir(), false); err != nil {
			return nil, fmt.Errorf("initializing archive: %w", err)
		}
		e.archive = a
	}

	e.host = &panel.FileHost{
		Dir:     e.resolve(cfg.Export.Dir),
		Archive: e.archive,
		Out:     o.Out,
	}

	l := o.Launcher
	if l == nil {
		l = launcherFor(cfg)
	}
	e.registry = panel.NewRegistry(l, panel.Options{
		Host:         e.host,
		ReadyTimeout: cfg.Panel.ReadyTimeout.Duration,
		Metrics:      panel.NewMetrics(e.prom),
	})
	slog.Debug("environment ready", "root", root, "mode", cfg.Surface.Mode, "archive", e.archive != nil)
	return e, nil
}

func (e *env) archiveDir() string {
	return e.resolve(e.cfg.Archive.Dir)
}

// resolve anchors a relative path at the project root.
func (e *env) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.root, path)
}

func (e *env) settings() graph.Settings {
	return graph.Settings{WheelSensitivity: e.cfg.Panel.WheelSensitivity}
}

// show replaces the panel content with data.
func (e *env) show(ctx context.Context, data panel.GraphData) error {
	if _, err := e.registry.Create(ctx, e.root); err != nil {
		return err
	}
	if err := e.registry.InitialiseGraph(ctx, data, e.settings()); err != nil {
		return fmt.Errorf("showing graph: %w", err)
	}
	return nil
}

// export writes the requested exports. With neither path set an image is
// written to the export directory.
func (e *env) export(ctx context.Context, image, json string, ratio float64) error {
	if ratio <= 0 {
		ratio = e.cfg.Panel.PixelRatio
	}
	e.host.SetOutputs(e.resolve(image), e.resolve(json))
	if json != "" {
		if err := e.registry.ExportJSON(ctx); err != nil {
			return fmt.Errorf("exporting json: %w", err)
		}
	}
	if image != "" || json == "" {
		if err := e.registry.ExportImage(ctx, ratio); err != nil {
			return fmt.Errorf("exporting image: %w", err)
		}
	}
	return nil
}

func (e *env) close() error {
	err := e.registry.Dispose()
	if errors.Is(err, panel.ErrDisposed) {
		err = nil
	}
	if e.archive != nil {
		if cerr := e.archive.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func surfaceOptions(cfg *config.Config) surface.Options {
	return surface.Options{
		Width:           cfg.Surface.Width,
		Height:          cfg.Surface.Height,
		PixelRatio:      cfg.Panel.PixelRatio,
		DoubleTapWindow: cfg.Interaction.DoubleTapWindow.Duration,
		TooltipHold:     cfg.Interaction.TooltipHold.Duration,
		ResizeDebounce:  cfg.Surface.ResizeDebounce.Duration,
	}
}

func launcherFor(cfg *config.Config) panel.Launcher {
	switch cfg.Surface.Mode {
	case config.ModeProcess:
		return panel.ProcessLauncher{Args: []string{
			"surface",
			"--width", strconv.Itoa(cfg.Surface.Width),
			"--height", strconv.Itoa(cfg.Surface.Height),
			"--pixel-ratio", strconv.FormatFloat(cfg.Panel.PixelRatio, 'f', -1, 64),
		}}
	case config.ModeRemote:
		return panel.RemoteLauncher{URL: cfg.Surface.URL}
	default:
		return panel.InProcessLauncher{Options: surfaceOptions(cfg)}
	}
}
