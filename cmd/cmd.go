// Package cmd provides CLI command implementations for graphpanel.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/Benny93/graphpanel/internal/archive"
	"github.com/Benny93/graphpanel/internal/config"
	"github.com/Benny93/graphpanel/internal/graph"
	"github.com/Benny93/graphpanel/internal/panel"
	"github.com/Benny93/graphpanel/internal/protocol"
	"github.com/Benny93/graphpanel/internal/surface"
	"github.com/Benny93/graphpanel/internal/watch"
	"github.com/Benny93/graphpanel/mcp"
)

// Version is set at build time via ldflags.
var Version = "dev"

// ExportFlags are shared by the commands that show a graph.
type ExportFlags struct {
	Root       string  `short:"r" default:"." help:"Project root; relative source locations and outputs resolve against it"`
	Image      string  `help:"Write a PNG export to this path"`
	JSON       string  `name:"json" help:"Write a JSON snapshot to this path"`
	PixelRatio float64 `help:"Scale factor of the PNG export (default from config)"`
	Surface    string  `help:"Surface mode override (inprocess, process, remote)"`
	Wait       bool    `help:"Keep the panel open until interrupted"`
}

func (f ExportFlags) open(out io.Writer) (*env, error) {
	return openEnv(f.Root, envOptions{Mode: f.Surface, Out: out})
}

// finish exports and, with --wait, keeps the panel alive.
func (f ExportFlags) finish(ctx context.Context, e *env) error {
	if err := e.export(ctx, f.Image, f.JSON, f.PixelRatio); err != nil {
		return err
	}
	if !f.Wait {
		return nil
	}
	p := e.registry.Current()
	if p == nil {
		return nil
	}
	fmt.Println("Panel open (Ctrl+C to close)")
	select {
	case <-ctx.Done():
	case <-p.Done():
		fmt.Println("Surface closed.")
	}
	return nil
}

// ShowCmd builds, lays out and renders a graph from a node list.
type ShowCmd struct {
	Input string `arg:"" type:"existingfile" help:"Node list JSON produced by the analysis engine"`
	ExportFlags `embed:""`
}

// Run executes the show command.
func (c *ShowCmd) Run() error {
	ctx, stop := signalContext()
	defer stop()

	nodes, err := graph.LoadInput(c.Input)
	if err != nil {
		return err
	}

	e, err := c.open(os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = e.close() }()

	if err := e.show(ctx, panel.Nodes(nodes)); err != nil {
		return err
	}
	color.Green("Showing %d node(s) from %s", len(nodes), c.Input)
	return c.finish(ctx, e)
}

// ImportCmd shows a previously exported snapshot.
type ImportCmd struct {
	Snapshot string `arg:"" optional:"" type:"existingfile" help:"Snapshot JSON written by an earlier export"`
	Archived string `short:"a" help:"ID of an archived snapshot to import instead"`
	ExportFlags `embed:""`
}

// Run executes the import command.
func (c *ImportCmd) Run() error {
	if (c.Snapshot == "") == (c.Archived == "") {
		return errors.New("exactly one of <snapshot> or --archived is required")
	}
	ctx, stop := signalContext()
	defer stop()

	e, err := c.open(os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = e.close() }()

	var data, source string
	if c.Archived != "" {
		if e.archive == nil {
			return errors.New("snapshot archive is disabled")
		}
		entry, err := e.archive.Get(ctx, c.Archived)
		if err != nil {
			return err
		}
		data, source = entry.JSON, entry.Name
	} else {
		raw, err := os.ReadFile(c.Snapshot)
		if err != nil {
			return fmt.Errorf("reading snapshot: %w", err)
		}
		data, source = string(raw), c.Snapshot
	}

	g, _, err := graph.ImportJSON(data)
	if err != nil {
		return err
	}
	if err := e.show(ctx, panel.Snapshot(data)); err != nil {
		return err
	}
	color.Green("Imported %s (%d nodes, %d edges)", source, g.NodeCount(), g.EdgeCount())
	return c.finish(ctx, e)
}

// WatchCmd re-shows the graph whenever the input changes.
type WatchCmd struct {
	Input string `arg:"" type:"existingfile" help:"Node list JSON to watch"`
	ExportFlags `embed:""`
}

// Run executes the watch command.
func (c *WatchCmd) Run() error {
	ctx, stop := signalContext()
	defer stop()

	e, err := c.open(os.Stdout)
	if err != nil {
		return err
	}
	defer func() { _ = e.close() }()

	// Serialize reloads; the watcher may call back before a slow surface
	// finished the previous one.
	var mu sync.Mutex
	reload := func() {
		mu.Lock()
		defer mu.Unlock()
		if err := c.reload(ctx, e); err != nil {
			color.Red("Reload failed: %v", err)
		}
	}
	reload()

	fmt.Println("## Watch Mode")
	fmt.Printf("Watching %s for changes (Ctrl+C to stop)\n\n", c.Input)

	err = watch.WatchFile(ctx, c.Input, e.cfg.Watch.Debounce.Duration, func(changed []string) {
		slog.Debug("input changed", "files", changed)
		reload()
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch error: %w", err)
	}

	fmt.Println("\nWatch mode stopped.")
	return nil
}

func (c *WatchCmd) reload(ctx context.Context, e *env) error {
	nodes, err := graph.LoadInput(c.Input)
	if err != nil {
		return err
	}
	// A shown panel ignores new data, so start from a fresh one.
	if err := e.registry.Dispose(); err != nil && !errors.Is(err, panel.ErrDisposed) {
		return err
	}
	if err := e.show(ctx, panel.Nodes(nodes)); err != nil {
		return err
	}
	color.Green("Showing %d node(s)", len(nodes))
	if c.Image == "" && c.JSON == "" {
		return nil
	}
	return e.export(ctx, c.Image, c.JSON, c.PixelRatio)
}

// SurfaceCmd runs a rendering surface.
type SurfaceCmd struct {
	Listen     string  `short:"l" help:"Serve surfaces over websocket on this address instead of stdio"`
	Width      int     `help:"Viewport width (default from config)"`
	Height     int     `help:"Viewport height (default from config)"`
	PixelRatio float64 `help:"Device pixel ratio (default from config)"`
	Root       string  `short:"r" default:"." help:"Project root holding the configuration"`
}

// Run executes the surface command.
func (c *SurfaceCmd) Run() error {
	ctx, stop := signalContext()
	defer stop()

	cfg := config.Default()
	if root, err := absRoot(c.Root); err == nil {
		if cfg, err = loadConfig(root); err != nil {
			return err
		}
	}
	opts := surfaceOptions(cfg)
	if c.Width > 0 {
		opts.Width = c.Width
	}
	if c.Height > 0 {
		opts.Height = c.Height
	}
	if c.PixelRatio > 0 {
		opts.PixelRatio = c.PixelRatio
	}

	if c.Listen != "" {
		reg := prometheus.NewRegistry()
		fmt.Fprintf(os.Stderr, "Serving surfaces on ws://%s/surface\n", c.Listen)
		return listen(ctx, c.Listen, newRouter(ctx, reg, &opts))
	}

	// Note: stdout carries the protocol; diagnostics go to stderr.
	s, err := surface.New(protocol.NewStream(os.Stdin, os.Stdout, nil), opts)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

// ServeCmd starts the MCP server (stdio transport).
type ServeCmd struct {
	Root    string `short:"r" default:"." help:"Project root"`
	Surface string `help:"Surface mode override (inprocess, process, remote)"`
	Metrics string `help:"Expose Prometheus metrics on this address"`
}

// Run executes the serve command.
func (c *ServeCmd) Run() error {
	ctx, stop := signalContext()
	defer stop()

	// Note: No output to stdout - MCP server uses stdio for JSON-RPC only
	e, err := openEnv(c.Root, envOptions{Mode: c.Surface, Out: os.Stderr})
	if err != nil {
		return err
	}
	defer func() { _ = e.close() }()

	server := mcp.NewServer(e.registry, mcp.Options{
		RootPath:   e.root,
		Settings:   e.settings(),
		PixelRatio: e.cfg.Panel.PixelRatio,
		Outputs:    e.host,
		Archive:    e.archive,
	})
	mcp.Version = Version

	if c.Metrics == "" {
		return server.Run(ctx, os.Stdin, os.Stdout)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer stop()
		return server.Run(gctx, os.Stdin, os.Stdout)
	})
	g.Go(func() error {
		return listen(gctx, c.Metrics, newRouter(gctx, e.prom, nil))
	})
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// HistoryCmd lists or deletes archived snapshots.
type HistoryCmd struct {
	Root   string `short:"r" default:"." help:"Project root"`
	Delete string `short:"d" help:"Delete the snapshot with this ID"`
	Limit  int    `short:"n" default:"20" help:"Maximum entries to list"`
}

// Run executes the history command.
func (c *HistoryCmd) Run() error {
	ctx := context.Background()
	root, err := absRoot(c.Root)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	if !cfg.Archive.Enabled {
		fmt.Println("Snapshot archive is disabled")
		return nil
	}

	dir := cfg.Archive.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Println("No archived snapshots")
		return nil
	}

	store := archive.NewBadgerArchive()
	if err := store.Initialize(dir, c.Delete == ""); err != nil {
		return fmt.Errorf("initializing archive: %w", err)
	}
	defer func() { _ = store.Close() }()

	if c.Delete != "" {
		if err := store.Delete(ctx, c.Delete); err != nil {
			return err
		}
		color.Green("Deleted snapshot %s", c.Delete)
		return nil
	}
	return printHistory(ctx, os.Stdout, store, c.Limit)
}

func printHistory(ctx context.Context, w io.Writer, store archive.Archive, limit int) error {
	entries, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No archived snapshots")
		return nil
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	fmt.Fprintln(w, "Archived snapshots:")
	for _, e := range entries {
		fmt.Fprintf(w, "\n  %s\n", e.ID)
		fmt.Fprintf(w, "    Name:     %s\n", e.Name)
		fmt.Fprintf(w, "    Created:  %s\n", e.CreatedAt.Local().Format("2006-01-02 15:04:05"))
		fmt.Fprintf(w, "    Nodes:    %d\n", e.Nodes)
		fmt.Fprintf(w, "    Edges:    %d\n", e.Edges)
	}
	return nil
}

// InitCmd writes a default configuration file.
type InitCmd struct {
	Root  string `short:"r" default:"." help:"Project root"`
	Force bool   `short:"f" help:"Overwrite an existing configuration"`
}

// Run executes the init command.
func (c *InitCmd) Run() error {
	root, err := absRoot(c.Root)
	if err != nil {
		return err
	}
	path := config.Path(root)
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists; use --force to overwrite", path)
	}
	if err := config.Save(path, config.Default()); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	color.Green("Wrote %s", path)
	return nil
}

// CleanCmd deletes the snapshot archive for a project.
type CleanCmd struct {
	Root  string `short:"r" default:"." help:"Project root"`
	Force bool   `short:"f" help:"Skip confirmation"`
}

// Run executes the clean command.
func (c *CleanCmd) Run() error {
	root, err := absRoot(c.Root)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	dir := cfg.Archive.Dir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("no archive found at %s. Nothing to clean", dir)
	}

	if !c.Force {
		fmt.Printf("Delete archive at %s? [y/N] ", dir)
		var response string
		_, _ = fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted")
			return nil
		}
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting archive: %w", err)
	}
	color.Green("Deleted %s", dir)
	return nil
}

// Helper functions

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// CLI is the root command structure.
type CLI struct {
	Version kong.VersionFlag `help:"Show version information"`
	Verbose bool             `short:"v" help:"Enable verbose output"`
	Quiet   bool             `short:"q" help:"Suppress non-essential output"`

	// Commands
	Show    ShowCmd    `cmd:"" help:"Show a graph from a node list"`
	Import  ImportCmd  `cmd:"" help:"Show an exported or archived snapshot"`
	Watch   WatchCmd   `cmd:"" help:"Re-show a graph whenever its node list changes"`
	Surface SurfaceCmd `cmd:"" help:"Run a rendering surface (stdio or websocket)"`
	Serve   ServeCmd   `cmd:"" help:"Start MCP server (stdio transport)"`
	History HistoryCmd `cmd:"" help:"List or delete archived snapshots"`
	Init    InitCmd    `cmd:"" help:"Write a default configuration file"`
	Clean   CleanCmd   `cmd:"" help:"Delete the snapshot archive"`
}

// NewCLI creates a new CLI instance.
func NewCLI() *CLI {
	return &CLI{}
}

// Execute parses command-line arguments and executes the selected command.
func (c *CLI) Execute(args []string) error {
	parser, err := kong.New(c,
		kong.Name("graphpanel"),
		kong.Description("Interactive graph visualization panel"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)
	if err != nil {
		return err
	}
	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	setupLogging(os.Stderr, c.Verbose, c.Quiet)
	return kongCtx.Run()
}

func setupLogging(w io.Writer, verbose, quiet bool) {
	level := slog.LevelWarn
	switch {
	case verbose:
		level = slog.LevelDebug
	case quiet:
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
