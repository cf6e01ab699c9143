package panel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Benny93/graphpanel/internal/archive"
	"github.com/Benny93/graphpanel/internal/graph"
)

// Navigation is a request to reveal a source position.
type Navigation struct {
	Path   string
	Line   int
	Column int
}

func (n Navigation) String() string {
	return fmt.Sprintf("%s:%d:%d", n.Path, n.Line, n.Column)
}

// Host performs the side effects requested by a surface.
type Host interface {
	Navigate(ctx context.Context, nav Navigation) error
	SaveImage(ctx context.Context, png []byte) error
	SaveJSON(ctx context.Context, json string) error
}

// resolvePath turns a surface supplied location into a host path. Relative
// paths are taken against root.
func resolvePath(root, uri string) string {
	p := strings.TrimPrefix(uri, "file://")
	p = filepath.FromSlash(p)
	if root != "" && !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	return p
}

// FileHost writes exports to disk and prints navigation requests.
type FileHost struct {
	// ImagePath and JSONPath are the export destinations. When empty, a
	// timestamped file is created in Dir.
	ImagePath string
	JSONPath  string
	Dir       string

	// Archive, when set, also receives every saved JSON snapshot.
	Archive archive.Archive

	// Out receives one line per navigation and saved file.
	Out io.Writer

	Logger *slog.Logger

	mu    sync.Mutex
	saved []string
}

func (h *FileHost) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func (h *FileHost) printf(format string, args ...any) {
	if h.Out != nil {
		fmt.Fprintf(h.Out, format, args...)
	}
}

func (h *FileHost) target(path, ext string) string {
	if path != "" {
		return path
	}
	dir := h.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "graph-"+time.Now().Format("20060102-150405.000")+"."+ext)
}

func (h *FileHost) write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating export dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	h.mu.Lock()
	h.saved = append(h.saved, path)
	h.mu.Unlock()
	h.printf("Saved %s\n", path)
	return nil
}

// SetOutputs changes the export destinations. Empty values keep the
// current ones.
func (h *FileHost) SetOutputs(image, json string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if image != "" {
		h.ImagePath = image
	}
	if json != "" {
		h.JSONPath = json
	}
}

func (h *FileHost) outputs() (image, json string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ImagePath, h.JSONPath
}

// Saved returns the files written so far.
func (h *FileHost) Saved() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.saved...)
}

// Navigate prints the location.
func (h *FileHost) Navigate(ctx context.Context, nav Navigation) error {
	h.logger().Info("navigate", "path", nav.Path, "line", nav.Line, "column", nav.Column)
	h.printf("%s\n", nav)
	return nil
}

// SaveImage writes the PNG.
func (h *FileHost) SaveImage(ctx context.Context, png []byte) error {
	image, _ := h.outputs()
	return h.write(h.target(image, "png"), png)
}

// SaveJSON writes the snapshot and archives it.
func (h *FileHost) SaveJSON(ctx context.Context, json string) error {
	_, jsonPath := h.outputs()
	path := h.target(jsonPath, "json")
	if err := h.write(path, []byte(json)); err != nil {
		return err
	}
	if h.Archive == nil {
		return nil
	}

	g, _, err := graph.ImportJSON(json)
	if err != nil {
		return fmt.Errorf("reading snapshot for archive: %w", err)
	}
	entry := archive.NewEntry(filepath.Base(path), json, g.NodeCount(), g.EdgeCount())
	if err := h.Archive.Put(ctx, entry); err != nil {
		return fmt.Errorf("archiving snapshot: %w", err)
	}
	h.logger().Debug("snapshot archived", "id", entry.ID, "name", entry.Name)
	return nil
}

// logHost only logs. It is used when no Host is configured.
type logHost struct {
	log *slog.Logger
}

func (h logHost) Navigate(ctx context.Context, nav Navigation) error {
	h.log.Info("navigate", "path", nav.Path, "line", nav.Line, "column", nav.Column)
	return nil
}

func (h logHost) SaveImage(ctx context.Context, png []byte) error {
	h.log.Info("image export discarded", "bytes", len(png))
	return nil
}

func (h logHost) SaveJSON(ctx context.Context, json string) error {
	h.log.Info("json export discarded", "bytes", len(json))
	return nil
}
