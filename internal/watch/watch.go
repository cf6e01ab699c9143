// Package watch re-delivers graph input when the analysis engine rewrites
// it on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 500 * time.Millisecond

// ignoredDirs are never descended into when watching a directory.
var ignoredDirs = map[string]bool{
	".git":         true,
	".graphpanel":  true,
	"node_modules": true,
	"vendor":       true,
}

// target describes what is being watched.
type target struct {
	root    string // watched directory
	file    string // single watched file, empty for a directory
	matcher gitignore.Matcher
}

// WatchFile calls onChange with the changed paths, relative to the watched
// directory, after every burst of writes settles for debounce. path may be
// a single file or a directory; for a directory every non-ignored .json
// file below it is watched. Blocks until ctx is cancelled.
func WatchFile(ctx context.Context, path string, debounce time.Duration, onChange func(changed []string)) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	t := target{root: abs}
	if !info.IsDir() {
		t.root, t.file = filepath.Dir(abs), abs
	} else if t.matcher, err = loadGitignoreMatcher(abs); err != nil {
		slog.Warn("ignoring unreadable .gitignore", "error", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if t.file != "" {
		err = watcher.Add(t.root)
	} else {
		err = t.addTree(watcher, t.root)
	}
	if err != nil {
		return fmt.Errorf("setting up watcher: %w", err)
	}

	// Batch changed files until writes settle.
	changed := make(map[string]bool)
	batchTimer := time.NewTimer(debounce)
	batchTimer.Stop()

	slog.Info("watching for changes", "path", abs, "debounce", debounce)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) && t.file == "" {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := t.addTree(watcher, event.Name); err != nil {
						slog.Warn("watching new directory failed", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if event.Op == fsnotify.Chmod || !t.wants(event.Name) {
				continue
			}
			rel, err := filepath.Rel(t.root, event.Name)
			if err != nil {
				continue
			}
			changed[filepath.ToSlash(rel)] = true
			batchTimer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "error", err)

		case <-batchTimer.C:
			if len(changed) == 0 {
				continue
			}
			batch := make([]string, 0, len(changed))
			for p := range changed {
				batch = append(batch, p)
			}
			sort.Strings(batch)
			changed = make(map[string]bool)
			onChange(batch)
		}
	}
}

// addTree watches dir and every non-ignored directory below it.
func (t target) addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != t.root && t.skipDir(d.Name(), path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// wants reports whether a change to path should be reported.
func (t target) wants(path string) bool {
	path = filepath.Clean(path)
	if t.file != "" {
		return path == t.file
	}
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return false
	}
	return !t.ignored(path, false)
}

func (t target) skipDir(name, path string) bool {
	if ignoredDirs[name] {
		return true
	}
	return t.ignored(path, true)
}

func (t target) ignored(path string, isDir bool) bool {
	if t.matcher == nil {
		return false
	}
	rel, err := filepath.Rel(t.root, path)
	if err != nil {
		return false
	}
	return t.matcher.Match(strings.Split(rel, string(filepath.Separator)), isDir)
}

// loadGitignoreMatcher loads a gitignore matcher from the directory root.
func loadGitignoreMatcher(root string) (gitignore.Matcher, error) {
	content, err := os.ReadFile(filepath.Join(root, ".gitignore"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return gitignore.NewMatcher(patterns), nil
}
