// Package archive keeps exported graph snapshots.
//
// It defines the Archive interface that all archive implementations must
// satisfy, along with the Entry type shared by the backends.
package archive

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no entry has the requested ID.
var ErrNotFound = errors.New("snapshot not found")

// Entry is one archived snapshot.
type Entry struct {
	// ID is a random UUID.
	ID string `json:"id"`

	// Name is a human label, usually the file the snapshot was saved to.
	Name string `json:"name"`

	CreatedAt time.Time `json:"created_at"`

	// Nodes and Edges summarize the snapshot without decoding it.
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`

	// JSON is the exported snapshot, verbatim.
	JSON string `json:"json"`
}

// NewEntry returns an entry with a fresh ID stamped with the current time.
func NewEntry(name, json string, nodes, edges int) Entry {
	return Entry{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		Nodes:     nodes,
		Edges:     edges,
		JSON:      json,
	}
}

// Archive defines the interface for snapshot archives.
//
// Implementations must be thread-safe and support concurrent access.
type Archive interface {
	// Initialize opens or creates the archive at the given path.
	// If readOnly is true, the archive is opened in read-only mode.
	Initialize(path string, readOnly bool) error

	// Close releases all resources held by the archive.
	Close() error

	// Put stores an entry, replacing any entry with the same ID.
	Put(ctx context.Context, e Entry) error

	// Get returns the entry with the given ID or ErrNotFound.
	Get(ctx context.Context, id string) (Entry, error)

	// List returns all entries, newest first.
	List(ctx context.Context) ([]Entry, error)

	// Delete removes an entry. Deleting a missing entry returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}
