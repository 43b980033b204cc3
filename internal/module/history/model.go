// Package history keeps a bounded, time-ordered record of past generations.
package history

import (
	"context"
	"errors"
	"time"
)

// DefaultMaxEntries is the history cap.
const DefaultMaxEntries = 50

var (
	ErrNotFound         = errors.New("history entry not found")
	ErrStoreUnavailable = errors.New("history store unavailable")
)

// Entry is one completed generation batch.
type Entry struct {
	ID        string
	Timestamp time.Time
	Prompt    string
	Settings  Settings
	Images    []Image
}

// Settings is the non-image configuration that produced an entry.
type Settings struct {
	Model string   `json:"model"`
	Modes []string `json:"modes"`
	Grid  int      `json:"grid"`
	Blend bool     `json:"blend"`
	Count int      `json:"count"`
}

// Image is a stored generated image. Data marshals to base64.
type Image struct {
	Data      []byte `json:"data"`
	MediaType string `json:"mediaType"`
}

// Repository persists entries. Implementations return entries oldest first.
type Repository interface {
	// Insert stores entry after evicting the oldest entries so that no more
	// than limit entries remain. Eviction and insertion happen atomically.
	// It returns the number of evicted entries.
	Insert(ctx context.Context, entry *Entry, limit int) (int, error)
	List(ctx context.Context) ([]*Entry, error)
	Get(ctx context.Context, id string) (*Entry, error)
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}
