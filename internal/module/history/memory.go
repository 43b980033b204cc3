package history

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// MemoryRepository keeps entries in process memory. Nothing survives a restart.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []*Entry // oldest first
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Insert(_ context.Context, entry *Entry, limit int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	if excess := len(r.entries) - limit + 1; excess > 0 {
		evicted = min(excess, len(r.entries))
		r.entries = append([]*Entry(nil), r.entries[evicted:]...)
	}

	clone := *entry
	// Keep ascending order even if the caller supplies an older timestamp.
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].Timestamp.After(clone.Timestamp)
	})
	r.entries = append(r.entries, nil)
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = &clone

	return evicted, nil
}

func (r *MemoryRepository) List(_ context.Context) ([]*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, len(r.entries))
	for i, e := range r.entries {
		clone := *e
		out[i] = &clone
	}
	return out, nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.ID == id {
			clone := *e
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *MemoryRepository) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	return nil
}

// unavailableRepository stands in when the configured store could not be opened.
type unavailableRepository struct {
	cause error
}

// Unavailable returns a repository that reads as empty and refuses writes.
func Unavailable(cause error) Repository {
	return &unavailableRepository{cause: cause}
}

func (r *unavailableRepository) Insert(context.Context, *Entry, int) (int, error) {
	return 0, r.err()
}

func (r *unavailableRepository) List(context.Context) ([]*Entry, error) {
	return nil, r.err()
}

func (r *unavailableRepository) Get(context.Context, string) (*Entry, error) {
	return nil, r.err()
}

func (r *unavailableRepository) Delete(context.Context, string) error {
	return r.err()
}

func (r *unavailableRepository) Clear(context.Context) error {
	return r.err()
}

func (r *unavailableRepository) err() error {
	if r.cause == nil {
		return ErrStoreUnavailable
	}
	return errors.Join(ErrStoreUnavailable, r.cause)
}
