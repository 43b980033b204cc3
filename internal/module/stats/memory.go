package stats

import (
	"context"
	"errors"
	"sync"
)

// MemoryRepository keeps the record in process memory.
type MemoryRepository struct {
	mu     sync.Mutex
	record *UsageStats
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Load(context.Context) (*UsageStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.record == nil {
		return nil, ErrNotFound
	}
	clone := *r.record
	return &clone, nil
}

func (r *MemoryRepository) Save(_ context.Context, s *UsageStats) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *s
	r.record = &clone
	return nil
}

// ErrStoreUnavailable is returned by the Unavailable repository.
var ErrStoreUnavailable = errors.New("stats store unavailable")

type unavailableRepository struct {
	cause error
}

// Unavailable returns a repository that fails every call.
func Unavailable(cause error) Repository {
	return &unavailableRepository{cause: cause}
}

func (r *unavailableRepository) Load(context.Context) (*UsageStats, error) {
	return nil, errors.Join(ErrStoreUnavailable, r.cause)
}

func (r *unavailableRepository) Save(context.Context, *UsageStats) error {
	return errors.Join(ErrStoreUnavailable, r.cause)
}
