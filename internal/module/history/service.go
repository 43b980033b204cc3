package history

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/thumbfast/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// Service is the history store. Add is a critical section per Service.
type Service struct {
	repo       Repository
	maxEntries int
	logger     *zap.Logger
	metrics    *metrics.Metrics

	mu  sync.Mutex
	now func() time.Time
}

// ServiceConfig holds service configuration.
type ServiceConfig struct {
	Repository Repository
	MaxEntries int
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// NewService creates a new history service.
func NewService(cfg *ServiceConfig) *Service {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Service{
		repo:       cfg.Repository,
		maxEntries: maxEntries,
		logger:     log.Named("history"),
		metrics:    cfg.Metrics,
		now:        time.Now,
	}
}

// MaxEntries returns the cap.
func (s *Service) MaxEntries() int {
	return s.maxEntries
}

// Add stores entry, evicting the oldest entries first when the store is full.
// A missing ID or timestamp is filled in.
func (s *Service) Add(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("nil history entry")
	}
	if strings.TrimSpace(entry.ID) == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	// Millisecond precision is all that is persisted.
	entry.Timestamp = entry.Timestamp.Truncate(time.Millisecond)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted, err := s.repo.Insert(ctx, entry, s.maxEntries)
	if err != nil {
		s.recordError("add")
		return fmt.Errorf("add history entry: %w", err)
	}

	if evicted > 0 {
		s.logger.Debug("evicted history entries", zap.Int("count", evicted))
		if s.metrics != nil {
			s.metrics.RecordEvictions(evicted)
		}
	}
	return nil
}

// GetAll returns every entry, newest first. Storage failures read as an
// empty history.
func (s *Service) GetAll(ctx context.Context) []*Entry {
	entries, err := s.repo.List(ctx)
	if err != nil {
		s.recordError("list")
		s.logger.Warn("list history failed", zap.Error(err))
		return []*Entry{}
	}
	if entries == nil {
		return []*Entry{}
	}
	slices.Reverse(entries)
	return entries
}

// Get returns the entry with the given id.
func (s *Service) Get(ctx context.Context, id string) (*Entry, error) {
	entry, err := s.repo.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.recordError("get")
		}
		return nil, err
	}
	return entry, nil
}

// Remove deletes the entry with the given id. Unknown ids are ignored.
func (s *Service) Remove(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.recordError("remove")
		return fmt.Errorf("remove history entry: %w", err)
	}
	return nil
}

// Clear deletes every entry.
func (s *Service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Clear(ctx); err != nil {
		s.recordError("clear")
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

func (s *Service) recordError(op string) {
	if s.metrics != nil {
		s.metrics.RecordStoreError("history", op)
	}
}
