// Package stats accumulates usage counters across generations.
package stats

import (
	"context"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/thumbfast/server/internal/module/catalog"
	"github.com/thumbfast/server/internal/shared/metrics"
	"go.uber.org/zap"
)

// ErrNotFound is returned by a Repository that holds no record yet.
var ErrNotFound = errors.New("usage stats not found")

// UsageStats is the single usage record.
type UsageStats struct {
	TotalImages        int       `json:"totalImages"`
	TotalRequests      int       `json:"totalRequests"`
	EstimatedCost      float64   `json:"estimatedCost"`
	LastGenerationCost float64   `json:"lastGenerationCost"`
	LastReset          time.Time `json:"lastReset"`
}

// Repository persists the record as one unit.
type Repository interface {
	Load(ctx context.Context) (*UsageStats, error)
	Save(ctx context.Context, s *UsageStats) error
}

// Tracker owns the usage record. Mutations are serialized and persisted
// best effort; a storage failure never fails the caller.
type Tracker struct {
	repo    Repository
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu    sync.Mutex
	stats UsageStats
}

// TrackerConfig holds tracker configuration.
type TrackerConfig struct {
	Repository Repository
	Logger     *zap.Logger
	Metrics    *metrics.Metrics
}

// NewTracker creates a tracker holding a fresh record. Call Load to restore
// the persisted one.
func NewTracker(cfg *TrackerConfig) *Tracker {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	t := &Tracker{
		repo:    cfg.Repository,
		logger:  log.Named("stats"),
		metrics: cfg.Metrics,
		now:     time.Now,
	}
	t.stats = UsageStats{LastReset: t.now().UTC()}
	return t
}

// Load restores the persisted record. A missing or unreadable record leaves
// the defaults in place.
func (t *Tracker) Load(ctx context.Context) {
	loaded, err := t.repo.Load(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			t.recordError("load")
			t.logger.Warn("load usage stats failed, starting fresh", zap.Error(err))
		}
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = sanitize(*loaded, t.stats.LastReset)
}

// Track accounts for one completed generation and returns the new record.
func (t *Tracker) Track(ctx context.Context, imageCount int, modelID string) UsageStats {
	imageCount = max(imageCount, 0)
	cost := Round3(float64(imageCount) * catalog.CostPerImage(modelID))

	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats.TotalImages += imageCount
	t.stats.TotalRequests++
	t.stats.EstimatedCost = Round3(t.stats.EstimatedCost + cost)
	t.stats.LastGenerationCost = cost

	t.persist(ctx, "track")
	return t.stats
}

// Reset zeroes every counter and stamps a new reset time.
func (t *Tracker) Reset(ctx context.Context) UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stats = UsageStats{LastReset: t.now().UTC()}

	t.persist(ctx, "reset")
	return t.stats
}

// Snapshot returns a copy of the current record.
func (t *Tracker) Snapshot() UsageStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// persist must be called with t.mu held.
func (t *Tracker) persist(ctx context.Context, op string) {
	record := t.stats
	if err := t.repo.Save(ctx, &record); err != nil {
		t.recordError(op)
		t.logger.Warn("persist usage stats failed", zap.String("op", op), zap.Error(err))
	}
}

func (t *Tracker) recordError(op string) {
	if t.metrics != nil {
		t.metrics.RecordStoreError("stats", op)
	}
}

// Round3 rounds x to three decimal places.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// sanitize clamps a stored record that may have been edited by hand.
func sanitize(s UsageStats, fallbackReset time.Time) UsageStats {
	s.TotalImages = max(s.TotalImages, 0)
	s.TotalRequests = max(s.TotalRequests, 0)
	if s.EstimatedCost < 0 || math.IsNaN(s.EstimatedCost) {
		s.EstimatedCost = 0
	}
	if s.LastGenerationCost < 0 || math.IsNaN(s.LastGenerationCost) {
		s.LastGenerationCost = 0
	}
	if s.LastReset.IsZero() {
		s.LastReset = fallbackReset
	}
	return s
}
