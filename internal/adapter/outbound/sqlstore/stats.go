package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/thumbfast/server/internal/module/stats"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// statsRowID is the key of the only usage_stats row.
const statsRowID = 1

type statsRow struct {
	ID                 uint `gorm:"primaryKey;autoIncrement:false"`
	TotalImages        int
	TotalRequests      int
	EstimatedCost      float64
	LastGenerationCost float64
	LastReset          time.Time
	UpdatedAt          time.Time
}

func (statsRow) TableName() string {
	return "usage_stats"
}

// StatsRepository implements stats.Repository as a single row.
type StatsRepository struct {
	db *gorm.DB
}

// NewStatsRepository creates the repository and migrates its table.
func NewStatsRepository(db *gorm.DB) (*StatsRepository, error) {
	if err := db.AutoMigrate(&statsRow{}); err != nil {
		return nil, err
	}
	return &StatsRepository{db: db}, nil
}

func (r *StatsRepository) Load(ctx context.Context) (*stats.UsageStats, error) {
	var row statsRow
	if err := r.db.WithContext(ctx).First(&row, statsRowID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, stats.ErrNotFound
		}
		return nil, err
	}
	return &stats.UsageStats{
		TotalImages:        row.TotalImages,
		TotalRequests:      row.TotalRequests,
		EstimatedCost:      row.EstimatedCost,
		LastGenerationCost: row.LastGenerationCost,
		LastReset:          row.LastReset.UTC(),
	}, nil
}

func (r *StatsRepository) Save(ctx context.Context, s *stats.UsageStats) error {
	row := statsRow{
		ID:                 statsRowID,
		TotalImages:        s.TotalImages,
		TotalRequests:      s.TotalRequests,
		EstimatedCost:      s.EstimatedCost,
		LastGenerationCost: s.LastGenerationCost,
		LastReset:          s.LastReset,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

var _ stats.Repository = (*StatsRepository)(nil)
