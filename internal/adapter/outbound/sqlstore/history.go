// Package sqlstore persists history and stats through gorm on SQLite or Postgres.
package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/thumbfast/server/internal/module/history"
	"gorm.io/gorm"
)

// historyRow is the history_entries table. Seq breaks timestamp ties in
// insertion order.
type historyRow struct {
	Seq       uint             `gorm:"primaryKey;autoIncrement"`
	ID        string           `gorm:"size:36;uniqueIndex;not null"`
	Timestamp int64            `gorm:"column:created_ms;index;not null"` // unix ms
	Prompt    string           `gorm:"type:text;not null"`
	Settings  history.Settings `gorm:"type:text;serializer:json"`
	Images    []history.Image  `gorm:"type:text;serializer:json"`
}

func (historyRow) TableName() string {
	return "history_entries"
}

func (r *historyRow) toEntry() *history.Entry {
	return &history.Entry{
		ID:        r.ID,
		Timestamp: time.UnixMilli(r.Timestamp),
		Prompt:    r.Prompt,
		Settings:  r.Settings,
		Images:    r.Images,
	}
}

func fromEntry(e *history.Entry) *historyRow {
	return &historyRow{
		ID:        e.ID,
		Timestamp: e.Timestamp.UnixMilli(),
		Prompt:    e.Prompt,
		Settings:  e.Settings,
		Images:    e.Images,
	}
}

// HistoryRepository implements history.Repository.
type HistoryRepository struct {
	db *gorm.DB
}

// NewHistoryRepository creates the repository and migrates its table.
func NewHistoryRepository(db *gorm.DB) (*HistoryRepository, error) {
	if err := db.AutoMigrate(&historyRow{}); err != nil {
		return nil, err
	}
	return &HistoryRepository{db: db}, nil
}

func (r *HistoryRepository) Insert(ctx context.Context, entry *history.Entry, limit int) (int, error) {
	evicted := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			// Serialize writers across server instances sharing the database.
			if err := tx.Exec("LOCK TABLE history_entries IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
				return err
			}
		}

		var count int64
		if err := tx.Model(&historyRow{}).Count(&count).Error; err != nil {
			return err
		}

		if excess := int(count) - limit + 1; excess > 0 {
			var seqs []uint
			if err := tx.Model(&historyRow{}).
				Order("created_ms ASC, seq ASC").
				Limit(excess).
				Pluck("seq", &seqs).Error; err != nil {
				return err
			}
			if len(seqs) > 0 {
				if err := tx.Where("seq IN ?", seqs).Delete(&historyRow{}).Error; err != nil {
					return err
				}
			}
			evicted = len(seqs)
		}

		return tx.Create(fromEntry(entry)).Error
	})
	if err != nil {
		return 0, err
	}
	return evicted, nil
}

func (r *HistoryRepository) List(ctx context.Context) ([]*history.Entry, error) {
	var rows []*historyRow
	if err := r.db.WithContext(ctx).Order("created_ms ASC, seq ASC").Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]*history.Entry, len(rows))
	for i, row := range rows {
		entries[i] = row.toEntry()
	}
	return entries, nil
}

func (r *HistoryRepository) Get(ctx context.Context, id string) (*history.Entry, error) {
	var row historyRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, history.ErrNotFound
		}
		return nil, err
	}
	return row.toEntry(), nil
}

func (r *HistoryRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&historyRow{}).Error
}

func (r *HistoryRepository) Clear(ctx context.Context) error {
	return r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&historyRow{}).Error
}

var _ history.Repository = (*HistoryRepository)(nil)
