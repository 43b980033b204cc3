package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/thumbfast/server/internal/module/history"
)

// maxTxRetries bounds optimistic retries when another writer touches the index.
const maxTxRetries = 10

// historyRecord is the JSON stored per entry.
type historyRecord struct {
	ID        string           `json:"id"`
	Timestamp int64            `json:"timestamp"`
	Prompt    string           `json:"prompt"`
	Settings  history.Settings `json:"settings"`
	Images    []history.Image  `json:"images"`
}

// HistoryRepository implements history.Repository with a sorted set scored
// by unix ms (the index) and a hash of JSON entries keyed by id. Both keys
// carry the {history} hash tag so the transactions that touch them stay in
// one slot on a cluster.
type HistoryRepository struct {
	client     redis.UniversalClient
	indexKey   string
	entriesKey string
}

// NewHistoryRepository creates a new Redis history repository.
func NewHistoryRepository(client redis.UniversalClient, keyPrefix string) *HistoryRepository {
	return &HistoryRepository{
		client:     client,
		indexKey:   keyPrefix + ":{history}:index",
		entriesKey: keyPrefix + ":{history}:entries",
	}
}

func (r *HistoryRepository) Insert(ctx context.Context, entry *history.Entry, limit int) (int, error) {
	payload, err := json.Marshal(historyRecord{
		ID:        entry.ID,
		Timestamp: entry.Timestamp.UnixMilli(),
		Prompt:    entry.Prompt,
		Settings:  entry.Settings,
		Images:    entry.Images,
	})
	if err != nil {
		return 0, fmt.Errorf("encode history entry: %w", err)
	}

	var evicted int
	txf := func(tx *redis.Tx) error {
		count, err := tx.ZCard(ctx, r.indexKey).Result()
		if err != nil {
			return err
		}

		var victims []string
		if excess := count - int64(limit) + 1; excess > 0 {
			victims, err = tx.ZRange(ctx, r.indexKey, 0, excess-1).Result()
			if err != nil {
				return err
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(victims) > 0 {
				members := make([]any, len(victims))
				for i, v := range victims {
					members[i] = v
				}
				pipe.ZRem(ctx, r.indexKey, members...)
				pipe.HDel(ctx, r.entriesKey, victims...)
			}
			pipe.ZAdd(ctx, r.indexKey, redis.Z{
				Score:  float64(entry.Timestamp.UnixMilli()),
				Member: entry.ID,
			})
			pipe.HSet(ctx, r.entriesKey, entry.ID, payload)
			return nil
		})
		if err == nil {
			evicted = len(victims)
		}
		return err
	}

	for range maxTxRetries {
		err := r.client.Watch(ctx, txf, r.indexKey)
		if err == nil {
			return evicted, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return 0, err
	}
	return 0, fmt.Errorf("insert history entry: %w", redis.TxFailedErr)
}

func (r *HistoryRepository) List(ctx context.Context) ([]*history.Entry, error) {
	ids, err := r.client.ZRange(ctx, r.indexKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*history.Entry{}, nil
	}

	values, err := r.client.HMGet(ctx, r.entriesKey, ids...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]*history.Entry, 0, len(values))
	for _, v := range values {
		s, ok := v.(string)
		if !ok {
			// Index member without a payload; skipped until the next eviction drops it.
			continue
		}
		entry, err := decodeEntry(s)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *HistoryRepository) Get(ctx context.Context, id string) (*history.Entry, error) {
	s, err := r.client.HGet(ctx, r.entriesKey, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, history.ErrNotFound
		}
		return nil, err
	}
	return decodeEntry(s)
}

func (r *HistoryRepository) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.indexKey, id)
		pipe.HDel(ctx, r.entriesKey, id)
		return nil
	})
	return err
}

func (r *HistoryRepository) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.indexKey, r.entriesKey).Err()
}

func decodeEntry(s string) (*history.Entry, error) {
	var rec historyRecord
	if err := json.Unmarshal([]byte(s), &rec); err != nil {
		return nil, fmt.Errorf("decode history entry: %w", err)
	}
	return &history.Entry{
		ID:        rec.ID,
		Timestamp: time.UnixMilli(rec.Timestamp),
		Prompt:    rec.Prompt,
		Settings:  rec.Settings,
		Images:    rec.Images,
	}, nil
}

var _ history.Repository = (*HistoryRepository)(nil)
