package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/thumbfast/server/internal/module/stats"
)

// StatsRepository stores the usage record as one JSON value.
type StatsRepository struct {
	client redis.UniversalClient
	key    string
}

// NewStatsRepository creates a new Redis stats repository.
func NewStatsRepository(client redis.UniversalClient, keyPrefix string) *StatsRepository {
	return &StatsRepository{client: client, key: keyPrefix + ":stats"}
}

func (r *StatsRepository) Load(ctx context.Context) (*stats.UsageStats, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, stats.ErrNotFound
		}
		return nil, err
	}

	var s stats.UsageStats
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode usage stats: %w", err)
	}
	return &s, nil
}

func (r *StatsRepository) Save(ctx context.Context, s *stats.UsageStats) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key, data, 0).Err()
}

var _ stats.Repository = (*StatsRepository)(nil)
