package redis

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thumbfast/server/internal/module/history"
	"github.com/thumbfast/server/internal/module/stats"
)

// testClient connects to THUMBFAST_TEST_REDIS_ADDR and returns a unique key
// prefix cleaned up after the test.
func testClient(t *testing.T) (redis.UniversalClient, string) {
	t.Helper()
	addr := os.Getenv("THUMBFAST_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("THUMBFAST_TEST_REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())

	prefix := "thumbfast-test-" + uuid.NewString()
	t.Cleanup(func() {
		keys, _ := client.Keys(context.Background(), prefix+":*").Result()
		if len(keys) > 0 {
			client.Del(context.Background(), keys...)
		}
		_ = client.Close()
	})
	return client, prefix
}

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func entryAt(i int) *history.Entry {
	return &history.Entry{
		ID:        fmt.Sprintf("entry-%03d", i),
		Timestamp: base.Add(time.Duration(i) * time.Second),
		Prompt:    fmt.Sprintf("prompt %d", i),
		Settings:  history.Settings{Model: "gemini-2.5-flash-image", Modes: []string{"banner"}, Grid: 1, Count: 1},
		Images:    []history.Image{{Data: []byte{byte(i)}, MediaType: "image/jpeg"}},
	}
}

func TestHistoryRepository_CapEviction(t *testing.T) {
	client, prefix := testClient(t)
	repo := NewHistoryRepository(client, prefix)
	svc := history.NewService(&history.ServiceConfig{Repository: repo})
	ctx := context.Background()

	for i := range history.DefaultMaxEntries {
		require.NoError(t, svc.Add(ctx, entryAt(i)))
	}
	require.NoError(t, svc.Add(ctx, entryAt(999)))

	all := svc.GetAll(ctx)
	require.Len(t, all, history.DefaultMaxEntries)
	assert.Equal(t, "entry-999", all[0].ID)
	assert.Equal(t, "entry-001", all[len(all)-1].ID)

	_, err := repo.Get(ctx, "entry-000")
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestHistoryRepository_GetDeleteClear(t *testing.T) {
	client, prefix := testClient(t)
	repo := NewHistoryRepository(client, prefix)
	ctx := context.Background()

	for i := range 3 {
		_, err := repo.Insert(ctx, entryAt(i), 50)
		require.NoError(t, err)
	}

	got, err := repo.Get(ctx, "entry-001")
	require.NoError(t, err)
	assert.Equal(t, entryAt(1).Settings, got.Settings)
	assert.Equal(t, entryAt(1).Images, got.Images)
	assert.True(t, entryAt(1).Timestamp.Equal(got.Timestamp))

	require.NoError(t, repo.Delete(ctx, "entry-001"))
	require.NoError(t, repo.Delete(ctx, "entry-001"))
	list, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, repo.Clear(ctx))
	list, err = repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestHistoryRepository_ConcurrentWritersShareCap(t *testing.T) {
	client, prefix := testClient(t)
	ctx := context.Background()

	// Two services model two server instances on one Redis.
	a := history.NewService(&history.ServiceConfig{Repository: NewHistoryRepository(client, prefix), MaxEntries: 5})
	b := history.NewService(&history.ServiceConfig{Repository: NewHistoryRepository(client, prefix), MaxEntries: 5})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc := a
			if i%2 == 1 {
				svc = b
			}
			assert.NoError(t, svc.Add(ctx, entryAt(i)))
		}()
	}
	wg.Wait()

	assert.Len(t, a.GetAll(ctx), 5)
}

func TestStatsRepository(t *testing.T) {
	client, prefix := testClient(t)
	repo := NewStatsRepository(client, prefix)
	ctx := context.Background()

	_, err := repo.Load(ctx)
	assert.ErrorIs(t, err, stats.ErrNotFound)

	reset := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Save(ctx, &stats.UsageStats{TotalImages: 4, TotalRequests: 2, EstimatedCost: 0.536, LastReset: reset}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, got.TotalImages)
	assert.Equal(t, 0.536, got.EstimatedCost)
	assert.True(t, reset.Equal(got.LastReset))
}

func TestRateLimiter(t *testing.T) {
	client, prefix := testClient(t)
	limiter := NewRateLimiter(client, prefix)
	ctx := context.Background()

	allowed, remaining, err := limiter.Allow(ctx, "ip:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 1, remaining)

	allowed, remaining, err = limiter.Allow(ctx, "ip:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Zero(t, remaining)

	allowed, _, err = limiter.Allow(ctx, "ip:1.2.3.4", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, _, err = limiter.Allow(ctx, "ip:5.6.7.8", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
}

// hashTag returns the part of key Redis Cluster hashes to pick a slot.
func hashTag(key string) string {
	start := strings.IndexByte(key, '{')
	if start < 0 {
		return key
	}
	end := strings.IndexByte(key[start+1:], '}')
	if end <= 0 {
		return key
	}
	return key[start+1 : start+1+end]
}

func TestHistoryRepository_KeysShareClusterSlot(t *testing.T) {
	repo := NewHistoryRepository(nil, "thumbfast")

	assert.Equal(t, "history", hashTag(repo.indexKey))
	assert.Equal(t, hashTag(repo.indexKey), hashTag(repo.entriesKey))
	assert.NotEqual(t, repo.indexKey, repo.entriesKey)
}
