package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func entryAt(i int) *Entry {
	return &Entry{
		ID:        fmt.Sprintf("entry-%02d", i),
		Timestamp: base.Add(time.Duration(i) * time.Minute),
		Prompt:    fmt.Sprintf("prompt %d", i),
		Settings:  Settings{Model: "gemini-2.5-flash-image", Modes: []string{"thumbnail"}, Grid: 1, Count: 1},
		Images:    []Image{{Data: []byte{byte(i)}, MediaType: "image/png"}},
	}
}

func newTestService(repo Repository) *Service {
	return NewService(&ServiceConfig{Repository: repo})
}

func fill(t *testing.T, s *Service, n int) {
	t.Helper()
	for i := range n {
		require.NoError(t, s.Add(context.Background(), entryAt(i)))
	}
}

func TestAdd_EvictsOldestAtCap(t *testing.T) {
	s := newTestService(NewMemoryRepository())
	fill(t, s, DefaultMaxEntries)
	require.Len(t, s.GetAll(context.Background()), DefaultMaxEntries)

	require.NoError(t, s.Add(context.Background(), entryAt(100)))

	all := s.GetAll(context.Background())
	assert.Len(t, all, DefaultMaxEntries)
	assert.Equal(t, "entry-100", all[0].ID)
	for _, e := range all {
		assert.NotEqual(t, "entry-00", e.ID)
	}
}

func TestAdd_NeverExceedsCap(t *testing.T) {
	s := NewService(&ServiceConfig{Repository: NewMemoryRepository(), MaxEntries: 5})

	for i := range 12 {
		require.NoError(t, s.Add(context.Background(), entryAt(i)))
		assert.LessOrEqual(t, len(s.GetAll(context.Background())), 5)
	}

	all := s.GetAll(context.Background())
	require.Len(t, all, 5)
	assert.Equal(t, "entry-11", all[0].ID)
	assert.Equal(t, "entry-07", all[4].ID)
}

func TestAdd_FillsIDAndTimestamp(t *testing.T) {
	s := newTestService(NewMemoryRepository())
	s.now = func() time.Time { return base.Add(1500 * time.Microsecond) }

	e := &Entry{Prompt: "no id"}
	require.NoError(t, s.Add(context.Background(), e))

	assert.NotEmpty(t, e.ID)
	assert.Equal(t, base.Add(time.Millisecond), e.Timestamp)
}

func TestAdd_Nil(t *testing.T) {
	assert.Error(t, newTestService(NewMemoryRepository()).Add(context.Background(), nil))
}

func TestGetAll_NewestFirst(t *testing.T) {
	s := newTestService(NewMemoryRepository())
	for _, i := range []int{3, 1, 4, 1, 5, 9, 2, 6} {
		e := entryAt(i)
		e.ID = fmt.Sprintf("%s-%d", e.ID, time.Now().UnixNano())
		require.NoError(t, s.Add(context.Background(), e))
	}

	all := s.GetAll(context.Background())
	require.Len(t, all, 8)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Timestamp.After(all[i-1].Timestamp), "index %d", i)
	}
}

func TestGetAll_UnavailableStoreReadsEmpty(t *testing.T) {
	s := newTestService(Unavailable(errors.New("quota exceeded")))

	all := s.GetAll(context.Background())
	assert.NotNil(t, all)
	assert.Empty(t, all)

	err := s.Add(context.Background(), entryAt(1))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestGetRemoveClear(t *testing.T) {
	s := newTestService(NewMemoryRepository())
	fill(t, s, 3)

	got, err := s.Get(context.Background(), "entry-01")
	require.NoError(t, err)
	assert.Equal(t, "prompt 1", got.Prompt)

	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Remove(context.Background(), "entry-01"))
	require.NoError(t, s.Remove(context.Background(), "entry-01"))
	assert.Len(t, s.GetAll(context.Background()), 2)

	require.NoError(t, s.Clear(context.Background()))
	assert.Empty(t, s.GetAll(context.Background()))
}

func TestAdd_ConcurrentRespectsCap(t *testing.T) {
	s := NewService(&ServiceConfig{Repository: NewMemoryRepository(), MaxEntries: 10})

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Add(context.Background(), entryAt(i)))
		}()
	}

	stop := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
				assert.LessOrEqual(t, len(s.GetAll(context.Background())), 10)
			}
		}
	}()

	wg.Wait()
	close(stop)
	readers.Wait()

	assert.Len(t, s.GetAll(context.Background()), 10)
}
