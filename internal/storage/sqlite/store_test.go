package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitloop/internal/constants"
	"github.com/julianstephens/habitloop/internal/models"
	"github.com/julianstephens/habitloop/internal/storage"
)

var _ storage.Provider = (*Store)(nil)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, store.Init(context.Background()))
	t.Cleanup(func() { store.Close() })
	return store
}

func newHabit(id, userID string, createdAt time.Time) models.Habit {
	return models.Habit{
		ID:          id,
		UserID:      userID,
		Title:       "running",
		Description: "ran 5 miles",
		InputText:   "ran 5 miles",
		ParsedData: models.ParsedItems{
			{Activity: "running", Quantity: 5, Unit: "miles", Category: constants.CategoryFitness, Confidence: 0.95},
		},
		CompletedAt: &createdAt,
		CreatedAt:   createdAt,
	}
}

func TestLoadRequiresInit(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	err := store.Load(context.Background())
	assert.ErrorContains(t, err, "not initialized")
}

func TestInitIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")

	store := NewStore(path)
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.Init(ctx))
	require.NoError(t, store.Close())

	reopened := NewStore(path)
	require.NoError(t, reopened.Load(ctx))
	defer reopened.Close()
	assert.NoError(t, reopened.Ping(ctx))
	assert.Equal(t, path, reopened.GetConfigPath())
}

func TestAddAndGetHabit(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	created := time.Date(2024, 1, 10, 6, 30, 15, 123456789, time.UTC)

	require.NoError(t, store.AddHabit(ctx, newHabit("h1", "alice", created)))

	got, err := store.GetHabit(ctx, "h1", "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UserID)
	assert.Equal(t, "running", got.Title)
	assert.True(t, got.CreatedAt.Equal(created))
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(created))
	require.Len(t, got.ParsedData, 1)
	assert.Equal(t, constants.CategoryFitness, got.ParsedData[0].Category)
	assert.Zero(t, got.Streak)
	assert.Zero(t, got.Version)

	_, err = store.GetHabit(ctx, "h1", "mallory")
	assert.ErrorIs(t, err, storage.ErrNotFound, "other owners cannot read")

	_, err = store.GetHabit(ctx, "nope", "alice")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestAddHabitNeverCompleted(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	h := newHabit("h1", "alice", time.Now())
	h.CompletedAt = nil
	h.ParsedData = nil
	require.NoError(t, store.AddHabit(ctx, h))

	got, err := store.GetHabit(ctx, "h1", "alice")
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)
	assert.Empty(t, got.ParsedData)
}

func TestListHabits(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	base := time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)

	require.NoError(t, store.AddHabit(ctx, newHabit("old", "alice", base)))
	require.NoError(t, store.AddHabit(ctx, newHabit("new", "alice", base.Add(time.Hour))))
	require.NoError(t, store.AddHabit(ctx, newHabit("sub-second", "alice", base.Add(500*time.Millisecond))))
	require.NoError(t, store.AddHabit(ctx, newHabit("bob", "bob", base)))

	habits, err := store.ListHabits(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, habits, 3)
	assert.Equal(t, "new", habits[0].ID)
	assert.Equal(t, "sub-second", habits[1].ID)
	assert.Equal(t, "old", habits[2].ID)

	empty, err := store.ListHabits(ctx, "carol")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestCompleteHabit(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	created := time.Date(2024, 1, 9, 7, 0, 0, 0, time.UTC)
	require.NoError(t, store.AddHabit(ctx, newHabit("h1", "alice", created)))

	now := time.Date(2024, 1, 10, 6, 0, 0, 0, time.UTC)
	err := store.CompleteHabit(ctx, storage.Completion{
		ID: "h1", UserID: "alice", ExpectedVersion: 0, CompletedAt: now, Streak: 1,
	})
	require.NoError(t, err)

	got, err := store.GetHabit(ctx, "h1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Streak)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, got.CompletedAt.Equal(now))

	err = store.CompleteHabit(ctx, storage.Completion{
		ID: "h1", UserID: "alice", ExpectedVersion: 0, CompletedAt: now, Streak: 2,
	})
	assert.ErrorIs(t, err, storage.ErrStaleVersion)

	err = store.CompleteHabit(ctx, storage.Completion{
		ID: "h1", UserID: "mallory", ExpectedVersion: 1, CompletedAt: now, Streak: 2,
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err = store.GetHabit(ctx, "h1", "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Streak, "rejected writes leave the row untouched")
}

func TestCompleteHabitConcurrentWritersSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AddHabit(ctx, newHabit("h1", "alice", time.Now().Add(-48*time.Hour))))

	const writers = 16
	var wg sync.WaitGroup
	results := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- store.CompleteHabit(ctx, storage.Completion{
				ID: "h1", UserID: "alice", ExpectedVersion: 0, CompletedAt: time.Now(), Streak: 1,
			})
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, storage.ErrStaleVersion)
	}
	assert.Equal(t, 1, wins)
}

func TestDeleteHabit(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	require.NoError(t, store.AddHabit(ctx, newHabit("h1", "alice", time.Now())))

	// Scenario E: another owner deletes nothing.
	assert.ErrorIs(t, store.DeleteHabit(ctx, "h1", "mallory"), storage.ErrNotFound)
	_, err := store.GetHabit(ctx, "h1", "alice")
	require.NoError(t, err)

	require.NoError(t, store.DeleteHabit(ctx, "h1", "alice"))
	assert.ErrorIs(t, store.DeleteHabit(ctx, "h1", "alice"), storage.ErrNotFound)
}
