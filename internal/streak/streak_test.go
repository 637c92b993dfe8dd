package streak

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/habitloop/internal/cycle"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time {
	return &t
}

func engine(t *testing.T) cycle.Engine {
	t.Helper()
	e, err := cycle.New(5, time.UTC)
	require.NoError(t, err)
	return e
}

func TestStateOf(t *testing.T) {
	e := engine(t)
	now := at(2024, 1, 10, 6, 0)

	assert.Equal(t, NeverCompleted, StateOf(e, nil, now))
	assert.Equal(t, CompletedThisCycle, StateOf(e, ptr(at(2024, 1, 10, 5, 0)), now))
	assert.Equal(t, CompletedBeforeThisCycle, StateOf(e, ptr(at(2024, 1, 10, 4, 59)), now))
	assert.Equal(t, "completed_this_cycle", CompletedThisCycle.String())
}

func TestNext(t *testing.T) {
	e := engine(t)

	tests := []struct {
		name        string
		now         time.Time
		completedAt *time.Time
		streak      int
		want        Result
		wantErr     error
	}{
		{
			name:   "first ever completion",
			now:    at(2024, 1, 10, 6, 0),
			streak: 0,
			want:   Result{CompletedAt: at(2024, 1, 10, 6, 0), Streak: 1},
		},
		{
			name:        "scenario A: completed after cycle start is a conflict",
			now:         at(2024, 1, 10, 4, 0),
			completedAt: ptr(at(2024, 1, 9, 6, 0)),
			streak:      2,
			wantErr:     ErrAlreadyCompleted,
		},
		{
			name:        "scenario B: previous cycle increments",
			now:         at(2024, 1, 10, 6, 0),
			completedAt: ptr(at(2024, 1, 9, 7, 0)),
			streak:      3,
			want:        Result{CompletedAt: at(2024, 1, 10, 6, 0), Streak: 4},
		},
		{
			name:        "scenario C: gap of two cycles resets",
			now:         at(2024, 1, 10, 6, 0),
			completedAt: ptr(at(2024, 1, 7, 9, 0)),
			streak:      5,
			want:        Result{CompletedAt: at(2024, 1, 10, 6, 0), Streak: 1},
		},
		{
			name:        "previous cycle start is inclusive",
			now:         at(2024, 1, 10, 6, 0),
			completedAt: ptr(at(2024, 1, 9, 5, 0)),
			streak:      1,
			want:        Result{CompletedAt: at(2024, 1, 10, 6, 0), Streak: 2},
		},
		{
			name:        "just before previous cycle start resets",
			now:         at(2024, 1, 10, 6, 0),
			completedAt: ptr(at(2024, 1, 9, 5, 0).Add(-time.Nanosecond)),
			streak:      9,
			want:        Result{CompletedAt: at(2024, 1, 10, 6, 0), Streak: 1},
		},
		{
			name:        "late night completion counts for the previous cycle",
			now:         at(2024, 1, 10, 5, 30),
			completedAt: ptr(at(2024, 1, 10, 3, 0)),
			streak:      6,
			want:        Result{CompletedAt: at(2024, 1, 10, 5, 30), Streak: 7},
		},
		{
			name:        "created this cycle with zero streak is still a conflict",
			now:         at(2024, 1, 10, 8, 0),
			completedAt: ptr(at(2024, 1, 10, 7, 0)),
			streak:      0,
			wantErr:     ErrAlreadyCompleted,
		},
		{
			name:        "created yesterday begins streak at one",
			now:         at(2024, 1, 10, 8, 0),
			completedAt: ptr(at(2024, 1, 9, 20, 0)),
			streak:      0,
			want:        Result{CompletedAt: at(2024, 1, 10, 8, 0), Streak: 1},
		},
		{
			name:        "negative stored streak is treated as zero",
			now:         at(2024, 1, 10, 8, 0),
			completedAt: ptr(at(2024, 1, 9, 20, 0)),
			streak:      -4,
			want:        Result{CompletedAt: at(2024, 1, 10, 8, 0), Streak: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Next(e, tt.completedAt, tt.streak, tt.now)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, Result{}, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextConsecutiveRun(t *testing.T) {
	e := engine(t)
	var completedAt *time.Time
	streak := 0

	// One completion per cycle at varying times of day keeps the run going.
	times := []time.Time{
		at(2024, 1, 1, 23, 0),
		at(2024, 1, 3, 4, 59),
		at(2024, 1, 3, 5, 0),
		at(2024, 1, 4, 12, 0),
		at(2024, 1, 5, 6, 0),
	}
	for i, now := range times {
		res, err := Next(e, completedAt, streak, now)
		require.NoError(t, err, "completion %d", i)
		completedAt, streak = ptr(res.CompletedAt), res.Streak
		assert.Equal(t, i+1, streak)

		_, err = Next(e, completedAt, streak, now)
		assert.ErrorIs(t, err, ErrAlreadyCompleted)
	}
}

func TestAlive(t *testing.T) {
	e := engine(t)
	now := at(2024, 1, 10, 6, 0)

	assert.True(t, Alive(e, ptr(at(2024, 1, 10, 5, 30)), 1, now))
	assert.True(t, Alive(e, ptr(at(2024, 1, 9, 5, 0)), 3, now))
	assert.False(t, Alive(e, ptr(at(2024, 1, 9, 4, 59)), 3, now))
	assert.False(t, Alive(e, ptr(at(2024, 1, 10, 5, 30)), 0, now))
	assert.False(t, Alive(e, nil, 2, now))
}
