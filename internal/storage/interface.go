package storage

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/habitloop/internal/models"
)

var (
	// ErrNotFound is returned when no habit matches both id and owner.
	ErrNotFound = errors.New("habit not found")
	// ErrStaleVersion is returned by CompleteHabit when the row changed since
	// it was read.
	ErrStaleVersion = errors.New("habit was modified concurrently")
)

// Completion is a guarded write of the completion fields. It only applies
// if the row still carries ExpectedVersion.
type Completion struct {
	ID              string
	UserID          string
	ExpectedVersion int64
	CompletedAt     time.Time
	Streak          int
}

// Provider is the record store. Every read and write is scoped to an owner.
type Provider interface {
	// Lifecycle
	Init(ctx context.Context) error
	Load(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// Habits
	AddHabit(ctx context.Context, habit models.Habit) error
	GetHabit(ctx context.Context, id, userID string) (models.Habit, error)
	// ListHabits returns the owner's habits, newest first.
	ListHabits(ctx context.Context, userID string) ([]models.Habit, error)
	// CompleteHabit sets completed_at and streak and bumps the version. It
	// returns ErrStaleVersion if the version moved and ErrNotFound if the
	// row is absent or owned by someone else.
	CompleteHabit(ctx context.Context, c Completion) error
	// DeleteHabit returns ErrNotFound when zero rows were removed.
	DeleteHabit(ctx context.Context, id, userID string) error

	// Utils
	GetConfigPath() string
}
