// Package habits implements habit creation, completion, deletion and the
// dashboard on top of a record store and an extraction collaborator.
package habits

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/julianstephens/habitloop/internal/constants"
	"github.com/julianstephens/habitloop/internal/cycle"
	apperrors "github.com/julianstephens/habitloop/internal/errors"
	"github.com/julianstephens/habitloop/internal/extract"
	"github.com/julianstephens/habitloop/internal/logger"
	"github.com/julianstephens/habitloop/internal/models"
	"github.com/julianstephens/habitloop/internal/stats"
	"github.com/julianstephens/habitloop/internal/storage"
	"github.com/julianstephens/habitloop/internal/streak"
)

type Service struct {
	store     storage.Provider
	extractor extract.Extractor
	engine    cycle.Engine
	now       func() time.Time
	newID     func() string
	attempts  int
}

type Option func(*Service)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces uuid generation for new habits.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithCompleteAttempts bounds how often Complete re-reads after losing a
// concurrent update.
func WithCompleteAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

func NewService(store storage.Provider, extractor extract.Extractor, engine cycle.Engine, opts ...Option) *Service {
	s := &Service{
		store:     store,
		extractor: extractor,
		engine:    engine,
		now:       time.Now,
		newID:     uuid.NewString,
		attempts:  constants.MaxCompleteAttempts,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the cycle engine every consumer of this service shares.
func (s *Service) Engine() cycle.Engine {
	return s.engine
}

// CreateResult is the outcome of Create. Habit is nil when the text named no
// habits.
type CreateResult struct {
	Habit *models.Habit       `json:"habit"`
	Items []models.ParsedItem `json:"parsedHabits"`
}

func requireUser(op, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.E(apperrors.KindUnauthenticated, op, "", nil)
	}
	return nil
}

func internalErr(op string, err error) error {
	return apperrors.E(apperrors.KindInternal, op, "", err)
}

// Create extracts habits from inputText and stores one habit for the
// submission, titled after the first item.
func (s *Service) Create(ctx context.Context, userID, inputText string) (CreateResult, error) {
	const op = "habits.Create"
	if err := requireUser(op, userID); err != nil {
		return CreateResult{}, err
	}

	text := strings.TrimSpace(inputText)
	if text == "" {
		return CreateResult{}, apperrors.E(apperrors.KindValidation, op, "input text is required", nil)
	}
	if utf8.RuneCountInString(text) > constants.MaxInputTextLength {
		msg := fmt.Sprintf("input text exceeds %d characters", constants.MaxInputTextLength)
		return CreateResult{}, apperrors.E(apperrors.KindValidation, op, msg, nil)
	}

	items, err := s.extractor.Extract(ctx, text)
	if err != nil {
		if apperrors.KindOf(err) != apperrors.KindUpstreamExtraction {
			err = apperrors.E(apperrors.KindUpstreamExtraction, op, "", err)
		}
		logger.Warn("Habit extraction failed", "user", userID, "error", err)
		return CreateResult{}, err
	}

	items = extract.Normalize(items)
	if len(items) == 0 {
		logger.Debug("No habits detected", "user", userID)
		return CreateResult{Items: items}, nil
	}

	now := s.now()
	habit := models.Habit{
		ID:          s.newID(),
		UserID:      userID,
		Title:       items[0].Activity,
		Description: text,
		InputText:   text,
		ParsedData:  items,
		CompletedAt: &now,
		Streak:      0,
		CreatedAt:   now,
	}
	if err := s.store.AddHabit(ctx, habit); err != nil {
		return CreateResult{}, internalErr(op, err)
	}

	logger.Info("Habit created", "user", userID, "habit", habit.ID, "items", len(items))
	return CreateResult{Habit: &habit, Items: items}, nil
}

// List returns the caller's habits, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.Habit, error) {
	const op = "habits.List"
	if err := requireUser(op, userID); err != nil {
		return nil, err
	}

	habits, err := s.store.ListHabits(ctx, userID)
	if err != nil {
		return nil, internalErr(op, err)
	}
	return habits, nil
}

// Complete records a completion now. The decision is re-made from a fresh
// read whenever the guarded write loses to a concurrent one, so only one
// completion per cycle can succeed.
func (s *Service) Complete(ctx context.Context, userID, id string) (models.Habit, error) {
	const op = "habits.Complete"
	if err := requireUser(op, userID); err != nil {
		return models.Habit{}, err
	}

	for attempt := 1; attempt <= s.attempts; attempt++ {
		habit, err := s.store.GetHabit(ctx, id, userID)
		if err != nil {
			return models.Habit{}, s.storeError(op, err)
		}

		now := s.now()
		next, err := streak.Next(s.engine, habit.CompletedAt, habit.Streak, now)
		if errors.Is(err, streak.ErrAlreadyCompleted) {
			return models.Habit{}, apperrors.E(apperrors.KindConflict, op, "", err)
		}
		if err != nil {
			return models.Habit{}, internalErr(op, err)
		}

		err = s.store.CompleteHabit(ctx, storage.Completion{
			ID:              habit.ID,
			UserID:          userID,
			ExpectedVersion: habit.Version,
			CompletedAt:     next.CompletedAt,
			Streak:          next.Streak,
		})
		if errors.Is(err, storage.ErrStaleVersion) {
			logger.Debug("Completion lost a concurrent update, retrying", "habit", id, "attempt", attempt)
			continue
		}
		if err != nil {
			return models.Habit{}, s.storeError(op, err)
		}

		completedAt := next.CompletedAt
		habit.CompletedAt = &completedAt
		habit.Streak = next.Streak
		habit.Version++
		logger.Info("Habit completed", "user", userID, "habit", id, "streak", habit.Streak)
		return habit, nil
	}

	return models.Habit{}, apperrors.E(apperrors.KindConflict, op, "", storage.ErrStaleVersion)
}

// Delete removes the caller's habit.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	const op = "habits.Delete"
	if err := requireUser(op, userID); err != nil {
		return err
	}

	if err := s.store.DeleteHabit(ctx, id, userID); err != nil {
		return s.storeError(op, err)
	}
	logger.Info("Habit deleted", "user", userID, "habit", id)
	return nil
}

// Dashboard aggregates the caller's habits over the shared cycle engine.
func (s *Service) Dashboard(ctx context.Context, userID string) (stats.Dashboard, error) {
	habits, err := s.List(ctx, userID)
	if err != nil {
		return stats.Dashboard{}, err
	}
	return stats.Compute(s.engine, habits, s.now(), stats.DefaultOptions()), nil
}

func (s *Service) storeError(op string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.E(apperrors.KindNotFound, op, "", err)
	}
	return internalErr(op, err)
}
