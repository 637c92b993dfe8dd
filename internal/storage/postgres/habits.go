package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/julianstephens/habitloop/internal/models"
	"github.com/julianstephens/habitloop/internal/storage"
)

const habitsTable = "habits"

var habitColumns = []string{
	"id", "user_id", "title", "description", "input_text",
	"parsed_data", "completed_at", "streak", "version", "created_at",
}

func (s *Store) AddHabit(ctx context.Context, habit models.Habit) error {
	var completedAt interface{}
	if habit.CompletedAt != nil {
		completedAt = habit.CompletedAt.UTC()
	}

	query, args, err := s.psql.Insert(habitsTable).
		Columns(habitColumns...).
		Values(habit.ID, habit.UserID, habit.Title, habit.Description, habit.InputText,
			habit.ParsedData, completedAt, habit.Streak, habit.Version, habit.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert habit: %w", err)
	}
	return nil
}

func (s *Store) GetHabit(ctx context.Context, id, userID string) (models.Habit, error) {
	query, args, err := s.psql.Select(habitColumns...).
		From(habitsTable).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to build select: %w", err)
	}

	var h models.Habit
	if err := s.db.GetContext(ctx, &h, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Habit{}, storage.ErrNotFound
		}
		return models.Habit{}, fmt.Errorf("failed to get habit: %w", err)
	}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	query, args, err := s.psql.Select(habitColumns...).
		From(habitsTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	habits := []models.Habit{}
	if err := s.db.SelectContext(ctx, &habits, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	return habits, nil
}

func (s *Store) CompleteHabit(ctx context.Context, c storage.Completion) error {
	query, args, err := s.psql.Update(habitsTable).
		Set("completed_at", c.CompletedAt.UTC()).
		Set("streak", c.Streak).
		Set("version", sq.Expr("version + 1")).
		Where(sq.Eq{"id": c.ID}).
		Where(sq.Eq{"user_id": c.UserID}).
		Where(sq.Eq{"version": c.ExpectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 1 {
		return nil
	}

	exists, err := s.exists(ctx, c.ID, c.UserID)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}
	return storage.ErrStaleVersion
}

func (s *Store) exists(ctx context.Context, id, userID string) (bool, error) {
	query, args, err := s.psql.Select("1").
		From(habitsTable).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build select: %w", err)
	}

	var one int
	err = s.db.GetContext(ctx, &one, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check habit: %w", err)
	}
	return true, nil
}

func (s *Store) DeleteHabit(ctx context.Context, id, userID string) error {
	query, args, err := s.psql.Delete(habitsTable).
		Where(sq.Eq{"id": id}).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}
