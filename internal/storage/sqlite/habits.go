package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitloop/internal/constants"
	"github.com/julianstephens/habitloop/internal/models"
	"github.com/julianstephens/habitloop/internal/storage"
)

const habitColumns = `id, user_id, title, description, input_text, parsed_data, completed_at, streak, version, created_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(constants.TimestampFormat)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func scanHabit(row rowScanner) (models.Habit, error) {
	var h models.Habit
	var createdAt string
	var completedAt sql.NullString

	err := row.Scan(&h.ID, &h.UserID, &h.Title, &h.Description, &h.InputText,
		&h.ParsedData, &completedAt, &h.Streak, &h.Version, &createdAt)
	if err != nil {
		return models.Habit{}, err
	}

	h.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse created_at for habit %s: %w", h.ID, err)
	}
	if completedAt.Valid {
		t, err := parseTime(completedAt.String)
		if err != nil {
			return models.Habit{}, fmt.Errorf("failed to parse completed_at for habit %s: %w", h.ID, err)
		}
		h.CompletedAt = &t
	}

	return h, nil
}

func (s *Store) AddHabit(ctx context.Context, habit models.Habit) error {
	var completedAt sql.NullString
	if habit.CompletedAt != nil {
		completedAt = sql.NullString{String: formatTime(*habit.CompletedAt), Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO habits (`+habitColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		habit.ID, habit.UserID, habit.Title, habit.Description, habit.InputText,
		habit.ParsedData, completedAt, habit.Streak, habit.Version, formatTime(habit.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert habit: %w", err)
	}
	return nil
}

func (s *Store) GetHabit(ctx context.Context, id, userID string) (models.Habit, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+habitColumns+`
		FROM habits WHERE id = ? AND user_id = ?`, id, userID)

	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, storage.ErrNotFound
	}
	if err != nil {
		return models.Habit{}, err
	}
	return h, nil
}

func (s *Store) ListHabits(ctx context.Context, userID string) ([]models.Habit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+habitColumns+`
		FROM habits WHERE user_id = ?
		ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query habits: %w", err)
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

func (s *Store) CompleteHabit(ctx context.Context, c storage.Completion) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE habits SET completed_at = ?, streak = ?, version = version + 1
		WHERE id = ? AND user_id = ? AND version = ?`,
		formatTime(c.CompletedAt), c.Streak, c.ID, c.UserID, c.ExpectedVersion)
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

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM habits WHERE id = ? AND user_id = ?`, c.ID, c.UserID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	if err != nil {
		return err
	}
	return storage.ErrStaleVersion
}

func (s *Store) DeleteHabit(ctx context.Context, id, userID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM habits WHERE id = ? AND user_id = ?`, id, userID)
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
