// Package streak decides whether a habit may be completed now and how its
// streak counter moves when it is.
package streak

import (
	"errors"
	"time"

	"github.com/julianstephens/habitloop/internal/cycle"
)

// ErrAlreadyCompleted is returned when the habit was already completed in
// the cycle containing now.
var ErrAlreadyCompleted = errors.New("habit already completed in this cycle")

// State is a habit's completion state relative to a given instant.
type State int

const (
	NeverCompleted State = iota
	CompletedThisCycle
	CompletedBeforeThisCycle
)

func (s State) String() string {
	switch s {
	case NeverCompleted:
		return "never_completed"
	case CompletedThisCycle:
		return "completed_this_cycle"
	case CompletedBeforeThisCycle:
		return "completed_before_this_cycle"
	default:
		return "unknown"
	}
}

// StateOf classifies completedAt against the cycle containing now.
func StateOf(e cycle.Engine, completedAt *time.Time, now time.Time) State {
	if completedAt == nil {
		return NeverCompleted
	}
	if !completedAt.Before(e.Start(now)) {
		return CompletedThisCycle
	}
	return CompletedBeforeThisCycle
}

// Result is the state a habit moves to after a successful completion.
type Result struct {
	CompletedAt time.Time
	Streak      int
}

// Next applies one completion at now. It returns ErrAlreadyCompleted, and
// no result, when the habit is already completed this cycle.
func Next(e cycle.Engine, completedAt *time.Time, current int, now time.Time) (Result, error) {
	if current < 0 {
		current = 0
	}

	switch StateOf(e, completedAt, now) {
	case CompletedThisCycle:
		return Result{}, ErrAlreadyCompleted
	case NeverCompleted:
		return Result{CompletedAt: now, Streak: 1}, nil
	}

	if e.Previous(now).Contains(*completedAt) {
		return Result{CompletedAt: now, Streak: current + 1}, nil
	}
	return Result{CompletedAt: now, Streak: 1}, nil
}

// Alive reports whether a streak would still continue if the habit were
// completed now, i.e. it was last completed in this cycle or the previous one.
func Alive(e cycle.Engine, completedAt *time.Time, current int, now time.Time) bool {
	return current >= 1 && completedAt != nil && !completedAt.Before(e.PreviousStart(now))
}
