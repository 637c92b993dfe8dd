package cycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitloop/internal/constants"
)

// ErrInvalidResetHour is returned when a reset hour falls outside [0,23].
var ErrInvalidResetHour = errors.New("reset hour must be between 0 and 23")

// Start returns the most recent instant at resetHour:00:00.000 that is not
// after t, evaluated in t's location.
func Start(t time.Time, resetHour int) time.Time {
	y, m, d := t.Date()
	if t.Hour() < resetHour {
		d--
	}
	return time.Date(y, m, d, resetHour, 0, 0, 0, t.Location())
}

// PreviousStart returns the start of the cycle immediately before the one
// containing t.
func PreviousStart(t time.Time, resetHour int) time.Time {
	return shift(Start(t, resetHour), resetHour, -1)
}

// NextStart returns the end of the cycle containing t.
func NextStart(t time.Time, resetHour int) time.Time {
	return shift(Start(t, resetHour), resetHour, 1)
}

// InWindow reports whether start <= ts < end.
func InWindow(ts, start, end time.Time) bool {
	return !ts.Before(start) && ts.Before(end)
}

// shift moves a cycle start by n calendar days, keeping the wall-clock
// reset hour. Outside DST transitions this is n*24h.
func shift(start time.Time, resetHour, n int) time.Time {
	y, m, d := start.Date()
	return time.Date(y, m, d+n, resetHour, 0, 0, 0, start.Location())
}

// Window is a half-open interval [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	return InWindow(ts, w.Start, w.End)
}

// ContainsPtr is Contains for nullable timestamps; nil is never inside.
func (w Window) ContainsPtr(ts *time.Time) bool {
	return ts != nil && w.Contains(*ts)
}

// Engine binds the reset hour and the location cycles are evaluated in.
type Engine struct {
	resetHour int
	loc       *time.Location
}

// New returns an engine for the given reset hour. A nil location means
// time.Local.
func New(resetHour int, loc *time.Location) (Engine, error) {
	if resetHour < 0 || resetHour > 23 {
		return Engine{}, fmt.Errorf("%w: got %d", ErrInvalidResetHour, resetHour)
	}
	if loc == nil {
		loc = time.Local
	}
	return Engine{resetHour: resetHour, loc: loc}, nil
}

// Default returns the engine used when nothing is configured.
func Default() Engine {
	return Engine{resetHour: constants.DefaultResetHour, loc: time.Local}
}

func (e Engine) ResetHour() int {
	return e.resetHour
}

func (e Engine) Location() *time.Location {
	if e.loc == nil {
		return time.Local
	}
	return e.loc
}

// Start is the package-level Start evaluated in the engine's location.
func (e Engine) Start(t time.Time) time.Time {
	return Start(t.In(e.Location()), e.resetHour)
}

func (e Engine) PreviousStart(t time.Time) time.Time {
	return PreviousStart(t.In(e.Location()), e.resetHour)
}

func (e Engine) NextStart(t time.Time) time.Time {
	return NextStart(t.In(e.Location()), e.resetHour)
}

// Current is the cycle containing now.
func (e Engine) Current(now time.Time) Window {
	start := e.Start(now)
	return Window{Start: start, End: shift(start, e.resetHour, 1)}
}

// Previous is the cycle immediately before the one containing now.
func (e Engine) Previous(now time.Time) Window {
	start := e.Start(now)
	return Window{Start: shift(start, e.resetHour, -1), End: start}
}

// LastCycles returns n consecutive cycles ending with the current one,
// oldest first.
func (e Engine) LastCycles(now time.Time, n int) []Window {
	return e.blocks(now, n, 1)
}

// LastWeeks returns m consecutive 7-cycle blocks, oldest first. The newest
// block ends where the current cycle ends.
func (e Engine) LastWeeks(now time.Time, m int) []Window {
	return e.blocks(now, m, constants.CyclesPerWeek)
}

func (e Engine) blocks(now time.Time, count, size int) []Window {
	if count <= 0 || size <= 0 {
		return nil
	}

	end := shift(e.Start(now), e.resetHour, 1)
	windows := make([]Window, count)
	for i := count - 1; i >= 0; i-- {
		start := shift(end, e.resetHour, -size)
		windows[i] = Window{Start: start, End: end}
		end = start
	}
	return windows
}
