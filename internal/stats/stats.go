// Package stats computes read-only dashboard figures from a user's habits.
// All windows come from the cycle engine so "completed today" here always
// agrees with whether a completion would be accepted right now.
package stats

import (
	"fmt"
	"sort"
	"time"

	"github.com/julianstephens/habitloop/internal/constants"
	"github.com/julianstephens/habitloop/internal/cycle"
	"github.com/julianstephens/habitloop/internal/models"
	"github.com/julianstephens/habitloop/internal/streak"
)

// Options controls the length of the rolling series.
type Options struct {
	Days  int
	Weeks int
}

// DefaultOptions matches the dashboard: 7 cycles and 4 weekly blocks.
func DefaultOptions() Options {
	return Options{Days: constants.DefaultDailyCycles, Weeks: constants.DefaultWeeklyBlocks}
}

type DayCount struct {
	cycle.Window
	Label string `json:"label"`
	Count int    `json:"count"`
}

type WeekRate struct {
	cycle.Window
	Label       string `json:"label"`
	Completions int    `json:"completions"`
	Rate        int    `json:"rate"`
}

type CategoryCount struct {
	Category constants.Category `json:"category"`
	Count    int                `json:"count"`
	Percent  int                `json:"percent"`
}

// Dashboard is the full set of aggregate figures for one user at one instant.
type Dashboard struct {
	GeneratedAt        time.Time       `json:"generatedAt"`
	Today              cycle.Window    `json:"today"`
	TotalHabits        int             `json:"totalHabits"`
	CompletedToday     int             `json:"completedToday"`
	CompletedYesterday int             `json:"completedYesterday"`
	TodayRate          int             `json:"todayRate"`
	ActiveStreaks      int             `json:"activeStreaks"`
	LongestStreak      int             `json:"longestStreak"`
	Daily              []DayCount      `json:"daily"`
	Weekly             []WeekRate      `json:"weekly"`
	WeeklyAverage      int             `json:"weeklyAverage"`
	Categories         []CategoryCount `json:"categories"`
}

// Compute builds the dashboard for habits as of now.
func Compute(e cycle.Engine, habits []models.Habit, now time.Time, opts Options) Dashboard {
	total := len(habits)
	today := e.Current(now)

	d := Dashboard{
		GeneratedAt:        now,
		Today:              today,
		TotalHabits:        total,
		CompletedToday:     CountIn(habits, today),
		CompletedYesterday: CountIn(habits, e.Previous(now)),
		Daily:              []DayCount{},
		Weekly:             []WeekRate{},
		Categories:         Categories(habits),
	}
	d.TodayRate = Percent(d.CompletedToday, total)

	for _, h := range habits {
		if streak.Alive(e, h.CompletedAt, h.Streak, now) {
			d.ActiveStreaks++
			if h.Streak > d.LongestStreak {
				d.LongestStreak = h.Streak
			}
		}
	}

	for _, w := range e.LastCycles(now, opts.Days) {
		d.Daily = append(d.Daily, DayCount{
			Window: w,
			Label:  w.Start.Weekday().String()[:3],
			Count:  CountIn(habits, w),
		})
	}

	rateSum := 0
	for i, w := range e.LastWeeks(now, opts.Weeks) {
		n := CountIn(habits, w)
		rate := Percent(n, total*constants.CyclesPerWeek)
		rateSum += rate
		d.Weekly = append(d.Weekly, WeekRate{
			Window:      w,
			Label:       fmt.Sprintf("Week %d", i+1),
			Completions: n,
			Rate:        rate,
		})
	}
	d.WeeklyAverage = roundDiv(rateSum, len(d.Weekly))

	return d
}

// CountIn counts habits whose last completion falls inside w.
func CountIn(habits []models.Habit, w cycle.Window) int {
	n := 0
	for _, h := range habits {
		if w.ContainsPtr(h.CompletedAt) {
			n++
		}
	}
	return n
}

// Categories counts habits by the category of their first parsed item,
// largest first, ties broken by name.
func Categories(habits []models.Habit) []CategoryCount {
	counts := make(map[constants.Category]int)
	for _, h := range habits {
		counts[h.Category()]++
	}

	out := make([]CategoryCount, 0, len(counts))
	for c, n := range counts {
		out = append(out, CategoryCount{Category: c, Count: n, Percent: Percent(n, len(habits))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// Percent returns 100*num/den rounded half up. A zero denominator yields 0.
func Percent(num, den int) int {
	return roundDiv(100*num, den)
}

func roundDiv(num, den int) int {
	if den <= 0 || num <= 0 {
		return 0
	}
	return (2*num + den) / (2 * den)
}
