package habits

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/habitloop/internal/cli"
	"github.com/julianstephens/habitloop/internal/cycle"
	"github.com/julianstephens/habitloop/internal/models"
	"github.com/julianstephens/habitloop/internal/stats"
	"github.com/julianstephens/habitloop/internal/streak"
)

const barWidth = 20

var now = time.Now

func bar(value, max int) string {
	if max <= 0 || value <= 0 {
		return ""
	}
	n := value * barWidth / max
	if n == 0 {
		n = 1
	}
	return cli.BarStyle.Render(strings.Repeat("█", n))
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, cli.LabelStyle.Render(label), value)
}

// RenderHabits lists habits with their state in the cycle containing at.
func RenderHabits(e cycle.Engine, list []models.Habit, at time.Time) string {
	var lines []string
	for _, h := range list {
		mark := " "
		switch streak.StateOf(e, h.CompletedAt, at) {
		case streak.CompletedThisCycle:
			mark = cli.OKStyle.Render("✓")
		case streak.CompletedBeforeThisCycle:
			mark = cli.WarnStyle.Render("·")
		}
		lines = append(lines, fmt.Sprintf("%s %s  %s  streak %d  [%s]",
			mark, h.ID, cli.ValueStyle.Render(h.Title), h.Streak, h.Category()))
	}
	return strings.Join(lines, "\n")
}

// RenderDashboard formats the dashboard for a terminal.
func RenderDashboard(d stats.Dashboard) string {
	summary := strings.Join([]string{
		row("Habits", cli.ValueStyle.Render(fmt.Sprint(d.TotalHabits))),
		row("Today", cli.ValueStyle.Render(fmt.Sprintf("%d (%d%%)", d.CompletedToday, d.TodayRate))),
		row("Yesterday", cli.ValueStyle.Render(fmt.Sprint(d.CompletedYesterday))),
		row("Streaks", cli.ValueStyle.Render(fmt.Sprintf("%d active, longest %d", d.ActiveStreaks, d.LongestStreak))),
		row("Weekly avg", cli.ValueStyle.Render(fmt.Sprintf("%d%%", d.WeeklyAverage))),
	}, "\n")

	maxDaily := 0
	for _, day := range d.Daily {
		if day.Count > maxDaily {
			maxDaily = day.Count
		}
	}
	daily := []string{cli.TitleStyle.Render("Last 7 cycles")}
	for _, day := range d.Daily {
		daily = append(daily, row(day.Label, fmt.Sprintf("%-3d %s", day.Count, bar(day.Count, maxDaily))))
	}

	weekly := []string{cli.TitleStyle.Render("Weekly completion")}
	for _, w := range d.Weekly {
		weekly = append(weekly, row(w.Label, fmt.Sprintf("%3d%% %s", w.Rate, bar(w.Rate, 100))))
	}

	sections := []string{
		cli.BoxStyle.Render(summary),
		strings.Join(daily, "\n"),
		strings.Join(weekly, "\n"),
	}

	if len(d.Categories) > 0 {
		cats := []string{cli.TitleStyle.Render("Categories")}
		for _, c := range d.Categories {
			cats = append(cats, row(string(c.Category), fmt.Sprintf("%d (%d%%)", c.Count, c.Percent)))
		}
		sections = append(sections, strings.Join(cats, "\n"))
	}

	return strings.Join(sections, "\n\n")
}
