package habits

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitloop/internal/cli"
	"github.com/julianstephens/habitloop/internal/constants"
	habitsvc "github.com/julianstephens/habitloop/internal/habits"
)

type HabitCmd struct {
	Add      HabitAddCmd      `cmd:"" help:"Describe what you did; habits are extracted and saved."`
	List     HabitListCmd     `cmd:"" help:"List habits."`
	Complete HabitCompleteCmd `cmd:"" help:"Mark a habit as done for the current cycle."`
	Delete   HabitDeleteCmd   `cmd:"" help:"Delete a habit."`
}

func loadService(ctx *cli.Context) (*habitsvc.Service, error) {
	if err := ctx.Store.Load(context.Background()); err != nil {
		return nil, err
	}
	return ctx.NewService()
}

type HabitAddCmd struct {
	Text []string `arg:"" optional:"" help:"Free text, e.g. \"ran 5 miles and read 20 pages\". Prompted for when omitted."`
}

func (c *HabitAddCmd) Run(ctx *cli.Context) error {
	text := strings.Join(c.Text, " ")
	if strings.TrimSpace(text) == "" {
		err := huh.NewText().
			Title("What did you do today?").
			CharLimit(constants.MaxInputTextLength).
			Value(&text).
			Run()
		if err != nil {
			return err
		}
	}

	svc, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer ctx.Store.Close()

	res, err := svc.Create(context.Background(), ctx.User, text)
	if err != nil {
		return err
	}

	out := ctx.Stdout()
	if res.Habit == nil {
		fmt.Fprintln(out, "No habits detected.")
		return nil
	}
	fmt.Fprintf(out, "Added habit: %s (%s)\n", cli.ValueStyle.Render(res.Habit.Title), res.Habit.ID)
	for _, item := range res.Items {
		fmt.Fprintf(out, "  %s %g %s [%s]\n", item.Activity, item.Quantity, item.Unit, item.Category)
	}
	return nil
}

type HabitListCmd struct{}

func (c *HabitListCmd) Run(ctx *cli.Context) error {
	svc, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer ctx.Store.Close()

	list, err := svc.List(context.Background(), ctx.User)
	if err != nil {
		return err
	}

	out := ctx.Stdout()
	if len(list) == 0 {
		fmt.Fprintln(out, "No habits found.")
		return nil
	}
	fmt.Fprintln(out, RenderHabits(svc.Engine(), list, now()))
	return nil
}

type HabitCompleteCmd struct {
	ID string `arg:"" help:"Habit id."`
}

func (c *HabitCompleteCmd) Run(ctx *cli.Context) error {
	svc, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer ctx.Store.Close()

	habit, err := svc.Complete(context.Background(), ctx.User, c.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout(), "Completed %s, streak %d\n", cli.ValueStyle.Render(habit.Title), habit.Streak)
	return nil
}

type HabitDeleteCmd struct {
	ID string `arg:"" help:"Habit id."`
}

func (c *HabitDeleteCmd) Run(ctx *cli.Context) error {
	svc, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer ctx.Store.Close()

	if err := svc.Delete(context.Background(), ctx.User, c.ID); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout(), "Deleted habit %s\n", c.ID)
	return nil
}
