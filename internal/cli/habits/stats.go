package habits

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/julianstephens/habitloop/internal/cli"
)

type StatsCmd struct {
	JSON bool `help:"Print the dashboard as JSON."`
}

func (c *StatsCmd) Run(ctx *cli.Context) error {
	svc, err := loadService(ctx)
	if err != nil {
		return err
	}
	defer ctx.Store.Close()

	dashboard, err := svc.Dashboard(context.Background(), ctx.User)
	if err != nil {
		return err
	}

	out := ctx.Stdout()
	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(dashboard)
	}
	fmt.Fprintln(out, RenderDashboard(dashboard))
	return nil
}
