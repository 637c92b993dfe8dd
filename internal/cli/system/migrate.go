package system

import (
	"context"
	"fmt"

	"github.com/julianstephens/habitloop/internal/cli"
)

type MigrateCmd struct{}

func (c *MigrateCmd) Run(ctx *cli.Context) error {
	if err := ctx.Store.Init(context.Background()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer ctx.Store.Close()

	fmt.Fprintf(ctx.Stdout(), "%s Database is up to date (%s)\n", cli.OKStyle.Render("✓"), ctx.Store.GetConfigPath())
	return nil
}
