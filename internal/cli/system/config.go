package system

import (
	"fmt"

	"github.com/julianstephens/habitloop/internal/cli"
)

type ConfigCmd struct {
	Show ConfigShowCmd `cmd:"" help:"Print the effective configuration with secrets redacted."`
}

type ConfigShowCmd struct{}

func (c *ConfigShowCmd) Run(ctx *cli.Context) error {
	out, err := ctx.Config.YAML()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	_, err = ctx.Stdout().Write(out)
	return err
}
