package system

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/julianstephens/habitloop/internal/cli"
	"github.com/julianstephens/habitloop/internal/server"
)

type ServeCmd struct {
	Addr string `help:"Listen address (overrides server.addr)." default:""`
}

func (c *ServeCmd) Run(ctx *cli.Context) error {
	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ctx.Store.Load(runCtx); err != nil {
		return err
	}
	defer ctx.Store.Close()

	svc, err := ctx.NewService()
	if err != nil {
		return err
	}
	tokens, err := ctx.NewTokens()
	if err != nil {
		return err
	}

	addr := c.Addr
	if addr == "" {
		addr = ctx.Config.Server.Addr
	}
	if err := server.NewServer(svc, tokens).Run(runCtx, addr); err != nil {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}
