package system

import (
	"fmt"

	"github.com/julianstephens/habitloop/internal/cli"
)

type TokenCmd struct {
	Issue TokenIssueCmd `cmd:"" help:"Issue a bearer token for a user id."`
}

type TokenIssueCmd struct {
	UserID string `arg:"" optional:"" help:"User id to embed as the token subject (default: --user)."`
}

func (c *TokenIssueCmd) Run(ctx *cli.Context) error {
	tokens, err := ctx.NewTokens()
	if err != nil {
		return err
	}

	userID := c.UserID
	if userID == "" {
		userID = ctx.User
	}
	raw, expires, err := tokens.Issue(userID)
	if err != nil {
		return err
	}

	out := ctx.Stdout()
	fmt.Fprintln(out, raw)
	fmt.Fprintf(out, "%s %s, expires %s\n", cli.LabelStyle.Render("subject"), userID, expires.Format("2006-01-02 15:04 MST"))
	return nil
}
