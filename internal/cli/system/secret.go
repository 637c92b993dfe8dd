package system

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitloop/internal/cli"
	"github.com/julianstephens/habitloop/internal/keyring"
	"github.com/julianstephens/habitloop/internal/storage/postgres"
)

type SecretCmd struct {
	Set    SecretSetCmd    `cmd:"" help:"Store a secret in the OS keyring."`
	Delete SecretDeleteCmd `cmd:"" help:"Remove a secret from the OS keyring."`
}

type SecretSetCmd struct {
	Name  string `arg:"" enum:"jwt-secret,extract-api-key,database-dsn" help:"Secret name: jwt-secret, extract-api-key or database-dsn."`
	Value string `arg:"" optional:"" help:"Secret value. Prompted for when omitted."`
}

func (c *SecretSetCmd) Run(ctx *cli.Context) error {
	name := keyring.Secret(c.Name)
	value := c.Value
	if value == "" {
		err := huh.NewInput().
			Title(fmt.Sprintf("Value for %s", name)).
			EchoMode(huh.EchoModePassword).
			Value(&value).
			Run()
		if err != nil {
			return err
		}
	}
	value = strings.TrimSpace(value)

	if name == keyring.DatabaseDSN {
		if _, err := postgres.ValidateConnString(value); err != nil && !errors.Is(err, postgres.ErrEmbeddedCredentials) {
			return fmt.Errorf("invalid connection string: %w", err)
		}
	}

	if err := keyring.Set(name, value); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout(), "%s %s stored in OS keyring\n", cli.OKStyle.Render("✓"), name)
	return nil
}

type SecretDeleteCmd struct {
	Name string `arg:"" enum:"jwt-secret,extract-api-key,database-dsn" help:"Secret name."`
}

func (c *SecretDeleteCmd) Run(ctx *cli.Context) error {
	name := keyring.Secret(c.Name)
	if err := keyring.Delete(name); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("no %s found in keyring", name)
		}
		return err
	}
	fmt.Fprintf(ctx.Stdout(), "%s %s removed from OS keyring\n", cli.OKStyle.Render("✓"), name)
	return nil
}
