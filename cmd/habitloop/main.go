package main

import (
	"github.com/alecthomas/kong"

	"github.com/julianstephens/habitloop/internal/cli"
	"github.com/julianstephens/habitloop/internal/cli/habits"
	"github.com/julianstephens/habitloop/internal/cli/system"
	"github.com/julianstephens/habitloop/internal/config"
	"github.com/julianstephens/habitloop/internal/constants"
	"github.com/julianstephens/habitloop/internal/errors"
	"github.com/julianstephens/habitloop/internal/logger"
	"github.com/julianstephens/habitloop/internal/utils"
)

var CLI struct {
	Version    kong.VersionFlag
	ConfigFile string `name:"config" help:"Config file path (default ~/.config/habitloop/config.yaml)." type:"string" default:""`
	DSN        string `help:"SQLite file path or PostgreSQL connection string (overrides database.dsn). Credentials must NOT be embedded; use the OS keyring or .pgpass instead." default:""`
	User       string `help:"User id local commands act as (default: OS user)." env:"HABITLOOP_USER" default:""`
	Debug      bool   `help:"Enable debug logging."`

	Serve   system.ServeCmd   `cmd:"" help:"Run the HTTP API."`
	Migrate system.MigrateCmd `cmd:"" help:"Create or upgrade the database schema."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Token   system.TokenCmd   `cmd:"" help:"Manage API tokens."`
	Config  system.ConfigCmd  `cmd:"" help:"Inspect configuration."`
	Secret  system.SecretCmd  `cmd:"" help:"Manage secrets in the OS keyring."`
	Backup  system.BackupCmd  `cmd:"" help:"Snapshot or restore the SQLite database."`
	Habit   habits.HabitCmd   `cmd:"" help:"Manage habits."`
	Stats   habits.StatsCmd   `cmd:"" help:"Show the habit dashboard."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name(constants.AppName),
		kong.Description("Habit tracking with free-text entry and daily streaks"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(CLI.ConfigFile)
	if err != nil {
		errors.Fatal(err)
	}
	if CLI.Debug {
		cfg.Log.Debug = true
	}
	if CLI.DSN != "" {
		cfg.Database.DSN = CLI.DSN
	}

	logDir, err := utils.ExpandPath(cfg.Log.Dir)
	if err != nil {
		errors.Fatal(err)
	}
	if err := logger.Init(logger.Config{Debug: cfg.Log.Debug, Dir: logDir, Format: cfg.Log.Format}); err != nil {
		errors.Fatal(err)
	}

	dsn := cli.ResolveDSN(cfg.Database.DSN)
	store, err := cli.OpenStore(dsn, dsn != cfg.Database.DSN)
	if err != nil {
		errors.Fatal(err)
	}

	user, err := cli.CurrentUser(CLI.User)
	if err != nil {
		errors.Fatal(err)
	}

	appCtx := &cli.Context{
		Config: cfg,
		Store:  store,
		User:   user,
	}

	errors.Fatal(ctx.Run(appCtx))
}
