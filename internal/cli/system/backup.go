package system

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/charmbracelet/huh"

	"github.com/julianstephens/habitloop/internal/backup"
	"github.com/julianstephens/habitloop/internal/cli"
	"github.com/julianstephens/habitloop/internal/logger"
	"github.com/julianstephens/habitloop/internal/storage/sqlite"
)

var errBackupPostgres = errors.New("backups are only managed for SQLite databases; use pg_dump for PostgreSQL")

type BackupCmd struct {
	Create  BackupCreateCmd  `cmd:"" help:"Snapshot the SQLite database."`
	List    BackupListCmd    `cmd:"" help:"List snapshots, newest first."`
	Restore BackupRestoreCmd `cmd:"" help:"Replace the database with a snapshot."`
}

func backupManager(ctx *cli.Context, keep int) (*backup.Manager, error) {
	store, ok := ctx.Store.(*sqlite.Store)
	if !ok {
		return nil, errBackupPostgres
	}
	return backup.NewManager(store.GetConfigPath(), backup.WithKeep(keep)), nil
}

type BackupCreateCmd struct {
	Keep int `help:"Number of snapshots to keep." default:"14"`
}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx, c.Keep)
	if err != nil {
		return err
	}
	snap, err := mgr.Create(context.Background())
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}
	fmt.Fprintf(ctx.Stdout(), "%s Backup created: %s (%d habits)\n", cli.OKStyle.Render("✓"), filepath.Base(snap.Path), snap.Habits)
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx, 0)
	if err != nil {
		return err
	}
	snaps, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	out := ctx.Stdout()
	if len(snaps) == 0 {
		fmt.Fprintln(out, "No backups found.")
		fmt.Fprintf(out, "Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	fmt.Fprintln(out, cli.TitleStyle.Render(fmt.Sprintf("Backups (%d)", len(snaps))))
	for _, s := range snaps {
		fmt.Fprintf(out, "  %s  %s  (%.1f KB)\n",
			s.Taken.Format("2006-01-02 15:04:05"), filepath.Base(s.Path), float64(s.Size)/1024.0)
	}
	fmt.Fprintf(out, "\n%s %s\n", cli.LabelStyle.Render("Directory"), mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	File string `arg:"" help:"Path or file name of the snapshot to restore."`
	Yes  bool   `short:"y" help:"Skip the confirmation prompt."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr, err := backupManager(ctx, 0)
	if err != nil {
		return err
	}
	path, err := mgr.Resolve(c.File)
	if err != nil {
		return err
	}

	if !c.Yes {
		confirmed := false
		err := huh.NewConfirm().
			Title("Replace the current database?").
			Description(fmt.Sprintf("Restoring %s. Stop any running server first. The current database is saved before it is replaced.", filepath.Base(path))).
			Value(&confirmed).
			Run()
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(ctx.Stdout(), "Restore cancelled.")
			return nil
		}
	}

	if err := ctx.Store.Close(); err != nil {
		logger.Warn("Failed to close database before restore", "error", err)
	}

	snap, err := mgr.Restore(context.Background(), path)
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	fmt.Fprintf(ctx.Stdout(), "%s Restored %s (%d habits)\n", cli.OKStyle.Render("✓"), filepath.Base(snap.Path), snap.Habits)
	return nil
}
