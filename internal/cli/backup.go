package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dukerupert/clientbook/internal/database"
	"github.com/dukerupert/clientbook/internal/server"
)

type BackupCmd struct {
	Run     BackupRunCmd     `cmd:"" help:"Take an encrypted backup now."`
	List    BackupListCmd    `cmd:"" help:"List recent backups."`
	Restore BackupRestoreCmd `cmd:"" help:"Download and decrypt a backup into a database file."`
}

type BackupRunCmd struct{}

func (c *BackupRunCmd) Run(ctx *Context) error {
	db, err := database.Open(ctx.Config.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	id, err := server.New(db, ctx.Config, ctx.Logger).BackupManager().RunNow(runCtx)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "backup %d completed\n", id)
	return nil
}

type BackupListCmd struct {
	Limit int `short:"n" help:"Maximum number of backups to show." default:"20"`
}

func (c *BackupListCmd) Run(ctx *Context) error {
	db, err := database.Open(ctx.Config.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	list, err := server.New(db, ctx.Config, ctx.Logger).BackupManager().List(c.Limit)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(ctx.Out, "no backups")
		return nil
	}

	tw := tabwriter.NewWriter(ctx.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCREATED\tSTATUS\tSIZE\tFILE")
	for _, b := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", b.ID, b.CreatedAt.Local().Format(time.DateTime), b.Status, b.SizeBytes, b.Filename)
	}
	return tw.Flush()
}

type BackupRestoreCmd struct {
	ID   int64  `arg:"" help:"Backup id."`
	Dest string `arg:"" help:"Path of the database file to write." type:"path"`
}

func (c *BackupRestoreCmd) Run(ctx *Context) error {
	db, err := database.Open(ctx.Config.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	runCtx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := server.New(db, ctx.Config, ctx.Logger).BackupManager().Restore(runCtx, c.ID, c.Dest); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Out, "backup %d restored to %s\n", c.ID, c.Dest)
	return nil
}
