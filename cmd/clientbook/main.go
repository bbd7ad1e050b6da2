package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/dukerupert/clientbook/internal/cli"
	"github.com/dukerupert/clientbook/internal/config"
	"github.com/dukerupert/clientbook/internal/logging"
)

var version = "dev"

var CLI struct {
	Version  kong.VersionFlag
	Config   string `help:"Config file path." type:"path" default:"clientbook.yaml" env:"CLIENTBOOK_CONFIG"`
	LogLevel string `help:"Log level (debug, info, warn, error). Overrides the config file." placeholder:"LEVEL"`

	Serve       cli.ServeCmd       `cmd:"" help:"Run the HTTP server and background jobs." default:"1"`
	Agenda      cli.AgendaCmd      `cmd:"" help:"Print the resolved schedule."`
	Tasks       cli.TasksCmd       `cmd:"" help:"Print the daily task queue."`
	Receivables cli.ReceivablesCmd `cmd:"" help:"Print open receivables ranked by risk."`
	Backup      cli.BackupCmd      `cmd:"" help:"Manage encrypted backups."`
	Vapid       cli.VapidCmd       `cmd:"" help:"Generate a VAPID key pair for push notifications."`
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("clientbook"),
		kong.Description("Recurring client schedule, receivables and daily task queue"),
		kong.UsageOnError(),
		kong.Vars{"version": version},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if CLI.LogLevel != "" {
		cfg.Log.Level = CLI.LogLevel
	}

	logger, closeLog := logging.Setup(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	defer closeLog()

	err = kctx.Run(&cli.Context{Config: cfg, Logger: logger, Out: os.Stdout})
	if err != nil {
		logger.Error("command failed", "command", kctx.Command(), "error", err)
		closeLog()
		os.Exit(1)
	}
}
