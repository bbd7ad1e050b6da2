// Package cli implements the clientbook subcommands.
package cli

import (
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/config"
	"github.com/dukerupert/clientbook/internal/database"
	"github.com/dukerupert/clientbook/internal/server"
)

// Context is passed to every command's Run method.
type Context struct {
	Config *config.Config
	Logger *slog.Logger
	Out    io.Writer
	Now    func() time.Time
}

// open connects to the database and builds a server with the persisted
// overrides applied.
func (c *Context) open() (*sql.DB, *server.Server, error) {
	db, err := database.Open(c.Config.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	srv := server.New(db, c.Config, c.Logger)
	if err := srv.LoadOverrides(c.now()); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("load overrides: %w", err)
	}
	return db, srv, nil
}

func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// parseDate accepts YYYY-MM-DD, "today" or "tomorrow".
func parseDate(s string, now time.Time) (time.Time, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return clock.StartOfDay(now), nil
	case "tomorrow":
		return clock.StartOfDay(now).AddDate(0, 0, 1), nil
	}
	d, err := clock.ParseDateKey(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use YYYY-MM-DD, today or tomorrow", s)
	}
	return d, nil
}
