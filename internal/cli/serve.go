package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/clientbook/internal/database"
	"github.com/dukerupert/clientbook/internal/server"
)

type ServeCmd struct {
	Listen string `help:"Address to listen on. Overrides the config file." placeholder:"ADDR"`
}

func (c *ServeCmd) Run(ctx *Context) error {
	if c.Listen != "" {
		ctx.Config.Listen = c.Listen
	}

	db, err := database.Open(ctx.Config.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(db, ctx.Config, ctx.Logger)
	if err := srv.Start(runCtx); err != nil {
		return fmt.Errorf("start background jobs: %w", err)
	}
	defer srv.Stop()

	httpServer := &http.Server{
		Addr:         ctx.Config.Listen,
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		ctx.Logger.Info("clientbook listening", "addr", ctx.Config.Listen, "db", ctx.Config.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-runCtx.Done():
	}

	ctx.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
