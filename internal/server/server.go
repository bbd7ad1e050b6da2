// Package server wires stores, the override feed, background jobs and the
// HTTP API into one runnable unit.
package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dukerupert/clientbook/internal/agenda"
	"github.com/dukerupert/clientbook/internal/backup"
	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/config"
	"github.com/dukerupert/clientbook/internal/feed"
	"github.com/dukerupert/clientbook/internal/handler"
	"github.com/dukerupert/clientbook/internal/middleware"
	"github.com/dukerupert/clientbook/internal/model"
	"github.com/dukerupert/clientbook/internal/override"
	"github.com/dukerupert/clientbook/internal/push"
	"github.com/dukerupert/clientbook/internal/reminder"
	"github.com/dukerupert/clientbook/internal/risk"
	"github.com/dukerupert/clientbook/internal/store"
	ws "github.com/dukerupert/clientbook/internal/websocket"
)

const (
	writeLimit       = 60
	writeWindow      = time.Minute
	maintenanceEvery = time.Hour

	// lastDateKey bounds open-ended date range queries.
	lastDateKey = "9999-12-31"
)

type Server struct {
	cfg    *config.Config
	db     *sql.DB
	hub    *ws.Hub
	logger *slog.Logger

	overrideStore *store.OverrideStore

	watcher *feed.Watcher
	source  feed.Source
	agenda  *agenda.Service

	pushService   *push.Service
	reminders     *reminder.Scheduler
	backupManager *backup.Manager
	rateLimiter   *middleware.RateLimiter

	clientH     *handler.ClientHandler
	overrideH   *handler.OverrideHandler
	scheduleH   *handler.ScheduleHandler
	receivableH *handler.ReceivableHandler
	pushH       *handler.PushHandler
	backupH     *handler.BackupHandler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	clientStore := store.NewClientStore(db)
	receivableStore := store.NewReceivableStore(db)
	overrideStore := store.NewOverrideStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	watcher := feed.NewWatcher(cfg.Feed.RetentionDays, logger.With("component", "feed"))
	watcher.OnChange(func(c override.Canonical) {
		hub.Broadcast(ws.Changed(ws.EntitySchedule, "reconciled", "", map[string]any{"overrides": c.Len()}))
	})

	var (
		source    feed.Source
		publisher feed.Publisher
	)
	feedLogger := logger.With("component", "feed_source")
	if cfg.Feed.RedisAddr != "" {
		rs := feed.NewRedisSource(feed.NewRedisClient(feed.RedisOptions{
			Addr:     cfg.Feed.RedisAddr,
			Password: cfg.Feed.RedisPassword,
			DB:       cfg.Feed.RedisDB,
		}), cfg.Feed.RedisStream, feedLogger)
		source, publisher = rs, rs
	} else {
		source = feed.NewStoreSource(overrideStore, cfg.Feed.PollInterval, feedLogger)
	}

	ag := agenda.New(clientStore, receivableStore, watcher, risk.NewScorer(cfg.Risk))

	pushSvc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber, pushStore, logger.With("component", "push"))
	reminders := reminder.NewScheduler(ag, pushStore, pushSvc, reminder.Options{
		Cron:              cfg.Reminders.Cron,
		ConfirmLeadDays:   cfg.Reminders.ConfirmLeadDays,
		SentRetentionDays: cfg.Reminders.SentRetentionDays,
	}, logger.With("component", "reminder"))

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.S3.Endpoint,
			Bucket:    cfg.Backup.S3.Bucket,
			Region:    cfg.Backup.S3.Region,
			AccessKey: cfg.Backup.S3.AccessKey,
			SecretKey: cfg.Backup.S3.SecretKey,
			Prefix:    cfg.Backup.S3.Prefix,
		},
		Passphrase:    cfg.Backup.Passphrase,
		Cron:          cfg.Backup.Cron,
		RetentionDays: cfg.Backup.RetentionDays,
	}, db, backupStore, logger.With("component", "backup"), func(s backup.Status) {
		hub.Broadcast(ws.Changed(ws.EntityBackup, string(s.State), "", map[string]any{
			"in_progress": s.InProgress,
			"error":       s.Error,
		}))
	})

	return &Server{
		cfg:           cfg,
		db:            db,
		hub:           hub,
		logger:        logger,
		overrideStore: overrideStore,
		watcher:       watcher,
		source:        source,
		agenda:        ag,
		pushService:   pushSvc,
		reminders:     reminders,
		backupManager: backupMgr,
		rateLimiter:   middleware.NewRateLimiter(),
		clientH:       handler.NewClientHandler(clientStore, ag, hub, logger.With("component", "client")),
		overrideH:     handler.NewOverrideHandler(overrideStore, watcher, publisher, logger.With("component", "override")),
		scheduleH:     handler.NewScheduleHandler(ag, logger.With("component", "schedule")),
		receivableH:   handler.NewReceivableHandler(receivableStore, clientStore, ag, hub, logger.With("component", "receivable")),
		pushH:         handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler")),
		backupH:       handler.NewBackupHandler(backupMgr, logger.With("component", "backup_handler")),
	}
}

// Agenda exposes the computation service for command-line use.
func (s *Server) Agenda() *agenda.Service {
	return s.agenda
}

// Watcher returns the live override map.
func (s *Server) Watcher() *feed.Watcher {
	return s.watcher
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// LoadOverrides applies the persisted override writes still inside the
// retention window once. Commands that do not run the feed use it to see the
// same schedule the server would.
func (s *Server) LoadOverrides(now time.Time) error {
	var (
		writes []model.OverrideWrite
		err    error
	)
	if s.cfg.Feed.RetentionDays > 0 {
		writes, err = s.overrideStore.ListByDateRange(s.retentionCutoff(now), lastDateKey)
	} else {
		writes, err = s.overrideStore.ListSince(0, 0)
	}
	if err != nil {
		return err
	}
	s.watcher.Apply(writes)
	return nil
}

// Start launches the override feed and background jobs. They stop when ctx
// is cancelled or Stop is called.
func (s *Server) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runFeed(ctx)
	}()

	if s.cfg.Reminders.Enabled && s.pushService.Configured() {
		if err := s.reminders.Start(ctx); err != nil {
			s.cancel()
			return err
		}
	} else {
		s.logger.Info("reminders disabled", "enabled", s.cfg.Reminders.Enabled, "push_configured", s.pushService.Configured())
	}

	if err := s.backupManager.Start(ctx); err != nil {
		s.reminders.Stop()
		s.cancel()
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.maintain(ctx)
	}()
	return nil
}

// Stop halts background work and closes websocket clients.
func (s *Server) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.reminders.Stop()
	s.backupManager.Stop()
	s.wg.Wait()
	s.hub.Close()
}

// runFeed follows the configured source. If the Redis stream cannot be
// reached the database poller takes over.
func (s *Server) runFeed(ctx context.Context) {
	err := s.watcher.Run(ctx, s.source)
	if err == nil || ctx.Err() != nil {
		return
	}
	if _, isStore := s.source.(*feed.StoreSource); isStore {
		s.logger.Error("override feed stopped", "error", err)
		return
	}

	s.logger.Warn("override stream unavailable, polling database", "error", err)
	fallback := feed.NewStoreSource(s.overrideStore, s.cfg.Feed.PollInterval, s.logger.With("component", "feed_source"))
	if err := s.watcher.Run(ctx, fallback); err != nil {
		s.logger.Error("override feed stopped", "error", err)
	}
}

func (s *Server) maintain(ctx context.Context) {
	ticker := time.NewTicker(maintenanceEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.rateLimiter.Cleanup()
			if _, err := s.PruneOverrides(now); err != nil {
				s.logger.Error("prune overrides", "error", err)
			}
		}
	}
}

// PruneOverrides deletes persisted writes older than the retention window.
func (s *Server) PruneOverrides(now time.Time) (int64, error) {
	if s.cfg.Feed.RetentionDays <= 0 {
		return 0, nil
	}
	cutoff := s.retentionCutoff(now)
	n, err := s.overrideStore.DeleteBefore(cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("pruned override writes", "deleted", n, "before", cutoff)
	}
	return n, nil
}

// retentionCutoff is the first date key still retained at now.
func (s *Server) retentionCutoff(now time.Time) string {
	return clock.DateKey(clock.StartOfDay(now).AddDate(0, 0, -s.cfg.Feed.RetentionDays))
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	mux.HandleFunc("GET /api/clients", s.clientH.List)
	mux.HandleFunc("POST /api/clients", s.limited(s.clientH.Create))
	mux.HandleFunc("PUT /api/clients/{id}", s.limited(s.clientH.Update))
	mux.HandleFunc("DELETE /api/clients/{id}", s.limited(s.clientH.Delete))
	mux.HandleFunc("GET /api/clients/{id}/risk", s.clientH.Risk)
	mux.HandleFunc("GET /api/clients/{id}/upcoming", s.clientH.Upcoming)

	mux.HandleFunc("POST /api/overrides", s.limited(s.overrideH.Create))
	mux.HandleFunc("GET /api/schedule", s.scheduleH.Schedule)
	mux.HandleFunc("GET /api/tasks", s.scheduleH.Tasks)
	mux.HandleFunc("GET /calendar.ics", s.scheduleH.Calendar)

	mux.HandleFunc("GET /api/receivables", s.receivableH.List)
	mux.HandleFunc("POST /api/receivables", s.limited(s.receivableH.Create))
	mux.HandleFunc("POST /api/receivables/{id}/pay", s.limited(s.receivableH.Pay))
	mux.HandleFunc("POST /api/receivables/{id}/reopen", s.limited(s.receivableH.Reopen))
	mux.HandleFunc("POST /api/receivables/{id}/charges", s.limited(s.receivableH.Charge))

	mux.HandleFunc("POST /api/push/subscribe", s.limited(s.pushH.Subscribe))
	mux.HandleFunc("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	mux.HandleFunc("POST /api/push/test", s.limited(s.pushH.TestNotification))

	mux.HandleFunc("POST /api/backups", s.limited(s.backupH.Run))
	mux.HandleFunc("GET /api/backups", s.backupH.List)

	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, nil, s.logger.With("component", "websocket")))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":    "ok",
		"overrides": s.watcher.Canonical().Len(),
		"clients":   s.hub.ClientCount(),
	}
	if err := s.db.PingContext(r.Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
		body["error"] = "database unavailable"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	rl := middleware.RateLimit(s.rateLimiter, middleware.RealIP, writeLimit, writeWindow)
	wrapped := rl(h)
	return wrapped.ServeHTTP
}
