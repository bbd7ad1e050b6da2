// Package reminder decides which confirmation and charge reminders are due
// and hands them to a Notifier once each.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/model"
	"github.com/dukerupert/clientbook/internal/push"
	"github.com/dukerupert/clientbook/internal/risk"
	"github.com/robfig/cron/v3"
)

// Agenda supplies resolved schedules and ranked receivables.
type Agenda interface {
	Schedule(date time.Time) ([]model.Appointment, error)
	Receivables(today time.Time) ([]risk.Ranked, error)
}

// SentLog records delivered reminders so they are sent at most once.
type SentLog interface {
	WasSent(notifType, refID string) (bool, error)
	RecordSent(notifType, refID string) error
	CleanupSent(before time.Time) error
}

// Notifier delivers a reminder. push.Service implements it.
type Notifier interface {
	Broadcast(ctx context.Context, p push.Payload) error
}

// Reminder is one notification that is due.
type Reminder struct {
	Type    string
	RefID   string
	Payload push.Payload
}

type Options struct {
	Cron              string
	ConfirmLeadDays   int
	SentRetentionDays int
}

// Scheduler runs the reminder check on a cron schedule.
type Scheduler struct {
	mu       sync.Mutex
	agenda   Agenda
	sent     SentLog
	notifier Notifier
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
	cron     *cron.Cron
}

func NewScheduler(agenda Agenda, sent SentLog, notifier Notifier, opts Options, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		agenda:   agenda,
		sent:     sent,
		notifier: notifier,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Start schedules the reminder run. It returns an error for an invalid cron
// expression.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := cron.New()
	_, err := c.AddFunc(s.opts.Cron, func() {
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("reminder run failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule reminders %q: %w", s.opts.Cron, err)
	}
	c.Start()
	s.cron = c
	s.logger.Info("reminders scheduled", "cron", s.opts.Cron)
	return nil
}

// Stop waits for a running check to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// Plan lists the reminders due at now, charges first and highest risk first
// within charges.
func (s *Scheduler) Plan(now time.Time) ([]Reminder, error) {
	today := clock.StartOfDay(now)
	todayKey := clock.DateKey(today)

	var out []Reminder

	ranked, err := s.agenda.Receivables(now)
	if err != nil {
		return nil, fmt.Errorf("load receivables: %w", err)
	}
	for _, r := range ranked {
		if r.Paid || r.DueDate > todayKey {
			continue
		}
		if _, err := clock.ParseDateKey(r.DueDate); err != nil {
			continue
		}
		out = append(out, chargeReminder(r, todayKey))
	}

	target := today.AddDate(0, 0, s.opts.ConfirmLeadDays)
	appts, err := s.agenda.Schedule(target)
	if err != nil {
		return nil, fmt.Errorf("resolve schedule: %w", err)
	}
	for _, a := range appts {
		if a.Status == model.StatusDone || a.Status == model.StatusRescheduled {
			continue
		}
		if a.ConfirmationStatus != model.ConfirmationPending {
			continue
		}
		out = append(out, confirmReminder(a))
	}
	return out, nil
}

func chargeReminder(r risk.Ranked, todayKey string) Reminder {
	title := "Charge due today"
	if r.DueDate < todayKey {
		title = "Charge overdue"
	}
	name := r.ClientName
	if name == "" {
		name = r.ClientID
	}
	return Reminder{
		Type: model.NotifTypeChargeReminder,
		// One charge reminder per receivable per day.
		RefID: fmt.Sprintf("charge-%s-%s", r.ID, todayKey),
		Payload: push.Payload{
			Title: title,
			Body:  fmt.Sprintf("%s: %s due %s", name, r.Amount.StringFixed(2), r.DueDate),
			URL:   "/receivables",
			Tag:   "charge-" + r.ID,
		},
	}
}

func confirmReminder(a model.Appointment) Reminder {
	return Reminder{
		Type:  model.NotifTypeConfirmReminder,
		RefID: "confirm-" + a.Key.String(),
		Payload: push.Payload{
			Title: "Confirm appointment",
			Body:  fmt.Sprintf("%s on %s at %s", a.Name, a.DateKey, a.Time),
			URL:   "/schedule?date=" + a.DateKey,
			Tag:   "confirm-" + a.ClientID + "-" + a.DateKey,
		},
	}
}

// RunOnce sends every planned reminder not sent before and returns how many
// were delivered. A failed delivery is retried on the next run.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	now := s.now()
	plan, err := s.Plan(now)
	if err != nil {
		return 0, err
	}

	var delivered int
	for _, r := range plan {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		sent, err := s.sent.WasSent(r.Type, r.RefID)
		if err != nil {
			s.logger.Warn("check sent reminder", "error", err, "ref", r.RefID)
			continue
		}
		if sent {
			continue
		}
		if err := s.notifier.Broadcast(ctx, r.Payload); err != nil {
			if errors.Is(err, push.ErrNoSubscribers) {
				s.logger.Debug("reminder held, no subscribers", "ref", r.RefID)
			} else {
				s.logger.Warn("deliver reminder", "error", err, "ref", r.RefID)
			}
			continue
		}
		if err := s.sent.RecordSent(r.Type, r.RefID); err != nil {
			s.logger.Warn("record sent reminder", "error", err, "ref", r.RefID)
		}
		delivered++
	}

	if s.opts.SentRetentionDays > 0 {
		if err := s.sent.CleanupSent(now.AddDate(0, 0, -s.opts.SentRetentionDays)); err != nil {
			s.logger.Warn("cleanup sent reminders", "error", err)
		}
	}

	s.logger.Info("reminder run complete", "planned", len(plan), "delivered", delivered)
	return delivered, nil
}
