// Package agenda assembles a snapshot of clients, overrides and receivables
// and runs the schedule, risk and task computations over it.
package agenda

import (
	"fmt"
	"time"

	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/model"
	"github.com/dukerupert/clientbook/internal/override"
	"github.com/dukerupert/clientbook/internal/recurrence"
	"github.com/dukerupert/clientbook/internal/risk"
	"github.com/dukerupert/clientbook/internal/schedule"
	"github.com/dukerupert/clientbook/internal/store"
	"github.com/dukerupert/clientbook/internal/task"
)

// Overrides yields the current canonical override map. feed.Watcher
// satisfies it.
type Overrides interface {
	Canonical() override.Canonical
}

type Service struct {
	clients     *store.ClientStore
	receivables *store.ReceivableStore
	overrides   Overrides
	scorer      risk.Scorer
}

func New(clients *store.ClientStore, receivables *store.ReceivableStore, overrides Overrides, scorer risk.Scorer) *Service {
	return &Service{clients: clients, receivables: receivables, overrides: overrides, scorer: scorer}
}

// Snapshot is a consistent set of inputs read at one moment.
type Snapshot struct {
	Clients     []model.Client
	Canonical   override.Canonical
	Receivables []model.Receivable
	Names       map[string]string
}

// Day is the resolved schedule for one date.
type Day struct {
	DateKey      string              `json:"date_key"`
	Appointments []model.Appointment `json:"appointments"`
}

func (s *Service) Snapshot() (*Snapshot, error) {
	clients, err := s.clients.List()
	if err != nil {
		return nil, fmt.Errorf("load clients: %w", err)
	}
	receivables, err := s.receivables.List()
	if err != nil {
		return nil, fmt.Errorf("load receivables: %w", err)
	}
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	return &Snapshot{
		Clients:     clients,
		Canonical:   s.overrides.Canonical(),
		Receivables: receivables,
		Names:       names,
	}, nil
}

// Schedule resolves the appointments for date.
func (s *Service) Schedule(date time.Time) ([]model.Appointment, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	return schedule.Resolve(date, snap.Clients, snap.Canonical), nil
}

// Range resolves days consecutive dates starting at from.
func (s *Service) Range(from time.Time, days int) ([]Day, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	start := clock.StartOfDay(from)
	out := make([]Day, 0, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		out = append(out, Day{
			DateKey:      clock.DateKey(d),
			Appointments: schedule.Resolve(d, snap.Clients, snap.Canonical),
		})
	}
	return out, nil
}

// Tasks builds the task queue for today and its progress given the ids the
// user has already completed.
func (s *Service) Tasks(today time.Time, completed []string) ([]model.Task, task.Progress, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, task.Progress{}, err
	}
	tasks := s.tasksFrom(snap, today)
	return tasks, task.ComputeProgress(tasks, completed), nil
}

func (s *Service) tasksFrom(snap *Snapshot, today time.Time) []model.Task {
	return task.Build(task.Input{
		Receivables:  snap.Receivables,
		Appointments: schedule.Resolve(today, snap.Clients, snap.Canonical),
		Risk:         s.scorer.ByClient(snap.Receivables, today),
		ClientNames:  snap.Names,
		Today:        today,
	})
}

// Receivables returns the open receivables ranked by client risk.
func (s *Service) Receivables(today time.Time) ([]risk.Ranked, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return nil, err
	}
	var open []model.Receivable
	for _, r := range snap.Receivables {
		if !r.Paid {
			open = append(open, r)
		}
	}
	return s.scorer.SortReceivables(open, snap.Receivables, snap.Names, today), nil
}

// ClientRisk scores one client's history. It returns nil when the client
// does not exist.
func (s *Service) ClientRisk(clientID string, today time.Time) (*risk.Profile, error) {
	c, err := s.clients.GetByID(clientID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	history, err := s.receivables.ListByClient(clientID)
	if err != nil {
		return nil, fmt.Errorf("load client history: %w", err)
	}
	p := s.scorer.Profile(history, today)
	return &p, nil
}

// Upcoming lists the client's baseline visits for days calendar days
// starting with the day of from. Overrides are not applied. It returns nil when the client does
// not exist.
func (s *Service) Upcoming(clientID string, from time.Time, days int) ([]time.Time, error) {
	c, err := s.clients.GetByID(clientID)
	if err != nil || c == nil {
		return nil, err
	}
	start := clock.StartOfDay(from)
	visits := recurrence.Upcoming(*c, start, start.AddDate(0, 0, days).Add(-time.Nanosecond))
	if visits == nil {
		visits = []time.Time{}
	}
	return visits, nil
}
