// Package task builds the ordered daily queue of actionable items from
// receivables and resolved appointments.
package task

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/model"
)

// Input is everything Build needs. Risk and ClientNames are keyed by client
// id; missing entries leave a task unscored or fall back to the record's
// own name.
type Input struct {
	Receivables  []model.Receivable
	Appointments []model.Appointment
	Risk         map[string]model.RiskLevel
	ClientNames  map[string]string
	Today        time.Time
}

var typeOrder = map[model.TaskType]int{
	model.TaskOverdueCharge:      0,
	model.TaskTodayCharge:        1,
	model.TaskConfirmAppointment: 2,
	model.TaskTodayAppointment:   3,
	model.TaskDone:               4,
}

// DoneID returns the id of the synthetic task emitted when nothing is left.
func DoneID(dateKey string) string {
	return "done-" + dateKey
}

// Build returns the day's tasks in priority order. When nothing needs doing
// it returns a single DONE task.
func Build(in Input) []model.Task {
	today := clock.StartOfDay(in.Today)
	todayKey := clock.DateKey(today)

	var tasks []model.Task
	for _, r := range in.Receivables {
		if t, ok := chargeTask(r, in, today); ok {
			tasks = append(tasks, t)
		}
	}
	for _, a := range in.Appointments {
		if a.DateKey != todayKey {
			continue
		}
		if t, ok := appointmentTask(a, in, today); ok {
			tasks = append(tasks, t)
		}
	}

	if len(tasks) == 0 {
		return []model.Task{{
			ID:    DoneID(todayKey),
			Type:  model.TaskDone,
			Title: "All caught up",
			Date:  today,
		}}
	}

	Sort(tasks)
	return tasks
}

func chargeTask(r model.Receivable, in Input, today time.Time) (model.Task, bool) {
	if r.Paid {
		return model.Task{}, false
	}
	due, err := clock.ParseDateKey(r.DueDate)
	if err != nil {
		return model.Task{}, false
	}

	t := model.Task{
		ID:           "charge-" + r.ID,
		Title:        clientName(in, r.ClientID, ""),
		ActionLabel:  "Charge",
		Date:         due,
		RiskLevel:    in.Risk[r.ClientID],
		ReceivableID: r.ID,
	}
	amount := r.Amount
	t.Amount = &amount

	switch dueKey, todayKey := clock.DateKey(due), clock.DateKey(today); {
	case dueKey < todayKey:
		t.Type = model.TaskOverdueCharge
		t.Subtitle = "Overdue since " + dueKey
	case dueKey == todayKey:
		t.Type = model.TaskTodayCharge
		t.Subtitle = "Due today"
	default:
		return model.Task{}, false
	}
	return t, true
}

func appointmentTask(a model.Appointment, in Input, today time.Time) (model.Task, bool) {
	if a.Status == model.StatusDone || a.Status == model.StatusRescheduled {
		return model.Task{}, false
	}

	when, _ := clock.At(a.DateKey, a.Time)
	if when.IsZero() {
		when = today
	}

	t := model.Task{
		ID:             "appointment-" + a.Key.String(),
		Title:          clientName(in, a.ClientID, a.Name),
		Subtitle:       subtitle(a),
		Date:           when,
		RiskLevel:      in.Risk[a.ClientID],
		AppointmentKey: a.Key.String(),
	}
	switch a.ConfirmationStatus {
	case model.ConfirmationPending, model.ConfirmationSent:
		t.Type = model.TaskConfirmAppointment
		t.ActionLabel = "Confirm"
	default:
		t.Type = model.TaskTodayAppointment
		t.ActionLabel = "Mark done"
	}
	return t, true
}

func clientName(in Input, clientID, fallback string) string {
	if n := strings.TrimSpace(in.ClientNames[clientID]); n != "" {
		return n
	}
	if fallback != "" {
		return fallback
	}
	return clientID
}

func subtitle(a model.Appointment) string {
	if a.Location == "" {
		return a.Time
	}
	return a.Time + " · " + a.Location
}

// Sort orders tasks by type, then risk (highest first), then date, then
// title, then id.
func Sort(tasks []model.Task) {
	sort.Slice(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if oa, ob := typeRank(a.Type), typeRank(b.Type); oa != ob {
			return oa < ob
		}
		if ra, rb := a.RiskLevel.Rank(), b.RiskLevel.Rank(); ra != rb {
			return ra > rb
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.ID < b.ID
	})
}

func typeRank(t model.TaskType) int {
	if r, ok := typeOrder[t]; ok {
		return r
	}
	return len(typeOrder)
}

// Progress summarizes how much of the queue is complete.
type Progress struct {
	Done    int `json:"done"`
	Total   int `json:"total"`
	Percent int `json:"percent"`
}

// ComputeProgress counts the tasks whose ids appear in completed. A lone DONE
// task counts as fully complete.
func ComputeProgress(tasks []model.Task, completed []string) Progress {
	if len(tasks) == 1 && tasks[0].Type == model.TaskDone {
		return Progress{Done: 1, Total: 1, Percent: 100}
	}

	set := make(map[string]bool, len(completed))
	for _, id := range completed {
		set[id] = true
	}

	p := Progress{Total: len(tasks)}
	for _, t := range tasks {
		if set[t.ID] {
			p.Done++
		}
	}
	if p.Total > 0 {
		p.Percent = int(math.Round(float64(p.Done) * 100 / float64(p.Total)))
	}
	return p
}
