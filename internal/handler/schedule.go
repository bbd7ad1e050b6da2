package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/clientbook/internal/agenda"
	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/ics"
	"github.com/dukerupert/clientbook/internal/model"
	"github.com/dukerupert/clientbook/internal/task"
)

const (
	defaultCalendarDays = 14
	maxCalendarDays     = 90
)

// ScheduleHandler serves the views computed from the agenda.
type ScheduleHandler struct {
	agenda *agenda.Service
	logger *slog.Logger
	now    func() time.Time
}

func NewScheduleHandler(ag *agenda.Service, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{agenda: ag, logger: logger, now: time.Now}
}

// Schedule handles GET /api/schedule?date=YYYY-MM-DD
func (h *ScheduleHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r, "date", h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	appts, err := h.agenda.Schedule(date)
	if err != nil {
		h.logger.Error("resolve schedule", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to resolve schedule")
		return
	}
	if appts == nil {
		appts = []model.Appointment{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date_key":     clock.DateKey(date),
		"appointments": appts,
	})
}

type tasksResponse struct {
	DateKey  string        `json:"date_key"`
	Tasks    []model.Task  `json:"tasks"`
	Progress task.Progress `json:"progress"`
}

// Tasks handles GET /api/tasks?date=YYYY-MM-DD&completed=id1,id2
func (h *ScheduleHandler) Tasks(w http.ResponseWriter, r *http.Request) {
	date, err := parseDateParam(r, "date", h.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date")
		return
	}
	tasks, progress, err := h.agenda.Tasks(date, splitList(r.URL.Query().Get("completed")))
	if err != nil {
		h.logger.Error("build tasks", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build tasks")
		return
	}
	writeJSON(w, http.StatusOK, tasksResponse{DateKey: clock.DateKey(date), Tasks: tasks, Progress: progress})
}

// Calendar handles GET /calendar.ics?days=N
func (h *ScheduleHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	days := defaultCalendarDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxCalendarDays {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 90")
			return
		}
		days = n
	}

	now := h.now()
	window, err := h.agenda.Range(now, days)
	if err != nil {
		h.logger.Error("resolve calendar window", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to build calendar")
		return
	}
	var appts []model.Appointment
	for _, d := range window {
		appts = append(appts, d.Appointments...)
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="clientbook.ics"`)
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(ics.Export(appts, now, ics.DefaultDuration)))
}
