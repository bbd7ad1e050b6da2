package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/clientbook/internal/agenda"
	"github.com/dukerupert/clientbook/internal/model"
	"github.com/dukerupert/clientbook/internal/recurrence"
	"github.com/dukerupert/clientbook/internal/store"
	"github.com/dukerupert/clientbook/internal/websocket"
)

type ClientHandler struct {
	broadcaster
	clients *store.ClientStore
	agenda  *agenda.Service
	logger  *slog.Logger
	now     func() time.Time
}

func NewClientHandler(cs *store.ClientStore, ag *agenda.Service, hub *websocket.Hub, logger *slog.Logger) *ClientHandler {
	return &ClientHandler{broadcaster: broadcaster{hub: hub}, clients: cs, agenda: ag, logger: logger, now: time.Now}
}

type clientRequest struct {
	Name         string            `json:"name"`
	Location     string            `json:"location"`
	Weekdays     []string          `json:"weekdays"`
	DefaultTime  string            `json:"default_time"`
	WeekdayTimes map[string]string `json:"weekday_times"`
}

func (req clientRequest) validate() string {
	if strings.TrimSpace(req.Name) == "" {
		return "name is required"
	}
	for _, label := range req.Weekdays {
		if _, ok := recurrence.ParseWeekday(label); !ok {
			return "unknown weekday: " + label
		}
	}
	return ""
}

func (req clientRequest) client(id string) model.Client {
	return model.Client{
		ID:           id,
		Name:         req.Name,
		Location:     req.Location,
		Weekdays:     req.Weekdays,
		DefaultTime:  req.DefaultTime,
		WeekdayTimes: req.WeekdayTimes,
	}
}

// List handles GET /api/clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	clients, err := h.clients.List()
	if err != nil {
		h.logger.Error("list clients", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list clients")
		return
	}
	if clients == nil {
		clients = []model.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

// Create handles POST /api/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := h.clients.Create(req.client(""))
	if err != nil {
		h.logger.Error("create client", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create client")
		return
	}

	h.broadcast(websocket.Changed(websocket.EntityClient, "created", c.ID, nil))
	h.broadcast(websocket.Changed(websocket.EntitySchedule, "", "", nil))
	writeJSON(w, http.StatusCreated, c)
}

// Update handles PUT /api/clients/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.clients.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	c, err := h.clients.Update(req.client(id))
	if err != nil {
		h.logger.Error("update client", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to update client")
		return
	}

	h.broadcast(websocket.Changed(websocket.EntityClient, "updated", id, nil))
	h.broadcast(websocket.Changed(websocket.EntitySchedule, "", "", nil))
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /api/clients/{id}
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	existing, err := h.clients.GetByID(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}

	if err := h.clients.Delete(id); err != nil {
		h.logger.Error("delete client", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to delete client")
		return
	}

	h.broadcast(websocket.Changed(websocket.EntityClient, "deleted", id, nil))
	h.broadcast(websocket.Changed(websocket.EntitySchedule, "", "", nil))
	w.WriteHeader(http.StatusNoContent)
}

// Risk handles GET /api/clients/{id}/risk
func (h *ClientHandler) Risk(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	profile, err := h.agenda.ClientRisk(id, h.now())
	if err != nil {
		h.logger.Error("score client risk", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to score client")
		return
	}
	if profile == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// Upcoming handles GET /api/clients/{id}/upcoming?days=N
func (h *ClientHandler) Upcoming(w http.ResponseWriter, r *http.Request) {
	days := defaultCalendarDays
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxCalendarDays {
			writeError(w, http.StatusBadRequest, "days must be between 1 and 90")
			return
		}
		days = n
	}

	id := r.PathValue("id")
	visits, err := h.agenda.Upcoming(id, h.now(), days)
	if err != nil {
		h.logger.Error("list upcoming visits", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "failed to list visits")
		return
	}
	if visits == nil {
		writeError(w, http.StatusNotFound, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"client_id": id, "visits": visits})
}
