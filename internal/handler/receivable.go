package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dukerupert/clientbook/internal/agenda"
	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/model"
	"github.com/dukerupert/clientbook/internal/risk"
	"github.com/dukerupert/clientbook/internal/store"
	"github.com/dukerupert/clientbook/internal/websocket"
)

type ReceivableHandler struct {
	broadcaster
	receivables *store.ReceivableStore
	clients     *store.ClientStore
	agenda      *agenda.Service
	logger      *slog.Logger
	now         func() time.Time
}

func NewReceivableHandler(rs *store.ReceivableStore, cs *store.ClientStore, ag *agenda.Service, hub *websocket.Hub, logger *slog.Logger) *ReceivableHandler {
	return &ReceivableHandler{
		broadcaster: broadcaster{hub: hub},
		receivables: rs,
		clients:     cs,
		agenda:      ag,
		logger:      logger,
		now:         time.Now,
	}
}

// List handles GET /api/receivables. Open items come back ranked by risk.
func (h *ReceivableHandler) List(w http.ResponseWriter, r *http.Request) {
	ranked, err := h.agenda.Receivables(h.now())
	if err != nil {
		h.logger.Error("rank receivables", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list receivables")
		return
	}
	if ranked == nil {
		ranked = []risk.Ranked{}
	}
	writeJSON(w, http.StatusOK, ranked)
}

type receivableRequest struct {
	ClientID string `json:"client_id"`
	Amount   string `json:"amount"`
	DueDate  string `json:"due_date"`
}

// Create handles POST /api/receivables
func (h *ReceivableHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req receivableRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.ClientID) == "" {
		writeError(w, http.StatusBadRequest, "client_id is required")
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		writeError(w, http.StatusBadRequest, "amount must be a positive decimal")
		return
	}
	if _, err := clock.ParseDateKey(req.DueDate); err != nil {
		writeError(w, http.StatusBadRequest, "due_date must be YYYY-MM-DD")
		return
	}

	client, err := h.clients.GetByID(req.ClientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get client")
		return
	}
	if client == nil {
		writeError(w, http.StatusBadRequest, "unknown client")
		return
	}

	rec, err := h.receivables.Create(model.Receivable{ClientID: req.ClientID, Amount: amount, DueDate: req.DueDate})
	if err != nil {
		h.logger.Error("create receivable", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create receivable")
		return
	}

	h.broadcast(websocket.Changed(websocket.EntityReceivable, "created", rec.ID, nil))
	writeJSON(w, http.StatusCreated, rec)
}

type payRequest struct {
	PaidAt *time.Time `json:"paid_at"`
}

// Pay handles POST /api/receivables/{id}/pay. The body is optional.
func (h *ReceivableHandler) Pay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	at := h.now()
	if req.PaidAt != nil {
		at = *req.PaidAt
	}

	id := r.PathValue("id")
	rec, err := h.receivables.MarkPaid(id, at)
	h.respond(w, "paid", id, rec, err)
}

// Reopen handles POST /api/receivables/{id}/reopen
func (h *ReceivableHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := h.receivables.Reopen(id)
	h.respond(w, "reopened", id, rec, err)
}

type chargeRequest struct {
	Channel string     `json:"channel"`
	At      *time.Time `json:"at"`
}

// Charge handles POST /api/receivables/{id}/charges
func (h *ReceivableHandler) Charge(w http.ResponseWriter, r *http.Request) {
	var req chargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Channel) == "" {
		writeError(w, http.StatusBadRequest, "channel is required")
		return
	}
	ev := model.ChargeEvent{Channel: req.Channel, At: h.now()}
	if req.At != nil {
		ev.At = *req.At
	}

	id := r.PathValue("id")
	rec, err := h.receivables.AddCharge(id, ev)
	h.respond(w, "charged", id, rec, err)
}

func (h *ReceivableHandler) respond(w http.ResponseWriter, action, id string, rec *model.Receivable, err error) {
	if err != nil {
		h.logger.Error("update receivable", "error", err, "id", id, "action", action)
		writeError(w, http.StatusInternalServerError, "failed to update receivable")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "receivable not found")
		return
	}
	h.broadcast(websocket.Changed(websocket.EntityReceivable, action, id, nil))
	writeJSON(w, http.StatusOK, rec)
}

// decodeOptional decodes a JSON body, treating an empty body as no input.
func decodeOptional(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
