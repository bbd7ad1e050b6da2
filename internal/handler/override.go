package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/clientbook/internal/feed"
	"github.com/dukerupert/clientbook/internal/model"
	"github.com/dukerupert/clientbook/internal/override"
	"github.com/dukerupert/clientbook/internal/store"
)

var validActions = map[model.OverrideAction]bool{
	model.ActionAdd:                true,
	model.ActionSkip:               true,
	model.ActionCancel:             true,
	model.ActionRemove:             true,
	model.ActionReschedule:         true,
	model.ActionStatusUpdate:       true,
	model.ActionConfirmationUpdate: true,
}

var validStatuses = map[model.AppointmentStatus]bool{
	model.StatusScheduled:   true,
	model.StatusDone:        true,
	model.StatusRescheduled: true,
}

var validConfirmations = map[model.ConfirmationStatus]bool{
	model.ConfirmationPending:   true,
	model.ConfirmationSent:      true,
	model.ConfirmationConfirmed: true,
	model.ConfirmationCanceled:  true,
}

type OverrideHandler struct {
	overrides *store.OverrideStore
	watcher   *feed.Watcher
	publisher feed.Publisher
	logger    *slog.Logger
}

// NewOverrideHandler wires override writes. publisher may be nil when the
// feed is the store itself.
func NewOverrideHandler(overrides *store.OverrideStore, watcher *feed.Watcher, publisher feed.Publisher, logger *slog.Logger) *OverrideHandler {
	return &OverrideHandler{overrides: overrides, watcher: watcher, publisher: publisher, logger: logger}
}

func validateWrite(w model.OverrideWrite) string {
	if _, ok := override.IdentityOf(w); !ok {
		return "client_id and date_key (or a key) are required"
	}
	if w.Action != "" && !validActions[w.Action] {
		return "unknown action: " + string(w.Action)
	}
	if w.Status != "" && !validStatuses[w.Status] {
		return "unknown status: " + string(w.Status)
	}
	if w.ConfirmationStatus != "" && !validConfirmations[w.ConfirmationStatus] {
		return "unknown confirmation status: " + string(w.ConfirmationStatus)
	}
	return ""
}

// Create handles POST /api/overrides. The write is applied to the live
// canonical map first and then persisted; a failed persist rolls it back.
func (h *OverrideHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OverrideWrite
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if msg := validateWrite(req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	local := h.watcher.ApplyLocal(req)

	saved, err := h.overrides.Put(local)
	if err != nil {
		h.watcher.Discard(local.ID)
		h.logger.Error("persist override", "error", err, "id", local.ID)
		writeError(w, http.StatusInternalServerError, "failed to save override")
		return
	}
	h.watcher.Apply([]model.OverrideWrite{saved})

	if h.publisher != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.publisher.Publish(ctx, saved); err != nil {
			h.logger.Warn("publish override", "error", err, "id", saved.ID)
		}
	}

	writeJSON(w, http.StatusCreated, saved)
}
