package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dukerupert/clientbook/internal/clock"
	"github.com/dukerupert/clientbook/internal/model"
	"github.com/dukerupert/clientbook/internal/override"
	"github.com/google/uuid"
)

// Watcher keeps the latest version of every override document seen on the
// feed, reconciles them into a canonical map after each batch and publishes
// the result. Readers never block on the feed.
type Watcher struct {
	retentionDays int
	now           func() time.Time
	logger        *slog.Logger

	mu   sync.Mutex
	docs map[string]model.OverrideWrite
	// held keeps the confirmed version a newer pending edit displaced, so
	// Discard can put it back.
	held map[string]model.OverrideWrite

	canonical atomic.Pointer[override.Canonical]

	subsMu sync.Mutex
	subs   []func(override.Canonical)
}

func NewWatcher(retentionDays int, logger *slog.Logger) *Watcher {
	w := &Watcher{
		retentionDays: retentionDays,
		now:           time.Now,
		logger:        logger,
		docs:          make(map[string]model.OverrideWrite),
		held:          make(map[string]model.OverrideWrite),
	}
	w.canonical.Store(&override.Canonical{})
	return w
}

// Canonical returns the most recently published canonical map.
func (w *Watcher) Canonical() override.Canonical {
	return *w.canonical.Load()
}

// OnChange registers fn to be called after every republish.
func (w *Watcher) OnChange(fn func(override.Canonical)) {
	w.subsMu.Lock()
	w.subs = append(w.subs, fn)
	w.subsMu.Unlock()
}

// Run subscribes to src and applies batches until ctx is cancelled or the
// source closes its channel.
func (w *Watcher) Run(ctx context.Context, src Source) error {
	batches, err := src.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe override feed: %w", err)
	}
	w.logger.Info("override feed started")

	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-batches:
			if !ok {
				w.logger.Info("override feed closed")
				return nil
			}
			w.Apply(batch)
		}
	}
}

// Apply folds a batch of writes into the document set and republishes.
func (w *Watcher) Apply(batch []model.OverrideWrite) {
	w.mu.Lock()
	for _, wr := range batch {
		w.merge(wr)
	}
	c := w.rebuild()
	w.mu.Unlock()

	w.logger.Debug("override batch applied", "writes", len(batch), "overrides", c.Len())
	w.publish(c)
}

// ApplyLocal records a write that has not been confirmed by the feed yet so
// it shows up immediately. The returned write carries the assigned id.
func (w *Watcher) ApplyLocal(wr model.OverrideWrite) model.OverrideWrite {
	if wr.ID == "" {
		wr.ID = uuid.NewString()
	}
	if wr.UpdatedAt.IsZero() {
		wr.UpdatedAt = w.now()
	}
	wr.HasPendingWrites = true
	wr.Seq = 0
	w.Apply([]model.OverrideWrite{wr})
	return wr
}

// Discard drops a write recorded by ApplyLocal that was never persisted. A
// confirmed version it displaced comes back; confirmed versions are never
// dropped.
func (w *Watcher) Discard(id string) {
	w.mu.Lock()
	cur, ok := w.docs[id]
	if !ok || !cur.HasPendingWrites {
		w.mu.Unlock()
		return
	}
	if prev, ok := w.held[id]; ok {
		w.docs[id] = prev
		delete(w.held, id)
	} else {
		delete(w.docs, id)
	}
	c := w.rebuild()
	w.mu.Unlock()
	w.publish(c)
}

// Size reports how many documents are held.
func (w *Watcher) Size() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.docs)
}

// merge keeps one version per document id. A pending version replaces a
// confirmed one only when it was edited later, and among confirmed versions
// the higher sequence wins.
func (w *Watcher) merge(wr model.OverrideWrite) {
	if wr.ID == "" {
		return
	}
	cur, ok := w.docs[wr.ID]
	if !ok {
		w.docs[wr.ID] = wr
		return
	}

	switch {
	case wr.HasPendingWrites && !cur.HasPendingWrites:
		if !wr.UpdatedAt.After(cur.UpdatedAt) {
			return
		}
		w.held[wr.ID] = cur
	case !wr.HasPendingWrites && cur.HasPendingWrites:
		// A replay of the displaced version is not the echo of the edit.
		if prev, ok := w.held[wr.ID]; ok && wr.Seq != 0 && wr.Seq <= prev.Seq {
			return
		}
		delete(w.held, wr.ID)
	case !wr.HasPendingWrites && !cur.HasPendingWrites:
		if wr.Seq != 0 && cur.Seq > wr.Seq {
			return
		}
	}
	w.docs[wr.ID] = wr
}

// rebuild retires documents outside the retention window and reconciles the
// rest. Callers hold mu.
func (w *Watcher) rebuild() override.Canonical {
	cutoff := ""
	if w.retentionDays > 0 {
		cutoff = clock.DateKey(clock.StartOfDay(w.now()).AddDate(0, 0, -w.retentionDays))
	}

	writes := make([]model.OverrideWrite, 0, len(w.docs))
	for id, wr := range w.docs {
		ident, ok := override.IdentityOf(wr)
		if !ok {
			delete(w.docs, id)
			delete(w.held, id)
			continue
		}
		if cutoff != "" && ident.DateKey < cutoff {
			delete(w.docs, id)
			delete(w.held, id)
			continue
		}
		writes = append(writes, wr)
	}

	c := override.Reconcile(writes)
	w.canonical.Store(&c)
	return c
}

func (w *Watcher) publish(c override.Canonical) {
	w.subsMu.Lock()
	subs := append([]func(override.Canonical){}, w.subs...)
	w.subsMu.Unlock()

	for _, fn := range subs {
		fn(c)
	}
}
