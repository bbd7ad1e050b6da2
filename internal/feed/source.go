// Package feed is the boundary between the override change feed and the
// reconciler. Sources deliver batches of raw writes; the Watcher folds them
// into the latest-known document set and republishes the canonical map.
package feed

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukerupert/clientbook/internal/model"
)

// Source delivers batches of raw override writes. The first batch is the
// initial snapshot. The channel is closed once ctx is cancelled.
type Source interface {
	Subscribe(ctx context.Context) (<-chan []model.OverrideWrite, error)
}

// Publisher fans a persisted write out to other subscribers of the feed.
type Publisher interface {
	Publish(ctx context.Context, w model.OverrideWrite) error
}

// Lister is the slice of the override store a StoreSource polls.
type Lister interface {
	ListSince(seq int64, limit int) ([]model.OverrideWrite, error)
}

// StoreSource polls the override store for writes with a higher sequence
// number than the last one seen.
type StoreSource struct {
	lister    Lister
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

func NewStoreSource(lister Lister, interval time.Duration, logger *slog.Logger) *StoreSource {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &StoreSource{lister: lister, interval: interval, batchSize: 500, logger: logger}
}

func (s *StoreSource) Subscribe(ctx context.Context) (<-chan []model.OverrideWrite, error) {
	// Load the snapshot synchronously so a broken store fails the subscribe.
	snapshot, last, err := s.drain(0)
	if err != nil {
		return nil, err
	}

	out := make(chan []model.OverrideWrite, 1)
	out <- snapshot

	go func() {
		defer close(out)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				batch, next, err := s.drain(last)
				if err != nil {
					s.logger.Warn("poll override writes", "error", err, "since", last)
					continue
				}
				if len(batch) == 0 {
					continue
				}
				last = next
				select {
				case out <- batch:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// drain reads every write after seq in pages and returns them with the new
// high-water mark.
func (s *StoreSource) drain(seq int64) ([]model.OverrideWrite, int64, error) {
	var all []model.OverrideWrite
	for {
		page, err := s.lister.ListSince(seq, s.batchSize)
		if err != nil {
			return nil, seq, err
		}
		all = append(all, page...)
		if len(page) > 0 {
			seq = page[len(page)-1].Seq
		}
		if len(page) < s.batchSize {
			return all, seq, nil
		}
	}
}
