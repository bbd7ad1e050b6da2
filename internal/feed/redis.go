package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/clientbook/internal/model"
	"github.com/go-redis/redis/v8"
)

// RedisSource reads override writes from a Redis stream. Each entry carries
// the JSON-encoded write in its "data" field. Subscribing replays the whole
// stream first, which forms the initial snapshot.
type RedisSource struct {
	client *redis.Client
	stream string
	block  time.Duration
	count  int64
	logger *slog.Logger
}

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisClient(opts RedisOptions) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
}

func NewRedisSource(client *redis.Client, stream string, logger *slog.Logger) *RedisSource {
	return &RedisSource{
		client: client,
		stream: stream,
		block:  5 * time.Second,
		count:  500,
		logger: logger,
	}
}

// Publish appends w to the stream.
func (s *RedisSource) Publish(ctx context.Context, w model.OverrideWrite) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode override write: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"data":      string(data),
			"timestamp": time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

func (s *RedisSource) Subscribe(ctx context.Context) (<-chan []model.OverrideWrite, error) {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	snapshot, last, err := s.replay(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan []model.OverrideWrite, 1)
	out <- snapshot

	go func() {
		defer close(out)
		for ctx.Err() == nil {
			batch, next, err := s.read(ctx, last, s.block)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Warn("read override stream", "error", err, "stream", s.stream)
				select {
				case <-time.After(time.Second):
				case <-ctx.Done():
					return
				}
				continue
			}
			last = next
			if len(batch) == 0 {
				continue
			}
			select {
			case out <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// replay reads the stream from the beginning without blocking.
func (s *RedisSource) replay(ctx context.Context) ([]model.OverrideWrite, string, error) {
	var (
		all  []model.OverrideWrite
		last = "0"
	)
	for {
		batch, next, err := s.read(ctx, last, -1)
		if err != nil {
			return nil, last, err
		}
		all = append(all, batch...)
		if next == last {
			return all, last, nil
		}
		last = next
	}
}

// read issues one XREAD after id. A negative block returns immediately.
func (s *RedisSource) read(ctx context.Context, id string, block time.Duration) ([]model.OverrideWrite, string, error) {
	streams, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.stream, id},
		Count:   s.count,
		Block:   block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, id, nil
	}
	if err != nil {
		return nil, id, err
	}

	var writes []model.OverrideWrite
	for _, st := range streams {
		for _, msg := range st.Messages {
			id = msg.ID
			w, ok := decodeMessage(msg.Values)
			if !ok {
				s.logger.Debug("skip malformed stream entry", "id", msg.ID, "stream", s.stream)
				continue
			}
			writes = append(writes, w)
		}
	}
	return writes, id, nil
}

func decodeMessage(values map[string]interface{}) (model.OverrideWrite, bool) {
	var w model.OverrideWrite
	raw, ok := values["data"].(string)
	if !ok {
		return w, false
	}
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return w, false
	}
	return w, true
}
