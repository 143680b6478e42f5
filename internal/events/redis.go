package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/christmas-fire/nexus-push/internal/log"
)

const (
	sourceBuffer = 100
	readCount    = 50
	retryDelay   = time.Second

	// eventField is the stream entry field holding the JSON event.
	eventField = "event"
)

// StreamConfig names the Redis stream events go through and the consumer
// group that shares them. Every entry is handed to one consumer of the group.
type StreamConfig struct {
	Stream   string
	Group    string
	Consumer string
	// MaxLen caps the stream length (approximately). Zero keeps everything.
	MaxLen int64
	// Block is how long one read waits for new entries.
	Block time.Duration
}

type RedisPublisher struct {
	client *redis.Client
	cfg    StreamConfig
}

func NewRedisPublisher(client *redis.Client, cfg StreamConfig) *RedisPublisher {
	return &RedisPublisher{client: client, cfg: cfg}
}

func (p *RedisPublisher) PublishNewMessage(ctx context.Context, event NewMessageEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.cfg.Stream,
		Values: map[string]any{eventField: string(data)},
	}
	if p.cfg.MaxLen > 0 {
		args.MaxLen = p.cfg.MaxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// RedisSource reads a stream as one consumer of a consumer group. Entries
// stay pending until their delivery is acked; on start the consumer first
// re-reads its own pending entries, then waits for new ones.
type RedisSource struct {
	client *redis.Client
	cfg    StreamConfig
}

func NewRedisSource(client *redis.Client, cfg StreamConfig) *RedisSource {
	return &RedisSource{client: client, cfg: cfg}
}

func (s *RedisSource) NewMessages(ctx context.Context) (<-chan Delivery, error) {
	// "0" so that entries added before the group existed are delivered too
	err := s.client.XGroupCreateMkStream(ctx, s.cfg.Stream, s.cfg.Group, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return nil, fmt.Errorf("failed to create consumer group %s: %w", s.cfg.Group, err)
	}

	out := make(chan Delivery, sourceBuffer)
	go func() {
		defer close(out)

		l := log.Ctx(ctx).With().
			Str("stream", s.cfg.Stream).
			Str("consumer", s.cfg.Consumer).
			Logger()

		// pending entries first, starting from the oldest; ">" afterwards
		cursor := "0"
		for ctx.Err() == nil {
			entries, err := s.read(ctx, cursor)
			if err != nil {
				if errors.Is(err, redis.Nil) || ctx.Err() != nil {
					continue
				}
				l.Error().Err(err).Msg("failed to read stream")
				select {
				case <-ctx.Done():
				case <-time.After(retryDelay):
				}
				continue
			}

			if cursor != ">" {
				if len(entries) == 0 {
					cursor = ">"
					continue
				}
				cursor = entries[len(entries)-1].ID
			}

			for _, entry := range entries {
				if !s.emit(ctx, out, entry) {
					return
				}
			}
		}
	}()

	return out, nil
}

func (s *RedisSource) read(ctx context.Context, cursor string) ([]redis.XMessage, error) {
	block := s.cfg.Block
	if cursor != ">" {
		// pending entries are returned right away
		block = -1
	}

	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.cfg.Group,
		Consumer: s.cfg.Consumer,
		Streams:  []string{s.cfg.Stream, cursor},
		Count:    readCount,
		Block:    block,
	}).Result()
	if err != nil {
		return nil, err
	}

	var entries []redis.XMessage
	for _, stream := range streams {
		entries = append(entries, stream.Messages...)
	}
	return entries, nil
}

// emit hands one entry to out. Malformed entries are acked and dropped.
// It reports false once ctx is done.
func (s *RedisSource) emit(ctx context.Context, out chan<- Delivery, entry redis.XMessage) bool {
	id := entry.ID
	ack := func(ctx context.Context) error {
		if err := s.client.XAck(ctx, s.cfg.Stream, s.cfg.Group, id).Err(); err != nil {
			return fmt.Errorf("failed to ack entry %s: %w", id, err)
		}
		return nil
	}

	raw, _ := entry.Values[eventField].(string)
	event, err := Decode([]byte(raw))
	if err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str("entry", id).Msg("skipping malformed event")
		if err := ack(ctx); err != nil {
			l.Warn().Err(err).Msg("failed to ack malformed event")
		}
		return true
	}

	select {
	case out <- NewDelivery(event, ack):
		return true
	case <-ctx.Done():
		return false
	}
}

func isBusyGroup(err error) bool {
	return strings.HasPrefix(err.Error(), "BUSYGROUP")
}

func Decode(data []byte) (NewMessageEvent, error) {
	var event NewMessageEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return NewMessageEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.ChatID == "" {
		return NewMessageEvent{}, fmt.Errorf("event %q has no chat id", event.ID)
	}
	return event, nil
}
