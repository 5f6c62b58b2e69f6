package queue

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const payloadField = "payload"

// DefaultBlock is the Fetch wait used when StreamConfig.Block is zero.
const DefaultBlock = 2 * time.Second

// StreamConfig names the stream, the consumer group and this consumer.
type StreamConfig struct {
	Stream   string
	Group    string
	Consumer string
	// Block is how long Fetch waits for new entries. Zero means DefaultBlock,
	// negative means don't wait at all.
	Block time.Duration
	// MaxLen caps the stream approximately; 0 leaves it unbounded.
	MaxLen int64
}

// RedisStream implements Queue on a Redis stream read through a consumer group.
// Several processes sharing Group split the stream between them.
type RedisStream struct {
	client *redis.Client
	cfg    StreamConfig
}

// NewRedisStream creates the queue. Call EnsureGroup before consuming.
func NewRedisStream(client *redis.Client, cfg StreamConfig) *RedisStream {
	// go-redis treats a zero Block as "wait forever".
	if cfg.Block == 0 {
		cfg.Block = DefaultBlock
	}
	return &RedisStream{client: client, cfg: cfg}
}

// EnsureGroup creates the stream and the consumer group if they don't exist yet.
func (q *RedisStream) EnsureGroup(ctx context.Context) error {
	err := q.client.XGroupCreateMkStream(ctx, q.cfg.Stream, q.cfg.Group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group %s on %s: %w", q.cfg.Group, q.cfg.Stream, err)
	}
	log.Printf("[QUEUE] Consumer group %s ready on stream %s (consumer %s)", q.cfg.Group, q.cfg.Stream, q.cfg.Consumer)
	return nil
}

// Publish appends body to the stream.
func (q *RedisStream) Publish(ctx context.Context, body []byte) error {
	args := &redis.XAddArgs{
		Stream: q.cfg.Stream,
		Values: map[string]interface{}{payloadField: body},
	}
	if q.cfg.MaxLen > 0 {
		args.MaxLen = q.cfg.MaxLen
		args.Approx = true
	}
	if err := q.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", q.cfg.Stream, err)
	}
	return nil
}

// Fetch reads entries never delivered to any consumer of the group.
func (q *RedisStream) Fetch(ctx context.Context, max int) ([]Message, error) {
	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.cfg.Group,
		Consumer: q.cfg.Consumer,
		Streams:  []string{q.cfg.Stream, ">"},
		Count:    int64(max),
		Block:    q.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read group %s: %w", q.cfg.Group, err)
	}

	var msgs []Message
	for _, s := range streams {
		for _, m := range s.Messages {
			msgs = append(msgs, toMessage(m, 1))
		}
	}
	return msgs, nil
}

// Reclaim claims entries left pending by any consumer of the group (including
// crashed ones) for at least minIdle.
func (q *RedisStream) Reclaim(ctx context.Context, minIdle time.Duration, max int) ([]Message, error) {
	claimed, _, err := q.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.cfg.Stream,
		Group:    q.cfg.Group,
		Consumer: q.cfg.Consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    int64(max),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("autoclaim on %s: %w", q.cfg.Stream, err)
	}

	msgs := make([]Message, 0, len(claimed))
	for _, m := range claimed {
		// Delivery counts live in XPENDING; 0 means "redelivered, count unknown".
		msgs = append(msgs, toMessage(m, 0))
	}
	return msgs, nil
}

// Ack acknowledges id for the group.
func (q *RedisStream) Ack(ctx context.Context, id string) error {
	if err := q.client.XAck(ctx, q.cfg.Stream, q.cfg.Group, id).Err(); err != nil {
		return fmt.Errorf("ack %s: %w", id, err)
	}
	return nil
}

// Reject acknowledges id and deletes the entry so it can never be claimed again.
func (q *RedisStream) Reject(ctx context.Context, id string) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.XAck(ctx, q.cfg.Stream, q.cfg.Group, id)
		pipe.XDel(ctx, q.cfg.Stream, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("reject %s: %w", id, err)
	}
	return nil
}

// toMessage extracts the payload. An entry without a usable payload field keeps
// an empty body, which the consumer rejects as malformed.
func toMessage(m redis.XMessage, deliveries int64) Message {
	msg := Message{ID: m.ID, Deliveries: deliveries}
	switch v := m.Values[payloadField].(type) {
	case string:
		msg.Body = []byte(v)
	case []byte:
		msg.Body = v
	}
	return msg
}
