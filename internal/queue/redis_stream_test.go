package queue

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStream(t *testing.T, consumer string) (*RedisStream, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	q := NewRedisStream(client, StreamConfig{
		Stream:   "clicks",
		Group:    "analytics",
		Consumer: consumer,
		Block:    -1,
	})
	require.NoError(t, q.EnsureGroup(context.Background()))
	return q, client
}

func TestRedisStream_EnsureGroupIsIdempotent(t *testing.T) {
	q, _ := newTestStream(t, "c1")
	assert.NoError(t, q.EnsureGroup(context.Background()))
}

func TestRedisStream_PublishFetchAck(t *testing.T) {
	ctx := context.Background()
	q, client := newTestStream(t, "c1")

	require.NoError(t, q.Publish(ctx, []byte(`{"short_code":"abc123","client_ip":"203.0.113.5"}`)))

	msgs, err := q.Fetch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.JSONEq(t, `{"short_code":"abc123","client_ip":"203.0.113.5"}`, string(msgs[0].Body))

	pending, err := client.XPending(ctx, "clicks", "analytics").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending.Count)

	require.NoError(t, q.Ack(ctx, msgs[0].ID))

	pending, err = client.XPending(ctx, "clicks", "analytics").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), pending.Count)

	msgs, err = q.Fetch(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRedisStream_RejectDeletesEntry(t *testing.T) {
	ctx := context.Background()
	q, client := newTestStream(t, "c1")

	require.NoError(t, q.Publish(ctx, []byte("garbage")))
	msgs, err := q.Fetch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, q.Reject(ctx, msgs[0].ID))

	length, err := client.XLen(ctx, "clicks").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), length)

	reclaimed, err := q.Reclaim(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, reclaimed)
}

func TestRedisStream_ReclaimUnackedEntries(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestStream(t, "c1")

	require.NoError(t, q.Publish(ctx, []byte("payload")))
	msgs, err := q.Fetch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	reclaimed, err := q.Reclaim(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, reclaimed, 1)
	assert.Equal(t, msgs[0].ID, reclaimed[0].ID)
	assert.Equal(t, "payload", string(reclaimed[0].Body))
}
