package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Queue with the same ack semantics as RedisStream.
// Messages do not survive a restart; it serves single-process runs and tests.
type Memory struct {
	mu      sync.Mutex
	ready   []Message
	pending map[string]*pendingEntry
	order   []string // pending IDs in first-delivery order
	notify  chan struct{}
	block   time.Duration
	now     func() time.Time
}

type pendingEntry struct {
	msg         Message
	deliveredAt time.Time
}

// NewMemory creates an empty queue whose Fetch waits up to block for messages.
func NewMemory(block time.Duration) *Memory {
	return &Memory{
		pending: make(map[string]*pendingEntry),
		notify:  make(chan struct{}, 1),
		block:   block,
		now:     time.Now,
	}
}

// Publish enqueues body.
func (q *Memory) Publish(_ context.Context, body []byte) error {
	q.mu.Lock()
	q.ready = append(q.ready, Message{ID: uuid.NewString(), Body: append([]byte(nil), body...)})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
	return nil
}

// Fetch hands out up to max ready messages and marks them pending.
func (q *Memory) Fetch(ctx context.Context, max int) ([]Message, error) {
	if msgs := q.take(max); len(msgs) > 0 || q.block <= 0 {
		return msgs, nil
	}

	timer := time.NewTimer(q.block)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case <-q.notify:
		return q.take(max), nil
	}
}

func (q *Memory) take(max int) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := min(max, len(q.ready))
	if n == 0 {
		return nil
	}
	msgs := make([]Message, n)
	copy(msgs, q.ready[:n])
	q.ready = q.ready[n:]

	now := q.now()
	for i := range msgs {
		msgs[i].Deliveries = 1
		q.pending[msgs[i].ID] = &pendingEntry{msg: msgs[i], deliveredAt: now}
		q.order = append(q.order, msgs[i].ID)
	}
	return msgs
}

// Reclaim redelivers pending messages idle for at least minIdle.
func (q *Memory) Reclaim(_ context.Context, minIdle time.Duration, max int) ([]Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	var msgs []Message
	for _, id := range q.order {
		if len(msgs) >= max {
			break
		}
		entry, ok := q.pending[id]
		if !ok || now.Sub(entry.deliveredAt) < minIdle {
			continue
		}
		entry.msg.Deliveries++
		entry.deliveredAt = now
		msgs = append(msgs, entry.msg)
	}
	return msgs, nil
}

// Ack forgets a pending message.
func (q *Memory) Ack(_ context.Context, id string) error {
	q.settle(id)
	return nil
}

// Reject drops a pending message for good.
func (q *Memory) Reject(_ context.Context, id string) error {
	q.settle(id)
	return nil
}

func (q *Memory) settle(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.pending, id)
	for i, pid := range q.order {
		if pid == id {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
}

// Pending reports how many messages were delivered but not yet settled.
func (q *Memory) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
