// Package queue is the durable, at-least-once click channel between the redirect
// path and the ingestion consumer.
package queue

import (
	"context"
	"time"
)

// Message is one delivery of a queued payload.
type Message struct {
	ID   string
	Body []byte
	// Deliveries is how many times the message has been handed out, when known.
	Deliveries int64
}

// Queue is a single logical stream with manual acknowledgment.
// A fetched message stays pending until it is acked or rejected; pending
// messages idle for long enough come back through Reclaim.
type Queue interface {
	Publish(ctx context.Context, body []byte) error
	// Fetch returns up to max new messages, waiting at most the queue's block window.
	// An empty result with a nil error means nothing arrived in time.
	Fetch(ctx context.Context, max int) ([]Message, error)
	// Reclaim hands out again up to max pending messages idle for at least minIdle.
	Reclaim(ctx context.Context, minIdle time.Duration, max int) ([]Message, error)
	// Ack removes a processed message.
	Ack(ctx context.Context, id string) error
	// Reject drops a message for good; it is never redelivered.
	Reject(ctx context.Context, id string) error
}
