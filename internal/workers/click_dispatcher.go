package workers

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/axellelanca/clickstream/internal/metrics"
	"github.com/axellelanca/clickstream/internal/models"
)

// Publisher is the producing side of the click queue.
type Publisher interface {
	Publish(ctx context.Context, body []byte) error
}

// ClickDispatcher takes click facts from the redirect path and forwards them to
// the durable queue from a small pool of goroutines. The redirect never waits:
// a full buffer drops the event.
type ClickDispatcher struct {
	events  chan models.ClickEvent
	queue   Publisher
	timeout time.Duration
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewClickDispatcher creates a dispatcher with a buffer of bufferSize events.
// timeout bounds each publish to the queue.
func NewClickDispatcher(q Publisher, bufferSize int, timeout time.Duration) *ClickDispatcher {
	return &ClickDispatcher{
		events:  make(chan models.ClickEvent, bufferSize),
		queue:   q,
		timeout: timeout,
		now:     time.Now,
	}
}

// Start launches workerCount forwarding goroutines.
func (d *ClickDispatcher) Start(workerCount int) {
	log.Printf("[DISPATCH] Starting %d click publisher(s)...", workerCount)
	for i := 0; i < workerCount; i++ {
		d.wg.Add(1)
		go d.forward()
	}
}

// Publish queues a click fact without blocking.
func (d *ClickDispatcher) Publish(shortCode, clientIP string) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		metrics.ClickEventsDropped.WithLabelValues("closed").Inc()
		return
	}

	event := models.ClickEvent{ShortCode: shortCode, ClientIP: clientIP, PublishedAt: d.now().UTC()}
	select {
	case d.events <- event:
	default:
		// Buffer full: analytics lose one click, the user still gets redirected.
		metrics.ClickEventsDropped.WithLabelValues("buffer_full").Inc()
		log.Printf("[DISPATCH] WARNING: click buffer is full, dropping click event for %s", shortCode)
	}
}

// Close stops accepting events and waits until the buffered ones are forwarded.
func (d *ClickDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.events)
	d.mu.Unlock()

	d.wg.Wait()
	log.Println("[DISPATCH] Click publishers stopped.")
}

func (d *ClickDispatcher) forward() {
	defer d.wg.Done()
	for event := range d.events {
		body, err := json.Marshal(event)
		if err != nil {
			metrics.ClickEventsDropped.WithLabelValues("encode").Inc()
			log.Printf("[DISPATCH] ERROR: cannot encode click for %s: %v", event.ShortCode, err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err = d.queue.Publish(ctx, body)
		cancel()
		if err != nil {
			metrics.ClickEventsDropped.WithLabelValues("publish").Inc()
			log.Printf("[DISPATCH] ERROR: failed to publish click for %s (IP: %s): %v", event.ShortCode, event.ClientIP, err)
		}
	}
}
