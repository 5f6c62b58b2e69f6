package monitor

import (
	"context"
	"log"
	"time"
)

// maxPassesPerTick bounds one reclaim round when messages keep failing.
const maxPassesPerTick = 50

// Redeliverer hands unacknowledged click messages back to the consumer.
type Redeliverer interface {
	Redeliver(ctx context.Context, minIdle time.Duration) (int, error)
}

// PendingMonitor periodically redelivers click messages that were fetched but
// never acknowledged: persistence failures on this process, or messages owned by
// a consumer that died.
type PendingMonitor struct {
	consumer Redeliverer
	interval time.Duration // How often to look for stale messages
	minIdle  time.Duration // How long a message must stay unacked before it is taken back
}

// NewPendingMonitor creates and returns a new instance of PendingMonitor.
func NewPendingMonitor(consumer Redeliverer, interval, minIdle time.Duration) *PendingMonitor {
	return &PendingMonitor{
		consumer: consumer,
		interval: interval,
		minIdle:  minIdle,
	}
}

// Start runs the reclaim loop until ctx is cancelled.
func (m *PendingMonitor) Start(ctx context.Context) {
	log.Printf("[MONITOR] Starting pending click monitor with interval of %v (min idle %v)...", m.interval, m.minIdle)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Pick up whatever a previous run left behind before waiting for the first tick
	m.reclaim(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("[MONITOR] Pending click monitor stopped.")
			return
		case <-ticker.C:
			m.reclaim(ctx)
		}
	}
}

// reclaim drains stale messages batch by batch until none are left.
func (m *PendingMonitor) reclaim(ctx context.Context) {
	total := 0
	for pass := 0; pass < maxPassesPerTick && ctx.Err() == nil; pass++ {
		n, err := m.consumer.Redeliver(ctx, m.minIdle)
		if err != nil {
			log.Printf("[MONITOR] ERROR reclaiming pending clicks: %v", err)
			return
		}
		if n == 0 {
			break
		}
		total += n
	}
	if total > 0 {
		log.Printf("[NOTIFICATION] Redelivered %d pending click message(s).", total)
	}
}
