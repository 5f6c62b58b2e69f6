// Package workers runs the asynchronous halves of the click pipeline: the
// dispatcher feeding the click queue and the consumer draining it.
package workers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/netip"
	"time"

	customerrors "github.com/axellelanca/clickstream/internal/errors"
	"github.com/axellelanca/clickstream/internal/metrics"
	"github.com/axellelanca/clickstream/internal/models"
	"github.com/axellelanca/clickstream/internal/queue"
	"github.com/axellelanca/clickstream/internal/repository"
)

// Outcome is what happened to one consumed message.
type Outcome int

const (
	// OutcomeAcked means the click was persisted and acknowledged.
	OutcomeAcked Outcome = iota
	// OutcomeRejected means the message was malformed and dropped for good.
	OutcomeRejected
	// OutcomeDeferred means persistence failed; the message stays pending for redelivery.
	OutcomeDeferred
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAcked:
		return "acked"
	case OutcomeRejected:
		return "rejected"
	case OutcomeDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

var errMissingShortCode = errors.New("click event without short code")

// GeoLocator enriches an address; it never fails.
type GeoLocator interface {
	Lookup(ctx context.Context, addr netip.Addr) models.GeoInfo
}

// ConsumerConfig tunes a ClickConsumer.
type ConsumerConfig struct {
	BatchSize      int
	ProcessTimeout time.Duration
}

// ClickConsumer drains the click queue: validate, enrich, persist, then ack.
// Messages are handled one at a time in fetch order.
type ClickConsumer struct {
	queue     queue.Queue
	locator   GeoLocator
	clickRepo repository.ClickRepository
	cfg       ConsumerConfig
	now       func() time.Time
}

// NewClickConsumer creates a consumer owning its queue handle.
func NewClickConsumer(q queue.Queue, locator GeoLocator, clickRepo repository.ClickRepository, cfg ConsumerConfig) *ClickConsumer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.ProcessTimeout <= 0 {
		cfg.ProcessTimeout = 5 * time.Second
	}
	return &ClickConsumer{
		queue:     q,
		locator:   locator,
		clickRepo: clickRepo,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run polls until ctx is cancelled.
func (c *ClickConsumer) Run(ctx context.Context) error {
	log.Println("[CONSUMER] Click consumer started.")
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			log.Println("[CONSUMER] Click consumer stopped.")
			return nil
		}

		if _, err := c.Poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			log.Printf("[CONSUMER] ERROR polling click queue: %v (retrying in %v)", err, backoff)
			select {
			case <-ctx.Done():
			case <-time.After(backoff):
			}
		}
	}
}

// Poll fetches one batch of new messages and handles them. It returns how many
// messages were handled.
func (c *ClickConsumer) Poll(ctx context.Context) (int, error) {
	msgs, err := c.queue.Fetch(ctx, c.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	for _, msg := range msgs {
		c.Handle(ctx, msg)
	}
	return len(msgs), nil
}

// Redeliver reclaims messages left unacknowledged for at least minIdle and
// handles them again.
func (c *ClickConsumer) Redeliver(ctx context.Context, minIdle time.Duration) (int, error) {
	msgs, err := c.queue.Reclaim(ctx, minIdle, c.cfg.BatchSize)
	if err != nil {
		return 0, err
	}
	for _, msg := range msgs {
		c.Handle(ctx, msg)
	}
	return len(msgs), nil
}

// Handle runs one message through RECEIVED -> VALIDATED -> ENRICHED -> PERSISTED -> ACKED,
// or RECEIVED -> REJECTED when the payload can never be processed.
func (c *ClickConsumer) Handle(ctx context.Context, msg queue.Message) Outcome {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProcessTimeout)
	defer cancel()

	outcome := c.handle(ctx, msg)
	metrics.ClickMessagesProcessed.WithLabelValues(outcome.String()).Inc()
	return outcome
}

func (c *ClickConsumer) handle(ctx context.Context, msg queue.Message) Outcome {
	event, addr, err := decode(msg.Body)
	if err != nil {
		// Poison message: redelivery would fail the same way forever.
		log.Printf("[CONSUMER] Rejecting message %s: %v", msg.ID, err)
		if err := c.queue.Reject(ctx, msg.ID); err != nil {
			log.Printf("[CONSUMER] ERROR rejecting message %s: %v", msg.ID, err)
		}
		return OutcomeRejected
	}

	geo := c.locator.Lookup(ctx, addr)

	click := &models.Click{
		ShortCode: event.ShortCode,
		ClientIP:  event.ClientIP,
		Timestamp: c.now().UTC(),
		Country:   geo.Country,
		City:      geo.City,
		Latitude:  geo.Latitude,
		Longitude: geo.Longitude,
	}
	if err := c.clickRepo.CreateClick(ctx, click); err != nil {
		failure := customerrors.ErrClickRecordingFailed{ShortCode: event.ShortCode, Reason: err.Error()}
		log.Printf("[CONSUMER] ERROR: %v; message %s left for redelivery", failure, msg.ID)
		return OutcomeDeferred
	}

	if err := c.queue.Ack(ctx, msg.ID); err != nil {
		// The click is stored; a redelivery would record it twice.
		log.Printf("[CONSUMER] ERROR acking message %s after persisting: %v", msg.ID, err)
	}
	return OutcomeAcked
}

func decode(body []byte) (models.ClickEvent, netip.Addr, error) {
	var event models.ClickEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return event, netip.Addr{}, err
	}
	if event.ShortCode == "" {
		return event, netip.Addr{}, errMissingShortCode
	}
	addr, err := netip.ParseAddr(event.ClientIP)
	if err != nil {
		return event, netip.Addr{}, customerrors.ErrInvalidIP
	}
	return event, addr.Unmap(), nil
}
