// Package relay moves pending outbox records to the message broker.
package relay

import (
	"context"
	"time"

	"github.com/nazeru/storefront-checkout-go/pkg/logging"
	"github.com/nazeru/storefront-checkout-go/pkg/outbox"
)

type Source interface {
	FetchPending(ctx context.Context, limit int) ([]outbox.Record, error)
	MarkSent(ctx context.Context, id int64) error
}

type Publisher interface {
	Publish(ctx context.Context, topic, key string, value []byte) error
}

type Relay struct {
	src       Source
	pub       Publisher
	BatchSize int
	Interval  time.Duration
}

func New(src Source, pub Publisher) *Relay {
	return &Relay{src: src, pub: pub, BatchSize: 100, Interval: time.Second}
}

// Flush publishes one batch in id order and returns how many records were
// sent. It stops at the first publish failure so ordering per cart is kept.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	records, err := r.src.FetchPending(ctx, r.BatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, rec := range records {
		if err := r.pub.Publish(ctx, rec.Topic, rec.Key, rec.Payload); err != nil {
			return sent, err
		}
		if err := r.src.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}
		logging.Log(logging.Fields{Service: "checkout-relay", CartID: rec.Key, EventID: rec.EventID, Status: "published"})
		sent++
	}
	return sent, nil
}

// Run flushes until ctx is cancelled. A full batch is followed immediately by
// another flush; otherwise the relay sleeps for Interval.
func (r *Relay) Run(ctx context.Context) error {
	for {
		n, err := r.Flush(ctx)
		if err != nil {
			logging.Log(logging.Fields{Service: "checkout-relay", Status: "flush_error", Message: err.Error()})
		}
		if err == nil && n == r.BatchSize {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.Interval):
		}
	}
}
