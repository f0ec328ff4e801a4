package events

import (
	"context"
	"time"

	"vaultpay/internal/repositories"

	"go.uber.org/zap"
)

const (
	defaultBatchSize    = 100
	defaultPollInterval = time.Second
)

// Relay drains the transactional outbox into the event bus. Events are
// published in insertion order; a failed publish stops the batch so a
// later event for the same aggregate can never overtake it.
type Relay struct {
	outbox    repositories.OutboxRepository
	publisher Publisher
	logger    *zap.SugaredLogger

	batchSize int
	interval  time.Duration
}

// NewRelay creates an outbox relay.
func NewRelay(outbox repositories.OutboxRepository, publisher Publisher, logger *zap.SugaredLogger) *Relay {
	if outbox == nil {
		panic("events: outbox repository is required")
	}
	if publisher == nil {
		panic("events: publisher is required")
	}
	if logger == nil {
		panic("events: logger is required")
	}
	return &Relay{
		outbox:    outbox,
		publisher: publisher,
		logger:    logger,
		batchSize: defaultBatchSize,
		interval:  defaultPollInterval,
	}
}

// Run polls until the context is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Infow("outbox relay started", "interval", r.interval, "batch_size", r.batchSize)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if n, err := r.Drain(ctx); err != nil {
				r.logger.Errorw("outbox drain failed", "published", n, "err", err)
			}
		}
	}
}

// Drain publishes one batch of unprocessed events and marks the
// published prefix processed. It returns how many events went out.
func (r *Relay) Drain(ctx context.Context) (int, error) {
	events, err := r.outbox.FetchUnprocessed(r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	var done []uint
	var publishErr error
	for _, event := range events {
		if err := r.publisher.Publish(ctx, event); err != nil {
			publishErr = err
			break
		}
		done = append(done, event.ID)
	}

	if len(done) > 0 {
		if err := r.outbox.MarkProcessed(done); err != nil {
			// Already published; they will be re-sent next tick.
			// Consumers must dedupe on envelope ID.
			return len(done), err
		}
	}
	return len(done), publishErr
}
