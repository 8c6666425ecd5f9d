package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/bookmd/internal/metrics"
)

// Outbox is the storage side of the relay.
type Outbox interface {
	ListUndispatched(ctx context.Context, olderThan time.Time, limit int) ([]Envelope, error)
	MarkDispatched(ctx context.Context, ids []uuid.UUID) error
}

type RelayConfig struct {
	BatchSize int
	// MinAge leaves fresh events to the SaveChanges that wrote them.
	MinAge time.Duration
}

// Relay redelivers committed events whose post-commit dispatch failed.
type Relay struct {
	outbox     Outbox
	dispatcher Dispatcher
	cfg        RelayConfig
	log        zerolog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewRelay(outbox Outbox, d Dispatcher, cfg RelayConfig, log zerolog.Logger, m *metrics.Metrics) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Relay{
		outbox:     outbox,
		dispatcher: d,
		cfg:        cfg,
		log:        log.With().Str("component", "event_relay").Logger(),
		metrics:    m,
		now:        time.Now,
	}
}

// RunOnce delivers batches until the outbox has nothing old enough left and
// returns how many events went out.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	total := 0
	for {
		cutoff := r.now().Add(-r.cfg.MinAge)
		batch, err := r.outbox.ListUndispatched(ctx, cutoff, r.cfg.BatchSize)
		if err != nil {
			return total, fmt.Errorf("list undispatched events: %w", err)
		}
		if len(batch) == 0 {
			return total, nil
		}
		if err := r.dispatcher.Dispatch(ctx, batch); err != nil {
			return total, fmt.Errorf("dispatch %d events: %w", len(batch), err)
		}
		if err := r.outbox.MarkDispatched(ctx, IDs(batch)); err != nil {
			return total, fmt.Errorf("mark dispatched: %w", err)
		}
		total += len(batch)
		r.metrics.ObserveRelayed(len(batch))
		r.log.Debug().Int("count", len(batch)).Msg("relayed outbox batch")
		if len(batch) < r.cfg.BatchSize {
			return total, nil
		}
	}
}
