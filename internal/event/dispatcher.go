package event

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hackgods/bookmd/internal/metrics"
)

// Dispatcher delivers a batch of envelopes in order.
type Dispatcher interface {
	Dispatch(ctx context.Context, events []Envelope) error
}

// Sink is a named Dispatcher.
type Sink interface {
	Dispatcher
	Name() string
}

// Fanout hands every batch to each sink in turn. A failing sink does not stop
// the others; their errors are joined.
type Fanout struct {
	sinks   []Sink
	metrics *metrics.Metrics
}

func NewFanout(m *metrics.Metrics, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, metrics: m}
}

func (f *Fanout) Dispatch(ctx context.Context, events []Envelope) error {
	if len(events) == 0 {
		return nil
	}
	var errs []error
	for _, s := range f.sinks {
		err := s.Dispatch(ctx, events)
		f.metrics.ObserveDispatch(s.Name(), len(events), err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// LogSink writes each event to the logger.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log.With().Str("component", "event_log_sink").Logger()}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Dispatch(_ context.Context, events []Envelope) error {
	for _, e := range events {
		s.log.Info().
			Str("event_id", e.ID.String()).
			Str("event_type", e.Type).
			Str("aggregate_id", e.AggregateID.String()).
			RawJSON("payload", e.Payload).
			Msg("domain event")
	}
	return nil
}

// Recorder keeps every dispatched batch in memory. Err, when set, is returned
// instead of recording.
type Recorder struct {
	mu      sync.Mutex
	batches [][]Envelope
	Err     error
}

func (r *Recorder) Name() string { return "recorder" }

func (r *Recorder) Dispatch(_ context.Context, events []Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.batches = append(r.batches, append([]Envelope(nil), events...))
	return nil
}

func (r *Recorder) Batches() [][]Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Envelope(nil), r.batches...)
}

// Types flattens every recorded batch into its event types.
func (r *Recorder) Types() []string {
	var out []string
	for _, b := range r.Batches() {
		for _, e := range b {
			out = append(out, e.Type)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	r.batches = nil
	r.mu.Unlock()
}
