package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/bookmd/internal/apperr"
	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/event"
	"github.com/hackgods/bookmd/internal/metrics"
)

// Gateway pairs a Database with the dispatcher that receives committed
// events. It is safe for concurrent use; Sessions are not.
type Gateway struct {
	Database
	dispatcher event.Dispatcher
	log        zerolog.Logger
	metrics    *metrics.Metrics
}

func NewGateway(db Database, d event.Dispatcher, log zerolog.Logger, m *metrics.Metrics) *Gateway {
	return &Gateway{
		Database:   db,
		dispatcher: d,
		log:        log.With().Str("component", "store").Logger(),
		metrics:    m,
	}
}

// Session starts an empty unit of work.
func (g *Gateway) Session() *Session {
	return &Session{gw: g}
}

type change struct {
	op     string
	apply  func(ctx context.Context, w Writer) (int, error)
	events []domain.Event
}

// Session stages changes and the events they raised.
type Session struct {
	gw     *Gateway
	staged []change
}

func (s *Session) stage(op string, apply func(ctx context.Context, w Writer) (int, error), events []domain.Event) {
	s.staged = append(s.staged, change{op: op, apply: apply, events: append([]domain.Event(nil), events...)})
}

func (s *Session) AddMember(m domain.Member, events ...domain.Event) {
	s.stage("insert member", func(ctx context.Context, w Writer) (int, error) {
		return w.InsertMember(ctx, m)
	}, events)
}

func (s *Session) UpdateMember(m domain.Member, events ...domain.Event) {
	s.stage("update member", func(ctx context.Context, w Writer) (int, error) {
		return w.UpdateMember(ctx, m)
	}, events)
}

// RecordVisit counts one more patient for the doctor.
func (s *Session) RecordVisit(doctorID uuid.UUID, at time.Time, events ...domain.Event) {
	s.stage("record visit", func(ctx context.Context, w Writer) (int, error) {
		return w.IncrementPatients(ctx, doctorID, at)
	}, events)
}

func (s *Session) AddAppointment(a *domain.Appointment, events ...domain.Event) {
	s.stage("insert appointment", func(ctx context.Context, w Writer) (int, error) {
		return w.InsertAppointment(ctx, a)
	}, events)
}

func (s *Session) UpdateAppointment(a *domain.Appointment, expectedVersion int, events ...domain.Event) {
	s.stage("update appointment", func(ctx context.Context, w Writer) (int, error) {
		return w.UpdateAppointment(ctx, a, expectedVersion)
	}, events)
}

func (s *Session) AddMedicalRecord(r *domain.MedicalRecord, events ...domain.Event) {
	s.stage("insert medical record", func(ctx context.Context, w Writer) (int, error) {
		return w.InsertMedicalRecord(ctx, r)
	}, events)
}

func (s *Session) AddMessage(m *domain.ChatMessage, events ...domain.Event) {
	s.stage("insert message", func(ctx context.Context, w Writer) (int, error) {
		return w.InsertMessage(ctx, m)
	}, events)
}

func (s *Session) MarkRead(receiver, sender uuid.UUID, events ...domain.Event) {
	s.stage("mark messages read", func(ctx context.Context, w Writer) (int, error) {
		return w.MarkMessagesRead(ctx, receiver, sender)
	}, events)
}

// Pending returns the staged events in dispatch order.
func (s *Session) Pending() []domain.Event {
	var out []domain.Event
	for _, c := range s.staged {
		out = append(out, c.events...)
	}
	return out
}

// SaveChanges writes every staged change and its events in one transaction
// and returns the number of entity rows written. On failure nothing is
// dispatched and the staged changes stay for a retry. After commit the
// events are dispatched in staging order and the session is emptied. A
// dispatch failure does not fail the call: the events stay in the outbox for
// the relay.
func (s *Session) SaveChanges(ctx context.Context) (int, error) {
	if len(s.staged) == 0 {
		return 0, nil
	}

	envs, err := event.WrapAll(s.Pending())
	if err != nil {
		return 0, err
	}

	written := 0
	err = s.gw.InTx(ctx, func(ctx context.Context, w Writer) error {
		written = 0
		for _, c := range s.staged {
			n, err := c.apply(ctx, w)
			if err != nil {
				return classify(c.op, err)
			}
			written += n
		}
		if len(envs) == 0 {
			return nil
		}
		if err := w.AppendOutbox(ctx, envs); err != nil {
			return classify("append outbox", err)
		}
		return nil
	})
	s.gw.metrics.ObserveSave(err)
	if err != nil {
		return 0, classify("save changes", err)
	}

	s.staged = nil
	s.dispatch(ctx, envs)
	return written, nil
}

func (s *Session) dispatch(ctx context.Context, envs []event.Envelope) {
	if len(envs) == 0 || s.gw.dispatcher == nil {
		return
	}
	start := time.Now()
	if err := s.gw.dispatcher.Dispatch(ctx, envs); err != nil {
		s.gw.log.Warn().Err(err).
			Int("events", len(envs)).
			Str("first_event_id", envs[0].ID.String()).
			Msg("post-commit dispatch failed, leaving events to the relay")
		return
	}
	if err := s.gw.MarkDispatched(ctx, event.IDs(envs)); err != nil {
		s.gw.log.Warn().Err(err).Int("events", len(envs)).Msg("mark dispatched failed")
		return
	}
	s.gw.log.Debug().Int("events", len(envs)).Dur("took", time.Since(start)).Msg("events dispatched")
}

// classify turns unclassified storage errors into persistence errors.
func classify(op string, err error) error {
	if apperr.KindOf(err) != "" {
		return err
	}
	return apperr.Persistence(op, err)
}
