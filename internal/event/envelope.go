// Package event moves committed domain events to subscribers. Envelopes are
// written to the outbox in the same transaction as the change that raised
// them and dispatched only after that transaction commits.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/bookmd/internal/domain"
)

// Envelope is the wire and outbox form of a domain event.
type Envelope struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	AggregateID uuid.UUID       `json:"aggregateId"`
	OccurredAt  time.Time       `json:"occurredAt"`
	Payload     json.RawMessage `json:"payload"`
}

// Wrap serializes e into an envelope with a fresh id.
func Wrap(e domain.Event) (Envelope, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", e.EventType(), err)
	}
	return Envelope{
		ID:          uuid.New(),
		Type:        e.EventType(),
		AggregateID: e.AggregateID(),
		OccurredAt:  e.OccurredAt().UTC(),
		Payload:     payload,
	}, nil
}

// WrapAll wraps events preserving their order.
func WrapAll(events []domain.Event) ([]Envelope, error) {
	out := make([]Envelope, 0, len(events))
	for _, e := range events {
		env, err := Wrap(e)
		if err != nil {
			return nil, err
		}
		out = append(out, env)
	}
	return out, nil
}

func IDs(envs []Envelope) []uuid.UUID {
	ids := make([]uuid.UUID, len(envs))
	for i, e := range envs {
		ids[i] = e.ID
	}
	return ids
}
