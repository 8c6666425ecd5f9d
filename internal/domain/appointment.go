package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusDeclined  Status = "declined"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// transitions is the complete set of allowed status edges.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusDeclined, StatusCancelled},
	StatusApproved: {StatusCompleted, StatusCancelled},
}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusApproved, StatusDeclined, StatusCompleted, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

// Terminal reports whether no edge leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

// Active statuses hold the doctor's time.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// CanTransition reports whether from -> to is an allowed edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow-up"
	TypeEmergency    AppointmentType = "emergency"
)

// ParseAppointmentType defaults an empty input to a consultation.
func ParseAppointmentType(s string) (AppointmentType, error) {
	switch t := AppointmentType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TypeConsultation, nil
	case TypeConsultation, TypeFollowUp, TypeEmergency:
		return t, nil
	case "followup", "follow_up":
		return TypeFollowUp, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// Actor is whoever performs an operation.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

type Appointment struct {
	ID            uuid.UUID
	DoctorID      uuid.UUID
	PatientID     *uuid.UUID
	PatientName   string
	PatientEmail  string
	Symptoms      string
	PreferredTime time.Time
	ActualTime    *time.Time
	Status        Status
	Type          AppointmentType
	Fee           decimal.Decimal
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int
}

type BookingParams struct {
	DoctorID      uuid.UUID
	PatientID     *uuid.UUID
	PatientName   string
	PatientEmail  string
	Symptoms      string
	PreferredTime time.Time
	Type          AppointmentType
	Notes         string
	// Fee is the doctor's consultation fee at booking time.
	Fee decimal.Decimal
}

// NewAppointment creates a pending appointment at version 1.
func NewAppointment(p BookingParams, now time.Time) (*Appointment, []Event, error) {
	if strings.TrimSpace(p.PatientName) == "" {
		return nil, nil, ErrNameRequired
	}
	if strings.TrimSpace(p.PatientEmail) == "" {
		return nil, nil, ErrEmailRequired
	}
	if p.PreferredTime.IsZero() {
		return nil, nil, ErrPreferredTime
	}
	if p.Fee.IsNegative() {
		return nil, nil, ErrNegativeFee
	}
	typ := p.Type
	if typ == "" {
		typ = TypeConsultation
	}
	if _, err := ParseAppointmentType(string(typ)); err != nil {
		return nil, nil, err
	}
	a := &Appointment{
		ID:            uuid.New(),
		DoctorID:      p.DoctorID,
		PatientID:     p.PatientID,
		PatientName:   strings.TrimSpace(p.PatientName),
		PatientEmail:  strings.TrimSpace(p.PatientEmail),
		Symptoms:      p.Symptoms,
		PreferredTime: p.PreferredTime.UTC(),
		Status:        StatusPending,
		Type:          typ,
		Fee:           p.Fee,
		Notes:         p.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}
	return a, []Event{AppointmentRequested{
		AppointmentID: a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		PreferredTime: a.PreferredTime,
		Type:          a.Type,
		Fee:           a.Fee,
		At:            now,
	}}, nil
}

// StatusChange requests a move to To. ActualTime applies on approval and
// defaults to the preferred time; Notes replaces the notes when set.
type StatusChange struct {
	To         Status
	Actor      Actor
	ActualTime *time.Time
	Notes      *string
}

// ChangeStatus applies c if the edge exists and the actor may take it.
func (a *Appointment) ChangeStatus(c StatusChange, now time.Time) ([]Event, error) {
	if !CanTransition(a.Status, c.To) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, c.To)
	}
	if err := a.authorize(c); err != nil {
		return nil, err
	}

	from := a.Status
	a.Status = c.To
	if c.To == StatusApproved {
		at := a.PreferredTime
		if c.ActualTime != nil {
			at = c.ActualTime.UTC()
		}
		a.ActualTime = &at
	}
	if c.Notes != nil {
		a.Notes = *c.Notes
	}
	a.UpdatedAt = now
	a.Version++

	return []Event{AppointmentStatusChanged{
		AppointmentID: a.ID,
		From:          from,
		To:            a.Status,
		ActorID:       c.Actor.UserID,
		ActorRole:     c.Actor.Role,
		Version:       a.Version,
		At:            now,
	}}, nil
}

func (a *Appointment) authorize(c StatusChange) error {
	assignedDoctor := c.Actor.Role == RoleDoctor && c.Actor.UserID == a.DoctorID
	if c.To != StatusCancelled {
		if !assignedDoctor {
			return ErrNotAssignedDoctor
		}
		return nil
	}
	switch {
	case assignedDoctor:
		return nil
	case c.Actor.Role == RoleFrontDeskAdministrator:
		return nil
	case c.Actor.Role == RolePatient && a.PatientID != nil && *a.PatientID == c.Actor.UserID:
		return nil
	}
	return ErrCancellationDenied
}

// Within reports whether a is active and its preferred time lies strictly
// closer than d to t.
func (a *Appointment) Within(t time.Time, d time.Duration) bool {
	if !a.Status.Active() {
		return false
	}
	diff := a.PreferredTime.Sub(t)
	if diff < 0 {
		diff = -diff
	}
	return diff < d
}

func (a *Appointment) Clone() *Appointment {
	c := *a
	if a.PatientID != nil {
		id := *a.PatientID
		c.PatientID = &id
	}
	if a.ActualTime != nil {
		at := *a.ActualTime
		c.ActualTime = &at
	}
	return &c
}
