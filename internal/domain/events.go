package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is a fact raised by a mutation. Mutating methods return their events
// to the caller instead of buffering them on the entity.
type Event interface {
	EventType() string
	AggregateID() uuid.UUID
	OccurredAt() time.Time
}

const (
	EventUserRegistered           = "user.registered"
	EventDoctorRegistered         = "doctor.registered"
	EventProfileUpdated           = "user.profile_updated"
	EventAvailabilityUpdated      = "doctor.availability_updated"
	EventAppointmentRequested     = "appointment.requested"
	EventAppointmentStatusChanged = "appointment.status_changed"
	EventMedicalRecordAdded       = "medical_record.added"
	EventMessageSent              = "chat.message_sent"
)

type UserRegistered struct {
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Role   Role      `json:"role"`
	At     time.Time `json:"occurredAt"`
}

func (e UserRegistered) EventType() string      { return EventUserRegistered }
func (e UserRegistered) AggregateID() uuid.UUID { return e.UserID }
func (e UserRegistered) OccurredAt() time.Time  { return e.At }

type DoctorRegistered struct {
	DoctorID        uuid.UUID       `json:"doctorId"`
	Specialty       Specialty       `json:"specialization"`
	ConsultationFee decimal.Decimal `json:"consultationFee"`
	At              time.Time       `json:"occurredAt"`
}

func (e DoctorRegistered) EventType() string      { return EventDoctorRegistered }
func (e DoctorRegistered) AggregateID() uuid.UUID { return e.DoctorID }
func (e DoctorRegistered) OccurredAt() time.Time  { return e.At }

type ProfileUpdated struct {
	UserID uuid.UUID `json:"userId"`
	Fields []string  `json:"fields"`
	At     time.Time `json:"occurredAt"`
}

func (e ProfileUpdated) EventType() string      { return EventProfileUpdated }
func (e ProfileUpdated) AggregateID() uuid.UUID { return e.UserID }
func (e ProfileUpdated) OccurredAt() time.Time  { return e.At }

type AvailabilityUpdated struct {
	DoctorID    uuid.UUID `json:"doctorId"`
	IsAvailable bool      `json:"isAvailable"`
	Breaks      int       `json:"breaks"`
	At          time.Time `json:"occurredAt"`
}

func (e AvailabilityUpdated) EventType() string      { return EventAvailabilityUpdated }
func (e AvailabilityUpdated) AggregateID() uuid.UUID { return e.DoctorID }
func (e AvailabilityUpdated) OccurredAt() time.Time  { return e.At }

type AppointmentRequested struct {
	AppointmentID uuid.UUID       `json:"appointmentId"`
	DoctorID      uuid.UUID       `json:"doctorId"`
	PatientID     *uuid.UUID      `json:"patientId,omitempty"`
	PreferredTime time.Time       `json:"preferredTime"`
	Type          AppointmentType `json:"type"`
	Fee           decimal.Decimal `json:"fee"`
	At            time.Time       `json:"occurredAt"`
}

func (e AppointmentRequested) EventType() string      { return EventAppointmentRequested }
func (e AppointmentRequested) AggregateID() uuid.UUID { return e.AppointmentID }
func (e AppointmentRequested) OccurredAt() time.Time  { return e.At }

type AppointmentStatusChanged struct {
	AppointmentID uuid.UUID `json:"appointmentId"`
	From          Status    `json:"from"`
	To            Status    `json:"to"`
	ActorID       uuid.UUID `json:"actorId"`
	ActorRole     Role      `json:"actorRole"`
	Version       int       `json:"version"`
	At            time.Time `json:"occurredAt"`
}

func (e AppointmentStatusChanged) EventType() string      { return EventAppointmentStatusChanged }
func (e AppointmentStatusChanged) AggregateID() uuid.UUID { return e.AppointmentID }
func (e AppointmentStatusChanged) OccurredAt() time.Time  { return e.At }

type MedicalRecordAdded struct {
	RecordID  uuid.UUID  `json:"recordId"`
	PatientID uuid.UUID  `json:"patientId"`
	DoctorID  uuid.UUID  `json:"doctorId"`
	Type      RecordType `json:"type"`
	At        time.Time  `json:"occurredAt"`
}

func (e MedicalRecordAdded) EventType() string      { return EventMedicalRecordAdded }
func (e MedicalRecordAdded) AggregateID() uuid.UUID { return e.RecordID }
func (e MedicalRecordAdded) OccurredAt() time.Time  { return e.At }

type MessageSent struct {
	MessageID  uuid.UUID   `json:"messageId"`
	SenderID   uuid.UUID   `json:"senderId"`
	ReceiverID uuid.UUID   `json:"receiverId"`
	Type       MessageType `json:"type"`
	At         time.Time   `json:"occurredAt"`
}

func (e MessageSent) EventType() string      { return EventMessageSent }
func (e MessageSent) AggregateID() uuid.UUID { return e.MessageID }
func (e MessageSent) OccurredAt() time.Time  { return e.At }
