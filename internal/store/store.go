// Package store is the persistence gateway. Reads go straight to the
// Database; writes are staged on a Session and flushed together by
// SaveChanges.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/event"
)

type DoctorFilter struct {
	Specialty     domain.Specialty
	AvailableOnly bool
}

type AppointmentFilter struct {
	DoctorID  *uuid.UUID
	PatientID *uuid.UUID
	Status    domain.Status
}

// Reader lists and fetches entities. Missing entities yield an
// apperr.KindNotFound error. Lists come back in storage order unless noted.
type Reader interface {
	ListUsers(ctx context.Context) ([]domain.User, error)
	GetMember(ctx context.Context, id uuid.UUID) (domain.Member, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)

	ListDoctors(ctx context.Context, f DoctorFilter) ([]*domain.Doctor, error)
	GetDoctor(ctx context.Context, id uuid.UUID) (*domain.Doctor, error)

	GetAppointment(ctx context.Context, id uuid.UUID) (*domain.Appointment, error)
	// ListAppointments orders by preferred time.
	ListAppointments(ctx context.Context, f AppointmentFilter) ([]*domain.Appointment, error)
	// FindActiveAppointments returns pending or approved appointments of a
	// doctor with from < preferred time < to.
	FindActiveAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*domain.Appointment, error)

	// ListMedicalRecords orders newest first. An empty type matches all.
	ListMedicalRecords(ctx context.Context, patientID uuid.UUID, t domain.RecordType) ([]*domain.MedicalRecord, error)
	// ListMessages returns the conversation of a and b oldest first.
	ListMessages(ctx context.Context, a, b uuid.UUID) ([]*domain.ChatMessage, error)
}

// Writer applies changes inside one transaction. Each call returns the number
// of entity rows it wrote.
type Writer interface {
	InsertMember(ctx context.Context, m domain.Member) (int, error)
	UpdateMember(ctx context.Context, m domain.Member) (int, error)
	// IncrementPatients bumps a doctor's patient count in place, leaving the
	// rest of the profile untouched.
	IncrementPatients(ctx context.Context, doctorID uuid.UUID, at time.Time) (int, error)
	InsertAppointment(ctx context.Context, a *domain.Appointment) (int, error)
	// UpdateAppointment fails with a conflict when the stored version is not
	// expectedVersion.
	UpdateAppointment(ctx context.Context, a *domain.Appointment, expectedVersion int) (int, error)
	InsertMedicalRecord(ctx context.Context, r *domain.MedicalRecord) (int, error)
	InsertMessage(ctx context.Context, m *domain.ChatMessage) (int, error)
	MarkMessagesRead(ctx context.Context, receiver, sender uuid.UUID) (int, error)
	AppendOutbox(ctx context.Context, events []event.Envelope) error
}

// Database is a backing store. Memory and postgres implement it.
type Database interface {
	Reader
	event.Outbox
	// InTx runs fn in a transaction. fn's error rolls everything back.
	InTx(ctx context.Context, fn func(ctx context.Context, w Writer) error) error
	Ping(ctx context.Context) error
	Close()
}
