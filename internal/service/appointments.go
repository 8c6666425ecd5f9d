package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/bookmd/internal/domain"
	redisclient "github.com/hackgods/bookmd/internal/redis"
	"github.com/hackgods/bookmd/internal/store"
)

type BookAppointmentCommand struct {
	// IdempotencyKey is optional. A repeated key returns the appointment
	// created by the first request, or a conflict when the booking differs.
	IdempotencyKey string
	DoctorID       uuid.UUID
	PatientID      *uuid.UUID
	PatientName    string
	PatientEmail   string
	Symptoms       string
	PreferredTime  time.Time
	Type           domain.AppointmentType
	Notes          string
}

// BookAppointment creates a pending appointment. The returned flag is true
// when the result is a replay of an earlier request with the same key.
func (s *Service) BookAppointment(ctx context.Context, cmd BookAppointmentCommand) (AppointmentDto, bool, error) {
	if cmd.IdempotencyKey == "" {
		a, err := s.book(ctx, cmd)
		return a, false, err
	}

	key := redisclient.AppointmentKey(cmd.IdempotencyKey)
	prior, err := s.idem.Reserve(ctx, key)
	if err != nil {
		return AppointmentDto{}, false, err
	}
	fp := cmd.fingerprint()
	if prior != "" {
		stored, storedFP, _ := strings.Cut(prior, " ")
		if storedFP != "" && storedFP != fp {
			return AppointmentDto{}, false, ErrIdempotencyKeyReused
		}
		id, err := uuid.Parse(stored)
		if err != nil {
			return AppointmentDto{}, false, fmt.Errorf("stored idempotency result %q: %w", prior, err)
		}
		a, err := s.gw.GetAppointment(ctx, id)
		if err != nil {
			return AppointmentDto{}, false, err
		}
		return toAppointmentDto(a), true, nil
	}

	dto, err := s.book(ctx, cmd)
	// The key outlives a cancelled request.
	bg := context.WithoutCancel(ctx)
	if err != nil {
		if relErr := s.idem.Release(bg, key); relErr != nil {
			s.log.Warn().Err(relErr).Str("key", cmd.IdempotencyKey).Msg("release idempotency key")
		}
		return AppointmentDto{}, false, err
	}
	if err := s.idem.Complete(bg, key, dto.ID.String()+" "+fp); err != nil {
		s.log.Warn().Err(err).Str("key", cmd.IdempotencyKey).Msg("complete idempotency key")
	}
	return dto, false, nil
}

// fingerprint identifies the booking a key was first used for.
func (cmd BookAppointmentCommand) fingerprint() string {
	patient := ""
	if cmd.PatientID != nil {
		patient = cmd.PatientID.String()
	}
	sum := sha256.Sum256([]byte(strings.Join([]string{
		cmd.DoctorID.String(),
		patient,
		cmd.PreferredTime.UTC().Format(time.RFC3339Nano),
		string(cmd.Type),
		cmd.Symptoms,
	}, "\x00")))
	return hex.EncodeToString(sum[:16])
}

func (s *Service) book(ctx context.Context, cmd BookAppointmentCommand) (AppointmentDto, error) {
	now := s.now()
	if cmd.PreferredTime.IsZero() {
		return AppointmentDto{}, domain.ErrPreferredTime
	}
	if cmd.PreferredTime.Before(now) {
		return AppointmentDto{}, ErrPreferredTimePast
	}

	doctor, err := s.gw.GetDoctor(ctx, cmd.DoctorID)
	if err != nil {
		return AppointmentDto{}, err
	}

	if cmd.PatientID != nil {
		m, err := s.gw.GetMember(ctx, *cmd.PatientID)
		if err != nil {
			return AppointmentDto{}, err
		}
		p, ok := m.(*domain.Patient)
		if !ok {
			return AppointmentDto{}, ErrNotAPatient
		}
		if cmd.PatientName == "" {
			cmd.PatientName = p.FullName()
		}
		if cmd.PatientEmail == "" {
			cmd.PatientEmail = p.Email
		}
	}

	if b := doctor.Availability.Evaluate(cmd.PreferredTime); !b.Bookable {
		return AppointmentDto{}, fmt.Errorf("%w: %s", ErrDoctorUnavailable, b.Reason)
	}

	appt, events, err := domain.NewAppointment(domain.BookingParams{
		DoctorID:      doctor.ID,
		PatientID:     cmd.PatientID,
		PatientName:   cmd.PatientName,
		PatientEmail:  cmd.PatientEmail,
		Symptoms:      cmd.Symptoms,
		PreferredTime: cmd.PreferredTime,
		Type:          cmd.Type,
		Notes:         cmd.Notes,
		Fee:           doctor.ConsultationFee,
	}, now)
	if err != nil {
		return AppointmentDto{}, err
	}

	// Inside the critical section re-check the doctor's calendar.
	err = s.locker.WithLock(ctx, redisclient.DoctorLockKey(doctor.ID), func(lockCtx context.Context) error {
		t := appt.PreferredTime
		existing, err := s.gw.FindActiveAppointments(lockCtx, doctor.ID, t.Add(-s.slot), t.Add(s.slot))
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: %s", ErrSlotTaken, existing[0].PreferredTime.Format(time.RFC3339))
		}

		sess := s.gw.Session()
		sess.AddAppointment(appt, events...)
		_, err = sess.SaveChanges(lockCtx)
		return err
	})
	if err != nil {
		return AppointmentDto{}, err
	}

	s.log.Info().
		Str("appointment_id", appt.ID.String()).
		Str("doctor_id", doctor.ID.String()).
		Time("preferred_time", appt.PreferredTime).
		Msg("appointment requested")
	return toAppointmentDto(appt), nil
}

type AppointmentQuery struct {
	UserID uuid.UUID
	Role   domain.Role
	Status domain.Status
}

// ListAppointments returns a doctor's or a patient's appointments ordered by
// preferred time. Other roles get an empty list.
func (s *Service) ListAppointments(ctx context.Context, q AppointmentQuery) ([]AppointmentDto, error) {
	f := store.AppointmentFilter{Status: q.Status}
	switch q.Role {
	case domain.RoleDoctor:
		f.DoctorID = &q.UserID
	case domain.RolePatient:
		f.PatientID = &q.UserID
	default:
		return []AppointmentDto{}, nil
	}
	list, err := s.gw.ListAppointments(ctx, f)
	if err != nil {
		return nil, err
	}
	return mapAll(list, toAppointmentDto), nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (AppointmentDto, error) {
	a, err := s.gw.GetAppointment(ctx, id)
	if err != nil {
		return AppointmentDto{}, err
	}
	return toAppointmentDto(a), nil
}

type TransitionCommand struct {
	Actor domain.Actor
	To    domain.Status
	// ExpectedVersion, when set, must match the stored version.
	ExpectedVersion *int
	ActualTime      *time.Time
	Notes           *string
}

// TransitionAppointment moves an appointment along the status machine.
// Completing a visit also bumps the doctor's patient count in the same save.
func (s *Service) TransitionAppointment(ctx context.Context, id uuid.UUID, cmd TransitionCommand) (AppointmentDto, error) {
	a, err := s.gw.GetAppointment(ctx, id)
	if err != nil {
		return AppointmentDto{}, err
	}
	if cmd.ExpectedVersion != nil && *cmd.ExpectedVersion != a.Version {
		return AppointmentDto{}, fmt.Errorf("%w: have %d, want %d", store.ErrVersionConflict, a.Version, *cmd.ExpectedVersion)
	}

	now := s.now()
	version := a.Version
	events, err := a.ChangeStatus(domain.StatusChange{
		To:         cmd.To,
		Actor:      cmd.Actor,
		ActualTime: cmd.ActualTime,
		Notes:      cmd.Notes,
	}, now)
	if err != nil {
		return AppointmentDto{}, err
	}

	sess := s.gw.Session()
	sess.UpdateAppointment(a, version, events...)
	if a.Status == domain.StatusCompleted {
		sess.RecordVisit(a.DoctorID, now)
	}
	if _, err := sess.SaveChanges(ctx); err != nil {
		return AppointmentDto{}, err
	}

	s.log.Info().
		Str("appointment_id", a.ID.String()).
		Str("status", string(a.Status)).
		Int("version", a.Version).
		Msg("appointment status changed")
	return toAppointmentDto(a), nil
}
