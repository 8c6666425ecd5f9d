// Package postgres implements store.Database on a pgx pool.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/event"
	"github.com/hackgods/bookmd/internal/store"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type DB struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *DB {
	return &DB{pool: pool}
}

func (db *DB) Ping(ctx context.Context) error { return db.pool.Ping(ctx) }

func (db *DB) Close() { db.pool.Close() }

func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context, w store.Writer) error) error {
	tx, err := db.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(ctx, &writer{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// classify maps constraint violations onto the store's sentinel errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		if pgErr.ConstraintName == "users_email_key" {
			return store.ErrEmailTaken
		}
		return store.ErrDuplicateID
	case foreignKeyViolation:
		switch pgErr.ConstraintName {
		case "appointments_doctor_id_fkey", "medical_records_doctor_id_fkey":
			return store.ErrDoctorNotFound
		default:
			return store.ErrMemberNotFound
		}
	}
	return err
}

// Helpers

const memberColumns = `
	u.id, u.email, u.first_name, u.last_name, u.phone, u.role, u.created_at, u.updated_at,
	d.specialization, d.consultation_fee::text, d.qualifications, d.experience_years,
	d.rating, d.total_patients, d.availability,
	p.date_of_birth, p.address, p.emergency_contact
	FROM users u
	LEFT JOIN doctors d ON d.user_id = u.id
	LEFT JOIN patients p ON p.user_id = u.id`

func scanMember(row pgx.Row) (domain.Member, error) {
	var (
		u            domain.User
		specialty    *int
		fee          *string
		quals        []byte
		experience   *int
		rating       *float64
		patients     *int
		availability []byte
		dob          *time.Time
		address      *string
		contact      []byte
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt,
		&specialty, &fee, &quals, &experience,
		&rating, &patients, &availability,
		&dob, &address, &contact,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrMemberNotFound
		}
		return nil, err
	}

	switch u.Role {
	case domain.RoleDoctor:
		d := &domain.Doctor{User: u}
		if specialty == nil {
			return nil, fmt.Errorf("doctor %s has no practice row", u.ID)
		}
		d.Specialty = domain.Specialty(*specialty)
		if d.ConsultationFee, err = decimal.NewFromString(*fee); err != nil {
			return nil, fmt.Errorf("doctor %s fee: %w", u.ID, err)
		}
		if err := json.Unmarshal(quals, &d.Qualifications); err != nil {
			return nil, fmt.Errorf("doctor %s qualifications: %w", u.ID, err)
		}
		if err := json.Unmarshal(availability, &d.Availability); err != nil {
			return nil, fmt.Errorf("doctor %s availability: %w", u.ID, err)
		}
		d.ExperienceYears = *experience
		d.Rating = *rating
		d.TotalPatients = *patients
		return d, nil
	case domain.RolePatient:
		p := &domain.Patient{User: u}
		if dob != nil {
			dd := domain.DateOf(*dob)
			p.DateOfBirth = &dd
		}
		if address != nil {
			p.Address = *address
		}
		if len(contact) > 0 && string(contact) != "null" {
			p.EmergencyContact = &domain.EmergencyContact{}
			if err := json.Unmarshal(contact, p.EmergencyContact); err != nil {
				return nil, fmt.Errorf("patient %s emergency contact: %w", u.ID, err)
			}
		}
		return p, nil
	case domain.RoleVisitor:
		return &domain.Visitor{User: u}, nil
	default:
		return &domain.Staff{User: u}, nil
	}
}

const appointmentColumns = `
	id, doctor_id, patient_id, patient_name, patient_email, symptoms,
	preferred_time, actual_time, status, type, fee::text, notes, version, created_at, updated_at`

// appointmentInsertColumns matches appointmentColumns without the read-side cast.
const appointmentInsertColumns = `
	id, doctor_id, patient_id, patient_name, patient_email, symptoms,
	preferred_time, actual_time, status, type, fee, notes, version, created_at, updated_at`

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var a domain.Appointment
	var fee string

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.PatientID,
		&a.PatientName,
		&a.PatientEmail,
		&a.Symptoms,
		&a.PreferredTime,
		&a.ActualTime,
		&a.Status,
		&a.Type,
		&fee,
		&a.Notes,
		&a.Version,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrAppointmentNotFound
		}
		return nil, err
	}
	if a.Fee, err = decimal.NewFromString(fee); err != nil {
		return nil, fmt.Errorf("appointment %s fee: %w", a.ID, err)
	}
	a.PreferredTime = a.PreferredTime.UTC()
	return &a, nil
}

func scanRecord(row pgx.Row) (*domain.MedicalRecord, error) {
	var r domain.MedicalRecord
	var date time.Time
	var attachments, metadata []byte

	err := row.Scan(
		&r.ID,
		&r.PatientID,
		&r.DoctorID,
		&r.DoctorName,
		&r.Type,
		&r.Title,
		&r.Description,
		&date,
		&attachments,
		&metadata,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.Date = domain.DateOf(date)
	if err := json.Unmarshal(attachments, &r.Attachments); err != nil {
		return nil, fmt.Errorf("record %s attachments: %w", r.ID, err)
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
			return nil, fmt.Errorf("record %s metadata: %w", r.ID, err)
		}
	}
	return &r, nil
}

func scanMessage(row pgx.Row) (*domain.ChatMessage, error) {
	var m domain.ChatMessage
	err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Message, &m.Type, &m.Timestamp, &m.IsRead)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// Reads

func (db *DB) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, email, first_name, last_name, phone, role, created_at, updated_at
		FROM users
		ORDER BY seq
	`)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (domain.User, error) {
		var u domain.User
		err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &u.Phone, &u.Role, &u.CreatedAt, &u.UpdatedAt)
		return u, err
	})
}

func (db *DB) GetMember(ctx context.Context, id uuid.UUID) (domain.Member, error) {
	return scanMember(db.pool.QueryRow(ctx, `SELECT `+memberColumns+` WHERE u.id = $1`, id))
}

func (db *DB) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	m, err := scanMember(db.pool.QueryRow(ctx, `SELECT `+memberColumns+` WHERE lower(u.email) = lower($1)`, email))
	if err != nil {
		return nil, err
	}
	u := *m.Identity()
	return &u, nil
}

func (db *DB) ListDoctors(ctx context.Context, f store.DoctorFilter) ([]*domain.Doctor, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+memberColumns+`
		WHERE u.role = 'doctor'
		  AND ($1 = 0 OR d.specialization = $1)
		  AND (NOT $2 OR (d.availability->>'isAvailable')::boolean)
		ORDER BY u.seq
	`, int(f.Specialty), f.AvailableOnly)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (*domain.Doctor, error) {
		m, err := scanMember(row)
		if err != nil {
			return nil, err
		}
		return m.(*domain.Doctor), nil
	})
}

func (db *DB) GetDoctor(ctx context.Context, id uuid.UUID) (*domain.Doctor, error) {
	m, err := db.GetMember(ctx, id)
	if errors.Is(err, store.ErrMemberNotFound) {
		return nil, store.ErrDoctorNotFound
	}
	if err != nil {
		return nil, err
	}
	d, ok := m.(*domain.Doctor)
	if !ok {
		return nil, store.ErrDoctorNotFound
	}
	return d, nil
}

func (db *DB) GetAppointment(ctx context.Context, id uuid.UUID) (*domain.Appointment, error) {
	return scanAppointment(db.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
}

func (db *DB) ListAppointments(ctx context.Context, f store.AppointmentFilter) ([]*domain.Appointment, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE ($1::uuid IS NULL OR doctor_id = $1)
		  AND ($2::uuid IS NULL OR patient_id = $2)
		  AND ($3 = '' OR status = $3)
		ORDER BY preferred_time, created_at
	`, f.DoctorID, f.PatientID, string(f.Status))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAppointment)
}

func (db *DB) FindActiveAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]*domain.Appointment, error) {
	rows, err := db.pool.Query(ctx, `SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1
		  AND status IN ('pending', 'approved')
		  AND preferred_time > $2
		  AND preferred_time < $3
		ORDER BY preferred_time
	`, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAppointment)
}

func (db *DB) ListMedicalRecords(ctx context.Context, patientID uuid.UUID, t domain.RecordType) ([]*domain.MedicalRecord, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, patient_id, doctor_id, doctor_name, type, title, description,
		       record_date, attachments, metadata, created_at
		FROM medical_records
		WHERE patient_id = $1 AND ($2 = '' OR type = $2)
		ORDER BY record_date DESC, created_at DESC
	`, patientID, string(t))
	if err != nil {
		return nil, err
	}
	return collect(rows, scanRecord)
}

func (db *DB) ListMessages(ctx context.Context, a, b uuid.UUID) ([]*domain.ChatMessage, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, sender_id, receiver_id, message, type, sent_at, is_read
		FROM chat_messages
		WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY sent_at, seq
	`, a, b)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanMessage)
}

// Outbox

func (db *DB) ListUndispatched(ctx context.Context, olderThan time.Time, limit int) ([]event.Envelope, error) {
	rows, err := db.pool.Query(ctx, `
		SELECT id, event_type, aggregate_id, occurred_at, payload
		FROM event_outbox
		WHERE dispatched_at IS NULL AND created_at <= $1
		ORDER BY seq
		LIMIT $2
	`, olderThan, limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row pgx.Row) (event.Envelope, error) {
		var e event.Envelope
		var payload []byte
		err := row.Scan(&e.ID, &e.Type, &e.AggregateID, &e.OccurredAt, &payload)
		e.Payload = payload
		return e, err
	})
}

func (db *DB) MarkDispatched(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.pool.Exec(ctx, `
		UPDATE event_outbox
		SET dispatched_at = now()
		WHERE id = ANY($1) AND dispatched_at IS NULL
	`, ids)
	return err
}
