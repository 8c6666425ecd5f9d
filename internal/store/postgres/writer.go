package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/event"
	"github.com/hackgods/bookmd/internal/store"
)

// writer runs inside one pgx transaction.
type writer struct {
	q querier
}

// partitionKey shards doctors by specialty and everyone else by role.
func partitionKey(m domain.Member) string {
	if d, ok := m.(*domain.Doctor); ok {
		return d.Specialty.String()
	}
	return m.Identity().PartitionKey()
}

func (w *writer) InsertMember(ctx context.Context, m domain.Member) (int, error) {
	u := m.Identity()
	_, err := w.q.Exec(ctx, `
		INSERT INTO users (id, email, first_name, last_name, phone, role, partition_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Email, u.FirstName, u.LastName, u.Phone, string(u.Role), u.PartitionKey(), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return 0, classify(err)
	}
	if err := w.upsertProfile(ctx, m, true); err != nil {
		return 0, err
	}
	return 1, nil
}

func (w *writer) UpdateMember(ctx context.Context, m domain.Member) (int, error) {
	u := m.Identity()
	tag, err := w.q.Exec(ctx, `
		UPDATE users
		SET email = $2, first_name = $3, last_name = $4, phone = $5, updated_at = $6
		WHERE id = $1
	`, u.ID, u.Email, u.FirstName, u.LastName, u.Phone, u.UpdatedAt)
	if err != nil {
		return 0, classify(err)
	}
	if tag.RowsAffected() == 0 {
		return 0, store.ErrMemberNotFound
	}
	if err := w.upsertProfile(ctx, m, false); err != nil {
		return 0, err
	}
	return 1, nil
}

func (w *writer) IncrementPatients(ctx context.Context, doctorID uuid.UUID, at time.Time) (int, error) {
	tag, err := w.q.Exec(ctx, `
		UPDATE doctors SET total_patients = total_patients + 1 WHERE user_id = $1
	`, doctorID)
	if err != nil {
		return 0, classify(err)
	}
	if tag.RowsAffected() == 0 {
		return 0, store.ErrDoctorNotFound
	}
	if _, err := w.q.Exec(ctx, `UPDATE users SET updated_at = $2 WHERE id = $1`, doctorID, at); err != nil {
		return 0, classify(err)
	}
	return 1, nil
}

func (w *writer) upsertProfile(ctx context.Context, m domain.Member, insert bool) error {
	switch v := m.(type) {
	case *domain.Doctor:
		quals, err := json.Marshal(v.Qualifications)
		if err != nil {
			return err
		}
		avail, err := json.Marshal(v.Availability)
		if err != nil {
			return err
		}
		args := []any{v.ID, v.Specialty.Code(), partitionKey(v), v.ConsultationFee.String(),
			quals, v.ExperienceYears, v.Rating, avail}
		// total_patients is owned by IncrementPatients.
		sql := `
			UPDATE doctors
			SET specialization = $2, partition_key = $3, consultation_fee = $4::numeric, qualifications = $5,
			    experience_years = $6, rating = $7, availability = $8
			WHERE user_id = $1`
		if insert {
			sql = `
			INSERT INTO doctors (user_id, specialization, partition_key, consultation_fee, qualifications,
			                     experience_years, rating, availability, total_patients)
			VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9)`
			args = append(args, v.TotalPatients)
		}
		_, err = w.q.Exec(ctx, sql, args...)
		return classify(err)
	case *domain.Patient:
		var dob any
		if v.DateOfBirth != nil {
			dob = v.DateOfBirth.Time()
		}
		var contact []byte
		if v.EmergencyContact != nil {
			var err error
			if contact, err = json.Marshal(v.EmergencyContact); err != nil {
				return err
			}
		}
		_, err := w.q.Exec(ctx, `
			INSERT INTO patients (user_id, date_of_birth, address, emergency_contact)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (user_id) DO UPDATE
			SET date_of_birth = EXCLUDED.date_of_birth,
			    address = EXCLUDED.address,
			    emergency_contact = EXCLUDED.emergency_contact
		`, v.ID, dob, v.Address, contact)
		return classify(err)
	}
	return nil
}

func (w *writer) InsertAppointment(ctx context.Context, a *domain.Appointment) (int, error) {
	_, err := w.q.Exec(ctx, `
		INSERT INTO appointments (`+appointmentInsertColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11::numeric, $12, $13, $14, $15)
	`, a.ID, a.DoctorID, a.PatientID, a.PatientName, a.PatientEmail, a.Symptoms,
		a.PreferredTime, a.ActualTime, string(a.Status), string(a.Type), a.Fee.String(), a.Notes,
		a.Version, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return 0, classify(err)
	}
	return 1, nil
}

func (w *writer) UpdateAppointment(ctx context.Context, a *domain.Appointment, expectedVersion int) (int, error) {
	tag, err := w.q.Exec(ctx, `
		UPDATE appointments
		SET status = $3, actual_time = $4, notes = $5, version = $6, updated_at = $7
		WHERE id = $1 AND version = $2
	`, a.ID, expectedVersion, string(a.Status), a.ActualTime, a.Notes, a.Version, a.UpdatedAt)
	if err != nil {
		return 0, classify(err)
	}
	if tag.RowsAffected() == 1 {
		return 1, nil
	}

	var exists bool
	if err := w.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)`, a.ID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, store.ErrAppointmentNotFound
	}
	return 0, store.ErrVersionConflict
}

func (w *writer) InsertMedicalRecord(ctx context.Context, r *domain.MedicalRecord) (int, error) {
	attachments, err := json.Marshal(r.Attachments)
	if err != nil {
		return 0, err
	}
	var metadata []byte
	if r.Metadata != nil {
		if metadata, err = json.Marshal(r.Metadata); err != nil {
			return 0, fmt.Errorf("marshal record metadata: %w", err)
		}
	}
	_, err = w.q.Exec(ctx, `
		INSERT INTO medical_records (id, patient_id, doctor_id, doctor_name, type, title, description,
		                             record_date, attachments, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, r.ID, r.PatientID, r.DoctorID, r.DoctorName, string(r.Type), r.Title, r.Description,
		r.Date.Time(), attachments, metadata, r.CreatedAt)
	if err != nil {
		return 0, classify(err)
	}
	return 1, nil
}

func (w *writer) InsertMessage(ctx context.Context, m *domain.ChatMessage) (int, error) {
	_, err := w.q.Exec(ctx, `
		INSERT INTO chat_messages (id, sender_id, receiver_id, message, type, sent_at, is_read)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, m.ID, m.SenderID, m.ReceiverID, m.Message, string(m.Type), m.Timestamp, m.IsRead)
	if err != nil {
		return 0, classify(err)
	}
	return 1, nil
}

func (w *writer) MarkMessagesRead(ctx context.Context, receiver, sender uuid.UUID) (int, error) {
	tag, err := w.q.Exec(ctx, `
		UPDATE chat_messages
		SET is_read = TRUE
		WHERE receiver_id = $1 AND sender_id = $2 AND NOT is_read
	`, receiver, sender)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (w *writer) AppendOutbox(ctx context.Context, events []event.Envelope) error {
	tx, ok := w.q.(pgx.Tx)
	if !ok || len(events) == 0 {
		for _, e := range events {
			if _, err := w.q.Exec(ctx, insertOutbox, e.ID, e.Type, e.AggregateID, []byte(e.Payload), e.OccurredAt); err != nil {
				return err
			}
		}
		return nil
	}

	b := &pgx.Batch{}
	for _, e := range events {
		b.Queue(insertOutbox, e.ID, e.Type, e.AggregateID, []byte(e.Payload), e.OccurredAt)
	}
	return tx.SendBatch(ctx, b).Close()
}

const insertOutbox = `
	INSERT INTO event_outbox (id, event_type, aggregate_id, payload, occurred_at)
	VALUES ($1, $2, $3, $4, $5)`
