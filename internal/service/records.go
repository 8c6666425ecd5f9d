package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/hackgods/bookmd/internal/domain"
)

type AddMedicalRecordCommand struct {
	Actor       domain.Actor
	PatientID   uuid.UUID
	Type        domain.RecordType
	Title       string
	Description string
	Date        domain.Date
	Attachments []string
	Metadata    map[string]any
}

// AddMedicalRecord appends a record written by the acting doctor.
func (s *Service) AddMedicalRecord(ctx context.Context, cmd AddMedicalRecordCommand) (MedicalRecordDto, error) {
	if cmd.Actor.Role != domain.RoleDoctor {
		return MedicalRecordDto{}, ErrDoctorsOnly
	}
	doctor, err := s.gw.GetDoctor(ctx, cmd.Actor.UserID)
	if err != nil {
		return MedicalRecordDto{}, err
	}
	m, err := s.gw.GetMember(ctx, cmd.PatientID)
	if err != nil {
		return MedicalRecordDto{}, err
	}
	if _, ok := m.(*domain.Patient); !ok {
		return MedicalRecordDto{}, ErrNotAPatient
	}

	r, events, err := domain.NewMedicalRecord(domain.RecordParams{
		PatientID:   cmd.PatientID,
		Doctor:      doctor,
		Type:        cmd.Type,
		Title:       cmd.Title,
		Description: cmd.Description,
		Date:        cmd.Date,
		Attachments: cmd.Attachments,
		Metadata:    cmd.Metadata,
	}, s.now())
	if err != nil {
		return MedicalRecordDto{}, err
	}

	sess := s.gw.Session()
	sess.AddMedicalRecord(r, events...)
	if _, err := sess.SaveChanges(ctx); err != nil {
		return MedicalRecordDto{}, err
	}
	return toMedicalRecordDto(r), nil
}

// ListMedicalRecords returns a patient's history newest first. recordType
// "" or "all" matches every type.
func (s *Service) ListMedicalRecords(ctx context.Context, patientID uuid.UUID, recordType string) ([]MedicalRecordDto, error) {
	t, err := domain.ParseRecordFilter(recordType)
	if err != nil {
		return nil, err
	}
	if _, err := s.gw.GetMember(ctx, patientID); err != nil {
		return nil, err
	}
	records, err := s.gw.ListMedicalRecords(ctx, patientID, t)
	if err != nil {
		return nil, err
	}
	return mapAll(records, toMedicalRecordDto), nil
}
