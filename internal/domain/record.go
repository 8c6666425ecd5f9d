package domain

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

type RecordType string

const (
	RecordPrescription RecordType = "prescription"
	RecordVisit        RecordType = "visit"
	RecordDiagnosis    RecordType = "diagnosis"
	RecordLabResult    RecordType = "lab-result"
)

func ParseRecordType(s string) (RecordType, error) {
	switch t := RecordType(strings.ToLower(strings.TrimSpace(s))); t {
	case RecordPrescription, RecordVisit, RecordDiagnosis, RecordLabResult:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRecordType, s)
}

// ParseRecordFilter treats "" and "all" as no filter, returned as "".
func ParseRecordFilter(s string) (RecordType, error) {
	if v := strings.ToLower(strings.TrimSpace(s)); v == "" || v == "all" {
		return "", nil
	}
	return ParseRecordType(s)
}

// MedicalRecord is written once by a doctor and never mutated.
type MedicalRecord struct {
	ID          uuid.UUID
	PatientID   uuid.UUID
	DoctorID    uuid.UUID
	DoctorName  string
	Type        RecordType
	Title       string
	Description string
	Date        Date
	Attachments []string
	Metadata    map[string]any
	CreatedAt   time.Time
}

type RecordParams struct {
	PatientID   uuid.UUID
	Doctor      *Doctor
	Type        RecordType
	Title       string
	Description string
	Date        Date
	Attachments []string
	Metadata    map[string]any
}

func NewMedicalRecord(p RecordParams, now time.Time) (*MedicalRecord, []Event, error) {
	if _, err := ParseRecordType(string(p.Type)); err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(p.Title) == "" {
		return nil, nil, ErrTitleRequired
	}
	date := p.Date
	if date.IsZero() {
		date = DateOf(now)
	}
	r := &MedicalRecord{
		ID:          uuid.New(),
		PatientID:   p.PatientID,
		DoctorID:    p.Doctor.ID,
		DoctorName:  p.Doctor.DisplayName(),
		Type:        p.Type,
		Title:       strings.TrimSpace(p.Title),
		Description: p.Description,
		Date:        date,
		Attachments: append([]string{}, p.Attachments...),
		Metadata:    maps.Clone(p.Metadata),
		CreatedAt:   now,
	}
	return r, []Event{MedicalRecordAdded{
		RecordID:  r.ID,
		PatientID: r.PatientID,
		DoctorID:  r.DoctorID,
		Type:      r.Type,
		At:        now,
	}}, nil
}

func (r *MedicalRecord) Clone() *MedicalRecord {
	c := *r
	c.Attachments = append([]string{}, r.Attachments...)
	c.Metadata = maps.Clone(r.Metadata)
	return &c
}
