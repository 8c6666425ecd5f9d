package service

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/bookmd/internal/domain"
)

type UserDto struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
}

func toUserDto(u *domain.User) UserDto {
	return UserDto{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
}

type PatientProfile struct {
	DateOfBirth      *domain.Date             `json:"dateOfBirth,omitempty"`
	Address          string                   `json:"address,omitempty"`
	EmergencyContact *domain.EmergencyContact `json:"emergencyContact,omitempty"`
}

type DoctorProfile struct {
	Specialty       domain.Specialty    `json:"specialization"`
	SpecialtyCode   int                 `json:"specializationCode"`
	Category        string              `json:"category"`
	ConsultationFee decimal.Decimal     `json:"consultationFee"`
	Qualifications  []string            `json:"qualifications"`
	ExperienceYears int                 `json:"experience"`
	Rating          float64             `json:"rating"`
	TotalPatients   int                 `json:"totalPatients"`
	Availability    domain.Availability `json:"availability"`
}

// MemberView is a user with the payload of its role.
type MemberView struct {
	UserDto
	Phone     string          `json:"phone,omitempty"`
	Role      domain.Role     `json:"role"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	Patient   *PatientProfile `json:"patient,omitempty"`
	Doctor    *DoctorProfile  `json:"doctor,omitempty"`
}

func toMemberView(m domain.Member) MemberView {
	u := m.Identity()
	v := MemberView{
		UserDto:   toUserDto(u),
		Phone:     u.Phone,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
	switch x := m.(type) {
	case *domain.Patient:
		v.Patient = &PatientProfile{
			DateOfBirth:      x.DateOfBirth,
			Address:          x.Address,
			EmergencyContact: x.EmergencyContact,
		}
	case *domain.Doctor:
		p := toDoctorProfile(x)
		v.Doctor = &p
	}
	return v
}

type DoctorView struct {
	UserDto
	Phone string `json:"phone,omitempty"`
	DoctorProfile
}

func toDoctorProfile(d *domain.Doctor) DoctorProfile {
	return DoctorProfile{
		Specialty:       d.Specialty,
		SpecialtyCode:   d.Specialty.Code(),
		Category:        d.Specialty.Category(),
		ConsultationFee: d.ConsultationFee,
		Qualifications:  append([]string{}, d.Qualifications...),
		ExperienceYears: d.ExperienceYears,
		Rating:          d.Rating,
		TotalPatients:   d.TotalPatients,
		Availability:    d.Availability.Clone(),
	}
}

func toDoctorView(d *domain.Doctor) DoctorView {
	return DoctorView{UserDto: toUserDto(&d.User), Phone: d.Phone, DoctorProfile: toDoctorProfile(d)}
}

type SpecialtyDto struct {
	Code     int    `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type BookabilityDto struct {
	Bookable bool   `json:"bookable"`
	Reason   string `json:"reason,omitempty"`
}

type SlotDto struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	BookabilityDto
}

type AppointmentDto struct {
	ID            uuid.UUID              `json:"id"`
	DoctorID      uuid.UUID              `json:"doctorId"`
	PatientID     *uuid.UUID             `json:"patientId,omitempty"`
	PatientName   string                 `json:"patientName"`
	PatientEmail  string                 `json:"patientEmail"`
	Symptoms      string                 `json:"symptoms,omitempty"`
	PreferredTime time.Time              `json:"preferredTime"`
	ActualTime    *time.Time             `json:"actualTime,omitempty"`
	Status        domain.Status          `json:"status"`
	Type          domain.AppointmentType `json:"type"`
	Fee           decimal.Decimal        `json:"fee"`
	Notes         string                 `json:"notes,omitempty"`
	Version       int                    `json:"version"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

func toAppointmentDto(a *domain.Appointment) AppointmentDto {
	return AppointmentDto{
		ID:            a.ID,
		DoctorID:      a.DoctorID,
		PatientID:     a.PatientID,
		PatientName:   a.PatientName,
		PatientEmail:  a.PatientEmail,
		Symptoms:      a.Symptoms,
		PreferredTime: a.PreferredTime,
		ActualTime:    a.ActualTime,
		Status:        a.Status,
		Type:          a.Type,
		Fee:           a.Fee,
		Notes:         a.Notes,
		Version:       a.Version,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}
}

type MedicalRecordDto struct {
	ID          uuid.UUID         `json:"id"`
	PatientID   uuid.UUID         `json:"patientId"`
	DoctorID    uuid.UUID         `json:"doctorId"`
	DoctorName  string            `json:"doctorName"`
	Type        domain.RecordType `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Date        domain.Date       `json:"date"`
	Attachments []string          `json:"attachments"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

func toMedicalRecordDto(r *domain.MedicalRecord) MedicalRecordDto {
	return MedicalRecordDto{
		ID:          r.ID,
		PatientID:   r.PatientID,
		DoctorID:    r.DoctorID,
		DoctorName:  r.DoctorName,
		Type:        r.Type,
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date,
		Attachments: r.Attachments,
		Metadata:    r.Metadata,
		CreatedAt:   r.CreatedAt,
	}
}

type ChatMessageDto struct {
	ID         uuid.UUID          `json:"id"`
	SenderID   uuid.UUID          `json:"senderId"`
	ReceiverID uuid.UUID          `json:"receiverId"`
	Message    string             `json:"message"`
	Type       domain.MessageType `json:"type"`
	Timestamp  time.Time          `json:"timestamp"`
	IsRead     bool               `json:"isRead"`
}

func toChatMessageDto(m *domain.ChatMessage) ChatMessageDto {
	return ChatMessageDto{
		ID:         m.ID,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Message:    m.Message,
		Type:       m.Type,
		Timestamp:  m.Timestamp,
		IsRead:     m.IsRead,
	}
}

func mapAll[T, D any](in []T, fn func(T) D) []D {
	out := make([]D, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
