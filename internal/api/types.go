package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hackgods/bookmd/internal/domain"
)

type RegisterUserRequest struct {
	Email            string                   `json:"email" validate:"required,email"`
	FirstName        string                   `json:"firstName" validate:"required"`
	LastName         string                   `json:"lastName" validate:"required"`
	Phone            string                   `json:"phone"`
	Role             string                   `json:"role" validate:"required"`
	DateOfBirth      *domain.Date             `json:"dateOfBirth"`
	Address          string                   `json:"address"`
	EmergencyContact *domain.EmergencyContact `json:"emergencyContact"`
}

type UpdateProfileRequest struct {
	Email            *string                  `json:"email" validate:"omitempty,email"`
	FirstName        *string                  `json:"firstName" validate:"omitempty,min=1"`
	LastName         *string                  `json:"lastName" validate:"omitempty,min=1"`
	Phone            *string                  `json:"phone"`
	Address          *string                  `json:"address"`
	DateOfBirth      *domain.Date             `json:"dateOfBirth"`
	EmergencyContact *domain.EmergencyContact `json:"emergencyContact"`
}

type CreateDoctorRequest struct {
	Email           string               `json:"email" validate:"required,email"`
	FirstName       string               `json:"firstName" validate:"required"`
	LastName        string               `json:"lastName" validate:"required"`
	Phone           string               `json:"phone"`
	Specialization  string               `json:"specialization" validate:"required"`
	ConsultationFee decimal.Decimal      `json:"consultationFee"`
	Qualifications  []string             `json:"qualifications"`
	Experience      int                  `json:"experience" validate:"gte=0"`
	Availability    *domain.Availability `json:"availability"`
}

type UpdateDoctorRequest struct {
	ConsultationFee *decimal.Decimal `json:"consultationFee"`
	Qualifications  []string         `json:"qualifications"`
	Experience      *int             `json:"experience" validate:"omitempty,gte=0"`
}

type BookAppointmentRequest struct {
	DoctorID      string    `json:"doctorId" validate:"required,uuid"`
	PatientID     string    `json:"patientId" validate:"omitempty,uuid"`
	PatientName   string    `json:"patientName"`
	PatientEmail  string    `json:"patientEmail" validate:"omitempty,email"`
	Symptoms      string    `json:"symptoms"`
	PreferredTime time.Time `json:"preferredTime" validate:"required"`
	Type          string    `json:"type"`
	Notes         string    `json:"notes"`
}

type TransitionRequest struct {
	Status          string     `json:"status" validate:"required"`
	ExpectedVersion *int       `json:"expectedVersion" validate:"omitempty,gte=1"`
	ActualTime      *time.Time `json:"actualTime"`
	Notes           *string    `json:"notes"`
}

type AddMedicalRecordRequest struct {
	Type        string         `json:"type" validate:"required"`
	Title       string         `json:"title" validate:"required"`
	Description string         `json:"description"`
	Date        *domain.Date   `json:"date"`
	Attachments []string       `json:"attachments"`
	Metadata    map[string]any `json:"metadata"`
}

type SendMessageRequest struct {
	SenderID   string `json:"senderId" validate:"required,uuid"`
	ReceiverID string `json:"receiverId" validate:"required,uuid"`
	Message    string `json:"message" validate:"required"`
	Type       string `json:"type"`
}

type MarkReadRequest struct {
	UserID      string `json:"userId" validate:"required,uuid"`
	OtherUserID string `json:"otherUserId" validate:"required,uuid"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
