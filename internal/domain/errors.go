package domain

import "github.com/hackgods/bookmd/internal/apperr"

var (
	ErrEmailRequired       = apperr.Validation("email_required", "email is required")
	ErrNameRequired        = apperr.Validation("name_required", "first and last name are required")
	ErrUnknownRole         = apperr.Validation("unknown_role", "unknown role")
	ErrSpecialtyRequired   = apperr.Validation("specialty_required", "doctor specialty is required")
	ErrUnknownSpecialty    = apperr.Validation("unknown_specialty", "unknown medical specialty")
	ErrNegativeFee         = apperr.Validation("negative_fee", "fee must not be negative")
	ErrNegativeExperience  = apperr.Validation("negative_experience", "experience must not be negative")
	ErrInvalidClock        = apperr.Validation("invalid_time", "time of day must be HH:MM")
	ErrInvalidDate         = apperr.Validation("invalid_date", "date must be YYYY-MM-DD")
	ErrInvalidAvailability = apperr.Validation("invalid_availability", "availability is invalid")
	ErrFieldNotApplicable  = apperr.Validation("field_not_applicable", "field does not apply to this role")
	ErrPreferredTime       = apperr.Validation("preferred_time_required", "preferred time is required")
	ErrUnknownStatus       = apperr.Validation("unknown_status", "unknown appointment status")
	ErrUnknownType         = apperr.Validation("unknown_appointment_type", "unknown appointment type")
	ErrUnknownRecordType   = apperr.Validation("unknown_record_type", "unknown medical record type")
	ErrTitleRequired       = apperr.Validation("title_required", "title is required")
	ErrUnknownMessageType  = apperr.Validation("unknown_message_type", "unknown message type")
	ErrEmptyMessage        = apperr.Validation("empty_message", "message must not be empty")
	ErrSelfMessage         = apperr.Validation("self_message", "sender and receiver must differ")
	ErrInvalidTransition   = apperr.Conflict("invalid_status_transition", "invalid status transition")
	ErrNotAssignedDoctor   = apperr.Forbidden("not_assigned_doctor", "only the assigned doctor may perform this transition")
	ErrCancellationDenied  = apperr.Forbidden("cancellation_denied", "actor may not cancel this appointment")
)
