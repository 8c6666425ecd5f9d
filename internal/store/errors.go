package store

import "github.com/hackgods/bookmd/internal/apperr"

// Errors every Database implementation reports for the same conditions.
var (
	ErrMemberNotFound      = apperr.NotFound("user_not_found", "user not found")
	ErrDoctorNotFound      = apperr.NotFound("doctor_not_found", "doctor not found")
	ErrAppointmentNotFound = apperr.NotFound("appointment_not_found", "appointment not found")
	ErrEmailTaken          = apperr.Conflict("email_taken", "email already registered")
	ErrDuplicateID         = apperr.Conflict("duplicate_id", "entity already exists")
	ErrVersionConflict     = apperr.Conflict("version_conflict", "appointment was modified concurrently")
)
