// Package service holds one method per use case. Each method validates its
// input, reads through the gateway, stages changes on a fresh session, saves
// them and maps the result to a DTO.
package service

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/hackgods/bookmd/internal/apperr"
	"github.com/hackgods/bookmd/internal/config"
	redisclient "github.com/hackgods/bookmd/internal/redis"
	"github.com/hackgods/bookmd/internal/store"
)

var (
	ErrSlotTaken            = apperr.Conflict("slot_taken", "doctor already has an appointment at this time")
	ErrDoctorUnavailable    = apperr.Conflict("doctor_unavailable", "doctor is not available at the requested time")
	ErrPreferredTimePast    = apperr.Validation("preferred_time_past", "preferred time is in the past")
	ErrNotAPatient          = apperr.Validation("not_a_patient", "user is not a patient")
	ErrIdempotencyKeyReused = apperr.Conflict("idempotency_key_reused", "idempotency key was used for a different booking")
	ErrDoctorsOnly          = apperr.Forbidden("doctors_only", "only doctors may add medical records")
)

type Service struct {
	gw     *store.Gateway
	locker redisclient.Locker
	idem   redisclient.IdempotencyStore
	slot   time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

func New(gw *store.Gateway, locker redisclient.Locker, idem redisclient.IdempotencyStore, cfg config.Config, log zerolog.Logger) *Service {
	slot := cfg.SlotDuration
	if slot <= 0 {
		slot = 30 * time.Minute
	}
	return &Service{
		gw:     gw,
		locker: locker,
		idem:   idem,
		slot:   slot,
		log:    log.With().Str("component", "service").Logger(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SlotDuration is the booking granularity.
func (s *Service) SlotDuration() time.Duration {
	return s.slot
}
