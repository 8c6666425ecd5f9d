package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/store"
)

func (s *Service) Specialties() []SpecialtyDto {
	return mapAll(domain.Specialties(), func(sp domain.Specialty) SpecialtyDto {
		return SpecialtyDto{Code: sp.Code(), Name: sp.String(), Category: sp.Category()}
	})
}

type DoctorQuery struct {
	Specialty     domain.Specialty
	AvailableOnly bool
}

func (s *Service) ListDoctors(ctx context.Context, q DoctorQuery) ([]DoctorView, error) {
	doctors, err := s.gw.ListDoctors(ctx, store.DoctorFilter{Specialty: q.Specialty, AvailableOnly: q.AvailableOnly})
	if err != nil {
		return nil, err
	}
	return mapAll(doctors, toDoctorView), nil
}

func (s *Service) GetDoctor(ctx context.Context, id uuid.UUID) (DoctorView, error) {
	d, err := s.gw.GetDoctor(ctx, id)
	if err != nil {
		return DoctorView{}, err
	}
	return toDoctorView(d), nil
}

type DoctorUpdate struct {
	ConsultationFee *decimal.Decimal
	Qualifications  []string
	ExperienceYears *int
}

// UpdateDoctor edits practice details. Booked appointments keep their fee.
func (s *Service) UpdateDoctor(ctx context.Context, id uuid.UUID, upd DoctorUpdate) (DoctorView, error) {
	d, err := s.gw.GetDoctor(ctx, id)
	if err != nil {
		return DoctorView{}, err
	}
	events, err := d.UpdatePractice(domain.PracticeChanges{
		ConsultationFee: upd.ConsultationFee,
		Qualifications:  upd.Qualifications,
		ExperienceYears: upd.ExperienceYears,
	}, s.now())
	if err != nil {
		return DoctorView{}, err
	}
	if len(events) == 0 {
		return toDoctorView(d), nil
	}

	sess := s.gw.Session()
	sess.UpdateMember(d, events...)
	if _, err := sess.SaveChanges(ctx); err != nil {
		return DoctorView{}, err
	}
	return toDoctorView(d), nil
}

func (s *Service) UpdateAvailability(ctx context.Context, id uuid.UUID, a domain.Availability) (DoctorView, error) {
	d, err := s.gw.GetDoctor(ctx, id)
	if err != nil {
		return DoctorView{}, err
	}
	events, err := d.SetAvailability(a, s.now())
	if err != nil {
		return DoctorView{}, err
	}

	sess := s.gw.Session()
	sess.UpdateMember(d, events...)
	if _, err := sess.SaveChanges(ctx); err != nil {
		return DoctorView{}, err
	}
	return toDoctorView(d), nil
}

// CheckAvailability evaluates the schedule at t and then looks for an
// active appointment closer than one slot.
func (s *Service) CheckAvailability(ctx context.Context, id uuid.UUID, t time.Time) (BookabilityDto, error) {
	d, err := s.gw.GetDoctor(ctx, id)
	if err != nil {
		return BookabilityDto{}, err
	}
	b := d.Availability.Evaluate(t)
	if !b.Bookable {
		return BookabilityDto{Reason: b.Reason}, nil
	}
	booked, err := s.gw.FindActiveAppointments(ctx, id, t.Add(-s.slot), t.Add(s.slot))
	if err != nil {
		return BookabilityDto{}, err
	}
	if len(booked) > 0 {
		return BookabilityDto{Reason: domain.ReasonBooked}, nil
	}
	return BookabilityDto{Bookable: true}, nil
}

// ListSlots steps through the doctor's window on date one slot at a time.
func (s *Service) ListSlots(ctx context.Context, id uuid.UUID, date domain.Date) ([]SlotDto, error) {
	d, err := s.gw.GetDoctor(ctx, id)
	if err != nil {
		return nil, err
	}
	slots := d.Availability.Slots(date, s.slot)
	if len(slots) == 0 {
		return []SlotDto{}, nil
	}

	first, last := slots[0].Start, slots[len(slots)-1].Start
	booked, err := s.gw.FindActiveAppointments(ctx, id, first.Add(-s.slot), last.Add(s.slot))
	if err != nil {
		return nil, err
	}

	out := make([]SlotDto, 0, len(slots))
	for _, sl := range slots {
		dto := SlotDto{
			Start:          sl.Start.UTC(),
			End:            sl.Start.Add(s.slot).UTC(),
			BookabilityDto: BookabilityDto{Bookable: sl.Bookable, Reason: sl.Reason},
		}
		if dto.Bookable {
			for _, a := range booked {
				if a.Within(sl.Start, s.slot) {
					dto.BookabilityDto = BookabilityDto{Reason: domain.ReasonBooked}
					break
				}
			}
		}
		out = append(out, dto)
	}
	return out, nil
}
