package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hackgods/bookmd/internal/domain"
)

type CreateDoctorCommand struct {
	Email           string
	FirstName       string
	LastName        string
	Phone           string
	Specialty       domain.Specialty
	ConsultationFee decimal.Decimal
	Qualifications  []string
	ExperienceYears int
	Availability    *domain.Availability
}

// CreateDoctor registers a doctor under a fresh id with the doctor role.
func (s *Service) CreateDoctor(ctx context.Context, cmd CreateDoctorCommand) (UserDto, error) {
	d, events, err := domain.NewDoctor(domain.DoctorParams{
		Email:           cmd.Email,
		FirstName:       cmd.FirstName,
		LastName:        cmd.LastName,
		Phone:           cmd.Phone,
		Specialty:       cmd.Specialty,
		ConsultationFee: cmd.ConsultationFee,
		Qualifications:  cmd.Qualifications,
		ExperienceYears: cmd.ExperienceYears,
		Availability:    cmd.Availability,
	}, s.now())
	if err != nil {
		return UserDto{}, err
	}

	sess := s.gw.Session()
	sess.AddMember(d, events...)
	if _, err := sess.SaveChanges(ctx); err != nil {
		return UserDto{}, err
	}

	s.log.Info().
		Str("doctor_id", d.ID.String()).
		Str("specialty", d.Specialty.String()).
		Msg("doctor registered")
	return toUserDto(&d.User), nil
}

type RegisterUserCommand struct {
	Email            string
	FirstName        string
	LastName         string
	Phone            string
	Role             domain.Role
	DateOfBirth      *domain.Date
	Address          string
	EmergencyContact *domain.EmergencyContact
}

// RegisterUser registers any non-doctor user.
func (s *Service) RegisterUser(ctx context.Context, cmd RegisterUserCommand) (UserDto, error) {
	m, events, err := domain.NewMember(domain.MemberParams{
		Email:            cmd.Email,
		FirstName:        cmd.FirstName,
		LastName:         cmd.LastName,
		Phone:            cmd.Phone,
		Role:             cmd.Role,
		DateOfBirth:      cmd.DateOfBirth,
		Address:          cmd.Address,
		EmergencyContact: cmd.EmergencyContact,
	}, s.now())
	if err != nil {
		return UserDto{}, err
	}

	sess := s.gw.Session()
	sess.AddMember(m, events...)
	if _, err := sess.SaveChanges(ctx); err != nil {
		return UserDto{}, err
	}
	return toUserDto(m.Identity()), nil
}

// ListUsers returns every user in storage order.
func (s *Service) ListUsers(ctx context.Context) ([]UserDto, error) {
	users, err := s.gw.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	return mapAll(users, func(u domain.User) UserDto { return toUserDto(&u) }), nil
}

func (s *Service) GetUser(ctx context.Context, id uuid.UUID) (MemberView, error) {
	m, err := s.gw.GetMember(ctx, id)
	if err != nil {
		return MemberView{}, err
	}
	return toMemberView(m), nil
}

// ProfileUpdate lists optional edits; nil fields are left unchanged.
type ProfileUpdate struct {
	Email            *string
	FirstName        *string
	LastName         *string
	Phone            *string
	Address          *string
	DateOfBirth      *domain.Date
	EmergencyContact *domain.EmergencyContact
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (MemberView, error) {
	m, err := s.gw.GetMember(ctx, id)
	if err != nil {
		return MemberView{}, err
	}
	events, err := domain.ApplyProfile(m, domain.ProfileChanges{
		Email:            upd.Email,
		FirstName:        upd.FirstName,
		LastName:         upd.LastName,
		Phone:            upd.Phone,
		Address:          upd.Address,
		DateOfBirth:      upd.DateOfBirth,
		EmergencyContact: upd.EmergencyContact,
	}, s.now())
	if err != nil {
		return MemberView{}, err
	}
	if len(events) == 0 {
		return toMemberView(m), nil
	}

	sess := s.gw.Session()
	sess.UpdateMember(m, events...)
	if _, err := sess.SaveChanges(ctx); err != nil {
		return MemberView{}, err
	}
	return toMemberView(m), nil
}
