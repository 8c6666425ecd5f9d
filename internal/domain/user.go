package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// User is the identity record shared by every role variant. ID is assigned
// once at registration and never changes.
type User struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Phone     string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *User) Identity() *User { return u }

// PartitionKey is the sharding attribute of the users collection.
func (u *User) PartitionKey() string { return string(u.Role) }

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Member is the closed union of role variants over a User.
type Member interface {
	Identity() *User
	member()
}

type EmergencyContact struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`
}

type Patient struct {
	User
	DateOfBirth      *Date
	Address          string
	EmergencyContact *EmergencyContact
}

type Doctor struct {
	User
	Specialty       Specialty
	ConsultationFee decimal.Decimal
	Qualifications  []string
	ExperienceYears int
	Rating          float64
	TotalPatients   int
	Availability    Availability
}

type Visitor struct {
	User
}

// Staff covers front desk administrators and tech support.
type Staff struct {
	User
}

func (*Patient) member() {}
func (*Doctor) member()  {}
func (*Visitor) member() {}
func (*Staff) member()   {}

func newUser(email, first, last, phone string, role Role, now time.Time) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return User{}, ErrEmailRequired
	}
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" || last == "" {
		return User{}, ErrNameRequired
	}
	if !role.Valid() {
		return User{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return User{
		ID:        uuid.New(),
		Email:     email,
		FirstName: first,
		LastName:  last,
		Phone:     strings.TrimSpace(phone),
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func registered(u User) UserRegistered {
	return UserRegistered{UserID: u.ID, Email: u.Email, Role: u.Role, At: u.CreatedAt}
}

type DoctorParams struct {
	Email           string
	FirstName       string
	LastName        string
	Phone           string
	Specialty       Specialty
	ConsultationFee decimal.Decimal
	Qualifications  []string
	ExperienceYears int
	Availability    *Availability
}

// NewDoctor builds a doctor with a fresh id. The role is always RoleDoctor.
func NewDoctor(p DoctorParams, now time.Time) (*Doctor, []Event, error) {
	if p.Specialty == SpecialtyNone {
		return nil, nil, ErrSpecialtyRequired
	}
	if !p.Specialty.Valid() {
		return nil, nil, fmt.Errorf("%w: %d", ErrUnknownSpecialty, int(p.Specialty))
	}
	if p.ConsultationFee.IsNegative() {
		return nil, nil, ErrNegativeFee
	}
	if p.ExperienceYears < 0 {
		return nil, nil, ErrNegativeExperience
	}
	u, err := newUser(p.Email, p.FirstName, p.LastName, p.Phone, RoleDoctor, now)
	if err != nil {
		return nil, nil, err
	}
	avail := DefaultAvailability()
	if p.Availability != nil {
		avail = p.Availability.Normalized()
		if err := avail.Validate(); err != nil {
			return nil, nil, err
		}
	}
	d := &Doctor{
		User:            u,
		Specialty:       p.Specialty,
		ConsultationFee: p.ConsultationFee,
		Qualifications:  append([]string{}, p.Qualifications...),
		ExperienceYears: p.ExperienceYears,
		Availability:    avail,
	}
	events := []Event{
		registered(u),
		DoctorRegistered{DoctorID: u.ID, Specialty: d.Specialty, ConsultationFee: d.ConsultationFee, At: now},
	}
	return d, events, nil
}

type MemberParams struct {
	Email            string
	FirstName        string
	LastName         string
	Phone            string
	Role             Role
	DateOfBirth      *Date
	Address          string
	EmergencyContact *EmergencyContact
}

// NewMember registers a non-doctor user. Doctors go through NewDoctor since
// they need a specialty.
func NewMember(p MemberParams, now time.Time) (Member, []Event, error) {
	if p.Role == RoleDoctor {
		return nil, nil, ErrSpecialtyRequired
	}
	u, err := newUser(p.Email, p.FirstName, p.LastName, p.Phone, p.Role, now)
	if err != nil {
		return nil, nil, err
	}
	if p.Role != RolePatient && (p.DateOfBirth != nil || p.Address != "" || p.EmergencyContact != nil) {
		return nil, nil, fmt.Errorf("%w: patient details on %s", ErrFieldNotApplicable, p.Role)
	}
	var m Member
	switch p.Role {
	case RolePatient:
		m = &Patient{
			User:             u,
			DateOfBirth:      p.DateOfBirth,
			Address:          strings.TrimSpace(p.Address),
			EmergencyContact: p.EmergencyContact,
		}
	case RoleVisitor:
		m = &Visitor{User: u}
	default:
		m = &Staff{User: u}
	}
	return m, []Event{registered(u)}, nil
}

// ProfileChanges lists optional profile edits. Nil fields are left alone.
type ProfileChanges struct {
	Email            *string
	FirstName        *string
	LastName         *string
	Phone            *string
	Address          *string
	DateOfBirth      *Date
	EmergencyContact *EmergencyContact
}

// ApplyProfile edits m in place and returns a ProfileUpdated event naming the
// changed fields. No changes produce no events.
func ApplyProfile(m Member, ch ProfileChanges, now time.Time) ([]Event, error) {
	u := m.Identity()
	var fields []string

	if ch.Email != nil {
		email := strings.TrimSpace(*ch.Email)
		if email == "" {
			return nil, ErrEmailRequired
		}
		if email != u.Email {
			u.Email = email
			fields = append(fields, "email")
		}
	}
	if ch.FirstName != nil {
		v := strings.TrimSpace(*ch.FirstName)
		if v == "" {
			return nil, ErrNameRequired
		}
		if v != u.FirstName {
			u.FirstName = v
			fields = append(fields, "firstName")
		}
	}
	if ch.LastName != nil {
		v := strings.TrimSpace(*ch.LastName)
		if v == "" {
			return nil, ErrNameRequired
		}
		if v != u.LastName {
			u.LastName = v
			fields = append(fields, "lastName")
		}
	}
	if ch.Phone != nil && strings.TrimSpace(*ch.Phone) != u.Phone {
		u.Phone = strings.TrimSpace(*ch.Phone)
		fields = append(fields, "phone")
	}

	patientFields := ch.Address != nil || ch.DateOfBirth != nil || ch.EmergencyContact != nil
	switch v := m.(type) {
	case *Patient:
		if ch.Address != nil && *ch.Address != v.Address {
			v.Address = strings.TrimSpace(*ch.Address)
			fields = append(fields, "address")
		}
		if ch.DateOfBirth != nil {
			dob := *ch.DateOfBirth
			v.DateOfBirth = &dob
			fields = append(fields, "dateOfBirth")
		}
		if ch.EmergencyContact != nil {
			ec := *ch.EmergencyContact
			v.EmergencyContact = &ec
			fields = append(fields, "emergencyContact")
		}
	case *Doctor, *Visitor, *Staff:
		if patientFields {
			return nil, fmt.Errorf("%w: patient details on %s", ErrFieldNotApplicable, u.Role)
		}
	}

	if len(fields) == 0 {
		return nil, nil
	}
	u.UpdatedAt = now
	return []Event{ProfileUpdated{UserID: u.ID, Fields: fields, At: now}}, nil
}

type PracticeChanges struct {
	ConsultationFee *decimal.Decimal
	Qualifications  []string
	ExperienceYears *int
}

// UpdatePractice edits the professional fields of d. Existing appointments
// keep the fee they were booked with.
func (d *Doctor) UpdatePractice(ch PracticeChanges, now time.Time) ([]Event, error) {
	var fields []string
	if ch.ConsultationFee != nil {
		if ch.ConsultationFee.IsNegative() {
			return nil, ErrNegativeFee
		}
		if !ch.ConsultationFee.Equal(d.ConsultationFee) {
			d.ConsultationFee = *ch.ConsultationFee
			fields = append(fields, "consultationFee")
		}
	}
	if ch.Qualifications != nil {
		d.Qualifications = append([]string{}, ch.Qualifications...)
		fields = append(fields, "qualifications")
	}
	if ch.ExperienceYears != nil {
		if *ch.ExperienceYears < 0 {
			return nil, ErrNegativeExperience
		}
		if *ch.ExperienceYears != d.ExperienceYears {
			d.ExperienceYears = *ch.ExperienceYears
			fields = append(fields, "experience")
		}
	}
	if len(fields) == 0 {
		return nil, nil
	}
	d.UpdatedAt = now
	return []Event{ProfileUpdated{UserID: d.ID, Fields: fields, At: now}}, nil
}

// SetAvailability replaces the schedule after validating it.
func (d *Doctor) SetAvailability(a Availability, now time.Time) ([]Event, error) {
	a = a.Normalized()
	if err := a.Validate(); err != nil {
		return nil, err
	}
	d.Availability = a
	d.UpdatedAt = now
	return []Event{AvailabilityUpdated{
		DoctorID:    d.ID,
		IsAvailable: a.IsAvailable,
		Breaks:      len(a.Breaks),
		At:          now,
	}}, nil
}

// RecordCompletedVisit bumps the lifetime patient count.
func (d *Doctor) RecordCompletedVisit(now time.Time) {
	d.TotalPatients++
	d.UpdatedAt = now
}

// DisplayName is the name shown on records the doctor authors.
func (d *Doctor) DisplayName() string {
	return "Dr. " + d.FullName()
}

// CloneMember returns a deep copy of m.
func CloneMember(m Member) Member {
	switch v := m.(type) {
	case *Patient:
		c := *v
		if v.DateOfBirth != nil {
			dob := *v.DateOfBirth
			c.DateOfBirth = &dob
		}
		if v.EmergencyContact != nil {
			ec := *v.EmergencyContact
			c.EmergencyContact = &ec
		}
		return &c
	case *Doctor:
		c := *v
		c.Qualifications = append([]string{}, v.Qualifications...)
		c.Availability = v.Availability.Clone()
		return &c
	case *Visitor:
		c := *v
		return &c
	case *Staff:
		c := *v
		return &c
	}
	return nil
}
