package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var registeredAt = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func doctorParams() DoctorParams {
	return DoctorParams{
		Email:           "house@example.com",
		FirstName:       "Gregory",
		LastName:        "House",
		Specialty:       InfectiousDisease,
		ConsultationFee: decimal.NewFromInt(150),
	}
}

func TestNewDoctor(t *testing.T) {
	d, events, err := NewDoctor(doctorParams(), registeredAt)
	require.NoError(t, err)

	assert.Equal(t, RoleDoctor, d.Role)
	assert.Equal(t, "doctor", d.PartitionKey())
	assert.Equal(t, InfectiousDisease, d.Specialty)
	assert.True(t, d.Availability.IsAvailable)
	assert.Equal(t, "Dr. Gregory House", d.DisplayName())

	require.Len(t, events, 2)
	assert.Equal(t, EventUserRegistered, events[0].EventType())
	assert.Equal(t, EventDoctorRegistered, events[1].EventType())
	assert.Equal(t, d.ID, events[1].AggregateID())
}

func TestNewDoctorRequiresSpecialty(t *testing.T) {
	p := doctorParams()
	p.Specialty = SpecialtyNone
	_, _, err := NewDoctor(p, registeredAt)
	assert.ErrorIs(t, err, ErrSpecialtyRequired)

	p.Specialty = Specialty(42)
	_, _, err = NewDoctor(p, registeredAt)
	assert.ErrorIs(t, err, ErrUnknownSpecialty)
}

func TestNewDoctorRejectsNegativeFee(t *testing.T) {
	p := doctorParams()
	p.ConsultationFee = decimal.RequireFromString("-0.01")
	_, _, err := NewDoctor(p, registeredAt)
	assert.ErrorIs(t, err, ErrNegativeFee)
}

func TestNewMemberVariants(t *testing.T) {
	dob := Date{Year: 1990, Month: time.March, Day: 4}
	m, events, err := NewMember(MemberParams{
		Email: "p@example.com", FirstName: "Pat", LastName: "Ient",
		Role: RolePatient, DateOfBirth: &dob,
	}, registeredAt)
	require.NoError(t, err)
	require.Len(t, events, 1)
	p, ok := m.(*Patient)
	require.True(t, ok)
	assert.Equal(t, dob, *p.DateOfBirth)

	m, _, err = NewMember(MemberParams{Email: "v@example.com", FirstName: "Vi", LastName: "Sitor", Role: RoleVisitor}, registeredAt)
	require.NoError(t, err)
	assert.IsType(t, &Visitor{}, m)

	m, _, err = NewMember(MemberParams{Email: "f@example.com", FirstName: "Fr", LastName: "Desk", Role: RoleFrontDeskAdministrator}, registeredAt)
	require.NoError(t, err)
	assert.IsType(t, &Staff{}, m)

	_, _, err = NewMember(MemberParams{Email: "d@example.com", FirstName: "D", LastName: "R", Role: RoleDoctor}, registeredAt)
	assert.ErrorIs(t, err, ErrSpecialtyRequired)

	_, _, err = NewMember(MemberParams{Email: "v@example.com", FirstName: "V", LastName: "S", Role: RoleVisitor, Address: "1 Main St"}, registeredAt)
	assert.ErrorIs(t, err, ErrFieldNotApplicable)
}

func TestApplyProfile(t *testing.T) {
	m, _, err := NewMember(MemberParams{Email: "p@example.com", FirstName: "Pat", LastName: "Ient", Role: RolePatient}, registeredAt)
	require.NoError(t, err)
	id := m.Identity().ID
	later := registeredAt.Add(time.Hour)

	phone := "+1 555 0100"
	addr := "221B Baker Street"
	events, err := ApplyProfile(m, ProfileChanges{Phone: &phone, Address: &addr}, later)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, []string{"phone", "address"}, events[0].(ProfileUpdated).Fields)
	assert.Equal(t, id, m.Identity().ID)
	assert.Equal(t, later, m.Identity().UpdatedAt)

	events, err = ApplyProfile(m, ProfileChanges{Phone: &phone}, later)
	require.NoError(t, err)
	assert.Empty(t, events)

	empty := ""
	_, err = ApplyProfile(m, ProfileChanges{Email: &empty}, later)
	assert.ErrorIs(t, err, ErrEmailRequired)
}

func TestApplyProfileRejectsPatientFieldsOnDoctor(t *testing.T) {
	d, _, err := NewDoctor(doctorParams(), registeredAt)
	require.NoError(t, err)

	addr := "1 Clinic Road"
	_, err = ApplyProfile(d, ProfileChanges{Address: &addr}, registeredAt)
	assert.ErrorIs(t, err, ErrFieldNotApplicable)
}

func TestUpdatePractice(t *testing.T) {
	d, _, err := NewDoctor(doctorParams(), registeredAt)
	require.NoError(t, err)

	fee := decimal.NewFromInt(200)
	years := 12
	events, err := d.UpdatePractice(PracticeChanges{ConsultationFee: &fee, ExperienceYears: &years}, registeredAt)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.True(t, d.ConsultationFee.Equal(fee))
	assert.Equal(t, 12, d.ExperienceYears)

	neg := decimal.NewFromInt(-5)
	_, err = d.UpdatePractice(PracticeChanges{ConsultationFee: &neg}, registeredAt)
	assert.ErrorIs(t, err, ErrNegativeFee)
	assert.True(t, d.ConsultationFee.Equal(fee))
}

func TestCloneMemberIsDeep(t *testing.T) {
	d, _, err := NewDoctor(doctorParams(), registeredAt)
	require.NoError(t, err)
	d.Qualifications = []string{"MD"}
	d.Availability.Breaks = []Break{{Date: DateOf(registeredAt), Start: NewClock(12, 0), End: NewClock(13, 0)}}

	c := CloneMember(d).(*Doctor)
	c.Qualifications[0] = "PhD"
	c.Availability.Breaks[0].Reason = "changed"
	c.FirstName = "Other"

	assert.Equal(t, "MD", d.Qualifications[0])
	assert.Equal(t, "", d.Availability.Breaks[0].Reason)
	assert.Equal(t, "Gregory", d.FirstName)
}
