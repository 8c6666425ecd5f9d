package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/bookmd/internal/apperr"
	"github.com/hackgods/bookmd/internal/config"
	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/event"
	redisclient "github.com/hackgods/bookmd/internal/redis"
	"github.com/hackgods/bookmd/internal/store"
)

// Monday 3 June 2024, before opening hours.
var now = time.Date(2024, 6, 3, 7, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return time.Date(2024, 6, 3, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	svc *Service
	mem *store.Memory
	rec *event.Recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory("test")
	rec := &event.Recorder{}
	gw := store.NewGateway(mem, rec, zerolog.Nop(), nil)
	svc := New(gw,
		redisclient.NewMemoryLocker(redisclient.DefaultLockConfig()),
		redisclient.NewMemoryIdempotency(time.Hour),
		config.Config{SlotDuration: 30 * time.Minute},
		zerolog.Nop())
	svc.now = func() time.Time { return now }
	return &fixture{svc: svc, mem: mem, rec: rec}
}

func (f *fixture) doctor(t *testing.T, email string, fee int64) UserDto {
	t.Helper()
	u, err := f.svc.CreateDoctor(context.Background(), CreateDoctorCommand{
		Email:           email,
		FirstName:       "Meredith",
		LastName:        "Grey",
		Specialty:       domain.GeneralSurgery,
		ConsultationFee: decimal.NewFromInt(fee),
		Qualifications:  []string{"MD"},
		ExperienceYears: 12,
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) patient(t *testing.T, email string) UserDto {
	t.Helper()
	u, err := f.svc.RegisterUser(context.Background(), RegisterUserCommand{
		Email:     email,
		FirstName: "Pat",
		LastName:  "Ient",
		Role:      domain.RolePatient,
		Address:   "12 Main St",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) book(t *testing.T, doctorID uuid.UUID, patientID *uuid.UUID, when time.Time) AppointmentDto {
	t.Helper()
	a, _, err := f.svc.BookAppointment(context.Background(), BookAppointmentCommand{
		DoctorID:      doctorID,
		PatientID:     patientID,
		PatientName:   "Walk In",
		PatientEmail:  "walkin@example.com",
		PreferredTime: when,
	})
	require.NoError(t, err)
	return a
}

func TestCreateDoctorThenListUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.doctor(t, "grey@example.com", 150)

	users, err := f.svc.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, UserDto{ID: created.ID, Email: "grey@example.com", FirstName: "Meredith", LastName: "Grey"}, users[0])
	assert.Equal(t, []string{domain.EventUserRegistered, domain.EventDoctorRegistered}, f.rec.Types())

	view, err := f.svc.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleDoctor, view.Role)
	require.NotNil(t, view.Doctor)
	assert.True(t, decimal.NewFromInt(150).Equal(view.Doctor.ConsultationFee))
	assert.Equal(t, domain.DefaultAvailability().Schedule, view.Doctor.Availability.Schedule)
}

func TestListUsersEmpty(t *testing.T) {
	users, err := newFixture(t).svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, users)
	assert.Empty(t, users)
}

func TestCreateDoctorRejects(t *testing.T) {
	f := newFixture(t)
	f.doctor(t, "grey@example.com", 100)
	f.rec.Reset()

	tests := []struct {
		name string
		cmd  CreateDoctorCommand
		want error
	}{
		{"duplicate email", CreateDoctorCommand{Email: "GREY@example.com", FirstName: "A", LastName: "B", Specialty: domain.Cardiology}, store.ErrEmailTaken},
		{"no specialty", CreateDoctorCommand{Email: "a@example.com", FirstName: "A", LastName: "B"}, domain.ErrSpecialtyRequired},
		{"negative fee", CreateDoctorCommand{Email: "a@example.com", FirstName: "A", LastName: "B", Specialty: domain.Cardiology, ConsultationFee: decimal.NewFromInt(-1)}, domain.ErrNegativeFee},
		{"no email", CreateDoctorCommand{FirstName: "A", LastName: "B", Specialty: domain.Cardiology}, domain.ErrEmailRequired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateDoctor(context.Background(), tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, f.rec.Types(), "failed saves dispatch nothing")
}

func TestRegisterUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.patient(t, "pat@example.com")
	view, err := f.svc.GetUser(ctx, p.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Patient)
	assert.Equal(t, "12 Main St", view.Patient.Address)

	_, err = f.svc.RegisterUser(ctx, RegisterUserCommand{Email: "d@example.com", FirstName: "D", LastName: "R", Role: domain.RoleDoctor})
	assert.ErrorIs(t, err, domain.ErrSpecialtyRequired)

	_, err = f.svc.RegisterUser(ctx, RegisterUserCommand{Email: "v@example.com", FirstName: "V", LastName: "S", Role: domain.RoleVisitor, Address: "x"})
	assert.ErrorIs(t, err, domain.ErrFieldNotApplicable)

	_, err = f.svc.GetUser(ctx, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.patient(t, "pat@example.com")
	f.patient(t, "other@example.com")
	f.rec.Reset()

	phone := "555-0100"
	view, err := f.svc.UpdateProfile(ctx, p.ID, ProfileUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, view.Phone)
	assert.Equal(t, p.ID, view.ID)
	assert.Equal(t, []string{domain.EventProfileUpdated}, f.rec.Types())

	_, err = f.svc.UpdateProfile(ctx, p.ID, ProfileUpdate{Phone: &phone})
	require.NoError(t, err)
	assert.Len(t, f.rec.Types(), 1, "unchanged profile raises nothing")

	taken := "Other@example.com"
	_, err = f.svc.UpdateProfile(ctx, p.ID, ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, store.ErrEmailTaken)

	stored, err := f.svc.GetUser(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "pat@example.com", stored.Email)
}

func TestUpdateDoctorKeepsBookedFee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "grey@example.com", 100)

	appt := f.book(t, d.ID, nil, at(10, 0))
	assert.True(t, decimal.NewFromInt(100).Equal(appt.Fee))

	fee := decimal.RequireFromString("180.50")
	view, err := f.svc.UpdateDoctor(ctx, d.ID, DoctorUpdate{ConsultationFee: &fee})
	require.NoError(t, err)
	assert.True(t, fee.Equal(view.ConsultationFee))

	stored, err := f.svc.GetAppointment(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(stored.Fee))

	later := f.book(t, d.ID, nil, at(14, 0))
	assert.True(t, fee.Equal(later.Fee))

	neg := decimal.NewFromInt(-5)
	_, err = f.svc.UpdateDoctor(ctx, d.ID, DoctorUpdate{ConsultationFee: &neg})
	assert.ErrorIs(t, err, domain.ErrNegativeFee)
}

func TestListDoctorsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	grey := f.doctor(t, "grey@example.com", 100)
	_, err := f.svc.CreateDoctor(ctx, CreateDoctorCommand{
		Email: "yang@example.com", FirstName: "Cristina", LastName: "Yang", Specialty: domain.Cardiology,
	})
	require.NoError(t, err)

	all, err := f.svc.ListDoctors(ctx, DoctorQuery{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cardio, err := f.svc.ListDoctors(ctx, DoctorQuery{Specialty: domain.Cardiology})
	require.NoError(t, err)
	require.Len(t, cardio, 1)
	assert.Equal(t, "yang@example.com", cardio[0].Email)

	off := domain.DefaultAvailability()
	off.IsAvailable = false
	_, err = f.svc.UpdateAvailability(ctx, grey.ID, off)
	require.NoError(t, err)

	available, err := f.svc.ListDoctors(ctx, DoctorQuery{AvailableOnly: true})
	require.NoError(t, err)
	require.Len(t, available, 1)
	assert.Equal(t, "yang@example.com", available[0].Email)
}

func TestUpdateAvailabilityValidates(t *testing.T) {
	f := newFixture(t)
	d := f.doctor(t, "grey@example.com", 100)

	bad := domain.DefaultAvailability()
	bad.Schedule.Monday.End = bad.Schedule.Monday.Start
	_, err := f.svc.UpdateAvailability(context.Background(), d.ID, bad)
	assert.ErrorIs(t, err, domain.ErrInvalidAvailability)

	_, err = f.svc.UpdateAvailability(context.Background(), uuid.New(), domain.DefaultAvailability())
	assert.ErrorIs(t, err, store.ErrDoctorNotFound)
}

func TestBookAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "grey@example.com", 100)
	p := f.patient(t, "pat@example.com")
	f.rec.Reset()

	a, replayed, err := f.svc.BookAppointment(ctx, BookAppointmentCommand{
		DoctorID:      d.ID,
		PatientID:     &p.ID,
		Symptoms:      "cough",
		PreferredTime: at(10, 0),
	})
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, domain.StatusPending, a.Status)
	assert.Equal(t, domain.TypeConsultation, a.Type)
	assert.Equal(t, 1, a.Version)
	assert.Equal(t, "Pat Ient", a.PatientName)
	assert.Equal(t, "pat@example.com", a.PatientEmail)
	assert.Equal(t, []string{domain.EventAppointmentRequested}, f.rec.Types())
}

func TestBookAppointmentRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "grey@example.com", 100)
	f.book(t, d.ID, nil, at(10, 0))

	tests := []struct {
		name string
		cmd  BookAppointmentCommand
		want error
	}{
		{"within slot", BookAppointmentCommand{DoctorID: d.ID, PreferredTime: at(10, 15)}, ErrSlotTaken},
		{"within slot before", BookAppointmentCommand{DoctorID: d.ID, PreferredTime: at(9, 45)}, ErrSlotTaken},
		{"outside hours", BookAppointmentCommand{DoctorID: d.ID, PreferredTime: at(18, 0)}, ErrDoctorUnavailable},
		{"in the past", BookAppointmentCommand{DoctorID: d.ID, PreferredTime: at(6, 0)}, ErrPreferredTimePast},
		{"unknown doctor", BookAppointmentCommand{DoctorID: uuid.New(), PreferredTime: at(11, 0)}, store.ErrDoctorNotFound},
		{"doctor as patient", BookAppointmentCommand{DoctorID: d.ID, PatientID: &d.ID, PreferredTime: at(11, 0)}, ErrNotAPatient},
		{"no time", BookAppointmentCommand{DoctorID: d.ID}, domain.ErrPreferredTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.cmd.PatientName = "Walk In"
			tt.cmd.PatientEmail = "walkin@example.com"
			_, _, err := f.svc.BookAppointment(ctx, tt.cmd)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	// The next slot is free.
	f.book(t, d.ID, nil, at(10, 30))
}

func TestBookAppointmentAfterCancellationFreesSlot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "grey@example.com", 100)
	a := f.book(t, d.ID, nil, at(10, 0))

	_, err := f.svc.TransitionAppointment(ctx, a.ID, TransitionCommand{
		Actor: domain.Actor{UserID: d.ID, Role: domain.RoleDoctor},
		To:    domain.StatusCancelled,
	})
	require.NoError(t, err)

	f.book(t, d.ID, nil, at(10, 0))
}

func TestBookAppointmentIdempotency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "grey@example.com", 100)

	cmd := BookAppointmentCommand{
		IdempotencyKey: "req-1",
		DoctorID:       d.ID,
		PatientName:    "Walk In",
		PatientEmail:   "walkin@example.com",
		PreferredTime:  at(10, 0),
	}
	first, replayed, err := f.svc.BookAppointment(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, replayed)

	again, replayed, err := f.svc.BookAppointment(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, again.ID)

	cmd.PreferredTime = at(11, 0)
	_, _, err = f.svc.BookAppointment(ctx, cmd)
	assert.ErrorIs(t, err, ErrIdempotencyKeyReused)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	cmd.PreferredTime = at(10, 0)
	again, replayed, err = f.svc.BookAppointment(ctx, cmd)
	require.NoError(t, err)
	assert.True(t, replayed)
	assert.Equal(t, first.ID, again.ID)

	list, err := f.mem.ListAppointments(ctx, store.AppointmentFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBookAppointmentFailureReleasesKey(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "grey@example.com", 100)

	cmd := BookAppointmentCommand{
		IdempotencyKey: "req-2",
		DoctorID:       d.ID,
		PatientName:    "Walk In",
		PatientEmail:   "walkin@example.com",
		PreferredTime:  at(19, 0),
	}
	_, _, err := f.svc.BookAppointment(ctx, cmd)
	require.ErrorIs(t, err, ErrDoctorUnavailable)

	cmd.PreferredTime = at(11, 0)
	a, replayed, err := f.svc.BookAppointment(ctx, cmd)
	require.NoError(t, err)
	assert.False(t, replayed)
	assert.Equal(t, at(11, 0), a.PreferredTime)
}

func TestBookAppointmentConcurrentSameSlot(t *testing.T) {
	f := newFixture(t)
	d := f.doctor(t, "grey@example.com", 100)

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = f.svc.BookAppointment(context.Background(), BookAppointmentCommand{
				IdempotencyKey: uuid.NewString(),
				DoctorID:       d.ID,
				PatientName:    "Walk In",
				PatientEmail:   "walkin@example.com",
				PreferredTime:  at(10, 0).Add(time.Duration(i) * time.Minute),
			})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
	}
	assert.Equal(t, 1, ok)

	list, err := f.mem.ListAppointments(context.Background(), store.AppointmentFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTransitionAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "grey@example.com", 100)
	p := f.patient(t, "pat@example.com")
	doctor := domain.Actor{UserID: d.ID, Role: domain.RoleDoctor}
	a := f.book(t, d.ID, &p.ID, at(10, 0))
	f.rec.Reset()

	approved, err := f.svc.TransitionAppointment(ctx, a.ID, TransitionCommand{Actor: doctor, To: domain.StatusApproved})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusApproved, approved.Status)
	assert.Equal(t, 2, approved.Version)
	require.NotNil(t, approved.ActualTime)
	assert.Equal(t, at(10, 0), *approved.ActualTime)

	stale := 1
	_, err = f.svc.TransitionAppointment(ctx, a.ID, TransitionCommand{Actor: doctor, To: domain.StatusCompleted, ExpectedVersion: &stale})
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	notes := "follow up in two weeks"
	current := 2
	done, err := f.svc.TransitionAppointment(ctx, a.ID, TransitionCommand{Actor: doctor, To: domain.StatusCompleted, ExpectedVersion: &current, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, done.Status)
	assert.Equal(t, notes, done.Notes)

	view, err := f.svc.GetDoctor(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, view.TotalPatients)

	_, err = f.svc.TransitionAppointment(ctx, a.ID, TransitionCommand{Actor: doctor, To: domain.StatusCancelled})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	assert.Equal(t, []string{domain.EventAppointmentStatusChanged, domain.EventAppointmentStatusChanged}, f.rec.Types())
}

// gatedDB holds transactions until every armed caller has finished its reads.
type gatedDB struct {
	*store.Memory
	gate *sync.WaitGroup
}

func (g *gatedDB) InTx(ctx context.Context, fn func(ctx context.Context, w store.Writer) error) error {
	if g.gate != nil {
		g.gate.Done()
		g.gate.Wait()
	}
	return g.Memory.InTx(ctx, fn)
}

func TestConcurrentCompletionsKeepPatientCount(t *testing.T) {
	db := &gatedDB{Memory: store.NewMemory("test")}
	svc := New(store.NewGateway(db, &event.Recorder{}, zerolog.Nop(), nil),
		redisclient.NewMemoryLocker(redisclient.DefaultLockConfig()),
		redisclient.NewMemoryIdempotency(time.Hour),
		config.Config{SlotDuration: 30 * time.Minute},
		zerolog.Nop())
	svc.now = func() time.Time { return now }
	f := &fixture{svc: svc, mem: db.Memory}
	ctx := context.Background()

	d := f.doctor(t, "grey@example.com", 100)
	doctor := domain.Actor{UserID: d.ID, Role: domain.RoleDoctor}
	var ids []uuid.UUID
	for _, h := range []int{10, 11, 12} {
		a := f.book(t, d.ID, nil, at(h, 0))
		_, err := svc.TransitionAppointment(ctx, a.ID, TransitionCommand{Actor: doctor, To: domain.StatusApproved})
		require.NoError(t, err)
		ids = append(ids, a.ID)
	}

	closed := domain.DefaultAvailability()
	closed.IsAvailable = false

	var wg, gate sync.WaitGroup
	gate.Add(len(ids) + 1)
	db.gate = &gate
	errs := make([]error, len(ids)+1)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = svc.TransitionAppointment(ctx, id, TransitionCommand{Actor: doctor, To: domain.StatusCompleted})
		}(i, id)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[len(ids)] = svc.UpdateAvailability(ctx, d.ID, closed)
	}()
	wg.Wait()
	db.gate = nil

	for _, err := range errs {
		require.NoError(t, err)
	}
	view, err := svc.GetDoctor(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, view.TotalPatients)
	assert.False(t, view.Availability.IsAvailable)
}

func TestTransitionAppointmentGuards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "grey@example.com", 100)
	other := f.doctor(t, "other@example.com", 100)
	p := f.patient(t, "pat@example.com")
	stranger := f.patient(t, "stranger@example.com")
	a := f.book(t, d.ID, &p.ID, at(10, 0))

	_, err := f.svc.TransitionAppointment(ctx, a.ID, TransitionCommand{
		Actor: domain.Actor{UserID: other.ID, Role: domain.RoleDoctor}, To: domain.StatusApproved,
	})
	assert.ErrorIs(t, err, domain.ErrNotAssignedDoctor)

	_, err = f.svc.TransitionAppointment(ctx, a.ID, TransitionCommand{
		Actor: domain.Actor{UserID: stranger.ID, Role: domain.RolePatient}, To: domain.StatusCancelled,
	})
	assert.ErrorIs(t, err, domain.ErrCancellationDenied)

	cancelled, err := f.svc.TransitionAppointment(ctx, a.ID, TransitionCommand{
		Actor: domain.Actor{UserID: p.ID, Role: domain.RolePatient}, To: domain.StatusCancelled,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	_, err = f.svc.TransitionAppointment(ctx, uuid.New(), TransitionCommand{To: domain.StatusCancelled})
	assert.ErrorIs(t, err, store.ErrAppointmentNotFound)
}

func TestListAppointmentsByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "grey@example.com", 100)
	p := f.patient(t, "pat@example.com")
	late := f.book(t, d.ID, &p.ID, at(15, 0))
	early := f.book(t, d.ID, nil, at(9, 0))

	byDoctor, err := f.svc.ListAppointments(ctx, AppointmentQuery{UserID: d.ID, Role: domain.RoleDoctor})
	require.NoError(t, err)
	require.Len(t, byDoctor, 2)
	assert.Equal(t, early.ID, byDoctor[0].ID)
	assert.Equal(t, late.ID, byDoctor[1].ID)

	byPatient, err := f.svc.ListAppointments(ctx, AppointmentQuery{UserID: p.ID, Role: domain.RolePatient})
	require.NoError(t, err)
	require.Len(t, byPatient, 1)
	assert.Equal(t, late.ID, byPatient[0].ID)

	approved, err := f.svc.ListAppointments(ctx, AppointmentQuery{UserID: d.ID, Role: domain.RoleDoctor, Status: domain.StatusApproved})
	require.NoError(t, err)
	assert.Empty(t, approved)

	staff, err := f.svc.ListAppointments(ctx, AppointmentQuery{UserID: uuid.New(), Role: domain.RoleTechSupport})
	require.NoError(t, err)
	assert.NotNil(t, staff)
	assert.Empty(t, staff)
}

func TestCheckAvailabilityAndSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "grey@example.com", 100)

	avail := domain.DefaultAvailability()
	avail.Breaks = []domain.Break{{Date: domain.DateOf(now), Start: domain.NewClock(12, 0), End: domain.NewClock(13, 0)}}
	view, err := f.svc.UpdateAvailability(ctx, d.ID, avail)
	require.NoError(t, err)
	assert.Equal(t, "Break", view.Availability.Breaks[0].Reason)

	f.book(t, d.ID, nil, at(10, 0))

	tests := []struct {
		at   time.Time
		want BookabilityDto
	}{
		{at(9, 0), BookabilityDto{Bookable: true}},
		{at(10, 10), BookabilityDto{Reason: domain.ReasonBooked}},
		{at(12, 30), BookabilityDto{Reason: domain.ReasonOnBreak}},
		{at(17, 0), BookabilityDto{Reason: domain.ReasonOutsideHours}},
		{at(10, 0).AddDate(0, 0, -1), BookabilityDto{Reason: domain.ReasonDayClosed}},
	}
	for _, tt := range tests {
		got, err := f.svc.CheckAvailability(ctx, d.ID, tt.at)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.at.String())
	}

	slots, err := f.svc.ListSlots(ctx, d.ID, domain.DateOf(now))
	require.NoError(t, err)
	require.Len(t, slots, 16)
	reasons := map[string]int{}
	for _, s := range slots {
		assert.Equal(t, 30*time.Minute, s.End.Sub(s.Start))
		if !s.Bookable {
			reasons[s.Reason]++
		}
	}
	assert.Equal(t, map[string]int{domain.ReasonBooked: 1, domain.ReasonOnBreak: 2}, reasons)

	sunday, err := f.svc.ListSlots(ctx, d.ID, domain.DateOf(now.AddDate(0, 0, -1)))
	require.NoError(t, err)
	assert.Empty(t, sunday)
}

func TestMedicalRecords(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "grey@example.com", 100)
	p := f.patient(t, "pat@example.com")
	doctor := domain.Actor{UserID: d.ID, Role: domain.RoleDoctor}

	_, err := f.svc.AddMedicalRecord(ctx, AddMedicalRecordCommand{
		Actor: domain.Actor{UserID: p.ID, Role: domain.RolePatient}, PatientID: p.ID, Type: domain.RecordVisit, Title: "x",
	})
	assert.ErrorIs(t, err, ErrDoctorsOnly)

	_, err = f.svc.AddMedicalRecord(ctx, AddMedicalRecordCommand{
		Actor: doctor, PatientID: d.ID, Type: domain.RecordVisit, Title: "x",
	})
	assert.ErrorIs(t, err, ErrNotAPatient)

	older, err := f.svc.AddMedicalRecord(ctx, AddMedicalRecordCommand{
		Actor: doctor, PatientID: p.ID, Type: domain.RecordPrescription, Title: "Amoxicillin",
		Date: domain.Date{Year: 2024, Month: time.May, Day: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "Dr. Meredith Grey", older.DoctorName)

	newer, err := f.svc.AddMedicalRecord(ctx, AddMedicalRecordCommand{
		Actor: doctor, PatientID: p.ID, Type: domain.RecordLabResult, Title: "Blood panel",
		Metadata: map[string]any{"lab": "central"},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.DateOf(now), newer.Date)

	all, err := f.svc.ListMedicalRecords(ctx, p.ID, "all")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)

	labs, err := f.svc.ListMedicalRecords(ctx, p.ID, "lab-result")
	require.NoError(t, err)
	require.Len(t, labs, 1)
	assert.Equal(t, "central", labs[0].Metadata["lab"])

	_, err = f.svc.ListMedicalRecords(ctx, p.ID, "x-ray")
	assert.ErrorIs(t, err, domain.ErrUnknownRecordType)

	_, err = f.svc.ListMedicalRecords(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, store.ErrMemberNotFound)
}

func TestChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	d := f.doctor(t, "grey@example.com", 100)
	p := f.patient(t, "pat@example.com")

	_, err := f.svc.SendMessage(ctx, SendMessageCommand{SenderID: p.ID, ReceiverID: d.ID, Message: "Hello doctor"})
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, SendMessageCommand{SenderID: d.ID, ReceiverID: p.ID, Message: "Hi"})
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, SendMessageCommand{SenderID: p.ID, ReceiverID: d.ID, Message: "scan.pdf", Type: domain.MessageFile})
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, SendMessageCommand{SenderID: p.ID, ReceiverID: uuid.New(), Message: "anyone?"})
	assert.ErrorIs(t, err, store.ErrMemberNotFound)
	_, err = f.svc.SendMessage(ctx, SendMessageCommand{SenderID: p.ID, ReceiverID: d.ID, Message: "  "})
	assert.ErrorIs(t, err, domain.ErrEmptyMessage)

	conv, err := f.svc.ListMessages(ctx, d.ID, p.ID)
	require.NoError(t, err)
	require.Len(t, conv, 3)
	assert.Equal(t, "Hello doctor", conv[0].Message)
	assert.Equal(t, domain.MessageFile, conv[2].Type)

	n, err := f.svc.MarkConversationRead(ctx, d.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	conv, err = f.svc.ListMessages(ctx, p.ID, d.ID)
	require.NoError(t, err)
	assert.True(t, conv[0].IsRead)
	assert.False(t, conv[1].IsRead)
}

func TestSaveFailureSurfacesAsPersistence(t *testing.T) {
	f := newFixture(t)
	f.mem.FailNextTx(errors.New("disk full"))

	_, err := f.svc.RegisterUser(context.Background(), RegisterUserCommand{
		Email: "pat@example.com", FirstName: "Pat", LastName: "Ient", Role: domain.RolePatient,
	})
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	assert.Empty(t, f.rec.Types())

	users, err := f.svc.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestSpecialties(t *testing.T) {
	list := newFixture(t).svc.Specialties()
	require.NotEmpty(t, list)
	assert.Equal(t, domain.Specialties()[0].Code(), list[0].Code)
	assert.NotEmpty(t, list[0].Category)
}
