package main

import (
	"context"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/hackgods/bookmd/internal/apperr"
	"github.com/hackgods/bookmd/internal/bootstrap"
	"github.com/hackgods/bookmd/internal/config"
	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/logging"
	"github.com/hackgods/bookmd/internal/service"
)

type seedConfig struct {
	Doctors      int `envconfig:"DOCTORS" default:"20"`
	Patients     int `envconfig:"PATIENTS" default:"200"`
	Appointments int `envconfig:"APPOINTMENTS" default:"300"`
}

var symptoms = []string{
	"Chest pain and shortness of breath",
	"Child has fever and cough for 3 days",
	"Persistent headache",
	"Lower back pain",
	"Skin rash on both arms",
	"Follow-up on blood work",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.Init("seed", "", "info")
		l.Fatal().Err(err).Msg("config load error")
	}
	logger := logging.Init("seed", cfg.Env, cfg.LogLevel)

	var sc seedConfig
	if err := envconfig.Process("SEED", &sc); err != nil {
		logger.Fatal().Err(err).Msg("read SEED_ settings")
	}
	logger.Info().Int("doctors", sc.Doctors).Int("patients", sc.Patients).Int("appointments", sc.Appointments).Msg("seed starting")

	ctx := context.Background()
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, err := bootstrap.Open(openCtx, cfg, logger, nil)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("dependency setup failed")
	}
	defer deps.Close()

	svc := deps.Service()
	gofakeit.Seed(time.Now().UnixNano())

	doctors, err := seedDoctors(ctx, svc, logger, sc.Doctors)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed doctors")
	}
	patients, err := seedPatients(ctx, svc, logger, sc.Patients)
	if err != nil {
		logger.Fatal().Err(err).Msg("seed patients")
	}
	if err := seedAppointments(ctx, svc, logger, doctors, patients, sc.Appointments); err != nil {
		logger.Fatal().Err(err).Msg("seed appointments")
	}

	logger.Info().Msg("seed complete")
}

func weekly(start, end, fridayEnd int, saturday domain.DayWindow) *domain.Availability {
	day := domain.DayWindow{Start: domain.NewClock(start, 0), End: domain.NewClock(end, 0), IsAvailable: true}
	friday := day
	friday.End = domain.NewClock(fridayEnd, 0)
	sunday := saturday
	sunday.IsAvailable = false
	return &domain.Availability{
		IsAvailable: true,
		Schedule: domain.Schedule{
			Monday:    day,
			Tuesday:   day,
			Wednesday: day,
			Thursday:  day,
			Friday:    friday,
			Saturday:  saturday,
			Sunday:    sunday,
		},
		Breaks: []domain.Break{},
	}
}

// mockDoctors are the two practitioners every environment starts with.
func mockDoctors() []service.CreateDoctorCommand {
	return []service.CreateDoctorCommand{
		{
			Email:           "dr.smith@medihealth.com",
			FirstName:       "John",
			LastName:        "Smith",
			Phone:           "+1-555-0101",
			Specialty:       domain.Cardiology,
			ConsultationFee: decimal.NewFromInt(150),
			Qualifications:  []string{"MD Cardiology", "FACC"},
			ExperienceYears: 15,
			Availability:    weekly(8, 18, 16, domain.DayWindow{Start: domain.NewClock(9, 0), End: domain.NewClock(13, 0), IsAvailable: true}),
		},
		{
			Email:           "dr.johnson@medihealth.com",
			FirstName:       "Sarah",
			LastName:        "Johnson",
			Phone:           "+1-555-0102",
			Specialty:       domain.Pediatrics,
			ConsultationFee: decimal.NewFromInt(120),
			Qualifications:  []string{"MD Pediatrics", "FAAP"},
			ExperienceYears: 12,
			Availability:    weekly(9, 17, 17, domain.DayWindow{Start: domain.NewClock(10, 0), End: domain.NewClock(14, 0), IsAvailable: true}),
		},
	}
}

func seedDoctors(ctx context.Context, svc *service.Service, logger zerolog.Logger, count int) ([]uuid.UUID, error) {
	logger.Info().Int("count", count).Msg("seeding doctors")

	specialties := domain.Specialties()
	cmds := mockDoctors()
	for i := 0; i < count; i++ {
		cmds = append(cmds, service.CreateDoctorCommand{
			Email:           gofakeit.Email(),
			FirstName:       gofakeit.FirstName(),
			LastName:        gofakeit.LastName(),
			Phone:           gofakeit.Phone(),
			Specialty:       specialties[gofakeit.Number(0, len(specialties)-1)],
			ConsultationFee: decimal.NewFromInt(int64(gofakeit.Number(50, 300))),
			Qualifications:  []string{"MD"},
			ExperienceYears: gofakeit.Number(1, 35),
		})
	}

	var ids []uuid.UUID
	for _, cmd := range cmds {
		d, err := svc.CreateDoctor(ctx, cmd)
		if apperr.Is(err, apperr.KindConflict) {
			// Already seeded or a faker email collision.
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, d.ID)
	}
	logger.Info().Int("created", len(ids)).Msg("doctors seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, svc *service.Service, logger zerolog.Logger, count int) ([]uuid.UUID, error) {
	logger.Info().Int("count", count).Msg("seeding patients")

	var ids []uuid.UUID
	for i := 0; i < count; i++ {
		dob := domain.DateOf(gofakeit.DateRange(time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)))
		p, err := svc.RegisterUser(ctx, service.RegisterUserCommand{
			Email:       gofakeit.Email(),
			FirstName:   gofakeit.FirstName(),
			LastName:    gofakeit.LastName(),
			Phone:       gofakeit.Phone(),
			Role:        domain.RolePatient,
			DateOfBirth: &dob,
			Address:     gofakeit.Street(),
			EmergencyContact: &domain.EmergencyContact{
				Name:         gofakeit.Name(),
				Phone:        gofakeit.Phone(),
				Relationship: "Spouse",
			},
		})
		if apperr.Is(err, apperr.KindConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)

		if (i+1)%100 == 0 {
			logger.Info().Int("done", i+1).Int("total", count).Msg("patients seeded")
		}
	}
	return ids, nil
}

// seedAppointments books random future slots. Slots the doctor does not
// offer or that are already taken are skipped.
func seedAppointments(ctx context.Context, svc *service.Service, logger zerolog.Logger, doctors, patients []uuid.UUID, count int) error {
	if len(doctors) == 0 || len(patients) == 0 {
		return nil
	}
	logger.Info().Int("count", count).Msg("seeding appointments")

	tomorrow := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)
	booked, skipped := 0, 0
	for i := 0; i < count; i++ {
		day := tomorrow.AddDate(0, 0, gofakeit.Number(0, 13))
		when := day.Add(time.Duration(gofakeit.Number(16, 35)) * 30 * time.Minute)
		patientID := patients[gofakeit.Number(0, len(patients)-1)]

		_, _, err := svc.BookAppointment(ctx, service.BookAppointmentCommand{
			DoctorID:      doctors[gofakeit.Number(0, len(doctors)-1)],
			PatientID:     &patientID,
			Symptoms:      symptoms[gofakeit.Number(0, len(symptoms)-1)],
			PreferredTime: when,
		})
		if apperr.Is(err, apperr.KindConflict) {
			skipped++
			continue
		}
		if err != nil {
			return err
		}
		booked++
	}
	logger.Info().Int("booked", booked).Int("skipped", skipped).Msg("appointments seeded")
	return nil
}
