package main

import (
	"context"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/bookmd/internal/bootstrap"
	"github.com/hackgods/bookmd/internal/config"
	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/store"
)

func TestWeekly(t *testing.T) {
	a := weekly(9, 17, 13, domain.DayWindow{Start: domain.NewClock(10, 0), End: domain.NewClock(12, 0), IsAvailable: true})
	require.NoError(t, a.Validate())
	assert.Equal(t, domain.NewClock(17, 0), a.Schedule.Monday.End)
	assert.Equal(t, domain.NewClock(13, 0), a.Schedule.Friday.End)
	assert.True(t, a.Schedule.Saturday.IsAvailable)
	assert.False(t, a.Schedule.Sunday.IsAvailable)
}

func TestSeedIntoMemoryStore(t *testing.T) {
	cfg := config.Config{
		StoreDSN:       "memory://seed",
		EventSinks:     []string{config.SinkLog},
		SlotDuration:   30 * time.Minute,
		LockTTL:        time.Second,
		IdempotencyTTL: time.Hour,
	}
	deps, err := bootstrap.Open(context.Background(), cfg, zerolog.Nop(), nil)
	require.NoError(t, err)
	defer deps.Close()
	svc := deps.Service()
	ctx := context.Background()
	require.NoError(t, gofakeit.Seed(42))

	doctors, err := seedDoctors(ctx, svc, zerolog.Nop(), 3)
	require.NoError(t, err)
	assert.Len(t, doctors, len(mockDoctors())+3)

	patients, err := seedPatients(ctx, svc, zerolog.Nop(), 5)
	require.NoError(t, err)
	assert.Len(t, patients, 5)

	require.NoError(t, seedAppointments(ctx, svc, zerolog.Nop(), doctors, patients, 20))
	booked, err := deps.DB.ListAppointments(ctx, store.AppointmentFilter{})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(booked), 20)

	again, err := seedDoctors(ctx, svc, zerolog.Nop(), 0)
	require.NoError(t, err)
	assert.Empty(t, again, "mock doctors are already seeded")
}
