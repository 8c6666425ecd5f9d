package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"

	"github.com/hackgods/bookmd/internal/logging"
)

type SimConfig struct {
	APIBaseURL   string        `envconfig:"API_BASE_URL" default:"http://localhost:8080"`
	Duration     time.Duration `envconfig:"DURATION" default:"30s"`
	Workers      int           `envconfig:"WORKERS" default:"10"`
	Contenders   int           `envconfig:"CONTENDERS" default:"20"`
	Patients     int           `envconfig:"PATIENTS" default:"50"`
	BookingRatio float64       `envconfig:"BOOKING_RATIO" default:"0.5"`
	ApproveRatio float64       `envconfig:"APPROVE_RATIO" default:"0.2"`
	ReadRatio    float64       `envconfig:"READ_RATIO" default:"0.3"`
}

type booked struct {
	ID       uuid.UUID
	DoctorID uuid.UUID
}

type DataPool struct {
	Doctors  []uuid.UUID
	Patients []uuid.UUID

	mu           sync.RWMutex
	appointments []booked
}

func (dp *DataPool) AddAppointment(b booked) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.appointments = append(dp.appointments, b)
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (booked, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return booked{}, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Replayed  int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeReplayed
	outcomeConflict
	outcomeError
)

// classify maps a status code onto an outcome. ok is the status of a fresh
// success; a booking replay answers 200 instead of 201.
func classify(status, ok int) outcome {
	switch {
	case status == ok:
		return outcomeSuccess
	case ok == http.StatusCreated && status == http.StatusOK:
		return outcomeReplayed
	case status == http.StatusConflict:
		return outcomeConflict
	}
	return outcomeError
}

func (om *OperationMetrics) Record(latency time.Duration, o outcome) {
	atomic.AddInt64(&om.Total, 1)
	switch o {
	case outcomeSuccess:
		atomic.AddInt64(&om.Success, 1)
	case outcomeReplayed:
		atomic.AddInt64(&om.Replayed, 1)
	case outcomeConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[percentileIndex(len(latencies), 50)]
	p95 = latencies[percentileIndex(len(latencies), 95)]
	return avg, min, max, p50, p95
}

func percentileIndex(n, p int) int {
	i := n * p / 100
	if i >= n {
		i = n - 1
	}
	return i
}

type Metrics struct {
	Contended OperationMetrics
	Booking   OperationMetrics
	Approve   OperationMetrics
	ReadByID  OperationMetrics
	ListByDoc OperationMetrics
}

type Simulator struct {
	config  SimConfig
	log     zerolog.Logger
	pool    *DataPool
	client  *http.Client
	metrics Metrics
}

func main() {
	logger := logging.Init("simulate", "dev", "info")

	var cfg SimConfig
	if err := envconfig.Process("SIM", &cfg); err != nil {
		logger.Fatal().Err(err).Msg("read SIM_ settings")
	}
	if err := validateConfig(cfg); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}
	normalize(&cfg)
	logger.Info().
		Dur("duration", cfg.Duration).
		Int("workers", cfg.Workers).
		Int("contenders", cfg.Contenders).
		Msg("simulator starting")

	sim := &Simulator{
		config: cfg,
		log:    logger,
		pool:   &DataPool{},
		client: &http.Client{Timeout: 10 * time.Second},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := sim.prepare(ctx)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("prepare data pool")
	}
	logger.Info().Int("doctors", len(sim.pool.Doctors)).Int("patients", len(sim.pool.Patients)).Msg("data pool loaded")

	if err := sim.Contend(context.Background()); err != nil {
		logger.Error().Err(err).Msg("contended booking round")
	}
	sim.Run()
	sim.PrintReport()
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.Patients <= 0 {
		return fmt.Errorf("SIM_PATIENTS must be > 0")
	}
	return nil
}

func normalize(cfg *SimConfig) {
	total := cfg.BookingRatio + cfg.ApproveRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ApproveRatio /= total
		cfg.ReadRatio /= total
	}
}

// call sends a JSON request and decodes a JSON response into out when out
// is non-nil and the status is 2xx.
func (s *Simulator) call(ctx context.Context, method, path string, body any, out any, headers map[string]string) (int, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, s.config.APIBaseURL+path, &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (s *Simulator) prepare(ctx context.Context) error {
	var doctors []struct {
		ID uuid.UUID `json:"id"`
	}
	status, err := s.call(ctx, http.MethodGet, "/doctors?available=true", nil, &doctors, nil)
	if err != nil {
		return fmt.Errorf("list doctors: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("list doctors: status %d", status)
	}
	for _, d := range doctors {
		s.pool.Doctors = append(s.pool.Doctors, d.ID)
	}
	if len(s.pool.Doctors) == 0 {
		return fmt.Errorf("no doctors available, run the seed first")
	}

	for i := 0; i < s.config.Patients; i++ {
		var user struct {
			ID uuid.UUID `json:"id"`
		}
		status, err := s.call(ctx, http.MethodPost, "/users", map[string]any{
			"email":     fmt.Sprintf("sim-%s@example.com", uuid.NewString()[:8]),
			"firstName": gofakeit.FirstName(),
			"lastName":  gofakeit.LastName(),
			"role":      "patient",
		}, &user, nil)
		if err != nil {
			return fmt.Errorf("register patient: %w", err)
		}
		if status != http.StatusCreated {
			return fmt.Errorf("register patient: status %d", status)
		}
		s.pool.Patients = append(s.pool.Patients, user.ID)
	}
	return nil
}

// openSlot finds the first bookable slot of doctorID within the next two
// weeks.
func (s *Simulator) openSlot(ctx context.Context, doctorID uuid.UUID) (time.Time, error) {
	day := time.Now().UTC().AddDate(0, 0, 1)
	for i := 0; i < 14; i++ {
		var slots []struct {
			Start    time.Time `json:"start"`
			Bookable bool      `json:"bookable"`
		}
		path := fmt.Sprintf("/doctors/%s/slots?date=%s", doctorID, day.AddDate(0, 0, i).Format(time.DateOnly))
		if _, err := s.call(ctx, http.MethodGet, path, nil, &slots, nil); err != nil {
			return time.Time{}, err
		}
		for _, slot := range slots {
			if slot.Bookable {
				return slot.Start, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("doctor %s has no open slot", doctorID)
}

// Contend fires Contenders simultaneous bookings at one slot. Every second
// request reuses the first Idempotency-Key, so the expected outcome is one
// 201, replays as 200 and the rest 409.
func (s *Simulator) Contend(ctx context.Context) error {
	doctorID := s.pool.Doctors[0]
	slot, err := s.openSlot(ctx, doctorID)
	if err != nil {
		return err
	}
	s.log.Info().Str("doctor_id", doctorID.String()).Time("slot", slot).Int("contenders", s.config.Contenders).Msg("contended booking round")

	sharedKey := uuid.NewString()
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < s.config.Contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := uuid.NewString()
			patientID := s.pool.Patients[i%len(s.pool.Patients)]
			if i%2 == 0 {
				// A retried request repeats the key and the body.
				key = sharedKey
				patientID = s.pool.Patients[0]
			}
			<-start
			s.book(ctx, &s.metrics.Contended, doctorID, patientID, slot, key)
		}(i)
	}
	close(start)
	wg.Wait()
	return nil
}

func (s *Simulator) book(ctx context.Context, om *OperationMetrics, doctorID, patientID uuid.UUID, at time.Time, key string) {
	var appt struct {
		ID uuid.UUID `json:"id"`
	}
	begin := time.Now()
	status, err := s.call(ctx, http.MethodPost, "/appointments", map[string]any{
		"doctorId":      doctorID,
		"patientId":     patientID,
		"preferredTime": at,
		"symptoms":      "simulated visit",
	}, &appt, map[string]string{"Idempotency-Key": key})
	if err != nil {
		s.log.Debug().Err(err).Msg("booking request failed")
	}
	om.Record(time.Since(begin), classify(status, http.StatusCreated))
	if status == http.StatusCreated && appt.ID != uuid.Nil {
		s.pool.AddAppointment(booked{ID: appt.ID, DoctorID: doctorID})
	}
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	s.log.Info().Dur("duration", s.config.Duration).Int("workers", s.config.Workers).Msg("starting load phase")

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}
	wg.Wait()
	s.log.Info().Msg("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))
	base := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 1)

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			// Random half-hour in the next two weeks; unbookable times come back as 409.
			at := base.AddDate(0, 0, rng.Intn(14)).Add(time.Duration(16+rng.Intn(20)) * 30 * time.Minute)
			doctorID := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
			patientID := s.pool.Patients[rng.Intn(len(s.pool.Patients))]
			s.book(ctx, &s.metrics.Booking, doctorID, patientID, at, uuid.NewString())
		case r < s.config.BookingRatio+s.config.ApproveRatio:
			s.doApprove(ctx, rng)
		default:
			if rng.Intn(2) == 0 {
				s.doReadByID(ctx, rng)
			} else {
				s.doListByDoctor(ctx, rng)
			}
		}
	}
}

func (s *Simulator) doApprove(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	begin := time.Now()
	status, _ := s.call(ctx, http.MethodPatch, "/appointments/"+appt.ID.String()+"/status",
		map[string]any{"status": "approved"},
		nil,
		map[string]string{"X-User-ID": appt.DoctorID.String(), "X-User-Role": "doctor"})
	s.metrics.Approve.Record(time.Since(begin), classify(status, http.StatusOK))
}

func (s *Simulator) doReadByID(ctx context.Context, rng *rand.Rand) {
	appt, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}
	begin := time.Now()
	status, _ := s.call(ctx, http.MethodGet, "/appointments/"+appt.ID.String(), nil, nil, nil)
	s.metrics.ReadByID.Record(time.Since(begin), classify(status, http.StatusOK))
}

func (s *Simulator) doListByDoctor(ctx context.Context, rng *rand.Rand) {
	doctorID := s.pool.Doctors[rng.Intn(len(s.pool.Doctors))]
	begin := time.Now()
	status, _ := s.call(ctx, http.MethodGet, "/appointments?role=doctor&userId="+doctorID.String(), nil, nil, nil)
	s.metrics.ListByDoc.Record(time.Since(begin), classify(status, http.StatusOK))
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Println()

	printOperationReport("Contended slot", &s.metrics.Contended)
	if created := atomic.LoadInt64(&s.metrics.Contended.Success); created > 1 {
		fmt.Printf("  WARNING: %d bookings created for one slot\n\n", created)
	}
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Approve", &s.metrics.Approve)
	printOperationReport("Read by ID", &s.metrics.ReadByID)
	printOperationReport("List by doctor", &s.metrics.ListByDoc)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }
	success := atomic.LoadInt64(&om.Success)
	replayed := atomic.LoadInt64(&om.Replayed)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, pct(success))
	if replayed > 0 {
		fmt.Printf("  Replayed: %d (%.1f%%)\n", replayed, pct(replayed))
	}
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, pct(conflict))
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, pct(failed))
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}
