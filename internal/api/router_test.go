package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"maps"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/bookmd/internal/config"
	"github.com/hackgods/bookmd/internal/event"
	"github.com/hackgods/bookmd/internal/metrics"
	redisclient "github.com/hackgods/bookmd/internal/redis"
	"github.com/hackgods/bookmd/internal/service"
	"github.com/hackgods/bookmd/internal/store"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	mem     *store.Memory
}

func newTestServer(t *testing.T, checks ...Check) *testServer {
	t.Helper()
	mem := store.NewMemory("api-test")
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	gw := store.NewGateway(mem, &event.Recorder{}, zerolog.Nop(), m)
	svc := service.New(gw,
		redisclient.NewMemoryLocker(redisclient.DefaultLockConfig()),
		redisclient.NewMemoryIdempotency(time.Hour),
		config.Config{SlotDuration: 30 * time.Minute},
		zerolog.Nop())

	h := NewRouter(RouterConfig{
		Service:  svc,
		Checks:   checks,
		Metrics:  m,
		Gatherer: reg,
		Log:      zerolog.Nop(),
		Env:      "test",
		Version:  "v-test",
	})
	return &testServer{t: t, handler: h, mem: mem}
}

func (s *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) createDoctor(email string) service.UserDto {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/doctors", map[string]any{
		"email":           email,
		"firstName":       "Gregory",
		"lastName":        "House",
		"specialization":  "Internal Medicine",
		"consultationFee": "120.50",
		"qualifications":  []string{"MD"},
		"experience":      20,
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[service.UserDto](s.t, rec)
}

func (s *testServer) registerPatient(email string) service.UserDto {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/users", map[string]any{
		"email":     email,
		"firstName": "Lisa",
		"lastName":  "Cuddy",
		"role":      "patient",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[service.UserDto](s.t, rec)
}

// nextMonday returns 10:00 UTC on the first Monday after today.
func nextMonday() time.Time {
	d := time.Now().UTC().AddDate(0, 0, 1)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 10, 0, 0, 0, time.UTC)
}

func actorHeaders(id uuid.UUID, role string) []string {
	return []string{"X-User-ID", id.String(), "X-User-Role", role}
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t,
		Check{Name: "store", Critical: true, Ping: func(context.Context) error { return nil }},
		Check{Name: "redis", Ping: func(context.Context) error { return errors.New("down") }},
	)

	rec := s.do(http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v-test", decode[LivenessResponse](t, rec).Version)

	rec = s.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	ready := decode[ReadinessResponse](t, rec)
	assert.Equal(t, "degraded", ready.Status)
	assert.Equal(t, map[string]string{"store": "ok", "redis": "down"}, ready.Dependencies)
}

func TestReadinessFailsOnCriticalCheck(t *testing.T) {
	s := newTestServer(t, Check{Name: "store", Critical: true, Ping: func(context.Context) error { return errors.New("down") }})

	rec := s.do(http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "error", decode[ReadinessResponse](t, rec).Status)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/specialties", nil)

	rec := s.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `bookmd_http_requests_total{method="GET",route="/specialties",status="200"} 1`)
}

func TestSpecialties(t *testing.T) {
	rec := newTestServer(t).do(http.MethodGet, "/specialties", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]service.SpecialtyDto](t, rec)
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].Code, list[i].Code)
	}
}

func TestUserEndpoints(t *testing.T) {
	s := newTestServer(t)
	p := s.registerPatient("cuddy@example.com")

	rec := s.do(http.MethodGet, "/users", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []service.UserDto{p}, decode[[]service.UserDto](t, rec))

	rec = s.do(http.MethodPatch, "/users/"+p.ID.String(), map[string]any{"address": "Princeton", "dateOfBirth": "1970-03-02"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[service.MemberView](t, rec)
	require.NotNil(t, view.Patient)
	assert.Equal(t, "Princeton", view.Patient.Address)
	assert.Equal(t, "1970-03-02", view.Patient.DateOfBirth.String())

	rec = s.do(http.MethodGet, "/users/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/users/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_id", decode[ErrorResponse](t, rec).Error)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t)
	s.registerPatient("cuddy@example.com")

	tests := []struct {
		name   string
		body   any
		status int
		code   string
	}{
		{"missing email", map[string]any{"firstName": "A", "lastName": "B", "role": "patient"}, http.StatusBadRequest, "validation_failed"},
		{"bad email", map[string]any{"email": "nope", "firstName": "A", "lastName": "B", "role": "patient"}, http.StatusBadRequest, "validation_failed"},
		{"unknown field", map[string]any{"email": "a@example.com", "firstName": "A", "lastName": "B", "role": "patient", "password": "x"}, http.StatusBadRequest, "invalid_request_body"},
		{"no body", nil, http.StatusBadRequest, "invalid_request_body"},
		{"unknown role", map[string]any{"email": "a@example.com", "firstName": "A", "lastName": "B", "role": "janitor"}, http.StatusBadRequest, "unknown_role"},
		{"duplicate email", map[string]any{"email": "CUDDY@example.com", "firstName": "A", "lastName": "B", "role": "patient"}, http.StatusConflict, "email_taken"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/users", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decode[ErrorResponse](t, rec).Error)
		})
	}
}

func TestDoctorEndpoints(t *testing.T) {
	s := newTestServer(t)
	d := s.createDoctor("house@example.com")
	path := "/doctors/" + d.ID.String()

	rec := s.do(http.MethodGet, "/doctors?specialty=internal-medicine&available=true", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]service.DoctorView](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "120.5", list[0].ConsultationFee.String())

	rec = s.do(http.MethodGet, "/doctors?available=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPatch, path, map[string]any{"consultationFee": 200, "experience": 21})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	view := decode[service.DoctorView](t, rec)
	assert.Equal(t, "200", view.ConsultationFee.String())
	assert.Equal(t, 21, view.ExperienceYears)

	avail := view.Availability
	avail.Schedule.Monday.IsAvailable = false
	rec = s.do(http.MethodPut, path+"/availability", avail)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	monday := nextMonday()
	rec = s.do(http.MethodGet, path+"/availability/check?at="+monday.Format(time.RFC3339), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.BookabilityDto{Bookable: false, Reason: "day_closed"}, decode[service.BookabilityDto](t, rec))

	rec = s.do(http.MethodGet, path+"/availability/check?at=tomorrow", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	tuesday := monday.AddDate(0, 0, 1)
	rec = s.do(http.MethodGet, path+"/slots?date="+tuesday.Format(time.DateOnly), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]service.SlotDto](t, rec), 16)
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)
	d := s.createDoctor("house@example.com")
	p := s.registerPatient("cuddy@example.com")
	when := nextMonday()

	body := map[string]any{
		"doctorId":      d.ID,
		"patientId":     p.ID,
		"preferredTime": when,
		"symptoms":      "cough",
	}
	rec := s.do(http.MethodPost, "/appointments", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	appt := decode[service.AppointmentDto](t, rec)
	assert.Equal(t, "pending", string(appt.Status))
	assert.Equal(t, "Lisa Cuddy", appt.PatientName)

	rec = s.do(http.MethodPost, "/appointments", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, appt.ID, decode[service.AppointmentDto](t, rec).ID)

	rec = s.do(http.MethodPost, "/appointments", body, "Idempotency-Key", "k-2")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "slot_taken", decode[ErrorResponse](t, rec).Error)

	moved := maps.Clone(body)
	moved["preferredTime"] = when.Add(time.Hour)
	rec = s.do(http.MethodPost, "/appointments", moved, "Idempotency-Key", "k-1")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "idempotency_key_reused", decode[ErrorResponse](t, rec).Error)

	rec = s.do(http.MethodGet, "/appointments", nil, actorHeaders(p.ID, "patient")...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]service.AppointmentDto](t, rec), 1)

	rec = s.do(http.MethodGet, "/appointments?userId="+d.ID.String()+"&role=doctor&status=approved", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]service.AppointmentDto](t, rec))

	statusPath := "/appointments/" + appt.ID.String() + "/status"
	rec = s.do(http.MethodPatch, statusPath, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPatch, statusPath, map[string]any{"status": "approved"}, actorHeaders(p.ID, "patient")...)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPatch, statusPath, map[string]any{"status": "approved", "expectedVersion": 1}, actorHeaders(d.ID, "doctor")...)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	approved := decode[service.AppointmentDto](t, rec)
	assert.Equal(t, 2, approved.Version)

	rec = s.do(http.MethodPatch, statusPath, map[string]any{"status": "completed", "expectedVersion": 1}, actorHeaders(d.ID, "doctor")...)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "version_conflict", decode[ErrorResponse](t, rec).Error)

	rec = s.do(http.MethodGet, "/appointments/"+appt.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "approved", string(decode[service.AppointmentDto](t, rec).Status))
}

func TestBookingValidation(t *testing.T) {
	s := newTestServer(t)
	d := s.createDoctor("house@example.com")

	rec := s.do(http.MethodPost, "/appointments", map[string]any{"doctorId": "nope", "preferredTime": nextMonday()})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/appointments", map[string]any{
		"doctorId":      d.ID,
		"patientName":   "Walk In",
		"patientEmail":  "walkin@example.com",
		"preferredTime": nextMonday().Add(-10 * time.Hour),
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "doctor_unavailable", decode[ErrorResponse](t, rec).Error)

	rec = s.do(http.MethodPost, "/appointments", map[string]any{
		"doctorId":      uuid.New(),
		"patientName":   "Walk In",
		"patientEmail":  "walkin@example.com",
		"preferredTime": nextMonday(),
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConcurrentBookingsOneWins(t *testing.T) {
	s := newTestServer(t)
	d := s.createDoctor("house@example.com")
	when := nextMonday()

	const n = 8
	codes := make([]int, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = s.do(http.MethodPost, "/appointments", map[string]any{
				"doctorId":      d.ID,
				"patientName":   "Walk In",
				"patientEmail":  "walkin@example.com",
				"preferredTime": when,
			}).Code
		}(i)
	}
	wg.Wait()

	created := 0
	for _, c := range codes {
		if c == http.StatusCreated {
			created++
		} else {
			assert.Equal(t, http.StatusConflict, c)
		}
	}
	assert.Equal(t, 1, created)
}

func TestMedicalHistory(t *testing.T) {
	s := newTestServer(t)
	d := s.createDoctor("house@example.com")
	p := s.registerPatient("cuddy@example.com")
	path := "/patients/" + p.ID.String() + "/medical-history"

	record := map[string]any{"type": "diagnosis", "title": "Lupus", "date": "2024-05-01"}
	rec := s.do(http.MethodPost, path, record)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, path, record, actorHeaders(p.ID, "patient")...)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, path, record, actorHeaders(d.ID, "doctor")...)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, path, map[string]any{"type": "x-ray", "title": "Chest"}, actorHeaders(d.ID, "doctor")...)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, path+"?type=all", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]service.MedicalRecordDto](t, rec), 1)

	rec = s.do(http.MethodGet, path+"?type=prescription", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]service.MedicalRecordDto](t, rec))
}

func TestChatEndpoints(t *testing.T) {
	s := newTestServer(t)
	d := s.createDoctor("house@example.com")
	p := s.registerPatient("cuddy@example.com")

	rec := s.do(http.MethodPost, "/chat/messages", map[string]any{"senderId": d.ID, "receiverId": p.ID, "message": "Results are in"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/chat/messages", map[string]any{"senderId": d.ID, "receiverId": d.ID, "message": "echo"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/chat/messages/read", map[string]any{"userId": p.ID, "otherUserId": d.ID})
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/chat/messages?userId="+p.ID.String()+"&otherUserId="+d.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode[[]service.ChatMessageDto](t, rec)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsRead)

	rec = s.do(http.MethodGet, "/chat/messages?userId=bad", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestActorHeaderValidation(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/appointments", nil, "X-User-ID", "nope", "X-User-Role", "doctor")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_actor", decode[ErrorResponse](t, rec).Error)
}

func TestRateLimit(t *testing.T) {
	h := NewRouter(RouterConfig{Log: zerolog.Nop(), RateLimit: 1, Burst: 1, Service: newTestServerService()})
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/specialties", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes[1:], http.StatusTooManyRequests)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health checks bypass the limiter")
}

func TestPersistenceFailureMapsTo503(t *testing.T) {
	s := newTestServer(t)
	s.mem.FailNextTx(errors.New("disk full"))

	rec := s.do(http.MethodPost, "/users", map[string]any{"email": "a@example.com", "firstName": "A", "lastName": "B", "role": "patient"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func newTestServerService() *service.Service {
	gw := store.NewGateway(store.NewMemory("rl"), &event.Recorder{}, zerolog.Nop(), nil)
	return service.New(gw,
		redisclient.NewMemoryLocker(redisclient.DefaultLockConfig()),
		redisclient.NewMemoryIdempotency(time.Hour),
		config.Config{SlotDuration: 30 * time.Minute},
		zerolog.Nop())
}
