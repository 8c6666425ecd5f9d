package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/hackgods/bookmd/internal/metrics"
	"github.com/hackgods/bookmd/internal/service"
)

type RouterConfig struct {
	Service  *service.Service
	Checks   []Check
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Log      zerolog.Logger
	Env      string
	Version  string
	// RateLimit is requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(MetricsMiddleware(cfg.Metrics))

	health := NewHealthHandler(cfg.Checks, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if cfg.RateLimit > 0 {
			burst := cfg.Burst
			if burst < 1 {
				burst = 1
			}
			r.Use(RateLimitMiddleware(rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)))
		}
		r.Use(ActorMiddleware)

		svc := cfg.Service
		r.Get("/specialties", specialtiesHandler(svc))

		r.Route("/users", func(r chi.Router) {
			r.Get("/", listUsersHandler(svc))
			r.Post("/", registerUserHandler(svc))
			r.Get("/{id}", getUserHandler(svc))
			r.Patch("/{id}", updateProfileHandler(svc))
		})

		r.Route("/doctors", func(r chi.Router) {
			r.Get("/", listDoctorsHandler(svc))
			r.Post("/", createDoctorHandler(svc))
			r.Get("/{id}", getDoctorHandler(svc))
			r.Patch("/{id}", updateDoctorHandler(svc))
			r.Put("/{id}/availability", updateAvailabilityHandler(svc))
			r.Get("/{id}/availability/check", checkAvailabilityHandler(svc))
			r.Get("/{id}/slots", listSlotsHandler(svc))
		})

		r.Route("/appointments", func(r chi.Router) {
			r.Post("/", bookAppointmentHandler(svc))
			r.Get("/", listAppointmentsHandler(svc))
			r.Get("/{id}", getAppointmentHandler(svc))
			r.Patch("/{id}/status", transitionAppointmentHandler(svc))
		})

		r.Get("/patients/{id}/medical-history", listMedicalHistoryHandler(svc))
		r.Post("/patients/{id}/medical-history", addMedicalRecordHandler(svc))

		r.Route("/chat/messages", func(r chi.Router) {
			r.Get("/", listMessagesHandler(svc))
			r.Post("/", sendMessageHandler(svc))
			r.Post("/read", markReadHandler(svc))
		})
	})

	return r
}
