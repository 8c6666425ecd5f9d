package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/bookmd/internal/apperr"
	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/service"
)

const idempotencyHeader = "Idempotency-Key"

// requireActor writes 401 and reports false when the request carries no
// identity headers.
func requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor, ok := ActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "actor_required", "X-User-ID and X-User-Role headers are required")
	}
	return actor, ok
}

// bookAppointmentHandler answers 201 for a new booking and 200 when the
// Idempotency-Key matches an earlier one.
func bookAppointmentHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		typ, err := domain.ParseAppointmentType(req.Type)
		if err != nil {
			handleError(w, r, err)
			return
		}
		cmd := service.BookAppointmentCommand{
			IdempotencyKey: r.Header.Get(idempotencyHeader),
			DoctorID:       uuid.MustParse(req.DoctorID),
			PatientName:    req.PatientName,
			PatientEmail:   req.PatientEmail,
			Symptoms:       req.Symptoms,
			PreferredTime:  req.PreferredTime,
			Type:           typ,
			Notes:          req.Notes,
		}
		if req.PatientID != "" {
			id := uuid.MustParse(req.PatientID)
			cmd.PatientID = &id
		}

		appt, replayed, err := svc.BookAppointment(r.Context(), cmd)
		if err != nil {
			handleError(w, r, err)
			return
		}
		status := http.StatusCreated
		if replayed {
			status = http.StatusOK
		}
		writeJSON(w, status, appt)
	}
}

// listAppointmentsHandler reads ?userId&role&status and falls back to the
// calling actor when userId is absent.
func listAppointmentsHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		var q service.AppointmentQuery

		if query.Get("userId") == "" {
			actor, ok := ActorFromContext(r.Context())
			if !ok {
				handleError(w, r, apperr.Validation("user_required", "userId and role are required"))
				return
			}
			q.UserID, q.Role = actor.UserID, actor.Role
		} else {
			id, err := uuidQuery(r, "userId")
			if err != nil {
				handleError(w, r, err)
				return
			}
			role, err := domain.ParseRole(query.Get("role"))
			if err != nil {
				handleError(w, r, err)
				return
			}
			q.UserID, q.Role = id, role
		}
		if raw := query.Get("status"); raw != "" {
			st, err := domain.ParseStatus(raw)
			if err != nil {
				handleError(w, r, err)
				return
			}
			q.Status = st
		}

		list, err := svc.ListAppointments(r.Context(), q)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func getAppointmentHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, err)
			return
		}
		appt, err := svc.GetAppointment(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}

func transitionAppointmentHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r)
		if !ok {
			return
		}
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, err)
			return
		}
		var req TransitionRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		to, err := domain.ParseStatus(req.Status)
		if err != nil {
			handleError(w, r, err)
			return
		}

		appt, err := svc.TransitionAppointment(r.Context(), id, service.TransitionCommand{
			Actor:           actor,
			To:              to,
			ExpectedVersion: req.ExpectedVersion,
			ActualTime:      req.ActualTime,
			Notes:           req.Notes,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, appt)
	}
}
