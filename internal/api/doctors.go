package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hackgods/bookmd/internal/apperr"
	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/service"
)

func createDoctorHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateDoctorRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		specialty, err := domain.ParseSpecialty(req.Specialization)
		if err != nil {
			handleError(w, r, err)
			return
		}

		doctor, err := svc.CreateDoctor(r.Context(), service.CreateDoctorCommand{
			Email:           req.Email,
			FirstName:       req.FirstName,
			LastName:        req.LastName,
			Phone:           req.Phone,
			Specialty:       specialty,
			ConsultationFee: req.ConsultationFee,
			Qualifications:  req.Qualifications,
			ExperienceYears: req.Experience,
			Availability:    req.Availability,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, doctor)
	}
}

// listDoctorsHandler accepts ?specialty=<name or code>&available=true.
func listDoctorsHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var q service.DoctorQuery
		if raw := r.URL.Query().Get("specialty"); raw != "" {
			s, err := domain.ParseSpecialty(raw)
			if err != nil {
				handleError(w, r, err)
				return
			}
			q.Specialty = s
		}
		if raw := r.URL.Query().Get("available"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				handleError(w, r, apperr.Validation("invalid_available", "available must be a boolean"))
				return
			}
			q.AvailableOnly = v
		}

		doctors, err := svc.ListDoctors(r.Context(), q)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doctors)
	}
}

func getDoctorHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, err)
			return
		}
		doctor, err := svc.GetDoctor(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doctor)
	}
}

func updateDoctorHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, err)
			return
		}
		var req UpdateDoctorRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		doctor, err := svc.UpdateDoctor(r.Context(), id, service.DoctorUpdate{
			ConsultationFee: req.ConsultationFee,
			Qualifications:  req.Qualifications,
			ExperienceYears: req.Experience,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doctor)
	}
}

func updateAvailabilityHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, err)
			return
		}
		var req domain.Availability
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		doctor, err := svc.UpdateAvailability(r.Context(), id, req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, doctor)
	}
}

func checkAvailabilityHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, err)
			return
		}
		at, err := time.Parse(time.RFC3339, r.URL.Query().Get("at"))
		if err != nil {
			handleError(w, r, apperr.Validation("invalid_at", "at must be an RFC3339 timestamp"))
			return
		}

		result, err := svc.CheckAvailability(r.Context(), id, at)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func listSlotsHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, err)
			return
		}
		date, err := domain.ParseDate(r.URL.Query().Get("date"))
		if err != nil {
			handleError(w, r, err)
			return
		}

		slots, err := svc.ListSlots(r.Context(), id, date)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, slots)
	}
}
