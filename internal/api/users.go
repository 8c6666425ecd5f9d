package api

import (
	"net/http"

	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/service"
)

func specialtiesHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Specialties())
	}
}

func listUsersHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := svc.ListUsers(r.Context())
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func registerUserHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterUserRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		role, err := domain.ParseRole(req.Role)
		if err != nil {
			handleError(w, r, err)
			return
		}

		user, err := svc.RegisterUser(r.Context(), service.RegisterUserCommand{
			Email:            req.Email,
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			Phone:            req.Phone,
			Role:             role,
			DateOfBirth:      req.DateOfBirth,
			Address:          req.Address,
			EmergencyContact: req.EmergencyContact,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

func getUserHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, err)
			return
		}
		user, err := svc.GetUser(r.Context(), id)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func updateProfileHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, err)
			return
		}
		var req UpdateProfileRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}

		user, err := svc.UpdateProfile(r.Context(), id, service.ProfileUpdate{
			Email:            req.Email,
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			Phone:            req.Phone,
			Address:          req.Address,
			DateOfBirth:      req.DateOfBirth,
			EmergencyContact: req.EmergencyContact,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}
