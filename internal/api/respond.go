package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hackgods/bookmd/internal/apperr"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

var errorMessages = map[string]string{
	"required": "is required",
	"email":    "must be a valid email",
	"uuid":     "must be a valid UUID",
	"gte":      "is too small",
	"min":      "is too short",
	"max":      "is too long",
}

// decodeJSON reads a JSON body into dst and validates its tags.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("invalid_request_body", "request body is required")
		}
		return apperr.Wrap(apperr.KindValidation, "invalid_request_body", err)
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		fields := make([]string, 0, len(verrs))
		for _, e := range verrs {
			msg := errorMessages[e.Tag()]
			if msg == "" {
				msg = "failed " + e.Tag()
			}
			fields = append(fields, fmt.Sprintf("%s %s", e.Field(), msg))
		}
		return apperr.Validation("validation_failed", strings.Join(fields, "; "))
	}
	return nil
}

func uuidParam(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid_"+name, name+" must be a valid UUID")
	}
	return id, nil
}

func uuidQuery(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.URL.Query().Get(name))
	if err != nil {
		return uuid.Nil, apperr.Validation("invalid_"+name, name+" must be a valid UUID")
	}
	return id, nil
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindPersistence:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// handleError maps the error taxonomy onto HTTP statuses.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unclassified error")
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	details := err.Error()
	if ae.Kind == apperr.KindPersistence {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("storage failure")
		details = ae.Message
		w.Header().Set("Retry-After", "1")
	}
	writeError(w, statusFor(ae.Kind), ae.Code, details)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
