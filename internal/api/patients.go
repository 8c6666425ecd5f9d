package api

import (
	"net/http"

	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/service"
)

func listMedicalHistoryHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuidParam(r, "id")
		if err != nil {
			handleError(w, r, err)
			return
		}
		records, err := svc.ListMedicalRecords(r.Context(), id, r.URL.Query().Get("type"))
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func addMedicalRecordHandler(svc *service.Service) http.HandlerFunc {
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
		var req AddMedicalRecordRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		typ, err := domain.ParseRecordType(req.Type)
		if err != nil {
			handleError(w, r, err)
			return
		}
		cmd := service.AddMedicalRecordCommand{
			Actor:       actor,
			PatientID:   id,
			Type:        typ,
			Title:       req.Title,
			Description: req.Description,
			Attachments: req.Attachments,
			Metadata:    req.Metadata,
		}
		if req.Date != nil {
			cmd.Date = *req.Date
		}

		record, err := svc.AddMedicalRecord(r.Context(), cmd)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, record)
	}
}
