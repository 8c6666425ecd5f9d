package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/bookmd/internal/domain"
	"github.com/hackgods/bookmd/internal/service"
)

func listMessagesHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuidQuery(r, "userId")
		if err != nil {
			handleError(w, r, err)
			return
		}
		otherID, err := uuidQuery(r, "otherUserId")
		if err != nil {
			handleError(w, r, err)
			return
		}
		messages, err := svc.ListMessages(r.Context(), userID, otherID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, messages)
	}
}

func sendMessageHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SendMessageRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		typ, err := domain.ParseMessageType(req.Type)
		if err != nil {
			handleError(w, r, err)
			return
		}

		msg, err := svc.SendMessage(r.Context(), service.SendMessageCommand{
			SenderID:   uuid.MustParse(req.SenderID),
			ReceiverID: uuid.MustParse(req.ReceiverID),
			Message:    req.Message,
			Type:       typ,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, msg)
	}
}

// markReadHandler flags every message from otherUserId to userId as read.
func markReadHandler(svc *service.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req MarkReadRequest
		if err := decodeJSON(r, &req); err != nil {
			handleError(w, r, err)
			return
		}
		if _, err := svc.MarkConversationRead(r.Context(), uuid.MustParse(req.UserID), uuid.MustParse(req.OtherUserID)); err != nil {
			handleError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
