package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/chord/internal/apperr"
	"github.com/vedran77/chord/internal/service"
	"github.com/vedran77/chord/internal/transport/http/middleware"
)

type ConversationHandler struct {
	conversationService *service.ConversationService
}

func NewConversationHandler(conversationService *service.ConversationService) *ConversationHandler {
	return &ConversationHandler{conversationService: conversationService}
}

func (h *ConversationHandler) GetOrCreate(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())

	var input service.ConversationInput
	if !decode(w, r, &input) {
		return
	}
	if input.ServerID == uuid.Nil || input.MemberID == uuid.Nil {
		writeError(w, r, apperr.New(apperr.Validation, "serverId and memberId are required"))
		return
	}

	conv, err := h.conversationService.GetOrCreate(r.Context(), profileID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	convID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	conv, err := h.conversationService.Get(r.Context(), profileID, convID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, conv)
}
