package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vedran77/chord/internal/apperr"
	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/service"
	"github.com/vedran77/chord/internal/transport/http/middleware"
	"github.com/vedran77/chord/pkg/validator"
)

var errMissingMessageID = apperr.New(apperr.Validation, "Invalid message ID")

// MessageHandler serves one message collection: channel messages or direct
// messages. The scope comes from a query parameter on list and send.
type MessageHandler struct {
	messageService *service.MessageService
	kind           domain.ChatKind
	scopeParam     string
}

func NewMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService, kind: domain.ChatChannel, scopeParam: "channelId"}
}

func NewDirectMessageHandler(messageService *service.MessageService) *MessageHandler {
	return &MessageHandler{messageService: messageService, kind: domain.ChatConversation, scopeParam: "conversationId"}
}

func (h *MessageHandler) chat(w http.ResponseWriter, r *http.Request) (domain.ChatRef, bool) {
	id, ok := queryID(w, r, h.scopeParam)
	return domain.ChatRef{Kind: h.kind, ID: id}, ok
}

func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	chat, ok := h.chat(w, r)
	if !ok {
		return
	}

	page, err := h.messageService.List(r.Context(), profileID, chat, r.URL.Query().Get("cursor"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	chat, ok := h.chat(w, r)
	if !ok {
		return
	}

	var input service.SendMessageInput
	if !decode(w, r, &input) {
		return
	}
	if errs := validator.ValidateMessage(input.Content, input.FileURL, input.ClientID); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messageService.Send(r.Context(), profileID, chat, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *MessageHandler) Edit(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	messageID := chi.URLParam(r, "id")
	if messageID == "" {
		writeError(w, r, errMissingMessageID)
		return
	}

	var input service.EditMessageInput
	if !decode(w, r, &input) {
		return
	}
	if errs := validator.ValidateEdit(input.Content); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	msg, err := h.messageService.Edit(r.Context(), profileID, messageID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}

// Delete returns the soft-deleted projection so clients can reconcile it.
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	messageID := chi.URLParam(r, "id")
	if messageID == "" {
		writeError(w, r, errMissingMessageID)
		return
	}

	msg, err := h.messageService.Delete(r.Context(), profileID, messageID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, msg)
}
