package handlers

import (
	"net/http"

	"github.com/vedran77/chord/internal/domain"
	"github.com/vedran77/chord/internal/service"
	"github.com/vedran77/chord/internal/transport/http/middleware"
	"github.com/vedran77/chord/pkg/validator"
)

type CallHandler struct {
	callService *service.CallService
}

func NewCallHandler(callService *service.CallService) *CallHandler {
	return &CallHandler{callService: callService}
}

func (h *CallHandler) Create(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())

	var input service.CreateCallInput
	if !decode(w, r, &input) {
		return
	}
	if errs := validator.ValidateCallType(string(input.Type)); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	call, err := h.callService.Create(r.Context(), profileID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, call)
}

func (h *CallHandler) Get(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	callID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	call, err := h.callService.Get(r.Context(), profileID, callID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, call)
}

func (h *CallHandler) Patch(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	callID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var patch domain.CallPatch
	if !decode(w, r, &patch) {
		return
	}

	call, err := h.callService.Patch(r.Context(), profileID, callID, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, call)
}

func (h *CallHandler) End(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	callID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	call, err := h.callService.End(r.Context(), profileID, callID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, call)
}
