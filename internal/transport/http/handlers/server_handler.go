package handlers

import (
	"net/http"

	"github.com/vedran77/chord/internal/service"
	"github.com/vedran77/chord/internal/transport/http/middleware"
	"github.com/vedran77/chord/pkg/validator"
)

// ServerHandler covers servers and the channels and members inside them.
type ServerHandler struct {
	serverService  *service.ServerService
	channelService *service.ChannelService
	memberService  *service.MemberService
}

func NewServerHandler(
	serverService *service.ServerService,
	channelService *service.ChannelService,
	memberService *service.MemberService,
) *ServerHandler {
	return &ServerHandler{
		serverService:  serverService,
		channelService: channelService,
		memberService:  memberService,
	}
}

func (h *ServerHandler) Create(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())

	var input service.CreateServerInput
	if !decode(w, r, &input) {
		return
	}
	if errs := validator.ValidateServer(input.Name); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	view, err := h.serverService.Create(r.Context(), profileID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, view)
}

func (h *ServerHandler) Get(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	serverID, ok := pathID(w, r, "serverId")
	if !ok {
		return
	}

	view, err := h.serverService.Get(r.Context(), profileID, serverID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

func (h *ServerHandler) Join(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	serverID, ok := pathID(w, r, "serverId")
	if !ok {
		return
	}

	member, err := h.serverService.Join(r.Context(), profileID, serverID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, member)
}

func (h *ServerHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	serverID, ok := pathID(w, r, "serverId")
	if !ok {
		return
	}

	members, err := h.memberService.List(r.Context(), profileID, serverID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, members)
}

func (h *ServerHandler) UpdateMember(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	memberID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var input service.UpdateRoleInput
	if !decode(w, r, &input) {
		return
	}
	if errs := validator.ValidateRole(string(input.Role)); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	member, err := h.memberService.UpdateRole(r.Context(), profileID, memberID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, member)
}

func (h *ServerHandler) KickMember(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	memberID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.memberService.Kick(r.Context(), profileID, memberID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ServerHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	serverID, ok := pathID(w, r, "serverId")
	if !ok {
		return
	}

	var input service.CreateChannelInput
	if !decode(w, r, &input) {
		return
	}
	if errs := validator.ValidateChannel(input.Name, string(input.Type)); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	ch, err := h.channelService.Create(r.Context(), profileID, serverID, input)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, ch)
}

func (h *ServerHandler) ListChannels(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	serverID, ok := pathID(w, r, "serverId")
	if !ok {
		return
	}

	channels, err := h.channelService.List(r.Context(), profileID, serverID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, channels)
}

func (h *ServerHandler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	profileID := middleware.GetProfileID(r.Context())
	channelID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.channelService.Delete(r.Context(), profileID, channelID); err != nil {
		writeError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
