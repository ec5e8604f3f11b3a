package service

import "github.com/vedran77/chord/internal/apperr"

var (
	ErrServerNotFound       = apperr.New(apperr.NotFound, "server not found")
	ErrNotMember            = apperr.New(apperr.Forbidden, "you are not a member of this server")
	ErrAlreadyMember        = apperr.New(apperr.Conflict, "already a member of this server")
	ErrMemberNotFound       = apperr.New(apperr.NotFound, "member not found")
	ErrInsufficientRole     = apperr.New(apperr.Forbidden, "your role does not allow this action")
	ErrInvalidRole          = apperr.New(apperr.Validation, "role must be GUEST, MODERATOR or ADMIN")
	ErrSelfModeration       = apperr.New(apperr.Validation, "you cannot change your own membership")
	ErrChannelNotFound      = apperr.New(apperr.NotFound, "channel not found")
	ErrChannelNameTaken     = apperr.New(apperr.Conflict, "channel name already exists in this server")
	ErrGeneralChannel       = apperr.New(apperr.Validation, `the "general" channel cannot be created or deleted`)
	ErrConversationNotFound = apperr.New(apperr.NotFound, "conversation not found")
	ErrNotParticipant       = apperr.New(apperr.Forbidden, "you are not part of this conversation")
	ErrSelfConversation     = apperr.New(apperr.Validation, "cannot start a conversation with yourself")
	ErrMessageNotFound      = apperr.New(apperr.NotFound, "message not found")
	ErrNotMessageOwner      = apperr.New(apperr.Forbidden, "only the message sender can perform this action")
	ErrEmptyMessage         = apperr.New(apperr.Validation, "message content is required")
	ErrCallNotFound         = apperr.New(apperr.NotFound, "call not found")
	ErrCallInProgress       = apperr.New(apperr.Conflict, "a call is already in progress in this conversation")
	ErrCallNotPending       = apperr.New(apperr.Conflict, "call is no longer ringing")
	ErrCallNotActive        = apperr.New(apperr.Conflict, "call is not active")
	ErrCallChanged          = apperr.New(apperr.Conflict, "call changed concurrently, retry")
	ErrInvalidCallType      = apperr.New(apperr.Validation, "call type must be AUDIO or VIDEO")
	ErrInvalidCallPatch     = apperr.New(apperr.Validation, "exactly one of answered, declined or cancelled must be set")
	ErrNotCallee            = apperr.New(apperr.Forbidden, "only the callee can answer or decline")
	ErrNotCaller            = apperr.New(apperr.Forbidden, "only the caller can cancel")
)
