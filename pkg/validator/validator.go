package validator

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

const (
	maxContentLen  = 4000
	maxClientIDLen = 64
)

var channelNameRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)

func ValidateMessage(content string, fileURL *string, clientID string) ValidationErrors {
	errs := make(ValidationErrors)

	trimmed := strings.TrimSpace(content)
	if trimmed == "" && fileURL == nil {
		errs.Add("content", "Message content is required")
	} else if utf8.RuneCountInString(content) > maxContentLen {
		errs.Add("content", "Message is too long")
	}

	if fileURL != nil && strings.TrimSpace(*fileURL) == "" {
		errs.Add("fileUrl", "File URL cannot be empty")
	}

	if len(clientID) > maxClientIDLen {
		errs.Add("clientId", "Client ID is too long")
	}

	return errs
}

func ValidateEdit(content string) ValidationErrors {
	errs := make(ValidationErrors)
	if strings.TrimSpace(content) == "" {
		errs.Add("content", "Message content is required")
	} else if utf8.RuneCountInString(content) > maxContentLen {
		errs.Add("content", "Message is too long")
	}
	return errs
}

func ValidateServer(name string) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Server name is required")
	} else if len(name) < 2 {
		errs.Add("name", "Server name must be at least 2 characters")
	} else if len(name) > 100 {
		errs.Add("name", "Server name is too long")
	}

	return errs
}

func ValidateChannel(name, chType string) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Channel name is required")
	} else if len(name) < 2 {
		errs.Add("name", "Channel name must be at least 2 characters")
	} else if len(name) > 100 {
		errs.Add("name", "Channel name is too long")
	} else if !channelNameRegex.MatchString(name) {
		errs.Add("name", "Channel name can only contain lowercase letters, numbers, _ and -")
	}

	if chType != "" && chType != "TEXT" && chType != "AUDIO" && chType != "VIDEO" {
		errs.Add("type", "Channel type must be TEXT, AUDIO, or VIDEO")
	}

	return errs
}

func ValidateCallType(callType string) ValidationErrors {
	errs := make(ValidationErrors)
	if callType != "AUDIO" && callType != "VIDEO" {
		errs.Add("type", "Call type must be AUDIO or VIDEO")
	}
	return errs
}

func ValidateRole(role string) ValidationErrors {
	errs := make(ValidationErrors)
	switch role {
	case "GUEST", "MODERATOR", "ADMIN":
	case "":
		errs.Add("role", "Role is required")
	default:
		errs.Add("role", "Role must be GUEST, MODERATOR, or ADMIN")
	}
	return errs
}
