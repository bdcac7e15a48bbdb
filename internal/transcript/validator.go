// Package transcript checks transcript-generation payloads before they reach
// the summarization model.
package transcript

import (
	"strings"
	"unicode/utf16"

	"troublebot-backend/internal/model"
)

const (
	MaxMessages           = 100
	MaxMessageLength      = 5000
	MaxTotalContentLength = 50000
	// MinMessages is a business rule, not part of the structural check.
	MinMessages = 2
)

const (
	ErrMsgInvalidHistory   = "Invalid chat history. Please check message format, length limits, and required fields."
	ErrMsgTooFewMessages   = "Chat history must contain at least 2 messages for transcript generation."
	ErrMsgInvalidBody      = "Invalid request body. Expected JSON object."
	ErrMsgMethodNotAllowed = "Method not allowed. Use POST."
)

// contentLength counts UTF-16 code units, the unit the browser client uses
// when it enforces the same limits.
func contentLength(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

// IsValidChatMessage reports whether v, a decoded JSON value, is a chat
// message with string id and timestamp, a user or assistant role, and
// content of at most MaxMessageLength.
func IsValidChatMessage(v any) bool {
	msg, ok := v.(map[string]any)
	if !ok {
		return false
	}

	if _, ok := msg["id"].(string); !ok {
		return false
	}
	content, ok := msg["content"].(string)
	if !ok || contentLength(content) > MaxMessageLength {
		return false
	}
	role, _ := msg["role"].(string)
	if role != model.RoleUser && role != model.RoleAssistant {
		return false
	}
	if _, ok := msg["timestamp"].(string); !ok {
		return false
	}

	return true
}

// IsValidChatHistory reports whether v, a decoded JSON value, is a chat
// history within the size limits. It does not enforce MinMessages.
func IsValidChatHistory(v any) bool {
	history, ok := v.(map[string]any)
	if !ok {
		return false
	}

	messages, ok := history["messages"].([]any)
	if !ok || len(messages) == 0 || len(messages) > MaxMessages {
		return false
	}

	sessionID, ok := history["sessionId"].(string)
	if !ok || strings.TrimSpace(sessionID) == "" {
		return false
	}

	if reason, present := history["escalationReason"]; present && !IsBlankReason(reason) {
		if _, ok := reason.(string); !ok {
			return false
		}
	}

	total := 0
	for _, m := range messages {
		if !IsValidChatMessage(m) {
			return false
		}
		total += contentLength(m.(map[string]any)["content"].(string))
	}

	return total <= MaxTotalContentLength
}

// HasEnoughMessages applies the MinMessages rule to an already valid history.
func HasEnoughMessages(history *model.ChatHistory) bool {
	return history != nil && len(history.Messages) >= MinMessages
}

// CountWords counts whitespace-separated words.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// IsBlankReason reports whether an escalationReason value counts as "not
// given": null, false, 0 or "".
func IsBlankReason(v any) bool {
	switch r := v.(type) {
	case nil:
		return true
	case bool:
		return !r
	case float64:
		return r == 0
	case string:
		return r == ""
	}
	return false
}
