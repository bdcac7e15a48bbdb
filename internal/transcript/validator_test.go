package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"troublebot-backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(i int, content string) map[string]any {
	role := model.RoleUser
	if i%2 == 1 {
		role = model.RoleAssistant
	}
	return map[string]any{
		"id":        fmt.Sprintf("m%d", i),
		"content":   content,
		"role":      role,
		"timestamp": "2025-07-20T10:00:00.000Z",
	}
}

func history(n int, content string) map[string]any {
	messages := make([]any, n)
	for i := range messages {
		messages[i] = message(i, content)
	}
	return map[string]any{"sessionId": "s1", "messages": messages}
}

func decode(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestIsValidChatMessage(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"valid user", message(0, "hi"), true},
		{"valid assistant", message(1, "hello"), true},
		{"empty content allowed", message(0, ""), true},
		{"content at limit", message(0, strings.Repeat("a", MaxMessageLength)), true},
		{"content over limit", message(0, strings.Repeat("a", MaxMessageLength+1)), false},
		{"not an object", "hello", false},
		{"nil", nil, false},
		{"bad role", map[string]any{"id": "1", "content": "x", "role": "system", "timestamp": "t"}, false},
		{"numeric id", map[string]any{"id": 1.0, "content": "x", "role": "user", "timestamp": "t"}, false},
		{"missing timestamp", map[string]any{"id": "1", "content": "x", "role": "user"}, false},
		{"non-string content", map[string]any{"id": "1", "content": 5.0, "role": "user", "timestamp": "t"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidChatMessage(tt.value))
		})
	}
}

func TestIsValidChatMessageCountsUTF16Units(t *testing.T) {
	// each emoji is two UTF-16 code units
	assert.True(t, IsValidChatMessage(message(0, strings.Repeat("😀", MaxMessageLength/2))))
	assert.False(t, IsValidChatMessage(message(0, strings.Repeat("😀", MaxMessageLength/2+1))))
}

func TestIsValidChatHistoryBoundaries(t *testing.T) {
	content500 := strings.Repeat("a", 500)

	assert.True(t, IsValidChatHistory(history(MaxMessages, content500)))
	assert.False(t, IsValidChatHistory(history(MaxMessages+1, "a")))

	overTotal := history(MaxMessages, content500)
	overTotal["messages"].([]any)[0].(map[string]any)["content"] = content500 + "a"
	assert.False(t, IsValidChatHistory(overTotal))

	oneLong := history(2, "a")
	oneLong["messages"].([]any)[1].(map[string]any)["content"] = strings.Repeat("a", MaxMessageLength+1)
	assert.False(t, IsValidChatHistory(oneLong))
}

func TestIsValidChatHistoryShape(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{"minimal", `{"sessionId":"s1","messages":[{"id":"1","content":"hi","role":"user","timestamp":"t"}]}`, true},
		{"escalation reason", `{"sessionId":"s1","escalationReason":"printer on fire","messages":[{"id":"1","content":"hi","role":"user","timestamp":"t"}]}`, true},
		{"null escalation reason", `{"sessionId":"s1","escalationReason":null,"messages":[{"id":"1","content":"hi","role":"user","timestamp":"t"}]}`, true},
		{"false escalation reason", `{"sessionId":"s1","escalationReason":false,"messages":[{"id":"1","content":"hi","role":"user","timestamp":"t"}]}`, true},
		{"zero escalation reason", `{"sessionId":"s1","escalationReason":0,"messages":[{"id":"1","content":"hi","role":"user","timestamp":"t"}]}`, true},
		{"empty escalation reason", `{"sessionId":"s1","escalationReason":"","messages":[{"id":"1","content":"hi","role":"user","timestamp":"t"}]}`, true},
		{"numeric escalation reason", `{"sessionId":"s1","escalationReason":3,"messages":[{"id":"1","content":"hi","role":"user","timestamp":"t"}]}`, false},
		{"true escalation reason", `{"sessionId":"s1","escalationReason":true,"messages":[{"id":"1","content":"hi","role":"user","timestamp":"t"}]}`, false},
		{"object escalation reason", `{"sessionId":"s1","escalationReason":{},"messages":[{"id":"1","content":"hi","role":"user","timestamp":"t"}]}`, false},
		{"empty messages", `{"sessionId":"s1","messages":[]}`, false},
		{"messages not array", `{"sessionId":"s1","messages":{}}`, false},
		{"missing session", `{"messages":[{"id":"1","content":"hi","role":"user","timestamp":"t"}]}`, false},
		{"blank session", `{"sessionId":"   ","messages":[{"id":"1","content":"hi","role":"user","timestamp":"t"}]}`, false},
		{"invalid message", `{"sessionId":"s1","messages":[{"id":"1","content":"hi","role":"bot","timestamp":"t"}]}`, false},
		{"array", `[]`, false},
		{"null", `null`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidChatHistory(decode(t, tt.raw)))
		})
	}
}

func TestHasEnoughMessages(t *testing.T) {
	assert.False(t, HasEnoughMessages(nil))
	assert.False(t, HasEnoughMessages(&model.ChatHistory{Messages: make([]model.ChatMessage, 1)}))
	assert.True(t, HasEnoughMessages(&model.ChatHistory{Messages: make([]model.ChatMessage, 2)}))
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 2, CountWords("  Hello   world  "))
	assert.Equal(t, 0, CountWords(""))
	assert.Equal(t, 0, CountWords(" \n\t "))
	assert.Equal(t, 3, CountWords("one\ntwo\tthree"))
}
