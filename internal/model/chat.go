package model

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation submitted for transcript generation.
type ChatMessage struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Role      string `json:"role"`
	Timestamp string `json:"timestamp"`
}

type ChatHistory struct {
	SessionID        string        `json:"sessionId"`
	Messages         []ChatMessage `json:"messages"`
	EscalationReason string        `json:"escalationReason,omitempty"`
}

// HistoryTurn is a prior chat turn supplied by the client with a new message.
type HistoryTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ImageAttachment is a screenshot sent along with a chat message.
// Data is base64, with or without a data: URI prefix.
type ImageAttachment struct {
	Data string `json:"data"`
	Type string `json:"type"`
}

// TranscriptRecord is an archived transcript awaiting technician follow-up.
type TranscriptRecord struct {
	ID               string    `json:"id" gorm:"primaryKey;size:64"`
	SessionID        string    `json:"sessionId" gorm:"index;size:255"`
	Summary          string    `json:"summary" gorm:"type:text"`
	WordCount        int       `json:"wordCount"`
	MessageCount     int       `json:"messageCount"`
	EscalationReason string    `json:"escalationReason,omitempty" gorm:"type:text"`
	GeneratedAt      time.Time `json:"generatedAt" gorm:"index"`
}

// TranscriptSummary is the list view of a TranscriptRecord.
type TranscriptSummary struct {
	ID               string    `json:"id"`
	SessionID        string    `json:"sessionId"`
	WordCount        int       `json:"wordCount"`
	MessageCount     int       `json:"messageCount"`
	EscalationReason string    `json:"escalationReason,omitempty"`
	GeneratedAt      time.Time `json:"generatedAt"`
}
