package storage

import (
	"strings"
	"time"

	"troublebot-backend/internal/model"
)

// TranscriptStore archives generated transcripts so technicians can pick up
// escalated sessions after the customer has left the chat.
type TranscriptStore interface {
	Save(record *model.TranscriptRecord) error
	// Get returns the most recent transcript for a session.
	Get(sessionID string) (*model.TranscriptRecord, error)
	// List returns summaries, newest first.
	List() ([]*model.TranscriptSummary, error)
	// Delete removes every transcript of a session.
	Delete(sessionID string) error
	// PurgeBefore drops transcripts generated before cutoff and reports how many went.
	PurgeBefore(cutoff time.Time) (int, error)

	// 存储管理
	Init() error
	Close() error
	Backup() error
}

func summaryOf(r *model.TranscriptRecord) *model.TranscriptSummary {
	return &model.TranscriptSummary{
		ID:               r.ID,
		SessionID:        r.SessionID,
		WordCount:        r.WordCount,
		MessageCount:     r.MessageCount,
		EscalationReason: r.EscalationReason,
		GeneratedAt:      r.GeneratedAt,
	}
}

func validateRecord(r *model.TranscriptRecord) error {
	if r == nil || r.ID == "" || r.SessionID == "" || strings.ContainsAny(r.ID, `/\.`) {
		return ErrInvalidData
	}
	return nil
}
