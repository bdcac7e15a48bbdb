package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"troublebot-backend/internal/config"
	"troublebot-backend/internal/llm"
	"troublebot-backend/internal/model"
	"troublebot-backend/internal/storage"
	"troublebot-backend/internal/transcript"
	"troublebot-backend/internal/utils"
	"troublebot-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

var ErrTranscriptGeneration = errors.New("Transcript generation failed")

// conversationTimeLayout renders message times the way the web client's
// locale formatting does for en-US.
const conversationTimeLayout = "1/2/2006, 3:04:05 PM"

type TranscriptService struct {
	runnable compose.Runnable[map[string]any, *schema.Message]
	store    storage.TranscriptStore
	location *time.Location
	now      func() time.Time
}

func NewTranscriptService(ctx context.Context, chatModel einoModel.BaseChatModel, store storage.TranscriptStore, cfg config.AgentConfig) (*TranscriptService, error) {
	summaryPrompt := cfg.SummaryPrompt
	if summaryPrompt == "" {
		summaryPrompt = config.DefaultSummaryPrompt
	}

	tpl := prompt.FromMessages(schema.FString, schema.UserMessage(summaryPrompt))

	runnable, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(tpl).
		AppendChatModel(chatModel).
		Compile(ctx, compose.WithGraphName("TranscriptSummary"))
	if err != nil {
		return nil, fmt.Errorf("failed to compose transcript chain: %w", err)
	}

	return &TranscriptService{
		runnable: runnable,
		store:    store,
		location: time.Local,
		now:      time.Now,
	}, nil
}

// FormatConversation renders messages as "[time] Customer: text" blocks
// separated by blank lines. Unparseable timestamps are shown verbatim.
func FormatConversation(messages []model.ChatMessage, loc *time.Location) string {
	blocks := make([]string, 0, len(messages))
	for _, msg := range messages {
		role := "Support Assistant"
		if msg.Role == model.RoleUser {
			role = "Customer"
		}

		stamp := msg.Timestamp
		if t, err := time.Parse(time.RFC3339Nano, msg.Timestamp); err == nil {
			stamp = t.In(loc).Format(conversationTimeLayout)
		}

		blocks = append(blocks, fmt.Sprintf("[%s] %s: %s", stamp, role, msg.Content))
	}
	return strings.Join(blocks, "\n\n")
}

// Generate summarizes a validated chat history for handoff to a technician
// and archives the result. Archive failures are logged, not returned.
func (s *TranscriptService) Generate(ctx context.Context, history *model.ChatHistory) (*model.TranscriptResponse, error) {
	conversation := FormatConversation(history.Messages, s.location)
	if reason := strings.TrimSpace(history.EscalationReason); reason != "" {
		conversation += "\n\nEscalation reason given by the customer: " + reason
	}

	out, err := s.runnable.Invoke(ctx, map[string]any{"conversation": conversation},
		compose.WithCallbacks(newLogCallback(false)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranscriptGeneration, llm.Classify(err))
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return nil, fmt.Errorf("%w: %w", ErrTranscriptGeneration, llm.ErrEmptyResponse)
	}

	generatedAt := s.now().UTC()
	summary := out.Content

	record := &model.TranscriptRecord{
		ID:               uuid.New().String(),
		SessionID:        history.SessionID,
		Summary:          summary,
		WordCount:        transcript.CountWords(summary),
		MessageCount:     len(history.Messages),
		EscalationReason: history.EscalationReason,
		GeneratedAt:      generatedAt,
	}
	if s.store != nil {
		if err := s.store.Save(record); err != nil {
			logger.Errorf("Failed to archive transcript for session %s: %v", history.SessionID, err)
		}
	}

	logger.WithFields(map[string]interface{}{
		"session_id": history.SessionID,
		"messages":   len(history.Messages),
		"words":      record.WordCount,
	}).Info("transcript generated")

	return &model.TranscriptResponse{
		Summary:     summary,
		GeneratedAt: utils.ISOTimestamp(generatedAt),
		WordCount:   record.WordCount,
		SessionID:   history.SessionID,
		Success:     true,
	}, nil
}

func (s *TranscriptService) Get(sessionID string) (*model.TranscriptRecord, error) {
	return s.store.Get(sessionID)
}

func (s *TranscriptService) List() ([]*model.TranscriptSummary, error) {
	return s.store.List()
}

func (s *TranscriptService) Delete(sessionID string) error {
	return s.store.Delete(sessionID)
}
