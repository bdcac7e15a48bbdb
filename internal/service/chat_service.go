package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"troublebot-backend/internal/config"
	"troublebot-backend/internal/llm"
	"troublebot-backend/internal/model"
	"troublebot-backend/internal/structurer"
	"troublebot-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
)

const (
	nodeInputToMap = "ChatInputToMap"
	nodeTemplate   = "ChatTemplate"
	nodeChatModel  = "ChatModel"

	defaultMaxHistoryMessages = 20
)

// ChatInput is one user turn. History is whatever the client chose to send;
// the service keeps no conversation state of its own.
type ChatInput struct {
	Message string
	Image   *model.ImageAttachment
	History []model.HistoryTurn
}

type ChatResult struct {
	Text       string
	Structured *model.StructuredResponse
}

// StreamEvent carries either a content chunk or, on the last event, the
// complete result.
type StreamEvent struct {
	Chunk *model.StreamChunk
	Final *ChatResult
}

type chatState struct {
	imageURI string
}

type ChatService struct {
	runnable   compose.Runnable[*ChatInput, *schema.Message]
	cfg        config.AgentConfig
	maxHistory int
}

func NewChatService(ctx context.Context, chatModel einoModel.BaseChatModel, cfg config.AgentConfig) (*ChatService, error) {
	maxHistory := cfg.MaxHistoryMessages
	if maxHistory <= 0 {
		maxHistory = defaultMaxHistoryMessages
	}

	s := &ChatService{cfg: cfg, maxHistory: maxHistory}

	runnable, err := s.composeGraph(ctx, chatModel)
	if err != nil {
		return nil, fmt.Errorf("failed to compose chat graph: %w", err)
	}
	s.runnable = runnable

	return s, nil
}

// escapeFString keeps literal braces in configured prompts from being read
// as template variables.
func escapeFString(s string) string {
	return strings.NewReplacer("{", "{{", "}", "}}").Replace(s)
}

func (s *ChatService) newPrompt() prompt.ChatTemplate {
	systemPrompt := s.cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = config.DefaultSystemPrompt
	}

	return prompt.FromMessages(schema.FString,
		schema.SystemMessage(escapeFString(systemPrompt)),
		schema.MessagesPlaceholder("message_histories", true),
		schema.UserMessage("{user_query}"),
	)
}

func (s *ChatService) composeGraph(ctx context.Context, cm einoModel.BaseChatModel) (compose.Runnable[*ChatInput, *schema.Message], error) {
	g := compose.NewGraph[*ChatInput, *schema.Message](compose.WithGenLocalState(func(ctx context.Context) *chatState {
		return &chatState{}
	}))

	inputToMap := compose.InvokableLambda(func(ctx context.Context, in *ChatInput) (map[string]any, error) {
		query := in.Message
		if s.cfg.StructuredPrompt && query != "" {
			query = structurer.BuildPrompt(query)
		}
		if query == "" {
			query = "Please analyze the attached screenshot."
		}
		return map[string]any{
			"user_query":        query,
			"message_histories": s.historyMessages(in.History),
		}, nil
	})

	err := g.AddLambdaNode(nodeInputToMap, inputToMap,
		compose.WithStatePreHandler(func(ctx context.Context, in *ChatInput, state *chatState) (*ChatInput, error) {
			if in.Image != nil && in.Image.Data != "" {
				state.imageURI = llm.ImageDataURI(in.Image.Data, in.Image.Type)
			}
			return in, nil
		}),
	)
	if err != nil {
		return nil, err
	}

	if err = g.AddChatTemplateNode(nodeTemplate, s.newPrompt()); err != nil {
		return nil, err
	}

	err = g.AddChatModelNode(nodeChatModel, cm,
		compose.WithStatePreHandler(func(ctx context.Context, in []*schema.Message, state *chatState) ([]*schema.Message, error) {
			if state.imageURI == "" || len(in) == 0 {
				return in, nil
			}
			out := append([]*schema.Message(nil), in...)
			out[len(out)-1] = llm.WithImage(out[len(out)-1], state.imageURI)
			return out, nil
		}),
	)
	if err != nil {
		return nil, err
	}

	if err = g.AddEdge(compose.START, nodeInputToMap); err != nil {
		return nil, err
	}
	if err = g.AddEdge(nodeInputToMap, nodeTemplate); err != nil {
		return nil, err
	}
	if err = g.AddEdge(nodeTemplate, nodeChatModel); err != nil {
		return nil, err
	}
	if err = g.AddEdge(nodeChatModel, compose.END); err != nil {
		return nil, err
	}

	return g.Compile(ctx, compose.WithGraphName("TroubleBotChat"))
}

// historyMessages keeps the most recent turns, dropping blanks and unknown roles.
func (s *ChatService) historyMessages(history []model.HistoryTurn) []*schema.Message {
	if len(history) > s.maxHistory {
		history = history[len(history)-s.maxHistory:]
	}

	messages := make([]*schema.Message, 0, len(history))
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		switch turn.Role {
		case model.RoleUser:
			messages = append(messages, schema.UserMessage(content))
		case model.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(content, nil))
		}
	}
	return messages
}

func (s *ChatService) callOptions() []compose.Option {
	return []compose.Option{compose.WithCallbacks(newLogCallback(s.cfg.LogDetail))}
}

// Reply runs one chat turn and structures the model's answer.
func (s *ChatService) Reply(ctx context.Context, in ChatInput) (*ChatResult, error) {
	start := time.Now()

	msg, err := s.runnable.Invoke(ctx, &in, s.callOptions()...)
	if err != nil {
		return nil, fmt.Errorf("AI processing failed: %w", llm.Classify(err))
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return nil, fmt.Errorf("AI processing failed: %w", llm.Classify(llm.ErrEmptyResponse))
	}

	logger.WithFields(map[string]interface{}{
		"history":   len(in.History),
		"has_image": in.Image != nil,
		"chars":     len(msg.Content),
		"elapsed":   time.Since(start).String(),
	}).Info("chat reply generated")

	return &ChatResult{
		Text:       msg.Content,
		Structured: structurer.Parse(msg.Content, in.Message),
	}, nil
}

// StreamReply streams the answer chunk by chunk. The last event on the
// returned channel carries the structured result; both channels are closed
// when the stream ends.
func (s *ChatService) StreamReply(ctx context.Context, in ChatInput) (<-chan StreamEvent, <-chan error) {
	events := make(chan StreamEvent, 100)
	errCh := make(chan error, 1)

	go func() {
		defer close(events)
		defer close(errCh)

		sr, err := s.runnable.Stream(ctx, &in, s.callOptions()...)
		if err != nil {
			errCh <- fmt.Errorf("AI processing failed: %w", llm.Classify(err))
			return
		}
		defer sr.Close()

		messageID := uuid.New().String()
		var full strings.Builder

		for {
			chunk, err := sr.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				errCh <- fmt.Errorf("AI processing failed: %w", llm.Classify(err))
				return
			}
			if chunk == nil || chunk.Content == "" {
				continue
			}

			full.WriteString(chunk.Content)
			select {
			case events <- StreamEvent{Chunk: &model.StreamChunk{
				MessageID: messageID,
				Content:   chunk.Content,
				Role:      model.RoleAssistant,
				Timestamp: time.Now().Unix(),
			}}:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}

		text := full.String()
		if strings.TrimSpace(text) == "" {
			errCh <- fmt.Errorf("AI processing failed: %w", llm.Classify(llm.ErrEmptyResponse))
			return
		}

		select {
		case events <- StreamEvent{Final: &ChatResult{Text: text, Structured: structurer.Parse(text, in.Message)}}:
		case <-ctx.Done():
			errCh <- ctx.Err()
		}
	}()

	return events, errCh
}
