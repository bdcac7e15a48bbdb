package llm

import (
	"context"
	"fmt"
	"strings"

	"troublebot-backend/internal/config"
	"troublebot-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	oai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

// responsesChatModel talks to the OpenAI Responses API. The conversation is
// flattened into a single text input and the system turn becomes the
// instructions, so screenshots are not forwarded.
type responsesChatModel struct {
	client    oai.Client
	model     string
	maxTokens int64
}

func newResponsesChatModel(cfg config.OpenAIConfig, debug bool) (*responsesChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai_responses: %w", ErrMissingAPIKey)
	}
	logger.Infof("Using OpenAI Responses API, Model: %s", cfg.Model)

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(newHTTPClient(cfg.Timeout, debug, ProviderOpenAIResponses)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &responsesChatModel{
		client:    oai.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: int64(cfg.MaxTokens),
	}, nil
}

func (m *responsesChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	instructions, input := flattenConversation(messages)

	params := responses.ResponseNewParams{
		Model: m.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: oai.String(input),
		},
	}
	if instructions != "" {
		params.Instructions = oai.String(instructions)
	}
	if m.maxTokens > 0 {
		params.MaxOutputTokens = oai.Int(m.maxTokens)
	}

	resp, err := m.client.Responses.New(ctx, params)
	if err != nil {
		return nil, Classify(err)
	}
	if resp.Status == "incomplete" {
		logger.Warnf("Responses API returned incomplete output (reason = %s)", resp.IncompleteDetails.Reason)
	}

	text := strings.TrimSpace(resp.OutputText())
	if text == "" {
		return nil, fmt.Errorf("openai_responses: %w (status = %s)", ErrEmptyResponse, resp.Status)
	}

	return &schema.Message{Role: schema.Assistant, Content: text}, nil
}

// Stream emits the full reply as a single chunk.
func (m *responsesChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// flattenConversation joins system turns into instructions and renders the
// remaining turns as a labelled transcript.
func flattenConversation(messages []*schema.Message) (instructions, input string) {
	var sys, conv []string
	var last string
	turns := 0
	for _, msg := range messages {
		if len(imageURLs(msg)) > 0 {
			logger.Warn("openai_responses: screenshot attachments are not forwarded")
		}
		text := messageText(msg)
		switch msg.Role {
		case schema.System:
			sys = append(sys, text)
		case schema.Assistant:
			conv = append(conv, "Assistant: "+text)
			turns++
		default:
			conv = append(conv, "User: "+text)
			last = text
			turns++
		}
	}

	if turns == 1 && last != "" {
		return strings.Join(sys, "\n\n"), last
	}
	return strings.Join(sys, "\n\n"), strings.Join(conv, "\n\n")
}
