package llm

import (
	"context"
	"fmt"
	"strings"

	"troublebot-backend/internal/config"
	"troublebot-backend/pkg/logger"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"
)

type geminiChatModel struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
}

func newGeminiChatModel(ctx context.Context, cfg config.GeminiConfig, debug bool) (*geminiChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: %w", ErrMissingAPIKey)
	}
	logger.Infof("Using Gemini API Key: %s, Model: %s", maskKey(cfg.APIKey), cfg.Model)

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: newHTTPClient(cfg.Timeout, debug, ProviderGemini),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &geminiChatModel{
		client:      client,
		model:       cfg.Model,
		maxTokens:   int32(cfg.MaxTokens),
		temperature: cfg.Temperature,
	}, nil
}

func (m *geminiChatModel) generateConfig(system string) *genai.GenerateContentConfig {
	gc := &genai.GenerateContentConfig{
		MaxOutputTokens: m.maxTokens,
	}
	if m.temperature > 0 {
		gc.Temperature = genai.Ptr(m.temperature)
	}
	if system != "" {
		gc.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	return gc
}

func (m *geminiChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	system, contents := convertGeminiContents(messages)
	logger.Debugf("Gemini generate: model=%s contents=%d", m.model, len(contents))

	resp, err := m.client.Models.GenerateContent(ctx, m.model, contents, m.generateConfig(system))
	if err != nil {
		return nil, Classify(err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return &schema.Message{Role: schema.Assistant, Content: text}, nil
}

func (m *geminiChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	system, contents := convertGeminiContents(messages)
	reader, writer := schema.Pipe[*schema.Message](100)

	go func() {
		defer writer.Close()

		for resp, err := range m.client.Models.GenerateContentStream(ctx, m.model, contents, m.generateConfig(system)) {
			if err != nil {
				writer.Send(nil, Classify(err))
				return
			}
			text := resp.Text()
			if text == "" {
				continue
			}
			if closed := writer.Send(&schema.Message{Role: schema.Assistant, Content: text}, nil); closed {
				return
			}
		}
	}()

	return reader, nil
}

// convertGeminiContents splits out system turns, which Gemini takes as a
// separate instruction, and maps the rest to user/model contents.
func convertGeminiContents(messages []*schema.Message) (string, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, msg := range messages {
		text := messageText(msg)
		if msg.Role == schema.System {
			system = append(system, text)
			continue
		}

		role := genai.Role(genai.RoleUser)
		if msg.Role == schema.Assistant {
			role = genai.RoleModel
		}

		parts := make([]*genai.Part, 0, 2)
		if text != "" {
			parts = append(parts, genai.NewPartFromText(text))
		}
		for _, url := range imageURLs(msg) {
			mimeType, data, err := parseDataURI(url)
			if err != nil {
				logger.Warnf("Dropping screenshot that is not a base64 data URI: %v", err)
				continue
			}
			parts = append(parts, genai.NewPartFromBytes(data, mimeType))
		}
		if len(parts) == 0 {
			continue
		}

		contents = append(contents, genai.NewContentFromParts(parts, role))
	}

	return strings.Join(system, "\n\n"), contents
}
