// Package llm builds the chat models the services talk to. Every provider is
// exposed as an eino BaseChatModel so the prompt chain does not care which
// vendor answers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"troublebot-backend/internal/config"
	"troublebot-backend/internal/utils"
	"troublebot-backend/pkg/logger"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoModel "github.com/cloudwego/eino/components/model"
	oai "github.com/openai/openai-go/v3"
	openai "github.com/sashabaranov/go-openai"
)

const (
	ProviderGemini          = "gemini"
	ProviderOpenAI          = "openai"
	ProviderOpenAIResponses = "openai_responses"
	ProviderDoubao          = "doubao"
	ProviderQwen            = "qwen"
	ProviderMock            = "mock"
)

// mockLatency imitates a hosted model so the UI loading states stay visible.
const mockLatency = time.Second

var (
	ErrRateLimited   = errors.New("rate limit exceeded")
	ErrUpstream      = errors.New("AI service error")
	ErrEmptyResponse = errors.New("empty response from model")
	ErrMissingAPIKey = errors.New("missing API key")
)

// NewChatModel returns the chat model selected by cfg.Model.Provider.
func NewChatModel(ctx context.Context, cfg *config.Config) (einoModel.BaseChatModel, error) {
	debug := cfg.Agent.LogDebug

	switch cfg.Model.Provider {
	case ProviderMock:
		logger.Warn("Using mock chat model, no requests leave this process")
		return NewMockChatModel(mockLatency), nil
	case ProviderGemini, "":
		return newGeminiChatModel(ctx, cfg.Gemini, debug)
	case ProviderOpenAI:
		return newOpenAIChatModel(cfg.OpenAI, debug)
	case ProviderOpenAIResponses:
		return newResponsesChatModel(cfg.OpenAI, debug)
	case ProviderDoubao:
		return newDoubaoChatModel(ctx, cfg.Doubao, debug)
	case ProviderQwen:
		return newQwenChatModel(ctx, cfg.Qwen, debug || cfg.Qwen.DebugRequest)
	default:
		return nil, fmt.Errorf("unsupported model provider: %s", cfg.Model.Provider)
	}
}

func newHTTPClient(timeout time.Duration, debug bool, provider string) *http.Client {
	if !debug {
		return utils.NewHTTPClient(timeout)
	}
	return utils.NewHTTPClient(timeout, func(base http.RoundTripper) http.RoundTripper {
		return NewDebugTransport(base, provider)
	})
}

func maskKey(key string) string {
	if len(key) > 10 {
		return key[:10] + "..."
	}
	return "***"
}

func newDoubaoChatModel(ctx context.Context, cfg config.DoubaoConfig, debug bool) (einoModel.BaseChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("doubao: %w", ErrMissingAPIKey)
	}
	logger.Infof("Using Doubao API Key: %s, Model: %s", maskKey(cfg.APIKey), cfg.Model)

	arkCfg := &ark.ChatModelConfig{
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		HTTPClient: newHTTPClient(cfg.Timeout, debug, ProviderDoubao),
		CustomHeader: map[string]string{
			"X-Ark-Thinking-Mode": "disable",
		},
	}
	if cfg.BaseURL != "" {
		arkCfg.BaseURL = cfg.BaseURL
	}
	if cfg.MaxTokens > 0 {
		arkCfg.MaxTokens = &cfg.MaxTokens
	}
	if cfg.Temperature > 0 {
		arkCfg.Temperature = &cfg.Temperature
	}

	chatModel, err := ark.NewChatModel(ctx, arkCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Doubao model: %w", err)
	}
	return chatModel, nil
}

func newQwenChatModel(ctx context.Context, cfg config.QwenConfig, debug bool) (einoModel.BaseChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("qwen: %w", ErrMissingAPIKey)
	}
	logger.Infof("Using Qwen API Key: %s, Model: %s, BaseURL: %s", maskKey(cfg.APIKey), cfg.Model, cfg.BaseURL)

	chatModel, err := qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		BaseURL:     cfg.BaseURL,
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		MaxTokens:   &cfg.MaxTokens,
		Temperature: &cfg.Temperature,
		TopP:        &cfg.TopP,
		Timeout:     cfg.Timeout,
		HTTPClient:  newHTTPClient(cfg.Timeout, debug, ProviderQwen),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Qwen model: %w", err)
	}

	if debug {
		logger.Info("Qwen debug transport enabled for request body logging")
	}
	return chatModel, nil
}

// Classify tags a provider error with ErrRateLimited or ErrUpstream so the
// HTTP layer can pick a status code without knowing the vendor.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstream) {
		return err
	}
	if IsRateLimit(err) {
		return fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

// IsRateLimit reports whether err is a provider quota or throttling failure.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var oaiErr *oai.Error
	if errors.As(err, &oaiErr) && oaiErr.StatusCode == http.StatusTooManyRequests {
		return true
	}

	// genai, ark and qwen only surface the status in the message
	msg := strings.ToLower(err.Error())
	for _, hint := range []string{"rate limit", "ratelimit", "resource_exhausted", "too many requests", "quota", "status code: 429", "error 429"} {
		if strings.Contains(msg, hint) {
			return true
		}
	}
	return false
}
