package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"troublebot-backend/internal/config"

	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewChatModelProviders(t *testing.T) {
	ctx := context.Background()

	m, err := NewChatModel(ctx, &config.Config{Model: config.ModelConfig{Provider: ProviderMock}})
	require.NoError(t, err)
	assert.IsType(t, &MockChatModel{}, m)

	_, err = NewChatModel(ctx, &config.Config{Model: config.ModelConfig{Provider: "llama"}})
	assert.ErrorContains(t, err, "unsupported model provider: llama")

	for _, provider := range []string{ProviderGemini, ProviderOpenAI, ProviderOpenAIResponses, ProviderDoubao, ProviderQwen} {
		_, err = NewChatModel(ctx, &config.Config{Model: config.ModelConfig{Provider: provider}})
		assert.ErrorIs(t, err, ErrMissingAPIKey, provider)
	}
}

func TestNewChatModelOpenAIWithKey(t *testing.T) {
	cfg := &config.Config{
		Model:  config.ModelConfig{Provider: ProviderOpenAI},
		OpenAI: config.OpenAIConfig{APIKey: "sk-test", Model: "gpt-4o-mini", Timeout: time.Second},
	}
	m, err := NewChatModel(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &openaiChatModel{}, m)

	cfg.Model.Provider = ProviderOpenAIResponses
	m, err = NewChatModel(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &responsesChatModel{}, m)
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify(nil))

	tests := []struct {
		name        string
		err         error
		rateLimited bool
	}{
		{"openai api error 429", &openai.APIError{HTTPStatusCode: http.StatusTooManyRequests, Message: "slow down"}, true},
		{"openai request error 429", &openai.RequestError{HTTPStatusCode: http.StatusTooManyRequests, Err: errors.New("x")}, true},
		{"openai api error 500", &openai.APIError{HTTPStatusCode: http.StatusInternalServerError, Message: "boom"}, false},
		{"gemini quota message", errors.New("Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED"), true},
		{"plain rate limit text", errors.New("Rate limit reached for requests"), true},
		{"network error", errors.New("dial tcp: connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			assert.ErrorIs(t, got, tt.err)
			if tt.rateLimited {
				assert.ErrorIs(t, got, ErrRateLimited)
				assert.Contains(t, got.Error(), "rate limit")
			} else {
				assert.ErrorIs(t, got, ErrUpstream)
				assert.NotErrorIs(t, got, ErrRateLimited)
			}
		})
	}
}

func TestClassifyDoesNotDoubleWrap(t *testing.T) {
	once := Classify(errors.New("boom"))
	assert.Equal(t, once, Classify(once))
	wrapped := fmt.Errorf("context: %w", once)
	assert.Equal(t, wrapped, Classify(wrapped))
}

func TestMockChatModelGenerate(t *testing.T) {
	m := NewMockChatModel(0)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("be helpful"),
		schema.UserMessage("printer jammed"),
	})
	require.NoError(t, err)
	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Contains(t, msg.Content, `Thank you for your message: "printer jammed".`)
}

func TestMockChatModelTranscript(t *testing.T) {
	m := NewMockChatModel(0)
	prompt := "Summarize.\n\n" + TranscriptInputMarker + "\n" +
		"[7/20/2025, 10:00:00 AM] Customer: My laptop will not boot\n\n" +
		"[7/20/2025, 10:01:00 AM] Support Assistant: Is the power light on?\n\n" +
		"[7/20/2025, 10:02:00 AM] Customer: No lights at all\n\n" +
		"Please provide a structured summary."

	msg, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage(prompt)})
	require.NoError(t, err)
	assert.Contains(t, msg.Content, "**TECHNICAL SUPPORT TRANSCRIPT SUMMARY**")
	assert.Contains(t, msg.Content, "- Total messages exchanged: 3")
	assert.Contains(t, msg.Content, "- Primary issue: No lights at all")
}

func TestMockChatModelHonoursContext(t *testing.T) {
	m := NewMockChatModel(time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Generate(ctx, []*schema.Message{schema.UserMessage("hi")})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMockChatModelStreamConcatenates(t *testing.T) {
	m := NewMockChatModel(0)
	input := []*schema.Message{schema.UserMessage("wifi down")}

	full, err := m.Generate(context.Background(), input)
	require.NoError(t, err)

	sr, err := m.Stream(context.Background(), input)
	require.NoError(t, err)
	defer sr.Close()

	var got string
	for {
		chunk, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		got += chunk.Content
	}
	assert.Equal(t, full.Content, got)
}
