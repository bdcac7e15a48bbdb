package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// TranscriptInputMarker starts the conversation block of a summarization
// request. The mock model uses it to tell transcript requests from chat turns.
const TranscriptInputMarker = "CONVERSATION HISTORY:"

const customerLabel = "] Customer: "

// MockChatModel answers without any network access. It is selected when the
// Gemini key is the well-known mock key.
type MockChatModel struct {
	delay time.Duration
}

func NewMockChatModel(delay time.Duration) *MockChatModel {
	return &MockChatModel{delay: delay}
}

func (m *MockChatModel) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (m *MockChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.Message, error) {
	var last string
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == schema.User {
			last = messageText(messages[i])
			break
		}
	}

	if strings.Contains(last, TranscriptInputMarker) {
		if err := m.wait(ctx, 2*m.delay); err != nil {
			return nil, err
		}
		return &schema.Message{Role: schema.Assistant, Content: mockTranscript(last)}, nil
	}

	if err := m.wait(ctx, m.delay); err != nil {
		return nil, err
	}
	return &schema.Message{Role: schema.Assistant, Content: fmt.Sprintf(
		"Thank you for your message: \"%s\". This is a mock response from GuruTech AI assistant. "+
			"In a real deployment, I would analyze your technical issue and provide detailed troubleshooting steps. "+
			"Please configure a valid GEMINI_API_KEY to enable real AI responses.", last)}, nil
}

func (m *MockChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...einoModel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, messages, opts...)
	if err != nil {
		return nil, err
	}

	words := strings.SplitAfter(msg.Content, " ")
	chunks := make([]*schema.Message, 0, len(words))
	for _, w := range words {
		chunks = append(chunks, &schema.Message{Role: schema.Assistant, Content: w})
	}
	return schema.StreamReaderFromArray(chunks), nil
}

func mockTranscript(prompt string) string {
	_, conversation, _ := strings.Cut(prompt, TranscriptInputMarker)

	messageCount := 0
	lastCustomer := "No user message found"
	for _, block := range strings.Split(conversation, "\n\n") {
		block = strings.TrimSpace(block)
		if !strings.HasPrefix(block, "[") {
			continue
		}
		messageCount++
		if _, content, ok := strings.Cut(block, customerLabel); ok {
			lastCustomer = content
		}
	}

	issue := lastCustomer
	if runes := []rune(issue); len(runes) > 100 {
		issue = string(runes[:100]) + "..."
	}

	return fmt.Sprintf(`**TECHNICAL SUPPORT TRANSCRIPT SUMMARY**

**Session Overview:**
- Total messages exchanged: %d
- Primary issue: %s

**Troubleshooting Steps Taken:**
1. Initial problem assessment and information gathering
2. Diagnostic questions to isolate the root cause
3. Suggested troubleshooting procedures based on common solutions
4. Escalation recommended due to complexity of the issue

**Key Technical Details:**
- User described technical difficulties requiring specialized attention
- Standard troubleshooting protocols were followed
- Issue appears to require advanced technical intervention

**Recommendation:**
This case requires escalation to a human technician for specialized troubleshooting. The conversation history shows a complex technical issue that would benefit from hands-on expertise.

**Next Steps:**
- Assign to Level 2 technical support
- Review full conversation history for additional context
- Consider scheduling follow-up session if needed

*This is a mock transcript generated for testing purposes. Configure GEMINI_API_KEY for actual AI-generated summaries.*`, messageCount, issue)
}
