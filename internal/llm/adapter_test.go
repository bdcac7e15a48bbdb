package llm

import (
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("fake-png"))

func TestImageDataURI(t *testing.T) {
	assert.Equal(t, "data:image/jpeg;base64,AAAA", ImageDataURI("AAAA", "image/jpeg"))
	assert.Equal(t, "data:image/png;base64,AAAA", ImageDataURI("AAAA", ""))
	assert.Equal(t, pngURI, ImageDataURI(pngURI, "image/jpeg"))
}

func TestParseDataURI(t *testing.T) {
	mimeType, data, err := parseDataURI(pngURI)
	require.NoError(t, err)
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte("fake-png"), data)

	for _, bad := range []string{"https://example.com/a.png", "data:image/png,raw", "data:image/png;base64"} {
		_, _, err := parseDataURI(bad)
		assert.Error(t, err, bad)
	}
}

func TestWithImageKeepsOriginal(t *testing.T) {
	orig := schema.UserMessage("see screenshot")
	withImage := WithImage(orig, pngURI)

	assert.Empty(t, orig.MultiContent)
	assert.Equal(t, "see screenshot", messageText(withImage))
	assert.Equal(t, []string{pngURI}, imageURLs(withImage))
}

func TestConvertOpenAIMessages(t *testing.T) {
	msgs := convertOpenAIMessages([]*schema.Message{
		schema.SystemMessage("sys"),
		schema.AssistantMessage("", nil),
		schema.AssistantMessage("earlier answer", nil),
		WithImage(schema.UserMessage("what is this error?"), pngURI),
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, openai.ChatMessageRoleSystem, msgs[0].Role)
	assert.Equal(t, openai.ChatMessageRoleAssistant, msgs[1].Role)
	assert.Equal(t, "earlier answer", msgs[1].Content)

	user := msgs[2]
	assert.Empty(t, user.Content)
	require.Len(t, user.MultiContent, 2)
	assert.Equal(t, "what is this error?", user.MultiContent[0].Text)
	assert.Equal(t, pngURI, user.MultiContent[1].ImageURL.URL)
}

func TestConvertGeminiContents(t *testing.T) {
	system, contents := convertGeminiContents([]*schema.Message{
		schema.SystemMessage("you are a helpdesk bot"),
		schema.UserMessage("hi"),
		schema.AssistantMessage("hello", nil),
		WithImage(schema.UserMessage("this popup"), pngURI),
		WithImage(schema.UserMessage(""), "https://example.com/remote.png"),
	})

	assert.Equal(t, "you are a helpdesk bot", system)
	require.Len(t, contents, 3)
	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, "model", contents[1].Role)

	last := contents[2]
	require.Len(t, last.Parts, 2)
	assert.Equal(t, "this popup", last.Parts[0].Text)
	require.NotNil(t, last.Parts[1].InlineData)
	assert.Equal(t, "image/png", last.Parts[1].InlineData.MIMEType)
	assert.Equal(t, []byte("fake-png"), last.Parts[1].InlineData.Data)
}

func TestFlattenConversation(t *testing.T) {
	instructions, input := flattenConversation([]*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("only question"),
	})
	assert.Equal(t, "sys", instructions)
	assert.Equal(t, "only question", input)

	_, input = flattenConversation([]*schema.Message{
		schema.UserMessage("q1"),
		schema.AssistantMessage("a1", nil),
		schema.UserMessage("q2"),
	})
	assert.Equal(t, "User: q1\n\nAssistant: a1\n\nUser: q2", input)
}

func TestRedactBody(t *testing.T) {
	body := `{"api_key":"sk-123","Token": "abc","messages":[{"image_url":{"url":"` + pngURI + `"}}]}`
	got := RedactBody(body)

	assert.NotContains(t, got, "sk-123")
	assert.NotContains(t, got, "abc\"")
	assert.Contains(t, got, `"api_key":"[REDACTED]"`)
	assert.Contains(t, got, "[IMAGE]")

	long := RedactBody(strings.Repeat("x", maxLoggedBody+10))
	assert.True(t, strings.HasSuffix(long, "...(truncated)"))
}

func TestDebugTransportPreservesBody(t *testing.T) {
	var received string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		received = string(b)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := &http.Client{Transport: NewDebugTransport(nil, "test")}
	req, err := http.NewRequest(http.MethodPost, srv.URL+"?key=secret", strings.NewReader(`{"prompt":"hi"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer secret")

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, `{"prompt":"hi"}`, received)
	assert.Equal(t, srv.URL+"?key=[REDACTED]", redactURL(srv.URL+"?key=secret"))
}
