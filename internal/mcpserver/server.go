// Package mcpserver exposes the response structurer and transcript validator
// as MCP tools so agent clients can reuse them.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"troublebot-backend/internal/model"
	"troublebot-backend/internal/structurer"
	"troublebot-backend/internal/transcript"
	"troublebot-backend/pkg/logger"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	ServerName    = "troublebot-tools"
	ServerVersion = "1.0.0"
)

// ValidationResult is the payload of validate_chat_history.
type ValidationResult struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

func New() *server.MCPServer {
	s := server.NewMCPServer(ServerName, ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.AddTool(mcp.NewTool("structure_response",
		mcp.WithDescription("Parse a free-text troubleshooting reply into a structured response document"),
		mcp.WithString("raw_text", mcp.Required(), mcp.Description("The assistant reply to parse")),
		mcp.WithString("user_message", mcp.Description("The user message the reply answers")),
	), structureResponse)

	s.AddTool(mcp.NewTool("build_prompt",
		mcp.WithDescription("Wrap a user message in the sectioned troubleshooting prompt"),
		mcp.WithString("user_message", mcp.Required(), mcp.Description("The user's message")),
	), buildPrompt)

	s.AddTool(mcp.NewTool("count_words",
		mcp.WithDescription("Count whitespace-separated words"),
		mcp.WithString("text", mcp.Required()),
	), countWords)

	s.AddTool(mcp.NewTool("validate_chat_history",
		mcp.WithDescription("Check a chat history JSON object against the transcript generation limits"),
		mcp.WithString("chat_history_json", mcp.Required(), mcp.Description("The chatHistory object, JSON encoded")),
	), validateChatHistory)

	return s
}

// NewHTTPHandler serves the tools over streamable HTTP.
func NewHTTPHandler(s *server.MCPServer, path string) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s,
		server.WithEndpointPath(path),
		server.WithStateLess(true),
	)
}

func structureResponse(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("raw_text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resp := structurer.Parse(raw, req.GetString("user_message", ""))
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal structured response: %w", err)
	}

	logger.Debugf("mcp structure_response: %d sections", len(resp.Sections))
	return mcp.NewToolResultText(string(data)), nil
}

func buildPrompt(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	msg, err := req.RequireString("user_message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(structurer.BuildPrompt(msg)), nil
}

func countWords(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strconv.Itoa(transcript.CountWords(text))), nil
}

func validateChatHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("chat_history_json")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := checkChatHistory([]byte(raw))
	data, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func checkChatHistory(raw []byte) ValidationResult {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return ValidationResult{Reason: transcript.ErrMsgInvalidBody}
	}
	if !transcript.IsValidChatHistory(generic) {
		return ValidationResult{Reason: transcript.ErrMsgInvalidHistory}
	}

	if m := generic.(map[string]any); transcript.IsBlankReason(m["escalationReason"]) {
		delete(m, "escalationReason")
		raw, _ = json.Marshal(m)
	}

	var history model.ChatHistory
	if err := json.Unmarshal(raw, &history); err != nil {
		return ValidationResult{Reason: transcript.ErrMsgInvalidHistory}
	}
	if !transcript.HasEnoughMessages(&history) {
		return ValidationResult{Reason: transcript.ErrMsgTooFewMessages}
	}
	return ValidationResult{Valid: true}
}
