package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"troublebot-backend/internal/llm"
	"troublebot-backend/internal/model"
	"troublebot-backend/internal/service"
	"troublebot-backend/internal/utils"
	"troublebot-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	MsgChatSuccess     = "AI response generated successfully"
	MsgMessageRequired = "Message or image is required"
	MsgInvalidBody     = "Invalid request body"
	MsgServiceBusy     = "Service temporarily busy. Please wait a moment and try again."
)

var (
	streamTimeout     = 5 * time.Minute
	heartbeatInterval = 30 * time.Second
)

// ChatService is what the chat endpoints need from the service layer.
type ChatService interface {
	Reply(ctx context.Context, in service.ChatInput) (*service.ChatResult, error)
	StreamReply(ctx context.Context, in service.ChatInput) (<-chan service.StreamEvent, <-chan error)
}

type ChatHandler struct {
	chatService ChatService
}

func NewChatHandler(chatService ChatService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
	}
}

func chatError(c *gin.Context, status int, msg string) {
	c.JSON(status, model.ErrorResponse{
		Error:     msg,
		Timestamp: utils.NowISO(),
		Status:    model.StatusError,
	})
}

// bindChat decodes a chat request. It writes the 400 itself and returns
// false when the request is unusable.
func bindChat(c *gin.Context) (service.ChatInput, bool) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warnf("Invalid chat request: %v", err)
		chatError(c, http.StatusBadRequest, MsgInvalidBody)
		return service.ChatInput{}, false
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Image != nil && strings.TrimSpace(req.Image.Data) == "" {
		req.Image = nil
	}
	if req.Message == "" && req.Image == nil {
		chatError(c, http.StatusBadRequest, MsgMessageRequired)
		return service.ChatInput{}, false
	}

	return service.ChatInput{
		Message: req.Message,
		Image:   req.Image,
		History: req.History,
	}, true
}

func chatStatus(err error) (int, string) {
	if errors.Is(err, llm.ErrRateLimited) {
		return http.StatusTooManyRequests, MsgServiceBusy
	}
	return http.StatusInternalServerError, err.Error()
}

// Chat answers one message and returns both the raw text and its structured form.
func (h *ChatHandler) Chat(c *gin.Context) {
	in, ok := bindChat(c)
	if !ok {
		return
	}

	result, err := h.chatService.Reply(c.Request.Context(), in)
	if err != nil {
		logger.Errorf("AI chat error: %v", err)
		status, msg := chatStatus(err)
		chatError(c, status, msg)
		return
	}

	c.JSON(http.StatusOK, model.ChatResponse{
		Message:    MsgChatSuccess,
		Timestamp:  utils.NowISO(),
		Status:     model.StatusSuccess,
		Response:   result.Text,
		Structured: result.Structured,
	})
}

func marshalEvent(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Errorf("Failed to marshal SSE event: %v", err)
		return "{}"
	}
	return string(data)
}

// StreamChat streams the reply as server-sent events: a status event, one
// message event per chunk, a structured event with the parsed answer, then
// [DONE]. Failures are sent as an error event.
func (h *ChatHandler) StreamChat(c *gin.Context) {
	in, ok := bindChat(c)
	if !ok {
		return
	}

	sseWriter := utils.NewSSEWriter(c.Writer)

	ctx, cancel := context.WithTimeout(c.Request.Context(), streamTimeout)
	defer cancel()

	// 心跳，防止代理因空闲断开连接
	hbDone := make(chan struct{})
	hbStop := make(chan struct{})
	go func() {
		defer close(hbDone)
		ticker := time.NewTicker(heartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				err := sseWriter.Write("heartbeat", marshalEvent(gin.H{
					"type":      "heartbeat",
					"timestamp": time.Now().Unix(),
				}))
				if err != nil {
					return
				}
			case <-hbStop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	finish := func() {
		close(hbStop)
		<-hbDone
		sseWriter.Close()
	}

	sseWriter.Write("status", marshalEvent(gin.H{
		"type":      "processing_start",
		"message":   "Processing your request...",
		"timestamp": time.Now().Unix(),
	}))

	events, errCh := h.chatService.StreamReply(ctx, in)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				if err := <-errCh; err != nil {
					logger.Errorf("AI stream error: %v", err)
					_, msg := chatStatus(err)
					sseWriter.Write("error", marshalEvent(gin.H{
						"error":     msg,
						"type":      "service_error",
						"timestamp": time.Now().Unix(),
					}))
				}
				finish()
				return
			}

			if ev.Chunk != nil {
				if err := sseWriter.Write("message", marshalEvent(ev.Chunk)); err != nil {
					logger.Errorf("Failed to write SSE: %v", err)
					cancel()
					finish()
					return
				}
			}
			if ev.Final != nil {
				sseWriter.Write("structured", marshalEvent(model.ChatResponse{
					Message:    MsgChatSuccess,
					Timestamp:  utils.NowISO(),
					Status:     model.StatusSuccess,
					Response:   ev.Final.Text,
					Structured: ev.Final.Structured,
				}))
			}

		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				sseWriter.Write("error", marshalEvent(gin.H{
					"error":     "Request timed out",
					"type":      "timeout",
					"timestamp": time.Now().Unix(),
				}))
			}
			finish()
			return
		}
	}
}
