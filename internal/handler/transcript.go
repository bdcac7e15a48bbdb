package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"troublebot-backend/internal/llm"
	"troublebot-backend/internal/model"
	"troublebot-backend/internal/service"
	"troublebot-backend/internal/storage"
	"troublebot-backend/internal/transcript"
	"troublebot-backend/internal/utils"
	"troublebot-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	MsgAIUnavailable      = "AI service temporarily unavailable. Please try again later."
	MsgTranscriptNotFound = "Transcript not found"
)

type TranscriptService interface {
	Generate(ctx context.Context, history *model.ChatHistory) (*model.TranscriptResponse, error)
	Get(sessionID string) (*model.TranscriptRecord, error)
	List() ([]*model.TranscriptSummary, error)
	Delete(sessionID string) error
}

type TranscriptHandler struct {
	transcriptService TranscriptService
}

func NewTranscriptHandler(transcriptService TranscriptService) *TranscriptHandler {
	return &TranscriptHandler{
		transcriptService: transcriptService,
	}
}

func transcriptError(c *gin.Context, status int, msg, sessionID string) {
	c.JSON(status, model.TranscriptError{
		Error:     msg,
		Timestamp: utils.NowISO(),
		SessionID: sessionID,
		Success:   false,
	})
}

// sessionIDOf pulls a string sessionId out of an unvalidated payload.
func sessionIDOf(v any) string {
	obj, ok := v.(map[string]any)
	if !ok {
		return ""
	}
	id, _ := obj["sessionId"].(string)
	return id
}

// Generate validates the submitted chat history and returns an AI summary
// for a human technician.
func (h *TranscriptHandler) Generate(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		transcriptError(c, http.StatusBadRequest, transcript.ErrMsgInvalidBody, "")
		return
	}

	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		transcriptError(c, http.StatusBadRequest, transcript.ErrMsgInvalidBody, "")
		return
	}

	payload := body["chatHistory"]
	if !transcript.IsValidChatHistory(payload) {
		transcriptError(c, http.StatusBadRequest, transcript.ErrMsgInvalidHistory, sessionIDOf(payload))
		return
	}

	if m := payload.(map[string]any); transcript.IsBlankReason(m["escalationReason"]) {
		delete(m, "escalationReason")
	}

	var history model.ChatHistory
	if err := remarshal(payload, &history); err != nil {
		transcriptError(c, http.StatusBadRequest, transcript.ErrMsgInvalidHistory, sessionIDOf(payload))
		return
	}

	if !transcript.HasEnoughMessages(&history) {
		transcriptError(c, http.StatusBadRequest, transcript.ErrMsgTooFewMessages, history.SessionID)
		return
	}

	resp, err := h.transcriptService.Generate(c.Request.Context(), &history)
	if err != nil {
		logger.Errorf("Transcript generation error: %v", err)
		switch {
		case errors.Is(err, llm.ErrRateLimited):
			transcriptError(c, http.StatusTooManyRequests, MsgServiceBusy, history.SessionID)
		case errors.Is(err, service.ErrTranscriptGeneration):
			transcriptError(c, http.StatusServiceUnavailable, MsgAIUnavailable, history.SessionID)
		default:
			transcriptError(c, http.StatusInternalServerError, err.Error(), history.SessionID)
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

func remarshal(in any, out any) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}

// List returns archived transcripts, newest first.
func (h *TranscriptHandler) List(c *gin.Context) {
	summaries, err := h.transcriptService.List()
	if err != nil {
		transcriptError(c, http.StatusInternalServerError, err.Error(), "")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transcripts": summaries,
		"count":       len(summaries),
		"success":     true,
	})
}

func (h *TranscriptHandler) Get(c *gin.Context) {
	sessionID := c.Param("session_id")

	record, err := h.transcriptService.Get(sessionID)
	if errors.Is(err, storage.ErrTranscriptNotFound) {
		transcriptError(c, http.StatusNotFound, MsgTranscriptNotFound, sessionID)
		return
	}
	if err != nil {
		transcriptError(c, http.StatusInternalServerError, err.Error(), sessionID)
		return
	}

	c.JSON(http.StatusOK, record)
}

func (h *TranscriptHandler) Delete(c *gin.Context) {
	sessionID := c.Param("session_id")

	err := h.transcriptService.Delete(sessionID)
	if errors.Is(err, storage.ErrTranscriptNotFound) {
		transcriptError(c, http.StatusNotFound, MsgTranscriptNotFound, sessionID)
		return
	}
	if err != nil {
		transcriptError(c, http.StatusInternalServerError, err.Error(), sessionID)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Transcript deleted successfully",
		"sessionId": sessionID,
		"success":   true,
	})
}
