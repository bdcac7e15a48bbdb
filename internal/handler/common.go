package handler

import (
	"net/http"
	"strings"
	"time"

	"troublebot-backend/internal/config"
	"troublebot-backend/internal/middleware"
	"troublebot-backend/internal/model"
	"troublebot-backend/internal/transcript"
	"troublebot-backend/internal/utils"
	"troublebot-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	MsgHelloWorld       = "Hello World from TroubleBot AI API!"
	MsgEchoSuccess      = "Echo response received successfully"
	MsgEchoRequired     = "Message is required and must be a non-empty string"
	MsgMethodNotAllowed = "Method not allowed"

	transcriptPath = "/api/generate-transcript"
)

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}

func HelloWorld(c *gin.Context) {
	c.JSON(http.StatusOK, model.StatusResponse{
		Message:   MsgHelloWorld,
		Timestamp: utils.NowISO(),
		Status:    model.StatusSuccess,
	})
}

func Echo(c *gin.Context) {
	var req model.EchoRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		chatError(c, http.StatusBadRequest, MsgEchoRequired)
		return
	}

	c.JSON(http.StatusOK, model.EchoResponse{
		Message:   MsgEchoSuccess,
		Timestamp: utils.NowISO(),
		Status:    model.StatusSuccess,
		Echo:      "Echo: " + strings.TrimSpace(req.Message),
	})
}

// MethodNotAllowed answers 405 in the error shape of the endpoint family.
func MethodNotAllowed(c *gin.Context) {
	switch c.Request.URL.Path {
	case transcriptPath:
		transcriptError(c, http.StatusMethodNotAllowed, transcript.ErrMsgMethodNotAllowed, "")
	case "/api/hello-world":
		c.JSON(http.StatusMethodNotAllowed, model.StatusResponse{
			Message:   MsgMethodNotAllowed,
			Timestamp: utils.NowISO(),
			Status:    model.StatusError,
		})
	default:
		chatError(c, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
	}
}

// RegisterRoutes mounts the API on r. Global middleware is the caller's
// concern. The transcript archive is only mounted when archive.Enabled, and
// then requires the archive API token.
func RegisterRoutes(r *gin.Engine, chatHandler *ChatHandler, transcriptHandler *TranscriptHandler, archive config.ArchiveConfig) {
	r.HandleMethodNotAllowed = true
	r.NoMethod(MethodNotAllowed)

	r.GET("/health", Health)

	api := r.Group("/api")
	{
		api.GET("/hello-world", HelloWorld)
		api.POST("/echo", Echo)

		api.POST("/chat", chatHandler.Chat)
		api.POST("/chat/stream", chatHandler.StreamChat)

		api.POST("/generate-transcript", transcriptHandler.Generate)

		if archive.Enabled {
			if archive.APIToken == "" {
				logger.Warn("Transcript archive enabled without archive.api_token, all archive requests will be rejected")
			}
			transcripts := api.Group("/transcripts", middleware.RequireToken(archive.APIToken))
			{
				transcripts.GET("", transcriptHandler.List)
				transcripts.GET("/:session_id", transcriptHandler.Get)
				transcripts.DELETE("/:session_id", transcriptHandler.Delete)
			}
		}
	}
}
