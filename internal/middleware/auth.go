package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"troublebot-backend/internal/model"
	"troublebot-backend/internal/utils"
	"troublebot-backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

const (
	UnauthorizedMessage = "Unauthorized"

	TokenHeader = "X-API-Token"
)

// bearerToken reads the token from "Authorization: Bearer" or X-API-Token.
func bearerToken(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); auth != "" {
		if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return strings.TrimSpace(c.GetHeader(TokenHeader))
}

// RequireToken rejects requests that do not present token. An empty token
// rejects everything.
func RequireToken(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := bearerToken(c)
		if token == "" || got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			logger.WithFields(map[string]interface{}{
				"client_ip": c.ClientIP(),
				"path":      c.Request.URL.Path,
			}).Warn("unauthorized request")

			c.AbortWithStatusJSON(http.StatusUnauthorized, model.ErrorResponse{
				Error:     UnauthorizedMessage,
				Timestamp: utils.NowISO(),
				Status:    model.StatusError,
			})
			return
		}
		c.Next()
	}
}
