package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sashabogi/agent-router/internal/logging"
)

// corsMiddleware adds permissive CORS headers and answers preflight requests.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "*")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// maxBodyMiddleware caps request bodies.
func maxBodyMiddleware(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// setupMiddleware applies logging, recovery, body limits and CORS in that order.
func (s *Server) setupMiddleware(extra []gin.HandlerFunc) {
	s.engine.Use(logging.GinLogrusLogger())
	s.engine.Use(logging.GinLogrusRecovery())
	for _, mw := range extra {
		s.engine.Use(mw)
	}
	s.engine.Use(maxBodyMiddleware(maxRequestBody))
	s.engine.Use(corsMiddleware())
}
