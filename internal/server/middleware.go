package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	errx "github.com/Chative-core-poc-v1/router/internal/core/error"
	logx "github.com/Chative-core-poc-v1/router/pkg/logger"
)

const ctxRequestID = "request_id"

// requestID propagates X-Request-Id or mints a new one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(headerRequestID)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(headerRequestID, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		evt := logx.Info()
		if status >= http.StatusInternalServerError {
			evt = logx.Error()
		}
		evt.
			Str("component", "http").
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", status).
			Int64("latency_ms", time.Since(start).Milliseconds()).
			Str("request_id", c.GetString(ctxRequestID)).
			Msg("request served")
	}
}

// recovery turns a panic into a generic 500 without internal detail.
func recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logx.Error().
					Str("component", "http").
					Str("request_id", c.GetString(ctxRequestID)).
					Msgf("panic recovered: %v", r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errx.SystemErrorMessage})
			}
		}()
		c.Next()
	}
}
