package interceptors

import (
	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/google/uuid"
	"github.com/zkkeyless/go-keyless-prover/global"
)

// SessionLogger attaches a logger tagged with a short session id and the client ip to the request context
func SessionLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := uuid.New().String()[:8]
		logger := log.With(global.Logger, "session_id", sessionID)
		if ip, err := clientIP(c); err == nil {
			logger = log.With(logger, "client_ip", ip)
		}
		c.Request = c.Request.WithContext(global.WithLogger(c.Request.Context(), logger))
		c.Header("X-Session-Id", sessionID)
		c.Next()
	}
}
