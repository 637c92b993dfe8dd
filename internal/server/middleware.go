package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/julianstephens/habitloop/internal/errors"
	"github.com/julianstephens/habitloop/internal/logger"
)

const userKey = "habitloop.user"

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		keyvals := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		}
		if user := c.GetString(userKey); user != "" {
			keyvals = append(keyvals, "user", user)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("Request failed", keyvals...)
			return
		}
		logger.Info("Request", keyvals...)
	}
}

func recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, rec interface{}) {
		logger.Error("Panic while handling request", "path", c.Request.URL.Path, "panic", rec)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody{Error: "internal error", Code: string(apperrors.KindInternal)})
	})
}

// requireUser resolves the bearer token to a user id and stores it on the
// context.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			abortWithError(c, apperrors.E(apperrors.KindUnauthenticated, "server.requireUser", "", nil))
			return
		}

		userID, err := s.verifier.Verify(strings.TrimSpace(token))
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(userKey, userID)
		c.Next()
	}
}

func currentUser(c *gin.Context) string {
	return c.GetString(userKey)
}
