package rest

import (
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/storefront/internal/common"
	"github.com/dmitrijs2005/storefront/internal/logging"
	"github.com/dmitrijs2005/storefront/internal/server/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	userContextKey   = "user"
	loggerContextKey = "logger"
)

// requestLogger tags every request with an id (taken from X-Request-ID or
// generated) and logs one line per request once it completes.
func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(common.RequestIDHeaderName)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(common.RequestIDHeaderName, requestID)

		logger := s.logger.With("request_id", requestID)
		c.Set(loggerContextKey, logger)

		c.Next()

		status := c.Writer.Status()
		log := logger.Info
		switch {
		case status >= http.StatusInternalServerError:
			log = logger.Error
		case status >= http.StatusBadRequest:
			log = logger.Warn
		}

		log(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

func loggerFrom(c *gin.Context, fallback logging.Logger) logging.Logger {
	if v, ok := c.Get(loggerContextKey); ok {
		if l, ok := v.(logging.Logger); ok {
			return l
		}
	}
	return fallback
}

// requireUser resolves the Bearer token to a user record and stores it in
// the gin context. Missing, expired and invalid tokens are reported with
// distinct messages.
func (s *HTTPServer) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.BearerToken(c.GetHeader(common.AuthorizationHeaderName))
		if err != nil {
			s.abortUnauthorized(c, err)
			return
		}

		user, err := s.users.Authorize(c.Request.Context(), token)
		if err != nil {
			s.abortUnauthorized(c, err)
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

func (s *HTTPServer) abortUnauthorized(c *gin.Context, err error) {
	var msg string
	switch {
	case errors.Is(err, common.ErrMissingToken):
		msg = "No Token"
	case errors.Is(err, common.ErrTokenExpired):
		msg = "Token Expired"
	case errors.Is(err, common.ErrInvalidToken):
		msg = "Invalid Token"
	case errors.Is(err, common.ErrorUnauthorized):
		msg = "Token validation error"
	default:
		s.internalError(c, err)
		c.Abort()
		return
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": msg})
}
