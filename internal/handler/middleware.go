package handler

import (
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"playportal/pkg/response"
)

const (
	ctxUserID  = "userID"
	ctxAdminID = "adminID"
)

func RequestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logrus.WithFields(logrus.Fields{
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
			"method":  c.Request.Method,
			"path":    path,
		}).Info("http request")
	}
}

func RecoveryMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logrus.WithField("panic", err).Error("request handler panicked")
				c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
					Code:    response.CodeServerError,
					Message: "internal server error",
				})
			}
		}()
		c.Next()
	}
}

func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, X-User-ID, X-Admin-ID, X-CSRF-Token")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AuthRequired trusts the fronting session layer: it resolves the user and
// installs X-User-ID before requests reach this service.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := strconv.ParseInt(c.GetHeader("X-User-ID"), 10, 64)
		if err != nil || userID <= 0 {
			response.Unauthorized(c, "authentication required")
			c.Abort()
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// AdminRequired works the same way for back-office calls.
func AdminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, err := strconv.ParseInt(c.GetHeader("X-Admin-ID"), 10, 64)
		if err != nil || adminID <= 0 {
			response.Unauthorized(c, "admin authentication required")
			c.Abort()
			return
		}
		c.Set(ctxAdminID, adminID)
		c.Next()
	}
}

// CSRFVerify checks the double-submit pair issued by the session layer.
// This service only verifies; it never issues tokens.
func CSRFVerify() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("X-CSRF-Token")
		cookie, err := c.Cookie("csrf_token")
		if err != nil || header == "" ||
			subtle.ConstantTimeCompare([]byte(header), []byte(cookie)) != 1 {
			response.Forbidden(c, "invalid CSRF token")
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

func currentAdminID(c *gin.Context) int64 {
	return c.GetInt64(ctxAdminID)
}
