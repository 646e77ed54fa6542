package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
)

// CORSMiddleware allows any origin.
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func LoggerMiddleware(logger hclog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"took", time.Since(start),
		)
	}
}

// UploadLimitMiddleware caps request bodies at limit bytes plus room for
// multipart framing.
func UploadLimitMiddleware(limit int64) gin.HandlerFunc {
	const overhead = 1 << 20
	return func(c *gin.Context) {
		if limit > 0 {
			if c.Request.ContentLength > limit+overhead {
				c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "uploaded file is too large"})
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+overhead)
		}
		c.Next()
	}
}
