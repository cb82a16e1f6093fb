package httpapi

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
)

func loggingMiddleware(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now().UTC()
		c.Next()
		logger.Printf("%s %s from=%s status=%d dur=%s",
			c.Request.Method, c.Request.URL.Path, c.ClientIP(), c.Writer.Status(), time.Since(start))
	}
}
