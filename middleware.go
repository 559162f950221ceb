package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/MichaelFlanagan/SystemFifty/pkg/apperr"
	"github.com/MichaelFlanagan/SystemFifty/pkg/logging"

	"github.com/gin-gonic/gin"
)

// requestLogger logs one line per request after it completes.
func requestLogger(log logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"ip", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			args = append(args, "errors", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Error(c.Request.Context(), "request", args...)
		default:
			log.Info(c.Request.Context(), "request", args...)
		}
	}
}

// respondError writes err as {"error": msg}. Storage failures and unknown
// errors are logged and reported with fallback instead of their cause.
func (s *server) respondError(c *gin.Context, err error, fallback string) {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.KindStorage {
		s.log.Error(c.Request.Context(), fallback, "error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
		return
	}
	c.JSON(ae.Kind.Status(), gin.H{"error": ae.Msg})
}
