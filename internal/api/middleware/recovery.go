package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/bcc-marketplace/pkg/logger"
	"github.com/d60-Lab/bcc-marketplace/pkg/response"
)

// Recovery 捕获 panic 并上报 sentry；5xx 响应里挂的错误也一并上报
// 未配置 sentry DSN 时上报是空操作
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		hub := sentry.CurrentHub().Clone()
		hub.Scope().SetRequest(c.Request)

		defer func() {
			if recovered := recover(); recovered != nil {
				hub.RecoverWithContext(c.Request.Context(), recovered)
				hub.Flush(2 * time.Second)
				logger.Error("panic recovered",
					zap.Any("error", recovered),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				response.Error(c, http.StatusInternalServerError, "internal server error")
			}
		}()

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			for _, e := range c.Errors {
				hub.CaptureException(fmt.Errorf("%s %s: %w", c.Request.Method, c.FullPath(), e.Err))
			}
		}
	}
}
