package httpserver

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskhub/internal/handler"
	"taskhub/internal/model"
	"taskhub/pkg/logger"
	"taskhub/pkg/metrics"
	"taskhub/pkg/rbac"
	"taskhub/pkg/trace"
	"taskhub/pkg/util"
)

// Authenticator resolves a bearer token to its user and token id.
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (*model.User, string, error)
}

// Trace 中间件：沿用上游的 X-Trace-ID / X-Request-ID，没有则生成，并回写到响应头
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := trace.FromHeader(c.GetHeader(trace.HeaderName()), c.GetHeader("X-Request-ID"))
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)
		c.Next()
	}
}

// RequestLogger 记录访问日志与请求耗时指标
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(status), duration)

		logger.WithTrace(c.Request.Context(), log).Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("took", duration),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}

// Recovery 把 panic 转换为统一的 500 响应
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.WithTrace(c.Request.Context(), log).Error("panic recovered",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		handler.Abort(c, http.StatusInternalServerError, "Server Error")
	})
}

// Auth 中间件：解析 Bearer token 并把当前用户放入 context
func Auth(authenticator Authenticator, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, tokenID, err := authenticator.Authenticate(c.Request.Context(), util.ExtractToken(c.Request))
		if err != nil {
			handler.WriteError(c, log, err, "Authentication failed.")
			return
		}

		handler.SetPrincipal(c, user, tokenID)
		c.Next()
	}
}

// RequirePermission 中间件：要求当前用户的角色具有指定权限
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := handler.Principal(c)
		if user == nil {
			handler.Abort(c, http.StatusUnauthorized, "Unauthenticated.")
			return
		}

		if err := rbac.CheckPermission(user.ID, user.Role, permission); err != nil {
			handler.Abort(c, http.StatusForbidden, "This action is unauthorized.")
			return
		}

		c.Next()
	}
}
