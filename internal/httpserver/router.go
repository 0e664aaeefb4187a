package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskhub/internal/handler"
	"taskhub/pkg/otel"
	"taskhub/pkg/rbac"
)

// Options 组装路由所需的依赖；Admin 为 nil 时不注册 outbox 管理接口
type Options struct {
	Auth     *handler.AuthHandler
	Projects *handler.ProjectHandler
	Tasks    *handler.TaskHandler
	Admin    *handler.AdminHandler

	Authenticator Authenticator
	// Ready 用于 /readyz 检查存储是否可用，nil 表示始终就绪
	Ready  func(ctx context.Context) error
	Logger *zap.Logger
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(opts Options) *Router {
	r := gin.New()
	r.Use(Recovery(opts.Logger), Trace(), otel.GinMiddleware(), RequestLogger(opts.Logger))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/readyz", func(c *gin.Context) {
		if opts.Ready != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
			defer cancel()

			if err := opts.Ready(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		handler.Abort(c, http.StatusNotFound, "Not Found")
	})

	// Public
	r.POST("/register", opts.Auth.Register)
	r.POST("/login", opts.Auth.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(Auth(opts.Authenticator, opts.Logger))
	{
		auth.POST("/logout", opts.Auth.Logout)
		auth.GET("/user", opts.Auth.Profile)

		auth.GET("/projects", opts.Projects.Index)
		auth.POST("/projects", opts.Projects.Store)
		auth.GET("/projects/:id", opts.Projects.Show)
		auth.PUT("/projects/:id", opts.Projects.Update)
		auth.PATCH("/projects/:id", opts.Projects.Update)
		auth.DELETE("/projects/:id", opts.Projects.Destroy)

		auth.GET("/tasks", opts.Tasks.Index)
		auth.POST("/tasks", opts.Tasks.Store)
		auth.GET("/tasks/:id", opts.Tasks.Show)
		auth.PUT("/tasks/:id", opts.Tasks.Update)
		auth.PATCH("/tasks/:id", opts.Tasks.Update)
		auth.DELETE("/tasks/:id", opts.Tasks.Destroy)
	}

	if opts.Admin != nil {
		admin := auth.Group("/admin/outbox")
		admin.GET("/failed", RequirePermission(rbac.PermissionReadOutbox), opts.Admin.ListFailedEvents)
		admin.POST("/replay", RequirePermission(rbac.PermissionReplayOutbox), opts.Admin.ReplayOutboxEvent)
		admin.POST("/replay-failed", RequirePermission(rbac.PermissionReplayOutbox), opts.Admin.ReplayFailedEvents)
	}

	return &Router{Engine: r}
}
