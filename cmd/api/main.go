package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"taskhub/internal/config"
	"taskhub/internal/handler"
	"taskhub/internal/httpserver"
	"taskhub/internal/repository"
	"taskhub/internal/repository/memory"
	"taskhub/internal/service/auth"
	"taskhub/internal/service/project"
	"taskhub/internal/service/task"
	"taskhub/pkg/db"
	"taskhub/pkg/logger"
	"taskhub/pkg/mq"
	"taskhub/pkg/otel"
	"taskhub/pkg/outbox"
	"taskhub/pkg/rbac"
	redisclient "taskhub/pkg/redis"
	"taskhub/pkg/util"
)

const tokenPruneInterval = time.Hour

// stores 当前存储驱动下的各个仓储
type stores struct {
	users    repository.UserStore
	tokens   repository.TokenStore
	projects repository.ProjectStore
	tasks    repository.TaskStore
}

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.NewLogger().Fatal("Failed to load config", zap.Error(err))
	}

	log, err := logger.NewLoggerFromConfig(cfg.Log)
	if err != nil {
		logger.NewLogger().Fatal("Failed to init logger", zap.Error(err))
	}
	defer log.Sync()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init OpenTelemetry
	otelShutdown, err := otel.Init(ctx, cfg.OTel, log)
	if err != nil {
		log.Fatal("Failed to init OpenTelemetry", zap.Error(err))
	}

	// Init storage
	var (
		st      stores
		dbConn  *pgxpool.Pool
		events  *outbox.Repository
		readyFn func(context.Context) error
	)
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		dbConn, err = db.NewConnection(ctx, cfg.DB, log)
		if err != nil {
			log.Fatal("DB initialization failed", zap.Error(err))
		}
		if err := db.EnsureSchema(ctx, dbConn); err != nil {
			log.Fatal("Failed to apply schema", zap.Error(err))
		}
		if cfg.MQ.URL != "" {
			events = outbox.NewRepository(dbConn)
		}
		st = stores{
			users:    repository.NewUserRepository(dbConn, events, log),
			tokens:   repository.NewTokenRepository(dbConn, log),
			projects: repository.NewProjectRepository(dbConn, events, log),
			tasks:    repository.NewTaskRepository(dbConn, events, log),
		}
		readyFn = dbConn.Ping
	default:
		log.Warn("Using in-memory storage, data is lost on restart")
		mem := memory.NewDB()
		st = stores{
			users:    mem.Users(),
			tokens:   mem.Tokens(),
			projects: mem.Projects(),
			tasks:    mem.Tasks(),
		}
	}

	// Init services
	if cfg.Auth.StrictRoles {
		log.Info("Registration restricted to known roles", zap.Strings("roles", rbac.KnownRoles()))
	}
	issuer := auth.NewIssuer(st.tokens, st.users, cfg.JWT.Secret, cfg.JWT.TTL, log)
	authService := auth.NewService(st.users, issuer, auth.Options{
		StrictRoles:      cfg.Auth.StrictRoles,
		MaxLoginAttempts: cfg.Auth.MaxLoginAttempts,
	}, log)

	// Init Redis (token cache + login throttling)
	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		rdb, err = redisclient.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal("Redis initialization failed", zap.Error(err))
		}
		issuer.WithCache(redisclient.NewTokenCache(rdb, cfg.Auth.TokenCacheTTL))
		authService.WithLimiter(util.NewAttemptCounter(rdb, cfg.Auth.LockoutWindow))
		log.Info("Redis enabled", zap.String("addr", cfg.Redis.Addr))
	}

	projectService := project.NewService(st.projects, log)
	taskService := task.NewService(st.tasks, st.projects, task.Options{
		EnforceProjectOwnership: cfg.Tasks.EnforceProjectOwnership,
	}, log)

	// Init MQ Publisher + Outbox Dispatcher
	var (
		publisher    *mq.Publisher
		adminHandler *handler.AdminHandler
	)
	if events != nil {
		publisher, err = mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			log.Fatal("Failed to init MQ publisher", zap.Error(err))
		}
		dispatcher := outbox.NewDispatcher(events, publisher, log).
			WithInterval(cfg.Outbox.Interval).
			WithBatchSize(cfg.Outbox.BatchSize).
			WithMaxRetries(cfg.Outbox.MaxRetries)
		go dispatcher.Start(ctx)

		adminHandler = handler.NewAdminHandler(outbox.NewReplayService(events), log)
		readyFn = func(ctx context.Context) error {
			if !publisher.IsConnected() {
				return errors.New("mq publisher disconnected")
			}
			return dbConn.Ping(ctx)
		}
	}

	go pruneTokens(ctx, issuer, log)

	// Router
	router := httpserver.NewRouter(httpserver.Options{
		Auth:          handler.NewAuthHandler(authService, log),
		Projects:      handler.NewProjectHandler(projectService, log),
		Tasks:         handler.NewTaskHandler(taskService, log),
		Admin:         adminHandler,
		Authenticator: authService,
		Ready:         readyFn,
		Logger:        log,
	})
	srv := httpserver.NewServer(cfg.Server.Port, router, log)

	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down taskhub gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// Close connections
	if publisher != nil {
		publisher.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	if dbConn != nil {
		dbConn.Close()
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		log.Error("OpenTelemetry shutdown error", zap.Error(err))
	}

	log.Info("taskhub shutdown complete")
}

// pruneTokens 定期删除已过期的 access token
func pruneTokens(ctx context.Context, issuer *auth.Issuer, log *zap.Logger) {
	ticker := time.NewTicker(tokenPruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := issuer.PruneExpired(ctx)
			if err != nil {
				log.Error("Failed to prune expired tokens", zap.Error(err))
				continue
			}
			if n > 0 {
				log.Info("Pruned expired tokens", zap.Int64("count", n))
			}
		}
	}
}
