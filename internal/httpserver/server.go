package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Server 包装 http.Server，支持优雅关闭
type Server struct {
	srv    *http.Server
	logger *zap.Logger
}

func NewServer(addr string, router *Router, logger *zap.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           router.Engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start 阻塞直到服务器关闭；正常关闭时返回 nil
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.srv.Addr))
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 停止接收新请求并等待进行中的请求完成
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
