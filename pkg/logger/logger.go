package logger

import (
	"context"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"taskhub/pkg/config"
	"taskhub/pkg/trace"
)

var Log *zap.Logger

func NewLogger() *zap.Logger {
	l, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	Log = l
	return l
}

// NewLoggerFromConfig 按配置创建 logger：JSON 编码，可选写入按大小滚动的日志文件
func NewLoggerFromConfig(cfg config.LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevel()
	if cfg.Level != "" {
		if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, err
		}
	}

	var sink zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if cfg.File != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		})
	}

	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
		sink,
		level,
	)
	l := zap.New(core, zap.AddCaller())
	Log = l
	return l, nil
}

// WithTrace 从 context 中提取 trace_id 并添加到 logger
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	traceID := trace.FromContext(ctx)
	if traceID != "" {
		return logger.With(zap.String(trace.TraceIDKey, traceID))
	}
	return logger
}
