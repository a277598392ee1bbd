package logger

import (
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/config"
	"github.com/Layang-Digital-Innovation/tradeinvestcenter-sub000/internal/types"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.SugaredLogger to provide logging functionality
type Logger struct {
	*zap.SugaredLogger
}

// NewLogger creates and returns a new Logger instance
func NewLogger(cfg *config.Configuration) (*Logger, error) {
	zapCfg := zap.NewProductionConfig()
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if cfg != nil && cfg.Logging.Level == types.LogLevelDebug {
		zapCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		zapCfg.Development = true
	}

	zapLogger, err := zapCfg.Build()
	if err != nil {
		return nil, err
	}

	return &Logger{
		SugaredLogger: zapLogger.Sugar(),
	}, nil
}

// With returns a child logger with the given structured context attached.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(args...)}
}
