// Package logger provides the process-wide zap logger.
package logger

import (
	"strings"

	"github.com/HDZ65/crm-final-sub010/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a zap logger tuned to the configured environment.
func New(cfg config.Config) (*zap.Logger, error) {
	if strings.EqualFold(cfg.Environment, "development") {
		dev := zap.NewDevelopmentConfig()
		dev.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return dev.Build()
	}
	prod := zap.NewProductionConfig()
	prod.EncoderConfig.TimeKey = "ts"
	prod.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return prod.Build()
}

// Module provides the logger and redirects the stdlib log output through it.
var Module = fx.Module("logger",
	fx.Provide(New),
	fx.Invoke(func(log *zap.Logger) {
		zap.ReplaceGlobals(log)
		zap.RedirectStdLog(log)
	}),
)
