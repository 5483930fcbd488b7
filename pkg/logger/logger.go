package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"attendance-engine/backend/config"
)

// NewLogger 根据配置初始化 Zap 日志实例
// json 格式用于生产，console 格式用于本地调试
func NewLogger(cfg *config.LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config

	switch cfg.Format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapCfg.EncoderConfig.TimeKey = "time"
		// 整月重算会批量输出告警，保留全部日志
		zapCfg.Sampling = nil
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	if cfg.Output != "" {
		zapCfg.OutputPaths = []string{cfg.Output}
	}
	zapCfg.InitialFields = map[string]interface{}{"service": "attendance-engine"}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("初始化日志器失败: %w", err)
	}

	return logger.Named("attendance"), nil
}
