package logger

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configura el logger.
type Config struct {
	// Env: "dev" (consola) o "prod" (JSON). Default "dev".
	Env string

	// Level: "debug", "info", "warn", "error". Default "info".
	Level string

	// ServiceName se agrega como campo "service" si no está vacío.
	ServiceName string

	// Version se agrega como campo "version" si no está vacío.
	Version string
}

func build(cfg Config) *zap.Logger {
	var zcfg zap.Config
	opts := []zap.Option{zap.AddCaller()}

	if strings.EqualFold(strings.TrimSpace(cfg.Env), "prod") {
		zcfg = zap.NewProductionConfig()
		zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		opts = append(opts, zap.AddStacktrace(zapcore.ErrorLevel))
	} else {
		zcfg = zap.NewDevelopmentConfig()
		zcfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zcfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
		zcfg.DisableStacktrace = true
	}
	zcfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))
	zcfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	l, err := zcfg.Build(opts...)
	if err != nil {
		// fallback: nunca dejamos el proceso sin logger
		l, _ = zap.NewProduction()
	}

	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}
	if cfg.Version != "" {
		l = l.With(zap.String("version", cfg.Version))
	}
	return l
}

func parseLevel(lvl string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(lvl)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
