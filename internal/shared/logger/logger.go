package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New cria o logger estruturado do serviço. env "local" usa a config de
// desenvolvimento; level (ex: "debug") sobrescreve o nível padrão quando válido.
func New(serviceName, env, level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
	}

	if level != "" {
		if lvl, err := zapcore.ParseLevel(level); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}

	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	// sempre garantir que serviço e env entrem como campos padrão
	return cfg.Build(
		zap.Fields(
			zap.String("service", serviceName),
			zap.String("env", env),
		),
	)
}
