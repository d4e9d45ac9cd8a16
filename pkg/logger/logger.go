package logger

import (
	"heartbeat-controlplane/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultServiceName = "heartbeat"

var Module = fx.Module("zap",
	fx.Provide(
		New,
	),
)

type ConfigParams struct {
	fx.In
	Cfg *config.Config
}

// New builds the process logger and installs it as zap's global. Every line
// carries the replica's snowflake node so request log ids can be traced back
// to the instance that minted them.
func New(p ConfigParams) *zap.Logger {
	log := zap.Must(zap.NewDevelopment())
	if p.Cfg != nil && p.Cfg.AppEnv == "production" {
		log = zap.Must(productionConfig().Build())
	}

	log = log.With(baseFields(p.Cfg)...)
	zap.ReplaceGlobals(log)

	return log
}

func productionConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.StacktraceKey = "stacktrace"
	cfg.EncoderConfig.LevelKey = "severity"
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.CallerKey = "caller"
	cfg.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	cfg.Encoding = "json"
	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg
}

func baseFields(cfg *config.Config) []zap.Field {
	if cfg == nil {
		return []zap.Field{zap.String("service_name", defaultServiceName)}
	}

	name := cfg.AppName
	if name == "" {
		name = defaultServiceName
	}
	return []zap.Field{
		zap.String("env", cfg.AppEnv),
		zap.String("service_name", name),
		zap.String("service_version", cfg.AppVersion),
		zap.Int64("snowflake_node", cfg.SnowflakeNode),
		zap.String("rate_limiter", cfg.RateLimiter.Backend),
	}
}
