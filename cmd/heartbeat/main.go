package main

import (
	"log"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"heartbeat-controlplane/pkg/config"
	"heartbeat-controlplane/pkg/db"
	"heartbeat-controlplane/pkg/gen"
	"heartbeat-controlplane/pkg/geoip"
	"heartbeat-controlplane/pkg/hashistack/secretmanager"
	"heartbeat-controlplane/pkg/health"
	"heartbeat-controlplane/pkg/httpapi"
	"heartbeat-controlplane/pkg/logger"
	"heartbeat-controlplane/pkg/otelcol"
	"heartbeat-controlplane/pkg/profiling"
	"heartbeat-controlplane/pkg/ratelimit"
	"heartbeat-controlplane/pkg/redis"
	"heartbeat-controlplane/pkg/server"
	"heartbeat-controlplane/pkg/task"
	"heartbeat-controlplane/services/heartbeat"
	"heartbeat-controlplane/services/license"
	"heartbeat-controlplane/services/requestlog"
	"heartbeat-controlplane/services/team"
)

func main() {
	opts := []fx.Option{
		secretmanager.Module,
		config.Module,
		logger.Module,
		otelcol.Module,
		profiling.Module,
		db.Module,
		redis.Module,
		gen.Module,
		task.Client,
		task.Server,
		ratelimit.Module,
		geoip.Module,
		health.Module,
		httpapi.Module,
		fx.Invoke(autoMigrate),

		team.Module,
		license.Module,
		requestlog.Module,
		requestlog.Worker,
		heartbeat.Module,

		team.Routes,
		heartbeat.Routes,
		server.ProvideHTTPServer,
		fxLogger,
	}

	if err := fx.ValidateApp(opts...); err != nil {
		log.Fatalf("fx validation failed: %v", err)
	}

	app := fx.New(opts...)

	app.Run()
}

var fxLogger = fx.WithLogger(func(cfg *config.Config, logger *zap.Logger) fxevent.Logger {
	return fxevent.NopLogger
})

func autoMigrate(cfg *config.Config, conn *gorm.DB) error {
	if !cfg.Database.AutoMigrate {
		return nil
	}

	models := append(team.Models(), license.Models()...)
	if err := conn.AutoMigrate(models...); err != nil {
		zap.L().Error("auto migrate failed", zap.Error(err))
		return err
	}
	zap.L().Info("auto migrate finished", zap.Int("models", len(models)))
	return nil
}
