package httpapi

import (
	"heartbeat-controlplane/pkg/config"
	"heartbeat-controlplane/pkg/health"
	"heartbeat-controlplane/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("httpapi",
	fx.Provide(NewRouter),
	fx.Invoke(registerOperationalEndpoints),
)

func NewRouter(cfg *config.Config) (*gin.Engine, error) {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		zap.L().Error("invalid trusted proxies", zap.Strings("trusted_proxies", cfg.Server.TrustedProxies), zap.Error(err))
		return nil, err
	}

	r.Use(
		middleware.Recovery(),
		middleware.Trace(),
		middleware.Error(),
	)

	return r, nil
}

func registerOperationalEndpoints(r *gin.Engine, h health.HealthService) {
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
