package ratelimit

import (
	"context"
	"time"

	"heartbeat-controlplane/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Limiter reports whether key has exceeded limit requests within window.
type Limiter interface {
	IsLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

var Module = fx.Module("ratelimit", fx.Provide(New))

type Params struct {
	fx.In
	Config *config.Config
	Redis  *redis.Client `optional:"true"`
}

func New(p Params) Limiter {
	if p.Config.RateLimiter.Backend == "memory" || p.Redis == nil {
		zap.L().Info("[RateLimit] using in-memory limiter")
		return NewMemoryLimiter()
	}
	zap.L().Info("[RateLimit] using redis sliding window limiter")
	return NewRedisLimiter(p.Redis)
}
