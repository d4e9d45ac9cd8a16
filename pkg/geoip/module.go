package geoip

import (
	"context"
	"time"

	"heartbeat-controlplane/pkg/config"

	"github.com/rs/dnscache"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("geoip",
	fx.Provide(NewResolver, New),
)

const resolverRefresh = 5 * time.Minute

// NewResolver returns a caching DNS resolver refreshed for the app lifetime.
func NewResolver(lc fx.Lifecycle) *dnscache.Resolver {
	resolver := &dnscache.Resolver{}
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				ticker := time.NewTicker(resolverRefresh)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						resolver.Refresh(true)
					case <-done:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			close(done)
			return nil
		},
	})

	return resolver
}

func New(cfg *config.Config, resolver *dnscache.Resolver) Provider {
	switch cfg.GeoIP.Provider {
	case "none", "":
		zap.L().Info("[GeoIP] provider disabled, country blacklists are skipped")
		return Noop()
	default:
		zap.L().Info("[GeoIP] using proxycheck",
			zap.String("addr", cfg.GeoIP.Addr),
			zap.Duration("timeout", cfg.GeoIP.Timeout),
			zap.Float64("rate_limit", cfg.GeoIP.RateLimit),
		)
		burst := int(cfg.GeoIP.RateLimit)
		return NewProxyCheck(cfg.GeoIP.Addr, cfg.GeoIP.APIKey, cfg.GeoIP.Timeout, resolver,
			WithRequestBudget(cfg.GeoIP.RateLimit, burst))
	}
}
