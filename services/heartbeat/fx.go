package heartbeat

import (
	"heartbeat-controlplane/pkg/config"
	"heartbeat-controlplane/pkg/security"
	"heartbeat-controlplane/services/team"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("heartbeat.module",
	fx.Provide(
		OptionsFromConfig,
		provideKeyLookup,
		provideSigner,
		provideTeamLoader,
		NewService,
	),
)

var Routes = fx.Module("heartbeat.routes",
	fx.Provide(NewHandler),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, h *Handler) {
	r.POST("/v1/license/:teamId/heartbeat", h.Heartbeat)
}

func provideTeamLoader(s *team.Service) TeamLoader { return s }

func provideKeyLookup(cfg *config.Config) (*security.KeyLookup, error) {
	return security.NewKeyLookup(cfg.License.HMACSecret)
}

func provideSigner(cfg *config.Config) *security.Signer {
	return security.NewSigner(cfg.SecretAES)
}
