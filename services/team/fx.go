package team

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
)

var Module = fx.Module("team.module",
	fx.Provide(
		NewRepository,
		NewService,
	),
)

var Routes = fx.Module("team.routes",
	fx.Provide(NewHandler),
	fx.Invoke(registerRoutes),
)

func registerRoutes(r *gin.Engine, h *Handler) {
	r.GET("/v1/teams/:teamId/jwks", h.JWKS)
}
