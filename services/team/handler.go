package team

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// JWKS serves GET /v1/teams/:teamId/jwks.
func (h *Handler) JWKS(c *gin.Context) {
	set, err := h.service.JWKS(c.Request.Context(), c.Param("teamId"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Cache-Control", "public, max-age=300")
	c.JSON(http.StatusOK, set)
}
