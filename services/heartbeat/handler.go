package heartbeat

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// maxBodyBytes leaves room for a 1000 character device identifier and
// challenge plus JSON overhead.
const maxBodyBytes = 16 << 10

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Heartbeat serves POST /v1/license/:teamId/heartbeat.
func (h *Handler) Heartbeat(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		body = nil
	}

	resp := h.service.Heartbeat(c.Request.Context(), Input{
		TeamID:   c.Param("teamId"),
		ClientIP: c.ClientIP(),
		Body:     body,
	})
	c.JSON(HTTPStatus(resp.Result.Code), resp)
}
