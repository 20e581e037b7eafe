package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	statService "scholarhub.app/scholarhub/internal/modules/stat/service"
	"scholarhub.app/scholarhub/pkg/response"
)

type StatHandler struct {
	service statService.StatService
}

func NewStatHandler(service statService.StatService) *StatHandler {
	return &StatHandler{service: service}
}

func (h *StatHandler) Dashboard(c *gin.Context) {
	stats, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}
