package handlers

import (
	"net/http"

	"busticket/internal/http/middleware"
	"busticket/internal/services"

	"github.com/gin-gonic/gin"
)

// POST /api/buses
func (h *Handler) RegisterBus(c *gin.Context) {
	var req services.RegisterBus
	if !BindJSONOrError(c, &req) {
		return
	}
	out, err := h.buses(c).Register(c.Request.Context(), middleware.GetRequestContext(c), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

// PATCH /api/admin/buses/:id/approval
func (h *Handler) ReviewBus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req services.ReviewBus
	if !BindJSONOrError(c, &req) {
		return
	}
	bus, err := h.buses(c).Review(c.Request.Context(), middleware.GetRequestContext(c), id, req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, bus)
}
