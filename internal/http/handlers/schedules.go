package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"busticket/internal/http/middleware"
	"busticket/internal/services"

	"github.com/gin-gonic/gin"
)

// GET /api/schedules?from=&to=&date=
func (h *Handler) SearchSchedules(c *gin.Context) {
	items, err := h.schedules(c).Search(c.Request.Context(),
		strings.TrimSpace(c.Query("from")),
		strings.TrimSpace(c.Query("to")),
		strings.TrimSpace(c.Query("date")),
	)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedules": items, "count": len(items)})
}

// GET /api/schedules/:id
func (h *Handler) GetSchedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	s, err := h.schedules(c).Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, s)
}

// GET /api/schedules/:id/seats
func (h *Handler) ScheduleSeats(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	seats, err := h.schedules(c).BookedSeats(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scheduleId": id, "bookedSeats": seats})
}

// GET /api/schedules/:id/quote?seats=&coupon=
func (h *Handler) QuoteSchedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	seats, err := strconv.Atoi(c.DefaultQuery("seats", "1"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "seats must be a number", nil)
		return
	}
	q, err := h.pricing().Quote(c.Request.Context(), id, seats, strings.TrimSpace(c.Query("coupon")))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// POST /api/schedules
func (h *Handler) PublishSchedule(c *gin.Context) {
	var req services.PublishSchedule
	if !BindJSONOrError(c, &req) {
		return
	}
	s, err := h.schedules(c).Publish(c.Request.Context(), middleware.GetRequestContext(c), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, s)
}

// DELETE /api/schedules/:id
func (h *Handler) DeactivateSchedule(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.schedules(c).Deactivate(c.Request.Context(), middleware.GetRequestContext(c), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "isActive": false})
}
