package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// POST /api/internal/bookings/release-expired
func (h *Handler) ReleaseExpired(c *gin.Context) {
	n, err := h.sweeper(c).ReleaseExpired(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"releasedCount": n,
		"message":       fmt.Sprintf("released %d expired bookings", n),
	})
}

// POST /api/internal/bookings/complete-departed
func (h *Handler) CompleteDeparted(c *gin.Context) {
	n, err := h.bookings(c).CompleteDeparted(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"completedCount": n,
		"message":        fmt.Sprintf("completed %d departed bookings", n),
	})
}
