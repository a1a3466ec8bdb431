package handlers

import (
	"net/http"

	"busticket/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

type verifyTicketRequest struct {
	Code string `json:"code" binding:"required"`
}

// POST /api/tickets/:bookingId/qr
func (h *Handler) IssueTicketQR(c *gin.Context) {
	id, ok := pathID(c, "bookingId")
	if !ok {
		return
	}
	code, err := h.tickets(c).IssueForBooking(c.Request.Context(), middleware.GetRequestContext(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookingId": id, "qrCodeData": code})
}

// POST /api/tickets/verify
func (h *Handler) VerifyTicket(c *gin.Context) {
	var req verifyTicketRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.tickets(c).Verify(req.Code))
}

// GET /api/tickets/lookup?ref=
func (h *Handler) LookupTicket(c *gin.Context) {
	d, err := h.tickets(c).Lookup(c.Request.Context(), c.Query("ref"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GET /api/tickets/:bookingId/pdf returns the e-ticket inline.
func (h *Handler) TicketPDF(c *gin.Context) {
	id, ok := pathID(c, "bookingId")
	if !ok {
		return
	}
	pdfBytes, filename, err := h.docs(c).GenerateETicket(c.Request.Context(), middleware.GetRequestContext(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
