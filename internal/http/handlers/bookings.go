package handlers

import (
	"net/http"

	"busticket/internal/domain/models"
	"busticket/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type createBookingRequest struct {
	ScheduleID     int64           `json:"scheduleId"`
	SeatNumbers    []int           `json:"seatNumbers"`
	PassengerName  string          `json:"passengerName"`
	PassengerEmail string          `json:"passengerEmail"`
	PassengerPhone string          `json:"passengerPhone"`
	TotalFare      decimal.Decimal `json:"totalFare"`
	CouponCode     string          `json:"couponCode"`
}

// POST /api/bookings
func (h *Handler) CreateBooking(c *gin.Context) {
	var req createBookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	rc := middleware.GetRequestContext(c)
	d, err := h.bookings(c).Create(c.Request.Context(), models.NewBooking{
		ScheduleID:     req.ScheduleID,
		UserID:         rc.UserID,
		SeatNumbers:    req.SeatNumbers,
		PassengerName:  req.PassengerName,
		PassengerEmail: req.PassengerEmail,
		PassengerPhone: req.PassengerPhone,
		Fare:           req.TotalFare,
		CouponCode:     req.CouponCode,
	})
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// GET /api/bookings/:id
func (h *Handler) GetBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.bookings(c).Get(c.Request.Context(), middleware.GetRequestContext(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// GET /api/bookings/:id/can-cancel
func (h *Handler) CanCancelBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	allowed, err := h.bookings(c).CanCancel(c.Request.Context(), middleware.GetRequestContext(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"canCancel": allowed})
}

// POST /api/bookings/:id/cancel
func (h *Handler) CancelBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.bookings(c).Cancel(c.Request.Context(), middleware.GetRequestContext(c), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// POST /api/bookings/:id/complete
func (h *Handler) CompleteBooking(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	d, err := h.bookings(c).Complete(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
