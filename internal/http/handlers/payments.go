package handlers

import (
	"errors"
	"io"
	"net/http"

	"busticket/internal/http/middleware"
	"busticket/internal/services"

	"github.com/gin-gonic/gin"
)

const (
	maxWebhookBody        = 1 << 20
	razorpaySignature     = "X-Razorpay-Signature"
	razorpayEventIDHeader = "X-Razorpay-Event-Id"
)

type createOrderRequest struct {
	BookingID int64 `json:"bookingId" binding:"required,gt=0"`
}

// POST /api/payments/orders
func (h *Handler) CreatePaymentOrder(c *gin.Context) {
	var req createOrderRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	order, err := h.payments(c).CreateOrder(c.Request.Context(), middleware.GetRequestContext(c), req.BookingID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// POST /api/payments/verify
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req services.CheckoutVerification
	if !BindJSONOrError(c, &req) {
		return
	}
	res, err := h.payments(c).VerifyCheckout(c.Request.Context(), middleware.GetRequestContext(c), req)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/payments/webhook
func (h *Handler) PaymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			RespondError(c, http.StatusRequestEntityTooLarge, "webhook body too large", nil)
			return
		}
		RespondError(c, http.StatusBadRequest, "unable to read body", err)
		return
	}
	res, err := h.payments(c).HandleWebhook(c.Request.Context(), body,
		c.GetHeader(razorpaySignature), c.GetHeader(razorpayEventIDHeader))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
