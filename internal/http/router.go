package api

import (
	"log/slog"
	stdhttp "net/http"

	intconfig "busticket/internal/config"
	"busticket/internal/domain"
	h "busticket/internal/http/handlers"
	"busticket/internal/http/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(env intconfig.Env, hd *h.Handler, tokens *middleware.TokenVerifier) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		slog.Warn("failed to set trusted proxies", "error", err)
	}

	r.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(stdhttp.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authed := middleware.Auth(tokens)
	operator := middleware.RequireRole(domain.RoleOperator)
	admin := middleware.RequireRole(domain.RoleAdmin)

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", hd.DBCheck)
		api.GET("/routes", h.Routes)

		auth := api.Group("/auth")
		auth.POST("/register", hd.Register)
		auth.POST("/login", hd.Login)

		schedules := api.Group("/schedules")
		schedules.GET("", hd.SearchSchedules)
		schedules.GET("/:id", hd.GetSchedule)
		schedules.GET("/:id/seats", hd.ScheduleSeats)
		schedules.GET("/:id/quote", hd.QuoteSchedule)
		schedules.POST("", authed, operator, hd.PublishSchedule)
		schedules.DELETE("/:id", authed, operator, hd.DeactivateSchedule)

		api.POST("/buses", authed, operator, hd.RegisterBus)
		api.PATCH("/admin/buses/:id/approval", authed, admin, hd.ReviewBus)

		bookings := api.Group("/bookings", authed)
		bookings.POST("", hd.CreateBooking)
		bookings.GET("/:id", hd.GetBooking)
		bookings.GET("/:id/can-cancel", hd.CanCancelBooking)
		bookings.POST("/:id/cancel", hd.CancelBooking)
		bookings.POST("/:id/complete", admin, hd.CompleteBooking)

		payments := api.Group("/payments")
		// webhook authenticates by signature, not by bearer token
		payments.POST("/webhook", hd.PaymentWebhook)
		payments.POST("/orders", authed, hd.CreatePaymentOrder)
		payments.POST("/verify", authed, hd.VerifyPayment)

		tickets := api.Group("/tickets")
		tickets.POST("/verify", authed, operator, hd.VerifyTicket)
		tickets.GET("/lookup", authed, operator, hd.LookupTicket)
		tickets.POST("/:bookingId/qr", authed, hd.IssueTicketQR)
		tickets.GET("/:bookingId/pdf", authed, hd.TicketPDF)

		reports := api.Group("/reports", authed, operator)
		reports.GET("/earnings", hd.GetEarningsReport)

		internal := api.Group("/internal", middleware.CronOrAdmin(tokens, env.SweepToken))
		internal.POST("/bookings/release-expired", hd.ReleaseExpired)
		internal.POST("/bookings/complete-departed", hd.CompleteDeparted)
	}

	h.SetRouter(r)
	return r
}
