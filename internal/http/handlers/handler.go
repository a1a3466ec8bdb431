package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"busticket/internal/config"
	intdb "busticket/internal/db"
	"busticket/internal/http/middleware"
	"busticket/internal/ledger"
	"busticket/internal/repositories"
	"busticket/internal/services"

	"github.com/gin-gonic/gin"
)

// Handler holds the process-wide dependencies. Services are built per request
// with that request's ID.
type Handler struct {
	Env    config.Env
	DB     *sql.DB
	Ledger *ledger.RedisLedger
	Orders services.OrderCreator
	Now    func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// q returns the pool as a repository handle; nil falls back to config.DB.
func (h *Handler) q() intdb.DBTX {
	if h.DB == nil {
		return nil
	}
	return h.DB
}

func (h *Handler) schedules(c *gin.Context) services.ScheduleService {
	return services.ScheduleService{
		Schedules: repositories.ScheduleRepository{DB: h.q()},
		Seats:     repositories.BookingSeatRepository{DB: h.q()},
		Location:  h.Env.Location,
		Now:       h.now,
		RequestID: middleware.GetRequestID(c),
	}
}

func (h *Handler) buses(c *gin.Context) services.BusService {
	return services.BusService{
		DB:        h.DB,
		Now:       h.now,
		RequestID: middleware.GetRequestID(c),
	}
}

func (h *Handler) pricing() services.PricingService {
	return services.PricingService{
		Schedules: repositories.ScheduleRepository{DB: h.q()},
		Coupons:   repositories.CouponRepository{DB: h.q()},
		Now:       h.now,
	}
}

func (h *Handler) bookings(c *gin.Context) services.BookingService {
	return services.BookingService{
		DB:           h.DB,
		Location:     h.Env.Location,
		CancelCutoff: h.Env.CancelCutoff,
		Now:          h.now,
		RequestID:    middleware.GetRequestID(c),
	}
}

func (h *Handler) tickets(c *gin.Context) services.TicketService {
	return services.TicketService{
		Bookings:  repositories.BookingRepository{DB: h.q()},
		Secret:    h.Env.QRSecret,
		MaxAge:    h.Env.QRMaxAge,
		Location:  h.Env.Location,
		Now:       h.now,
		RequestID: middleware.GetRequestID(c),
	}
}

func (h *Handler) payments(c *gin.Context) services.PaymentService {
	return services.PaymentService{
		DB:             h.DB,
		Tickets:        h.tickets(c),
		Gateway:        h.Orders,
		Ledger:         h.Ledger,
		KeyID:          h.Env.Razorpay.KeyID,
		KeySecret:      h.Env.Razorpay.KeySecret,
		WebhookSecret:  h.Env.Razorpay.WebhookSecret,
		Currency:       h.Env.Currency,
		CommissionRate: h.Env.CommissionRate,
		Now:            h.now,
		RequestID:      middleware.GetRequestID(c),
	}
}

func (h *Handler) sweeper(c *gin.Context) services.SweepService {
	return services.SweepService{
		DB:          h.DB,
		HoldTimeout: h.Env.BookingHoldTimeout,
		Now:         h.now,
		RequestID:   middleware.GetRequestID(c),
	}
}

func (h *Handler) auth(c *gin.Context) services.AuthService {
	return services.AuthService{
		Users:     repositories.UserRepository{DB: h.q()},
		JWTSecret: h.Env.JWTSecret,
		Now:       h.now,
		RequestID: middleware.GetRequestID(c),
	}
}

func (h *Handler) docs(c *gin.Context) services.DocsService {
	return services.DocsService{
		Bookings:  repositories.BookingRepository{DB: h.q()},
		Currency:  h.Env.Currency,
		RequestID: middleware.GetRequestID(c),
	}
}

// pathID parses a positive integer path parameter, writing a 400 when it is not one.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}
