package models

import (
	"time"

	"busticket/internal/domain"

	"github.com/shopspring/decimal"
)

// Booking is one passenger group's reservation against a schedule.
type Booking struct {
	ID               int64                `json:"id"`
	ScheduleID       int64                `json:"scheduleId"`
	UserID           int64                `json:"userId"`
	BookingReference string               `json:"bookingReference"`
	SeatNumbers      []int                `json:"seatNumbers"`
	PassengerName    string               `json:"passengerName"`
	PassengerEmail   string               `json:"passengerEmail"`
	PassengerPhone   string               `json:"passengerPhone"`
	TotalFare        decimal.Decimal      `json:"totalFare"`
	DiscountAmount   decimal.Decimal      `json:"discountAmount"`
	CouponID         *int64               `json:"couponId,omitempty"`
	Status           domain.BookingStatus `json:"status"`
	PaymentVerified  bool                 `json:"paymentVerified"`
	QRCodeData       *string              `json:"qrCodeData,omitempty"`
	CreatedAt        time.Time            `json:"createdAt"`
	ConfirmedAt      *time.Time           `json:"confirmedAt,omitempty"`
	CancelledAt      *time.Time           `json:"cancelledAt,omitempty"`
	CompletedAt      *time.Time           `json:"completedAt,omitempty"`
}

// SeatCount is the number of seats held by the booking.
func (b Booking) SeatCount() int { return len(b.SeatNumbers) }

// BookingDetail joins a booking with the journey it belongs to.
type BookingDetail struct {
	Booking
	RouteFrom     string    `json:"routeFrom"`
	RouteTo       string    `json:"routeTo"`
	DepartureDate time.Time `json:"departureDate"`
	DepartureTime string    `json:"departureTime"`
	BusName       string    `json:"busName"`
	OperatorID    int64     `json:"operatorId"`
}

// NewBooking carries the validated input for booking creation.
type NewBooking struct {
	ScheduleID     int64           `validate:"required,gt=0"`
	UserID         int64           `validate:"required,gt=0"`
	SeatNumbers    []int           `validate:"required,min=1,max=10,unique,dive,gt=0"`
	PassengerName  string          `validate:"required,max=255"`
	PassengerEmail string          `validate:"required,email,max=255"`
	PassengerPhone string          `validate:"required,max=32"`
	Fare           decimal.Decimal `validate:"-"`
	CouponCode     string          `validate:"omitempty,max=64"`
}
