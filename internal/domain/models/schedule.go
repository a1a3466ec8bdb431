package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Schedule is one bus running one route on one calendar date.
type Schedule struct {
	ID             int64     `json:"id"`
	BusID          int64     `json:"busId"`
	RouteID        int64     `json:"routeId"`
	DepartureDate  time.Time `json:"departureDate"`
	TotalSeats     int       `json:"totalSeats"`
	AvailableSeats int       `json:"availableSeats"`
	IsActive       bool      `json:"isActive"`
}

// ScheduleDetail adds bus and route data needed for search, pricing and tickets.
type ScheduleDetail struct {
	Schedule
	OperatorID    int64           `json:"operatorId"`
	BusName       string          `json:"busName"`
	DepartureTime string          `json:"departureTime"`
	ArrivalTime   string          `json:"arrivalTime"`
	FarePerKm     decimal.Decimal `json:"farePerKm"`
	Source        string          `json:"source"`
	Destination   string          `json:"destination"`
	DistanceKm    decimal.Decimal `json:"distanceKm"`
}

// Bus is the subset of bus data needed to publish schedules.
type Bus struct {
	ID             int64
	OperatorID     int64
	TotalSeats     int
	ApprovalStatus string
	IsActive       bool
}

// Route is a source/destination pair registered with a bus.
type Route struct {
	ID          int64           `json:"id"`
	Source      string          `json:"source"`
	Destination string          `json:"destination"`
	DistanceKm  decimal.Decimal `json:"distanceKm"`
}

// BusProfile is a bus as its operator registered it.
type BusProfile struct {
	ID             int64           `json:"id"`
	OperatorID     int64           `json:"operatorId"`
	BusName        string          `json:"busName"`
	RegistrationNo string          `json:"registrationNo"`
	TotalSeats     int             `json:"totalSeats"`
	FarePerKm      decimal.Decimal `json:"farePerKm"`
	DepartureTime  string          `json:"departureTime"`
	ArrivalTime    string          `json:"arrivalTime"`
	ApprovalStatus string          `json:"approvalStatus"`
	IsActive       bool            `json:"isActive"`
}

// RegisteredBus is returned when an operator registers a bus with its route.
type RegisteredBus struct {
	Bus   BusProfile `json:"bus"`
	Route Route      `json:"route"`
}

// Quote is a server-side fare computation.
type Quote struct {
	ScheduleID int64           `json:"scheduleId"`
	Seats      int             `json:"seats"`
	BaseFare   decimal.Decimal `json:"baseFare"`
	Discount   decimal.Decimal `json:"discount"`
	TotalFare  decimal.Decimal `json:"totalFare"`
	CouponCode string          `json:"couponCode,omitempty"`
	CouponID   *int64          `json:"-"`
}
