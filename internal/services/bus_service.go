package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
	"busticket/internal/utils"

	"github.com/shopspring/decimal"
)

// BusService registers operator buses and runs the admin approval step.
// A bus can carry schedules only once approved.
type BusService struct {
	DB        *sql.DB
	Now       func() time.Time
	RequestID string
}

type RegisterBus struct {
	BusName        string          `json:"busName" validate:"required,max=120"`
	RegistrationNo string          `json:"registrationNo" validate:"required,max=40"`
	TotalSeats     int             `json:"totalSeats" validate:"required,gt=0,lte=100"`
	FarePerKm      decimal.Decimal `json:"farePerKm"`
	DepartureTime  string          `json:"departureTime" validate:"required,datetime=15:04"`
	ArrivalTime    string          `json:"arrivalTime" validate:"required,datetime=15:04"`
	Source         string          `json:"source" validate:"required,max=100"`
	Destination    string          `json:"destination" validate:"required,max=100"`
	DistanceKm     decimal.Decimal `json:"distanceKm"`
}

type ReviewBus struct {
	Status string `json:"status" validate:"required,oneof=approved rejected"`
}

func (s BusService) db() *sql.DB { return dbOrDefault(s.DB) }

// Register stores the route and a pending bus owned by the caller in one
// transaction.
func (s BusService) Register(ctx context.Context, rc domain.RequestContext, in RegisterBus) (models.RegisteredBus, error) {
	in.BusName = utils.NormalizeSpace(in.BusName)
	in.RegistrationNo = strings.ToUpper(strings.Join(strings.Fields(in.RegistrationNo), ""))
	in.Source = utils.NormalizeSpace(in.Source)
	in.Destination = utils.NormalizeSpace(in.Destination)
	if err := validate.Struct(in); err != nil {
		return models.RegisteredBus{}, validationError(err)
	}
	if strings.EqualFold(in.Source, in.Destination) {
		return models.RegisteredBus{}, domain.ValidationError{Field: "destination", Msg: "must differ from source"}
	}
	if in.FarePerKm.IsNegative() {
		return models.RegisteredBus{}, domain.ValidationError{Field: "fare_per_km", Msg: "must not be negative"}
	}
	if !in.DistanceKm.IsPositive() {
		return models.RegisteredBus{}, domain.ValidationError{Field: "distance_km", Msg: "must be positive"}
	}
	if rc.UserID <= 0 {
		return models.RegisteredBus{}, domain.UnauthorizedError{Msg: "missing operator"}
	}

	out := models.RegisteredBus{
		Route: models.Route{Source: in.Source, Destination: in.Destination, DistanceKm: in.DistanceKm},
		Bus: models.BusProfile{
			OperatorID:     rc.UserID,
			BusName:        in.BusName,
			RegistrationNo: in.RegistrationNo,
			TotalSeats:     in.TotalSeats,
			FarePerKm:      in.FarePerKm,
			DepartureTime:  in.DepartureTime,
			ArrivalTime:    in.ArrivalTime,
			ApprovalStatus: repositories.BusPending,
			IsActive:       true,
		},
	}
	err := intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		buses := repositories.BusRepository{DB: tx}
		routeID, err := buses.CreateRoute(ctx, out.Route)
		if err != nil {
			return err
		}
		busID, err := buses.Create(ctx, out.Bus)
		if err != nil {
			return err
		}
		out.Route.ID, out.Bus.ID = routeID, busID
		return nil
	})
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return models.RegisteredBus{}, domain.ConflictError{Resource: "bus", Msg: "registration number already registered", Err: err}
		}
		return models.RegisteredBus{}, domain.InternalError{Msg: "register bus", Err: err}
	}
	utils.LogEvent(s.RequestID, "bus", "register", fmt.Sprintf("bus_id=%d route_id=%d operator_id=%d", out.Bus.ID, out.Route.ID, rc.UserID))
	return out, nil
}

// Review approves or rejects a pending bus. Only admins may review.
func (s BusService) Review(ctx context.Context, rc domain.RequestContext, id int64, in ReviewBus) (models.BusProfile, error) {
	if !rc.IsAdmin() {
		return models.BusProfile{}, domain.UnauthorizedError{Msg: "admin only"}
	}
	if id <= 0 {
		return models.BusProfile{}, domain.ValidationError{Field: "id", Msg: "invalid id"}
	}
	in.Status = strings.ToLower(strings.TrimSpace(in.Status))
	if err := validate.Struct(in); err != nil {
		return models.BusProfile{}, validationError(err)
	}

	buses := repositories.BusRepository{DB: s.db()}
	ok, err := buses.Review(ctx, id, in.Status)
	if err != nil {
		return models.BusProfile{}, domain.InternalError{Msg: "review bus", Err: err}
	}
	bus, err := buses.Get(ctx, id)
	if err != nil {
		return models.BusProfile{}, notFoundOr("bus", err)
	}
	if !ok {
		return models.BusProfile{}, domain.ConflictError{Resource: "bus", Msg: "bus is already " + bus.ApprovalStatus}
	}
	utils.LogEvent(s.RequestID, "bus", "review", fmt.Sprintf("bus_id=%d status=%s admin_id=%d at=%s",
		id, in.Status, rc.UserID, nowOr(s.Now).Format(time.RFC3339)))
	return bus, nil
}
