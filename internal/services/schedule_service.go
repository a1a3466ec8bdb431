package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	intdb "busticket/internal/db"
	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
	"busticket/internal/utils"
)

const busApproved = "approved"

type ScheduleService struct {
	Schedules repositories.ScheduleRepository
	Seats     repositories.BookingSeatRepository
	Location  *time.Location
	Now       func() time.Time
	RequestID string
}

type PublishSchedule struct {
	BusID         int64  `json:"busId" validate:"required,gt=0"`
	RouteID       int64  `json:"routeId" validate:"required,gt=0"`
	DepartureDate string `json:"departureDate" validate:"required,datetime=2006-01-02"`
}

func (s ScheduleService) today() string {
	return utils.FormatDate(nowOr(s.Now).In(locOr(s.Location)))
}

func (s ScheduleService) Search(ctx context.Context, from, to, date string) ([]models.ScheduleDetail, error) {
	if strings.TrimSpace(date) == "" {
		date = s.today()
	}
	day, err := utils.ParseDate(date)
	if err != nil {
		return nil, domain.ValidationError{Field: "date", Msg: "expected YYYY-MM-DD", Err: err}
	}
	out, err := s.Schedules.Search(ctx, utils.NormalizeSpace(from), utils.NormalizeSpace(to), day)
	if err != nil {
		return nil, domain.InternalError{Msg: "search schedules", Err: err}
	}
	return out, nil
}

func (s ScheduleService) Get(ctx context.Context, id int64) (models.ScheduleDetail, error) {
	if id <= 0 {
		return models.ScheduleDetail{}, domain.ValidationError{Field: "id", Msg: "invalid id"}
	}
	d, err := s.Schedules.GetDetail(ctx, id)
	if err != nil {
		return models.ScheduleDetail{}, notFoundOr("schedule", err)
	}
	return d, nil
}

// BookedSeats lists held seat numbers. The list is advisory; the counter and
// the seat unique key decide at booking time.
func (s ScheduleService) BookedSeats(ctx context.Context, id int64) ([]int, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	seats, err := s.Seats.ListBySchedule(ctx, id)
	if err != nil {
		return nil, domain.InternalError{Msg: "list booked seats", Err: err}
	}
	return seats, nil
}

// Publish opens a schedule for an approved bus, copying its capacity.
func (s ScheduleService) Publish(ctx context.Context, rc domain.RequestContext, in PublishSchedule) (models.ScheduleDetail, error) {
	if err := validate.Struct(in); err != nil {
		return models.ScheduleDetail{}, validationError(err)
	}
	day, err := utils.ParseDate(in.DepartureDate)
	if err != nil {
		return models.ScheduleDetail{}, domain.ValidationError{Field: "departure_date", Msg: "expected YYYY-MM-DD", Err: err}
	}
	if utils.FormatDate(day) < s.today() {
		return models.ScheduleDetail{}, domain.ValidationError{Field: "departure_date", Msg: "must not be in the past"}
	}

	bus, err := s.Schedules.GetBus(ctx, in.BusID)
	if err != nil {
		return models.ScheduleDetail{}, notFoundOr("bus", err)
	}
	if !rc.CanAccessOwnedBy(bus.OperatorID) {
		return models.ScheduleDetail{}, domain.NotFoundError{Resource: "bus"}
	}
	if !bus.IsActive || bus.ApprovalStatus != busApproved {
		return models.ScheduleDetail{}, domain.PolicyError{Rule: "bus_approval", Msg: "bus is not approved"}
	}
	if bus.TotalSeats <= 0 {
		return models.ScheduleDetail{}, domain.ValidationError{Field: "total_seats", Msg: "bus has no seats"}
	}
	known, err := s.Schedules.RouteExists(ctx, in.RouteID)
	if err != nil {
		return models.ScheduleDetail{}, domain.InternalError{Msg: "load route", Err: err}
	}
	if !known {
		return models.ScheduleDetail{}, domain.NotFoundError{Resource: "route"}
	}

	id, err := s.Schedules.Create(ctx, models.Schedule{
		BusID:         in.BusID,
		RouteID:       in.RouteID,
		DepartureDate: day,
		TotalSeats:    bus.TotalSeats,
	})
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return models.ScheduleDetail{}, domain.ConflictError{Resource: "schedule", Msg: "bus already runs this route on that date", Err: err}
		}
		return models.ScheduleDetail{}, domain.InternalError{Msg: "create schedule", Err: err}
	}
	utils.LogEvent(s.RequestID, "schedule", "publish", fmt.Sprintf("schedule_id=%d bus_id=%d date=%s", id, in.BusID, in.DepartureDate))
	return s.Get(ctx, id)
}

// Deactivate hides a schedule from search and blocks new reservations.
func (s ScheduleService) Deactivate(ctx context.Context, rc domain.RequestContext, id int64) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !rc.CanAccessOwnedBy(d.OperatorID) {
		return domain.NotFoundError{Resource: "schedule"}
	}
	ok, err := s.Schedules.Deactivate(ctx, id)
	if err != nil {
		return domain.InternalError{Msg: "deactivate schedule", Err: err}
	}
	if !ok {
		return domain.ConflictError{Resource: "schedule", Msg: "schedule is already inactive"}
	}
	utils.LogEvent(s.RequestID, "schedule", "deactivate", fmt.Sprintf("schedule_id=%d", id))
	return nil
}
