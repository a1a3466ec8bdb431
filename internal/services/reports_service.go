package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"busticket/internal/domain"
	"busticket/internal/domain/models"
	"busticket/internal/repositories"
	"busticket/internal/utils"
)

const defaultReportDays = 30

type EarningsFilter struct {
	StartDate  string
	EndDate    string
	OperatorID int64
}

type ReportsService struct {
	Earnings repositories.EarningRepository
	Location *time.Location
	Now      func() time.Time
}

// OperatorEarnings returns per-schedule earnings for the caller's buses, or for
// f.OperatorID when the caller is an admin.
func (s ReportsService) OperatorEarnings(ctx context.Context, rc domain.RequestContext, f EarningsFilter) ([]models.ScheduleEarnings, error) {
	operatorID := rc.UserID
	if rc.IsAdmin() {
		if f.OperatorID <= 0 {
			return nil, domain.ValidationError{Field: "operator_id", Msg: "required"}
		}
		operatorID = f.OperatorID
	}
	if operatorID <= 0 {
		return nil, domain.UnauthorizedError{}
	}

	today, _ := utils.ParseDate(utils.FormatDate(nowOr(s.Now).In(locOr(s.Location))))
	end, err := dateOr(f.EndDate, today, "end_date")
	if err != nil {
		return nil, err
	}
	start, err := dateOr(f.StartDate, end.AddDate(0, 0, -(defaultReportDays-1)), "start_date")
	if err != nil {
		return nil, err
	}
	if start.After(end) {
		return nil, domain.ValidationError{Field: "start_date", Msg: "must not be after end_date"}
	}

	rows, err := s.Earnings.SummarizeBySchedule(ctx, operatorID, start, end)
	if err != nil {
		return nil, domain.InternalError{Msg: fmt.Sprintf("load earnings for operator %d", operatorID), Err: err}
	}
	return rows, nil
}

func dateOr(raw string, fallback time.Time, field string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	t, err := utils.ParseDate(raw)
	if err != nil {
		return time.Time{}, domain.ValidationError{Field: field, Msg: "must be YYYY-MM-DD", Err: err}
	}
	return t, nil
}
