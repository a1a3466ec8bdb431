package services

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	intconfig "busticket/internal/config"
	"busticket/internal/domain"
	"busticket/internal/utils"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// validationError turns validator output into the first failing field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.ValidationError{Field: toSnake(fe.Field()), Msg: "failed " + fe.Tag() + " check", Err: err}
	}
	return domain.ValidationError{Msg: "invalid input", Err: err}
}

func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func dbOrDefault(db *sql.DB) *sql.DB {
	if db != nil {
		return db
	}
	return intconfig.DB
}

func nowOr(fn func() time.Time) time.Time {
	if fn != nil {
		return fn().UTC()
	}
	return utils.NowUTC()
}

func locOr(loc *time.Location) *time.Location {
	if loc != nil {
		return loc
	}
	return time.UTC
}

// notFoundOr maps sql.ErrNoRows to NotFoundError and anything else to InternalError.
func notFoundOr(resource string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{Resource: resource, Err: err}
	}
	return domain.InternalError{Msg: "load " + resource, Err: err}
}
