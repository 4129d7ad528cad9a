package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/classledger/backend/core"
	"github.com/classledger/backend/core/attendance"
)

var (
	fromParam = "from"
	toParam   = "to"
	dateParam = "date"
)

// DateRange carries an optional inclusive [From, To] query window.
// Dates come in the ledger's DD/MM/YYYY format; a zero side is open.
type DateRange struct {
	From time.Time
	To   time.Time
}

func (dr *DateRange) Bind(ctx echo.Context) error {
	var err error
	if dr.From, err = bindDate(ctx, fromParam); err != nil {
		return err
	}
	dr.To, err = bindDate(ctx, toParam)
	return err
}

func bindDate(ctx echo.Context, param string) (time.Time, error) {
	val := ctx.QueryParam(param)
	if val == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(attendance.DateLayout, val)
	if err != nil {
		return time.Time{}, core.NewValidationError(nil, core.FieldError{
			Field: param,
			Error: "must be a date in DD/MM/YYYY format",
		})
	}
	return t, nil
}

func bindPeriod(ctx echo.Context, param string) (attendance.Period, error) {
	p, err := attendance.ParsePeriod(ctx.QueryParam(param))
	if err != nil {
		return "", core.NewValidationError(nil, core.FieldError{
			Field: param,
			Error: "must be one of P1 to P6",
		})
	}
	return p, nil
}

func requireQueryParam(ctx echo.Context, param string) (string, error) {
	val := core.CleanString(ctx.QueryParam(param))
	if val == "" {
		return "", core.NewValidationError(nil, core.FieldError{
			Field: param,
			Error: "this field is required",
		})
	}
	return val, nil
}
