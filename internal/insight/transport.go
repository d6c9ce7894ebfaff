package insight

import (
	"errors"
	"time"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/apperror"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

// MaxRangeDays caps a single request; longer histories go through backfill
// jobs.
const MaxRangeDays = 366 * 5

type GetInsightsRequest struct {
	Pair      string
	StartDate time.Time
	EndDate   time.Time
	// Threshold overrides the configured fluctuation threshold when set.
	Threshold *float64
	// SkipAnalysis returns the dense series without statistics.
	SkipAnalysis bool
}

// Validate checks the request and resolves it into a pair and range. A zero
// EndDate means today.
func (r GetInsightsRequest) Validate(now time.Time) (rate.Pair, rate.DateRange, *apperror.AppError) {
	pair, err := rate.ParsePair(r.Pair)
	if err != nil {
		return rate.Pair{}, rate.DateRange{}, apperror.New(apperror.BadRequest, "pair must be two ISO 4217 codes such as USDEUR or USD/EUR")
	}
	if r.StartDate.IsZero() {
		return rate.Pair{}, rate.DateRange{}, apperror.New(apperror.BadRequest, "startDate is required")
	}
	end := r.EndDate
	if end.IsZero() {
		end = now
	}
	rng, err := rate.NewDateRange(r.StartDate, end)
	if err != nil {
		return rate.Pair{}, rate.DateRange{}, apperror.New(apperror.BadRequest, "endDate must not be before startDate")
	}
	if rng.End.After(rate.Day(now)) {
		return rate.Pair{}, rate.DateRange{}, apperror.New(apperror.BadRequest, "endDate must not be in the future")
	}
	if rng.Days() > MaxRangeDays {
		return rate.Pair{}, rate.DateRange{}, apperror.Newf(apperror.BadRequest, "range must not exceed %d days; use a backfill job", MaxRangeDays)
	}
	if r.Threshold != nil && *r.Threshold < 0 {
		return rate.Pair{}, rate.DateRange{}, apperror.New(apperror.BadRequest, "threshold must not be negative")
	}
	return pair, rng, nil
}

// AppError maps pipeline errors onto transport codes. It returns nil for
// errors that are not client-facing.
func AppError(err error) *apperror.AppError {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var lead *rate.InsufficientLeadingDataError
	switch {
	case errors.As(err, &lead):
		return apperror.Newf(apperror.Unprocessable,
			"no %s observation on or before %s; move startDate later or backfill earlier dates",
			lead.Pair, lead.FirstMissing.Format("2006-01-02"))
	case errors.Is(err, rate.ErrInsufficientLeadingData):
		return apperror.New(apperror.Unprocessable, err.Error())
	case errors.Is(err, rate.ErrInvalidRange):
		return apperror.New(apperror.BadRequest, err.Error())
	}
	return nil
}
