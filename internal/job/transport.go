package job

import (
	"time"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/apperror"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

type GetJobRequest struct {
	ID int64
}

func (r GetJobRequest) Validate() *apperror.AppError {
	if r.ID <= 0 {
		return apperror.New(apperror.BadRequest, "invalid job id")
	}
	return nil
}

type ListJobsRequest struct {
	Pair string
}

// Validate normalizes Pair to its compact form when set.
func (r *ListJobsRequest) Validate() *apperror.AppError {
	if r.Pair == "" {
		return nil
	}
	p, err := rate.ParsePair(r.Pair)
	if err != nil {
		return apperror.New(apperror.BadRequest, "invalid pair")
	}
	r.Pair = p.String()
	return nil
}

type SubmitBackfillRequest struct {
	Pair      string    `json:"pair"`
	StartDate time.Time `json:"-"`
	EndDate   time.Time `json:"-"`
}

func (r SubmitBackfillRequest) Validate(now time.Time) (rate.Pair, rate.DateRange, *apperror.AppError) {
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
	return pair, rng, nil
}
