package rate

import (
	"context"
	"time"
)

//go:generate mockgen -destination=mocks/source.go -package=mocks . Source

// Source fetches the rate for one pair on one calendar date from a remote
// provider. Implementations wrap retryable failures with Transient and
// return ErrNoObservation when the provider has no value for the date.
type Source interface {
	Name() string
	Fetch(ctx context.Context, pair Pair, date time.Time) (float64, error)
}
