package rate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRange covers malformed requests: start after end, missing
	// dates or bad currency codes. Nothing is fetched or cached for them.
	ErrInvalidRange = errors.New("invalid range")

	// ErrTransientFetch marks a source failure worth retrying: network errors,
	// timeouts, 5xx and 429 responses.
	ErrTransientFetch = errors.New("transient fetch error")

	// ErrNoObservation means the provider answered but has no rate for the
	// date (market closed, holiday, pair not quoted yet).
	ErrNoObservation = errors.New("no observation")

	ErrInsufficientLeadingData = errors.New("insufficient leading data")

	ErrFilledPoint = errors.New("filled points cannot be cached")
	ErrInvalidRate = errors.New("rate must be a positive finite number")
)

// InsufficientLeadingDataError is returned by Repair when the first date of
// the range has no observation and there is no seed to fill forward from.
type InsufficientLeadingDataError struct {
	Pair         Pair
	Range        DateRange
	FirstMissing time.Time
}

func (e *InsufficientLeadingDataError) Error() string {
	return fmt.Sprintf("insufficient leading data for %s over %s: no observation on or before %s",
		e.Pair, e.Range, e.FirstMissing.Format(dateFormat))
}

func (e *InsufficientLeadingDataError) Unwrap() error { return ErrInsufficientLeadingData }

// PersistenceError wraps a cache I/O failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return "cache " + e.Op + ": " + e.Err.Error() }
func (e *PersistenceError) Unwrap() error { return e.Err }

// Transient wraps err so that errors.Is(err, ErrTransientFetch) holds.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransientFetch, err)
}
