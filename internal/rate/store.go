package rate

import (
	"context"
	"fmt"
	"time"
)

// Store persists observed rates keyed by (pair, date).
//
// Implementations must refuse filled points (see CheckCacheable), treat a
// repeated Put with the same rate as a no-op and let a different rate
// overwrite the old one. I/O failures are returned as *PersistenceError.
type Store interface {
	Lookup(ctx context.Context, pair Pair, r DateRange) (map[time.Time]Point, error)
	Put(ctx context.Context, p Point) error
}

// CheckCacheable enforces the cache write invariants.
func CheckCacheable(p Point) error {
	if p.Origin == OriginFilled {
		return fmt.Errorf("%w: %s %s", ErrFilledPoint, p.Pair, p.Date.Format(dateFormat))
	}
	if !ValidRate(p.Rate) {
		return fmt.Errorf("%w: %s %s = %v", ErrInvalidRate, p.Pair, p.Date.Format(dateFormat), p.Rate)
	}
	if p.Pair.IsZero() || p.Date.IsZero() {
		return fmt.Errorf("%w: pair and date are required", ErrInvalidRange)
	}
	return nil
}

// Coverage summarizes what the cache holds for one pair.
type Coverage struct {
	Pair   Pair      `json:"pair"`
	First  time.Time `json:"first"`
	Last   time.Time `json:"last"`
	Points int       `json:"points"`
}

// CoverageLister is implemented by stores that can enumerate cached pairs.
type CoverageLister interface {
	Pairs(ctx context.Context) ([]Coverage, error)
}
