package rate

import (
	"fmt"
	"time"
)

type repairOptions struct {
	seed *Point
}

type RepairOption func(*repairOptions)

// WithSeed supplies an observation from before the range to fill forward
// from when the range's first date has none. Seeds on or after the start of
// the range are ignored.
func WithSeed(p Point) RepairOption {
	return func(o *repairOptions) { o.seed = &p }
}

// Repair turns a sparse series into a dense one covering every date of r.
//
// Each date is either present (emitted unchanged) or absent (emitted as an
// OriginFilled copy of the previous date's rate). Repair cannot tell a
// weekend or holiday from a provider outage; both are filled the same way.
// A missing first date with no seed yields *InsufficientLeadingDataError.
func Repair(s Series, r DateRange, opts ...RepairOption) (DenseSeries, error) {
	if r.Start.IsZero() || r.Start.After(r.End) {
		return DenseSeries{}, fmt.Errorf("%w: %s", ErrInvalidRange, r)
	}

	var o repairOptions
	for _, opt := range opts {
		opt(&o)
	}

	present := make(map[time.Time]Point, len(s.Points))
	for _, p := range s.Points {
		d := Day(p.Date)
		if r.Contains(d) && ValidRate(p.Rate) {
			p.Date = d
			present[d] = p
		}
	}

	var (
		last float64
		have bool
	)
	if o.seed != nil && Day(o.seed.Date).Before(r.Start) && ValidRate(o.seed.Rate) {
		last, have = o.seed.Rate, true
	}

	points := make([]Point, 0, r.Days())
	for _, d := range r.Dates() {
		if p, ok := present[d]; ok {
			points = append(points, p)
			last, have = p.Rate, true
			continue
		}
		if !have {
			return DenseSeries{}, &InsufficientLeadingDataError{Pair: s.Pair, Range: r, FirstMissing: d}
		}
		points = append(points, Point{Pair: s.Pair, Date: d, Rate: last, Origin: OriginFilled})
	}

	return DenseSeries{pair: s.Pair, rng: r, points: points}, nil
}
