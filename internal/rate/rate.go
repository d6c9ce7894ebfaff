package rate

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const dateFormat = "2006-01-02"

type Currency string

func (c Currency) String() string { return string(c) }

func (c Currency) valid() bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Pair is a (base, quote) currency tuple. A rate for USD/EUR is the number of
// EUR one USD buys.
type Pair struct {
	Base  Currency `json:"base"`
	Quote Currency `json:"quote"`
}

// NewPair validates and upper-cases both codes.
func NewPair(base, quote string) (Pair, error) {
	p := Pair{
		Base:  Currency(strings.ToUpper(strings.TrimSpace(base))),
		Quote: Currency(strings.ToUpper(strings.TrimSpace(quote))),
	}
	if !p.Base.valid() || !p.Quote.valid() {
		return Pair{}, fmt.Errorf("%w: malformed currency pair %q/%q", ErrInvalidRange, base, quote)
	}
	if p.Base == p.Quote {
		return Pair{}, fmt.Errorf("%w: base and quote are both %s", ErrInvalidRange, p.Base)
	}
	return p, nil
}

// ParsePair accepts "USDEUR", "USD/EUR", "USD-EUR" and "USD_EUR".
func ParsePair(s string) (Pair, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "/-_"); i >= 0 {
		return NewPair(s[:i], s[i+1:])
	}
	if len(s) != 6 {
		return Pair{}, fmt.Errorf("%w: malformed currency pair %q", ErrInvalidRange, s)
	}
	return NewPair(s[:3], s[3:])
}

// String returns the compact form used as a storage key, e.g. "USDEUR".
func (p Pair) String() string { return string(p.Base) + string(p.Quote) }

func (p Pair) IsZero() bool { return p.Base == "" && p.Quote == "" }

type Origin string

const (
	OriginFetched Origin = "fetched"
	OriginCached  Origin = "cached"
	OriginFilled  Origin = "filled"
)

// Point is a single daily observation. Origin records provenance for
// diagnostics; nothing downstream branches on it except the cache, which
// refuses filled points.
type Point struct {
	Pair   Pair      `json:"pair"`
	Date   time.Time `json:"date"`
	Rate   float64   `json:"rate"`
	Origin Origin    `json:"origin"`
}

// ValidRate reports whether v is a usable exchange rate.
func ValidRate(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrInvalidRange, s)
	}
	return t, nil
}

// DateRange is an inclusive range of calendar dates.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: Day(start), End: Day(end)}
	if r.Start.IsZero() || r.End.IsZero() {
		return DateRange{}, fmt.Errorf("%w: start and end dates are required", ErrInvalidRange)
	}
	if r.Start.After(r.End) {
		return DateRange{}, fmt.Errorf("%w: start %s is after end %s", ErrInvalidRange,
			r.Start.Format(dateFormat), r.End.Format(dateFormat))
	}
	return r, nil
}

// Days is the number of calendar dates in the range.
func (r DateRange) Days() int {
	if r.Start.After(r.End) {
		return 0
	}
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// Dates lists every calendar date in the range, ascending.
func (r DateRange) Dates() []time.Time {
	dates := make([]time.Time, 0, r.Days())
	for d := r.Start; !d.After(r.End); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	return dates
}

func (r DateRange) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Chunks splits the range into consecutive sub-ranges of at most n days.
func (r DateRange) Chunks(n int) []DateRange {
	if r.Start.After(r.End) || n <= 0 {
		return nil
	}

	var chunks []DateRange
	for cur := r.Start; !cur.After(r.End); cur = cur.AddDate(0, 0, n) {
		end := cur.AddDate(0, 0, n-1)
		if end.After(r.End) {
			end = r.End
		}
		chunks = append(chunks, DateRange{Start: cur, End: end})
	}
	return chunks
}

func (r DateRange) String() string {
	return r.Start.Format(dateFormat) + ".." + r.End.Format(dateFormat)
}

// Series is a possibly sparse, date-ordered sequence of points for one pair.
type Series struct {
	Pair   Pair    `json:"pair"`
	Points []Point `json:"points"`
}

// Len returns the number of points present.
func (s Series) Len() int { return len(s.Points) }

// DenseSeries has exactly one point for every calendar date of Range. It is
// only produced by Repair.
type DenseSeries struct {
	pair   Pair
	rng    DateRange
	points []Point
}

func (s DenseSeries) Pair() Pair       { return s.pair }
func (s DenseSeries) Range() DateRange { return s.rng }
func (s DenseSeries) Len() int         { return len(s.points) }

// Points returns a copy of the dense points in ascending date order.
func (s DenseSeries) Points() []Point {
	out := make([]Point, len(s.points))
	copy(out, s.points)
	return out
}

// Rates returns the bare rate values in date order.
func (s DenseSeries) Rates() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Rate
	}
	return out
}

// Filled counts the synthesized points.
func (s DenseSeries) Filled() int {
	n := 0
	for _, p := range s.points {
		if p.Origin == OriginFilled {
			n++
		}
	}
	return n
}
