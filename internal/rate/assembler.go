package rate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"
)

// AssemblerConfig tunes how missing dates are fetched.
type AssemblerConfig struct {
	// Workers bounds concurrent fetches for a single request.
	Workers int
	// Retries is the number of extra attempts after a transient failure.
	Retries int
	// RetryDelay spaces retries of the same date.
	RetryDelay time.Duration
	// FetchTimeout bounds each individual attempt.
	FetchTimeout time.Duration
	// SeedLookbackDays is how far before the range the cache is searched for
	// a forward-fill seed when the first date has no observation.
	SeedLookbackDays int
}

func DefaultAssemblerConfig() AssemblerConfig {
	return AssemblerConfig{
		Workers:          4,
		Retries:          1,
		RetryDelay:       500 * time.Millisecond,
		FetchTimeout:     10 * time.Second,
		SeedLookbackDays: 7,
	}
}

type GapReason string

const (
	// GapNoObservation: the provider answered without a rate (weekend, holiday).
	GapNoObservation GapReason = "no_observation"
	// GapUnreachable: every attempt failed transiently.
	GapUnreachable GapReason = "unreachable"
	// GapRejected: the provider failed permanently or sent an unusable rate.
	GapRejected GapReason = "rejected"
)

// Gap is a date that stayed absent after fetching.
type Gap struct {
	Date   time.Time `json:"date"`
	Reason GapReason `json:"reason"`
	Err    string    `json:"error"`
}

// Assembly is the sparse result of Assemble plus its failure report.
type Assembly struct {
	Series Series    `json:"series"`
	Range  DateRange `json:"range"`
	Gaps   []Gap     `json:"gaps"`
	// Seed is the latest cached observation before Range.Start, set only when
	// the first date of the range is absent.
	Seed *Point `json:"seed,omitempty"`
	// Fetched counts points obtained from the source during this call.
	Fetched int `json:"fetched"`
}

// Recorder receives pipeline measurements. See internal/metrics.
type Recorder interface {
	CacheLookup(hits, misses int)
	CacheReadFailed()
	CacheWriteFailed()
	Fetch(source string, outcome string, attempts int)
}

type nopRecorder struct{}

func (nopRecorder) CacheLookup(int, int)      {}
func (nopRecorder) CacheReadFailed()          {}
func (nopRecorder) CacheWriteFailed()         {}
func (nopRecorder) Fetch(string, string, int) {}

// Assembler produces a sparse series for a range from the cache, fetching
// only the dates the cache lacks.
type Assembler struct {
	store    Store
	source   Source
	cfg      AssemblerConfig
	recorder Recorder
}

type AssemblerOption func(*Assembler)

func WithRecorder(r Recorder) AssemblerOption {
	return func(a *Assembler) { a.recorder = r }
}

func NewAssembler(store Store, source Source, cfg AssemblerConfig, opts ...AssemblerOption) *Assembler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultAssemblerConfig().FetchTimeout
	}
	a := &Assembler{
		store:    store,
		source:   source,
		cfg:      cfg,
		recorder: nopRecorder{},
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Assemble returns every observation for pair over r that the cache holds or
// the source can supply. Dates the source cannot supply are reported in
// Assembly.Gaps rather than failing the call; only an invalid request or a
// cancelled context returns an error.
func (a *Assembler) Assemble(ctx context.Context, pair Pair, r DateRange) (*Assembly, error) {
	if pair.IsZero() {
		return nil, fmt.Errorf("%w: pair is required", ErrInvalidRange)
	}
	if r.Start.IsZero() || r.Start.After(r.End) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRange, r)
	}

	cached := a.lookup(ctx, pair, r)

	var missing []time.Time
	for _, d := range r.Dates() {
		if _, ok := cached[d]; !ok {
			missing = append(missing, d)
		}
	}
	a.recorder.CacheLookup(len(cached), len(missing))

	fetched, gaps, err := a.fetchMissing(ctx, pair, missing)
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(cached)+len(fetched))
	for _, p := range cached {
		points = append(points, p)
	}
	points = append(points, fetched...)
	slices.SortFunc(points, func(x, y Point) int { return x.Date.Compare(y.Date) })

	asm := &Assembly{
		Series:  Series{Pair: pair, Points: points},
		Range:   r,
		Gaps:    gaps,
		Fetched: len(fetched),
	}
	if len(points) == 0 || !points[0].Date.Equal(r.Start) {
		asm.Seed = a.seed(ctx, pair, r.Start)
	}

	slog.Info("assembled series", "pair", pair, "range", r,
		"cached", len(cached), "fetched", len(fetched), "gaps", len(gaps))
	return asm, nil
}

// lookup degrades a failed cache read to a full miss.
func (a *Assembler) lookup(ctx context.Context, pair Pair, r DateRange) map[time.Time]Point {
	found, err := a.store.Lookup(ctx, pair, r)
	if err != nil {
		slog.Warn("cache lookup failed, fetching full range", "pair", pair, "range", r, "error", err)
		a.recorder.CacheReadFailed()
		return map[time.Time]Point{}
	}

	cached := make(map[time.Time]Point, len(found))
	for d, p := range found {
		d = Day(d)
		if !r.Contains(d) || !ValidRate(p.Rate) {
			continue
		}
		p.Date = d
		p.Pair = pair
		p.Origin = OriginCached
		cached[d] = p
	}
	return cached
}

func (a *Assembler) fetchMissing(ctx context.Context, pair Pair, missing []time.Time) ([]Point, []Gap, error) {
	if len(missing) == 0 {
		return nil, nil, nil
	}

	var (
		mu      sync.Mutex
		fetched = make([]Point, 0, len(missing))
		gaps    []Gap
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.Workers)

	for _, d := range missing {
		g.Go(func() error {
			v, err := a.fetchWithRetry(gctx, pair, d)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				gap := newGap(d, err)
				slog.Warn("rate unavailable", "pair", pair, "date", d.Format(dateFormat),
					"reason", gap.Reason, "error", err)
				mu.Lock()
				gaps = append(gaps, gap)
				mu.Unlock()
				return nil
			}

			p := Point{Pair: pair, Date: d, Rate: v, Origin: OriginFetched}
			if err := a.store.Put(gctx, p); err != nil {
				slog.Warn("cache write failed", "pair", pair, "date", d.Format(dateFormat), "error", err)
				a.recorder.CacheWriteFailed()
			}

			mu.Lock()
			fetched = append(fetched, p)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	slices.SortFunc(gaps, func(x, y Gap) int { return x.Date.Compare(y.Date) })
	return fetched, gaps, nil
}

func (a *Assembler) fetchWithRetry(ctx context.Context, pair Pair, date time.Time) (float64, error) {
	var (
		value    float64
		attempts int
	)

	op := func() error {
		attempts++
		fctx, cancel := context.WithTimeout(ctx, a.cfg.FetchTimeout)
		defer cancel()

		v, err := a.source.Fetch(fctx, pair, date)
		if err != nil {
			if ctx.Err() == nil && errors.Is(fctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrTransientFetch) {
				err = Transient(err)
			}
			if errors.Is(err, ErrTransientFetch) {
				slog.Debug("fetch attempt failed", "pair", pair, "date", date.Format(dateFormat),
					"attempt", attempts, "error", err)
				return err
			}
			return backoff.Permanent(err)
		}
		if !ValidRate(v) {
			return backoff.Permanent(fmt.Errorf("%w: provider returned %v", ErrInvalidRate, v))
		}
		value = v
		return nil
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(a.cfg.RetryDelay), uint64(a.cfg.Retries)),
		ctx,
	)
	err := backoff.Retry(op, b)
	a.recorder.Fetch(a.source.Name(), string(outcome(err)), attempts)
	if err != nil {
		return 0, err
	}
	return value, nil
}

func (a *Assembler) seed(ctx context.Context, pair Pair, start time.Time) *Point {
	if a.cfg.SeedLookbackDays <= 0 {
		return nil
	}
	r := DateRange{Start: start.AddDate(0, 0, -a.cfg.SeedLookbackDays), End: start.AddDate(0, 0, -1)}

	prior, err := a.store.Lookup(ctx, pair, r)
	if err != nil {
		slog.Warn("seed lookup failed", "pair", pair, "range", r, "error", err)
		a.recorder.CacheReadFailed()
		return nil
	}

	var seed *Point
	for d, p := range prior {
		if !ValidRate(p.Rate) || !r.Contains(d) {
			continue
		}
		if seed == nil || d.After(seed.Date) {
			p.Date = Day(d)
			p.Pair = pair
			p.Origin = OriginCached
			seed = &p
		}
	}
	return seed
}

func outcome(err error) GapReason {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNoObservation):
		return GapNoObservation
	case errors.Is(err, ErrTransientFetch), errors.Is(err, context.DeadlineExceeded):
		return GapUnreachable
	default:
		return GapRejected
	}
}

func newGap(d time.Time, err error) Gap {
	return Gap{Date: d, Reason: outcome(err), Err: err.Error()}
}
