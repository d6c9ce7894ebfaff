package rate_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

// memStore is an in-memory rate.Store used by the package tests.
type memStore struct {
	mu      sync.Mutex
	points  map[string]map[time.Time]float64
	puts    int
	readErr error
	putErr  error
}

func newMemStore() *memStore {
	return &memStore{points: make(map[string]map[time.Time]float64)}
}

func (m *memStore) Lookup(_ context.Context, pair rate.Pair, r rate.DateRange) (map[time.Time]rate.Point, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, &rate.PersistenceError{Op: "lookup", Err: m.readErr}
	}
	out := make(map[time.Time]rate.Point)
	for d, v := range m.points[pair.String()] {
		if r.Contains(d) {
			out[d] = rate.Point{Pair: pair, Date: d, Rate: v, Origin: rate.OriginCached}
		}
	}
	return out, nil
}

func (m *memStore) Put(_ context.Context, p rate.Point) error {
	if err := rate.CheckCacheable(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return &rate.PersistenceError{Op: "put", Err: m.putErr}
	}
	m.puts++
	byDate, ok := m.points[p.Pair.String()]
	if !ok {
		byDate = make(map[time.Time]float64)
		m.points[p.Pair.String()] = byDate
	}
	byDate[rate.Day(p.Date)] = p.Rate
	return nil
}

func (m *memStore) seed(pair rate.Pair, d time.Time, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byDate, ok := m.points[pair.String()]
	if !ok {
		byDate = make(map[time.Time]float64)
		m.points[pair.String()] = byDate
	}
	byDate[d] = v
}

func (m *memStore) len(pair rate.Pair) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.points[pair.String()])
}

// funcSource adapts a function to rate.Source and counts calls.
type funcSource struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, d time.Time) (float64, error)
}

func (s *funcSource) Name() string { return "func" }

func (s *funcSource) Fetch(ctx context.Context, _ rate.Pair, d time.Time) (float64, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.fn(ctx, d)
}

func (s *funcSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var errBoom = errors.New("boom")

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mustRange(start, end time.Time) rate.DateRange {
	r, err := rate.NewDateRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

var usdEUR = rate.Pair{Base: "USD", Quote: "EUR"}
