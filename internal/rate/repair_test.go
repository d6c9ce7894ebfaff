package rate_test

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

func TestRepair_ForwardFill(t *testing.T) {
	sparse := rate.Series{Pair: usdEUR, Points: []rate.Point{
		{Pair: usdEUR, Date: day(2024, 1, 1), Rate: 1.10, Origin: rate.OriginFetched},
		{Pair: usdEUR, Date: day(2024, 1, 4), Rate: 1.20, Origin: rate.OriginFetched},
	}}

	dense, err := rate.Repair(sparse, mustRange(day(2024, 1, 1), day(2024, 1, 4)))
	require.NoError(t, err)

	got := dense.Points()
	require.Len(t, got, 4)

	want := []struct {
		rate   float64
		origin rate.Origin
	}{
		{1.10, rate.OriginFetched},
		{1.10, rate.OriginFilled},
		{1.10, rate.OriginFilled},
		{1.20, rate.OriginFetched},
	}
	for i, w := range want {
		assert.Equal(t, day(2024, 1, 1+i), got[i].Date)
		assert.Equal(t, w.rate, got[i].Rate, "day %d", i+1)
		assert.Equal(t, w.origin, got[i].Origin, "day %d", i+1)
	}
	assert.Equal(t, 2, dense.Filled())
}

func TestRepair_LeadingGap(t *testing.T) {
	sparse := rate.Series{Pair: usdEUR, Points: []rate.Point{
		{Pair: usdEUR, Date: day(2024, 1, 3), Rate: 1.10, Origin: rate.OriginFetched},
	}}
	r := mustRange(day(2024, 1, 1), day(2024, 1, 4))

	_, err := rate.Repair(sparse, r)
	require.ErrorIs(t, err, rate.ErrInsufficientLeadingData)

	var lead *rate.InsufficientLeadingDataError
	require.True(t, errors.As(err, &lead))
	assert.Equal(t, usdEUR, lead.Pair)
	assert.Equal(t, r, lead.Range)
	assert.Equal(t, day(2024, 1, 1), lead.FirstMissing)
}

func TestRepair_NoObservationsAtAll(t *testing.T) {
	_, err := rate.Repair(rate.Series{Pair: usdEUR}, mustRange(day(2024, 1, 1), day(2024, 1, 7)))
	assert.ErrorIs(t, err, rate.ErrInsufficientLeadingData)
}

func TestRepair_SeedFillsLeadingGap(t *testing.T) {
	sparse := rate.Series{Pair: usdEUR, Points: []rate.Point{
		{Pair: usdEUR, Date: day(2024, 1, 8), Rate: 1.12, Origin: rate.OriginFetched},
	}}
	seed := rate.Point{Pair: usdEUR, Date: day(2024, 1, 5), Rate: 1.09, Origin: rate.OriginCached}

	dense, err := rate.Repair(sparse, mustRange(day(2024, 1, 6), day(2024, 1, 8)), rate.WithSeed(seed))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.09, 1.09, 1.12}, dense.Rates())
	assert.Equal(t, day(2024, 1, 6), dense.Points()[0].Date, "seed itself is not emitted")
}

func TestRepair_SeedInsideRangeIgnored(t *testing.T) {
	seed := rate.Point{Pair: usdEUR, Date: day(2024, 1, 2), Rate: 1.09}
	_, err := rate.Repair(rate.Series{Pair: usdEUR}, mustRange(day(2024, 1, 1), day(2024, 1, 3)), rate.WithSeed(seed))
	assert.ErrorIs(t, err, rate.ErrInsufficientLeadingData)
}

func TestRepair_IgnoresPointsOutsideRange(t *testing.T) {
	sparse := rate.Series{Pair: usdEUR, Points: []rate.Point{
		{Pair: usdEUR, Date: day(2023, 12, 31), Rate: 1.00},
		{Pair: usdEUR, Date: day(2024, 1, 1), Rate: 1.10},
		{Pair: usdEUR, Date: day(2024, 1, 5), Rate: 1.50},
	}}
	dense, err := rate.Repair(sparse, mustRange(day(2024, 1, 1), day(2024, 1, 2)))
	require.NoError(t, err)
	assert.Equal(t, []float64{1.10, 1.10}, dense.Rates())
}

func TestRepair_InvalidRange(t *testing.T) {
	_, err := rate.Repair(rate.Series{Pair: usdEUR}, rate.DateRange{Start: day(2024, 1, 2), End: day(2024, 1, 1)})
	assert.ErrorIs(t, err, rate.ErrInvalidRange)
}

// Every valid sparse input with an observation on the first date repairs to
// exactly one point per calendar date, ascending.
func TestRepair_Completeness(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	r := mustRange(day(2024, 1, 1), day(2024, 3, 31))

	for trial := 0; trial < 50; trial++ {
		points := []rate.Point{{Pair: usdEUR, Date: r.Start, Rate: 1.0, Origin: rate.OriginFetched}}
		for _, d := range r.Dates()[1:] {
			if rng.IntN(3) == 0 {
				points = append(points, rate.Point{Pair: usdEUR, Date: d, Rate: 1 + rng.Float64(), Origin: rate.OriginFetched})
			}
		}

		dense, err := rate.Repair(rate.Series{Pair: usdEUR, Points: points}, r)
		require.NoError(t, err)
		require.Equal(t, r.Days(), dense.Len())

		got := dense.Points()
		for i, p := range got {
			require.Equal(t, r.Start.AddDate(0, 0, i), p.Date)
			require.True(t, rate.ValidRate(p.Rate))
		}
		assert.Equal(t, r.Days()-len(points), dense.Filled())
	}
}
