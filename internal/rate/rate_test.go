package rate_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

func TestParsePair(t *testing.T) {
	tests := []struct {
		in      string
		want    rate.Pair
		wantErr bool
	}{
		{in: "USDEUR", want: rate.Pair{Base: "USD", Quote: "EUR"}},
		{in: "aud/nzd", want: rate.Pair{Base: "AUD", Quote: "NZD"}},
		{in: "GBP-JPY", want: rate.Pair{Base: "GBP", Quote: "JPY"}},
		{in: "AUD_NZD", want: rate.Pair{Base: "AUD", Quote: "NZD"}},
		{in: "USD", wantErr: true},
		{in: "US1EUR", wantErr: true},
		{in: "USDUSD", wantErr: true},
		{in: "USDX/EUR", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := rate.ParsePair(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, rate.ErrInvalidRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, string(tt.want.Base)+string(tt.want.Quote), got.String())
		})
	}
}

func TestNewDateRange(t *testing.T) {
	r, err := rate.NewDateRange(time.Date(2024, 1, 1, 15, 30, 0, 0, time.UTC), day(2024, 1, 3))
	require.NoError(t, err)
	assert.Equal(t, day(2024, 1, 1), r.Start, "time component is dropped")
	assert.Equal(t, 3, r.Days())
	assert.Equal(t, []time.Time{day(2024, 1, 1), day(2024, 1, 2), day(2024, 1, 3)}, r.Dates())
	assert.True(t, r.Contains(time.Date(2024, 1, 3, 23, 59, 0, 0, time.UTC)))
	assert.False(t, r.Contains(day(2024, 1, 4)))

	_, err = rate.NewDateRange(day(2024, 1, 3), day(2024, 1, 1))
	assert.ErrorIs(t, err, rate.ErrInvalidRange)

	_, err = rate.NewDateRange(time.Time{}, day(2024, 1, 1))
	assert.ErrorIs(t, err, rate.ErrInvalidRange)
}

func TestDateRange_AcrossMonthAndLeapDay(t *testing.T) {
	r := mustRange(day(2024, 2, 27), day(2024, 3, 2))
	assert.Equal(t, 5, r.Days())
	assert.Equal(t, day(2024, 2, 29), r.Dates()[2])
}

func TestDateRange_Chunks(t *testing.T) {
	tests := []struct {
		name      string
		from, to  time.Time
		chunkDays int
		wantLen   int
		wantFirst rate.DateRange
		wantLast  rate.DateRange
	}{
		{
			name:      "single chunk",
			from:      day(2024, 1, 1),
			to:        day(2024, 1, 10),
			chunkDays: 60,
			wantLen:   1,
			wantFirst: rate.DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 10)},
			wantLast:  rate.DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 10)},
		},
		{
			name:      "multiple chunks",
			from:      day(2024, 1, 1),
			to:        day(2024, 3, 31),
			chunkDays: 30,
			wantLen:   4,
			wantFirst: rate.DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 30)},
			wantLast:  rate.DateRange{Start: day(2024, 3, 31), End: day(2024, 3, 31)},
		},
		{
			name:      "exact chunk boundary",
			from:      day(2024, 1, 1),
			to:        day(2024, 1, 30),
			chunkDays: 30,
			wantLen:   1,
			wantFirst: rate.DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 30)},
			wantLast:  rate.DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 30)},
		},
		{
			name:      "zero chunk days returns nil",
			from:      day(2024, 1, 1),
			to:        day(2024, 1, 10),
			chunkDays: 0,
			wantLen:   0,
		},
		{
			name:      "same day",
			from:      day(2024, 1, 1),
			to:        day(2024, 1, 1),
			chunkDays: 30,
			wantLen:   1,
			wantFirst: rate.DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 1)},
			wantLast:  rate.DateRange{Start: day(2024, 1, 1), End: day(2024, 1, 1)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustRange(tt.from, tt.to).Chunks(tt.chunkDays)
			require.Len(t, got, tt.wantLen)
			if tt.wantLen == 0 {
				return
			}
			assert.Equal(t, tt.wantFirst, got[0])
			assert.Equal(t, tt.wantLast, got[len(got)-1])
		})
	}
}

func TestValidRate(t *testing.T) {
	assert.True(t, rate.ValidRate(1.0723))
	assert.False(t, rate.ValidRate(0))
	assert.False(t, rate.ValidRate(-1))
	assert.False(t, rate.ValidRate(math.NaN()))
	assert.False(t, rate.ValidRate(math.Inf(1)))
}

func TestCheckCacheable(t *testing.T) {
	p := rate.Point{Pair: usdEUR, Date: day(2024, 1, 1), Rate: 1.1, Origin: rate.OriginFetched}
	assert.NoError(t, rate.CheckCacheable(p))

	filled := p
	filled.Origin = rate.OriginFilled
	assert.ErrorIs(t, rate.CheckCacheable(filled), rate.ErrFilledPoint)

	zero := p
	zero.Rate = 0
	assert.ErrorIs(t, rate.CheckCacheable(zero), rate.ErrInvalidRate)
}
