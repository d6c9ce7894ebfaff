// Package trend derives descriptive statistics from a dense rate series.
package trend

import (
	"errors"
	"math"
	"time"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

var ErrEmptySeries = errors.New("trend: empty series")

type Config struct {
	// Threshold is the absolute day-over-day percent change above which a
	// move is reported as a fluctuation. 1.5 means 1.5%.
	Threshold float64
	// Window is the length of the moving average and rolling volatility.
	Window int
	// FlatSlope is the per-day slope magnitude at or below which the trend is
	// reported as stable.
	FlatSlope float64
}

func DefaultConfig() Config {
	return Config{Threshold: 1.0, Window: 7, FlatSlope: 1e-9}
}

type Direction string

const (
	Increasing Direction = "increasing"
	Decreasing Direction = "decreasing"
	Stable     Direction = "stable"
)

// Fluctuation is a day-over-day move larger than the configured threshold.
type Fluctuation struct {
	Date          time.Time `json:"date"`
	PercentChange float64   `json:"percentChange"`
}

// Observation pins a rate to a date.
type Observation struct {
	Date time.Time `json:"date"`
	Rate float64   `json:"rate"`
}

// WindowPoint is a rolling statistic ending on Date. Valid is false for the
// first Window-1 dates where the window is not yet full.
type WindowPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
	Valid bool      `json:"valid"`
}

type Insights struct {
	Pair  rate.Pair      `json:"pair"`
	Range rate.DateRange `json:"range"`
	Days  int            `json:"days"`
	// Filled is the number of forward-filled days that went into the
	// statistics.
	Filled int `json:"filled"`

	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stdDev"`
	Spread float64 `json:"spread"`

	Best  Observation `json:"best"`
	Worst Observation `json:"worst"`

	Fluctuations []Fluctuation `json:"fluctuations"`
	Threshold    float64       `json:"threshold"`

	MovingAverage []WindowPoint `json:"movingAverage"`
	// PeakVolatility is the rolling window with the largest standard
	// deviation; zero when the series is shorter than the window.
	PeakVolatility WindowPoint `json:"peakVolatility"`

	Slope     float64   `json:"slope"`
	Intercept float64   `json:"intercept"`
	Direction Direction `json:"direction"`
}

type Analyzer struct {
	cfg Config
}

func NewAnalyzer(cfg Config) *Analyzer {
	if cfg.Window <= 0 {
		cfg.Window = DefaultConfig().Window
	}
	if cfg.Threshold < 0 {
		cfg.Threshold = -cfg.Threshold
	}
	return &Analyzer{cfg: cfg}
}

// Analyze computes Insights over s. The series carries forward-filled
// weekends and holidays, which flatten volatility slightly and never produce
// a fluctuation of their own.
func (a *Analyzer) Analyze(s rate.DenseSeries) (*Insights, error) {
	return a.AnalyzeWithThreshold(s, a.cfg.Threshold)
}

// AnalyzeWithThreshold is Analyze with a per-call fluctuation threshold.
func (a *Analyzer) AnalyzeWithThreshold(s rate.DenseSeries, threshold float64) (*Insights, error) {
	points := s.Points()
	if len(points) == 0 {
		return nil, ErrEmptySeries
	}
	threshold = math.Abs(threshold)
	rates := s.Rates()

	in := &Insights{
		Pair:      s.Pair(),
		Range:     s.Range(),
		Days:      len(points),
		Filled:    s.Filled(),
		Threshold: threshold,
	}

	in.Mean, in.StdDev = meanStdDev(rates)

	in.Best = Observation{Date: points[0].Date, Rate: points[0].Rate}
	in.Worst = in.Best
	for _, p := range points[1:] {
		if p.Rate > in.Best.Rate {
			in.Best = Observation{Date: p.Date, Rate: p.Rate}
		}
		if p.Rate < in.Worst.Rate {
			in.Worst = Observation{Date: p.Date, Rate: p.Rate}
		}
	}
	in.Spread = in.Best.Rate - in.Worst.Rate

	in.Fluctuations = []Fluctuation{}
	for i := 1; i < len(points); i++ {
		pct := (points[i].Rate - points[i-1].Rate) / points[i-1].Rate * 100
		if math.Abs(pct) > threshold {
			in.Fluctuations = append(in.Fluctuations, Fluctuation{Date: points[i].Date, PercentChange: pct})
		}
	}

	in.MovingAverage = make([]WindowPoint, len(points))
	for i, p := range points {
		in.MovingAverage[i] = WindowPoint{Date: p.Date}
		if i+1 < a.cfg.Window {
			continue
		}
		window := rates[i+1-a.cfg.Window : i+1]
		mean, sd := meanStdDev(window)
		in.MovingAverage[i].Value = mean
		in.MovingAverage[i].Valid = true
		if !in.PeakVolatility.Valid || sd > in.PeakVolatility.Value {
			in.PeakVolatility = WindowPoint{Date: p.Date, Value: sd, Valid: true}
		}
	}

	in.Slope, in.Intercept = linearFit(rates)
	switch {
	case in.Slope > a.cfg.FlatSlope:
		in.Direction = Increasing
	case in.Slope < -a.cfg.FlatSlope:
		in.Direction = Decreasing
	default:
		in.Direction = Stable
	}

	return in, nil
}

// meanStdDev returns the mean and sample standard deviation of xs using
// Welford's update, which keeps a constant series at exactly zero deviation.
func meanStdDev(xs []float64) (float64, float64) {
	var mean, m2 float64
	for i, x := range xs {
		delta := x - mean
		mean += delta / float64(i+1)
		m2 += delta * (x - mean)
	}
	if len(xs) < 2 {
		return mean, 0
	}
	return mean, math.Sqrt(m2 / float64(len(xs)-1))
}

// linearFit is an ordinary least-squares fit of ys against their index, so
// the slope is in rate units per day.
func linearFit(ys []float64) (slope, intercept float64) {
	n := float64(len(ys))
	if len(ys) < 2 {
		if len(ys) == 1 {
			return 0, ys[0]
		}
		return 0, 0
	}

	var sx, sy, sxx, sxy float64
	for i, y := range ys {
		x := float64(i)
		sx += x
		sy += y
		sxx += x * x
		sxy += x * y
	}
	den := n*sxx - sx*sx
	if den == 0 {
		return 0, sy / n
	}
	slope = (n*sxy - sx*sy) / den
	intercept = (sy - slope*sx) / n
	return slope, intercept
}
