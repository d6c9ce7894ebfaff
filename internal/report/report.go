// Package report renders a pipeline Report as the plain-text insight summary
// printed by the report command.
package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/insight"
)

const (
	dateFormat      = "2006-01-02"
	timestampFormat = "2006-01-02_15-04-05"
	header          = "Exchange Rate Analysis Insights:"
)

var ErrNoInsights = errors.New("report: no insights to render")

// Write renders rep to w. rep must carry Insights.
func Write(w io.Writer, rep *insight.Report) error {
	if rep == nil || rep.Insights == nil {
		return ErrNoInsights
	}
	in := rep.Insights

	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		_, _ = fmt.Fprintf(bw, format+"\n", args...)
	}

	p("%s", header)
	p("")
	p("Pair: %s/%s", rep.Pair.Base, rep.Pair.Quote)
	p("Period: %s to %s (%d days, %d observed, %d filled)",
		rep.Range.Start.Format(dateFormat), rep.Range.End.Format(dateFormat),
		in.Days, in.Days-in.Filled, in.Filled)
	if rep.Source != "" {
		p("Source: %s", rep.Source)
	}
	p("")
	p("Best Rate: %.4f on %s", in.Best.Rate, in.Best.Date.Format(dateFormat))
	p("Worst Rate: %.4f on %s", in.Worst.Rate, in.Worst.Date.Format(dateFormat))
	p("Average Rate over the period: %.4f", in.Mean)
	p("Standard deviation of the rate: %.4f (range %.4f)", in.StdDev, in.Spread)
	if in.PeakVolatility.Valid {
		p("Highest volatility observed on: %s with a standard deviation of %.4f",
			in.PeakVolatility.Date.Format(dateFormat), in.PeakVolatility.Value)
	} else {
		p("Highest volatility: period shorter than the rolling window")
	}
	p("The overall trend in the exchange rate is %s", in.Direction)

	p("")
	if len(in.Fluctuations) == 0 {
		p("No daily moves above %.2f%%", in.Threshold)
	} else {
		p("Daily moves above %.2f%%:", in.Threshold)
		for _, f := range in.Fluctuations {
			p("  %s %+.2f%%", f.Date.Format(dateFormat), f.PercentChange)
		}
	}

	if len(rep.Gaps) > 0 {
		p("")
		p("Dates without an observation (forward-filled):")
		for _, g := range rep.Gaps {
			p("  %s %s", g.Date.Format(dateFormat), g.Reason)
		}
	}

	return bw.Flush()
}

// FileName is the name SaveFile writes, e.g.
// exchange_rate_insights_USD_to_EUR_2024-01-31_09-30-00.txt.
func FileName(rep *insight.Report, now time.Time) string {
	return fmt.Sprintf("exchange_rate_insights_%s_to_%s_%s.txt",
		rep.Pair.Base, rep.Pair.Quote, now.Format(timestampFormat))
}

// SaveFile writes the report into dir, creating it if needed, and returns the
// path of the new file.
func SaveFile(dir string, rep *insight.Report, now time.Time) (string, error) {
	if rep == nil || rep.Insights == nil {
		return "", ErrNoInsights
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	path := filepath.Join(dir, FileName(rep, now))
	f, err := os.Create(path) //nolint:gosec // path is built from validated currency codes
	if err != nil {
		return "", fmt.Errorf("create report file: %w", err)
	}

	if err := Write(f, rep); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report file: %w", err)
	}

	slog.Info("report saved", "pair", rep.Pair.String(), "path", path)
	return path, nil
}
