package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/config"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/insight"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/report"
)

type reportFlags struct {
	pair      string
	start     string
	end       string
	days      int
	threshold float64
	out       string
}

func parseReportFlags(args []string) (reportFlags, error) {
	var f reportFlags
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	fs.StringVar(&f.pair, "pair", "", "currency pair, e.g. USDEUR or USD/EUR (required)")
	fs.StringVar(&f.start, "start", "", "first date YYYY-MM-DD (default: end minus -days)")
	fs.StringVar(&f.end, "end", "", "last date YYYY-MM-DD (default: today)")
	fs.IntVar(&f.days, "days", 30, "length of the period when -start is not set")
	fs.Float64Var(&f.threshold, "threshold", -1, "fluctuation threshold in percent (default: FLUCTUATION_THRESHOLD)")
	fs.StringVar(&f.out, "out", "insights", "directory for the report file; empty to skip writing")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if f.pair == "" {
		return f, errors.New("-pair is required")
	}
	return f, nil
}

// resolve turns the flags into a validated request relative to now.
func (f reportFlags) resolve(now time.Time) (insight.GetInsightsRequest, error) {
	req := insight.GetInsightsRequest{Pair: f.pair}
	end := rate.Day(now)
	if f.end != "" {
		d, err := rate.ParseDay(f.end)
		if err != nil {
			return req, err
		}
		end = d
	}
	req.EndDate = end

	if f.start != "" {
		d, err := rate.ParseDay(f.start)
		if err != nil {
			return req, err
		}
		req.StartDate = d
	} else {
		if f.days < 1 {
			return req, fmt.Errorf("-days must be positive, got %d", f.days)
		}
		req.StartDate = end.AddDate(0, 0, -(f.days - 1))
	}

	if f.threshold >= 0 {
		t := f.threshold
		req.Threshold = &t
	}
	return req, nil
}

func runReport(cfg config.Config, args []string) error {
	f, err := parseReportFlags(args)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	req, err := f.resolve(now)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	rep, err := a.insights.Query(ctx, req)
	if err != nil {
		return err
	}

	if err := report.Write(os.Stdout, rep); err != nil {
		return err
	}
	if f.out == "" {
		return nil
	}
	path, err := report.SaveFile(f.out, rep, now)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(os.Stdout, "\nInsights saved to %s\n", path)
	return nil
}
