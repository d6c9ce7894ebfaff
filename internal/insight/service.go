package insight

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/trend"
)

type Assembler interface {
	Assemble(ctx context.Context, pair rate.Pair, r rate.DateRange) (*rate.Assembly, error)
}

type Recorder interface {
	Insight(result string)
}

type Service struct {
	assembler Assembler
	analyzer  *trend.Analyzer
	source    string
	recorder  Recorder
	now       func() time.Time
}

type Option func(*Service)

func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithSourceName labels reports with the provider that backs the assembler.
func WithSourceName(name string) Option {
	return func(s *Service) { s.source = name }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(assembler Assembler, analyzer *trend.Analyzer, opts ...Option) *Service {
	s := &Service{
		assembler: assembler,
		analyzer:  analyzer,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetInsights assembles, repairs and analyzes pair over r.
func (s *Service) GetInsights(ctx context.Context, pair rate.Pair, r rate.DateRange) (*Report, error) {
	return s.run(ctx, pair, r, nil, true)
}

// Series assembles and repairs pair over r without analysis.
func (s *Service) Series(ctx context.Context, pair rate.Pair, r rate.DateRange) (*Report, error) {
	return s.run(ctx, pair, r, nil, false)
}

// Query validates a transport request and runs the pipeline. Client errors
// come back as *apperror.AppError.
func (s *Service) Query(ctx context.Context, req GetInsightsRequest) (*Report, error) {
	pair, r, appErr := req.Validate(s.now())
	if appErr != nil {
		return nil, appErr
	}
	rep, err := s.run(ctx, pair, r, req.Threshold, !req.SkipAnalysis)
	if err != nil {
		if appErr := AppError(err); appErr != nil {
			return nil, appErr
		}
		return nil, err
	}
	return rep, nil
}

func (s *Service) run(ctx context.Context, pair rate.Pair, r rate.DateRange, threshold *float64, analyze bool) (*Report, error) {
	asm, err := s.assembler.Assemble(ctx, pair, r)
	if err != nil {
		s.record("error")
		return nil, fmt.Errorf("assemble %s %s: %w", pair, r, err)
	}

	var repairOpts []rate.RepairOption
	if asm.Seed != nil {
		repairOpts = append(repairOpts, rate.WithSeed(*asm.Seed))
	}
	dense, err := rate.Repair(asm.Series, r, repairOpts...)
	if err != nil {
		s.record("insufficient_data")
		slog.Warn("cannot repair series", "pair", pair, "range", r, "gaps", len(asm.Gaps), "error", err)
		return nil, err
	}

	rep := &Report{
		Pair:    pair,
		Range:   r,
		Source:  s.source,
		Points:  dense.Points(),
		Gaps:    asm.Gaps,
		Seed:    asm.Seed,
		Fetched: asm.Fetched,
		Filled:  dense.Filled(),
		Dense:   dense,
	}
	if rep.Gaps == nil {
		rep.Gaps = []rate.Gap{}
	}

	if analyze {
		var in *trend.Insights
		if threshold != nil {
			in, err = s.analyzer.AnalyzeWithThreshold(dense, *threshold)
		} else {
			in, err = s.analyzer.Analyze(dense)
		}
		if err != nil {
			s.record("error")
			return nil, fmt.Errorf("analyze %s: %w", pair, err)
		}
		rep.Insights = in
	}

	s.record("ok")
	return rep, nil
}

func (s *Service) record(result string) {
	if s.recorder != nil {
		s.recorder.Insight(result)
	}
}
