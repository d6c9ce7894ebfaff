// Command fxtrend serves the exchange-rate API (fxtrend serve) or prints a
// one-off trend report (fxtrend report -pair USDEUR).
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/config"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/insight"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/job"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/metrics"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/platform/redis"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/platform/sqlite"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
	jobrepo "github.com/yassienshaalan/ExchangeRateAnalyzer/internal/repository/job"
	raterepo "github.com/yassienshaalan/ExchangeRateAnalyzer/internal/repository/rate"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/server"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/source"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/source/exchangerates"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/source/yahoo"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/trend"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "serve":
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))
		err = serve(cfg)
	case "report":
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()})))
		err = runReport(cfg, args)
	default:
		_, _ = fmt.Fprintf(os.Stderr, "unknown command %q\nusage: fxtrend [serve|report] [flags]\n", cmd)
		os.Exit(2)
	}
	if err != nil {
		slog.Error(cmd+" failed", "error", err)
		os.Exit(1)
	}
}

// app holds the components shared by both commands.
type app struct {
	db        *sqlite.DB
	redis     *goredis.Client
	store     rate.Store
	coverage  rate.CoverageLister
	sources   *source.Registry
	source    rate.Source
	metrics   *metrics.Metrics
	assembler *rate.Assembler
	insights  *insight.Service
}

func build(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{metrics: metrics.New()}

	// Jobs always live in SQLite; the rate cache can move to Redis.
	db, err := sqlite.Open(cfg.Cache.DBPath)
	if err != nil {
		return nil, err
	}
	a.db = db

	switch cfg.Cache.Backend {
	case "redis":
		client, err := redis.Open(ctx, cfg.Cache.RedisURL)
		if err != nil {
			a.close()
			return nil, err
		}
		a.redis = client
		store := raterepo.NewRedisStore(client)
		a.store, a.coverage = store, store
	default:
		store := raterepo.NewSQLiteStore(db.DB)
		a.store, a.coverage = store, store
	}

	a.sources = source.NewRegistry()
	a.sources.Register(exchangerates.New(
		exchangerates.WithBaseURL(cfg.Source.BaseURL),
		exchangerates.WithAPIKey(cfg.Source.APIKey),
	))
	a.sources.Register(yahoo.New())

	a.source, err = a.sources.Get(cfg.Source.Name)
	if err != nil {
		a.close()
		return nil, err
	}

	a.assembler = rate.NewAssembler(a.store, a.source, cfg.Assembler(), rate.WithRecorder(a.metrics))
	a.insights = insight.NewService(a.assembler, trend.NewAnalyzer(cfg.Analyzer()),
		insight.WithRecorder(a.metrics),
		insight.WithSourceName(a.source.Name()),
	)

	slog.Info("pipeline ready", "source", a.source.Name(), "cache", cfg.Cache.Backend)
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func serve(cfg config.Config) error {
	// Root context: cancelled on SIGINT/SIGTERM so in-flight source fetches
	// stop promptly during graceful shutdown.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	a, err := build(rootCtx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	jobRepo := jobrepo.NewRepository(a.db.DB)
	jobSvc := job.NewService(jobRepo)
	backfiller := job.NewBackfiller(jobRepo, a.assembler,
		job.WithChunkDays(cfg.Jobs.ChunkDays),
		job.WithChunkWorkers(cfg.Jobs.ChunkWorkers),
		job.WithJobRecorder(a.metrics),
	)

	// Worker pool: picks up pending backfills in the background
	pool := job.NewWorkerPool(jobRepo, backfiller, cfg.Jobs.Workers, cfg.Jobs.PollInterval)
	jobSvc.SetNotify(pool.Notify)
	poolDone := make(chan struct{})
	go func() {
		pool.Run(rootCtx)
		close(poolDone)
	}()

	// Re-queue interrupted jobs (pending/running) so workers pick them up.
	if err := jobSvc.RecoverStaleJobs(rootCtx); err != nil {
		slog.Error("failed to recover stale jobs", "error", err)
	}
	pool.Notify()

	srv := server.New(rootCtx, cfg.Port, server.Deps{
		Insights:     a.insights,
		Jobs:         jobSvc,
		Sources:      a.sources,
		ActiveSource: a.source.Name(),
		Coverage:     a.coverage,
		Metrics:      a.metrics,
	})

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	slog.Info("server started", "port", cfg.Port)
	select {
	case <-done:
	case err = <-serveErr:
		slog.Error("server error", "error", err)
	}

	// Cancel root context first so in-flight requests (and their fetches)
	// begin winding down immediately.
	rootCancel()

	// Wait for worker pool to drain before shutting down HTTP.
	<-poolDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		slog.Error("shutdown error", "error", shutdownErr)
	}
	slog.Info("server stopped")
	return err
}
