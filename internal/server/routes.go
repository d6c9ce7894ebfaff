package server

import (
	"net/http"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/insight"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/job"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/metrics"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

// SourceLister names the registered rate providers.
type SourceLister interface {
	Names() []string
}

// Deps are the services behind the HTTP API. Coverage and Metrics are
// optional.
type Deps struct {
	Insights     *insight.Service
	Jobs         *job.Service
	Sources      SourceLister
	ActiveSource string
	Coverage     rate.CoverageLister
	Metrics      *metrics.Metrics
}

// NewHandler creates the full HTTP handler with routes and middleware.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(deps Deps) http.Handler {
	return newMux(deps)
}

func newMux(deps Deps) http.Handler {
	h := &handler{
		insightSvc: deps.Insights,
		jobSvc:     deps.Jobs,
		sources:    deps.Sources,
		coverage:   deps.Coverage,
		active:     deps.ActiveSource,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/v1/sources", h.listSources)
	mux.HandleFunc("GET /api/v1/rates/{pair}", h.getRates)
	mux.HandleFunc("GET /api/v1/insights/{pair}", h.getInsights)
	mux.HandleFunc("POST /api/v1/backfills", h.submitBackfill)
	mux.HandleFunc("GET /api/v1/jobs", h.listJobs)
	mux.HandleFunc("GET /api/v1/jobs/{id}", h.getJob)

	var rec HTTPRecorder
	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics.Handler())
		rec = deps.Metrics
	}

	// Apply middleware stack: recovery -> requestID -> logging
	var handler http.Handler = mux
	handler = logging(rec)(handler)
	handler = requestID(handler)
	handler = recovery(handler)

	return handler
}
