package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/apperror"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/insight"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/job"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
)

const maxBodyBytes = 1 << 16

type handler struct {
	insightSvc *insight.Service
	jobSvc     *job.Service
	sources    SourceLister
	coverage   rate.CoverageLister
	active     string
}

type sourcesResponse struct {
	Active    string          `json:"active"`
	Available []string        `json:"available"`
	Cached    []rate.Coverage `json:"cached"`
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listSources(w http.ResponseWriter, r *http.Request) {
	resp := sourcesResponse{
		Active:    h.active,
		Available: h.sources.Names(),
		Cached:    []rate.Coverage{},
	}
	if h.coverage != nil {
		cov, err := h.coverage.Pairs(r.Context())
		if err != nil {
			// The source list is still useful without cache coverage.
			slog.Warn("list cached pairs", "error", err)
		} else if cov != nil {
			resp.Cached = cov
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getRates(w http.ResponseWriter, r *http.Request) {
	req, ok := parseRangeRequest(w, r)
	if !ok {
		return
	}
	req.SkipAnalysis = true

	format := r.URL.Query().Get("format")
	if format != "" && format != "json" && format != "csv" {
		writeError(w, http.StatusBadRequest, "format must be json or csv")
		return
	}

	rep, err := h.insightSvc.Query(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if format == "csv" {
		writeCSV(w, rep)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *handler) getInsights(w http.ResponseWriter, r *http.Request) {
	req, ok := parseRangeRequest(w, r)
	if !ok {
		return
	}

	if v := r.URL.Query().Get("threshold"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "threshold must be a number")
			return
		}
		req.Threshold = &threshold
	}

	rep, err := h.insightSvc.Query(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

type backfillBody struct {
	Pair      string `json:"pair"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

func (h *handler) submitBackfill(w http.ResponseWriter, r *http.Request) {
	var body backfillBody
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	req := job.SubmitBackfillRequest{Pair: body.Pair}
	var err error
	if body.StartDate != "" {
		if req.StartDate, err = rate.ParseDay(body.StartDate); err != nil {
			writeError(w, http.StatusBadRequest, "invalid startDate format, expected YYYY-MM-DD")
			return
		}
	}
	if body.EndDate != "" {
		if req.EndDate, err = rate.ParseDay(body.EndDate); err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate format, expected YYYY-MM-DD")
			return
		}
	}

	j, created, err := h.jobSvc.Submit(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusAccepted
	}
	w.Header().Set("Location", "/api/v1/jobs/"+strconv.FormatInt(j.ID, 10))
	writeJSON(w, status, j)
}

func (h *handler) getJob(w http.ResponseWriter, r *http.Request) {
	idStr := r.PathValue("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	j, err := h.jobSvc.Get(r.Context(), job.GetJobRequest{ID: id})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, j)
}

func (h *handler) listJobs(w http.ResponseWriter, r *http.Request) {
	req := job.ListJobsRequest{
		Pair: r.URL.Query().Get("pair"),
	}

	jobs, err := h.jobSvc.List(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

// parseRangeRequest reads the pair path value and the startDate/endDate query
// parameters shared by the rates and insights endpoints.
func parseRangeRequest(w http.ResponseWriter, r *http.Request) (insight.GetInsightsRequest, bool) {
	req := insight.GetInsightsRequest{Pair: r.PathValue("pair")}

	startDateStr := r.URL.Query().Get("startDate")
	if startDateStr == "" {
		writeError(w, http.StatusBadRequest, "startDate is required")
		return req, false
	}
	var err error
	if req.StartDate, err = rate.ParseDay(startDateStr); err != nil {
		writeError(w, http.StatusBadRequest, "invalid startDate format, expected YYYY-MM-DD")
		return req, false
	}
	if v := r.URL.Query().Get("endDate"); v != "" {
		if req.EndDate, err = rate.ParseDay(v); err != nil {
			writeError(w, http.StatusBadRequest, "invalid endDate format, expected YYYY-MM-DD")
			return req, false
		}
	}
	return req, true
}

func writeServiceError(w http.ResponseWriter, err error) {
	var ae *apperror.AppError
	if errors.As(err, &ae) {
		writeError(w, ae.HTTPStatus(), ae.Message())
		return
	}
	slog.Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}
