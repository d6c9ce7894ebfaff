package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/insight"
)

type APIResponse[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func writeJSON[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[T]{
		Message: "ok",
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[string]{
		Message: message,
		Data:    "",
	})
}

// writeCSV writes the dense series, one row per calendar date.
func writeCSV(w http.ResponseWriter, rep *insight.Report) {
	filename := fmt.Sprintf("%s_%s_%s.csv", rep.Pair,
		rep.Range.Start.Format(time.DateOnly), rep.Range.End.Format(time.DateOnly))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)

	_, _ = fmt.Fprintln(w, "Pair,Date,Rate,Origin")
	for _, p := range rep.Points {
		_, _ = fmt.Fprintf(w, "%s,%s,%s,%s\n", //nolint:gosec // CSV output from internal domain types, not user input
			p.Pair,
			p.Date.Format(time.DateOnly),
			strconv.FormatFloat(p.Rate, 'f', -1, 64),
			p.Origin,
		)
	}
}
