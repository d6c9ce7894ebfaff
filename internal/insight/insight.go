// Package insight composes the acquisition pipeline: assemble a sparse series
// from cache and source, repair it into a dense series and analyze it.
package insight

import (
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/trend"
)

// Report is the result of one pipeline run. Insights is nil for plain series
// requests.
type Report struct {
	Pair     rate.Pair        `json:"pair"`
	Range    rate.DateRange   `json:"range"`
	Source   string           `json:"source,omitempty"`
	Points   []rate.Point     `json:"points"`
	Gaps     []rate.Gap       `json:"gaps"`
	Seed     *rate.Point      `json:"seed,omitempty"`
	Fetched  int              `json:"fetched"`
	Filled   int              `json:"filled"`
	Insights *trend.Insights  `json:"insights,omitempty"`
	Dense    rate.DenseSeries `json:"-"`
}
