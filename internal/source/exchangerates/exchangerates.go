// Package exchangerates fetches historical daily rates from an
// exchangeratesapi.io compatible endpoint: GET {base}/{YYYY-MM-DD} with
// access_key, base and symbols query parameters.
package exchangerates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/source"
)

const (
	defaultBaseURL = "https://api.exchangeratesapi.io/v1/"
	dateFormat     = "2006-01-02"
)

// Provider error codes that mean "nothing for that date" rather than a
// broken request.
var noDataCodes = map[int]bool{
	106: true, // no results
	302: true, // invalid date
}

type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func New(opts ...Option) *Client {
	c := &Client{
		client:  &http.Client{},
		baseURL: defaultBaseURL,
	}
	for _, o := range opts {
		o(c)
	}
	if !strings.HasSuffix(c.baseURL, "/") {
		c.baseURL += "/"
	}
	return c
}

type Option func(*Client)

func WithClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func (c *Client) Name() string { return "exchangerates" }

type historicalResponse struct {
	Success *bool              `json:"success"`
	Date    string             `json:"date"`
	Base    string             `json:"base"`
	Rates   map[string]float64 `json:"rates"`
	Error   *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
}

// Fetch returns the closing rate of pair on date.
func (c *Client) Fetch(ctx context.Context, pair rate.Pair, date time.Time) (float64, error) {
	q := url.Values{}
	if c.apiKey != "" {
		q.Set("access_key", c.apiKey)
	}
	q.Set("base", pair.Base.String())
	q.Set("symbols", pair.Quote.String())
	reqURL := c.baseURL + date.Format(dateFormat) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.client.Do(req) //nolint:gosec // URL from internal config
	if err != nil {
		return 0, rate.Transient(fmt.Errorf("exchangerates request: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, rate.Transient(fmt.Errorf("read exchangerates response: %w", err))
	}

	var resp historicalResponse
	decodeErr := json.Unmarshal(body, &resp)

	if res.StatusCode != http.StatusOK {
		if decodeErr == nil && resp.Error != nil && noDataCodes[resp.Error.Code] {
			return 0, fmt.Errorf("%w: %s", rate.ErrNoObservation, resp.Error.Info)
		}
		return 0, source.StatusError("exchangerates", res.StatusCode)
	}
	if decodeErr != nil {
		return 0, fmt.Errorf("parse exchangerates response: %w", decodeErr)
	}

	if resp.Success != nil && !*resp.Success {
		if resp.Error == nil {
			return 0, errors.New("exchangerates: request failed without error details")
		}
		if noDataCodes[resp.Error.Code] {
			return 0, fmt.Errorf("%w: %s", rate.ErrNoObservation, resp.Error.Info)
		}
		return 0, fmt.Errorf("exchangerates error %d (%s): %s", resp.Error.Code, resp.Error.Type, resp.Error.Info)
	}

	v, ok := resp.Rates[pair.Quote.String()]
	if !ok {
		return 0, fmt.Errorf("%w: %s not quoted on %s", rate.ErrNoObservation, pair, date.Format(dateFormat))
	}

	slog.Debug("retrieved exchangerates rate", "pair", pair, "date", date.Format(dateFormat), "rate", v)
	return v, nil
}
