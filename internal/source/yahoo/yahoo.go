// Package yahoo fetches daily FX closes from the Yahoo Finance v8 chart API
// ({BASE}{QUOTE}=X) with cookie + crumb authentication.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/rate"
	"github.com/yassienshaalan/ExchangeRateAnalyzer/internal/source"
)

const (
	defaultChartEndpoint = "https://query2.finance.yahoo.com/v8/finance/chart"
	defaultCookieURL     = "https://fc.yahoo.com"
	defaultCrumbURL      = "https://query1.finance.yahoo.com/v1/test/getcrumb"
	dateFormat           = "2006-01-02"
	userAgent            = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"
)

type Client struct {
	client        *http.Client
	chartEndpoint string
	cookieURL     string
	crumbURL      string

	mu    sync.Mutex
	crumb string
}

func New(opts ...Option) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		client:        &http.Client{Jar: jar},
		chartEndpoint: defaultChartEndpoint,
		cookieURL:     defaultCookieURL,
		crumbURL:      defaultCrumbURL,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type Option func(*Client)

// WithClient sets the HTTP client. The client should have a cookie jar.
func WithClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

func WithChartEndpoint(ep string) Option {
	return func(c *Client) { c.chartEndpoint = ep }
}

func WithCookieURL(u string) Option {
	return func(c *Client) { c.cookieURL = u }
}

func WithCrumbURL(u string) Option {
	return func(c *Client) { c.crumbURL = u }
}

func (c *Client) Name() string { return "yahoo" }

// Symbol returns the Yahoo ticker for pair, e.g. EURUSD=X for EUR priced in USD.
func Symbol(pair rate.Pair) string { return pair.String() + "=X" }

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []any `json:"close"`
		} `json:"quote"`
	} `json:"indicators"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// Fetch returns the close of pair for the one-day window starting at date.
func (c *Client) Fetch(ctx context.Context, pair rate.Pair, date time.Time) (float64, error) {
	if err := c.ensureCrumb(ctx); err != nil {
		return 0, rate.Transient(fmt.Errorf("yahoo auth: %w", err))
	}

	c.mu.Lock()
	crumb := c.crumb
	c.mu.Unlock()

	symbol := Symbol(pair)
	from := rate.Day(date)
	to := from.AddDate(0, 0, 1)
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("crumb", crumb)
	reqURL := c.chartEndpoint + "/" + url.PathEscape(symbol) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, fmt.Errorf("build chart request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	res, err := c.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return 0, rate.Transient(fmt.Errorf("yahoo request: %w", err))
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		// Drop the crumb on auth errors; the retry re-authenticates.
		if res.StatusCode == http.StatusUnauthorized || res.StatusCode == http.StatusForbidden {
			c.mu.Lock()
			c.crumb = ""
			c.mu.Unlock()
			return 0, rate.Transient(fmt.Errorf("yahoo returned HTTP %d for %s", res.StatusCode, symbol))
		}
		return 0, source.StatusError("yahoo", res.StatusCode)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, rate.Transient(fmt.Errorf("read yahoo response: %w", err))
	}

	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("parse yahoo response: %w", err)
	}
	if resp.Chart.Error != nil {
		return 0, fmt.Errorf("yahoo chart error: %s: %s", resp.Chart.Error.Code, resp.Chart.Error.Description)
	}

	v, ok := lastClose(resp)
	if !ok {
		return 0, fmt.Errorf("%w: yahoo has no close for %s on %s", rate.ErrNoObservation, symbol, from.Format(dateFormat))
	}

	slog.Debug("retrieved yahoo rate", "symbol", symbol, "date", from.Format(dateFormat), "rate", v)
	return v, nil
}

// lastClose returns the latest non-null close in the response window.
func lastClose(resp chartResponse) (float64, bool) {
	if len(resp.Chart.Result) == 0 {
		return 0, false
	}
	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return 0, false
	}
	closes := result.Indicators.Quote[0].Close
	for i := len(closes) - 1; i >= 0; i-- {
		if v, ok := toFloat64(closes[i]); ok {
			return v, true
		}
	}
	return 0, false
}

// ensureCrumb fetches a session cookie and crumb token if not already cached.
func (c *Client) ensureCrumb(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.crumb != "" {
		return nil
	}

	cookieReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cookieURL, nil)
	if err != nil {
		return fmt.Errorf("build cookie request: %w", err)
	}
	cookieReq.Header.Set("User-Agent", userAgent)

	cookieRes, err := c.client.Do(cookieReq) //nolint:gosec // URL from internal config
	if err != nil {
		return fmt.Errorf("fetch cookie: %w", err)
	}
	_ = cookieRes.Body.Close()

	crumbReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.crumbURL, nil)
	if err != nil {
		return fmt.Errorf("build crumb request: %w", err)
	}
	crumbReq.Header.Set("User-Agent", userAgent)

	crumbRes, err := c.client.Do(crumbReq) //nolint:gosec // URL from internal config
	if err != nil {
		return fmt.Errorf("fetch crumb: %w", err)
	}
	defer func() { _ = crumbRes.Body.Close() }()

	if crumbRes.StatusCode != http.StatusOK {
		return fmt.Errorf("crumb endpoint returned HTTP %d", crumbRes.StatusCode)
	}

	body, err := io.ReadAll(crumbRes.Body)
	if err != nil {
		return fmt.Errorf("read crumb: %w", err)
	}

	crumb := strings.TrimSpace(string(body))
	if crumb == "" {
		return fmt.Errorf("empty crumb received")
	}

	c.crumb = crumb
	slog.Info("yahoo: obtained crumb", "crumb_len", len(crumb))
	return nil
}

// toFloat64 converts a JSON number to float64. Yahoo uses null for missing
// data points.
func toFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
