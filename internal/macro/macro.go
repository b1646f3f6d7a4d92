// Package macro fetches monthly macroeconomic indices from the Banco Central
// do Brasil SGS time-series API.
package macro

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ErrSeriesUnavailable is returned when the API answers with a non-2xx status.
var ErrSeriesUnavailable = errors.New("macro series unavailable")

// Series identifies an SGS series.
type Series struct {
	Code int
	Name string
	// Ranged series are requested over the transaction date window; the
	// others are fetched in full.
	Ranged bool
}

// Known series.
var (
	IPCA  = Series{Code: 433, Name: "ipca", Ranged: true}
	SELIC = Series{Code: 432, Name: "selic", Ranged: true}
	ICC   = Series{Code: 4393, Name: "icc"}
)

// All lists the known series in report order.
var All = []Series{IPCA, SELIC, ICC}

// Lookup finds a known series by name or code.
func Lookup(name string) (Series, bool) {
	for _, s := range All {
		if strings.EqualFold(s.Name, name) || strconv.Itoa(s.Code) == name {
			return s, true
		}
	}
	return Series{}, false
}

// Observation is one data point of a series.
type Observation struct {
	Date  time.Time
	Value float64
}

// Client talks to the SGS API.
type Client struct {
	HTTP    *retryablehttp.Client
	baseURL string
}

// NewClient creates a client that retries transport errors and 5xx answers
// up to retries times.
func NewClient(baseURL string, timeout time.Duration, retries int, logger *slog.Logger) *Client {
	hc := retryablehttp.NewClient()
	hc.RetryMax = retries
	hc.RetryWaitMin = 500 * time.Millisecond
	hc.RetryWaitMax = 5 * time.Second
	hc.HTTPClient.Timeout = timeout
	hc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	hc.Logger = nil
	if logger != nil {
		hc.Logger = logger
	}
	return &Client{HTTP: hc, baseURL: strings.TrimRight(baseURL, "/")}
}

// URL builds the request URL of a series. Zero bounds are omitted.
func (c *Client) URL(s Series, from, to time.Time) string {
	q := url.Values{}
	q.Set("formato", "json")
	if s.Ranged && !from.IsZero() {
		q.Set("dataInicial", from.Format("02/01/2006"))
	}
	if s.Ranged && !to.IsZero() {
		q.Set("dataFinal", to.Format("02/01/2006"))
	}
	return fmt.Sprintf("%s/bcdata.sgs.%d/dados?%s", c.baseURL, s.Code, q.Encode())
}

type point struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

// Fetch downloads the observations of s between from and to, inclusive.
func (c *Client) Fetch(ctx context.Context, s Series, from, to time.Time) ([]Observation, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.URL(s, from, to), nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", s.Name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", s.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s returned %s", ErrSeriesUnavailable, s.Name, resp.Status)
	}

	var points []point
	if err := json.NewDecoder(resp.Body).Decode(&points); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.Name, err)
	}

	out := make([]Observation, 0, len(points))
	for _, p := range points {
		d, err := time.Parse("02/01/2006", p.Data)
		if err != nil {
			return nil, fmt.Errorf("%s: bad date %q: %w", s.Name, p.Data, err)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(p.Valor), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: bad value %q: %w", s.Name, p.Valor, err)
		}
		out = append(out, Observation{Date: d, Value: v})
	}
	return out, nil
}

// Monthly keys observations by YYYY-MM. Months with several observations
// take their mean.
func Monthly(obs []Observation) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, o := range obs {
		k := o.Date.Format("2006-01")
		sums[k] += o.Value
		counts[k]++
	}
	out := make(map[string]float64, len(sums))
	for k, s := range sums {
		out[k] = s / float64(counts[k])
	}
	return out
}

// Months returns the keys of a monthly series in ascending order.
func Months(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PeriodRange returns the first day of the earliest period and the last day
// of the latest period among YYYY-MM strings. ok is false when none parse.
func PeriodRange(periods []string) (from, to time.Time, ok bool) {
	for _, p := range periods {
		t, err := time.Parse("2006-01", p)
		if err != nil {
			continue
		}
		if !ok || t.Before(from) {
			from = t
		}
		if !ok || t.After(to) {
			to = t
		}
		ok = true
	}
	if ok {
		to = to.AddDate(0, 1, -1)
	}
	return from, to, ok
}
