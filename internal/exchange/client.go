package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/stage-app/engine/internal/models"
)

const (
	DefaultBaseURL = "https://api.exchangerate-api.com/v4/"
	DefaultTimeout = 30 * time.Second
)

type latestResponse struct {
	Success   *bool              `json:"success"`
	Timestamp int64              `json:"timestamp"`
	TimeLast  int64              `json:"time_last_updated"`
	Base      string             `json:"base"`
	Date      string             `json:"date"`
	Rates     map[string]float64 `json:"rates"`
}

type conversionResponse struct {
	Success *bool `json:"success"`
	Query   struct {
		From   string  `json:"from"`
		To     string  `json:"to"`
		Amount float64 `json:"amount"`
	} `json:"query"`
	Info struct {
		Timestamp int64   `json:"timestamp"`
		Rate      float64 `json:"rate"`
	} `json:"info"`
	Result float64 `json:"result"`
}

// Client is the HTTP RateSource. It makes a single attempt per call.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// NewClient builds a client for baseURL. A zero timeout means DefaultTimeout,
// applied to connecting, reading headers and the whole exchange.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse exchange base url: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}).DialContext
	transport.ResponseHeaderTimeout = timeout
	transport.TLSHandshakeTimeout = timeout

	return &Client{baseURL: u, http: &http.Client{Timeout: timeout, Transport: transport}}, nil
}

// NewClientWith uses hc as is. Tests point it at an httptest server.
func NewClientWith(baseURL string, hc *http.Client) (*Client, error) {
	c, err := NewClient(baseURL, 0)
	if err != nil {
		return nil, err
	}
	c.http = hc
	return c, nil
}

func (c *Client) Latest(ctx context.Context, base string) (models.ExchangeRateSnapshot, error) {
	if base == "" {
		base = models.BaseCurrency
	}
	var body latestResponse
	if err := c.get(ctx, "latest", url.Values{"base": {base}}, &body); err != nil {
		return models.ExchangeRateSnapshot{}, err
	}
	return body.snapshot(base), nil
}

func (c *Client) Symbols(ctx context.Context, base string, targets []string) (models.ExchangeRateSnapshot, error) {
	var body latestResponse
	q := url.Values{"base": {base}, "symbols": {strings.Join(targets, ",")}}
	if err := c.get(ctx, "latest", q, &body); err != nil {
		return models.ExchangeRateSnapshot{}, err
	}
	return body.snapshot(base), nil
}

func (c *Client) Convert(ctx context.Context, from, to string, amount float64) (models.Conversion, error) {
	var body conversionResponse
	q := url.Values{
		"from":   {from},
		"to":     {to},
		"amount": {strconv.FormatFloat(amount, 'f', -1, 64)},
	}
	if err := c.get(ctx, "convert", q, &body); err != nil {
		return models.Conversion{}, err
	}
	success := true
	if body.Success != nil {
		success = *body.Success
	}
	return models.Conversion{
		From:      orDefault(body.Query.From, from),
		To:        orDefault(body.Query.To, to),
		Amount:    amount,
		Rate:      body.Info.Rate,
		Result:    body.Result,
		Timestamp: unixOrNow(body.Info.Timestamp),
		Success:   success,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, dest any) error {
	u := c.baseURL.ResolveReference(&url.URL{Path: path, RawQuery: q.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s request: status %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// snapshot treats a missing success flag as success when rates are present.
func (r latestResponse) snapshot(requestedBase string) models.ExchangeRateSnapshot {
	success := len(r.Rates) > 0
	if r.Success != nil {
		success = *r.Success
	}
	ts := r.Timestamp
	if ts == 0 {
		ts = r.TimeLast
	}
	rates := r.Rates
	if rates == nil {
		rates = map[string]float64{}
	}
	return models.ExchangeRateSnapshot{
		Base:      orDefault(r.Base, requestedBase),
		Date:      r.Date,
		Rates:     rates,
		Timestamp: unixOrNow(ts),
		Success:   success,
	}
}

func unixOrNow(ts int64) time.Time {
	if ts == 0 {
		return time.Now().UTC()
	}
	return time.Unix(ts, 0).UTC()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
