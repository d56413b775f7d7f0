// Package blacklist is a client for the shared cloud blacklist HTTP service.
package blacklist

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/rshade/ysyunhei/internal/logging"
	"github.com/rshade/ysyunhei/internal/metrics"
)

// Service defaults.
const (
	DefaultBaseURL = "https://yunhei.youshou.wiki"
	DefaultTimeout = 15 * time.Second

	EndpointQuery = "get_platform_users"
	EndpointAdd   = "add_platform_users"
)

// Options configures a Client.
type Options struct {
	BaseURL   string
	APIKey    string
	Timeout   time.Duration
	UserAgent string
	Metrics   *metrics.Collector
}

// Client talks to the blacklist service. It is safe for concurrent use.
type Client struct {
	http    *resty.Client
	apiKey  string
	metrics *metrics.Collector
}

// AddRequest is the payload of Add.
type AddRequest struct {
	Account      string
	Level        Level
	Registration string
	// Description is sent verbatim; callers stamp the date.
	Description string
}

// New builds a Client from opts, filling defaults.
func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	rc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")
	if opts.UserAgent != "" {
		rc.SetHeader("User-Agent", opts.UserAgent)
	}

	return &Client{http: rc, apiKey: opts.APIKey, metrics: opts.Metrics}
}

// Query looks up one account. A non-success code is not an error: callers
// inspect Result because the service pairs failure codes with data.
func (c *Client) Query(ctx context.Context, account string) (*Result, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key":      c.apiKey,
			"mode":         "1",
			"search_type":  "1",
			"account_type": "1",
			"account":      account,
		})

	return c.do(ctx, EndpointQuery, func() (*resty.Response, error) {
		return req.Get("/" + EndpointQuery)
	})
}

// Add registers an account. Light entries expire after a year; others are permanent.
func (c *Client) Add(ctx context.Context, in AddRequest) (*Result, error) {
	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"api_key":      c.apiKey,
			"account_type": "1",
			"name":         in.Account,
			"level":        strconv.Itoa(int(in.Level)),
			"registration": in.Registration,
			"expiration":   strconv.Itoa(in.Level.Expiration()),
			"desc":         in.Description,
		})

	return c.do(ctx, EndpointAdd, func() (*resty.Response, error) {
		return req.Post("/" + EndpointAdd)
	})
}

func (c *Client) do(
	ctx context.Context,
	endpoint string,
	send func() (*resty.Response, error),
) (*Result, error) {
	log := logging.FromContext(ctx).With().Str("component", "blacklist").Str("endpoint", endpoint).Logger()

	start := time.Now()
	resp, err := send()
	elapsed := time.Since(start)

	if err != nil {
		c.metrics.APICall(endpoint, metrics.ResultError, elapsed)
		log.Debug().Err(err).Dur("elapsed", elapsed).Msg("request failed")
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if !resp.IsSuccess() {
		c.metrics.APICall(endpoint, metrics.ResultError, elapsed)
		return nil, fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status())
	}

	res, err := decodeResult(resp.Body())
	if err != nil {
		c.metrics.APICall(endpoint, metrics.ResultError, elapsed)
		return nil, err
	}

	result := metrics.ResultOK
	if !res.Success() {
		result = metrics.ResultRefused
	}
	c.metrics.APICall(endpoint, result, elapsed)

	logEvent(log, res).
		Int("code", res.Code).
		Int("records", len(res.Records)).
		Dur("elapsed", elapsed).
		Msg("blacklist call")

	return res, nil
}

func logEvent(log zerolog.Logger, res *Result) *zerolog.Event {
	if res.Success() {
		return log.Debug()
	}
	return log.Warn().Str("msg_text", res.Message)
}
