// Package trends is a client for the Google Trends web API: an explore call
// yields a widget token, the multiline widget yields the interest timeline
package trends

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"trendsetl/internal/core/version"
	perr "trendsetl/internal/platform/errors"
	"trendsetl/internal/platform/logger"
)

const (
	baseURLDefault  = "https://trends.google.com"
	defaultTimeout  = 30 * time.Second
	defaultHL       = "en-US"
	maxBodyBytes    = 4 << 20
	explorePath     = "/trends/api/explore"
	multilinePath   = "/trends/api/widgetdata/multiline"
	timeseriesID    = "TIMESERIES"
	explorePrefix   = 4 // )]}'
	multilinePrefix = 5 // )]}',
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// HL is the interface language, TZ the offset in minutes the upstream renders times for;
	// zero is UTC and is sent as is
	HL string
	TZ int
}

// Client talks to the trends endpoints; one request at a time, no retries
type Client struct {
	http *http.Client
	opts Options
	log  logger.Logger
	now  func() time.Time

	warmOnce sync.Once
}

// NewClient creates a Client with defaults and a cookie jar for the upstream session cookie
func NewClient(o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = version.UserAgent()
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.HL == "" {
		o.HL = defaultHL
	}
	jar, _ := cookiejar.New(nil)
	return &Client{
		http: &http.Client{Timeout: o.Timeout, Jar: jar},
		opts: o,
		log:  *logger.Named("trends"),
		now:  time.Now,
	}
}

// warm picks up the session cookie the API expects; failures only cost a cookie
func (c *Client) warm(ctx context.Context) {
	c.warmOnce.Do(func() {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+"/trends/", nil)
		if err != nil {
			return
		}
		req.Header.Set("User-Agent", c.opts.UserAgent)
		resp, err := c.http.Do(req)
		if err != nil {
			c.log.Debug().Err(err).Msg("trends cookie warmup failed")
			return
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
	})
}

// StatusError is a non-200 upstream answer; Body holds the start of the response
type StatusError struct {
	Status int
	Body   string
	Err    error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }

// IsRateLimited reports whether the upstream throttled the request
func IsRateLimited(err error) bool { return perr.IsCode(err, perr.ErrorCodeTooManyRequests) }

// get issues a GET with the locale params and returns the body with the guard prefix stripped
func (c *Client) get(ctx context.Context, path string, q url.Values, prefix int) ([]byte, error) {
	if q == nil {
		q = url.Values{}
	}
	q.Set("hl", c.opts.HL)
	q.Set("tz", strconv.Itoa(c.opts.TZ))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.opts.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnknown, "trends new request failed")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/json")

	start := c.now()
	resp, err := c.http.Do(req)
	lat := c.now().Sub(start)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "trends %s failed", path)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.log.Error().Err(cerr).Str("path", path).Msg("trends close body failed")
		}
	}()

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Msg("trends http response")

	if resp.StatusCode != http.StatusOK {
		tail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{
			Status: resp.StatusCode,
			Body:   string(tail),
			Err:    perr.Newf(perr.FromHTTPStatus(resp.StatusCode), "trends %s returned status %d", path, resp.StatusCode),
		}
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "trends %s read failed", path)
	}
	return stripGuard(b, prefix)
}

// stripGuard removes the anti-XSSI prefix the upstream puts before every JSON body
func stripGuard(b []byte, n int) ([]byte, error) {
	if len(b) < n || !strings.HasPrefix(string(b[:n]), ")]}'") {
		return nil, perr.Upstreamf("trends response missing guard prefix")
	}
	return b[n:], nil
}
