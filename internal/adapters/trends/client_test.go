package trends

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"trendsetl/internal/core/trend"
	perr "trendsetl/internal/platform/errors"
	"trendsetl/internal/platform/testkit"
)

type upstream struct {
	explore   []byte
	multiline []byte
	status    int

	calls    atomic.Int32
	lastReq  atomic.Value // explore req param
	lastUA   atomic.Value
	lastTok  atomic.Value
	lastHLTZ atomic.Value
}

func (u *upstream) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/trends/", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "NID", Value: "session", Path: "/"})
	})
	mux.HandleFunc(explorePath, func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		u.lastReq.Store(r.URL.Query().Get("req"))
		u.lastUA.Store(r.Header.Get("User-Agent"))
		u.lastHLTZ.Store(r.URL.Query().Get("hl") + "/" + r.URL.Query().Get("tz"))
		if u.status != 0 {
			w.WriteHeader(u.status)
			_, _ = w.Write([]byte("slow down"))
			return
		}
		_, _ = w.Write(u.explore)
	})
	mux.HandleFunc(multilinePath, func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		u.lastTok.Store(r.URL.Query().Get("token"))
		if !strings.Contains(r.URL.Query().Get("req"), "resolution") {
			t.Errorf("multiline req not forwarded: %q", r.URL.Query().Get("req"))
		}
		if c, err := r.Cookie("NID"); err != nil || c.Value != "session" {
			t.Errorf("session cookie not sent")
		}
		_, _ = w.Write(u.multiline)
	})
	return mux
}

func newTestClient(t *testing.T, u *upstream) *Client {
	t.Helper()
	srv := httptest.NewServer(u.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/", Timeout: 5 * time.Second, TZ: 480})
}

func TestInterestOverTime(t *testing.T) {
	t.Parallel()

	u := &upstream{explore: testkit.Fixture(t, "explore.json"), multiline: testkit.Fixture(t, "multiline.json")}
	c := newTestClient(t, u)

	q := trend.Query{Keywords: []string{"futu", "tiger"}, Geo: "HK"}
	f, err := c.InterestOverTime(context.Background(), q)
	if err != nil {
		t.Fatalf("InterestOverTime: %v", err)
	}
	if u.calls.Load() != 2 {
		t.Fatalf("calls = %d", u.calls.Load())
	}
	if got := u.lastTok.Load(); got != "ts-token-1" {
		t.Fatalf("token = %v", got)
	}
	if got := u.lastHLTZ.Load(); got != "en-US/480" {
		t.Fatalf("hl/tz = %v", got)
	}
	if ua, _ := u.lastUA.Load().(string); !strings.HasPrefix(ua, "trendsetl/") {
		t.Fatalf("user agent = %q", ua)
	}

	var req exploreRequest
	if err := json.Unmarshal([]byte(u.lastReq.Load().(string)), &req); err != nil {
		t.Fatalf("explore req: %v", err)
	}
	if len(req.ComparisonItem) != 2 || req.ComparisonItem[1].Keyword != "tiger" ||
		req.ComparisonItem[0].Geo != "HK" || req.ComparisonItem[0].Time != trend.DefaultTimeframe {
		t.Fatalf("explore req = %+v", req)
	}
	if req.Category != 0 || req.Property != "" {
		t.Fatalf("category/property = %d/%q", req.Category, req.Property)
	}

	if len(f.Keywords) != 2 || len(f.Rows) != 3 {
		t.Fatalf("frame = %+v", f)
	}
	first := f.Rows[0]
	if !first.Time.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("time = %v", first.Time)
	}
	if *first.Values[0] != 12 || *first.Values[1] != 0 {
		t.Fatalf("values = %v %v", *first.Values[0], *first.Values[1])
	}
	if f.Rows[1].Values[1] != nil {
		t.Fatalf("short value row must leave nil")
	}
	if first.Partial || !f.Rows[2].Partial {
		t.Fatalf("partial flags wrong")
	}
}

func TestInterestOverTime_Empty(t *testing.T) {
	t.Parallel()

	u := &upstream{explore: testkit.Fixture(t, "explore.json"), multiline: testkit.Fixture(t, "multiline_empty.json")}
	c := newTestClient(t, u)

	f, err := c.InterestOverTime(context.Background(), trend.Query{Keywords: []string{"futu"}, Geo: "HK"})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if !f.Empty() {
		t.Fatalf("expected empty frame, got %+v", f)
	}
}

func TestInterestOverTime_RateLimited(t *testing.T) {
	t.Parallel()

	u := &upstream{status: http.StatusTooManyRequests}
	c := newTestClient(t, u)

	_, err := c.InterestOverTime(context.Background(), trend.Query{Keywords: []string{"futu"}, Geo: "HK"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsRateLimited(err) {
		t.Fatalf("IsRateLimited false for %v", err)
	}
	if perr.CodeOf(err) != perr.ErrorCodeTooManyRequests {
		t.Fatalf("code = %v", perr.CodeOf(err))
	}
	if !perr.Retryable(err) {
		t.Fatal("429 should be retryable")
	}
	if u.calls.Load() != 1 {
		t.Fatalf("no retries expected, calls = %d", u.calls.Load())
	}
}

func TestInterestOverTime_ServerError(t *testing.T) {
	t.Parallel()

	u := &upstream{status: http.StatusBadGateway}
	c := newTestClient(t, u)

	_, err := c.InterestOverTime(context.Background(), trend.Query{Keywords: []string{"futu"}, Geo: "HK"})
	if perr.CodeOf(err) != perr.ErrorCodeUnavailable {
		t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
	}
	var se *StatusError
	if !asStatus(err, &se) || se.Status != http.StatusBadGateway || se.Body != "slow down" {
		t.Fatalf("status error = %+v", se)
	}
}

func TestInterestOverTime_NoTimeseriesWidget(t *testing.T) {
	t.Parallel()

	u := &upstream{explore: []byte(")]}'\n{\"widgets\":[{\"id\":\"GEO_MAP\",\"token\":\"x\",\"request\":{}}]}")}
	c := newTestClient(t, u)

	_, err := c.InterestOverTime(context.Background(), trend.Query{Keywords: []string{"futu"}, Geo: "HK"})
	if perr.CodeOf(err) != perr.ErrorCodeUpstream {
		t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
	}
}

func TestInterestOverTime_MissingGuard(t *testing.T) {
	t.Parallel()

	u := &upstream{explore: []byte(`{"widgets":[]}`)}
	c := newTestClient(t, u)

	_, err := c.InterestOverTime(context.Background(), trend.Query{Keywords: []string{"futu"}, Geo: "HK"})
	if perr.CodeOf(err) != perr.ErrorCodeUpstream {
		t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
	}
}

func TestInterestOverTime_NoKeywords(t *testing.T) {
	t.Parallel()

	c := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
	_, err := c.InterestOverTime(context.Background(), trend.Query{Geo: "HK"})
	if perr.CodeOf(err) != perr.ErrorCodeInvalidArgument {
		t.Fatalf("code = %v", perr.CodeOf(err))
	}
}

func TestInterestOverTime_TransportError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(Options{BaseURL: url, Timeout: time.Second})
	_, err := c.InterestOverTime(context.Background(), trend.Query{Keywords: []string{"futu"}, Geo: "HK"})
	if perr.CodeOf(err) != perr.ErrorCodeUnavailable {
		t.Fatalf("code = %v (%v)", perr.CodeOf(err), err)
	}
}

func TestToFrame_BadTime(t *testing.T) {
	t.Parallel()

	_, err := toFrame([]string{"a"}, []timelinePoint{{Time: "yesterday", Value: []int{1}}})
	if perr.CodeOf(err) != perr.ErrorCodeUpstream {
		t.Fatalf("code = %v", perr.CodeOf(err))
	}
}

func TestNewClient_Defaults(t *testing.T) {
	t.Parallel()

	c := NewClient(Options{})
	if c.opts.BaseURL != baseURLDefault || c.opts.HL != "en-US" || c.opts.Timeout != defaultTimeout {
		t.Fatalf("opts = %+v", c.opts)
	}
	if c.http.Jar == nil {
		t.Fatal("cookie jar missing")
	}
}

func TestInterestOverTime_UTC(t *testing.T) {
	t.Parallel()

	u := &upstream{explore: testkit.Fixture(t, "explore.json"), multiline: testkit.Fixture(t, "multiline.json")}
	srv := httptest.NewServer(u.handler(t))
	t.Cleanup(srv.Close)
	c := NewClient(Options{BaseURL: srv.URL, TZ: 0})

	if _, err := c.InterestOverTime(context.Background(), trend.Query{Keywords: []string{"futu", "tiger"}, Geo: "HK"}); err != nil {
		t.Fatalf("InterestOverTime: %v", err)
	}
	if got := u.lastHLTZ.Load(); got != "en-US/0" {
		t.Fatalf("hl/tz = %v", got)
	}
}

func asStatus(err error, target **StatusError) bool { return errors.As(err, target) }
