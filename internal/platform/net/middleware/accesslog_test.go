package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trendsetl/internal/platform/logger"
	"trendsetl/internal/platform/net/middleware"
)

func logLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m); err != nil {
		t.Fatalf("log line %q: %v", buf.String(), err)
	}
	return m
}

func TestAccessLog_RecordsResponse(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.New(logger.Options{Out: &buf})
	mw := middleware.AccessLog(middleware.AccessLogOptions{Log: &l})

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-Run-Id", "run-1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte("hi"))
		_, _ = w.Write([]byte("there"))
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil))

	if rr.Code != http.StatusCreated || rr.Body.String() != "hithere" {
		t.Fatalf("response %d %q", rr.Code, rr.Body.String())
	}
	m := logLine(t, &buf)
	if m["status"] != float64(201) || m["bytes"] != float64(7) || m["run_id"] != "run-1" {
		t.Fatalf("log %v", m)
	}
	if m["path"] != "/api/v1/runs" || m["method"] != "POST" || m["level"] != "info" {
		t.Fatalf("log %v", m)
	}
}

func TestAccessLog_ImplicitOK(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.New(logger.Options{Out: &buf})
	h := middleware.AccessLog(middleware.AccessLogOptions{Log: &l})(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}),
	)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))

	if m := logLine(t, &buf); m["status"] != float64(200) {
		t.Fatalf("log %v", m)
	}
}

func TestAccessLog_SlowWarns(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	l := logger.New(logger.Options{Out: &buf})
	h := middleware.AccessLog(middleware.AccessLogOptions{Slow: time.Nanosecond, Log: &l})(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			time.Sleep(time.Millisecond)
			_, _ = w.Write([]byte("slow"))
		}),
	)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/slow", nil))

	if rr.Body.String() != "slow" {
		t.Fatalf("body %q", rr.Body.String())
	}
	if m := logLine(t, &buf); m["level"] != "warn" {
		t.Fatalf("log %v", m)
	}
}
