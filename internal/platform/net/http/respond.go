// Package http is the transport seam: the server, the router interface modules
// mount against, and the JSON envelope every API response uses
package http

import (
	"encoding/json"
	stdhttp "net/http"

	perr "trendsetl/internal/platform/errors"
	pnet "trendsetl/internal/platform/net"
	"trendsetl/internal/platform/net/http/bind"
)

// Envelope wraps every non-raw response; Data is set on success, Code and Error on failure
type Envelope struct {
	StatusCode int            `json:"status_code"`
	Status     string         `json:"status"`
	Code       perr.ErrorCode `json:"code,omitempty"`
	Error      string         `json:"error,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	Data       any            `json:"data,omitempty"`
}

func envelope(status int, r *stdhttp.Request) Envelope {
	return Envelope{
		StatusCode: status,
		Status:     stdhttp.StatusText(status),
		RequestID:  pnet.RequestID(r.Context()),
	}
}

// JSON writes v with status as application/json
func JSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RespondError writes err as an error envelope with its mapped status
func RespondError(w stdhttp.ResponseWriter, r *stdhttp.Request, err error) {
	status, wire := perr.HTTP(err)
	env := envelope(status, r)
	env.Code, env.Error = wire.Code, wire.Message
	JSON(w, status, env)
}

// Response is what return-style handlers produce
type Response struct {
	Status int // 200 when zero
	Body   any // an error body is written as an error envelope
	Header stdhttp.Header
	Raw    bool // write Body as-is, without the envelope
}

// OK is a 200 with data in the envelope
func OK(data any) Response { return Response{Status: stdhttp.StatusOK, Body: data} }

// Raw is a response written without the envelope
func Raw(status int, body any) Response { return Response{Status: status, Body: body, Raw: true} }

// Error is a response whose status comes from err's code
func Error(err error) Response { return Response{Body: err} }

// Handle adapts a return-style handler to net/http
func Handle(h func(r *stdhttp.Request) Response) stdhttp.HandlerFunc {
	return func(w stdhttp.ResponseWriter, r *stdhttp.Request) { h(r).write(w, r) }
}

func (resp Response) write(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	for k, vv := range resp.Header {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	status := resp.Status
	if status == 0 {
		status = stdhttp.StatusOK
	}

	switch body := resp.Body.(type) {
	case error:
		RespondError(w, r, body)
	case nil:
		if status == stdhttp.StatusNoContent {
			w.WriteHeader(status)
			return
		}
		JSON(w, status, envelope(status, r))
	default:
		if resp.Raw {
			JSON(w, status, body)
			return
		}
		env := envelope(status, r)
		env.Data = body
		JSON(w, status, env)
	}
}

// JSONHandler binds and validates a T from the body, then calls fn.
// fn may return a Response to control status or headers.
func JSONHandler[T any](fn func(*stdhttp.Request, T) (any, error), opts ...bind.JSONOptions) Handler {
	return Handle(func(r *stdhttp.Request) Response {
		in, err := bind.ParseJSON[T](r, opts...)
		if err != nil {
			return Error(err)
		}
		return result(fn(r, in))
	})
}

// JSONHandlerNoBody calls fn without reading the body
func JSONHandlerNoBody(fn func(*stdhttp.Request) (any, error)) Handler {
	return Handle(func(r *stdhttp.Request) Response { return result(fn(r)) })
}

func result(out any, err error) Response {
	if err != nil {
		return Error(err)
	}
	if resp, ok := out.(Response); ok {
		return resp
	}
	return OK(out)
}
