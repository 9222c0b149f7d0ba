// Package bind decodes and validates JSON request bodies into typed inputs
package bind

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"

	perr "trendsetl/internal/platform/errors"
	"trendsetl/internal/platform/logger"

	"github.com/go-playground/validator/v10"
)

// JSONOptions controls parsing; the zero value is replaced by the defaults
// only when no options are passed at all
type JSONOptions struct {
	MaxBytes        int64 // 64KB by default, zero means unlimited
	DisallowUnknown bool  // true by default
	AllowEmptyBody  bool
}

var defaults = JSONOptions{MaxBytes: 64 << 10, DisallowUnknown: true}

// ParseJSON decodes one JSON value into T and validates it. Every failure is a
// JSON or Validation coded error. With AllowEmptyBody an absent body yields the
// zero T, still validated.
func ParseJSON[T any](r *http.Request, opts ...JSONOptions) (T, error) {
	var out T
	o := defaults
	if len(opts) > 0 {
		o = opts[0]
	}

	var src io.Reader = http.NoBody
	if r.Body != nil {
		defer closeBody(r.Body)
		src = r.Body
	}
	if o.MaxBytes > 0 {
		src = io.LimitReader(src, o.MaxBytes)
	}
	br := bufio.NewReader(src)

	if _, err := br.Peek(1); errors.Is(err, io.EOF) {
		if !o.AllowEmptyBody {
			return out, perr.JSONErrf("empty body")
		}
		return out, validate(out)
	}

	dec := json.NewDecoder(br)
	if o.DisallowUnknown {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(&out); err != nil {
		var zero T
		return zero, perr.JSONErrf("invalid JSON: %v", err)
	}
	if dec.More() {
		var zero T
		return zero, perr.JSONErrf("unexpected trailing data")
	}
	if err := validate(out); err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}

func closeBody(b io.Closer) {
	if err := b.Close(); err != nil {
		logger.Get().Warn().Err(err).Msg("close request body")
	}
}

// validate checks struct inputs; other shapes have no tags to check
func validate(v any) error {
	if reflect.Indirect(reflect.ValueOf(v)).Kind() != reflect.Struct {
		return nil
	}
	err := Get().Validator.Struct(v)
	if err == nil {
		return nil
	}
	var inv *validator.InvalidValidationError
	if errors.As(err, &inv) {
		logger.Get().Error().Err(inv).Msg("validator misuse")
		return perr.JSONErrf("validation error")
	}
	field, msg := ValidationFieldAndMessage(err)
	return perr.WithField(perr.New(perr.ErrorCodeValidation, msg), field)
}
