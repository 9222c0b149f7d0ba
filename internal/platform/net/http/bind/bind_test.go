package bind

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	perr "trendsetl/internal/platform/errors"
)

type payload struct {
	Name string `json:"name" validate:"required,min=2"`
	Age  int    `json:"age" validate:"min=1"`
}

type trigger struct {
	Markets []string `json:"markets" validate:"omitempty,max=11,dive,market_code"`
	DryRun  bool     `json:"dry_run"`
}

func TestParseJSON_Success(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Alice","age":3}`))
	got, err := ParseJSON[payload](req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "Alice" || got.Age != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestParseJSON_EmptyBody_Disallow(t *testing.T) {
	req := httptest.NewRequest("POST", "/", http.NoBody)
	_, err := ParseJSON[payload](req)
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error code, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestParseJSON_AllowEmptyBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", http.NoBody)
	got, err := ParseJSON[trigger](req, JSONOptions{AllowEmptyBody: true, DisallowUnknown: true})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if got.DryRun || len(got.Markets) != 0 {
		t.Fatalf("expected zero value, got %+v", got)
	}
}

func TestParseJSON_AllowEmptyBody_StillParsesBody(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"markets":["HK","SG"],"dry_run":true}`))
	got, err := ParseJSON[trigger](req, JSONOptions{AllowEmptyBody: true, MaxBytes: 1024})
	if err != nil {
		t.Fatalf("unexpected: %v", err)
	}
	if !got.DryRun || len(got.Markets) != 2 || got.Markets[1] != "SG" {
		t.Fatalf("got %+v", got)
	}
}

func TestParseJSON_InvalidJSON(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{`))
	_, err := ParseJSON[payload](req)
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error code, got %v (%v)", perr.CodeOf(err), err)
	}
}

func TestParseJSON_UnknownField(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Al","age":2,"x":1}`))
	_, err := ParseJSON[payload](req)
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error, got %v", err)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Al","age":2,"x":1}`))
	if _, err := ParseJSON[payload](req, JSONOptions{}); err != nil {
		t.Fatalf("unknown fields should pass when allowed: %v", err)
	}
}

func TestParseJSON_TrailingData(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Al","age":2} {}`))
	_, err := ParseJSON[payload](req)
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error, got %v", err)
	}
}

func TestParseJSON_MaxBytesTruncates(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Alice","age":3}`))
	_, err := ParseJSON[payload](req, JSONOptions{MaxBytes: 5})
	if perr.CodeOf(err) != perr.ErrorCodeJSON {
		t.Fatalf("expected JSON error, got %v", err)
	}
}

func TestParseJSON_ValidationUsesJSONNames(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"A","age":3}`))
	_, err := ParseJSON[payload](req)
	if perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	e, ok := perr.As(err)
	if !ok || e.Field() != "name" {
		t.Fatalf("field = %q", e.Field())
	}
}

func TestParseJSON_MarketCode(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"markets":["hk"]}`))
	_, err := ParseJSON[trigger](req)
	if perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "market code") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestParseJSON_MaxMarkets(t *testing.T) {
	body := `{"markets":["HK","SG","CN","MY","TH","TW","MN","VN","PH","ID","IN","JP"]}`
	req := httptest.NewRequest("POST", "/", strings.NewReader(body))
	_, err := ParseJSON[trigger](req)
	if perr.CodeOf(err) != perr.ErrorCodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "at most 11") {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestParseJSON_NonStruct(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`["a","b"]`))
	got, err := ParseJSON[[]string](req)
	if err != nil || len(got) != 2 {
		t.Fatalf("got %v err=%v", got, err)
	}
}

func TestIsMarketCode(t *testing.T) {
	cases := map[string]bool{"HK": true, "IN": true, "hk": false, "HKG": false, "": false, "H1": false}
	for in, want := range cases {
		if got := IsMarketCode(in); got != want {
			t.Errorf("IsMarketCode(%q) = %v", in, got)
		}
	}
}

func TestValidationFieldAndMessage_Plain(t *testing.T) {
	f, m := ValidationFieldAndMessage(nil)
	if f != "" || m != "" {
		t.Fatalf("nil: %q %q", f, m)
	}
	f, m = ValidationFieldAndMessage(perr.New(perr.ErrorCodeUnknown, "boom"))
	if f != "" || m != "boom" {
		t.Fatalf("plain: %q %q", f, m)
	}
}

func TestGet_Singleton(t *testing.T) {
	if Get() != Init() {
		t.Fatal("expected singleton")
	}
}
