package markets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	perr "trendsetl/internal/platform/errors"
	kit "trendsetl/internal/platform/testkit"
)

func TestDefault_Catalog(t *testing.T) {
	c, err := Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	if c.Len() != 12 {
		t.Fatalf("markets %d", c.Len())
	}
	codes := c.Codes()
	if codes[0] != "HK" || codes[len(codes)-1] != "MO" {
		t.Fatalf("order %v", codes)
	}
	for _, m := range c.All() {
		if m.GeoCode == "" || len(m.Keywords) != 10 {
			t.Fatalf("market %+v", m)
		}
	}
	hk, ok := c.Get("HK")
	if !ok || hk.Keywords[0] != "pepperstone" || hk.Keywords[2] != "ic markets" {
		t.Fatalf("HK %+v", hk)
	}
}

func TestParse_CleansKeywords(t *testing.T) {
	c, err := Parse(kit.Fixture(t, "small.toml"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sg, _ := c.Get("SG")
	if sg.Keywords[0] != "Futu Moomoo" {
		t.Fatalf("keyword %q", sg.Keywords[0])
	}
}

func TestCatalog_CopiesDoNotLeak(t *testing.T) {
	c, err := Parse(kit.Fixture(t, "small.toml"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	all := c.All()
	all[0].Keywords[0] = "mutated"
	hk, _ := c.Get("HK")
	hk.Keywords[1] = "mutated"

	again, _ := c.Get("HK")
	if again.Keywords[0] != "a" || again.Keywords[1] != "b" {
		t.Fatalf("catalog mutated through accessor: %v", again.Keywords)
	}
}

func TestSelect(t *testing.T) {
	c, err := Parse(kit.Fixture(t, "small.toml"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	all, err := c.Select(nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("select all: %v %v", all, err)
	}

	// catalog order wins over request order
	got, err := c.Select([]string{"SG", "HK"})
	if err != nil || len(got) != 2 || got[0].Code != "HK" {
		t.Fatalf("select: %+v %v", got, err)
	}

	_, err = c.Select([]string{"HK", "JP"})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("unknown market: %v", err)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := []struct {
		name string
		toml string
		code perr.ErrorCode
		want string
	}{
		{"empty", ``, perr.ErrorCodeValidation, ""},
		{"bad toml", `[[market]`, perr.ErrorCodeInvalidArgument, "decode"},
		{"unknown field", "[[market]]\ncode=\"HK\"\ngeo=\"HK\"\nkeywords=[\"a\"]\nregion=\"x\"\n", perr.ErrorCodeInvalidArgument, "decode"},
		{"missing geo", "[[market]]\ncode=\"HK\"\nkeywords=[\"a\"]\n", perr.ErrorCodeValidation, "geo"},
		{"no keywords", "[[market]]\ncode=\"HK\"\ngeo=\"HK\"\nkeywords=[]\n", perr.ErrorCodeValidation, "keywords"},
		{"blank keyword", "[[market]]\ncode=\"HK\"\ngeo=\"HK\"\nkeywords=[\"a\", \"  \"]\n", perr.ErrorCodeValidation, "keywords"},
		{"lower code", "[[market]]\ncode=\"hk\"\ngeo=\"HK\"\nkeywords=[\"a\"]\n", perr.ErrorCodeValidation, "market code"},
		{"duplicate market", "[[market]]\ncode=\"HK\"\ngeo=\"HK\"\nkeywords=[\"a\"]\n[[market]]\ncode=\"HK\"\ngeo=\"HK\"\nkeywords=[\"b\"]\n", perr.ErrorCodeValidation, "duplicate market"},
		{"duplicate keyword", "[[market]]\ncode=\"HK\"\ngeo=\"HK\"\nkeywords=[\"IC Markets\", \"ic  markets\"]\n", perr.ErrorCodeValidation, "same keyword"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.toml))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := perr.CodeOf(err); got != tc.code {
				t.Fatalf("code %v want %v (%v)", got, tc.code, err)
			}
			if tc.want != "" && !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err.Error(), tc.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	c, err := Load("")
	if err != nil || c.Len() != 12 {
		t.Fatalf("empty path should load default: %v", err)
	}

	path := filepath.Join(t.TempDir(), "m.toml")
	if err := os.WriteFile(path, kit.Fixture(t, "small.toml"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err = Load(path)
	if err != nil || c.Len() != 2 {
		t.Fatalf("file: %v", err)
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("missing file: %v", err)
	}
}
