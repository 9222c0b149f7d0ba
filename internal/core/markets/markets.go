// Package markets loads the immutable market catalog: which geographies are polled
// and which keywords are queried in each, in order
package markets

import (
	"bytes"
	_ "embed"
	"os"
	"slices"

	"trendsetl/internal/core/normalize"
	perr "trendsetl/internal/platform/errors"
	"trendsetl/internal/platform/net/http/bind"

	"github.com/pelletier/go-toml/v2"
)

//go:embed markets.toml
var defaultCatalog []byte

// Market is one polled geography
type Market struct {
	Code     string   `toml:"code" json:"code" validate:"required,market_code"`
	GeoCode  string   `toml:"geo" json:"geo_code" validate:"required,max=16"`
	Keywords []string `toml:"keywords" json:"keywords" validate:"required,min=1,dive,required,max=100"`
}

type file struct {
	Markets []Market `toml:"market" validate:"required,min=1,dive"`
}

// Catalog is the validated, read-only market table
// accessors hand out copies so callers cannot mutate it
type Catalog struct {
	markets []Market
	index   map[string]int
}

// Default parses the catalog compiled into the binary
func Default() (*Catalog, error) { return Parse(defaultCatalog) }

// Load reads a TOML catalog from path, or the embedded default when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "read market catalog %s", path)
	}
	return Parse(b)
}

// Parse decodes and validates a TOML catalog
func Parse(b []byte) (*Catalog, error) {
	var f file
	dec := toml.NewDecoder(bytes.NewReader(b)).DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "decode market catalog")
	}
	for i := range f.Markets {
		f.Markets[i].Keywords = cleanKeywords(f.Markets[i].Keywords)
	}
	if err := bind.Get().Validator.Struct(f); err != nil {
		field, msg := bind.ValidationFieldAndMessage(err)
		return nil, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "market catalog: %s", msg), field)
	}
	return build(f.Markets)
}

func cleanKeywords(in []string) []string {
	out := make([]string, len(in))
	for i, k := range in {
		out[i] = normalize.Clean(k)
	}
	return out
}

func build(ms []Market) (*Catalog, error) {
	c := &Catalog{markets: ms, index: make(map[string]int, len(ms))}
	for i, m := range ms {
		if _, dup := c.index[m.Code]; dup {
			return nil, perr.WithField(perr.Newf(perr.ErrorCodeValidation, "market catalog: duplicate market %s", m.Code), "code")
		}
		c.index[m.Code] = i

		seen := make(map[string]string, len(m.Keywords))
		for _, k := range m.Keywords {
			key := normalize.Key(k)
			if prev, dup := seen[key]; dup {
				return nil, perr.WithField(
					perr.Newf(perr.ErrorCodeValidation, "market catalog: %s lists %q and %q which are the same keyword", m.Code, prev, k),
					"keywords",
				)
			}
			seen[key] = k
		}
	}
	return c, nil
}

// Len returns the number of markets
func (c *Catalog) Len() int { return len(c.markets) }

// Codes returns market codes in catalog order
func (c *Catalog) Codes() []string {
	out := make([]string, len(c.markets))
	for i, m := range c.markets {
		out[i] = m.Code
	}
	return out
}

// All returns every market in catalog order
func (c *Catalog) All() []Market {
	out := make([]Market, len(c.markets))
	for i, m := range c.markets {
		out[i] = m.clone()
	}
	return out
}

// Get returns the market with code
func (c *Catalog) Get(code string) (Market, bool) {
	i, ok := c.index[code]
	if !ok {
		return Market{}, false
	}
	return c.markets[i].clone(), true
}

// Select returns the named markets in catalog order; an empty list selects all.
// Unknown codes are an InvalidArgument error.
func (c *Catalog) Select(codes []string) ([]Market, error) {
	if len(codes) == 0 {
		return c.All(), nil
	}
	for _, code := range codes {
		if _, ok := c.index[code]; !ok {
			return nil, perr.WithField(perr.InvalidArgf("unknown market %q", code), "markets")
		}
	}
	out := make([]Market, 0, len(codes))
	for _, m := range c.markets {
		if slices.Contains(codes, m.Code) {
			out = append(out, m.clone())
		}
	}
	return out, nil
}

func (m Market) clone() Market {
	m.Keywords = slices.Clone(m.Keywords)
	return m
}
