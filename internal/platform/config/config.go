// Package config reads typed settings from prefixed environment variables,
// e.g. config.New().Prefix("CORE_TRENDS_").MayDuration("PACE", time.Second).
// Bad optional values log and fall back; bad required ones panic at startup.
package config

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"trendsetl/internal/platform/config/raw"
	"trendsetl/internal/platform/logger"
)

// Conf is a prefixed view over the environment
type Conf struct{ env raw.Conf }

// New returns the unprefixed view over the process environment
func New() Conf { return Conf{env: raw.New()} }

// FromMap returns an unprefixed view over m, for tests and embedded defaults
func FromMap(m map[string]string) Conf { return Conf{env: raw.FromMap(m)} }

// Prefix narrows the view, e.g. Prefix("SERVICE_PGSQL_")
func (c Conf) Prefix(p string) Conf { return Conf{env: c.env.Prefix(p)} }

func (c Conf) key(k string) string { return c.env.Key(k) }

func (c Conf) lookup(k string) string { return c.env.Get(k, "") }

// Has reports whether key holds a non-blank value
func (c Conf) Has(key string) bool { return c.lookup(key) != "" }

// MustString returns key's value and panics when it is blank
func (c Conf) MustString(key string) string {
	v := c.lookup(key)
	if v == "" {
		logger.Get().Panic().Str("key", c.key(key)).Msg("missing required env")
	}
	return v
}

// MustJSON decodes key's JSON document into dst, panicking when it is missing
// or malformed. The document is never logged since it usually holds credentials.
func (c Conf) MustJSON(key string, dst any) {
	if err := json.Unmarshal([]byte(c.MustString(key)), dst); err != nil {
		logger.Get().Panic().Str("key", c.key(key)).Err(err).Msg("invalid JSON document")
	}
}

// MayString returns key's value or def
func (c Conf) MayString(key, def string) string {
	if v := c.lookup(key); v != "" {
		return v
	}
	return def
}

// may parses key with parse; blank gives def, a parse failure warns and gives def
func may[T any](c Conf, key string, def T, kind string, parse func(string) (T, error)) T {
	s := c.lookup(key)
	if s == "" {
		return def
	}
	v, err := parse(s)
	if err != nil {
		logger.Get().Warn().Str("key", c.key(key)).Str("value", s).Interface("default", def).Msgf("invalid %s; using default", kind)
		return def
	}
	return v
}

// MayInt returns key as an int or def
func (c Conf) MayInt(key string, def int) int { return may(c, key, def, "int", strconv.Atoi) }

// MayBool returns key as a bool (strconv.ParseBool spellings) or def
func (c Conf) MayBool(key string, def bool) bool {
	return may(c, key, def, "bool", strconv.ParseBool)
}

// MayDuration returns key as a time.Duration or def
func (c Conf) MayDuration(key string, def time.Duration) time.Duration {
	return may(c, key, def, "duration", time.ParseDuration)
}

// MayIntIn is MayInt clamped into [lo, hi]; a clamped value warns
func (c Conf) MayIntIn(key string, def, lo, hi int) int {
	v := c.MayInt(key, def)
	clamped := min(max(v, lo), hi)
	if clamped != v {
		logger.Get().Warn().Str("key", c.key(key)).Int("value", v).Int("clamped", clamped).Msg("int out of range; clamping")
	}
	return clamped
}

// MayCSV splits key on commas, dropping blanks; def when nothing is left
func (c Conf) MayCSV(key string, def []string) []string {
	var out []string
	for p := range strings.SplitSeq(c.lookup(key), ",") {
		if v := strings.TrimSpace(p); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

// MayEnum returns key (or def) matched case-insensitively against allowed, in
// allowed's spelling lower-cased. Anything else panics; a blank def may stay blank.
func (c Conf) MayEnum(key, def string, allowed ...string) string {
	v := c.MayString(key, def)
	if v == "" {
		return v
	}
	for _, a := range allowed {
		if strings.EqualFold(v, a) {
			return strings.ToLower(a)
		}
	}
	logger.Get().Panic().Str("key", c.key(key)).Str("value", v).Strs("allowed", allowed).Msg("invalid enum value")
	return ""
}
