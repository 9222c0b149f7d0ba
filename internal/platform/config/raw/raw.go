// Package raw reads bootstrap settings straight from the environment.
// The logger depends on it, so it must not log.
package raw

import (
	"os"
	"strconv"
	"strings"
)

// Conf is a prefixed env view; the zero value reads unprefixed keys
type Conf struct {
	prefix string
	lookup func(string) (string, bool)
}

// New returns the root view over the process environment
func New() Conf { return Conf{lookup: os.LookupEnv} }

// FromMap returns a root view over m instead of the environment
func FromMap(m map[string]string) Conf {
	return Conf{lookup: func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}}
}

// Prefix narrows the view, e.g. raw.New().Prefix("LOG_")
func (c Conf) Prefix(p string) Conf { return Conf{prefix: c.prefix + p, lookup: c.lookup} }

// Key returns the full variable name for key
func (c Conf) Key(key string) string { return c.prefix + key }

func (c Conf) value(key string) string {
	look := c.lookup
	if look == nil {
		look = os.LookupEnv
	}
	v, _ := look(c.prefix + key)
	return strings.TrimSpace(v)
}

// Get returns the value or def when unset or blank
func (c Conf) Get(key, def string) string {
	if v := c.value(key); v != "" {
		return v
	}
	return def
}

// GetBool accepts 1/true/yes/on in any case; unset falls back to def,
// anything else is false
func (c Conf) GetBool(key string, def bool) bool {
	switch strings.ToLower(c.value(key)) {
	case "":
		return def
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// GetInt returns a non-negative integer or def when unset or unparsable
func (c Conf) GetInt(key string, def int) int {
	n, err := strconv.Atoi(c.value(key))
	if err != nil || n < 0 {
		return def
	}
	return n
}
