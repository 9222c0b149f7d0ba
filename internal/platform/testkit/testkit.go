// Package testkit provides testing helpers
package testkit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func recovered(fn func()) (r any) {
	defer func() { r = recover() }()
	fn()
	return nil
}

// MustPanic asserts that fn panics and returns the recovered value
func MustPanic(t *testing.T, fn func()) any {
	t.Helper()
	r := recovered(fn)
	if r == nil {
		t.Fatalf("expected panic, got none")
	}
	return r
}

// MustNotPanic asserts that fn returns normally
func MustNotPanic(t *testing.T, fn func()) {
	t.Helper()
	if r := recovered(fn); r != nil {
		t.Fatalf("unexpected panic: %v", r)
	}
}

// MustContain fails unless haystack contains needle; long output goes to a temp file
func MustContain(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		if len(haystack) <= 512 {
			t.Fatalf("missing %q in:\n%s", needle, haystack)
		}
		out := filepath.Join(t.TempDir(), "haystack.txt")
		_ = os.WriteFile(out, []byte(haystack), 0o600)
		t.Fatalf("missing %q; %d bytes of output in %s", needle, len(haystack), out)
	}
}

// Fixture reads testdata/<name> relative to the calling package
func Fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read fixture %s: %v", name, err)
	}
	return b
}

// Clock is a settable clock for seams typed func() time.Time
type Clock struct{ now time.Time }

// NewClock returns a Clock frozen at t
func NewClock(t time.Time) *Clock { return &Clock{now: t} }

// Now returns the frozen instant
func (c *Clock) Now() time.Time { return c.now }

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// Swap replaces *target for the duration of the test; the original is restored on cleanup.
// Tests that swap package-level seams must not run in parallel.
func Swap[T any](t *testing.T, target *T, replacement T) {
	t.Helper()
	orig := *target
	*target = replacement
	t.Cleanup(func() { *target = orig })
}
