// Package normalize canonicalises keyword text.
// Clean produces the form sent upstream and stored; Key produces the comparison
// form used to detect duplicates that differ only in case, width, accents or spacing.
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// transformer chains are stateful; the pool keeps Key safe for concurrent use
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKD,                          // split ligatures, fullwidth and accents
			runes.Remove(runes.In(unicode.Mn)), // strip combining marks
			runes.Remove(runes.In(unicode.Cf)), // strip format chars ZWJ ZWNJ FEFF etc
			cases.Fold(),
			width.Fold,
			norm.NFC,
		)
	},
}

// Clean drops control bytes and invalid UTF-8, collapses whitespace runs to one
// space and trims. Case and script are left as written.
func Clean(s string) string {
	if s == "" {
		return ""
	}
	return collapseSpaces(dropControls(strings.ToValidUTF8(s, "")))
}

// dropControls removes C0 controls other than tab, CR and LF, DEL and C1 controls
func dropControls(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '\t', r == '\n', r == '\r':
			return r
		case r < 0x20, r == 0x7f, r >= 0x80 && r <= 0x9f:
			return -1
		}
		return r
	}, s)
}

// Key returns the comparison form of s
func Key(s string) string {
	s = Clean(s)
	if s == "" {
		return ""
	}
	tr := chainPool.Get().(transform.Transformer)
	ks, _, _ := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	return collapseSpaces(ks)
}

// collapseSpaces converts whitespace runs to a single ASCII space and trims the edges
func collapseSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
