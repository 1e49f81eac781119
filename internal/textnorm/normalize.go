// Package textnorm canonicalizes free text for search keys and fuzzy
// client-side filtering. Server-side matching uses the same function, so the
// substitution table below must not drift.
package textnorm

import (
	"math/big"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// deleted marks a folded rune that is dropped entirely.
const deleted = -1

// foldTable maps typographic variants to their plain equivalents.
var foldTable = map[rune]rune{
	// single quotes, primes
	'\u2018': '\'', '\u2019': '\'', '\u201A': '\'', '\u201B': '\'',
	'\u2032': '\'', '\uFF07': '\'',
	// double quotes
	'\u201C': '"', '\u201D': '"', '\u201E': '"', '\u201F': '"',
	'\u2033': '"', '\uFF02': '"',
	// dashes and minus signs
	'\u2010': '-', '\u2011': '-', '\u2012': '-', '\u2013': '-',
	'\u2014': '-', '\u2015': '-', '\u2212': '-', '\uFE58': '-',
	'\uFE63': '-', '\uFF0D': '-',
	// soft hyphen and zero-width characters
	'\u00AD': deleted, '\u200B': deleted, '\u200C': deleted,
	'\u200D': deleted, '\u2060': deleted, '\uFEFF': deleted,
	// exotic spaces
	'\u00A0': ' ', '\u1680': ' ', '\u2000': ' ', '\u2001': ' ',
	'\u2002': ' ', '\u2003': ' ', '\u2004': ' ', '\u2005': ' ',
	'\u2006': ' ', '\u2007': ' ', '\u2008': ' ', '\u2009': ' ',
	'\u200A': ' ', '\u202F': ' ', '\u205F': ' ', '\u3000': ' ',
}

func fold(r rune) rune {
	if m, ok := foldTable[r]; ok {
		return m
	}
	return r
}

func isApostrophe(r rune) bool {
	return r == '\'' || r == '\u02BC'
}

// strippedScripts are the scripts whose combining marks are treated as
// accents rather than as part of the letter.
var strippedScripts = []*unicode.RangeTable{unicode.Latin, unicode.Greek, unicode.Cyrillic}

// stripDiacritics removes nonspacing marks that sit on a Latin, Greek or
// Cyrillic base and recomposes the rest. Apostrophes are deleted later, so
// they do not end a base's run of marks.
func stripDiacritics(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	strip := false
	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			if !strip {
				b.WriteRune(r)
			}
			continue
		}
		if !isApostrophe(r) {
			strip = unicode.In(r, strippedScripts...)
		}
		b.WriteRune(r)
	}
	return norm.NFC.String(b.String())
}

// Normalize canonicalizes v for matching:
//
//  1. NFKC
//  2. fold quotes, dashes, soft hyphen and exotic spaces (foldTable)
//  3. strip diacritics on Latin, Greek and Cyrillic letters
//  4. lowercase
//  5. delete straight and modifier-letter apostrophes, recomposing what
//     they separated
//  6. collapse whitespace runs to one space
//  7. trim
//
// Strings, byte slices, numbers, booleans, *big.Int and time.Time are
// converted to text first; nil and any other kind yield "". Normalize never
// panics and Normalize(Normalize(x)) == Normalize(x).
func Normalize(v any) string {
	s, ok := toText(v)
	if !ok || s == "" {
		return ""
	}
	return normalizeString(s)
}

func normalizeString(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = norm.NFKC.String(s)
	s = strings.Map(fold, s)
	s = stripDiacritics(s)
	// a Caser keeps state, so one per call
	s = cases.Lower(language.Und).String(s)
	s, _, _ = transform.String(transform.Chain(runes.Remove(runes.Predicate(isApostrophe)), norm.NFC), s)
	return strings.Join(strings.Fields(s), " ")
}

func toText(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case []byte:
		return string(x), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.FormatInt(int64(x), 10), true
	case int8:
		return strconv.FormatInt(int64(x), 10), true
	case int16:
		return strconv.FormatInt(int64(x), 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint8:
		return strconv.FormatUint(uint64(x), 10), true
	case uint16:
		return strconv.FormatUint(uint64(x), 10), true
	case uint32:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case *big.Int:
		if x == nil {
			return "", false
		}
		return x.String(), true
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), true
	case *time.Time:
		if x == nil {
			return "", false
		}
		return x.UTC().Format(time.RFC3339Nano), true
	default:
		return "", false
	}
}

// Tokens returns the space-separated terms of Normalize(v).
func Tokens(v any) []string {
	return strings.Fields(Normalize(v))
}

// MatchAll reports whether every token of query occurs in the normalized
// text. An empty query matches everything.
func MatchAll(text any, query string) bool {
	terms := Tokens(query)
	if len(terms) == 0 {
		return true
	}
	haystack := Normalize(text)
	for _, term := range terms {
		if !strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}
