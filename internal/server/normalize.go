package server

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Typographic apostrophe variants mapped to the ASCII apostrophe, and the
// oe ligature expanded, before diacritics are stripped.
var apostropheReplacer = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"‚", "'",
	"‛", "'",
	"œ", "oe",
	"Œ", "oe",
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	abbrevDsRe   = regexp.MustCompile(`\bds\b`)
	abbrevDpsRe  = regexp.MustCompile(`\bd's\b`)
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText canonicalizes raw user text before any matcher runs:
// lowercase, ASCII apostrophes, oe ligature, diacritics removed, whitespace
// collapsed, "ds" expanded to "dans" as a whole word only. Total and
// idempotent; empty input yields "".
func normalizeText(input string) string {
	s := strings.TrimSpace(input)
	if s == "" {
		return ""
	}
	s = strings.ToLower(s)
	s = apostropheReplacer.Replace(s)
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)
	s = abbrevDsRe.ReplaceAllString(s, "dans")
	s = abbrevDpsRe.ReplaceAllString(s, "dans")
	return s
}
