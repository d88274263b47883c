package server

import (
	"regexp"
	"strings"
)

// Default-quick handles ultra-short inputs locally; the threshold is
// strict so ambiguous phrasing still reaches the full pipeline.
const maxQuickNormalizedLen = 12

var quickAllowed = map[string]struct{}{
	"ok":          {},
	"okay":        {},
	"…":           {},
	"...":         {},
	"help":        {},
	"aide":        {},
	"j'aide":      {},
	"je sais pas": {},
	"jsp":         {},
	"?":           {},
	"hein":        {},
}

var quickStopwords = map[string]struct{}{
	"le": {}, "la": {}, "les": {}, "un": {}, "une": {}, "des": {}, "du": {},
	"de": {}, "et": {}, "ou": {}, "mais": {}, "je": {}, "tu": {}, "il": {},
	"elle": {}, "on": {}, "nous": {}, "vous": {}, "ils": {}, "elles": {},
	"ce": {}, "ca": {}, "pas": {}, "ne": {}, "en": {}, "y": {}, "a": {},
	"est": {}, "sont": {}, "suis": {}, "es": {}, "sommes": {}, "etes": {},
	"ai": {}, "as": {}, "avons": {}, "avez": {}, "ont": {}, "m": {},
	"l": {}, "d": {}, "n": {}, "s": {}, "j": {}, "t": {},
}

func countNonStopwords(normalized string) int {
	count := 0
	for _, w := range strings.Fields(normalized) {
		if _, stop := quickStopwords[w]; !stop {
			count++
		}
	}
	return count
}

var (
	ellipsisRe = regexp.MustCompile(`^\.\.\.+$`)
	dotsRuneRe = regexp.MustCompile(`^…+$`)
	bareAskRe  = regexp.MustCompile(`^\s*\?\s*$`)
)

// isDefaultQuick is true only for inputs below the strict length and
// word-count threshold that sit in the allow-list (or are pure
// ellipsis / a bare question mark).
func isDefaultQuick(text string) bool {
	normalized := normalizeText(text)
	if len(normalized) > maxQuickNormalizedLen {
		return false
	}
	if countNonStopwords(normalized) > 2 {
		return false
	}
	if _, ok := quickAllowed[normalized]; ok {
		return true
	}
	if ellipsisRe.MatchString(normalized) || dotsRuneRe.MatchString(normalized) {
		return true
	}
	return bareAskRe.MatchString(normalized)
}

type quickTemplate struct {
	qtype QuestionType
	reply string
}

var quickTemplates = []quickTemplate{
	{QTypeHeadBody, "Ok. C'est surtout dans la tête, dans le corps, ou les deux ?"},
	{QTypeIntensity, "Ok. Intensité là, de 1 à 5 ?"},
	{QTypeOneWord, "Ok. Un seul mot pour ce qui est là ?"},
	{QTypeLocationChoice, "Ok. Où ça serre le plus : gorge, poitrine, ventre ou nuque ?"},
	{QTypeAnchor, "Ok. En une phrase : qu'est-ce qui tourne le plus là ?"},
}

// pickDefaultQuickReply chooses a quick template deterministically from
// the normalized text, filtering the avoid set first; if nothing
// survives the filter, the full pool is used.
func pickDefaultQuickReply(text string, avoid map[QuestionType]struct{}) Reply {
	normalized := normalizeText(text)
	pool := quickTemplates
	if len(avoid) > 0 {
		filtered := make([]quickTemplate, 0, len(quickTemplates))
		for _, t := range quickTemplates {
			if _, skip := avoid[t.qtype]; !skip {
				filtered = append(filtered, t)
			}
		}
		if len(filtered) > 0 {
			pool = filtered
		}
	}
	seed := normalized
	if seed == "" {
		seed = "ok"
	}
	chosen := pool[int(stableHash(seed)%uint32(len(pool)))]
	return Reply{
		Text: chosen.reply,
		Mode: ModeAsk,
		Meta: &ReplyMeta{QType: chosen.qtype},
	}
}

// makeSafeAskReply is the deterministic neutralizer used whenever a
// generated reply is rejected or a remote call fails. Body-oriented, no
// cognitive question, no forbidden word.
func makeSafeAskReply() Reply {
	return Reply{Text: bodyOrientReply, Mode: ModeAsk}
}
