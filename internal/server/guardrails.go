package server

import (
	"regexp"
	"strings"
)

const (
	maxReplyChars     = 300
	maxReplySentences = 2
)

var (
	sentenceEndRe = regexp.MustCompile(`[.!?]+(\s|$)`)
	sentenceRe    = regexp.MustCompile(`[^.!?]+[.!?]+(\s|$)`)
	// Trailing abbreviations that must not close a sentence.
	abbrevSuffixRe = regexp.MustCompile(`(?i)(?:etc|M|Dr|Mme|Mr|Mlle|Mmes|Mrs)\.\s*$`)
)

// truncateResponse caps the reply at 300 characters, preferring the last
// full sentence boundary inside the cap, then keeps at most two
// sentences. Sentence splitting merges known abbreviations (etc., M.,
// Dr.) into the preceding sentence. Replies with no punctuation only get
// the character cap.
func truncateResponse(text string) string {
	out := strings.TrimSpace(text)
	if out == "" {
		return ""
	}
	if len([]rune(out)) > maxReplyChars {
		truncated := string([]rune(out)[:maxReplyChars])
		if locs := sentenceEndRe.FindAllStringIndex(truncated, -1); len(locs) > 0 {
			last := locs[len(locs)-1]
			out = strings.TrimSpace(truncated[:last[1]])
		} else {
			out = truncated
		}
	}
	return limitSentences(out, maxReplySentences)
}

func limitSentences(text string, max int) string {
	segments := sentenceRe.FindAllString(text, -1)
	if len(segments) == 0 {
		return strings.TrimSpace(text)
	}

	merged := make([]string, 0, len(segments))
	for _, seg := range segments {
		if len(merged) > 0 && abbrevSuffixRe.MatchString(strings.TrimSpace(merged[len(merged)-1])) {
			merged[len(merged)-1] += seg
		} else {
			merged = append(merged, seg)
		}
	}

	if len(merged) > max {
		merged = merged[:max]
	}
	for i, seg := range merged {
		merged[i] = strings.TrimSpace(seg)
	}
	return strings.TrimSpace(strings.Join(merged, " "))
}

// Drift: the generated reply asks "why", gives advice, or goes vague.
// Matched on the raw lowered reply, before normalization.
var driftPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bpourquoi\b`),
	regexp.MustCompile(`\bje\s+pense\b`),
	regexp.MustCompile(`\bvous\s+devriez\b`),
	regexp.MustCompile(`\bvous\s+devez\b`),
	regexp.MustCompile(`\bje\s+vous\s+(conseille|suggère|recommande)\b`),
	regexp.MustCompile(`\bconseil\s*:`),
	regexp.MustCompile(`\bessayez\s+de\s+`),
	regexp.MustCompile(`\bil\s+faut\s+`),
	regexp.MustCompile(`\bil\s+semble\s+que\b`),
	regexp.MustCompile(`\bpréoccupation\b`),
}

func hasDrift(text string) bool {
	if text == "" {
		return false
	}
	return matchAny(driftPatterns, strings.ToLower(text))
}

// Forbidden style triggers the safe-ask fallback directly, with no second
// generation attempt. Matched on normalized text.
var forbiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`c'?est\s+normal\b`),
	regexp.MustCompile(`c'?est\s+frequent\b`),
	regexp.MustCompile(`vous\s+devriez`),
	regexp.MustCompile(`\bil\s+faut\b`),
	regexp.MustCompile(`essayez\s+de\b`),
	regexp.MustCompile(`je\s+pense\b`),
	regexp.MustCompile(`il\s+semble\b`),
	regexp.MustCompile(`consultez\b`),
	regexp.MustCompile(`professionnel\s+de\s+sante\b`),
}

func isForbiddenStyle(reply string) bool {
	return matchAny(forbiddenStylePatterns, normalizeText(reply))
}

// Mode inference from the reply surface. REPAIR is never inferred here;
// it only comes from the local alliance generator.
var stabilizePatterns = []*regexp.Regexp{
	regexp.MustCompile(`restez\s+quelques\s+instants`),
	regexp.MustCompile(`restez\s+un\s+instant`),
	regexp.MustCompile(`laissez\s+cette\s+zone`),
	regexp.MustCompile(`laissez\s+cela\s+etre\s+la`),
	regexp.MustCompile(`gardez\s+l'?attention`),
	regexp.MustCompile(`pendant\s+quelques\s+secondes`),
	regexp.MustCompile(`10\s+secondes`),
}

func detectModeFromReply(reply string) Mode {
	if matchAny(stabilizePatterns, normalizeText(reply)) {
		return ModeStabilize
	}
	return ModeAsk
}
