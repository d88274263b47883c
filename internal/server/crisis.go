package server

import "regexp"

// Explicit or near-explicit self-destructive phrasing, matched on
// normalized text. This is the only accepted source for the self-harm
// category: classifier verdicts are never trusted for it.
var selfHarmPatterns = []*regexp.Regexp{
	regexp.MustCompile(`envie\s+de\s+me\s+faire\s+du\s+mal`),
	regexp.MustCompile(`envie\s+de\s+disparaitre`),
	regexp.MustCompile(`faire\s+une\s+connerie`),
	regexp.MustCompile(`me\s+faire\s+du\s+mal`),
	regexp.MustCompile(`je\s+veux\s+mourir`),
	regexp.MustCompile(`je\s+vais\s+me\s+suicider`),
	regexp.MustCompile(`\bsuicide\b`),
	regexp.MustCompile(`me\s+tuer`),
}

func detectSelfHarm(text string) bool {
	norm := normalizeText(text)
	if norm == "" {
		return false
	}
	for _, re := range selfHarmPatterns {
		if re.MatchString(norm) {
			return true
		}
	}
	return false
}

// Short acknowledgement plus immediate-help orientation (France). The only
// reply that may mention emergency numbers.
const crisisReply = "Je suis désolé que ce soit aussi dur. Si vous risquez de vous faire du mal, appelez le 112 ou le 3114 (France) tout de suite, ou un proche."

func makeCrisisReply() Reply {
	return Reply{Text: crisisReply, Mode: ModeStabilize}
}

// Panic/anxiety vocabulary, disjoint from the self-harm set.
var panicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`je\s+suis\s+en\s+panique`),
	regexp.MustCompile(`suis\s+en\s+panique`),
	regexp.MustCompile(`en\s+panique\b`),
	regexp.MustCompile(`je\s+panique\b`),
	regexp.MustCompile(`trop\s+anxieux`),
	regexp.MustCompile(`trop\s+angoiss`),
}

func detectPanic(text string) bool {
	norm := normalizeText(text)
	if norm == "" {
		return false
	}
	for _, re := range panicPatterns {
		if re.MatchString(norm) {
			return true
		}
	}
	return false
}

// Stricter marker set used to validate a classifier PANIC verdict, so
// rumination mislabeled as panic does not produce a panic-only reply.
var panicMarkerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bpanique\b`),
	regexp.MustCompile(`\bje\s+panique\b`),
	regexp.MustCompile(`\bangoisse\b`),
	regexp.MustCompile(`\banxieux\b`),
	regexp.MustCompile(`\banxieuse\b`),
	regexp.MustCompile(`\btrop\s+anxieux\b`),
	regexp.MustCompile(`\btrop\s+angoisse\b`),
	regexp.MustCompile(`\bcrise\s+d'?angoisse\b`),
}

func hasPanicMarker(normText string) bool {
	if normText == "" {
		return false
	}
	for _, re := range panicMarkerPatterns {
		if re.MatchString(normText) {
			return true
		}
	}
	return false
}

func allowClassifierPanic(normText string, classified classifiedState) bool {
	return classified == classifiedPanic && hasPanicMarker(normText)
}

// allowClassifierSelfHarm always refuses: the self-harm category is
// accepted from the local detector only.
func allowClassifierSelfHarm(_ string, _ classifiedState) bool {
	return false
}

// Short stabilizing reply, no emergency number, no medical language.
const panicReply = "Ok. Juste 10 secondes : sentez l'air qui sort à l'expiration. Est-ce que ça baisse d'1 % ?"

func makePanicReply() Reply {
	return Reply{Text: panicReply, Mode: ModeStabilize}
}
