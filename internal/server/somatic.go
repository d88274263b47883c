package server

import (
	"regexp"
	"strings"
)

// Zone is a body region the user can reference. It is a property of the
// last user utterance that named one, not of the whole conversation.
type Zone string

const (
	ZoneNeck      Zone = "NUQUE_CERVICALES"
	ZoneShoulders Zone = "EPAULES"
	ZoneThroat    Zone = "GORGE"
	ZoneChest     Zone = "POITRINE"
	ZoneBelly     Zone = "VENTRE"
	ZoneJaw       Zone = "MACHOIRE"
	ZoneBack      Zone = "DOS"
	ZoneHead      Zone = "TETE"
	ZoneHands     Zone = "MAINS"
	ZoneLegs      Zone = "JAMBES"
)

type zonePattern struct {
	re   *regexp.Regexp
	zone Zone
}

// Ordered, first match wins: more specific terms ("cervicales") before
// generic ones.
var zonePatterns = []zonePattern{
	{regexp.MustCompile(`cervicale?s?\b`), ZoneNeck},
	{regexp.MustCompile(`nuque\b`), ZoneNeck},
	{regexp.MustCompile(`gorge\b`), ZoneThroat},
	{regexp.MustCompile(`poitrine\b`), ZoneChest},
	{regexp.MustCompile(`thorax\b`), ZoneChest},
	{regexp.MustCompile(`ventre\b`), ZoneBelly},
	{regexp.MustCompile(`estomac\b`), ZoneBelly},
	{regexp.MustCompile(`epaules?\b`), ZoneShoulders},
	{regexp.MustCompile(`machoire\b`), ZoneJaw},
	{regexp.MustCompile(`dos\b`), ZoneBack},
	{regexp.MustCompile(`tete\b`), ZoneHead},
	{regexp.MustCompile(`crane\b`), ZoneHead},
	{regexp.MustCompile(`mains?\b`), ZoneHands},
	{regexp.MustCompile(`jambes?\b`), ZoneLegs},
}

func detectSomaticZone(text string) (Zone, bool) {
	norm := normalizeText(text)
	if norm == "" {
		return "", false
	}
	for _, p := range zonePatterns {
		if p.re.MatchString(norm) {
			return p.zone, true
		}
	}
	return "", false
}

// Internal-sensation cues. "mal" / "douleur" are deliberately absent:
// generic pain vocabulary is mechanical, not a regulation cue.
var internalCuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\btension\b`),
	regexp.MustCompile(`serr(e|ee|es?)`),
	regexp.MustCompile(`\bpression\b`),
	regexp.MustCompile(`appuie\b`),
	regexp.MustCompile(`oppressant`),
	regexp.MustCompile(`noeud\b`),
	regexp.MustCompile(`\bboule\b`),
	regexp.MustCompile(`\bblocage\b`),
	regexp.MustCompile(`contracte\b`),
	regexp.MustCompile(`crispe\b`),
	regexp.MustCompile(`brul(e|ant|ante)`),
	regexp.MustCompile(`engourdie?`),
	regexp.MustCompile(`ca se sent`),
	regexp.MustCompile(`je sens\b`),
	regexp.MustCompile(`\blourde?\b`),
	regexp.MustCompile(`\btendue?\b`),
	regexp.MustCompile(`\braide\b`),
}

func hasInternalCue(text string) bool {
	norm := normalizeText(text)
	if norm == "" {
		return false
	}
	for _, re := range internalCuePatterns {
		if re.MatchString(norm) {
			return true
		}
	}
	return false
}

var cueReferenceWords = []string{"tension", "serre", "pression", "noeud"}

const (
	maxCueWordLen  = 8
	maxFuzzyTokens = 20
)

var fuzzyPunctReplacer = strings.NewReplacer(".", " ", ",", " ", ";", " ", ":", " ", "!", " ", "?", " ")

// hasInternalCueFuzzy recovers typo'd cue words ("tention", "noued")
// without a network round-trip: any of the first 20 tokens within edit
// distance 1 of a reference cue. Input must already be normalized.
func hasInternalCueFuzzy(normText string) bool {
	if normText == "" {
		return false
	}
	tokens := strings.Fields(fuzzyPunctReplacer.Replace(strings.ToLower(normText)))
	if len(tokens) > maxFuzzyTokens {
		tokens = tokens[:maxFuzzyTokens]
	}
	for _, token := range tokens {
		if len(token) > maxCueWordLen {
			continue
		}
		for _, ref := range cueReferenceWords {
			if levenshtein(token, ref) <= 1 {
				return true
			}
		}
	}
	return false
}

// levenshtein is bounded to short cue words; anything longer than
// maxCueWordLen is treated as infinitely far.
func levenshtein(a, b string) int {
	if len(a) > maxCueWordLen || len(b) > maxCueWordLen {
		return 999
	}
	n, m := len(a), len(b)
	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}
	for i := 1; i <= n; i++ {
		curr[0] = i
		for j := 1; j <= m; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}
	return prev[m]
}

type somaticIntent struct {
	zone    Zone
	hasZone bool
	hasCue  bool
	ok      bool
}

// detectSomaticIntent requires both a body zone and an internal cue.
func detectSomaticIntent(text string) somaticIntent {
	zone, hasZone := detectSomaticZone(text)
	cue := hasInternalCue(text)
	return somaticIntent{
		zone:    zone,
		hasZone: hasZone,
		hasCue:  cue,
		ok:      hasZone && cue,
	}
}

const minLenForSomaticRecovery = 8

// shouldAskClassifierForSomatic: a cue (exact or fuzzy) is present but the
// local zone detection failed, and the text is long enough to bother the
// classifier with.
func shouldAskClassifierForSomatic(normText string, intentOK bool) bool {
	if normText == "" {
		return false
	}
	hasCue := hasInternalCue(normText) || hasInternalCueFuzzy(normText)
	return hasCue && !intentOK && len(normText) >= minLenForSomaticRecovery
}

// Micro-exploration axes: one question per turn, one axis among
// localisation, quality, movement.
var microAxes = []string{
	"Plutôt centre ou bord ?",
	"Plutôt serré, lourd, chaud ou vide ?",
	"Stable ou ça bouge un peu ?",
}

var microQTypes = []QuestionType{
	QTypeSomaticShape,
	QTypeSomaticQuality,
	QTypeSomaticMove,
}

func makeSomaticReply(userText string, avoid map[QuestionType]struct{}) Reply {
	seed := strings.TrimSpace(userText)
	if seed == "" {
		seed = "micro"
	}
	idx := int(stableHash(seed) % uint32(len(microAxes)))
	for tried := 0; tried < len(microAxes); tried++ {
		if _, skip := avoid[microQTypes[idx]]; skip {
			idx = (idx + 1) % len(microAxes)
			continue
		}
		break
	}
	return Reply{
		Text: microAxes[idx],
		Mode: ModeAsk,
		Meta: &ReplyMeta{QType: microQTypes[idx]},
	}
}

// Free-form zone strings returned by the classifier mapped onto the enum;
// unmapped strings fall through to generation.
var classifierZoneMap = map[string]Zone{
	"gorge":      ZoneThroat,
	"ventre":     ZoneBelly,
	"estomac":    ZoneBelly,
	"poitrine":   ZoneChest,
	"thorax":     ZoneChest,
	"nuque":      ZoneNeck,
	"cervicales": ZoneNeck,
	"epaules":    ZoneShoulders,
	"machoire":   ZoneJaw,
	"dos":        ZoneBack,
	"tete":       ZoneHead,
	"crane":      ZoneHead,
	"mains":      ZoneHands,
	"jambes":     ZoneLegs,
}

func mapClassifierZone(zoneText string) (Zone, bool) {
	key := lowerTrim(zoneText)
	if key == "" {
		return "", false
	}
	zone, ok := classifierZoneMap[key]
	return zone, ok
}
