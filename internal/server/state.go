package server

import (
	"regexp"
	"strings"
)

// conversationState is the per-turn local classification of the last user
// utterance. Priority: ALLIANCE_REPAIR > STAGNATION > SOMATIC_ACTIVE >
// DEFAULT.
type conversationState string

const (
	stateDefault        conversationState = "DEFAULT"
	stateAllianceRepair conversationState = "ALLIANCE_REPAIR"
	stateSomaticActive  conversationState = "SOMATIC_ACTIVE"
	stateStagnation     conversationState = "STAGNATION"
)

// User attacks the assistant or feels unheard.
var alliancePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\btu\s*m'\s*ecoutes?\s+pas\b`),
	regexp.MustCompile(`\bt'\s*ecoutes?\s+pas\b`),
	regexp.MustCompile(`\btu\s*m'\s*ecoutes?\b`),
	regexp.MustCompile(`oui\s+et\s*\?*\s*$`),
	regexp.MustCompile(`\btu\s*m'\s*entends?\s+pas\b`),
	regexp.MustCompile(`\bt'\s*entends?\s+pas\b`),
	regexp.MustCompile(`\btu\s+comprends?\s+(pas|rien)\b`),
	regexp.MustCompile(`ecoute\s*[- ]?moi\b`),
	regexp.MustCompile(`\btu\s+fais\s+rien\b`),
	regexp.MustCompile(`ca\s+aide\s+pas\b`),
	regexp.MustCompile(`\bt'es\s+nul(le)?\b`),
	regexp.MustCompile(`\b(il|tu)\s+faut\s+(que\s+)?tu\s+m'\s*ecoutes?\b`),
	regexp.MustCompile(`\btu\s+te\s+fous\s+de\s+moi\b`),
}

func isAllianceRepair(normalized string) bool {
	return matchAny(alliancePatterns, normalized)
}

// User named a body zone, with or without a cue word.
var somaticStatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(poitrine|ventre|gorge|epaules|machoire)\b`),
	regexp.MustCompile(`\b(dos|nuque|estomac|front|joues)\b`),
	regexp.MustCompile(`\bdans\s+(la\s+)?(poitrine|gorge|machoire)\b`),
	regexp.MustCompile(`\bdans\s+(le\s+)?(ventre|dos|corps)\b`),
	regexp.MustCompile(`\b(a|aux?)\s+(la\s+)?(gorge|poitrine|nuque)\b`),
	regexp.MustCompile(`\b(a|aux?)\s+(les\s+)?(epaules|joues)\b`),
	regexp.MustCompile(`\btension\s+(dans|a)\s+`),
	regexp.MustCompile(`\b(ca\s+)?(se\s+)?sent\s+(dans|a)\s+`),
	regexp.MustCompile(`\bserre\s+(dans|a)\s+`),
}

func isSomaticActive(normalized string) bool {
	return matchAny(somaticStatePatterns, normalized)
}

// "Nothing helps / nothing changes" phrasing.
var stagnationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`ca\s+sert\s+a\s+rien\b`),
	regexp.MustCompile(`\bet\s+alors\s*\??\s*$`),
	regexp.MustCompile(`\baucun\s+changement\b`),
	regexp.MustCompile(`ca\s+(ne\s+)?change\s+rien\b`),
	regexp.MustCompile(`\btoujours\s+pareil\b`),
	regexp.MustCompile(`\brien\s+ne\s+change\b`),
	regexp.MustCompile(`\btoujours\s+pas\s+(mieux)?\b`),
	regexp.MustCompile(`\b(pareil|identique)\s*\.?\s*$`),
}

func isStagnation(normalized string) bool {
	return matchAny(stagnationPatterns, normalized)
}

// Rumination markers veto stagnation: "ça tourne en boucle" is a loop, not
// an impasse.
var ruminationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bje\s+pense\b`),
	regexp.MustCompile(`\bje\s+rumine\b`),
	regexp.MustCompile(`\bca\s+tourne\b`),
	regexp.MustCompile(`\btourne\s+en\s+boucle\b`),
	regexp.MustCompile(`\bobsede\b`),
	regexp.MustCompile(`\bscenarios\b`),
	regexp.MustCompile(`\bj'?\s*arrete\s+pas\s+de\s+penser\b`),
}

func isRuminationMarker(normalized string) bool {
	return matchAny(ruminationPatterns, normalized)
}

func matchAny(patterns []*regexp.Regexp, text string) bool {
	if text == "" {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// lastUserContent returns the most recent user message, trimmed.
func lastUserContent(messages []ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			if content := strings.TrimSpace(messages[i].Content); content != "" {
				return content
			}
		}
	}
	return ""
}

func detectState(messages []ChatMessage) conversationState {
	lastUser := lastUserContent(messages)
	if lastUser == "" {
		return stateDefault
	}
	norm := normalizeText(lastUser)
	switch {
	case isAllianceRepair(norm):
		return stateAllianceRepair
	case isStagnation(norm) && !isRuminationMarker(norm):
		return stateStagnation
	case isSomaticActive(norm):
		return stateSomaticActive
	default:
		return stateDefault
	}
}
