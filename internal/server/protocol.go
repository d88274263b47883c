package server

import "regexp"

// ProtocolState is the strictly linear conversational protocol:
// REFLECT → BODY_ORIENT → STABILIZE → CHECK → END_CHOICE → ENDED.
// No backward transition except the explicit reset to REFLECT.
type ProtocolState string

const (
	StateReflect    ProtocolState = "REFLECT"
	StateBodyOrient ProtocolState = "BODY_ORIENT"
	StateStabilize  ProtocolState = "STABILIZE"
	StateCheck      ProtocolState = "CHECK"
	StateEndChoice  ProtocolState = "END_CHOICE"
	StateEnded      ProtocolState = "ENDED"
)

// SessionMemory is derived, never stored server-side: the caller either
// passes it back verbatim or it is rebuilt from the message list.
type SessionMemory struct {
	State          ProtocolState `json:"state"`
	LastBodyZone   Zone          `json:"lastBodyZone,omitempty"`
	LastPromptType QuestionType  `json:"lastPromptType,omitempty"`
	RepeatCounter  int           `json:"repeatCounter"`
}

func emptySession() SessionMemory {
	return SessionMemory{State: StateReflect}
}

// Explicit stop phrasing only. "n'arrête pas" (rumination) must not match.
var endIntentionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bje\s+veux\s+arreter\b`),
	regexp.MustCompile(`\bje\s+veux\s+terminer\b`),
	regexp.MustCompile(`\bon\s+arrete\b`),
	regexp.MustCompile(`\bstop\b`),
	regexp.MustCompile(`\btermine\b`),
	regexp.MustCompile(`\bfinir\b`),
	regexp.MustCompile(`\bc'est\s+tout\b`),
	regexp.MustCompile(`^(fin|arrete|termine)\s*[.!?]*$`),
}

func detectEndIntention(text string) bool {
	return matchAny(endIntentionPatterns, normalizeText(text))
}

// Complaints about repeated questioning, or insults aimed at the
// assistant. Routed to an end offer, never to a retry.
var repetitionComplaintPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bca\s+tourne\s+en\s+rond\b`),
	regexp.MustCompile(`\barrete\s+de\s+te\s+repeter\b`),
	regexp.MustCompile(`\btu\s+te\s+repetes?\b`),
	regexp.MustCompile(`\bmeme\s+question\b`),
	regexp.MustCompile(`\btoujours\s+la\s+meme\b`),
	regexp.MustCompile(`\b(tu\s+es|t'es)\s+nul(le)?\b`),
	regexp.MustCompile(`\bdegage\b`),
	regexp.MustCompile(`\bcon\b`),
	regexp.MustCompile(`\bidiote?\b`),
}

func detectRepetitionComplaint(text string) bool {
	return matchAny(repetitionComplaintPatterns, normalizeText(text))
}

var nothingFeltPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bje\s+ne\s+sens\s+rien\b`),
	regexp.MustCompile(`\brien\s+du\s+tout\b`),
	regexp.MustCompile(`\bje\s+sens\s+rien\b`),
	regexp.MustCompile(`\baucune\s+sensation\b`),
}

func detectNothingFelt(text string) bool {
	return matchAny(nothingFeltPatterns, normalizeText(text))
}

// Overwhelm relaxes the neutral-zone anti-repetition rule for one turn.
var overwhelmPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\binsupportable\b`),
	regexp.MustCompile(`\btrop\s+(dur|fort|intense)\b`),
	regexp.MustCompile(`\bje\s+peux\s+pas\b`),
	regexp.MustCompile(`\bj'y\s+arrive\s+pas\b`),
	regexp.MustCompile(`\bc'est\s+trop\b`),
}

func detectOverwhelm(text string) bool {
	return matchAny(overwhelmPatterns, normalizeText(text))
}

// Fixed protocol replies.
const (
	nothingFeltReply = "C'est fréquent au début. Regardez simplement : mâchoire, épaules, poitrine ou ventre — y a-t-il une zone un peu plus tendue ?"

	repetitionEndChoiceReply = "D'accord, on peut arrêter ici pour le moment."

	endedReply = "On s'arrête là. Revenez quand vous voulez."

	endChoiceReply = "Voulez-vous continuer ou terminer pour le moment ?"

	checkReply = "Est-ce un peu plus calme qu'au début ?"

	stabilizeReply = "Restez quelques instants avec cette sensation."

	bodyOrientReply = "Remarquez où cela se sent dans votre corps."
)

// lastBodyZoneFromMessages walks history backwards for the most recent
// user message naming a zone.
func lastBodyZoneFromMessages(messages []ChatMessage) (Zone, bool) {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != "user" {
			continue
		}
		if zone, ok := detectSomaticZone(m.Content); ok {
			return zone, true
		}
	}
	return "", false
}

// repeatCounterFromMessages counts the contiguous trailing run of
// identical assistant qtypes; any different qtype breaks the run.
func repeatCounterFromMessages(messages []ChatMessage) int {
	if len(messages) < 2 {
		return 0
	}
	count := 0
	var last QuestionType
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role != "assistant" || m.Meta == nil || m.Meta.QType == "" {
			continue
		}
		if last == "" {
			last = m.Meta.QType
		}
		if m.Meta.QType == last {
			count++
		} else {
			break
		}
	}
	return count
}

// buildSessionFromMessages rebuilds the working session from history.
// clientState, when supplied, wins over the derived default.
func buildSessionFromMessages(messages []ChatMessage, clientState ProtocolState) SessionMemory {
	zone, _ := lastBodyZoneFromMessages(messages)
	state := clientState
	if state == "" {
		state = StateReflect
	}
	return SessionMemory{
		State:          state,
		LastBodyZone:   zone,
		LastPromptType: lastAssistantQType(messages),
		RepeatCounter:  repeatCounterFromMessages(messages),
	}
}
