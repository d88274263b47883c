package server

import "strings"

// Mode labels what kind of turn the reply is.
type Mode string

const (
	ModeAsk       Mode = "ASK"
	ModeRepair    Mode = "REPAIR"
	ModeStabilize Mode = "STABILIZE"
	ModeEndChoice Mode = "END_CHOICE"
	ModeEnded     Mode = "ENDED"
)

type ReplyMeta struct {
	QType     QuestionType `json:"qtype,omitempty"`
	EndChoice bool         `json:"endChoice,omitempty"`
}

// Reply is the single outcome of one turn.
type Reply struct {
	Text         string         `json:"reply"`
	Mode         Mode           `json:"mode"`
	Meta         *ReplyMeta     `json:"meta,omitempty"`
	Session      *SessionMemory `json:"session,omitempty"`
	ResetSession bool           `json:"resetSession,omitempty"`
	ShouldPause  bool           `json:"shouldPause,omitempty"`
}

// stableHash makes template selection deterministic: same input, same
// template. Matches h = h*31 + c over the raw bytes.
func stableHash(s string) uint32 {
	var h uint32
	for i := 0; i < len(s); i++ {
		h = h*31 + uint32(s[i])
	}
	return h
}

func hashSeed(userText, fallback string) string {
	if seed := strings.TrimSpace(userText); seed != "" {
		return seed
	}
	return fallback
}

// Alliance repair: one relational sentence plus a simple two-option
// choice. No advice verbs, one question mark at most.
var repairTemplates = []string{
	"Je ne me moque pas de vous. Dites juste en 3 mots ce qui est le plus dur là.",
	"Je vous lis. On reste sur ce que vous ressentez, ou on cherche une zone du corps 1% plus neutre ?",
	"J'entends que ça ne passe pas. Vous préférez que je sois plus direct (très court) ou plus guidant (1 question) ?",
	"Je ne me moque pas de vous. On reste sur ce que vous ressentez, ou on cherche une zone du corps 1% plus neutre ?",
	"Je vous lis. Dites juste en 3 mots ce qui est le plus dur là.",
	"J'entends que ça ne passe pas. Dites juste en 3 mots ce qui est le plus dur là.",
}

func makeAllianceReply(userText string) Reply {
	idx := int(stableHash(hashSeed(userText, "repair")) % uint32(len(repairTemplates)))
	return Reply{Text: repairTemplates[idx], Mode: ModeRepair}
}

// Stagnation: acknowledge the impasse, then a choice of two options.
var stagnationTemplates = []string{
	"Ok, pour l'instant ça ne bouge pas. Décrivez la sensation en 2 mots (ex: serré, lourd, chaud) ?",
	"D'accord, ça ne change pas. Cherchez ailleurs une zone 1% plus neutre et dites laquelle ?",
	"Ok, pour l'instant ça ne bouge pas. Cherchez ailleurs une zone 1% plus neutre et dites laquelle ?",
	"D'accord, ça ne change pas. Décrivez la sensation en 2 mots (ex: serré, lourd, chaud) ?",
	"D'accord, impasse pour l'instant. Décrivez la sensation en 2 mots (ex: serré, lourd) ?",
	"Ok, ça ne bouge pas là. Vous préférez décrire en 2 mots ou chercher une zone un peu plus neutre ?",
}

var stagnationQTypes = []QuestionType{
	QTypeStagTwoWords,
	QTypeStagNeutral,
	QTypeStagNeutral,
	QTypeStagTwoWords,
	QTypeStagTwoWords,
	QTypeStagChoice,
}

const stagnationImpasseReply = "D'accord, on peut arrêter ici pour le moment."

// makeStagnationImpasseReply offers to stop instead of relaunching.
func makeStagnationImpasseReply() Reply {
	return Reply{Text: stagnationImpasseReply, Mode: ModeEndChoice}
}

// makeStagnationReply picks a stagnation template by stable hash, skipping
// avoided qtypes circularly. allowNeutralZone=false removes the
// neutral-zone variants entirely (never offered twice in a row, and only
// under overwhelm). When no candidate survives, falls back to the impasse
// end offer.
func makeStagnationReply(userText string, avoid map[QuestionType]struct{}, allowNeutralZone bool) Reply {
	indices := make([]int, 0, len(stagnationTemplates))
	for i := range stagnationTemplates {
		if !allowNeutralZone && stagnationQTypes[i] == QTypeStagNeutral {
			continue
		}
		indices = append(indices, i)
	}
	if len(indices) == 0 {
		return makeStagnationImpasseReply()
	}
	idx := int(stableHash(hashSeed(userText, "stagnation")) % uint32(len(indices)))
	for tried := 0; tried < len(indices); tried++ {
		i := indices[idx]
		qtype := stagnationQTypes[i]
		if _, skip := avoid[qtype]; skip {
			idx = (idx + 1) % len(indices)
			continue
		}
		return Reply{
			Text: stagnationTemplates[i],
			Mode: ModeAsk,
			Meta: &ReplyMeta{QType: qtype},
		}
	}
	return makeStagnationImpasseReply()
}
