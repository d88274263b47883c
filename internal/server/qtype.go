package server

import "regexp"

// QuestionType tags the structural shape of an assistant question. It is
// used only to avoid asking the same-shaped question twice in a row, never
// to pick content.
type QuestionType string

const (
	QTypeAnchor         QuestionType = "DQ_ANCHOR"
	QTypeIntensity      QuestionType = "DQ_INTENSITY"
	QTypeOneWord        QuestionType = "DQ_ONE_WORD"
	QTypeHeadBody       QuestionType = "DQ_HEAD_BODY"
	QTypeLocationChoice QuestionType = "DQ_LOCATION_CHOICE"
	QTypeTime           QuestionType = "RP_TIME"
	QTypeModality       QuestionType = "RP_MODALITY"
	QTypeLabel          QuestionType = "ED_LABEL"
	QTypeLocation       QuestionType = "ED_LOCATION"
	QTypeSomaticQuality QuestionType = "SOMATIC_QUALITY"
	QTypeSomaticMove    QuestionType = "SOMATIC_MOVEMENT"
	QTypeSomaticShape   QuestionType = "SOMATIC_SHAPE"
	QTypeSomaticBreath  QuestionType = "SOMATIC_BREATH"
	QTypeStagTwoWords   QuestionType = "STAG_TWO_WORDS"
	QTypeStagNeutral    QuestionType = "STAG_NEUTRAL_ZONE"
	QTypeStagChoice     QuestionType = "STAG_CHOICE"
	QTypeGenericAsk     QuestionType = "GENERIC_ASK"
)

type MessageMeta struct {
	QType QuestionType `json:"qtype,omitempty"`
}

type ChatMessage struct {
	Role    string       `json:"role"`
	Content string       `json:"content"`
	Meta    *MessageMeta `json:"meta,omitempty"`
}

// lastAssistantQType scans from the end and returns the qtype recorded on
// the nearest assistant message, or "".
func lastAssistantQType(messages []ChatMessage) QuestionType {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == "assistant" && m.Meta != nil && m.Meta.QType != "" {
			return m.Meta.QType
		}
	}
	return ""
}

// avoidSetFromLast suppresses only immediate repetition: the set holds at
// most the single most recent assistant qtype.
func avoidSetFromLast(messages []ChatMessage) map[QuestionType]struct{} {
	avoid := map[QuestionType]struct{}{}
	if last := lastAssistantQType(messages); last != "" {
		avoid[last] = struct{}{}
	}
	return avoid
}

var (
	inferIntensityRe  = regexp.MustCompile(`\bintensite\b|0\s*[-–]\s*10|1\s+a\s+5|1\s+à\s+5`)
	inferWhereRe      = regexp.MustCompile(`ou\s+ca\b|où\s+ça\b`)
	inferWhereZonesRe = regexp.MustCompile(`gorge|poitrine|ventre|nuque`)
	inferModalityRe   = regexp.MustCompile(`\bimage\b|\bmots\b|\bsensation\b`)
	inferTimeRe       = regexp.MustCompile(`\bdepuis\s+combien\b|\bmoment\s+de\s+la\s+journee\b|\bmoment\s+de\s+la\s+journée\b`)
	inferQualityRe    = regexp.MustCompile(`\bserr(e|ee|es?)\b|\blourd\b|\bchaud\b|\bbrulant\b|\bengourdi\b|\bblocage\b`)
	inferMovementRe   = regexp.MustCompile(`\bpulse\b|\bvibre\b|\bbouge\b|\bfige\b|\bimmobile\b|\bfixe\b`)
	inferShapeRe      = regexp.MustCompile(`\bpoint\b|\bbarre\b|\bbande\b|\bzone\s+(plus\s+)?large\b|\bzone\s+diffuse\b`)
	inferBreathRe     = regexp.MustCompile(`\bexpire\b|\bsoufflant\b|\bexpiration\b`)
	inferTwoWordsRe   = regexp.MustCompile(`decrivez\s+la\s+sensation\s+en\s+2\s+mots`)
	inferNeutralRe    = regexp.MustCompile(`zone\s+1%?\s+plus\s+neutre|\bneutre\b.*\bzone\b`)
	inferChoiceRe     = regexp.MustCompile(`vous\s+preferez\b|vous\s+préferez\b|\.\.\.\s+ou\s+\.\.\.`)
)

// inferQTypeFromReply classifies the surface shape of a generated reply so
// the pipeline can detect that the model repeated the previous question
// shape with different wording.
func inferQTypeFromReply(reply string) QuestionType {
	if reply == "" {
		return QTypeGenericAsk
	}
	lower := lowerTrim(reply)
	switch {
	case inferIntensityRe.MatchString(lower):
		return QTypeIntensity
	case inferWhereRe.MatchString(lower) && inferWhereZonesRe.MatchString(lower):
		return QTypeLocationChoice
	case inferModalityRe.MatchString(lower):
		return QTypeModality
	case inferTimeRe.MatchString(lower):
		return QTypeTime
	case inferQualityRe.MatchString(lower):
		return QTypeSomaticQuality
	case inferMovementRe.MatchString(lower):
		return QTypeSomaticMove
	case inferShapeRe.MatchString(lower):
		return QTypeSomaticShape
	case inferBreathRe.MatchString(lower):
		return QTypeSomaticBreath
	case inferTwoWordsRe.MatchString(lower):
		return QTypeStagTwoWords
	case inferNeutralRe.MatchString(lower):
		return QTypeStagNeutral
	case inferChoiceRe.MatchString(lower):
		return QTypeStagChoice
	default:
		return QTypeGenericAsk
	}
}
