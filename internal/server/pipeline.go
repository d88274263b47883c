package server

import (
	"context"
	"log"
	"regexp"
	"strings"
	"time"
)

// turnContext carries everything the gates need, computed once per turn.
type turnContext struct {
	messages       []ChatMessage
	lastUser       string
	norm           string
	session        SessionMemory
	lastBodyZone   Zone
	hasBodyZone    bool
	repeatCounter  int
	lastPromptType QuestionType
	avoid          map[QuestionType]struct{}
	state          conversationState
	intent         somaticIntent
}

// gate inspects the turn and either produces the final reply or passes.
type gate struct {
	name string
	run  func(p *Pipeline, ctx context.Context, tc *turnContext) (Reply, bool)
}

// Pipeline decides each turn: local safety and protocol gates first, then
// the remote classifier, then generation behind the guardrails. Gates run
// in a fixed order and the first match wins.
type Pipeline struct {
	ai            AIClient
	classifier    *Classifier
	chatModel     string
	chatMaxTokens int
	chatTimeout   time.Duration
	gates         []gate
}

func NewPipeline(ai AIClient, classifier *Classifier, chatModel string, chatMaxTokens int, chatTimeout time.Duration) *Pipeline {
	if chatMaxTokens <= 0 {
		chatMaxTokens = 120
	}
	if chatTimeout <= 0 {
		chatTimeout = 8 * time.Second
	}
	p := &Pipeline{
		ai:            ai,
		classifier:    classifier,
		chatModel:     chatModel,
		chatMaxTokens: chatMaxTokens,
		chatTimeout:   chatTimeout,
	}
	p.gates = []gate{
		{"end_intention", (*Pipeline).gateEndIntention},
		{"session_ended", (*Pipeline).gateSessionEnded},
		{"self_harm", (*Pipeline).gateSelfHarm},
		{"repetition_complaint", (*Pipeline).gateRepetitionComplaint},
		{"nothing_felt", (*Pipeline).gateNothingFelt},
		{"repeat_impasse", (*Pipeline).gateRepeatImpasse},
		{"panic", (*Pipeline).gatePanic},
		{"alliance_repair", (*Pipeline).gateAllianceRepair},
		{"stagnation", (*Pipeline).gateStagnation},
		{"somatic_stabilize", (*Pipeline).gateSomaticStabilize},
		{"somatic_micro", (*Pipeline).gateSomaticMicro},
		{"default_quick", (*Pipeline).gateDefaultQuick},
		{"classifier", (*Pipeline).gateClassifier},
	}
	return p
}

// Respond runs the gates over the turn, falling through to generation.
// It always returns a usable reply; the only failure surface is the
// handler's outer boundary.
func (p *Pipeline) Respond(ctx context.Context, messages []ChatMessage, clientSession *SessionMemory) Reply {
	tc := p.buildTurnContext(messages, clientSession)
	for _, g := range p.gates {
		if reply, done := g.run(p, ctx, tc); done {
			return reply
		}
	}
	return p.generate(ctx, tc)
}

func (p *Pipeline) buildTurnContext(messages []ChatMessage, clientSession *SessionMemory) *turnContext {
	lastUser := lastUserContent(messages)
	norm := normalizeText(lastUser)

	var session SessionMemory
	if clientSession != nil {
		session = *clientSession
	} else {
		session = buildSessionFromMessages(messages, "")
	}

	lastBodyZone := session.LastBodyZone
	hasBodyZone := lastBodyZone != ""
	if !hasBodyZone {
		lastBodyZone, hasBodyZone = lastBodyZoneFromMessages(messages)
	}
	repeatCounter := session.RepeatCounter
	if clientSession == nil {
		repeatCounter = repeatCounterFromMessages(messages)
	}
	lastPromptType := session.LastPromptType
	if lastPromptType == "" {
		lastPromptType = lastAssistantQType(messages)
	}

	avoid := avoidSetFromLast(messages)
	if hasBodyZone {
		avoid[QTypeLocationChoice] = struct{}{}
	}

	return &turnContext{
		messages:       messages,
		lastUser:       lastUser,
		norm:           norm,
		session:        session,
		lastBodyZone:   lastBodyZone,
		hasBodyZone:    hasBodyZone,
		repeatCounter:  repeatCounter,
		lastPromptType: lastPromptType,
		avoid:          avoid,
		state:          detectState(messages),
		intent:         detectSomaticIntent(lastUser),
	}
}

// Explicit stop request ends the session and resets it.
func (p *Pipeline) gateEndIntention(_ context.Context, tc *turnContext) (Reply, bool) {
	if !detectEndIntention(tc.norm) {
		return Reply{}, false
	}
	session := emptySession()
	return Reply{
		Text:         endedReply,
		Mode:         ModeEnded,
		Session:      &session,
		ResetSession: true,
	}, true
}

// An ended session never reaches the model again.
func (p *Pipeline) gateSessionEnded(_ context.Context, tc *turnContext) (Reply, bool) {
	if tc.session.State != StateEnded {
		return Reply{}, false
	}
	session := emptySession()
	return Reply{
		Text:    endedReply,
		Mode:    ModeEnded,
		Session: &session,
	}, true
}

func (p *Pipeline) gateSelfHarm(_ context.Context, tc *turnContext) (Reply, bool) {
	if !detectSelfHarm(tc.norm) {
		return Reply{}, false
	}
	session := emptySession()
	session.State = StateEnded
	return Reply{
		Text:         makeCrisisReply().Text,
		Mode:         ModeEnded,
		Session:      &session,
		ResetSession: true,
	}, true
}

// Complaint about repetition or insults goes to an end offer rather than
// another question.
func (p *Pipeline) gateRepetitionComplaint(_ context.Context, tc *turnContext) (Reply, bool) {
	if !detectRepetitionComplaint(tc.norm) {
		return Reply{}, false
	}
	session := tc.session
	session.State = StateEndChoice
	return Reply{
		Text:    repetitionEndChoiceReply,
		Mode:    ModeEndChoice,
		Meta:    &ReplyMeta{EndChoice: true},
		Session: &session,
	}, true
}

func (p *Pipeline) gateNothingFelt(_ context.Context, tc *turnContext) (Reply, bool) {
	if !detectNothingFelt(tc.norm) {
		return Reply{}, false
	}
	return Reply{Text: nothingFeltReply, Mode: ModeAsk}, true
}

// The same question twice in a row means impasse: offer to end.
func (p *Pipeline) gateRepeatImpasse(_ context.Context, tc *turnContext) (Reply, bool) {
	if tc.repeatCounter < 2 {
		return Reply{}, false
	}
	reply := makeStagnationImpasseReply()
	if reply.Mode == ModeEndChoice {
		reply.Meta = &ReplyMeta{EndChoice: true}
	}
	session := tc.session
	session.State = StateEndChoice
	reply.Session = &session
	return reply, true
}

// Panic gets a local stabilizing reply, never the emergency numbers.
func (p *Pipeline) gatePanic(_ context.Context, tc *turnContext) (Reply, bool) {
	if !detectPanic(tc.norm) {
		return Reply{}, false
	}
	reply := makePanicReply()
	reply.ShouldPause = reply.Mode == ModeStabilize
	return reply, true
}

func (p *Pipeline) gateAllianceRepair(_ context.Context, tc *turnContext) (Reply, bool) {
	if tc.state != stateAllianceRepair {
		return Reply{}, false
	}
	return makeAllianceReply(tc.lastUser), true
}

func (p *Pipeline) gateStagnation(_ context.Context, tc *turnContext) (Reply, bool) {
	if tc.state != stateStagnation {
		return Reply{}, false
	}
	return p.stagnationReply(tc), true
}

// Neutral-zone stagnation variants are only offered under overwhelm and
// never twice in a row.
func (p *Pipeline) stagnationReply(tc *turnContext) Reply {
	allowNeutralZone := detectOverwhelm(tc.lastUser) && tc.lastPromptType != QTypeStagNeutral
	reply := makeStagnationReply(tc.lastUser, tc.avoid, allowNeutralZone)
	if reply.Mode == ModeEndChoice {
		meta := ReplyMeta{EndChoice: true}
		if reply.Meta != nil {
			meta.QType = reply.Meta.QType
		}
		reply.Meta = &meta
	}
	return reply
}

var somaticFollowupQTypes = map[QuestionType]struct{}{
	QTypeSomaticQuality: {},
	QTypeSomaticMove:    {},
	QTypeSomaticShape:   {},
	QTypeSomaticBreath:  {},
}

// A short cue-bearing answer to a somatic question moves to a short
// stabilization pause.
func (p *Pipeline) gateSomaticStabilize(_ context.Context, tc *turnContext) (Reply, bool) {
	if tc.state != stateSomaticActive {
		return Reply{}, false
	}
	lastQ := lastAssistantQType(tc.messages)
	if _, fromSomatic := somaticFollowupQTypes[lastQ]; !fromSomatic {
		return Reply{}, false
	}
	shortReply := len(tc.norm) <= 40 && !tc.intent.hasZone
	if !shortReply || !tc.intent.hasCue {
		return Reply{}, false
	}
	return Reply{Text: stabilizeReply, Mode: ModeStabilize, ShouldPause: true}, true
}

func (p *Pipeline) gateSomaticMicro(_ context.Context, tc *turnContext) (Reply, bool) {
	if tc.state != stateSomaticActive || !tc.intent.ok {
		return Reply{}, false
	}
	return makeSomaticReply(tc.lastUser, tc.avoid), true
}

func (p *Pipeline) gateDefaultQuick(_ context.Context, tc *turnContext) (Reply, bool) {
	if !isDefaultQuick(tc.lastUser) {
		return Reply{}, false
	}
	return pickDefaultQuickReply(tc.lastUser, tc.avoid), true
}

const minNormLenForClassifier = 13

// gateClassifier asks the model to label the message only when local
// detection came up empty: somatic recovery (cue without a mapped zone)
// or any non-trivial message. Remote labels are accepted under strict
// rules; everything else falls through to generation.
func (p *Pipeline) gateClassifier(ctx context.Context, tc *turnContext) (Reply, bool) {
	somaticRecovery := shouldAskClassifierForSomatic(tc.norm, tc.intent.ok)
	nonTrivial := len(tc.norm) >= minNormLenForClassifier
	if !somaticRecovery && !nonTrivial {
		return Reply{}, false
	}

	classified := p.classifier.Classify(ctx, tc.lastUser)
	switch classified.State {
	case classifiedSelfHarm:
		if !allowClassifierSelfHarm(tc.norm, classified.State) {
			return Reply{}, false
		}
	case classifiedPanic:
		if !allowClassifierPanic(tc.norm, classified.State) {
			return Reply{}, false
		}
		return makePanicReply(), true
	case classifiedAllianceRepair:
		return makeAllianceReply(tc.lastUser), true
	case classifiedStagnation:
		return p.stagnationReply(tc), true
	case classifiedSomaticActive:
		if classified.Cue == nil || !*classified.Cue || classified.Zone == "" {
			return Reply{}, false
		}
		if _, ok := mapClassifierZone(classified.Zone); !ok {
			return Reply{}, false
		}
		return makeSomaticReply(tc.lastUser, tc.avoid), true
	}
	return Reply{}, false
}

var rawStabilizeRe = regexp.MustCompile(`(?i)restez.*quelques.*instants`)

// generate calls the chat model behind the guardrails. Any failure
// degrades to the deterministic safe ask, never an error.
func (p *Pipeline) generate(ctx context.Context, tc *turnContext) Reply {
	ctx, cancel := context.WithTimeout(ctx, p.chatTimeout)
	defer cancel()

	conversation := make([]ChatTurn, 0, len(tc.messages))
	for _, m := range tc.messages {
		conversation = append(conversation, ChatTurn{Role: m.Role, Content: m.Content})
	}

	raw, err := p.ai.Complete(ctx, CompletionRequest{
		Model:        p.chatModel,
		SystemPrompt: chatSystemPrompt,
		Conversation: conversation,
		Temperature:  0.4,
		TopP:         1,
		MaxTokens:    p.chatMaxTokens,
	})
	if err != nil {
		log.Printf("chat completion failed: %v", err)
		return makeSafeAskReply()
	}

	// Stabilization phrasing wins before drift and trimming.
	if rawStabilizeRe.MatchString(raw) {
		trimmed := truncateResponse(raw)
		if trimmed == "" {
			trimmed = raw
		}
		return Reply{Text: trimmed, Mode: ModeStabilize, ShouldPause: true}
	}

	if hasDrift(raw) {
		return makeSafeAskReply()
	}

	reply := truncateResponse(raw)
	if strings.TrimSpace(reply) == "" {
		return makeSafeAskReply()
	}
	if isForbiddenStyle(reply) {
		return makeSafeAskReply()
	}

	mode := detectModeFromReply(reply)
	qtype := inferQTypeFromReply(reply)
	lastQ := lastAssistantQType(tc.messages)
	if lastQ != "" && qtype == lastQ {
		altAvoid := make(map[QuestionType]struct{}, len(tc.avoid)+1)
		for q := range tc.avoid {
			altAvoid[q] = struct{}{}
		}
		altAvoid[lastQ] = struct{}{}
		return pickDefaultQuickReply("ok", altAvoid)
	}

	out := Reply{Text: reply, Mode: mode}
	if qtype != "" {
		out.Meta = &ReplyMeta{QType: qtype}
	}
	return out
}
