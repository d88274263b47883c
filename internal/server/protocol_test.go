package server

import "testing"

func TestDetectEndIntention(t *testing.T) {
	t.Parallel()

	positives := []string{"stop", "je veux arrêter", "termine", "c'est tout", "fin"}
	for _, in := range positives {
		if !detectEndIntention(in) {
			t.Fatalf("detectEndIntention(%q) = false, want true", in)
		}
	}

	// Rumination phrasing must not read as a stop request.
	if detectEndIntention("je n'arrête pas de penser") {
		t.Fatal("rumination should not end the session")
	}
}

func TestDetectRepetitionComplaint(t *testing.T) {
	t.Parallel()

	if !detectRepetitionComplaint("tu te répètes") {
		t.Fatal("tu te répètes should match")
	}
	if !detectRepetitionComplaint("ça tourne en rond") {
		t.Fatal("ça tourne en rond should match")
	}
	if detectRepetitionComplaint("je tourne la page") {
		t.Fatal("unrelated phrasing should not match")
	}
}

func TestDetectNothingFelt(t *testing.T) {
	t.Parallel()

	if !detectNothingFelt("je ne sens rien") {
		t.Fatal("je ne sens rien should match")
	}
	if !detectNothingFelt("aucune sensation") {
		t.Fatal("aucune sensation should match")
	}
	if detectNothingFelt("je sens une tension") {
		t.Fatal("a felt sensation should not match")
	}
}

func TestDetectOverwhelm(t *testing.T) {
	t.Parallel()

	if !detectOverwhelm("c'est trop") {
		t.Fatal("c'est trop should match")
	}
	if !detectOverwhelm("c'est insupportable") {
		t.Fatal("insupportable should match")
	}
	if detectOverwhelm("ça va à peu près") {
		t.Fatal("neutral phrasing should not match")
	}
}

func TestRepeatCounterFromMessages(t *testing.T) {
	t.Parallel()

	messages := []ChatMessage{
		userMsg("ok"),
		assistantMsg("Ok. Intensité là, de 1 à 5 ?", QTypeIntensity),
		userMsg("3"),
		assistantMsg("Ok. Intensité là, de 1 à 5 ?", QTypeIntensity),
	}
	if got := repeatCounterFromMessages(messages); got != 2 {
		t.Fatalf("repeat counter = %d, want 2", got)
	}

	broken := []ChatMessage{
		userMsg("ok"),
		assistantMsg("Ok. Intensité là, de 1 à 5 ?", QTypeIntensity),
		userMsg("3"),
		assistantMsg("Ok. Un seul mot pour ce qui est là ?", QTypeOneWord),
	}
	if got := repeatCounterFromMessages(broken); got != 1 {
		t.Fatalf("repeat counter = %d, want 1 after a different qtype", got)
	}

	if got := repeatCounterFromMessages(nil); got != 0 {
		t.Fatalf("repeat counter = %d, want 0 on empty history", got)
	}
}

func TestBuildSessionFromMessages(t *testing.T) {
	t.Parallel()

	messages := []ChatMessage{
		userMsg("tension ds les cervicales"),
		assistantMsg("Plutôt centre ou bord ?", QTypeSomaticShape),
	}
	session := buildSessionFromMessages(messages, "")
	if session.State != StateReflect {
		t.Fatalf("state = %q, want REFLECT", session.State)
	}
	if session.LastBodyZone != ZoneNeck {
		t.Fatalf("lastBodyZone = %q, want %q", session.LastBodyZone, ZoneNeck)
	}
	if session.LastPromptType != QTypeSomaticShape {
		t.Fatalf("lastPromptType = %q, want %q", session.LastPromptType, QTypeSomaticShape)
	}

	withState := buildSessionFromMessages(messages, StateEndChoice)
	if withState.State != StateEndChoice {
		t.Fatalf("client state ignored: %q", withState.State)
	}
}

func TestEmptySession(t *testing.T) {
	t.Parallel()

	session := emptySession()
	if session.State != StateReflect || session.RepeatCounter != 0 || session.LastBodyZone != "" {
		t.Fatalf("unexpected empty session: %+v", session)
	}
}
