package server

import (
	"strings"
	"testing"
)

func TestTruncateResponseCharCap(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("a", 600)
	got := truncateResponse(long)
	if n := len([]rune(got)); n != maxReplyChars {
		t.Fatalf("truncated length = %d runes, want %d", n, maxReplyChars)
	}
}

func TestTruncateResponsePrefersSentenceBoundary(t *testing.T) {
	t.Parallel()

	first := "Première phrase courte."
	long := first + " " + strings.Repeat("b", 400)
	got := truncateResponse(long)
	if got != first {
		t.Fatalf("truncateResponse = %q, want %q", got, first)
	}
}

func TestTruncateResponseSentenceLimit(t *testing.T) {
	t.Parallel()

	got := truncateResponse("Une. Deux. Trois. Quatre.")
	if got != "Une. Deux." {
		t.Fatalf("truncateResponse = %q, want two sentences", got)
	}
}

func TestTruncateResponseKeepsShortReply(t *testing.T) {
	t.Parallel()

	in := "Remarquez où cela se sent dans votre corps."
	if got := truncateResponse(in); got != in {
		t.Fatalf("truncateResponse changed a short reply: %q", got)
	}
}

func TestLimitSentencesMergesAbbreviations(t *testing.T) {
	t.Parallel()

	got := limitSentences("Voyez M. Dupont. Il est là. Vraiment.", 2)
	want := "Voyez M. Dupont. Il est là."
	if got != want {
		t.Fatalf("limitSentences = %q, want %q", got, want)
	}
}

func TestHasDrift(t *testing.T) {
	t.Parallel()

	positives := []string{
		"Vous devriez essayer de respirer.",
		"Pourquoi pensez-vous cela ?",
		"Je vous conseille de vous reposer.",
		"Il faut lâcher prise.",
	}
	for _, in := range positives {
		if !hasDrift(in) {
			t.Fatalf("hasDrift(%q) = false, want true", in)
		}
	}

	if hasDrift("Remarquez où cela se sent dans votre corps.") {
		t.Fatal("safe ask should not drift")
	}
	if hasDrift("") {
		t.Fatal("empty reply should not drift")
	}
}

func TestIsForbiddenStyle(t *testing.T) {
	t.Parallel()

	positives := []string{
		"C'est normal de ne pas savoir.",
		"C'est fréquent chez beaucoup de gens.",
		"Consultez un professionnel de santé.",
	}
	for _, in := range positives {
		if !isForbiddenStyle(in) {
			t.Fatalf("isForbiddenStyle(%q) = false, want true", in)
		}
	}

	if isForbiddenStyle("Où cela se sent-il le plus ?") {
		t.Fatal("plain question should pass")
	}
}

func TestDetectModeFromReply(t *testing.T) {
	t.Parallel()

	if got := detectModeFromReply(stabilizeReply); got != ModeStabilize {
		t.Fatalf("mode = %q, want STABILIZE", got)
	}
	if got := detectModeFromReply("Sentez l'air pendant quelques secondes."); got != ModeStabilize {
		t.Fatalf("mode = %q, want STABILIZE", got)
	}
	if got := detectModeFromReply("Où cela se sent-il ?"); got != ModeAsk {
		t.Fatalf("mode = %q, want ASK", got)
	}
}
