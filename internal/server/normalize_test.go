package server

import "testing"

func TestNormalizeText(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Tension ds les cervicales", "tension dans les cervicales"},
		{"tension d's la nuque", "tension dans la nuque"},
		{"Ça serre très fort", "ca serre tres fort"},
		{"J’angoisse", "j'angoisse"},
		{"au cœur", "au coeur"},
		{"plusieurs    espaces\t la", "plusieurs espaces la"},
		{"MÂCHOIRE", "machoire"},
	}
	for _, tc := range cases {
		if got := normalizeText(tc.in); got != tc.want {
			t.Fatalf("normalizeText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeTextDoesNotExpandInsideWords(t *testing.T) {
	t.Parallel()

	if got := normalizeText("adsl rapide"); got != "adsl rapide" {
		t.Fatalf("ds expanded inside a word: %q", got)
	}
}

func TestNormalizeTextIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"Tension ds les cervicales !",
		"Ça tourne en boucle, je n’arrête pas d’y penser.",
		"  œdème   à la GORGE  ",
	}
	for _, in := range inputs {
		once := normalizeText(in)
		if twice := normalizeText(once); twice != once {
			t.Fatalf("normalizeText not idempotent on %q: %q != %q", in, twice, once)
		}
	}
}
