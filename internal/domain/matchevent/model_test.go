package matchevent

import "testing"

func TestSummarize_FoldsSpellings(t *testing.T) {
	t.Parallel()

	events := []Event{
		{Type: "try", Time: "5'", Team: "home"},
		{Type: "Conversion", Time: "6'", Team: "home"},
		{Type: "yellow_card", Time: "30'", Team: "away"},
		{Type: "Yellow-Card", Time: "31'", Team: "home"},
		{Type: "red card", Time: "50'", Team: "away"},
		{Type: "substitution", Time: "60'", Team: "away"},
		{Type: "scrum", Time: "61'", Team: "away"},
	}

	got := Summarize(events)
	want := Summary{Tries: 1, Conversions: 1, YellowCards: 2, RedCards: 1, Substitutions: 1}
	if got != want {
		t.Fatalf("unexpected summary: got=%+v want=%+v", got, want)
	}
}

func TestDiff_ReturnsOnlyUnseenKeys(t *testing.T) {
	t.Parallel()

	prev := []Event{{Type: "try", Time: "23'", Team: "home"}}
	next := []Event{
		{Type: "try", Time: "23'", Team: "home", Detail: "same key, new detail"},
		{Type: "conversion", Time: "24'", Team: "home"},
	}

	got := Diff(prev, next)
	if len(got) != 1 || got[0].Type != "conversion" {
		t.Fatalf("unexpected diff: %+v", got)
	}
}

func TestEvent_Description(t *testing.T) {
	t.Parallel()

	e := Event{Type: "try", Time: "23'", Team: "home", Player: &Player{Name: "A. Dupont"}}
	if got := e.Description(); got != "Try 23' (home) - A. Dupont" {
		t.Fatalf("unexpected description: %q", got)
	}
}
