package normalize

import (
	"testing"
	"time"

	"github.com/riskibarqy/rugby-live/internal/domain/match"
)

func TestMatch_LogoPresenceAndNameDefaults(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"id":       "49925",
		"homeTeam": map[string]any{"id": 107, "logo": "https://media/toulouse.png"},
		"awayTeam": map[string]any{"id": 108, "name": "RC Toulon"},
	}

	got := Match(doc)
	if got.ID != 49925 {
		t.Fatalf("unexpected id: %d", got.ID)
	}
	if got.Home.LogoURL == nil || *got.Home.LogoURL != "https://media/toulouse.png" {
		t.Fatalf("expected home logo, got=%v", got.Home.LogoURL)
	}
	if got.Away.LogoURL != nil {
		t.Fatalf("expected away logo to be absent, got=%q", *got.Away.LogoURL)
	}
	if got.Home.Name != match.UnknownName {
		t.Fatalf("expected home name to default, got=%q", got.Home.Name)
	}
	if got.Away.Name != "RC Toulon" {
		t.Fatalf("away name must not default when present, got=%q", got.Away.Name)
	}
	if got.HomeScore != nil || got.AwayScore != nil {
		t.Fatalf("scores must stay absent before kickoff")
	}
}

func TestMatch_ProviderGameShape(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"id":        float64(4021),
		"date":      "2025-03-15T16:45:00+00:00",
		"timestamp": float64(1742057100),
		"status":    map[string]any{"long": "Finished", "short": "FT"},
		"league":    map[string]any{"id": float64(16), "name": "Top 14", "season": float64(2024)},
		"teams": map[string]any{
			"home": map[string]any{"id": float64(107), "name": "Toulouse", "logo": "https://media/107.png"},
			"away": map[string]any{"id": float64(108), "name": "Toulon", "logo": ""},
		},
		"scores": map[string]any{"home": float64(24), "away": nil},
		"venue":  "Stade Ernest-Wallon",
		"events": []any{
			map[string]any{"type": "try", "time": "12'", "team": "home"},
			map[string]any{"type": "try", "time": "55'", "team": "home"},
		},
	}

	got := Match(doc)
	if got.Status != match.StatusFullTime || got.StatusLong != "Finished" {
		t.Fatalf("unexpected status: %q/%q", got.Status, got.StatusLong)
	}
	if got.League.ID != 16 || got.League.Season != 2024 {
		t.Fatalf("unexpected league: %+v", got.League)
	}
	if got.Away.LogoURL != nil {
		t.Fatalf("blank logo must be treated as absent")
	}
	if got.HomeScore == nil || *got.HomeScore != 24 || got.AwayScore != nil {
		t.Fatalf("unexpected scores: %v %v", got.HomeScore, got.AwayScore)
	}
	want := time.Date(2025, 3, 15, 16, 45, 0, 0, time.UTC)
	if !got.ScheduledAt.Equal(want) {
		t.Fatalf("unexpected schedule: %s", got.ScheduledAt)
	}
	if got.Venue == nil || got.Venue.Name != "Stade Ernest-Wallon" {
		t.Fatalf("unexpected venue: %+v", got.Venue)
	}
	if got.Summary.Tries != 2 {
		t.Fatalf("summary must be computed from events: %+v", got.Summary)
	}
}

func TestMatch_LiveDocumentShape(t *testing.T) {
	t.Parallel()

	doc := map[string]any{
		"matchId":     int64(77),
		"homeScore":   int64(10),
		"awayScore":   map[string]any{"total": 3},
		"status":      "2H",
		"timer":       "62",
		"scheduledAt": float64(1742057100000),
		"updatedAt":   map[string]any{"seconds": int64(1742060000), "nanoseconds": 0},
	}

	got := Match(doc)
	if got.ID != 77 || got.Status != "2H" {
		t.Fatalf("unexpected match: %+v", got)
	}
	if got.AwayScore == nil || *got.AwayScore != 3 {
		t.Fatalf("expected nested total score, got=%v", got.AwayScore)
	}
	if got.Elapsed == nil || *got.Elapsed != 62 || got.Timer != "62" {
		t.Fatalf("unexpected clock: %v %q", got.Elapsed, got.Timer)
	}
	if got.ScheduledAt.Unix() != 1742057100 {
		t.Fatalf("millis timestamp misread: %s", got.ScheduledAt)
	}
	if got.UpdatedAt.Unix() != 1742060000 {
		t.Fatalf("unexpected updatedAt: %s", got.UpdatedAt)
	}
	if got.Home.Name != match.UnknownName || got.Away.Name != match.UnknownName {
		t.Fatalf("missing teams must default to Unknown")
	}
}

func TestMatch_NilDocument(t *testing.T) {
	t.Parallel()

	got := Match(nil)
	if got.ID != 0 || got.Home.Name != match.UnknownName {
		t.Fatalf("unexpected defaults: %+v", got)
	}
}
