package normalize

import (
	"strconv"
	"strings"

	"github.com/riskibarqy/rugby-live/internal/domain/match"
)

// Match rebuilds a canonical match from a raw document. Missing optional data
// is left absent; it never fails.
func Match(doc map[string]any) match.Match {
	if doc == nil {
		return match.Match{Home: unknownTeam(), Away: unknownTeam()}
	}

	home, away := matchTeams(doc)
	homeScore, awayScore := matchScores(doc)
	short, long := matchStatus(doc)
	events := Events(doc["events"])

	out := match.Match{
		ID:         matchID(doc),
		Home:       home,
		Away:       away,
		HomeScore:  homeScore,
		AwayScore:  awayScore,
		Status:     short,
		StatusLong: long,
		Timer:      matchTimer(doc),
		Venue:      matchVenue(doc["venue"]),
		League:     LeagueRef(asMap(doc["league"])),
		Events:     events,
		Summary:    Summary(doc, events),
	}
	if elapsed, ok := matchElapsed(doc); ok {
		out.Elapsed = ptrInt(elapsed)
	}
	for _, key := range []string{"date", "scheduledAt", "timestamp"} {
		if scheduled, ok := parseTime(doc[key]); ok {
			out.ScheduledAt = scheduled
			break
		}
	}
	if updated, ok := parseTime(doc["updatedAt"]); ok {
		out.UpdatedAt = updated
	}

	return out
}

// Matches normalizes every match object of a provider list.
func Matches(items []map[string]any) []match.Match {
	out := make([]match.Match, 0, len(items))
	for _, item := range items {
		out = append(out, Match(item))
	}
	return out
}

func matchID(doc map[string]any) int64 {
	for _, key := range []string{"id", "matchId"} {
		if id := getInt64(doc, key); id > 0 {
			return id
		}
	}
	for _, key := range []string{"fixture", "game"} {
		if id := getInt64(asMap(doc[key]), "id"); id > 0 {
			return id
		}
	}
	return 0
}

func matchTeams(doc map[string]any) (match.TeamRef, match.TeamRef) {
	home := asMap(doc["homeTeam"])
	away := asMap(doc["awayTeam"])
	if teams := asMap(doc["teams"]); teams != nil {
		if home == nil {
			home = asMap(teams["home"])
		}
		if away == nil {
			away = asMap(teams["away"])
		}
	}
	return TeamRef(home), TeamRef(away)
}

// TeamRef reads {id, name, logo|logoUrl|image}. Name defaults to "Unknown"; a
// missing logo stays nil.
func TeamRef(doc map[string]any) match.TeamRef {
	doc = relationDataMap(doc)
	if doc == nil {
		return unknownTeam()
	}
	name := getString(doc, "name")
	if name == "" {
		name = match.UnknownName
	}
	return match.TeamRef{
		ID:      getInt64(doc, "id"),
		Name:    name,
		LogoURL: optionalString(firstString(doc, "logo", "logoUrl", "image")),
	}
}

func unknownTeam() match.TeamRef {
	return match.TeamRef{Name: match.UnknownName}
}

func matchScores(doc map[string]any) (*int, *int) {
	var home, away *int
	if value, ok := lookupInt(doc, "homeScore"); ok {
		home = ptrInt(value)
	}
	if value, ok := lookupInt(doc, "awayScore"); ok {
		away = ptrInt(value)
	}
	for _, key := range []string{"scores", "score"} {
		nested := asMap(doc[key])
		if nested == nil {
			continue
		}
		if value, ok := lookupInt(nested, "home"); ok && home == nil {
			home = ptrInt(value)
		}
		if value, ok := lookupInt(nested, "away"); ok && away == nil {
			away = ptrInt(value)
		}
	}
	return home, away
}

func matchStatus(doc map[string]any) (string, string) {
	switch typed := doc["status"].(type) {
	case string:
		raw := strings.TrimSpace(typed)
		return Status(raw), raw
	case map[string]any:
		short := getString(typed, "short")
		long := getString(typed, "long")
		return Status(firstNonEmpty(short, long)), long
	default:
		return "", ""
	}
}

func matchElapsed(doc map[string]any) (int, bool) {
	if value, ok := lookupInt(doc, "elapsed"); ok {
		return value, true
	}
	if value, ok := lookupInt(asMap(doc["status"]), "timer"); ok {
		return value, true
	}
	return lookupInt(doc, "timer")
}

// matchTimer keeps the provider's clock label verbatim ("45+2").
func matchTimer(doc map[string]any) string {
	if timer := getString(asMap(doc["status"]), "timer"); timer != "" {
		return timer
	}
	if timer := getString(doc, "timer"); timer != "" {
		return timer
	}
	if value, ok := lookupInt(doc, "timer"); ok {
		return strconv.Itoa(value)
	}
	return ""
}

func matchVenue(raw any) *match.Venue {
	switch typed := raw.(type) {
	case string:
		name := strings.TrimSpace(typed)
		if name == "" {
			return nil
		}
		return &match.Venue{Name: name}
	case map[string]any:
		venue := match.Venue{Name: getString(typed, "name"), City: getString(typed, "city")}
		if venue.Name == "" && venue.City == "" {
			return nil
		}
		return &venue
	default:
		return nil
	}
}

// LeagueRef reads {id, name, season}.
func LeagueRef(doc map[string]any) match.LeagueRef {
	if doc == nil {
		return match.LeagueRef{}
	}
	return match.LeagueRef{
		ID:     getInt64(doc, "id"),
		Name:   getString(doc, "name"),
		Season: getInt(doc, "season"),
	}
}
