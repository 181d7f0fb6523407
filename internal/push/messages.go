package push

import (
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"

	"github.com/riskibarqy/rugby-live/internal/domain/match"
	"github.com/riskibarqy/rugby-live/internal/domain/matchevent"
)

const (
	FallbackHomeName = "Équipe domicile"
	FallbackAwayName = "Équipe extérieure"
)

// Values of the "type" data key, read by the app to route the tap.
const (
	TypeMatchStart  = "match_start"
	TypeScoreUpdate = "score_update"
	TypeMatchEnd    = "match_end"
	TypeEvent       = "match_event"
)

var eventTitles = map[string]string{
	matchevent.TypeTry:          "Essai !",
	matchevent.TypeConversion:   "Transformation",
	matchevent.TypePenalty:      "Pénalité",
	matchevent.TypeDropGoal:     "Drop",
	matchevent.TypeYellowCard:   "Carton jaune",
	matchevent.TypeRedCard:      "Carton rouge",
	matchevent.TypeSubstitution: "Remplacement",
}

func MatchStartMessage(m match.Match) Notification {
	home, away := teamNames(m)
	return Notification{
		Title: "Coup d'envoi",
		Body:  join(home, " - ", away, " : le match commence !"),
		Data:  matchData(TypeMatchStart, m),
	}
}

func ScoreUpdateMessage(m match.Match) Notification {
	return Notification{
		Title: "Mise à jour du score",
		Body:  scoreLine(m),
		Data:  matchData(TypeScoreUpdate, m),
	}
}

func MatchEndMessage(m match.Match) Notification {
	return Notification{
		Title: "Fin du match",
		Body:  join(scoreLine(m), " (score final)"),
		Data:  matchData(TypeMatchEnd, m),
	}
}

// EventMessage announces one in-match event, e.g. "Essai !" / "Toulouse - A. Dupont (23')".
func EventMessage(m match.Match, event matchevent.Event) Notification {
	title, ok := eventTitles[event.Kind()]
	if !ok {
		title = event.Description()
	}

	side := event.Team
	home, away := teamNames(m)
	switch strings.ToLower(event.Team) {
	case "home":
		side = home
	case "away":
		side = away
	}

	body := side
	if event.Player != nil && event.Player.Name != "" {
		body = join(body, " - ", event.Player.Name)
	}
	body = join(body, " (", event.Time, ")")

	data := matchData(TypeEvent, m)
	data["eventType"] = event.Type
	data["eventTime"] = event.Time
	data["eventTeam"] = event.Team
	return Notification{Title: title, Body: body, Data: data}
}

func teamNames(m match.Match) (string, string) {
	return teamName(m.Home.Name, FallbackHomeName), teamName(m.Away.Name, FallbackAwayName)
}

func teamName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" || name == match.UnknownName {
		return fallback
	}
	return name
}

// scoreLine renders "Toulouse 24 - 17 Toulon".
func scoreLine(m match.Match) string {
	home, away := teamNames(m)
	homeScore, awayScore := m.Score()
	return join(home, " ", strconv.Itoa(homeScore), " - ", strconv.Itoa(awayScore), " ", away)
}

func matchData(kind string, m match.Match) map[string]string {
	homeScore, awayScore := m.Score()
	return map[string]string{
		"type":      kind,
		"matchId":   strconv.FormatInt(m.ID, 10),
		"status":    m.Status,
		"homeScore": strconv.Itoa(homeScore),
		"awayScore": strconv.Itoa(awayScore),
	}
}

func join(parts ...string) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	for _, part := range parts {
		_, _ = buf.WriteString(part)
	}
	return buf.String()
}
