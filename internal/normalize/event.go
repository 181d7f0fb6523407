package normalize

import (
	"strconv"
	"strings"

	"github.com/riskibarqy/rugby-live/internal/domain/matchevent"
)

// Events parses a raw event list. Entries missing type, time or team are dropped.
func Events(raw any) []matchevent.Event {
	items := toMapSlice(raw)
	if len(items) == 0 {
		return nil
	}

	out := make([]matchevent.Event, 0, len(items))
	for _, item := range items {
		event, ok := Event(item)
		if !ok {
			continue
		}
		out = append(out, event)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Event parses one event document; ok is false when a required field is missing.
func Event(doc map[string]any) (matchevent.Event, bool) {
	if doc == nil {
		return matchevent.Event{}, false
	}

	eventType := getString(doc, "type")
	eventTime := eventTimeLabel(doc["time"])
	team := eventTeam(doc["team"])
	if eventType == "" || eventTime == "" || team == "" {
		return matchevent.Event{}, false
	}

	return matchevent.Event{
		Type:   eventType,
		Time:   eventTime,
		Team:   team,
		Player: eventPlayer(doc["player"]),
		Detail: firstString(doc, "detail", "description", "comment"),
	}, true
}

func eventTimeLabel(raw any) string {
	switch typed := raw.(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		// {"elapsed": 40, "extra": 2} renders as 40+2'.
		elapsed, ok := firstInt(typed, "elapsed", "minute")
		if !ok {
			return ""
		}
		if extra, ok := lookupInt(typed, "extra"); ok && extra > 0 {
			return strconv.Itoa(elapsed) + "+" + strconv.Itoa(extra) + "'"
		}
		return strconv.Itoa(elapsed) + "'"
	default:
		minute, ok := intValue(typed)
		if !ok {
			return ""
		}
		return strconv.FormatInt(minute, 10) + "'"
	}
}

func eventTeam(raw any) string {
	switch typed := raw.(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		return firstString(typed, "side", "name")
	default:
		return ""
	}
}

// eventPlayer treats an id-only player record as absent.
func eventPlayer(raw any) *matchevent.Player {
	switch typed := raw.(type) {
	case string:
		name := strings.TrimSpace(typed)
		if name == "" {
			return nil
		}
		return &matchevent.Player{Name: name}
	case map[string]any:
		name := getString(typed, "name")
		if name == "" {
			return nil
		}
		return &matchevent.Player{ID: getInt64(typed, "id"), Name: name}
	default:
		return nil
	}
}

// Summary prefers counting parsed events; a stored summary is used only when
// the document carries no events.
func Summary(doc map[string]any, events []matchevent.Event) matchevent.Summary {
	if len(events) > 0 {
		return matchevent.Summarize(events)
	}

	stored := asMap(doc["eventsSummary"])
	if stored == nil {
		stored = asMap(doc["summary"])
	}
	if stored == nil {
		return matchevent.Summary{}
	}
	return matchevent.Summary{
		Tries:         getInt(stored, "tries"),
		Conversions:   getInt(stored, "conversions"),
		Penalties:     getInt(stored, "penalties"),
		DropGoals:     getInt(stored, "dropGoals"),
		YellowCards:   getInt(stored, "yellowCards"),
		RedCards:      getInt(stored, "redCards"),
		Substitutions: getInt(stored, "substitutions"),
	}
}
