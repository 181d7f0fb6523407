package matchevent

import "strings"

// Known event types. The set is open: providers may send others and they are kept verbatim.
const (
	TypeTry          = "try"
	TypeConversion   = "conversion"
	TypePenalty      = "penalty"
	TypeDropGoal     = "drop goal"
	TypeYellowCard   = "yellow card"
	TypeRedCard      = "red card"
	TypeSubstitution = "substitution"
)

type Player struct {
	ID   int64  `json:"id,omitempty"`
	Name string `json:"name"`
}

// Event is one in-match incident.
type Event struct {
	Type   string  `json:"type"`
	Time   string  `json:"time"`
	Team   string  `json:"team"`
	Player *Player `json:"player,omitempty"`
	Detail string  `json:"detail,omitempty"`
}

// Key identifies an event by time, type and team. Two distinct events sharing
// all three collide; that approximation is accepted.
func (e Event) Key() string {
	return e.Time + "|" + e.Type + "|" + e.Team
}

// Kind folds spelling variants ("yellow_card", "Yellow-Card") onto the known type names.
func (e Event) Kind() string {
	return CanonicalType(e.Type)
}

func CanonicalType(raw string) string {
	value := strings.ToLower(strings.TrimSpace(raw))
	value = strings.NewReplacer("_", " ", "-", " ").Replace(value)
	value = strings.Join(strings.Fields(value), " ")
	switch value {
	case "yellowcard", "yellow":
		return TypeYellowCard
	case "redcard", "red":
		return TypeRedCard
	case "dropgoal", "drop":
		return TypeDropGoal
	case "sub", "subst":
		return TypeSubstitution
	case "pen", "penalty goal", "penalty kick":
		return TypePenalty
	}
	return value
}

// Summary is a denormalized count of a match's events.
type Summary struct {
	Tries         int `json:"tries"`
	Conversions   int `json:"conversions"`
	Penalties     int `json:"penalties"`
	DropGoals     int `json:"dropGoals"`
	YellowCards   int `json:"yellowCards"`
	RedCards      int `json:"redCards"`
	Substitutions int `json:"substitutions"`
}

func (s Summary) IsZero() bool {
	return s == Summary{}
}

func Summarize(events []Event) Summary {
	var out Summary
	for _, item := range events {
		switch item.Kind() {
		case TypeTry:
			out.Tries++
		case TypeConversion:
			out.Conversions++
		case TypePenalty:
			out.Penalties++
		case TypeDropGoal:
			out.DropGoals++
		case TypeYellowCard:
			out.YellowCards++
		case TypeRedCard:
			out.RedCards++
		case TypeSubstitution:
			out.Substitutions++
		}
	}
	return out
}

// Diff returns the events in next whose key is absent from prev, in next's order.
func Diff(prev, next []Event) []Event {
	if len(next) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(prev))
	for _, item := range prev {
		seen[item.Key()] = struct{}{}
	}
	var out []Event
	for _, item := range next {
		if _, ok := seen[item.Key()]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Description renders a short one-line label, e.g. "Try 23' (home) - A. Dupont".
func (e Event) Description() string {
	var b strings.Builder
	kind := e.Kind()
	if kind != "" {
		b.WriteString(strings.ToUpper(kind[:1]))
		b.WriteString(kind[1:])
	}
	if e.Time != "" {
		b.WriteString(" ")
		b.WriteString(e.Time)
	}
	if e.Team != "" {
		b.WriteString(" (")
		b.WriteString(e.Team)
		b.WriteString(")")
	}
	if e.Player != nil && e.Player.Name != "" {
		b.WriteString(" - ")
		b.WriteString(e.Player.Name)
	}
	return strings.TrimSpace(b.String())
}
