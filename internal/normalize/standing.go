package normalize

import (
	"strconv"
	"strings"

	"github.com/riskibarqy/rugby-live/internal/domain/standing"
)

// Alternate spellings seen for the same counters across schema revisions.
var (
	winKeys  = []string{"win", "won"}
	drawKeys = []string{"draw", "draws"}
	loseKeys = []string{"lose", "lost", "losses"}
)

// Record is the played/won/drawn/lost block of a standing row.
type Record struct {
	Played int
	Won    int
	Drawn  int
	Lost   int
}

// RecordStrategy extracts a Record from one historical document shape.
// ok is false when the shape does not apply to doc.
type RecordStrategy struct {
	Name    string
	Extract func(doc map[string]any) (Record, bool)
}

// RecordStrategies is tried in order; the first applicable strategy wins.
var RecordStrategies = []RecordStrategy{
	{Name: "games", Extract: recordFromGames},
	{Name: "all", Extract: recordFromAll},
	{Name: "root", Extract: recordFromRoot},
}

// GoalDiffStrategy resolves a goal difference plus, when known, its for/against pair.
type GoalDiffStrategy struct {
	Name    string
	Extract func(doc map[string]any) (GoalDiff, bool)
}

type GoalDiff struct {
	Diff    int
	For     *int
	Against *int
}

// GoalDiffStrategies is tried in order; when none applies the difference is unknown.
var GoalDiffStrategies = []GoalDiffStrategy{
	{Name: "all.goals", Extract: func(doc map[string]any) (GoalDiff, bool) { return goalPair(path(doc, "all", "goals")) }},
	{Name: "goals", Extract: func(doc map[string]any) (GoalDiff, bool) { return goalPair(doc["goals"]) }},
	{Name: "goals_diff", Extract: func(doc map[string]any) (GoalDiff, bool) { return precomputedDiff(doc, "goals_diff") }},
	{Name: "diff", Extract: func(doc map[string]any) (GoalDiff, bool) { return precomputedDiff(doc, "diff") }},
}

// ResolveRecord runs RecordStrategies and reports which one applied.
func ResolveRecord(doc map[string]any) (Record, string) {
	for _, strategy := range RecordStrategies {
		if record, ok := strategy.Extract(doc); ok {
			return record, strategy.Name
		}
	}
	return Record{}, ""
}

// ResolveGoalDiff runs GoalDiffStrategies; ok is false when no source exists.
func ResolveGoalDiff(doc map[string]any) (GoalDiff, bool) {
	for _, strategy := range GoalDiffStrategies {
		if diff, ok := strategy.Extract(doc); ok {
			return diff, true
		}
	}
	return GoalDiff{}, false
}

// games: {"played": n, "win": {"total": n}, "draw": {"total": n}, "lose": {"total": n}}
func recordFromGames(doc map[string]any) (Record, bool) {
	games := asMap(doc["games"])
	if games == nil {
		return Record{}, false
	}
	return Record{
		Played: getInt(games, "played"),
		Won:    getInt(asMap(games["win"]), "total"),
		Drawn:  getInt(asMap(games["draw"]), "total"),
		Lost:   getInt(asMap(games["lose"]), "total"),
	}, true
}

func recordFromAll(doc map[string]any) (Record, bool) {
	all := asMap(doc["all"])
	if all == nil {
		return Record{}, false
	}
	return spelledRecord(all), true
}

func recordFromRoot(doc map[string]any) (Record, bool) {
	return spelledRecord(doc), true
}

func spelledRecord(src map[string]any) Record {
	won, _ := firstInt(src, winKeys...)
	drawn, _ := firstInt(src, drawKeys...)
	lost, _ := firstInt(src, loseKeys...)
	return Record{
		Played: getInt(src, "played"),
		Won:    won,
		Drawn:  drawn,
		Lost:   lost,
	}
}

func goalPair(raw any) (GoalDiff, bool) {
	goals := asMap(raw)
	if goals == nil {
		return GoalDiff{}, false
	}
	goalsFor, okFor := lookupInt(goals, "for")
	against, okAgainst := lookupInt(goals, "against")
	if !okFor || !okAgainst {
		return GoalDiff{}, false
	}
	return GoalDiff{Diff: goalsFor - against, For: ptrInt(goalsFor), Against: ptrInt(against)}, true
}

func precomputedDiff(doc map[string]any, key string) (GoalDiff, bool) {
	diff, ok := lookupInt(doc, key)
	if !ok {
		return GoalDiff{}, false
	}
	return GoalDiff{Diff: diff}, true
}

// Standing normalizes one table row.
func Standing(doc map[string]any) standing.Standing {
	if doc == nil {
		return standing.Standing{Team: unknownTeam()}
	}

	record, _ := ResolveRecord(doc)
	position, _ := firstInt(doc, "position", "rank")
	out := standing.Standing{
		Position:    position,
		Team:        TeamRef(asMap(doc["team"])),
		Group:       standingGroup(doc["group"]),
		Played:      record.Played,
		Won:         record.Won,
		Drawn:       record.Drawn,
		Lost:        record.Lost,
		Points:      getInt(doc, "points"),
		Form:        standingForm(doc["form"]),
		Description: getString(doc, "description"),
	}
	if diff, ok := ResolveGoalDiff(doc); ok {
		out.GoalDiff = ptrInt(diff.Diff)
		out.GoalsFor = diff.For
		out.GoalsAgainst = diff.Against
	}
	return out
}

// Standings walks an arbitrarily nested payload (api-sports nests rows as
// response[].league.standings[][]) and normalizes every row it finds.
func Standings(payload any) []standing.Standing {
	rows := collectStandingRows(payload)
	out := make([]standing.Standing, 0, len(rows))
	for _, row := range rows {
		out = append(out, Standing(row))
	}
	return out
}

func collectStandingRows(node any) []map[string]any {
	out := make([]map[string]any, 0, 32)
	seen := make(map[string]struct{}, 64)

	var walk func(any, int)
	walk = func(current any, depth int) {
		if depth > 10 || current == nil {
			return
		}

		switch typed := current.(type) {
		case []map[string]any:
			for _, child := range typed {
				walk(child, depth+1)
			}
		case []any:
			for _, child := range typed {
				walk(child, depth+1)
			}
		case map[string]any:
			if isStandingRow(typed) {
				key := standingRowDedupKey(typed)
				if _, exists := seen[key]; !exists {
					seen[key] = struct{}{}
					out = append(out, typed)
				}
				return
			}
			// Well-known containers first so rows keep provider order.
			for _, key := range []string{"response", "data", "standings", "table", "rows"} {
				if child, ok := typed[key]; ok {
					walk(child, depth+1)
				}
			}
			if league := asMap(typed["league"]); league != nil {
				walk(league["standings"], depth+1)
			}
		}
	}

	walk(node, 0)
	return out
}

func isStandingRow(item map[string]any) bool {
	position, ok := firstInt(item, "position", "rank")
	if !ok || position <= 0 {
		return false
	}
	team := relationDataMap(item["team"])
	return getInt64(team, "id") > 0 || getString(team, "name") != ""
}

func standingRowDedupKey(item map[string]any) string {
	team := relationDataMap(item["team"])
	teamKey := strconv.FormatInt(getInt64(team, "id"), 10)
	if teamKey == "0" {
		teamKey = strings.ToLower(getString(team, "name"))
	}
	return standingGroup(item["group"]) + "|" + teamKey
}

func standingGroup(raw any) string {
	switch typed := raw.(type) {
	case string:
		return strings.TrimSpace(typed)
	case map[string]any:
		return getString(typed, "name")
	default:
		return ""
	}
}

func standingForm(raw any) string {
	switch typed := raw.(type) {
	case string:
		return strings.ToUpper(strings.TrimSpace(typed))
	case []any:
		parts := make([]string, 0, len(typed))
		for _, item := range typed {
			if value, ok := item.(string); ok && strings.TrimSpace(value) != "" {
				parts = append(parts, strings.ToUpper(strings.TrimSpace(value)))
			}
		}
		return strings.Join(parts, "")
	default:
		return ""
	}
}
