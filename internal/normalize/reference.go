package normalize

import (
	"github.com/riskibarqy/rugby-live/internal/domain/league"
	"github.com/riskibarqy/rugby-live/internal/domain/team"
)

func Team(doc map[string]any) team.Team {
	doc = relationDataMap(doc)
	if nested := asMap(doc["team"]); nested != nil {
		doc = nested
	}
	country := getString(doc, "country")
	if country == "" {
		country = getString(asMap(doc["country"]), "name")
	}
	return team.Team{
		ID:       getInt64(doc, "id"),
		Name:     getString(doc, "name"),
		Code:     getString(doc, "code"),
		Country:  country,
		Founded:  getInt(doc, "founded"),
		National: getBool(doc, "national"),
		LogoURL:  optionalString(firstString(doc, "logo", "logoUrl", "image")),
	}
}

// Teams keeps only entries with an id and a name.
func Teams(items []map[string]any) []team.Team {
	out := make([]team.Team, 0, len(items))
	for _, item := range items {
		parsed := Team(item)
		if parsed.Validate() != nil {
			continue
		}
		out = append(out, parsed)
	}
	return out
}

// League reads a provider league; season comes from "season" or the current
// entry of "seasons".
func League(doc map[string]any) league.League {
	doc = relationDataMap(doc)
	country := getString(doc, "country")
	if country == "" {
		country = getString(asMap(doc["country"]), "name")
	}
	season := getInt(doc, "season")
	if season == 0 {
		for _, item := range toMapSlice(doc["seasons"]) {
			if current := getInt(item, "season"); current > season || getBool(item, "current") {
				season = current
				if getBool(item, "current") {
					break
				}
			}
		}
	}
	return league.League{
		ID:      getInt64(doc, "id"),
		Name:    getString(doc, "name"),
		Country: country,
		Season:  season,
		LogoURL: optionalString(firstString(doc, "logo", "logoUrl", "image")),
	}
}
