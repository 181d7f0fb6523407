package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/riskibarqy/rugby-live/internal/domain/league"
)

//go:embed leagues.yaml
var defaultLeaguesYAML []byte

type leagueCatalog struct {
	Leagues []league.League `yaml:"leagues"`
}

// LoadLeagues reads the league catalog from path, or the embedded catalog
// when path is empty. Exactly one league ends up marked default: the first
// flagged one, else the first entry.
func LoadLeagues(path string) ([]league.League, error) {
	raw := defaultLeaguesYAML
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read LEAGUES_FILE: %w", err)
		}
		raw = content
	}
	return ParseLeagues(raw)
}

func ParseLeagues(raw []byte) ([]league.League, error) {
	var catalog leagueCatalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, fmt.Errorf("parse league catalog: %w", err)
	}
	if len(catalog.Leagues) == 0 {
		return nil, fmt.Errorf("league catalog is empty")
	}

	seen := make(map[int64]struct{}, len(catalog.Leagues))
	defaultIdx := -1
	for i, item := range catalog.Leagues {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("league catalog entry %d: %w", i, err)
		}
		if _, dup := seen[item.ID]; dup {
			return nil, fmt.Errorf("league catalog entry %d: duplicate id %d", i, item.ID)
		}
		seen[item.ID] = struct{}{}
		if item.IsDefault && defaultIdx < 0 {
			defaultIdx = i
		}
	}
	if defaultIdx < 0 {
		defaultIdx = 0
	}
	for i := range catalog.Leagues {
		catalog.Leagues[i].IsDefault = i == defaultIdx
	}
	return catalog.Leagues, nil
}
