package league

import "fmt"

// League is a competition the backend follows, e.g. Top 14 or Six Nations.
type League struct {
	ID        int64   `json:"id" yaml:"id"`
	Name      string  `json:"name" yaml:"name"`
	Country   string  `json:"country,omitempty" yaml:"country"`
	Season    int     `json:"season" yaml:"season"`
	LogoURL   *string `json:"logo,omitempty" yaml:"logo"`
	IsDefault bool    `json:"isDefault" yaml:"default"`
}

func (l League) Validate() error {
	if l.ID <= 0 {
		return fmt.Errorf("league id is required")
	}
	if l.Name == "" {
		return fmt.Errorf("league name is required")
	}
	if l.Season <= 0 {
		return fmt.Errorf("league season is required")
	}

	return nil
}
