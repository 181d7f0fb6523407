package team

import "fmt"

// Team is a rugby club or national side as listed by the data provider.
type Team struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Code     string  `json:"code,omitempty"`
	Country  string  `json:"country,omitempty"`
	Founded  int     `json:"founded,omitempty"`
	National bool    `json:"national"`
	LogoURL  *string `json:"logo,omitempty"`
}

func (t Team) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("team id is required")
	}
	if t.Name == "" {
		return fmt.Errorf("team name is required")
	}

	return nil
}
