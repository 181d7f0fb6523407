package normalize

import (
	"strings"

	"github.com/riskibarqy/rugby-live/internal/domain/match"
)

const frenchFullTime = "TERMINÉ"

var fullTimeMarkers = []string{"FINISHED", "FULL TIME"}

// Status folds the few known full-time spellings onto FT. Anything else,
// including unknown codes such as "Abandoned", passes through untouched.
func Status(raw string) string {
	if raw == frenchFullTime {
		return match.StatusFullTime
	}
	upper := strings.ToUpper(raw)
	for _, marker := range fullTimeMarkers {
		if strings.Contains(upper, marker) {
			return match.StatusFullTime
		}
	}
	return raw
}
