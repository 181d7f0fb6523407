package match

import (
	"strings"
	"time"

	"github.com/riskibarqy/rugby-live/internal/domain/matchevent"
)

// Short status codes as reported by the rugby data provider.
const (
	StatusNotStarted     = "NS"
	StatusFirstHalf      = "1H"
	StatusHalfTime       = "HT"
	StatusSecondHalf     = "2H"
	StatusExtraTime      = "ET"
	StatusBreakTime      = "BT"
	StatusPenalties      = "PT"
	StatusAfterExtraTime = "AET"
	StatusAfterPenalties = "AP"
	StatusFullTime       = "FT"
	StatusPostponed      = "PST"
	StatusCancelled      = "CANC"
	StatusAbandoned      = "ABD"
	StatusInterrupted    = "INTR"
)

const UnknownName = "Unknown"

// TeamRef is the team as embedded in a match or standing row.
type TeamRef struct {
	ID      int64   `json:"id"`
	Name    string  `json:"name"`
	LogoURL *string `json:"logo,omitempty"`
}

type LeagueRef struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Season int    `json:"season,omitempty"`
}

type Venue struct {
	Name string `json:"name,omitempty"`
	City string `json:"city,omitempty"`
}

// Match is the canonical live-match record rebuilt on every snapshot.
type Match struct {
	ID          int64              `json:"id"`
	Home        TeamRef            `json:"homeTeam"`
	Away        TeamRef            `json:"awayTeam"`
	HomeScore   *int               `json:"homeScore,omitempty"`
	AwayScore   *int               `json:"awayScore,omitempty"`
	Status      string             `json:"status"`
	StatusLong  string             `json:"statusLong,omitempty"`
	Elapsed     *int               `json:"elapsed,omitempty"`
	Timer       string             `json:"timer,omitempty"`
	ScheduledAt time.Time          `json:"scheduledAt"`
	Venue       *Venue             `json:"venue,omitempty"`
	League      LeagueRef          `json:"league"`
	Events      []matchevent.Event `json:"events,omitempty"`
	Summary     matchevent.Summary `json:"eventsSummary"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// Score returns both scores with absent values read as zero.
func (m Match) Score() (int, int) {
	return valueOr(m.HomeScore, 0), valueOr(m.AwayScore, 0)
}

// ScoreChanged reports whether either side's score differs from prev.
func (m Match) ScoreChanged(prev Match) bool {
	return !intPtrEqual(m.HomeScore, prev.HomeScore) || !intPtrEqual(m.AwayScore, prev.AwayScore)
}

func (m Match) InvolvesTeam(teamID int64) bool {
	return teamID > 0 && (m.Home.ID == teamID || m.Away.ID == teamID)
}

func IsLiveStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case StatusFirstHalf, StatusHalfTime, StatusSecondHalf, StatusExtraTime, StatusBreakTime, StatusPenalties, "LIVE":
		return true
	default:
		return false
	}
}

func IsFinishedStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case StatusFullTime, StatusAfterExtraTime, StatusAfterPenalties:
		return true
	default:
		return false
	}
}

func IsCancelledLikeStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case StatusPostponed, StatusCancelled, StatusAbandoned, "POST":
		return true
	default:
		return false
	}
}

// StatusRank places a status on the conceptual not-started -> in-play -> finished
// ordering. Nothing enforces monotonic transitions; callers only compare ranks.
func StatusRank(status string) int {
	switch {
	case IsFinishedStatus(status), IsCancelledLikeStatus(status):
		return 2
	case IsLiveStatus(status), strings.EqualFold(strings.TrimSpace(status), StatusInterrupted):
		return 1
	default:
		return 0
	}
}

func valueOr(v *int, fallback int) int {
	if v == nil {
		return fallback
	}
	return *v
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
