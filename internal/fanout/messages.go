package fanout

import (
	"github.com/riskibarqy/rugby-live/internal/domain/match"
	"github.com/riskibarqy/rugby-live/internal/domain/matchevent"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

// Update is one accepted change for a match as produced by the live listener.
type Update struct {
	Match    match.Match
	Previous *match.Match
	// NewEvents holds events whose key was not present in Previous.
	NewEvents     []matchevent.Event
	EventsChanged bool
}

func (u Update) ScoreChanged() bool {
	return u.Previous != nil && u.Match.ScoreChanged(*u.Previous)
}

func (u Update) StatusChanged() bool {
	return u.Previous != nil && u.Previous.Status != u.Match.Status
}

// MatchUpdated is published for every accepted update.
type MatchUpdated struct {
	Match    match.Match
	Previous *match.Match
}

// EventsRefreshed tells UI consumers to reload the event list of a match.
type EventsRefreshed struct {
	MatchID int64
	Summary matchevent.Summary
	Count   int
}

// EventArrived carries a single new event for banners and deep links.
type EventArrived struct {
	MatchID int64
	Event   matchevent.Event
	Match   match.Match
}

// Buses groups the typed channels the dispatcher publishes on.
type Buses struct {
	Matches *Bus[MatchUpdated]
	Events  *Bus[EventsRefreshed]
	Arrived *Bus[EventArrived]
}

// NewBuses builds the three buses; drops are logged through logger.
func NewBuses(buffer int, logger *logging.Logger) Buses {
	logger = logger.Named("bus")
	return Buses{
		Matches: newNamedBus[MatchUpdated]("matches", buffer, logger),
		Events:  newNamedBus[EventsRefreshed]("events", buffer, logger),
		Arrived: newNamedBus[EventArrived]("arrived", buffer, logger),
	}
}

func (b Buses) Close() {
	b.Matches.Close()
	b.Events.Close()
	b.Arrived.Close()
}
