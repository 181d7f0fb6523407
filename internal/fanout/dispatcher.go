package fanout

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	"github.com/riskibarqy/rugby-live/internal/domain/matchevent"
	"github.com/riskibarqy/rugby-live/internal/platform/logging"
)

type DispatcherConfig struct {
	Published *Published
	Buses     Buses
	// Activity is optional; nil disables live activity updates.
	Activity LiveActivityUpdater
	Logger   *logging.Logger
}

// Dispatcher pushes accepted match updates to every sink. Sinks run
// independently: a failing or panicking sink is logged and the others proceed.
type Dispatcher struct {
	published *Published
	buses     Buses
	activity  LiveActivityUpdater
	logger    *logging.Logger
	now       func() time.Time
}

type sink struct {
	name string
	run  func(ctx context.Context) error
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	published := cfg.Published
	if published == nil {
		published = NewPublished()
	}
	buses := cfg.Buses
	if buses.Matches == nil || buses.Events == nil || buses.Arrived == nil {
		buses = NewBuses(0, logger)
	}

	return &Dispatcher{
		published: published,
		buses:     buses,
		activity:  cfg.Activity,
		logger:    logger.Named("fanout"),
		now:       time.Now,
	}
}

func (d *Dispatcher) Published() *Published {
	return d.published
}

func (d *Dispatcher) Buses() Buses {
	return d.buses
}

func (d *Dispatcher) Dispatch(ctx context.Context, update Update) {
	ctx, span := startSpan(ctx, "fanout.Dispatcher.Dispatch")
	defer span.End()

	current := update.Match
	d.published.Set(current)
	d.buses.Matches.Publish(MatchUpdated{Match: current, Previous: update.Previous})

	sinks := d.sinksFor(update)
	if len(sinks) == 0 {
		return
	}

	var wg conc.WaitGroup
	for _, item := range sinks {
		wg.Go(func() {
			var catcher panics.Catcher
			catcher.Try(func() {
				if err := item.run(ctx); err != nil {
					d.logger.WarnContext(ctx, "fan-out sink failed",
						"sink", item.name,
						"match_id", current.ID,
						"error", err,
					)
				}
			})
			if recovered := catcher.Recovered(); recovered != nil {
				d.logger.ErrorContext(ctx, "fan-out sink panicked",
					"sink", item.name,
					"match_id", current.ID,
					"error", recovered.AsError(),
				)
			}
		})
	}
	wg.Wait()
}

// Forget drops the published state of a match that is no longer followed.
func (d *Dispatcher) Forget(matchID int64) {
	d.published.Delete(matchID)
}

func (d *Dispatcher) sinksFor(update Update) []sink {
	current := update.Match
	out := make([]sink, 0, 3)

	if update.EventsChanged {
		out = append(out, sink{name: "events_refreshed", run: func(context.Context) error {
			d.buses.Events.Publish(EventsRefreshed{
				MatchID: current.ID,
				Summary: current.Summary,
				Count:   len(current.Events),
			})
			return nil
		}})
		if len(update.NewEvents) > 0 {
			out = append(out, sink{name: "event_arrived", run: func(context.Context) error {
				for _, event := range update.NewEvents {
					d.buses.Arrived.Publish(EventArrived{MatchID: current.ID, Event: event, Match: current})
				}
				return nil
			}})
		}
	}

	if d.activity != nil && (update.EventsChanged || update.Previous == nil || update.ScoreChanged() || update.StatusChanged()) {
		out = append(out, sink{name: "live_activity", run: func(ctx context.Context) error {
			return d.activity.UpdateLiveActivity(ctx, NewActivityState(current, latestEvent(update), d.now()))
		}})
	}

	return out
}

func latestEvent(update Update) *matchevent.Event {
	if n := len(update.NewEvents); n > 0 {
		event := update.NewEvents[n-1]
		return &event
	}
	return nil
}
