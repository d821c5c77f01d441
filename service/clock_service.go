package service

import (
	"context"
	"fmt"
	"sync"

	"matchbet/config"
	"matchbet/events"
	"matchbet/models"

	log "github.com/sirupsen/logrus"
)

type clockEngine struct {
	cfg        *config.Config
	bus        *events.Bus
	pause      PauseCoordinator
	opps       OpportunityManager
	settlement SettlementEngine
	generator  *TimelineGenerator

	mu      sync.Mutex
	state   *models.MatchState
	cursor  int // index of the next unemitted timeline event
	stopped bool
}

// NewClockEngine creates the engine owning MatchState and starts the first
// match immediately.
func NewClockEngine(cfg *config.Config, bus *events.Bus, pause PauseCoordinator, opps OpportunityManager, settlement SettlementEngine, generator *TimelineGenerator) ClockEngine {
	engine := &clockEngine{
		cfg:        cfg,
		bus:        bus,
		pause:      pause,
		opps:       opps,
		settlement: settlement,
		generator:  generator,
	}
	engine.state = engine.newMatch()
	return engine
}

func (c *clockEngine) newMatch() *models.MatchState {
	teams := c.generator.PickTeams()
	odds := c.generator.InitialOdds()
	state := &models.MatchState{
		Teams:       teams,
		Timeline:    c.generator.Generate(teams),
		Odds:        odds,
		InitialOdds: odds,
	}
	log.WithFields(log.Fields{
		"home":   teams.Home,
		"away":   teams.Away,
		"events": len(state.Timeline),
	}).Info("New match generated")
	return state
}

// AdvanceTick advances virtual time by one quantum. While paused it is a
// strict no-op: time does not advance and no events are emitted.
func (c *clockEngine) AdvanceTick() {
	if c.pause.IsPaused() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped || c.state.Finished {
		return
	}

	// An engine-level failure means the state can no longer be trusted;
	// halting beats repeating inconsistent state every 500ms.
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Clock engine failure, halting")
			c.stopped = true
		}
	}()

	c.state.Time++
	now := c.state.Time
	c.bus.Emit(context.Background(), events.ClockTickEvent{Time: now})

	for c.cursor < len(c.state.Timeline) && c.state.Timeline[c.cursor].Time <= now {
		ev := c.state.Timeline[c.cursor]
		c.cursor++
		if ev.Time < now {
			continue
		}
		c.processEvent(ev)
	}

	if now%5 == 0 {
		c.state.Odds = RecomputeOdds(now, c.state.HomeScore, c.state.AwayScore, c.state.InitialOdds)
		c.bus.Emit(context.Background(), events.OddsUpdateEvent{Time: now, Odds: c.state.Odds})
	}

	if err := c.validateStateLocked(); err != nil {
		log.WithError(err).Error("Match state corrupted, halting clock")
		c.stopped = true
		return
	}

	if now >= c.cfg.MatchDuration {
		c.finishLocked()
	}
}

// processEvent routes one due timeline event, isolating its failures so one
// bad event cannot block the rest of the tick.
func (c *clockEngine) processEvent(ev models.TimelineEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"eventType": ev.Type,
				"time":      ev.Time,
				"panic":     r,
			}).Error("Timeline event processing failed, skipping")
		}
	}()

	switch ev.Type {
	case models.EventKickOff, models.EventCommentary:
		c.bus.Emit(context.Background(), events.CommentaryEvent{Time: ev.Time, Text: ev.Description})
	case models.EventGoal:
		if ev.Team == c.state.Teams.Home {
			c.state.HomeScore++
		} else {
			c.state.AwayScore++
		}
		log.WithFields(log.Fields{
			"team": ev.Team,
			"home": c.state.HomeScore,
			"away": c.state.AwayScore,
		}).Info("Goal")
		c.bus.Emit(context.Background(), events.ScoreChangeEvent{
			Time:      ev.Time,
			Team:      ev.Team,
			HomeScore: c.state.HomeScore,
			AwayScore: c.state.AwayScore,
		})
	case models.EventResolution:
		c.settlement.ResolveOpportunityBets(ev.BetType, ev.Result)
	default:
		c.opps.Issue(ev)
	}
}

func (c *clockEngine) validateStateLocked() error {
	if c.state.Time < 0 || c.state.Time > c.cfg.MatchDuration {
		return fmt.Errorf("%w: match time %d outside [0,%d]", ErrStateInconsistency, c.state.Time, c.cfg.MatchDuration)
	}
	if c.state.HomeScore < 0 || c.state.AwayScore < 0 {
		return fmt.Errorf("%w: negative score %d-%d", ErrStateInconsistency, c.state.HomeScore, c.state.AwayScore)
	}
	return nil
}

// finishLocked triggers final settlement and makes the stop terminal.
// Resolution events scheduled past full time still reveal their
// pre-determined outcomes so no opportunity bet is stranded.
func (c *clockEngine) finishLocked() {
	c.state.Finished = true
	c.stopped = true

	for i := c.cursor; i < len(c.state.Timeline); i++ {
		ev := c.state.Timeline[i]
		if ev.Type == models.EventResolution {
			c.settlement.ResolveOpportunityBets(ev.BetType, ev.Result)
		}
	}
	c.cursor = len(c.state.Timeline)

	outcome := c.state.FinalOutcome()
	c.settlement.SettleFullMatchBets(outcome)

	log.WithFields(log.Fields{
		"home":    c.state.HomeScore,
		"away":    c.state.AwayScore,
		"outcome": outcome,
	}).Info("Full time")
	c.bus.Emit(context.Background(), events.MatchFinishedEvent{
		HomeScore: c.state.HomeScore,
		AwayScore: c.state.AwayScore,
		Outcome:   outcome,
	})
}

func (c *clockEngine) Snapshot() models.MatchSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.MatchSnapshot{
		Teams:       c.state.Teams,
		Time:        c.state.Time,
		HomeScore:   c.state.HomeScore,
		AwayScore:   c.state.AwayScore,
		Odds:        c.state.Odds,
		InitialOdds: c.state.InitialOdds,
		Paused:      c.pause.IsPaused(),
		Finished:    c.state.Finished,
	}
}

func (c *clockEngine) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}

// Reset discards all process-local state and starts a fresh match.
func (c *clockEngine) Reset() {
	c.opps.Reset()
	c.settlement.Reset()
	// Release any leftover pause; a stale pause must never survive a reset.
	if err := c.pause.Resume(false, 0); err != nil {
		log.WithError(err).Warn("Resume during reset failed")
	}

	c.mu.Lock()
	c.state = c.newMatch()
	c.cursor = 0
	c.stopped = false
	c.mu.Unlock()

	log.Info("Match reset")
}
