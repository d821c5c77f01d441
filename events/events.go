package events

import (
	"context"
	"sync"

	"matchbet/models"

	log "github.com/sirupsen/logrus"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeClockTick         EventType = "clock_tick"
	EventTypeScoreChange       EventType = "score_change"
	EventTypeOddsUpdate        EventType = "odds_update"
	EventTypeCommentary        EventType = "commentary"
	EventTypePauseStateChange  EventType = "pause_state_change"
	EventTypeResumeCountdown   EventType = "resume_countdown"
	EventTypeOpportunityChange EventType = "opportunity_change"
	EventTypeBetPlaced         EventType = "bet_placed"
	EventTypeBetSettled        EventType = "bet_settled"
	EventTypeBalanceChange     EventType = "balance_change"
	EventTypePowerUpAwarded    EventType = "power_up_awarded"
	EventTypePowerUpApplied    EventType = "power_up_applied"
	EventTypeMatchFinished     EventType = "match_finished"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// ClockTickEvent fires once per advanced virtual minute.
type ClockTickEvent struct {
	Time int
}

func (e ClockTickEvent) Type() EventType { return EventTypeClockTick }

// ScoreChangeEvent represents a goal being scored
type ScoreChangeEvent struct {
	Time      int
	Team      string
	HomeScore int
	AwayScore int
}

func (e ScoreChangeEvent) Type() EventType { return EventTypeScoreChange }

// OddsUpdateEvent carries a recomputed odds triple
type OddsUpdateEvent struct {
	Time int
	Odds models.Odds
}

func (e OddsUpdateEvent) Type() EventType { return EventTypeOddsUpdate }

// CommentaryEvent carries flavor text emitted by the timeline
type CommentaryEvent struct {
	Time int
	Text string
}

func (e CommentaryEvent) Type() EventType { return EventTypeCommentary }

// PauseStateChangeEvent represents the clock pausing or resuming. Forced is
// set when an auto-resume deadline fired rather than a manual resume.
type PauseStateChangeEvent struct {
	Paused bool
	Reason string
	Forced bool
}

func (e PauseStateChangeEvent) Type() EventType { return EventTypePauseStateChange }

// ResumeCountdownEvent is emitted once per second of a pre-resume countdown.
type ResumeCountdownEvent struct {
	SecondsLeft int
}

func (e ResumeCountdownEvent) Type() EventType { return EventTypeResumeCountdown }

// OpportunityChangeEvent represents a betting opportunity state transition
type OpportunityChangeEvent struct {
	OpportunityID string
	BetType       string
	OldStatus     models.OpportunityStatus
	NewStatus     models.OpportunityStatus
	ResolvedBy    models.ResolutionKind
}

func (e OpportunityChangeEvent) Type() EventType { return EventTypeOpportunityChange }

// BetPlacedEvent represents a bet that was placed and its debited stake
type BetPlacedEvent struct {
	BetID   string
	Kind    models.BetKind
	Outcome string
	Stake   int64
	Odds    float64
}

func (e BetPlacedEvent) Type() EventType { return EventTypeBetPlaced }

// BetSettledEvent represents a bet reaching WON or LOST
type BetSettledEvent struct {
	BetID  string
	Status models.BetStatus
	Payout int64
}

func (e BetSettledEvent) Type() EventType { return EventTypeBetSettled }

// BalanceChangeEvent represents a wallet mutation
type BalanceChangeEvent struct {
	OldBalance   int64
	NewBalance   int64
	ChangeAmount int64
	Reason       string
}

func (e BalanceChangeEvent) Type() EventType { return EventTypeBalanceChange }

// PowerUpAwardedEvent represents a power-up landing in the player's hand
type PowerUpAwardedEvent struct {
	Kind string
}

func (e PowerUpAwardedEvent) Type() EventType { return EventTypePowerUpAwarded }

// PowerUpAppliedEvent represents a held power-up being committed to the
// current match
type PowerUpAppliedEvent struct {
	Kind string
}

func (e PowerUpAppliedEvent) Type() EventType { return EventTypePowerUpApplied }

// MatchFinishedEvent fires once when the clock reaches full time
type MatchFinishedEvent struct {
	HomeScore int
	AwayScore int
	Outcome   string
}

func (e MatchFinishedEvent) Type() EventType { return EventTypeMatchFinished }

// Handler is a function that handles events
type Handler func(ctx context.Context, event Event)

// Bus manages event subscriptions and dispatching
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for a specific event type
func (b *Bus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)

	log.WithFields(log.Fields{
		"eventType":    eventType,
		"handlerCount": len(b.handlers[eventType]),
	}).Debug("Subscribed handler to event type")
}

// Emit publishes an event to all registered handlers
func (b *Bus) Emit(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers[event.Type()]))
	copy(handlers, b.handlers[event.Type()])
	b.mu.RUnlock()

	// Call handlers asynchronously to avoid blocking the emitter; a slow or
	// panicking handler must never stall the clock.
	for i, handler := range handlers {
		go func(h Handler, handlerIndex int) {
			defer func() {
				if r := recover(); r != nil {
					log.WithFields(log.Fields{
						"eventType":    event.Type(),
						"handlerIndex": handlerIndex,
						"panic":        r,
					}).Error("Event handler panicked")
				}
			}()
			h(ctx, event)
		}(handler, i)
	}
}
