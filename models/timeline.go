package models

// EventType tags a scheduled timeline event.
type EventType string

const (
	EventKickOff    EventType = "KICK_OFF"
	EventGoal       EventType = "GOAL"
	EventCommentary EventType = "COMMENTARY"
	EventResolution EventType = "RESOLUTION"

	// Betting-capable event types. The closed set checked by IsBettingCapable.
	EventPenaltyBet      EventType = "PENALTY_BET"
	EventCardBet         EventType = "CARD_BET"
	EventCornerBet       EventType = "CORNER_BET"
	EventFreeKickBet     EventType = "FREE_KICK_BET"
	EventMultiChoiceBet  EventType = "MULTI_CHOICE_BET"
	EventSubstitutionBet EventType = "SUBSTITUTION_BET"
	EventOffsideBet      EventType = "OFFSIDE_BET"
	EventInjuryTimeBet   EventType = "INJURY_TIME_BET"
	EventPlayerBet       EventType = "PLAYER_PERFORMANCE_BET"
	EventHalfTimeBet     EventType = "HALF_TIME_SCORE_BET"
	// EventActionBet is the generated foul/action market whose outcome is
	// fixed at generation time and revealed by the paired RESOLUTION event.
	EventActionBet EventType = "ACTION_BET"
)

// Action-bet outcomes, weighted at generation time.
const (
	ActionOutcomeMinor   = "MINOR_FOUL"
	ActionOutcomeWarning = "YELLOW_CARD"
	ActionOutcomeSevere  = "RED_CARD"
)

// Choice is one selectable outcome of a betting opportunity.
type Choice struct {
	Text string  `json:"text"`
	Odds float64 `json:"odds"`
}

// Valid reports whether the choice is well formed.
func (c Choice) Valid() bool {
	return c.Text != "" && c.Odds > 0
}

// TimelineEvent is one scheduled entry of a match timeline. Events are
// immutable once generated.
type TimelineEvent struct {
	Seq         int       `json:"seq"` // generation order, breaks time ties
	Time        int       `json:"time"`
	Type        EventType `json:"type"`
	Team        string    `json:"team,omitempty"`        // GOAL
	Description string    `json:"description,omitempty"` // COMMENTARY
	BetType     string    `json:"bet_type,omitempty"`    // betting market tag
	Choices     []Choice  `json:"choices,omitempty"`
	Result      string    `json:"result,omitempty"` // RESOLUTION: pre-resolved outcome
}

var bettingEventTypes = map[EventType]bool{
	EventPenaltyBet:      true,
	EventCardBet:         true,
	EventCornerBet:       true,
	EventFreeKickBet:     true,
	EventMultiChoiceBet:  true,
	EventSubstitutionBet: true,
	EventOffsideBet:      true,
	EventInjuryTimeBet:   true,
	EventPlayerBet:       true,
	EventHalfTimeBet:     true,
	EventActionBet:       true,
}

// IsBettingCapable decides whether an event opens a betting opportunity.
// The rule set is closed: a known betting type tag, a well-formed non-empty
// choice list, or an explicit bet-type marker.
func IsBettingCapable(ev TimelineEvent) bool {
	if ev.Type == EventResolution {
		return false
	}
	if bettingEventTypes[ev.Type] {
		return true
	}
	if len(ev.Choices) > 0 {
		for _, c := range ev.Choices {
			if !c.Valid() {
				return false
			}
		}
		return true
	}
	return ev.BetType != ""
}

// Priority returns the arbitration rank of a betting event. Higher wins; a
// strictly higher-priority newcomer preempts the active opportunity.
func Priority(ev TimelineEvent) int {
	switch ev.Type {
	case EventPenaltyBet:
		return 10
	case EventCardBet:
		return 9
	case EventCornerBet:
		return 8
	case EventFreeKickBet:
		return 7
	case EventMultiChoiceBet, EventActionBet:
		return 6
	case EventSubstitutionBet:
		return 5
	case EventOffsideBet:
		return 4
	case EventInjuryTimeBet:
		return 3
	case EventPlayerBet, EventHalfTimeBet:
		return 2
	}
	// Duck-typed events (choices or marker only) rank with generic markets.
	return 6
}
