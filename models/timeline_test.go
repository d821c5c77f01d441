package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsBettingCapable_KnownTypes(t *testing.T) {
	for _, et := range []EventType{
		EventPenaltyBet, EventCardBet, EventCornerBet, EventFreeKickBet,
		EventMultiChoiceBet, EventSubstitutionBet, EventOffsideBet,
		EventInjuryTimeBet, EventPlayerBet, EventHalfTimeBet, EventActionBet,
	} {
		assert.True(t, IsBettingCapable(TimelineEvent{Type: et}), "type %s should open a betting window", et)
	}
}

func TestIsBettingCapable_NonBettingTypes(t *testing.T) {
	assert.False(t, IsBettingCapable(TimelineEvent{Type: EventKickOff}))
	assert.False(t, IsBettingCapable(TimelineEvent{Type: EventGoal, Team: "Harbour City"}))
	assert.False(t, IsBettingCapable(TimelineEvent{Type: EventCommentary, Description: "quiet spell"}))
}

func TestIsBettingCapable_ResolutionNeverBets(t *testing.T) {
	// A resolution carries a bet-type tag but reveals an outcome; it must
	// never open its own window.
	ev := TimelineEvent{
		Type:    EventResolution,
		BetType: "FOUL_OUTCOME_23",
		Result:  ActionOutcomeMinor,
	}
	assert.False(t, IsBettingCapable(ev))
}

func TestIsBettingCapable_DuckTypedByChoices(t *testing.T) {
	ev := TimelineEvent{
		Type:    EventType("NEW_MARKET"),
		Choices: []Choice{{Text: "OVER", Odds: 1.8}, {Text: "UNDER", Odds: 2.1}},
	}
	assert.True(t, IsBettingCapable(ev))
}

func TestIsBettingCapable_MalformedChoicesRejected(t *testing.T) {
	ev := TimelineEvent{
		Type:    EventType("NEW_MARKET"),
		Choices: []Choice{{Text: "OVER", Odds: 1.8}, {Text: "", Odds: 0}},
	}
	assert.False(t, IsBettingCapable(ev))
}

func TestIsBettingCapable_DuckTypedByBetTypeMarker(t *testing.T) {
	assert.True(t, IsBettingCapable(TimelineEvent{Type: EventType("NEW_MARKET"), BetType: "SOMETHING"}))
	assert.False(t, IsBettingCapable(TimelineEvent{Type: EventType("NEW_MARKET")}))
}

func TestPriority_Table(t *testing.T) {
	cases := []struct {
		et   EventType
		want int
	}{
		{EventPenaltyBet, 10},
		{EventCardBet, 9},
		{EventCornerBet, 8},
		{EventFreeKickBet, 7},
		{EventMultiChoiceBet, 6},
		{EventActionBet, 6},
		{EventSubstitutionBet, 5},
		{EventOffsideBet, 4},
		{EventInjuryTimeBet, 3},
		{EventPlayerBet, 2},
		{EventHalfTimeBet, 2},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Priority(TimelineEvent{Type: tc.et}), "priority of %s", tc.et)
	}
}

func TestPriority_DuckTypedRanksAsGeneric(t *testing.T) {
	ev := TimelineEvent{
		Type:    EventType("NEW_MARKET"),
		Choices: []Choice{{Text: "YES", Odds: 2.0}},
	}
	assert.Equal(t, 6, Priority(ev))
}

func TestChoice_Valid(t *testing.T) {
	assert.True(t, Choice{Text: "YES", Odds: 2.0}.Valid())
	assert.False(t, Choice{Text: "", Odds: 2.0}.Valid())
	assert.False(t, Choice{Text: "YES", Odds: 0}.Valid())
	assert.False(t, Choice{Text: "YES", Odds: -1.5}.Valid())
}
