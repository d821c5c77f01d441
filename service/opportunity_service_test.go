package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"matchbet/config"
	"matchbet/events"
	"matchbet/models"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type opportunityFixture struct {
	mgr        OpportunityManager
	pause      PauseCoordinator
	settlement SettlementEngine
	clock      *clockwork.FakeClock
	bus        *events.Bus
}

func newOpportunityFixture(t *testing.T) *opportunityFixture {
	t.Helper()
	cfg := config.Default()
	cfg.PowerUpAwardChance = 0
	clock := clockwork.NewFakeClock()
	bus := events.NewBus()
	pause := NewPauseCoordinator(cfg, clock, bus)
	settlement := NewSettlementEngine(cfg, clock, bus, 1)
	return &opportunityFixture{
		mgr:        NewOpportunityManager(cfg, clock, bus, pause, settlement),
		pause:      pause,
		settlement: settlement,
		clock:      clock,
		bus:        bus,
	}
}

func cardBetEvent(minute int) models.TimelineEvent {
	return models.TimelineEvent{
		Time:    minute,
		Type:    models.EventCardBet,
		BetType: "CARD_TARGET",
		Choices: []models.Choice{
			{Text: "HOME_PLAYER", Odds: 2.2},
			{Text: "AWAY_PLAYER", Odds: 2.6},
		},
	}
}

func actionBetEvent(minute int) models.TimelineEvent {
	return models.TimelineEvent{
		Time:    minute,
		Type:    models.EventActionBet,
		BetType: "FOUL_OUTCOME_23",
		Choices: []models.Choice{
			{Text: models.ActionOutcomeMinor, Odds: 1.7},
			{Text: models.ActionOutcomeWarning, Odds: 3.4},
			{Text: models.ActionOutcomeSevere, Odds: 9.0},
		},
	}
}

func waitUnpaused(t *testing.T, f *opportunityFixture) {
	t.Helper()
	require.Eventually(t, func() bool { return !f.pause.IsPaused() }, time.Second, 10*time.Millisecond)
}

func TestOpportunityManager_IssuePausesAndActivates(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(actionBetEvent(23))

	snap, ok := f.mgr.Snapshot()
	require.True(t, ok)
	assert.Equal(t, models.OpportunityActiveVisible, snap.Status)
	assert.Equal(t, "FOUL_OUTCOME_23", snap.BetType)
	assert.Len(t, snap.Choices, 3)
	assert.Equal(t, int64(10000), snap.RemainingMS)
	assert.True(t, f.pause.IsPaused())
	assert.Equal(t, PauseReasonBetting, f.pause.Info().Reason)
}

func TestOpportunityManager_NonBettingEventIgnored(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(models.TimelineEvent{Time: 10, Type: models.EventCommentary, Description: "quiet spell"})

	_, ok := f.mgr.Snapshot()
	assert.False(t, ok)
	assert.False(t, f.pause.IsPaused())
}

func TestOpportunityManager_FallbackChoices(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(models.TimelineEvent{Time: 30, Type: models.EventCornerBet, BetType: "NEXT_CORNER"})

	snap, ok := f.mgr.Snapshot()
	require.True(t, ok)
	require.Len(t, snap.Choices, 2)
	assert.Equal(t, "YES", snap.Choices[0].Text)
	assert.Equal(t, "NO", snap.Choices[1].Text)
}

func TestOpportunityManager_HigherPriorityPreempts(t *testing.T) {
	f := newOpportunityFixture(t)

	abandoned := make(chan events.OpportunityChangeEvent, 4)
	f.bus.Subscribe(events.EventTypeOpportunityChange, func(_ context.Context, ev events.Event) {
		change := ev.(events.OpportunityChangeEvent)
		if change.ResolvedBy == models.ResolutionAbandoned {
			abandoned <- change
		}
	})

	f.mgr.Issue(actionBetEvent(23)) // priority 6
	f.mgr.Issue(cardBetEvent(24))   // priority 9 preempts

	snap, ok := f.mgr.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "CARD_TARGET", snap.BetType)
	assert.Equal(t, 9, snap.Priority)

	select {
	case change := <-abandoned:
		assert.Equal(t, models.OpportunityResolved, change.NewStatus)
	case <-time.After(time.Second):
		t.Fatal("preempted opportunity was never marked abandoned")
	}
	assert.True(t, f.pause.IsPaused())
}

func TestOpportunityManager_LowerOrEqualPriorityQueues(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(cardBetEvent(24))   // priority 9 active
	f.mgr.Issue(actionBetEvent(25)) // priority 6 queues
	f.mgr.Issue(cardBetEvent(26))   // equal priority also queues

	snap, ok := f.mgr.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "CARD_TARGET", snap.BetType)

	// Resolving the active promotes the first queued one.
	require.NoError(t, f.mgr.Skip())

	snap, ok = f.mgr.Snapshot()
	require.True(t, ok)
	assert.Equal(t, "FOUL_OUTCOME_23", snap.BetType)
	assert.True(t, f.pause.IsPaused())
}

func TestOpportunityManager_SelectChoice_Validation(t *testing.T) {
	f := newOpportunityFixture(t)

	assert.ErrorIs(t, f.mgr.SelectChoice("YES", 2.0), ErrValidation)

	f.mgr.Issue(actionBetEvent(23))

	assert.ErrorIs(t, f.mgr.SelectChoice("GOAL", 5.0), ErrValidation)
	assert.ErrorIs(t, f.mgr.SelectChoice(models.ActionOutcomeMinor, 99.0), ErrValidation)
	assert.NoError(t, f.mgr.SelectChoice(models.ActionOutcomeMinor, 1.7))
}

func TestOpportunityManager_ConfirmStake_PlacesBetAndResumes(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(actionBetEvent(23))
	require.NoError(t, f.mgr.SelectChoice(models.ActionOutcomeWarning, 3.4))
	require.NoError(t, f.mgr.ConfirmStake(100))

	_, ok := f.mgr.Snapshot()
	assert.False(t, ok)

	bets := f.settlement.Bets()
	require.Len(t, bets, 1)
	assert.Equal(t, models.BetKindOpportunity, bets[0].Kind)
	assert.Equal(t, "FOUL_OUTCOME_23", bets[0].BetType)
	assert.Equal(t, models.ActionOutcomeWarning, bets[0].Outcome)
	assert.Equal(t, int64(900), f.settlement.WalletBalance())

	waitUnpaused(t, f)
}

func TestOpportunityManager_ConfirmStake_RequiresSelectedChoice(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(actionBetEvent(23))

	assert.ErrorIs(t, f.mgr.ConfirmStake(100), ErrValidation)

	// The window stays open after the rejection.
	_, ok := f.mgr.Snapshot()
	assert.True(t, ok)
}

func TestOpportunityManager_ConfirmStake_InvalidStakeKeepsWindowOpen(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(actionBetEvent(23))
	require.NoError(t, f.mgr.SelectChoice(models.ActionOutcomeMinor, 1.7))

	assert.ErrorIs(t, f.mgr.ConfirmStake(0), ErrValidation)
	assert.ErrorIs(t, f.mgr.ConfirmStake(5000), ErrValidation)

	_, ok := f.mgr.Snapshot()
	assert.True(t, ok)
	assert.True(t, f.pause.IsPaused())

	// A valid retry still goes through.
	require.NoError(t, f.mgr.ConfirmStake(10))
	waitUnpaused(t, f)
}

func TestOpportunityManager_ResumeCountdownOnlyAfterPlacedBet(t *testing.T) {
	f := newOpportunityFixture(t)

	var countdowns atomic.Int32
	f.pause.SetCountdownFunc(func(ctx context.Context, seconds int) error {
		countdowns.Add(1)
		return nil
	})

	// Skip resumes immediately, no countdown.
	f.mgr.Issue(actionBetEvent(23))
	require.NoError(t, f.mgr.Skip())
	waitUnpaused(t, f)
	assert.Equal(t, int32(0), countdowns.Load())

	// A placed bet resumes behind the countdown.
	f.mgr.Issue(cardBetEvent(40))
	require.NoError(t, f.mgr.SelectChoice("HOME_PLAYER", 2.2))
	require.NoError(t, f.mgr.ConfirmStake(20))
	waitUnpaused(t, f)
	assert.Equal(t, int32(1), countdowns.Load())
}

func TestOpportunityManager_SkipWithoutActive(t *testing.T) {
	f := newOpportunityFixture(t)
	assert.ErrorIs(t, f.mgr.Skip(), ErrValidation)
}

func TestOpportunityManager_WindowExpiryTimesOut(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(actionBetEvent(23))
	require.True(t, f.pause.IsPaused())

	f.clock.Advance(10 * time.Second)

	require.Eventually(t, func() bool {
		_, ok := f.mgr.Snapshot()
		return !ok
	}, time.Second, 10*time.Millisecond)
	waitUnpaused(t, f)
	assert.Empty(t, f.settlement.Bets())
}

func TestOpportunityManager_MinimizeRestoreKeepsOriginalWindow(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(actionBetEvent(23))
	f.clock.Advance(4 * time.Second)

	require.NoError(t, f.mgr.Minimize())
	snap, ok := f.mgr.Snapshot()
	require.True(t, ok)
	assert.Equal(t, models.OpportunityActiveMinimized, snap.Status)
	assert.True(t, f.pause.IsPaused())

	// Minimizing twice is rejected, as is restoring a visible one later.
	assert.ErrorIs(t, f.mgr.Minimize(), ErrValidation)

	f.clock.Advance(2 * time.Second)
	require.NoError(t, f.mgr.Restore())

	snap, ok = f.mgr.Snapshot()
	require.True(t, ok)
	assert.Equal(t, models.OpportunityActiveVisible, snap.Status)
	// 6 seconds elapsed since promotion; the window never resets.
	assert.Equal(t, int64(4000), snap.RemainingMS)

	assert.ErrorIs(t, f.mgr.Restore(), ErrValidation)
}

func TestOpportunityManager_MinimizedWindowStillExpires(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(actionBetEvent(23))
	require.NoError(t, f.mgr.Minimize())

	f.clock.Advance(10 * time.Second)

	require.Eventually(t, func() bool {
		_, ok := f.mgr.Snapshot()
		return !ok
	}, time.Second, 10*time.Millisecond)
	waitUnpaused(t, f)
}

func TestOpportunityManager_StaleQueuedOpportunityDiscarded(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(cardBetEvent(24))
	f.mgr.Issue(actionBetEvent(25)) // queued

	// Age the queued entry past the acceptance window.
	svc := f.mgr.(*opportunityService)
	svc.mu.Lock()
	svc.queue[0].queuedAt = svc.queue[0].queuedAt.Add(-31 * time.Second)
	svc.mu.Unlock()

	require.NoError(t, f.mgr.Skip())

	_, ok := f.mgr.Snapshot()
	assert.False(t, ok)
	waitUnpaused(t, f)
}

// mockPauseFixture wires the manager against a mocked coordinator so pause
// failures can be injected.
type mockPauseFixture struct {
	mgr      OpportunityManager
	pause    *MockPauseCoordinator
	resumed  chan struct{}
	timeouts chan events.OpportunityChangeEvent
}

func newMockPauseFixture(t *testing.T) *mockPauseFixture {
	t.Helper()
	cfg := config.Default()
	cfg.PowerUpAwardChance = 0
	clock := clockwork.NewFakeClock()
	bus := events.NewBus()

	f := &mockPauseFixture{
		pause:    new(MockPauseCoordinator),
		resumed:  make(chan struct{}, 2),
		timeouts: make(chan events.OpportunityChangeEvent, 4),
	}
	bus.Subscribe(events.EventTypeOpportunityChange, func(_ context.Context, ev events.Event) {
		change := ev.(events.OpportunityChangeEvent)
		if change.ResolvedBy == models.ResolutionTimeout {
			f.timeouts <- change
		}
	})
	f.pause.On("Resume", false, 3).Return(nil).Run(func(mock.Arguments) {
		f.resumed <- struct{}{}
	})

	settlement := NewSettlementEngine(cfg, clock, bus, 1)
	f.mgr = NewOpportunityManager(cfg, clock, bus, f.pause, settlement)
	return f
}

func (f *mockPauseFixture) expectTimeoutAndResume(t *testing.T) {
	t.Helper()
	select {
	case <-f.timeouts:
	case <-time.After(time.Second):
		t.Fatal("opportunity was never resolved as timeout")
	}
	select {
	case <-f.resumed:
	case <-time.After(time.Second):
		t.Fatal("pause was never released")
	}
}

func TestOpportunityManager_PauseFailureAtPromotionTimesOut(t *testing.T) {
	f := newMockPauseFixture(t)
	f.pause.On("Pause", PauseReasonBetting, mock.Anything).
		Return(fmt.Errorf("coordinator unavailable"))

	f.mgr.Issue(actionBetEvent(23))

	// The opportunity never stays active behind a pause that failed to take.
	_, ok := f.mgr.Snapshot()
	assert.False(t, ok)
	f.expectTimeoutAndResume(t)
}

func TestOpportunityManager_MinimizePanicResolvesAsTimeout(t *testing.T) {
	f := newMockPauseFixture(t)
	f.pause.On("Pause", PauseReasonBetting, mock.Anything).Return(nil)
	f.pause.On("ClearTimeout").Run(func(mock.Arguments) {
		panic("coordinator blew up")
	})

	f.mgr.Issue(actionBetEvent(23))
	_, ok := f.mgr.Snapshot()
	require.True(t, ok)

	// The panic is absorbed and converted into an implicit timeout.
	require.NoError(t, f.mgr.Minimize())

	_, ok = f.mgr.Snapshot()
	assert.False(t, ok)
	f.expectTimeoutAndResume(t)
}

func TestOpportunityManager_RestorePanicResolvesAsTimeout(t *testing.T) {
	f := newMockPauseFixture(t)
	f.pause.On("Pause", PauseReasonBetting, mock.Anything).Return(nil)
	f.pause.On("ClearTimeout").Once()
	f.pause.On("ClearTimeout").Run(func(mock.Arguments) {
		panic("coordinator blew up")
	})

	f.mgr.Issue(actionBetEvent(23))
	require.NoError(t, f.mgr.Minimize())

	require.NoError(t, f.mgr.Restore())

	_, ok := f.mgr.Snapshot()
	assert.False(t, ok)
	f.expectTimeoutAndResume(t)
}

func TestOpportunityManager_ForcedResumeTimesOutActive(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(actionBetEvent(23))

	// A forced auto-resume elsewhere must not leave the opportunity dangling.
	f.bus.Emit(context.Background(), events.PauseStateChangeEvent{Paused: false, Forced: true})

	require.Eventually(t, func() bool {
		_, ok := f.mgr.Snapshot()
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestOpportunityManager_Reset(t *testing.T) {
	f := newOpportunityFixture(t)

	f.mgr.Issue(cardBetEvent(24))
	f.mgr.Issue(actionBetEvent(25))

	f.mgr.Reset()

	_, ok := f.mgr.Snapshot()
	assert.False(t, ok)
}
