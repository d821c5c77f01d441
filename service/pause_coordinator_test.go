package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"matchbet/config"
	"matchbet/events"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPause(t *testing.T) (PauseCoordinator, *clockwork.FakeClock, *events.Bus) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	bus := events.NewBus()
	return NewPauseCoordinator(config.Default(), clock, bus), clock, bus
}

func TestPauseCoordinator_PauseAndResume(t *testing.T) {
	pause, clock, _ := newTestPause(t)

	require.NoError(t, pause.Pause("BETTING_OPPORTUNITY", 15*time.Second))
	assert.True(t, pause.IsPaused())

	info := pause.Info()
	assert.Equal(t, "BETTING_OPPORTUNITY", info.Reason)
	assert.Equal(t, clock.Now().Add(15*time.Second), info.AutoResumeAt)

	require.NoError(t, pause.Resume(false, 0))
	assert.False(t, pause.IsPaused())
	assert.Empty(t, pause.Info().Reason)
}

func TestPauseCoordinator_Pause_Validation(t *testing.T) {
	pause, _, _ := newTestPause(t)

	assert.ErrorIs(t, pause.Pause("", 5*time.Second), ErrValidation)
	assert.ErrorIs(t, pause.Pause("REASON", -1*time.Second), ErrValidation)
	assert.False(t, pause.IsPaused())
}

func TestPauseCoordinator_Pause_CapsAtCeiling(t *testing.T) {
	pause, clock, _ := newTestPause(t)

	require.NoError(t, pause.Pause("LONG_HOLD", time.Hour))

	assert.Equal(t, clock.Now().Add(5*time.Minute), pause.Info().AutoResumeAt)
}

func TestPauseCoordinator_RepauseRewritesDeadline(t *testing.T) {
	pause, clock, bus := newTestPause(t)

	var pauseEvents atomic.Int32
	bus.Subscribe(events.EventTypePauseStateChange, func(_ context.Context, ev events.Event) {
		if ev.(events.PauseStateChangeEvent).Paused {
			pauseEvents.Add(1)
		}
	})

	require.NoError(t, pause.Pause("FIRST", 5*time.Second))
	require.NoError(t, pause.Pause("SECOND", 20*time.Second))

	info := pause.Info()
	assert.Equal(t, "SECOND", info.Reason)
	assert.Equal(t, clock.Now().Add(20*time.Second), info.AutoResumeAt)

	// Only the initial transition announces itself; the rewrite is silent.
	assert.Eventually(t, func() bool { return pauseEvents.Load() == 1 }, time.Second, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(1), pauseEvents.Load())
}

func TestPauseCoordinator_ResumeWhileRunningIsNoOp(t *testing.T) {
	pause, _, _ := newTestPause(t)

	assert.NoError(t, pause.Resume(false, 0))
	assert.NoError(t, pause.Resume(true, 3))
	assert.False(t, pause.IsPaused())
}

func TestPauseCoordinator_AutoResumeDeadline(t *testing.T) {
	pause, clock, bus := newTestPause(t)

	forced := make(chan events.PauseStateChangeEvent, 1)
	bus.Subscribe(events.EventTypePauseStateChange, func(_ context.Context, ev events.Event) {
		change := ev.(events.PauseStateChangeEvent)
		if !change.Paused {
			forced <- change
		}
	})

	require.NoError(t, pause.Pause("STUCK", 5*time.Second))
	clock.Advance(5 * time.Second)

	select {
	case change := <-forced:
		assert.True(t, change.Forced)
	case <-time.After(time.Second):
		t.Fatal("auto-resume deadline never fired")
	}
	assert.False(t, pause.IsPaused())
}

func TestPauseCoordinator_ClearTimeoutKeepsPause(t *testing.T) {
	pause, clock, _ := newTestPause(t)

	require.NoError(t, pause.Pause("BETTING_OPPORTUNITY", 5*time.Second))
	pause.ClearTimeout()

	clock.Advance(time.Minute)
	time.Sleep(20 * time.Millisecond)

	assert.True(t, pause.IsPaused())
	assert.True(t, pause.Info().AutoResumeAt.IsZero())
}

func TestPauseCoordinator_ResumeDrivesCountdown(t *testing.T) {
	pause, _, _ := newTestPause(t)

	release := make(chan struct{})
	var seen atomic.Int32
	pause.SetCountdownFunc(func(ctx context.Context, seconds int) error {
		seen.Store(int32(seconds))
		<-release
		return nil
	})

	require.NoError(t, pause.Pause("BETTING_OPPORTUNITY", 15*time.Second))

	done := make(chan error, 1)
	go func() { done <- pause.Resume(true, 3) }()

	// Still paused while the countdown display runs.
	assert.Eventually(t, func() bool { return seen.Load() == 3 }, time.Second, 10*time.Millisecond)
	assert.True(t, pause.IsPaused())

	close(release)
	require.NoError(t, <-done)
	assert.False(t, pause.IsPaused())
}

func TestPauseCoordinator_CountdownOverrunForcesResume(t *testing.T) {
	pause, clock, _ := newTestPause(t)

	started := make(chan struct{})
	pause.SetCountdownFunc(func(ctx context.Context, seconds int) error {
		close(started)
		<-ctx.Done() // hangs until the guard cancels it
		return ctx.Err()
	})

	require.NoError(t, pause.Pause("BETTING_OPPORTUNITY", 15*time.Second))

	done := make(chan error, 1)
	go func() { done <- pause.Resume(true, 3) }()

	<-started
	// Guard is countdown seconds plus the configured buffer.
	clock.BlockUntil(1)
	clock.Advance(5 * time.Second)

	require.NoError(t, <-done)
	assert.False(t, pause.IsPaused())
}

func TestPauseCoordinator_CountdownPanicStillResumes(t *testing.T) {
	pause, _, _ := newTestPause(t)

	pause.SetCountdownFunc(func(ctx context.Context, seconds int) error {
		panic("display blew up")
	})

	require.NoError(t, pause.Pause("BETTING_OPPORTUNITY", 15*time.Second))
	require.NoError(t, pause.Resume(true, 3))
	assert.False(t, pause.IsPaused())
}
