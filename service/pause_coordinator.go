package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"matchbet/config"
	"matchbet/events"
	"matchbet/models"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

type pauseCoordinator struct {
	cfg   *config.Config
	clock clockwork.Clock
	bus   *events.Bus

	mu        sync.Mutex
	active    bool
	reason    string
	startedAt time.Time
	deadline  time.Time
	// epoch increments on every pause/resume transition. A resume that went
	// to sleep behind a countdown re-checks it before touching state, so the
	// auto-resume path and a manual resume are mutually idempotent.
	epoch      uint64
	autoResume *epochTimer
	countdown  CountdownFunc
}

// NewPauseCoordinator creates the coordinator that owns the single pause
// freezing the match clock.
func NewPauseCoordinator(cfg *config.Config, clock clockwork.Clock, bus *events.Bus) PauseCoordinator {
	return &pauseCoordinator{
		cfg:        cfg,
		clock:      clock,
		bus:        bus,
		autoResume: newEpochTimer(clock),
	}
}

func (p *pauseCoordinator) SetCountdownFunc(fn CountdownFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.countdown = fn
}

func (p *pauseCoordinator) Pause(reason string, timeout time.Duration) (err error) {
	if reason == "" {
		return fmt.Errorf("%w: pause reason cannot be empty", ErrValidation)
	}
	if timeout < 0 {
		return fmt.Errorf("%w: pause timeout cannot be negative", ErrValidation)
	}
	if timeout > p.cfg.PauseCeiling {
		log.WithFields(log.Fields{
			"requested": timeout,
			"ceiling":   p.cfg.PauseCeiling,
		}).Warn("Pause timeout exceeds ceiling, capping")
		timeout = p.cfg.PauseCeiling
	}

	// A half-applied pause is worse than no pause: on any internal failure
	// fall back to the running state.
	defer func() {
		if r := recover(); r != nil {
			p.mu.Lock()
			p.active = false
			p.reason = ""
			p.deadline = time.Time{}
			p.epoch++
			p.mu.Unlock()
			err = fmt.Errorf("pause failed, reverted to running: %v", r)
		}
	}()

	p.mu.Lock()
	now := p.clock.Now()
	wasActive := p.active
	if !wasActive {
		p.active = true
		p.startedAt = now
	}
	p.reason = reason
	p.deadline = now.Add(timeout)
	p.epoch++
	p.autoResume.Arm(timeout, p.forceResume)
	p.mu.Unlock()

	if wasActive {
		log.WithFields(log.Fields{"reason": reason, "timeout": timeout}).
			Debug("Already paused, rewrote deadline")
		return nil
	}

	log.WithFields(log.Fields{"reason": reason, "timeout": timeout}).Info("Match clock paused")
	p.bus.Emit(context.Background(), events.PauseStateChangeEvent{Paused: true, Reason: reason})
	return nil
}

func (p *pauseCoordinator) Resume(withCountdown bool, seconds int) error {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return nil
	}
	p.autoResume.Cancel()
	p.deadline = time.Time{}
	observed := p.epoch
	fn := p.countdown
	p.mu.Unlock()

	if withCountdown && seconds > 0 && fn != nil {
		p.runCountdown(fn, seconds)
	}

	p.mu.Lock()
	if !p.active || p.epoch != observed {
		// A forced resume or a concurrent manual resume already transitioned.
		p.mu.Unlock()
		return nil
	}
	reason := p.reason
	p.transitionToRunningLocked()
	p.mu.Unlock()

	log.WithField("reason", reason).Info("Match clock resumed")
	p.bus.Emit(context.Background(), events.PauseStateChangeEvent{Paused: false, Reason: reason})
	return nil
}

// runCountdown drives the display callback raced against a guard timer so a
// failing or hanging callback cannot block resumption.
func (p *pauseCoordinator) runCountdown(fn CountdownFunc, seconds int) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("countdown display panicked: %v", r)
			}
		}()
		done <- fn(ctx, seconds)
	}()

	guard := time.Duration(seconds)*time.Second + p.cfg.CountdownGuardBuffer
	select {
	case err := <-done:
		if err != nil {
			log.WithError(err).Warn("Countdown display failed, resuming anyway")
		}
	case <-p.clock.After(guard):
		log.WithField("guard", guard).Warn("Countdown display overran its guard, forcing resume")
	}
}

// forceResume fires when the auto-resume deadline elapses while still paused.
// It always succeeds: liveness over completeness.
func (p *pauseCoordinator) forceResume() {
	p.mu.Lock()
	if !p.active {
		p.mu.Unlock()
		return
	}
	reason := p.reason
	p.transitionToRunningLocked()
	p.mu.Unlock()

	log.WithField("reason", reason).Warn("Pause hit its auto-resume deadline, force-resuming")
	p.bus.Emit(context.Background(), events.PauseStateChangeEvent{Paused: false, Reason: reason, Forced: true})
}

func (p *pauseCoordinator) transitionToRunningLocked() {
	p.active = false
	p.reason = ""
	p.startedAt = time.Time{}
	p.deadline = time.Time{}
	p.epoch++
}

// ClearTimeout cancels the pending auto-resume deadline without changing
// state. Used when an opportunity is minimized or restored, before the
// deadline is re-synchronized to the opportunity's own remaining time.
func (p *pauseCoordinator) ClearTimeout() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.autoResume.Cancel()
	p.deadline = time.Time{}
}

func (p *pauseCoordinator) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *pauseCoordinator) Info() models.PauseInfo {
	p.mu.Lock()
	defer p.mu.Unlock()
	return models.PauseInfo{
		Active:       p.active,
		Reason:       p.reason,
		StartedAt:    p.startedAt,
		AutoResumeAt: p.deadline,
	}
}
