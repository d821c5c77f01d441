package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"matchbet/config"
	"matchbet/events"
	"matchbet/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

// PauseReasonBetting is the reason the opportunity manager pauses the clock.
const PauseReasonBetting = "BETTING_OPPORTUNITY"

// Markets that arrive without an explicit choice list fall back to this
// minimal one rather than failing to display.
var fallbackChoices = []models.Choice{
	{Text: "YES", Odds: 2.0},
	{Text: "NO", Odds: 2.0},
}

type queuedOpportunity struct {
	opp      *models.BettingOpportunity
	queuedAt time.Time
}

type opportunityService struct {
	cfg        *config.Config
	clock      clockwork.Clock
	bus        *events.Bus
	pause      PauseCoordinator
	settlement SettlementEngine

	mu            sync.Mutex
	active        *models.BettingOpportunity
	queue         []queuedOpportunity
	window        *epochTimer
	pendingChoice *models.Choice
}

// NewOpportunityManager creates the manager owning the single ACTIVE betting
// slot. It also subscribes to forced resumes so a pause that was released for
// liveness cannot leave an opportunity dangling.
func NewOpportunityManager(cfg *config.Config, clock clockwork.Clock, bus *events.Bus, pause PauseCoordinator, settlement SettlementEngine) OpportunityManager {
	s := &opportunityService{
		cfg:        cfg,
		clock:      clock,
		bus:        bus,
		pause:      pause,
		settlement: settlement,
		window:     newEpochTimer(clock),
	}
	bus.Subscribe(events.EventTypePauseStateChange, s.onPauseStateChange)
	return s
}

// onPauseStateChange repairs the ACTIVE-without-pause inconsistency left by a
// forced auto-resume: the surviving opportunity is timed out.
func (s *opportunityService) onPauseStateChange(_ context.Context, event events.Event) {
	change, ok := event.(events.PauseStateChangeEvent)
	if !ok || change.Paused || !change.Forced {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return
	}
	log.WithField("opportunityId", s.active.ID).
		Warn("Forced resume left an active opportunity, resolving as timeout")
	s.finalizeLocked(models.ResolutionTimeout, false)
}

func (s *opportunityService) Issue(ev models.TimelineEvent) {
	if !models.IsBettingCapable(ev) {
		return
	}

	opp := &models.BettingOpportunity{
		ID:        uuid.New(),
		Event:     ev,
		Status:    models.OpportunityQueued,
		Priority:  models.Priority(ev),
		CreatedAt: s.clock.Now(),
		Duration:  s.cfg.OpportunityCountdown,
	}
	if len(opp.Event.Choices) == 0 {
		opp.Event.Choices = append([]models.Choice(nil), fallbackChoices...)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.active == nil:
		s.promoteLocked(opp)
	case opp.Priority > s.active.Priority:
		preempted := s.active
		log.WithFields(log.Fields{
			"preempted":   preempted.ID,
			"newcomer":    opp.ID,
			"oldPriority": preempted.Priority,
			"newPriority": opp.Priority,
		}).Info("Higher-priority opportunity preempts the active one")

		s.window.Cancel()
		s.pendingChoice = nil
		s.active = nil
		s.markResolved(preempted, models.ResolutionAbandoned)
		s.promoteLocked(opp)
	default:
		s.queue = append(s.queue, queuedOpportunity{opp: opp, queuedAt: s.clock.Now()})
		log.WithFields(log.Fields{
			"opportunityId": opp.ID,
			"queueDepth":    len(s.queue),
		}).Info("Opportunity queued behind the active one")
	}
}

// promoteLocked makes opp the single ACTIVE opportunity, pauses the clock
// with a guard strictly larger than the betting window, and arms the window
// timer. Any failure is treated as an implicit timeout so the pause is
// eventually released.
func (s *opportunityService) promoteLocked(opp *models.BettingOpportunity) {
	old := opp.Status
	opp.Status = models.OpportunityActiveVisible
	opp.StartedAt = s.clock.Now()
	s.active = opp

	if err := s.pause.Pause(PauseReasonBetting, s.cfg.PauseGuard); err != nil {
		log.WithError(err).Error("Failed to pause for betting opportunity, timing it out")
		s.finalizeLocked(models.ResolutionTimeout, false)
		return
	}

	id := opp.ID
	s.window.Arm(opp.Duration, func() { s.expireWindow(id) })

	s.bus.Emit(context.Background(), events.OpportunityChangeEvent{
		OpportunityID: opp.ID.String(),
		BetType:       opp.Event.BetType,
		OldStatus:     old,
		NewStatus:     models.OpportunityActiveVisible,
	})
}

// expireWindow is the window timer callback. The identity check makes a
// stale fire for an already-replaced opportunity a no-op.
func (s *opportunityService) expireWindow(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil || s.active.ID != id {
		return
	}
	log.WithField("opportunityId", id).Info("Betting window expired")
	s.finalizeLocked(models.ResolutionTimeout, false)
}

func (s *opportunityService) SelectChoice(text string, odds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || !s.active.IsActive() {
		return fmt.Errorf("%w: no active betting opportunity", ErrValidation)
	}
	if s.active.Expired(s.clock.Now()) {
		s.finalizeLocked(models.ResolutionTimeout, false)
		return fmt.Errorf("%w: betting window already expired", ErrValidation)
	}
	for _, c := range s.active.Event.Choices {
		if c.Text == text && c.Odds == odds {
			s.pendingChoice = &models.Choice{Text: text, Odds: odds}
			return nil
		}
	}
	return fmt.Errorf("%w: choice %q is not offered by this opportunity", ErrValidation, text)
}

func (s *opportunityService) ConfirmStake(amount int64) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || !s.active.IsActive() {
		return fmt.Errorf("%w: no active betting opportunity", ErrValidation)
	}
	if s.pendingChoice == nil {
		return fmt.Errorf("%w: no choice selected", ErrValidation)
	}

	choice := *s.pendingChoice
	bet, err := s.settlement.PlaceBet(models.BetKindOpportunity, s.active.Event.BetType, choice.Text, choice.Odds, amount)
	if err != nil {
		// Validation failure leaves the window open so the player can retry.
		return err
	}

	// If finalization blows up the stake must come back and the pause must
	// still be released.
	defer func() {
		if r := recover(); r != nil {
			s.settlement.RefundBet(bet.ID.String())
			err = fmt.Errorf("bet finalization failed, stake refunded: %v", r)
		}
	}()

	s.finalizeLocked(models.ResolutionChoice, true)
	return nil
}

func (s *opportunityService) Skip() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || !s.active.IsActive() {
		return fmt.Errorf("%w: no active betting opportunity", ErrValidation)
	}
	s.finalizeLocked(models.ResolutionSkip, false)
	return nil
}

func (s *opportunityService) Minimize() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.Status != models.OpportunityActiveVisible {
		return fmt.Errorf("%w: only a visible opportunity can be minimized", ErrValidation)
	}

	defer s.timeoutOnPanicLocked(&err, "minimize")

	opp := s.active
	remaining := opp.Remaining(s.clock.Now())
	opp.Status = models.OpportunityActiveMinimized

	// Re-arm the pause deadline to exactly the opportunity's own remaining
	// time plus a fixed buffer: minimizing never shortens or extends the
	// betting window.
	s.pause.ClearTimeout()
	if pauseErr := s.pause.Pause(PauseReasonBetting, remaining+s.cfg.MinimizeBuffer); pauseErr != nil {
		log.WithError(pauseErr).Error("Failed to re-arm pause on minimize, timing out")
		s.finalizeLocked(models.ResolutionTimeout, false)
		return nil
	}

	s.bus.Emit(context.Background(), events.OpportunityChangeEvent{
		OpportunityID: opp.ID.String(),
		BetType:       opp.Event.BetType,
		OldStatus:     models.OpportunityActiveVisible,
		NewStatus:     models.OpportunityActiveMinimized,
	})
	return nil
}

func (s *opportunityService) Restore() (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil || s.active.Status != models.OpportunityActiveMinimized {
		return fmt.Errorf("%w: only a minimized opportunity can be restored", ErrValidation)
	}

	defer s.timeoutOnPanicLocked(&err, "restore")

	opp := s.active
	now := s.clock.Now()
	if opp.Expired(now) {
		s.finalizeLocked(models.ResolutionTimeout, false)
		return nil
	}

	opp.Status = models.OpportunityActiveVisible
	s.pause.ClearTimeout()
	if pauseErr := s.pause.Pause(PauseReasonBetting, opp.Remaining(now)+s.cfg.MinimizeBuffer); pauseErr != nil {
		log.WithError(pauseErr).Error("Failed to re-arm pause on restore, timing out")
		s.finalizeLocked(models.ResolutionTimeout, false)
		return nil
	}

	s.bus.Emit(context.Background(), events.OpportunityChangeEvent{
		OpportunityID: opp.ID.String(),
		BetType:       opp.Event.BetType,
		OldStatus:     models.OpportunityActiveMinimized,
		NewStatus:     models.OpportunityActiveVisible,
	})
	return nil
}

// timeoutOnPanicLocked converts a panic during show/minimize/restore into an
// implicit TIMEOUT so the pause is always eventually released.
func (s *opportunityService) timeoutOnPanicLocked(err *error, op string) {
	if r := recover(); r != nil {
		log.WithFields(log.Fields{"op": op, "panic": r}).
			Error("Opportunity operation failed, resolving as timeout")
		if s.active != nil {
			s.finalizeLocked(models.ResolutionTimeout, false)
		}
		*err = nil
	}
}

// finalizeLocked resolves the active opportunity, promotes the next queued
// one still inside the acceptance window, and otherwise resumes the clock.
// The resume uses a countdown only when a bet was placed.
func (s *opportunityService) finalizeLocked(by models.ResolutionKind, betPlaced bool) {
	opp := s.active
	if opp == nil {
		return
	}
	s.window.Cancel()
	s.pendingChoice = nil
	s.active = nil
	s.markResolved(opp, by)

	now := s.clock.Now()
	for len(s.queue) > 0 {
		next := s.queue[0]
		s.queue = s.queue[1:]
		if now.Sub(next.queuedAt) > s.cfg.QueueAcceptanceWindow {
			log.WithFields(log.Fields{
				"opportunityId": next.opp.ID,
				"queuedFor":     now.Sub(next.queuedAt),
			}).Info("Queued opportunity expired before its turn, discarding")
			s.markResolved(next.opp, models.ResolutionTimeout)
			continue
		}
		s.promoteLocked(next.opp)
		return
	}

	withCountdown := by == models.ResolutionChoice && betPlaced
	seconds := s.cfg.ResumeCountdownSecs
	// Resume may drive a blocking countdown display; never on the caller's
	// goroutine.
	go func() {
		if err := s.pause.Resume(withCountdown, seconds); err != nil {
			log.WithError(err).Warn("Resume after opportunity resolution failed")
		}
	}()
}

func (s *opportunityService) markResolved(opp *models.BettingOpportunity, by models.ResolutionKind) {
	old := opp.Status
	opp.Status = models.OpportunityResolved
	opp.ResolvedBy = by
	s.bus.Emit(context.Background(), events.OpportunityChangeEvent{
		OpportunityID: opp.ID.String(),
		BetType:       opp.Event.BetType,
		OldStatus:     old,
		NewStatus:     models.OpportunityResolved,
		ResolvedBy:    by,
	})
}

func (s *opportunityService) Snapshot() (models.OpportunitySnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active == nil {
		return models.OpportunitySnapshot{}, false
	}
	return models.OpportunitySnapshot{
		ID:          s.active.ID,
		Status:      s.active.Status,
		BetType:     s.active.Event.BetType,
		Choices:     append([]models.Choice(nil), s.active.Event.Choices...),
		RemainingMS: s.active.Remaining(s.clock.Now()).Milliseconds(),
		Priority:    s.active.Priority,
	}, true
}

func (s *opportunityService) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window.Cancel()
	s.active = nil
	s.queue = nil
	s.pendingChoice = nil
}
