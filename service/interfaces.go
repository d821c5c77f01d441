package service

import (
	"context"
	"time"

	"matchbet/models"
)

// ClockEngine advances virtual match time on each external pulse and emits
// due timeline events.
type ClockEngine interface {
	// AdvanceTick advances time by one quantum unless the match is paused or
	// finished. It never blocks and never returns an error to the pulse
	// source; failures are absorbed internally.
	AdvanceTick()

	// Snapshot returns an immutable view of the match state.
	Snapshot() models.MatchSnapshot

	// Reset discards all match state and starts a fresh match.
	Reset()

	// Stopped reports whether the clock has halted (full time or an
	// engine-level failure).
	Stopped() bool
}

// CountdownFunc displays a pre-resume countdown. It blocks until the display
// finishes; the coordinator races it against an internal guard timer so a
// hanging callback cannot stall resumption.
type CountdownFunc func(ctx context.Context, seconds int) error

// PauseCoordinator tracks the single pause that freezes the match clock.
type PauseCoordinator interface {
	// Pause suspends the clock with a reason and an auto-resume deadline.
	// If already paused, the deadline and reason are rewritten rather than
	// stacking.
	Pause(reason string, timeout time.Duration) error

	// Resume transitions back to running. A resume while running is a no-op
	// success. With a countdown, the display callback is driven first under
	// a guard timeout.
	Resume(withCountdown bool, seconds int) error

	// ClearTimeout cancels the pending auto-resume deadline without changing
	// the paused/running state.
	ClearTimeout()

	IsPaused() bool
	Info() models.PauseInfo

	// SetCountdownFunc installs the externally supplied display callback.
	SetCountdownFunc(fn CountdownFunc)
}

// OpportunityManager owns the betting-opportunity lifecycle and the single
// ACTIVE slot.
type OpportunityManager interface {
	// Issue classifies a timeline event and either promotes, preempts or
	// queues a betting opportunity. Non-betting events are ignored.
	Issue(ev models.TimelineEvent)

	// SelectChoice starts the stake-entry sub-flow for the active window.
	SelectChoice(text string, odds float64) error

	// ConfirmStake places the bet for the previously selected choice and
	// finalizes the opportunity.
	ConfirmStake(amount int64) error

	// Skip resolves the active opportunity without a bet.
	Skip() error

	Minimize() error
	Restore() error

	// Snapshot returns the active opportunity view, false when none is active.
	Snapshot() (models.OpportunitySnapshot, bool)

	// Reset discards all opportunity state for a new match.
	Reset()
}

// SettlementEngine records bets, resolves them and owns the wallet.
type SettlementEngine interface {
	// PlaceBet validates and debits the stake, then appends a PENDING bet.
	PlaceBet(kind models.BetKind, betType, outcome string, odds float64, stake int64) (*models.Bet, error)

	// RefundBet reverses a placement whose downstream flow failed.
	RefundBet(id string)

	// ResolveOpportunityBets settles all pending opportunity bets carrying
	// the market tag against the revealed outcome.
	ResolveOpportunityBets(betType, actualOutcome string)

	// SettleFullMatchBets settles every pending full-match bet and credits
	// the aggregate winnings, doubled once if a power-up was applied.
	SettleFullMatchBets(finalOutcome string)

	UsePowerUp() error
	PowerUp() models.PowerUp

	WalletBalance() int64
	Bets() []models.Bet
	Stats() models.BetStats

	// LastStake returns the remembered pre-fill stake for a category.
	LastStake(kind models.BetKind) int64

	// Reset restores the wallet and clears the ledger for a new match.
	Reset()
}
