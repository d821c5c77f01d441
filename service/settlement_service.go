package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"matchbet/config"
	"matchbet/events"
	"matchbet/models"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

type settlementEngine struct {
	cfg   *config.Config
	clock clockwork.Clock
	bus   *events.Bus
	rng   *rand.Rand

	mu        sync.Mutex
	balance   int64
	bets      []*models.Bet
	lastStake map[models.BetKind]int64
	powerUp   models.PowerUp
	// closed is set by the final settlement; once the match is decided no
	// further full-match bet has a path to resolution.
	closed bool
}

// NewSettlementEngine creates the engine owning the wallet, the bet ledger
// and the power-up state.
func NewSettlementEngine(cfg *config.Config, clock clockwork.Clock, bus *events.Bus, seed int64) SettlementEngine {
	return &settlementEngine{
		cfg:       cfg,
		clock:     clock,
		bus:       bus,
		rng:       rand.New(rand.NewSource(seed)),
		balance:   cfg.StartingBalance,
		lastStake: make(map[models.BetKind]int64),
	}
}

func (s *settlementEngine) PlaceBet(kind models.BetKind, betType, outcome string, odds float64, stake int64) (*models.Bet, error) {
	if kind != models.BetKindFullMatch && kind != models.BetKindOpportunity {
		return nil, fmt.Errorf("%w: unknown bet kind %q", ErrValidation, kind)
	}
	if outcome == "" {
		return nil, fmt.Errorf("%w: bet outcome cannot be empty", ErrValidation)
	}
	if odds <= 0 {
		return nil, fmt.Errorf("%w: odds must be positive", ErrValidation)
	}
	if stake < s.cfg.MinStake || stake > s.cfg.MaxStake {
		return nil, fmt.Errorf("%w: stake must be between %d and %d", ErrValidation, s.cfg.MinStake, s.cfg.MaxStake)
	}

	s.mu.Lock()
	if kind == models.BetKindFullMatch && s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: the match is already decided", ErrValidation)
	}
	if stake > s.balance {
		have := s.balance
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: insufficient balance: have %d, need %d", ErrValidation, have, stake)
	}

	// Debit happens-before any credit from this bet's resolution.
	oldBalance := s.balance
	s.balance -= stake

	bet := &models.Bet{
		ID:       uuid.New(),
		Kind:     kind,
		BetType:  betType,
		Outcome:  outcome,
		Stake:    stake,
		Odds:     odds,
		Status:   models.BetPending,
		PlacedAt: s.clock.Now(),
	}
	s.bets = append(s.bets, bet)
	s.lastStake[kind] = stake
	newBalance := s.balance
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"betId":   bet.ID,
		"kind":    kind,
		"outcome": outcome,
		"stake":   stake,
		"odds":    odds,
	}).Info("Bet placed")

	ctx := context.Background()
	s.bus.Emit(ctx, events.BetPlacedEvent{
		BetID: bet.ID.String(), Kind: kind, Outcome: outcome, Stake: stake, Odds: odds,
	})
	s.bus.Emit(ctx, events.BalanceChangeEvent{
		OldBalance: oldBalance, NewBalance: newBalance, ChangeAmount: -stake, Reason: "bet_placed",
	})

	copied := *bet
	return &copied, nil
}

// RefundBet reverses a placement whose downstream flow failed before the bet
// could stand: the entry is dropped from the ledger and the stake returned.
func (s *settlementEngine) RefundBet(id string) {
	s.mu.Lock()
	var refunded *models.Bet
	for i, bet := range s.bets {
		if bet.ID.String() == id && bet.IsPending() {
			refunded = bet
			s.bets = append(s.bets[:i], s.bets[i+1:]...)
			break
		}
	}
	if refunded == nil {
		s.mu.Unlock()
		return
	}
	oldBalance := s.balance
	s.balance += refunded.Stake
	newBalance := s.balance
	s.mu.Unlock()

	log.WithFields(log.Fields{"betId": id, "stake": refunded.Stake}).Warn("Bet refunded")
	s.bus.Emit(context.Background(), events.BalanceChangeEvent{
		OldBalance: oldBalance, NewBalance: newBalance, ChangeAmount: refunded.Stake, Reason: "refund",
	})
}

func (s *settlementEngine) ResolveOpportunityBets(betType, actualOutcome string) {
	ctx := context.Background()
	now := s.clock.Now()

	s.mu.Lock()
	resolved := 0
	var settledEvents []events.BetSettledEvent
	var balanceEvents []events.BalanceChangeEvent
	for _, bet := range s.bets {
		if bet.Kind != models.BetKindOpportunity || bet.BetType != betType || !bet.IsPending() {
			continue
		}
		resolved++
		at := now
		bet.SettledAt = &at
		if bet.Outcome == actualOutcome {
			bet.Status = models.BetWon
			payout := bet.Payout()
			oldBalance := s.balance
			s.balance += payout
			settledEvents = append(settledEvents, events.BetSettledEvent{
				BetID: bet.ID.String(), Status: models.BetWon, Payout: payout,
			})
			balanceEvents = append(balanceEvents, events.BalanceChangeEvent{
				OldBalance: oldBalance, NewBalance: s.balance, ChangeAmount: payout, Reason: "bet_won",
			})
		} else {
			bet.Status = models.BetLost
			settledEvents = append(settledEvents, events.BetSettledEvent{
				BetID: bet.ID.String(), Status: models.BetLost,
			})
		}
	}

	awarded := ""
	if resolved > 0 && !s.cfg.ClassicMode && s.powerUp.Held == "" && s.rng.Float64() < s.cfg.PowerUpAwardChance {
		s.powerUp.Held = models.PowerUpDoubleWinnings
		awarded = s.powerUp.Held
	}
	s.mu.Unlock()

	if resolved > 0 {
		log.WithFields(log.Fields{
			"betType": betType,
			"outcome": actualOutcome,
			"count":   resolved,
		}).Info("Opportunity bets resolved")
	}
	for _, ev := range settledEvents {
		s.bus.Emit(ctx, ev)
	}
	for _, ev := range balanceEvents {
		s.bus.Emit(ctx, ev)
	}
	if awarded != "" {
		log.WithField("kind", awarded).Info("Power-up awarded")
		s.bus.Emit(ctx, events.PowerUpAwardedEvent{Kind: awarded})
	}
}

func (s *settlementEngine) SettleFullMatchBets(finalOutcome string) {
	ctx := context.Background()
	now := s.clock.Now()

	s.mu.Lock()
	s.closed = true
	var winnings int64
	var settledEvents []events.BetSettledEvent
	for _, bet := range s.bets {
		if bet.Kind != models.BetKindFullMatch || !bet.IsPending() {
			continue
		}
		at := now
		bet.SettledAt = &at
		if bet.Outcome == finalOutcome {
			bet.Status = models.BetWon
			payout := bet.Payout()
			winnings += payout
			settledEvents = append(settledEvents, events.BetSettledEvent{
				BetID: bet.ID.String(), Status: models.BetWon, Payout: payout,
			})
		} else {
			bet.Status = models.BetLost
			settledEvents = append(settledEvents, events.BetSettledEvent{
				BetID: bet.ID.String(), Status: models.BetLost,
			})
		}
	}

	// The multiplier doubles the aggregate winnings once, not each bet.
	doubled := false
	if winnings > 0 && s.powerUp.Applied {
		winnings *= 2
		doubled = true
	}
	oldBalance := s.balance
	s.balance += winnings
	newBalance := s.balance
	s.mu.Unlock()

	log.WithFields(log.Fields{
		"outcome":  finalOutcome,
		"winnings": winnings,
		"doubled":  doubled,
	}).Info("Full-match bets settled")

	for _, ev := range settledEvents {
		s.bus.Emit(ctx, ev)
	}
	if winnings > 0 {
		s.bus.Emit(ctx, events.BalanceChangeEvent{
			OldBalance: oldBalance, NewBalance: newBalance, ChangeAmount: winnings, Reason: "full_match_settlement",
		})
	}
}

func (s *settlementEngine) UsePowerUp() error {
	s.mu.Lock()

	if s.powerUp.Held == "" {
		s.mu.Unlock()
		return fmt.Errorf("%w: no power-up held", ErrValidation)
	}
	if s.powerUp.Applied {
		s.mu.Unlock()
		return fmt.Errorf("%w: power-up already applied this match", ErrValidation)
	}
	hasFullMatchBet := false
	for _, bet := range s.bets {
		if bet.Kind == models.BetKindFullMatch {
			hasFullMatchBet = true
			break
		}
	}
	if !hasFullMatchBet {
		s.mu.Unlock()
		return fmt.Errorf("%w: a full-match bet is required before applying a power-up", ErrValidation)
	}

	kind := s.powerUp.Held
	s.powerUp.Held = ""
	s.powerUp.Applied = true
	s.mu.Unlock()

	log.Info("Power-up applied for the remainder of the match")
	s.bus.Emit(context.Background(), events.PowerUpAppliedEvent{Kind: kind})
	return nil
}

func (s *settlementEngine) PowerUp() models.PowerUp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.powerUp
}

func (s *settlementEngine) WalletBalance() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

func (s *settlementEngine) Bets() []models.Bet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Bet, len(s.bets))
	for i, bet := range s.bets {
		out[i] = *bet
	}
	return out
}

func (s *settlementEngine) Stats() models.BetStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := models.BetStats{Total: len(s.bets)}
	for _, bet := range s.bets {
		switch bet.Status {
		case models.BetPending:
			stats.Pending++
		case models.BetWon:
			stats.Won++
		case models.BetLost:
			stats.Lost++
		}
	}
	return stats
}

func (s *settlementEngine) LastStake(kind models.BetKind) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStake[kind]
}

func (s *settlementEngine) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balance = s.cfg.StartingBalance
	s.bets = nil
	s.lastStake = make(map[models.BetKind]int64)
	s.powerUp = models.PowerUp{}
	s.closed = false
}
