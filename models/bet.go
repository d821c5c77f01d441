package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// BetKind separates the two independent stake categories.
type BetKind string

const (
	BetKindFullMatch   BetKind = "fullMatch"
	BetKindOpportunity BetKind = "opportunity"
)

// BetStatus is set exactly once and is irreversible.
type BetStatus string

const (
	BetPending BetStatus = "PENDING"
	BetWon     BetStatus = "WON"
	BetLost    BetStatus = "LOST"
)

// Bet is one ledger entry. The stake is debited on placement; the payout is
// credited at most once on settlement.
type Bet struct {
	ID        uuid.UUID  `json:"id"`
	Kind      BetKind    `json:"kind"`
	BetType   string     `json:"bet_type,omitempty"` // opportunity market tag
	Outcome   string     `json:"outcome"`
	Stake     int64      `json:"stake"`
	Odds      float64    `json:"odds"`
	Status    BetStatus  `json:"status"`
	PlacedAt  time.Time  `json:"placed_at"`
	SettledAt *time.Time `json:"settled_at,omitempty"`
}

// Payout is the gross credit for a winning bet.
func (b *Bet) Payout() int64 {
	return int64(math.Round(float64(b.Stake) * b.Odds))
}

// IsPending reports whether the bet still awaits settlement.
func (b *Bet) IsPending() bool {
	return b.Status == BetPending
}

// BetStats summarizes the ledger for the presentation layer.
type BetStats struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Won     int `json:"won"`
	Lost    int `json:"lost"`
}
