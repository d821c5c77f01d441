package models

import (
	"time"

	"github.com/google/uuid"
)

// OpportunityStatus is the lifecycle state of a betting opportunity.
type OpportunityStatus string

const (
	OpportunityQueued          OpportunityStatus = "QUEUED"
	OpportunityActiveVisible   OpportunityStatus = "ACTIVE_VISIBLE"
	OpportunityActiveMinimized OpportunityStatus = "ACTIVE_MINIMIZED"
	OpportunityResolved        OpportunityStatus = "RESOLVED"
)

// ResolutionKind records how an opportunity left the ACTIVE state.
type ResolutionKind string

const (
	ResolutionChoice  ResolutionKind = "CHOICE"
	ResolutionTimeout ResolutionKind = "TIMEOUT"
	ResolutionSkip    ResolutionKind = "SKIP"
	// ResolutionAbandoned marks an opportunity cancelled by a higher-priority
	// preemption. Not counted as a settled loss.
	ResolutionAbandoned ResolutionKind = "ABANDONED"
)

// BettingOpportunity is the per-event betting window. At most one is
// ACTIVE_* at any time.
type BettingOpportunity struct {
	ID         uuid.UUID
	Event      TimelineEvent
	Status     OpportunityStatus
	Priority   int
	CreatedAt  time.Time
	StartedAt  time.Time // set when promoted to ACTIVE_VISIBLE
	Duration   time.Duration
	ResolvedBy ResolutionKind
}

// IsActive reports whether the opportunity holds the single ACTIVE slot.
func (o *BettingOpportunity) IsActive() bool {
	return o.Status == OpportunityActiveVisible || o.Status == OpportunityActiveMinimized
}

// Remaining computes the unexpired part of the betting window from the
// original start timestamp. Minimize/restore never reset it.
func (o *BettingOpportunity) Remaining(now time.Time) time.Duration {
	if o.StartedAt.IsZero() {
		return o.Duration
	}
	left := o.Duration - now.Sub(o.StartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the betting window has fully elapsed.
func (o *BettingOpportunity) Expired(now time.Time) bool {
	return !o.StartedAt.IsZero() && o.Remaining(now) == 0
}

// OpportunitySnapshot is the immutable view of the active opportunity.
type OpportunitySnapshot struct {
	ID          uuid.UUID         `json:"id"`
	Status      OpportunityStatus `json:"status"`
	BetType     string            `json:"bet_type"`
	Choices     []Choice          `json:"choices"`
	RemainingMS int64             `json:"remaining_ms"`
	Priority    int               `json:"priority"`
}
