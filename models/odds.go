package models

// Odds is a decimal-odds triple for the full-match market.
type Odds struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// For returns the odds for a full-match outcome, zero if unknown.
func (o Odds) For(outcome string) float64 {
	switch outcome {
	case OutcomeHome:
		return o.Home
	case OutcomeDraw:
		return o.Draw
	case OutcomeAway:
		return o.Away
	}
	return 0
}
