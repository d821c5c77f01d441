package models

// Teams holds the two sides of a match.
type Teams struct {
	Home string `json:"home"`
	Away string `json:"away"`
}

// MatchState is the authoritative state of the simulated match. It is owned
// exclusively by the clock engine; everyone else sees snapshots.
type MatchState struct {
	Teams       Teams
	Time        int // virtual minute, 0..90
	HomeScore   int
	AwayScore   int
	Timeline    []TimelineEvent
	Odds        Odds
	InitialOdds Odds
	Finished    bool
}

// FinalOutcome maps the score line to a full-match bet outcome.
func (m *MatchState) FinalOutcome() string {
	switch {
	case m.HomeScore > m.AwayScore:
		return OutcomeHome
	case m.AwayScore > m.HomeScore:
		return OutcomeAway
	default:
		return OutcomeDraw
	}
}

// Full-match bet outcomes.
const (
	OutcomeHome = "HOME"
	OutcomeDraw = "DRAW"
	OutcomeAway = "AWAY"
)

// MatchSnapshot is the immutable view handed to the presentation layer.
type MatchSnapshot struct {
	Teams       Teams `json:"teams"`
	Time        int   `json:"time"`
	HomeScore   int   `json:"home_score"`
	AwayScore   int   `json:"away_score"`
	Odds        Odds  `json:"odds"`
	InitialOdds Odds  `json:"initial_odds"`
	Paused      bool  `json:"paused"`
	Finished    bool  `json:"finished"`
}
