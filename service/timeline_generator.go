package service

import (
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"matchbet/models"
)

// Candidate event times start here and step by a uniform integer in
// [minStep, maxStep); anything past lastEventMinute is discarded.
const (
	firstEventMinute = 5
	lastEventMinute  = 88
	minStep          = 8
	maxStep          = 18
	// The paired RESOLUTION event reveals the pre-determined action outcome
	// this many minutes after the betting event.
	resolutionDelay = 4
)

var teamNames = []string{
	"Crimson United", "Harbour City", "Northgate Rovers", "Steelworks FC",
	"Oldfield Athletic", "Riverton Wanderers", "Kings Vale", "Westport Town",
}

var commentaryLines = []string{
	"A patient spell of possession in midfield",
	"The crowd urges the home side forward",
	"A long ball forward is easily gathered by the keeper",
	"Strong challenge in the centre circle, play continues",
	"The tempo drops as both sides probe for an opening",
	"A hopeful cross drifts harmlessly out of play",
	"The captain calls for calm at the back",
}

// Fixed action-bet market. The outcome is drawn at generation time and only
// revealed by the paired RESOLUTION event.
var actionChoices = []models.Choice{
	{Text: models.ActionOutcomeMinor, Odds: 1.7},
	{Text: models.ActionOutcomeWarning, Odds: 3.4},
	{Text: models.ActionOutcomeSevere, Odds: 9.0},
}

// TimelineGenerator produces the ordered event list for a match.
type TimelineGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewTimelineGenerator creates a generator seeded for reproducible matches
// in tests and varied ones in production.
func NewTimelineGenerator(seed int64) *TimelineGenerator {
	return &TimelineGenerator{rng: rand.New(rand.NewSource(seed))}
}

// PickTeams draws two distinct sides from the catalog.
func (g *TimelineGenerator) PickTeams() models.Teams {
	g.mu.Lock()
	defer g.mu.Unlock()

	home := g.rng.Intn(len(teamNames))
	away := g.rng.Intn(len(teamNames) - 1)
	if away >= home {
		away++
	}
	return models.Teams{Home: teamNames[home], Away: teamNames[away]}
}

// InitialOdds draws a plausible pre-match odds triple. The market is not
// fair by design.
func (g *TimelineGenerator) InitialOdds() models.Odds {
	g.mu.Lock()
	defer g.mu.Unlock()

	return models.Odds{
		Home: round2(1.5 + g.rng.Float64()),     // 1.50 .. 2.50
		Draw: round2(3.0 + g.rng.Float64()),     // 3.00 .. 4.00
		Away: round2(2.5 + 2.0*g.rng.Float64()), // 2.50 .. 4.50
	}
}

// Generate builds the full scheduled timeline for a match. Sparse timelines
// with few or zero generated events are valid.
func (g *TimelineGenerator) Generate(teams models.Teams) []models.TimelineEvent {
	g.mu.Lock()
	defer g.mu.Unlock()

	seq := 0
	next := func() int {
		seq++
		return seq - 1
	}

	timeline := []models.TimelineEvent{{
		Seq:         next(),
		Time:        1,
		Type:        models.EventKickOff,
		Description: fmt.Sprintf("%s kick off against %s", teams.Home, teams.Away),
	}}

	for t := firstEventMinute; t <= lastEventMinute; t += minStep + g.rng.Intn(maxStep-minStep) {
		roll := g.rng.Float64()
		switch {
		case roll < 0.20:
			team := teams.Home
			if g.rng.Intn(2) == 1 {
				team = teams.Away
			}
			timeline = append(timeline, models.TimelineEvent{
				Seq:  next(),
				Time: t,
				Type: models.EventGoal,
				Team: team,
			})
		case roll < 0.65:
			tag := fmt.Sprintf("FOUL_OUTCOME_%d", t)
			result := g.drawActionOutcome()
			timeline = append(timeline,
				models.TimelineEvent{
					Seq:     next(),
					Time:    t,
					Type:    models.EventActionBet,
					BetType: tag,
					Choices: append([]models.Choice(nil), actionChoices...),
				},
				models.TimelineEvent{
					Seq:     next(),
					Time:    t + resolutionDelay,
					Type:    models.EventResolution,
					BetType: tag,
					Result:  result,
				})
		default:
			timeline = append(timeline, models.TimelineEvent{
				Seq:         next(),
				Time:        t,
				Type:        models.EventCommentary,
				Description: commentaryLines[g.rng.Intn(len(commentaryLines))],
			})
		}
	}

	// Ascending by time, ties kept in generation order.
	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Time < timeline[j].Time
	})
	return timeline
}

// drawActionOutcome fixes the action-bet result at generation time:
// 60% minor, 30% warning, 10% severe.
func (g *TimelineGenerator) drawActionOutcome() string {
	roll := g.rng.Float64()
	switch {
	case roll < 0.60:
		return models.ActionOutcomeMinor
	case roll < 0.90:
		return models.ActionOutcomeWarning
	default:
		return models.ActionOutcomeSevere
	}
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
