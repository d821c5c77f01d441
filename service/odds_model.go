package service

import "matchbet/models"

// Floors the model never crosses.
const (
	winOddsFloor  = 1.05
	drawOddsFloor = 1.5
)

// RecomputeOdds derives the current full-match odds from the score line and
// elapsed time. The model is intentionally leader-biased: the leading side's
// odds shrink toward the floor while the other two inflate, and level scores
// pull both win odds down slightly as the draw firms up.
func RecomputeOdds(minute, homeScore, awayScore int, initial models.Odds) models.Odds {
	f := float64(minute) / 90.0

	switch {
	case homeScore > awayScore:
		return models.Odds{
			Home: shrinkTowardFloor(initial.Home, winOddsFloor, 1.5*f),
			Draw: initial.Draw + 2*f,
			Away: initial.Away + 3*f,
		}
	case awayScore > homeScore:
		return models.Odds{
			Home: initial.Home + 3*f,
			Draw: initial.Draw + 2*f,
			Away: shrinkTowardFloor(initial.Away, winOddsFloor, 1.5*f),
		}
	default:
		draw := initial.Draw - (initial.Draw-drawOddsFloor)*f
		if draw < drawOddsFloor {
			draw = drawOddsFloor
		}
		return models.Odds{
			Home: initial.Home * (1 - 0.10*f),
			Draw: draw,
			Away: initial.Away * (1 - 0.10*f),
		}
	}
}

// shrinkTowardFloor moves odds toward the floor by rate of the headroom
// above it, clamping at the floor.
func shrinkTowardFloor(odds, floor, rate float64) float64 {
	shrunk := odds - (odds-floor)*rate
	if shrunk < floor {
		return floor
	}
	return shrunk
}
