package service

import (
	"testing"

	"matchbet/models"

	"github.com/stretchr/testify/assert"
)

func TestRecomputeOdds_HomeLeadAtHalfTime(t *testing.T) {
	initial := models.Odds{Home: 1.85, Draw: 3.50, Away: 4.20}

	odds := RecomputeOdds(45, 1, 0, initial)

	assert.InDelta(t, 1.25, odds.Home, 0.0001)
	assert.InDelta(t, 4.50, odds.Draw, 0.0001)
	assert.InDelta(t, 5.70, odds.Away, 0.0001)
}

func TestRecomputeOdds_AwayLeadMirrorsHomeLead(t *testing.T) {
	initial := models.Odds{Home: 1.85, Draw: 3.50, Away: 4.20}

	odds := RecomputeOdds(45, 0, 1, initial)

	assert.InDelta(t, 1.85+3*0.5, odds.Home, 0.0001)
	assert.InDelta(t, 3.50+2*0.5, odds.Draw, 0.0001)
	assert.InDelta(t, 4.20-(4.20-1.05)*0.75, odds.Away, 0.0001)
}

func TestRecomputeOdds_LeaderNeverBelowFloor(t *testing.T) {
	initial := models.Odds{Home: 1.10, Draw: 3.00, Away: 4.00}

	odds := RecomputeOdds(90, 3, 0, initial)

	assert.GreaterOrEqual(t, odds.Home, 1.05)
}

func TestRecomputeOdds_LevelScoreFirmsTheDraw(t *testing.T) {
	initial := models.Odds{Home: 2.00, Draw: 3.40, Away: 3.00}

	odds := RecomputeOdds(45, 1, 1, initial)

	// Both win odds shrink slightly, the draw converges toward its floor.
	assert.InDelta(t, 2.00*0.95, odds.Home, 0.0001)
	assert.InDelta(t, 3.00*0.95, odds.Away, 0.0001)
	assert.InDelta(t, 3.40-(3.40-1.5)*0.5, odds.Draw, 0.0001)
}

func TestRecomputeOdds_DrawNeverBelowFloor(t *testing.T) {
	initial := models.Odds{Home: 2.00, Draw: 3.40, Away: 3.00}

	odds := RecomputeOdds(90, 0, 0, initial)

	assert.GreaterOrEqual(t, odds.Draw, 1.5)
}

func TestRecomputeOdds_KickOffLeavesInitialUntouched(t *testing.T) {
	initial := models.Odds{Home: 1.85, Draw: 3.50, Away: 4.20}

	odds := RecomputeOdds(0, 0, 0, initial)

	assert.Equal(t, initial, odds)
}
