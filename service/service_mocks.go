package service

import (
	"time"

	"matchbet/models"

	"github.com/stretchr/testify/mock"
)

// MockPauseCoordinator is a mock implementation of PauseCoordinator
type MockPauseCoordinator struct {
	mock.Mock
}

func (m *MockPauseCoordinator) Pause(reason string, timeout time.Duration) error {
	args := m.Called(reason, timeout)
	return args.Error(0)
}

func (m *MockPauseCoordinator) Resume(withCountdown bool, seconds int) error {
	args := m.Called(withCountdown, seconds)
	return args.Error(0)
}

func (m *MockPauseCoordinator) ClearTimeout() {
	m.Called()
}

func (m *MockPauseCoordinator) IsPaused() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockPauseCoordinator) Info() models.PauseInfo {
	args := m.Called()
	return args.Get(0).(models.PauseInfo)
}

func (m *MockPauseCoordinator) SetCountdownFunc(fn CountdownFunc) {
	m.Called(fn)
}

// MockOpportunityManager is a mock implementation of OpportunityManager
type MockOpportunityManager struct {
	mock.Mock
}

func (m *MockOpportunityManager) Issue(ev models.TimelineEvent) {
	m.Called(ev)
}

func (m *MockOpportunityManager) SelectChoice(text string, odds float64) error {
	args := m.Called(text, odds)
	return args.Error(0)
}

func (m *MockOpportunityManager) ConfirmStake(amount int64) error {
	args := m.Called(amount)
	return args.Error(0)
}

func (m *MockOpportunityManager) Skip() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockOpportunityManager) Minimize() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockOpportunityManager) Restore() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockOpportunityManager) Snapshot() (models.OpportunitySnapshot, bool) {
	args := m.Called()
	return args.Get(0).(models.OpportunitySnapshot), args.Bool(1)
}

func (m *MockOpportunityManager) Reset() {
	m.Called()
}

// MockSettlementEngine is a mock implementation of SettlementEngine
type MockSettlementEngine struct {
	mock.Mock
}

func (m *MockSettlementEngine) PlaceBet(kind models.BetKind, betType, outcome string, odds float64, stake int64) (*models.Bet, error) {
	args := m.Called(kind, betType, outcome, odds, stake)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bet), args.Error(1)
}

func (m *MockSettlementEngine) RefundBet(id string) {
	m.Called(id)
}

func (m *MockSettlementEngine) ResolveOpportunityBets(betType, actualOutcome string) {
	m.Called(betType, actualOutcome)
}

func (m *MockSettlementEngine) SettleFullMatchBets(finalOutcome string) {
	m.Called(finalOutcome)
}

func (m *MockSettlementEngine) UsePowerUp() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSettlementEngine) PowerUp() models.PowerUp {
	args := m.Called()
	return args.Get(0).(models.PowerUp)
}

func (m *MockSettlementEngine) WalletBalance() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

func (m *MockSettlementEngine) Bets() []models.Bet {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]models.Bet)
}

func (m *MockSettlementEngine) Stats() models.BetStats {
	args := m.Called()
	return args.Get(0).(models.BetStats)
}

func (m *MockSettlementEngine) LastStake(kind models.BetKind) int64 {
	args := m.Called(kind)
	return args.Get(0).(int64)
}

func (m *MockSettlementEngine) Reset() {
	m.Called()
}

// MockClockEngine is a mock implementation of ClockEngine
type MockClockEngine struct {
	mock.Mock
}

func (m *MockClockEngine) AdvanceTick() {
	m.Called()
}

func (m *MockClockEngine) Snapshot() models.MatchSnapshot {
	args := m.Called()
	return args.Get(0).(models.MatchSnapshot)
}

func (m *MockClockEngine) Reset() {
	m.Called()
}

func (m *MockClockEngine) Stopped() bool {
	args := m.Called()
	return args.Bool(0)
}
