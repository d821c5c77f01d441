package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"matchbet/models"
	"matchbet/service"
)

type matchResponse struct {
	Match models.MatchSnapshot `json:"match"`
	Pause models.PauseInfo     `json:"pause"`
}

func (s *Server) getMatch(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, matchResponse{
		Match: s.clock.Snapshot(),
		Pause: s.pause.Info(),
	})
}

func (s *Server) postReset(w http.ResponseWriter, _ *http.Request) {
	s.clock.Reset()
	writeJSON(w, http.StatusOK, matchResponse{
		Match: s.clock.Snapshot(),
		Pause: s.pause.Info(),
	})
}

func (s *Server) getOpportunity(w http.ResponseWriter, _ *http.Request) {
	snapshot, ok := s.opps.Snapshot()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no active betting opportunity"})
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

type choiceRequest struct {
	Text string  `json:"text"`
	Odds float64 `json:"odds"`
}

func (s *Server) postChoice(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", service.ErrValidation))
		return
	}
	if err := s.opps.SelectChoice(req.Text, req.Odds); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"selected": req.Text,
		"prefill":  s.settlement.LastStake(models.BetKindOpportunity),
	})
}

type stakeRequest struct {
	Amount int64 `json:"amount"`
}

func (s *Server) postStake(w http.ResponseWriter, r *http.Request) {
	var req stakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", service.ErrValidation))
		return
	}
	if err := s.opps.ConfirmStake(req.Amount); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": s.settlement.WalletBalance()})
}

func (s *Server) postSkip(w http.ResponseWriter, _ *http.Request) {
	if err := s.opps.Skip(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "skipped"})
}

func (s *Server) postMinimize(w http.ResponseWriter, _ *http.Request) {
	if err := s.opps.Minimize(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "minimized"})
}

func (s *Server) postRestore(w http.ResponseWriter, _ *http.Request) {
	if err := s.opps.Restore(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

type betsResponse struct {
	Bets    []models.Bet     `json:"bets"`
	Stats   models.BetStats  `json:"stats"`
	Prefill map[string]int64 `json:"prefill"`
}

func (s *Server) getBets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, betsResponse{
		Bets:  s.settlement.Bets(),
		Stats: s.settlement.Stats(),
		Prefill: map[string]int64{
			string(models.BetKindFullMatch):   s.settlement.LastStake(models.BetKindFullMatch),
			string(models.BetKindOpportunity): s.settlement.LastStake(models.BetKindOpportunity),
		},
	})
}

type fullMatchBetRequest struct {
	Outcome string `json:"outcome"`
	Stake   int64  `json:"stake"`
}

func (s *Server) postFullMatchBet(w http.ResponseWriter, r *http.Request) {
	var req fullMatchBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Errorf("%w: invalid request body", service.ErrValidation))
		return
	}

	odds := s.clock.Snapshot().Odds.For(req.Outcome)
	if odds <= 0 {
		writeError(w, fmt.Errorf("%w: unknown outcome %q", service.ErrValidation, req.Outcome))
		return
	}
	bet, err := s.settlement.PlaceBet(models.BetKindFullMatch, "", req.Outcome, odds, req.Stake)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"bet":     bet,
		"balance": s.settlement.WalletBalance(),
	})
}

func (s *Server) getWallet(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int64{"balance": s.settlement.WalletBalance()})
}

func (s *Server) getPowerUp(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.settlement.PowerUp())
}

func (s *Server) postUsePowerUp(w http.ResponseWriter, _ *http.Request) {
	if err := s.settlement.UsePowerUp(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.settlement.PowerUp())
}
