package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"matchbet/config"
	"matchbet/events"
	"matchbet/service"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	log "github.com/sirupsen/logrus"
)

// Server is the HTTP/WebSocket gateway the presentation layer talks to.
type Server struct {
	cfg        *config.Config
	clock      service.ClockEngine
	opps       service.OpportunityManager
	settlement service.SettlementEngine
	pause      service.PauseCoordinator
	hub        *Hub
	httpServer *http.Server
}

// NewServer wires the gateway and subscribes its push hub to the event bus.
func NewServer(cfg *config.Config, bus *events.Bus, clock service.ClockEngine, opps service.OpportunityManager, settlement service.SettlementEngine, pause service.PauseCoordinator) *Server {
	s := &Server{
		cfg:        cfg,
		clock:      clock,
		opps:       opps,
		settlement: settlement,
		pause:      pause,
		hub:        NewHub(),
	}
	s.hub.SubscribeTo(bus)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(s.routes())

	s.httpServer = &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler,
	}
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/match", s.getMatch).Methods(http.MethodGet)
	api.HandleFunc("/match/reset", s.postReset).Methods(http.MethodPost)
	api.HandleFunc("/opportunity", s.getOpportunity).Methods(http.MethodGet)
	api.HandleFunc("/opportunity/choice", s.postChoice).Methods(http.MethodPost)
	api.HandleFunc("/opportunity/stake", s.postStake).Methods(http.MethodPost)
	api.HandleFunc("/opportunity/skip", s.postSkip).Methods(http.MethodPost)
	api.HandleFunc("/opportunity/minimize", s.postMinimize).Methods(http.MethodPost)
	api.HandleFunc("/opportunity/restore", s.postRestore).Methods(http.MethodPost)
	api.HandleFunc("/bets", s.getBets).Methods(http.MethodGet)
	api.HandleFunc("/bets/fullmatch", s.postFullMatchBet).Methods(http.MethodPost)
	api.HandleFunc("/wallet", s.getWallet).Methods(http.MethodGet)
	api.HandleFunc("/powerup", s.getPowerUp).Methods(http.MethodGet)
	api.HandleFunc("/powerup/use", s.postUsePowerUp).Methods(http.MethodPost)

	r.HandleFunc("/ws", s.hub.ServeWS)
	return r
}

// Start begins serving in the background.
func (s *Server) Start() {
	go s.hub.Run()
	go func() {
		log.WithField("addr", s.httpServer.Addr).Info("Gateway listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("Gateway stopped")
		}
	}()
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, service.ErrValidation) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
