package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"

	"matchbet/config"
	"matchbet/events"
	"matchbet/service"
	"matchbet/web"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting matchbet...")

	// Load configuration
	cfg := config.Get()

	// Initialize event bus
	log.Println("Initializing event bus...")
	eventBus := events.NewBus()

	// Initialize services
	log.Println("Initializing services...")
	clk := clockwork.NewRealClock()
	seed := time.Now().UnixNano()
	generator := service.NewTimelineGenerator(seed)
	settlement := service.NewSettlementEngine(cfg, clk, eventBus, seed)
	pause := service.NewPauseCoordinator(cfg, clk, eventBus)
	opportunities := service.NewOpportunityManager(cfg, clk, eventBus, pause, settlement)
	engine := service.NewClockEngine(cfg, eventBus, pause, opportunities, settlement, generator)

	// The pre-resume countdown is displayed by pushing one event per second;
	// the coordinator guards against this callback stalling.
	pause.SetCountdownFunc(func(ctx context.Context, seconds int) error {
		for i := seconds; i > 0; i-- {
			eventBus.Emit(ctx, events.ResumeCountdownEvent{SecondsLeft: i})
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clk.After(time.Second):
			}
		}
		return nil
	})

	// Initialize web gateway
	log.Println("Initializing web gateway...")
	server := web.NewServer(cfg, eventBus, engine, opportunities, settlement, pause)
	server.Start()
	log.Printf("Web gateway listening on %s", cfg.HTTPAddr)

	// The external pulse source drives the match clock
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if _, err := scheduler.NewJob(
		gocron.DurationJob(cfg.TickInterval),
		gocron.NewTask(engine.AdvanceTick),
	); err != nil {
		return fmt.Errorf("failed to schedule match pulse: %w", err)
	}
	scheduler.Start()

	// Wait for context cancellation
	log.Printf("Simulation is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down...")
	if err := scheduler.Shutdown(); err != nil {
		log.Printf("Error stopping scheduler: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error stopping web gateway: %v", err)
	}

	log.Println("Shutdown completed")
	return nil
}
