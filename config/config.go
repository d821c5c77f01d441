package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// HTTP gateway
	HTTPAddr string

	// Simulation
	TickInterval  time.Duration // cadence of the external pulse source
	MatchDuration int           // virtual minutes, clock stops at this time

	// Wallet and stakes
	StartingBalance int64
	MinStake        int64
	MaxStake        int64

	// Betting opportunity windows
	OpportunityCountdown  time.Duration // default betting window
	PauseGuard            time.Duration // safety margin, strictly > countdown
	MinimizeBuffer        time.Duration // added when re-arming a minimized deadline
	QueueAcceptanceWindow time.Duration // queued opportunities older than this are discarded
	PauseCeiling          time.Duration // hard cap on any pause timeout
	ResumeCountdownSecs   int           // pre-resume countdown after a placed bet
	CountdownGuardBuffer  time.Duration // guard margin over the display countdown

	// Power-ups
	PowerUpAwardChance float64
	ClassicMode        bool // disables power-ups entirely

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// Default returns a standalone configuration with all defaults applied.
// Tests use this instead of the global instance.
func Default() *Config {
	return &Config{
		HTTPAddr:              ":8080",
		TickInterval:          500 * time.Millisecond,
		MatchDuration:         90,
		StartingBalance:       1000,
		MinStake:              1,
		MaxStake:              1000,
		OpportunityCountdown:  10 * time.Second,
		PauseGuard:            15 * time.Second,
		MinimizeBuffer:        2 * time.Second,
		QueueAcceptanceWindow: 30 * time.Second,
		PauseCeiling:          5 * time.Minute,
		ResumeCountdownSecs:   3,
		CountdownGuardBuffer:  2 * time.Second,
		PowerUpAwardChance:    0.8,
		ClassicMode:           false,
		Environment:           "test",
	}
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// Best effort; a missing .env file is fine outside development.
	_ = godotenv.Load()

	config := Default()
	config.Environment = os.Getenv("ENVIRONMENT")
	if config.Environment == "" {
		config.Environment = "development"
	}

	if addr := os.Getenv("HTTP_ADDR"); addr != "" {
		config.HTTPAddr = addr
	}
	if ms := envInt64("TICK_INTERVAL_MS"); ms > 0 {
		config.TickInterval = time.Duration(ms) * time.Millisecond
	}
	if v := envInt64("STARTING_BALANCE"); v > 0 {
		config.StartingBalance = v
	}
	if v := envInt64("MIN_STAKE"); v > 0 {
		config.MinStake = v
	}
	if v := envInt64("MAX_STAKE"); v > 0 {
		config.MaxStake = v
	}
	if v := envInt64("OPPORTUNITY_COUNTDOWN_SECONDS"); v > 0 {
		config.OpportunityCountdown = time.Duration(v) * time.Second
	}
	if v := envInt64("RESUME_COUNTDOWN_SECONDS"); v > 0 {
		config.ResumeCountdownSecs = int(v)
	}
	if chance := os.Getenv("POWER_UP_AWARD_CHANCE"); chance != "" {
		if parsed, err := strconv.ParseFloat(chance, 64); err == nil && parsed >= 0 && parsed <= 1 {
			config.PowerUpAwardChance = parsed
		}
	}
	config.ClassicMode = os.Getenv("CLASSIC_MODE") == "true"

	if config.PauseGuard <= config.OpportunityCountdown {
		return nil, fmt.Errorf("pause guard %v must exceed the opportunity countdown %v",
			config.PauseGuard, config.OpportunityCountdown)
	}

	return config, nil
}

func envInt64(key string) int64 {
	raw := os.Getenv(key)
	if raw == "" {
		return 0
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
