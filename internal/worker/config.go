package worker

import (
	"fmt"
	"time"
)

// Config holds the configuration for the delivery sweep worker.
type Config struct {
	// PollInterval is how often the worker scans for due vaults.
	// Default: 1 minute
	PollInterval time.Duration

	// BatchSize is the maximum number of due vaults picked up per sweep.
	// Default: 50
	BatchSize int

	// SweepTimeout is the maximum time a single sweep is allowed to run.
	// If a sweep exceeds this timeout, its context is canceled.
	// Default: 2 minutes
	SweepTimeout time.Duration

	// ShutdownTimeout is how long to wait for a running sweep to complete
	// during graceful shutdown.
	// Default: 30 seconds
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		PollInterval:    1 * time.Minute,
		BatchSize:       50,
		SweepTimeout:    2 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks if the configuration is valid.
// Returns an error if any values are invalid.
func (c Config) Validate() error {
	if c.PollInterval < 1*time.Second {
		return fmt.Errorf("poll interval must be at least 1 second, got %v", c.PollInterval)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be at least 1, got %d", c.BatchSize)
	}
	if c.BatchSize > 1000 {
		return fmt.Errorf("batch size too high (max 1000), got %d", c.BatchSize)
	}
	if c.SweepTimeout < 1*time.Second {
		return fmt.Errorf("sweep timeout must be at least 1 second, got %v", c.SweepTimeout)
	}
	if c.ShutdownTimeout < 1*time.Second {
		return fmt.Errorf("shutdown timeout must be at least 1 second, got %v", c.ShutdownTimeout)
	}
	return nil
}
