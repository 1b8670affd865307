// Package worker runs the scheduled delivery sweep. Finalized vaults whose
// delivery time has passed are moved to delivered, which freezes all content
// mutation from that point on.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/heirloom/internal/metrics"
	"github.com/DukeRupert/heirloom/internal/service"
	"github.com/DukeRupert/heirloom/internal/store"
)

// Worker polls for due vaults and delivers them.
type Worker struct {
	vaults  store.VaultStore
	service service.VaultService
	config  Config
	logger  *slog.Logger

	// Synchronization
	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New creates a new Worker with the given configuration.
// The worker must be started with Start() and stopped with Stop().
func New(vaults store.VaultStore, vaultService service.VaultService, config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		vaults:  vaults,
		service: vaultService,
		config:  config,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins the sweep loop. An immediate sweep runs at startup to pick up
// vaults that came due while the process was down.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("delivery worker started", "poll_interval", w.config.PollInterval)
}

// Stop signals the worker to stop and waits for a running sweep to finish.
// It respects the configured ShutdownTimeout.
func (w *Worker) Stop() {
	w.logger.Info("stopping delivery worker...")
	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("delivery worker stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("delivery worker shutdown timeout exceeded, a sweep may still be running")
	}
}

// run is the main loop of the worker goroutine.
func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	w.sweep(ctx)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			w.logger.Debug("delivery worker stopping")
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep delivers every vault that is due. Each vault is delivered through
// the service's CAS transition, so a concurrent sweep or a manual delivery
// loses cleanly instead of delivering twice.
func (w *Worker) sweep(ctx context.Context) {
	start := time.Now()

	sweepCtx, cancel := context.WithTimeout(ctx, w.config.SweepTimeout)
	defer cancel()

	due, err := w.vaults.ListDueVaults(sweepCtx, time.Now(), w.config.BatchSize)
	if err != nil {
		w.logger.Error("failed to list due vaults", "error", err)
		return
	}

	delivered := 0
	for _, vault := range due {
		select {
		case <-w.stopCh:
			w.logger.Info("sweep interrupted by shutdown", "delivered", delivered, "remaining", len(due)-delivered)
			return
		default:
		}

		if err := w.service.Deliver(sweepCtx, vault.ID); err != nil {
			// ECONFLICT means someone else moved the vault first; not a failure.
			w.logger.Warn("failed to deliver vault", "vault_id", vault.ID, "error", err)
			continue
		}

		// The service's Deliver owns the delivery counter.
		delivered++
		w.logger.Info("vault delivered", "vault_id", vault.ID, "account_id", vault.AccountID)
	}

	metrics.DeliverySweepDuration.Observe(time.Since(start).Seconds())

	if len(due) > 0 {
		w.logger.Info("delivery sweep completed", "due", len(due), "delivered", delivered)
	}
}
