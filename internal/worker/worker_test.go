package worker

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/DukeRupert/heirloom/internal/domain"
	"github.com/DukeRupert/heirloom/internal/metrics"
	"github.com/DukeRupert/heirloom/internal/service"
	"github.com/DukeRupert/heirloom/internal/store"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid default config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "poll interval too short",
			config: Config{
				PollInterval:    500 * time.Millisecond,
				BatchSize:       50,
				SweepTimeout:    2 * time.Minute,
				ShutdownTimeout: 30 * time.Second,
			},
			wantErr: true,
		},
		{
			name: "batch size too low",
			config: Config{
				PollInterval:    1 * time.Minute,
				BatchSize:       0,
				SweepTimeout:    2 * time.Minute,
				ShutdownTimeout: 30 * time.Second,
			},
			wantErr: true,
		},
		{
			name: "batch size too high",
			config: Config{
				PollInterval:    1 * time.Minute,
				BatchSize:       1001,
				SweepTimeout:    2 * time.Minute,
				ShutdownTimeout: 30 * time.Second,
			},
			wantErr: true,
		},
		{
			name: "sweep timeout too short",
			config: Config{
				PollInterval:    1 * time.Minute,
				BatchSize:       50,
				SweepTimeout:    100 * time.Millisecond,
				ShutdownTimeout: 30 * time.Second,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Config.Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func newSweepFixture(t *testing.T) (*store.Memory, service.VaultService, *Worker) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	mem := store.NewMemory()
	vaultService := service.NewVaultService(mem, logger)

	w, err := New(mem, vaultService, DefaultConfig(), logger)
	require.NoError(t, err)
	return mem, vaultService, w
}

func seedVault(t *testing.T, mem *store.Memory, status domain.VaultStatus, deliverAt *time.Time) *domain.Vault {
	t.Helper()

	account := &domain.Account{
		ID:     uuid.New(),
		Email:  "owner@example.com",
		PlanID: "essentials",
	}
	require.NoError(t, mem.CreateAccount(context.Background(), account))

	vault := &domain.Vault{
		ID:        uuid.New(),
		AccountID: account.ID,
		Title:     "Family memories",
		Status:    status,
		DeliverAt: deliverAt,
	}
	require.NoError(t, mem.CreateVault(context.Background(), vault))
	return vault
}

func TestSweep_DeliversDueVault(t *testing.T) {
	mem, _, w := newSweepFixture(t)

	past := time.Now().Add(-1 * time.Hour)
	vault := seedVault(t, mem, domain.VaultStatusFinalized, &past)

	w.sweep(context.Background())

	got, err := mem.GetVault(context.Background(), vault.ID)
	require.NoError(t, err)
	require.Equal(t, domain.VaultStatusDelivered, got.Status)
}

func TestSweep_SkipsFutureAndNonFinalized(t *testing.T) {
	mem, _, w := newSweepFixture(t)

	future := time.Now().Add(24 * time.Hour)
	scheduled := seedVault(t, mem, domain.VaultStatusFinalized, &future)

	past := time.Now().Add(-1 * time.Hour)
	draft := seedVault(t, mem, domain.VaultStatusDraft, &past)

	w.sweep(context.Background())

	got, err := mem.GetVault(context.Background(), scheduled.ID)
	require.NoError(t, err)
	require.Equal(t, domain.VaultStatusFinalized, got.Status, "future vault must not be delivered early")

	got, err = mem.GetVault(context.Background(), draft.ID)
	require.NoError(t, err)
	require.Equal(t, domain.VaultStatusDraft, got.Status, "only finalized vaults are swept")
}

func TestSweep_CountsEachDeliveryOnce(t *testing.T) {
	mem, _, w := newSweepFixture(t)

	past := time.Now().Add(-1 * time.Hour)
	seedVault(t, mem, domain.VaultStatusFinalized, &past)

	before := testutil.ToFloat64(metrics.DeliveriesTotal)
	w.sweep(context.Background())
	after := testutil.ToFloat64(metrics.DeliveriesTotal)

	require.Equal(t, 1.0, after-before, "one delivery increments the counter exactly once")
}

func TestSweep_SecondSweepIsNoOp(t *testing.T) {
	mem, _, w := newSweepFixture(t)

	past := time.Now().Add(-1 * time.Hour)
	vault := seedVault(t, mem, domain.VaultStatusFinalized, &past)

	w.sweep(context.Background())
	w.sweep(context.Background())

	got, err := mem.GetVault(context.Background(), vault.ID)
	require.NoError(t, err)
	require.Equal(t, domain.VaultStatusDelivered, got.Status)
}

func TestStartStop(t *testing.T) {
	_, _, w := newSweepFixture(t)

	w.Start(context.Background())
	w.Stop()
}
